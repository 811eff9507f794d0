package service

import (
	"context"
	"testing"
	"time"

	paymentserrors "staytax/internal/payments/errors"
	"staytax/internal/payments/gateway"
	reservationserrors "staytax/internal/reservations/errors"
	"staytax/pkg/audit"
	"staytax/pkg/cache"
	"staytax/pkg/config"
	mongotx "staytax/pkg/db/mongo"
	apperrors "staytax/pkg/errors"
	"staytax/pkg/logger"
	"staytax/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

type mockPaymentRepository struct {
	payments map[string]*model.Payment
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{payments: make(map[string]*model.Payment)}
}

func (m *mockPaymentRepository) Create(_ context.Context, p *model.Payment) error {
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	stored := *p
	m.payments[p.ID] = &stored
	return nil
}

func (m *mockPaymentRepository) FindByID(_ context.Context, id string) (*model.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPaymentRepository) FindByGatewayTransaction(_ context.Context, gatewayTransactionID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.GatewayTransactionID == gatewayTransactionID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *mockPaymentRepository) FindByReservation(_ context.Context, reservationID string) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.payments {
		if p.ReservationID == reservationID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) FindOpenByReservation(_ context.Context, reservationID string) (*model.Payment, error) {
	for _, p := range m.payments {
		if p.ReservationID == reservationID && model.PaymentOpen(p.Status) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *mockPaymentRepository) FindOpen(_ context.Context, limit int) ([]*model.Payment, error) {
	var out []*model.Payment
	for _, p := range m.payments {
		if model.PaymentOpen(p.Status) {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockPaymentRepository) TransitionStatus(_ context.Context, id string, allowedPrior []string, to string, set bson.M) (*model.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, paymentserrors.ErrIllegalTransition
	}
	allowed := false
	for _, prior := range allowedPrior {
		if p.Status == prior {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, paymentserrors.ErrIllegalTransition
	}
	p.Status = to
	if reason, ok := set["failure_reason"].(string); ok {
		p.FailureReason = reason
	}
	if receipt, ok := set["receipt_url"].(string); ok {
		p.ReceiptURL = receipt
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

func (m *mockPaymentRepository) IncrementAttempts(_ context.Context, id string) error {
	if p, ok := m.payments[id]; ok {
		p.Attempts++
	}
	return nil
}

func (m *mockPaymentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockReservationRepository struct {
	reservations map[string]*model.Reservation
}

func (m *mockReservationRepository) Create(_ context.Context, r *model.Reservation) error {
	stored := *r
	m.reservations[r.ID] = &stored
	return nil
}

func (m *mockReservationRepository) FindByID(_ context.Context, id string) (*model.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockReservationRepository) FindAll(_ context.Context, cityCode string, limit int, offset int64) ([]*model.Reservation, error) {
	return nil, nil
}

func (m *mockReservationRepository) Count(_ context.Context, cityCode string) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepository) Update(_ context.Context, id string, r *model.Reservation) error {
	stored := *r
	m.reservations[id] = &stored
	return nil
}

func (m *mockReservationRepository) TransitionStatus(_ context.Context, id string, allowedPrior []string, to string) (*model.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrIllegalTransition
	}
	for _, prior := range allowedPrior {
		if r.Status == prior {
			r.Status = to
			copied := *r
			return &copied, nil
		}
	}
	return nil, reservationserrors.ErrIllegalTransition
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockGateway struct {
	createCalls  int
	transactions map[string]*gateway.Transaction
}

func newMockGateway() *mockGateway {
	return &mockGateway{transactions: make(map[string]*gateway.Transaction)}
}

func (m *mockGateway) CreateTransaction(_ context.Context, req *gateway.CreateRequest) (*gateway.Transaction, error) {
	m.createCalls++
	tx := &gateway.Transaction{
		ID:          uuid.NewString(),
		Status:      gateway.StatusNew,
		AmountMinor: req.AmountMinor,
		Currency:    req.Currency,
		RedirectURL: "https://sandbox.gateway.test/pay/" + req.OrderID,
	}
	m.transactions[tx.ID] = tx
	return tx, nil
}

func (m *mockGateway) GetTransaction(_ context.Context, transactionID string) (*gateway.Transaction, error) {
	tx, ok := m.transactions[transactionID]
	if !ok {
		return nil, paymentserrors.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

type fixture struct {
	svc     PaymentService
	repo    *mockPaymentRepository
	resRepo *mockReservationRepository
	gw      *mockGateway
	cache   *cache.Memory
}

func newFixture() *fixture {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "test"})
	cfg := &config.Config{
		Log:             log,
		StatusCacheTTL:  3 * time.Second,
		PaymentDeadline: 30 * time.Minute,
	}
	repo := newMockPaymentRepository()
	resRepo := &mockReservationRepository{reservations: make(map[string]*model.Reservation)}
	gw := newMockGateway()
	memCache := cache.NewMemory(time.Hour)

	svc := NewPaymentService(repo, resRepo, gw, memCache, audit.NewPublisher(nil, "", log), cfg)
	return &fixture{svc: svc, repo: repo, resRepo: resRepo, gw: gw, cache: memCache}
}

func (f *fixture) addReservation(status string) *model.Reservation {
	r := &model.Reservation{
		ID:         uuid.NewString(),
		CityCode:   "KRK",
		TotalMinor: 1980,
		Currency:   "PLN",
		Status:     status,
	}
	f.resRepo.reservations[r.ID] = r
	return r
}

func TestInitiate_CreatesPaymentWithDeadline(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)

	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if payment.AmountMinor != 1980 {
		t.Errorf("AmountMinor = %d, want 1980", payment.AmountMinor)
	}
	if payment.Status != model.PaymentPending {
		t.Errorf("Status = %q, want pending", payment.Status)
	}
	if payment.GatewayTransactionID == "" {
		t.Error("expected gateway transaction ID")
	}
	if payment.RedirectURL == "" {
		t.Error("expected redirect URL")
	}
	if payment.Deadline.IsZero() {
		t.Error("expected payment deadline")
	}
}

func TestInitiate_NonPendingReservationRejected(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPaid)

	_, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err == nil {
		t.Fatal("expected conflict for paid reservation")
	}
	if apperrors.AsAppError(err).StatusCode() != 409 {
		t.Errorf("status = %d, want 409", apperrors.AsAppError(err).StatusCode())
	}
}

func TestInitiate_ReusesOpenPayment(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	ctx := context.Background()

	first, err := f.svc.Initiate(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("first Initiate failed: %v", err)
	}
	second, err := f.svc.Initiate(ctx, reservation.ID)
	if err != nil {
		t.Fatalf("second Initiate failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("expected same payment, got %s and %s", first.ID, second.ID)
	}
	if f.gw.createCalls != 1 {
		t.Errorf("gateway CreateTransaction called %d times, want 1", f.gw.createCalls)
	}
}

func TestApplyGatewayStatus_SettledMarksReservationPaid(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	tx := &gateway.Transaction{
		ID:         payment.GatewayTransactionID,
		Status:     gateway.StatusSettled,
		ReceiptURL: "https://sandbox.gateway.test/receipts/1",
	}
	if err := f.svc.ApplyGatewayStatus(context.Background(), payment, tx); err != nil {
		t.Fatalf("ApplyGatewayStatus failed: %v", err)
	}

	stored := f.repo.payments[payment.ID]
	if stored.Status != model.PaymentCompleted {
		t.Errorf("payment status = %q, want completed", stored.Status)
	}
	if stored.ReceiptURL == "" {
		t.Error("expected receipt URL on settled payment")
	}
	if f.resRepo.reservations[reservation.ID].Status != model.ReservationPaid {
		t.Errorf("reservation status = %q, want paid", f.resRepo.reservations[reservation.ID].Status)
	}
}

func TestApplyGatewayStatus_SettledCompletesDespiteCancelledReservation(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	// Cancelled while the guest was paying; the gateway settles anyway.
	f.resRepo.reservations[reservation.ID].Status = model.ReservationCancelled

	tx := &gateway.Transaction{
		ID:         payment.GatewayTransactionID,
		Status:     gateway.StatusSettled,
		ReceiptURL: "https://sandbox.gateway.test/receipts/2",
	}
	if err := f.svc.ApplyGatewayStatus(context.Background(), payment, tx); err != nil {
		t.Fatalf("ApplyGatewayStatus failed: %v", err)
	}

	stored := f.repo.payments[payment.ID]
	if stored.Status != model.PaymentCompleted {
		t.Errorf("payment status = %q, want completed (money was collected)", stored.Status)
	}
	if f.resRepo.reservations[reservation.ID].Status != model.ReservationCancelled {
		t.Errorf("reservation status = %q, want cancelled", f.resRepo.reservations[reservation.ID].Status)
	}
}

func TestApplyGatewayStatus_RejectedLeavesReservationPending(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	tx := &gateway.Transaction{ID: payment.GatewayTransactionID, Status: gateway.StatusRejected}
	if err := f.svc.ApplyGatewayStatus(context.Background(), payment, tx); err != nil {
		t.Fatalf("ApplyGatewayStatus failed: %v", err)
	}

	stored := f.repo.payments[payment.ID]
	if stored.Status != model.PaymentFailed {
		t.Errorf("payment status = %q, want failed", stored.Status)
	}
	if stored.FailureReason != model.FailureReasonRejected {
		t.Errorf("failure reason = %q, want rejected", stored.FailureReason)
	}
	if f.resRepo.reservations[reservation.ID].Status != model.ReservationPending {
		t.Error("failed payment must leave the reservation pending for retry")
	}
}

func TestApplyGatewayStatus_TerminalNeverOverwritten(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	ctx := context.Background()
	settled := &gateway.Transaction{ID: payment.GatewayTransactionID, Status: gateway.StatusSettled}
	if err := f.svc.ApplyGatewayStatus(ctx, payment, settled); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	// A late rejection must not undo the settlement.
	completed := f.repo.payments[payment.ID]
	rejected := &gateway.Transaction{ID: payment.GatewayTransactionID, Status: gateway.StatusRejected}
	err = f.svc.ApplyGatewayStatus(ctx, completed, rejected)
	if err == nil {
		t.Fatal("expected conflict applying rejection to a completed payment")
	}
	if apperrors.AsAppError(err).StatusCode() != 409 {
		t.Errorf("status = %d, want 409", apperrors.AsAppError(err).StatusCode())
	}
	if f.repo.payments[payment.ID].Status != model.PaymentCompleted {
		t.Error("completed payment was overwritten")
	}
}

func TestApplyGatewayStatus_SameStatusIsNoOp(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	tx := &gateway.Transaction{ID: payment.GatewayTransactionID, Status: gateway.StatusNew}
	if err := f.svc.ApplyGatewayStatus(context.Background(), payment, tx); err != nil {
		t.Fatalf("same-status apply should be a no-op, got %v", err)
	}
}

func TestExpire_SetsFailureReason(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if err := f.svc.Expire(context.Background(), payment); err != nil {
		t.Fatalf("Expire failed: %v", err)
	}

	stored := f.repo.payments[payment.ID]
	if stored.Status != model.PaymentFailed {
		t.Errorf("payment status = %q, want failed", stored.Status)
	}
	if stored.FailureReason != model.FailureReasonExpired {
		t.Errorf("failure reason = %q, want expired", stored.FailureReason)
	}
	if f.resRepo.reservations[reservation.ID].Status != model.ReservationPending {
		t.Error("expired payment must leave the reservation pending")
	}
}

func TestExpire_TerminalPaymentIsNoOp(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	settled := &gateway.Transaction{ID: payment.GatewayTransactionID, Status: gateway.StatusSettled}
	if err := f.svc.ApplyGatewayStatus(context.Background(), payment, settled); err != nil {
		t.Fatalf("settle failed: %v", err)
	}

	if err := f.svc.Expire(context.Background(), payment); err != nil {
		t.Fatalf("Expire on terminal payment should be a no-op, got %v", err)
	}
	if f.repo.payments[payment.ID].Status != model.PaymentCompleted {
		t.Error("Expire overwrote a completed payment")
	}
}

func TestHandleNotification_ByGatewayTransaction(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	reservation := f.addReservation(model.ReservationPending)
	payment, err := f.svc.Initiate(context.Background(), reservation.ID)
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	err = f.svc.HandleNotification(context.Background(), &GatewayNotification{
		TransactionID: payment.GatewayTransactionID,
		Status:        gateway.StatusSettled,
	})
	if err != nil {
		t.Fatalf("HandleNotification failed: %v", err)
	}

	if f.repo.payments[payment.ID].Status != model.PaymentCompleted {
		t.Error("notification did not settle the payment")
	}
}

func TestHandleNotification_UnknownTransaction(t *testing.T) {
	f := newFixture()
	defer f.cache.Stop()

	err := f.svc.HandleNotification(context.Background(), &GatewayNotification{
		TransactionID: uuid.NewString(),
		Status:        gateway.StatusSettled,
	})
	if err == nil {
		t.Fatal("expected not found for unknown transaction")
	}
	if apperrors.AsAppError(err).StatusCode() != 404 {
		t.Errorf("status = %d, want 404", apperrors.AsAppError(err).StatusCode())
	}
}
