package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"staytax/internal/payments/gateway"
	"staytax/pkg/config"
	"staytax/pkg/logger"
	"staytax/pkg/model"
)

type fakeSource struct {
	open     []*model.Payment
	attempts map[string]int
}

func (f *fakeSource) FindOpen(_ context.Context, limit int) ([]*model.Payment, error) {
	if len(f.open) > limit {
		return f.open[:limit], nil
	}
	return f.open, nil
}

func (f *fakeSource) IncrementAttempts(_ context.Context, id string) error {
	f.attempts[id]++
	return nil
}

type fakeApplier struct {
	applied map[string]string
	expired map[string]bool
}

func (f *fakeApplier) ApplyGatewayStatus(_ context.Context, payment *model.Payment, tx *gateway.Transaction) error {
	f.applied[payment.ID] = tx.Status
	return nil
}

func (f *fakeApplier) Expire(_ context.Context, payment *model.Payment) error {
	f.expired[payment.ID] = true
	return nil
}

type fakeGateway struct {
	statuses map[string]string
	err      error
}

func (f *fakeGateway) CreateTransaction(_ context.Context, _ *gateway.CreateRequest) (*gateway.Transaction, error) {
	return nil, errors.New("not used")
}

func (f *fakeGateway) GetTransaction(_ context.Context, transactionID string) (*gateway.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Transaction{ID: transactionID, Status: f.statuses[transactionID]}, nil
}

func newTestPoller(source *fakeSource, applier *fakeApplier, gw *fakeGateway) (*Poller, *time.Time) {
	log := logger.New(logger.Config{Level: logger.ERROR, Format: logger.TEXT, Service: "test"})
	cfg := &config.Config{
		Log:             log,
		PollInterval:    time.Second,
		PollBatchSize:   10,
		PollMaxAttempts: 3,
	}
	p := New(source, applier, gw, cfg)
	now := time.Now()
	p.now = func() time.Time { return now }
	return p, &now
}

func openPayment(id, txID string, deadline time.Time) *model.Payment {
	return &model.Payment{
		ID:                   id,
		ReservationID:        "res-" + id,
		Status:               model.PaymentProcessing,
		GatewayTransactionID: txID,
		Deadline:             deadline,
	}
}

func TestSweep_AppliesGatewayStatus(t *testing.T) {
	source := &fakeSource{
		open:     []*model.Payment{openPayment("p1", "tx1", time.Now().Add(time.Hour))},
		attempts: map[string]int{},
	}
	applier := &fakeApplier{applied: map[string]string{}, expired: map[string]bool{}}
	gw := &fakeGateway{statuses: map[string]string{"tx1": gateway.StatusSettled}}

	p, _ := newTestPoller(source, applier, gw)
	p.sweep(context.Background())

	if applier.applied["p1"] != gateway.StatusSettled {
		t.Errorf("applied status = %q, want settled", applier.applied["p1"])
	}
	if source.attempts["p1"] != 1 {
		t.Errorf("attempts recorded = %d, want 1", source.attempts["p1"])
	}
	if applier.expired["p1"] {
		t.Error("payment should not be expired")
	}
}

func TestSweep_ExpiresPastDeadline(t *testing.T) {
	deadline := time.Now().Add(-time.Minute)
	source := &fakeSource{
		open:     []*model.Payment{openPayment("p1", "tx1", deadline)},
		attempts: map[string]int{},
	}
	applier := &fakeApplier{applied: map[string]string{}, expired: map[string]bool{}}
	gw := &fakeGateway{statuses: map[string]string{"tx1": gateway.StatusPending}}

	p, _ := newTestPoller(source, applier, gw)
	p.sweep(context.Background())

	if !applier.expired["p1"] {
		t.Error("payment past its deadline should be expired")
	}
	if _, polled := applier.applied["p1"]; polled {
		t.Error("expired payment should not be polled")
	}
}

func TestSweep_ExpiresAfterMaxAttempts(t *testing.T) {
	payment := openPayment("p1", "tx1", time.Now().Add(time.Hour))
	payment.Attempts = 3
	source := &fakeSource{open: []*model.Payment{payment}, attempts: map[string]int{}}
	applier := &fakeApplier{applied: map[string]string{}, expired: map[string]bool{}}
	gw := &fakeGateway{statuses: map[string]string{"tx1": gateway.StatusPending}}

	p, _ := newTestPoller(source, applier, gw)
	p.sweep(context.Background())

	if !applier.expired["p1"] {
		t.Error("payment at max attempts should be expired")
	}
}

func TestSweep_GatewayFailureCostsAnAttempt(t *testing.T) {
	source := &fakeSource{
		open:     []*model.Payment{openPayment("p1", "tx1", time.Now().Add(time.Hour))},
		attempts: map[string]int{},
	}
	applier := &fakeApplier{applied: map[string]string{}, expired: map[string]bool{}}
	gw := &fakeGateway{err: errors.New("connection refused")}

	p, _ := newTestPoller(source, applier, gw)
	p.sweep(context.Background())

	if source.attempts["p1"] != 1 {
		t.Errorf("attempts recorded = %d, want 1", source.attempts["p1"])
	}
	if len(applier.applied) != 0 {
		t.Error("no status should be applied when the gateway is down")
	}
	if applier.expired["p1"] {
		t.Error("a single gateway failure must not expire the payment")
	}
}
