package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	paymentserrors "staytax/internal/payments/errors"
	"staytax/internal/payments/gateway"
	"staytax/internal/payments/repository"
	reservationserrors "staytax/internal/reservations/errors"
	resrepo "staytax/internal/reservations/repository"
	"staytax/pkg/audit"
	"staytax/pkg/cache"
	"staytax/pkg/config"
	apperrors "staytax/pkg/errors"
	"staytax/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const paymentCachePrefix = "payment:"

type GatewayNotification struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	ReceiptURL    string `json:"receipt_url,omitempty"`
}

type PaymentService interface {
	Initiate(ctx context.Context, reservationID string) (*model.Payment, error)
	GetByID(ctx context.Context, id string) (*model.Payment, error)
	GetByReservation(ctx context.Context, reservationID string) ([]*model.Payment, error)
	ApplyGatewayStatus(ctx context.Context, payment *model.Payment, tx *gateway.Transaction) error
	Expire(ctx context.Context, payment *model.Payment) error
	HandleNotification(ctx context.Context, notification *GatewayNotification) error
}

type paymentService struct {
	repo    repository.PaymentRepository
	resRepo resrepo.ReservationRepository
	gateway gateway.Client
	cache   cache.Cache
	audit   audit.Publisher
	cfg     *config.Config
	now     func() time.Time
}

func NewPaymentService(
	repo repository.PaymentRepository,
	resRepo resrepo.ReservationRepository,
	gatewayClient gateway.Client,
	cacheTier cache.Cache,
	auditPublisher audit.Publisher,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:    repo,
		resRepo: resRepo,
		gateway: gatewayClient,
		cache:   cacheTier,
		audit:   auditPublisher,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Initiate starts payment for a pending reservation. Re-initiation while an
// open payment exists returns that payment instead of creating another
// gateway transaction.
func (s *paymentService) Initiate(ctx context.Context, reservationID string) (*model.Payment, error) {
	if _, err := uuid.Parse(reservationID); err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID format")
	}

	reservation, err := s.resRepo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", reservationID)
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}

	if reservation.Status != model.ReservationPending {
		return nil, apperrors.Conflict("Reservation is not payable in status: " + reservation.Status)
	}

	if existing, err := s.repo.FindOpenByReservation(ctx, reservationID); err == nil {
		existing.Render()
		return existing, nil
	} else if !errors.Is(err, paymentserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to check open payments", err)
	}

	tx, err := s.gateway.CreateTransaction(ctx, &gateway.CreateRequest{
		AmountMinor: reservation.TotalMinor,
		Currency:    reservation.Currency,
		OrderID:     reservationID,
		Description: "Tourist tax for " + reservation.CityCode,
	})
	if err != nil {
		s.cfg.Log.Error("Gateway transaction creation failed", "reservation_id", reservationID, "error", err)
		return nil, apperrors.Unavailable("Payment gateway")
	}

	status := gateway.MapStatus(tx.Status)
	if status == "" {
		status = model.PaymentPending
	}

	payment := &model.Payment{
		ID:                   uuid.NewString(),
		ReservationID:        reservationID,
		AmountMinor:          reservation.TotalMinor,
		Currency:             reservation.Currency,
		Status:               status,
		GatewayTransactionID: tx.ID,
		RedirectURL:          tx.RedirectURL,
		Deadline:             s.now().UTC().Add(s.cfg.PaymentDeadline).Truncate(time.Millisecond),
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		s.cfg.Log.Error("Failed to create payment", "reservation_id", reservationID, "error", err)
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	s.audit.Emit(ctx, audit.EventPaymentInitiated, payment.ID, map[string]any{
		"reservation_id":         reservationID,
		"amount_minor":           payment.AmountMinor,
		"gateway_transaction_id": tx.ID,
	})

	s.cfg.Log.Info("Payment initiated",
		"id", payment.ID,
		"reservation_id", reservationID,
		"gateway_transaction_id", tx.ID,
		"amount_minor", payment.AmountMinor,
	)

	payment.Render()
	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.InvalidInput("Invalid payment ID format")
	}

	cacheKey := paymentCachePrefix + id
	if raw, ok := s.cache.Get(ctx, cacheKey); ok {
		var cached model.Payment
		if err := json.Unmarshal(raw, &cached); err == nil {
			cached.Render()
			return &cached, nil
		}
		s.cache.Delete(ctx, cacheKey)
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Payment", id)
		}
		return nil, apperrors.Internal("Failed to retrieve payment", err)
	}

	// Short TTL: clients poll this endpoint while the payment settles.
	if raw, err := json.Marshal(payment); err == nil {
		s.cache.Set(ctx, cacheKey, raw, s.cfg.StatusCacheTTL)
	}

	payment.Render()
	return payment, nil
}

func (s *paymentService) GetByReservation(ctx context.Context, reservationID string) ([]*model.Payment, error) {
	if _, err := uuid.Parse(reservationID); err != nil {
		return nil, apperrors.InvalidInput("Invalid reservation ID format")
	}

	payments, err := s.repo.FindByReservation(ctx, reservationID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list payments", err)
	}

	for _, p := range payments {
		p.Render()
	}
	return payments, nil
}

// ApplyGatewayStatus folds a gateway transaction state into the payment.
// A completed payment also marks its reservation paid, inside one
// transaction so the two records cannot diverge.
func (s *paymentService) ApplyGatewayStatus(ctx context.Context, payment *model.Payment, tx *gateway.Transaction) error {
	target := gateway.MapStatus(tx.Status)
	if target == "" {
		s.cfg.Log.Warn("Unknown gateway status ignored", "payment_id", payment.ID, "gateway_status", tx.Status)
		return nil
	}
	if target == payment.Status {
		return nil
	}
	if !model.CanTransitionPayment(payment.Status, target) {
		return apperrors.Conflict("Cannot transition payment from status: " + payment.Status)
	}

	switch target {
	case model.PaymentCompleted:
		var reservationPaid bool
		err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			set := bson.M{}
			if tx.ReceiptURL != "" {
				set["receipt_url"] = tx.ReceiptURL
			}
			if _, err := s.repo.TransitionStatus(sessCtx, payment.ID, model.PaymentPriorStates(target), target, set); err != nil {
				return err
			}
			if _, err := s.resRepo.TransitionStatus(sessCtx, payment.ReservationID, model.ReservationPriorStates(model.ReservationPaid), model.ReservationPaid); err != nil {
				// The gateway collected the money, so the payment completes
				// even when the reservation moved on (e.g. was cancelled).
				// The mismatch is logged for reconciliation.
				if errors.Is(err, reservationserrors.ErrIllegalTransition) {
					s.cfg.Log.Warn("Settled payment for reservation no longer pending",
						"payment_id", payment.ID,
						"reservation_id", payment.ReservationID,
					)
					return nil
				}
				return err
			}
			reservationPaid = true
			return nil
		})
		if err != nil {
			if errors.Is(err, paymentserrors.ErrIllegalTransition) {
				return apperrors.Conflict("Payment settlement raced with another transition")
			}
			s.cfg.Log.Error("Failed to settle payment", "payment_id", payment.ID, "error", err)
			return apperrors.Internal("Failed to settle payment", err)
		}

		if reservationPaid {
			s.cache.Delete(ctx, "reservation:"+payment.ReservationID)
			s.audit.Emit(ctx, audit.EventReservationStatusChanged, payment.ReservationID, map[string]any{
				"status": model.ReservationPaid,
			})
		}

	case model.PaymentFailed:
		set := bson.M{"failure_reason": model.FailureReasonRejected}
		if _, err := s.repo.TransitionStatus(ctx, payment.ID, model.PaymentPriorStates(target), target, set); err != nil {
			if errors.Is(err, paymentserrors.ErrIllegalTransition) {
				return apperrors.Conflict("Payment already in a terminal state")
			}
			return apperrors.Internal("Failed to mark payment failed", err)
		}
		// The reservation stays pending so the guest can retry.

	default:
		if _, err := s.repo.TransitionStatus(ctx, payment.ID, model.PaymentPriorStates(target), target, nil); err != nil {
			if errors.Is(err, paymentserrors.ErrIllegalTransition) {
				return apperrors.Conflict("Payment already in a terminal state")
			}
			return apperrors.Internal("Failed to update payment status", err)
		}
	}

	s.cache.Delete(ctx, paymentCachePrefix+payment.ID)

	s.audit.Emit(ctx, audit.EventPaymentStatusChanged, payment.ID, map[string]any{
		"status": target,
	})

	s.cfg.Log.Info("Payment status updated", "id", payment.ID, "status", target)
	return nil
}

// Expire fails a payment whose deadline or poll budget ran out. The
// reservation stays pending so a fresh payment can be started.
func (s *paymentService) Expire(ctx context.Context, payment *model.Payment) error {
	set := bson.M{"failure_reason": model.FailureReasonExpired}
	_, err := s.repo.TransitionStatus(ctx, payment.ID, model.PaymentPriorStates(model.PaymentFailed), model.PaymentFailed, set)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrIllegalTransition) {
			return nil
		}
		return apperrors.Internal("Failed to expire payment", err)
	}

	s.cache.Delete(ctx, paymentCachePrefix+payment.ID)

	s.audit.Emit(ctx, audit.EventPaymentStatusChanged, payment.ID, map[string]any{
		"status": model.PaymentFailed,
		"reason": model.FailureReasonExpired,
	})

	s.cfg.Log.Info("Payment expired", "id", payment.ID, "reservation_id", payment.ReservationID)
	return nil
}

// HandleNotification applies a signed gateway webhook. The webhook and the
// poller are idempotent against each other via the transition guards.
func (s *paymentService) HandleNotification(ctx context.Context, notification *GatewayNotification) error {
	if notification.TransactionID == "" {
		return apperrors.InvalidInput("transaction_id is required")
	}

	payment, err := s.repo.FindByGatewayTransaction(ctx, notification.TransactionID)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Payment for gateway transaction", notification.TransactionID)
		}
		return apperrors.Internal("Failed to look up payment", err)
	}

	return s.ApplyGatewayStatus(ctx, payment, &gateway.Transaction{
		ID:         notification.TransactionID,
		Status:     notification.Status,
		ReceiptURL: notification.ReceiptURL,
	})
}
