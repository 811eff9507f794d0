package poller

import (
	"context"
	"time"

	"staytax/internal/payments/gateway"
	"staytax/pkg/config"
	"staytax/pkg/model"
)

// OpenPaymentSource lists payments still waiting on the gateway and tracks
// how often each has been polled.
type OpenPaymentSource interface {
	FindOpen(ctx context.Context, limit int) ([]*model.Payment, error)
	IncrementAttempts(ctx context.Context, id string) error
}

// StatusApplier folds gateway state into a payment or gives up on it.
type StatusApplier interface {
	ApplyGatewayStatus(ctx context.Context, payment *model.Payment, tx *gateway.Transaction) error
	Expire(ctx context.Context, payment *model.Payment) error
}

// Poller drives open payments to a terminal state by asking the gateway
// for their transaction status on a fixed interval. Payments that blow
// their absolute deadline or poll budget are expired.
type Poller struct {
	source  OpenPaymentSource
	applier StatusApplier
	gateway gateway.Client
	cfg     *config.Config
	now     func() time.Time
}

func New(source OpenPaymentSource, applier StatusApplier, gatewayClient gateway.Client, cfg *config.Config) *Poller {
	return &Poller{
		source:  source,
		applier: applier,
		gateway: gatewayClient,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.cfg.Log.Info("Payment poller started",
		"interval", p.cfg.PollInterval,
		"batch_size", p.cfg.PollBatchSize,
		"max_attempts", p.cfg.PollMaxAttempts,
	)

	for {
		select {
		case <-ticker.C:
			p.sweep(ctx)
		case <-ctx.Done():
			p.cfg.Log.Info("Payment poller stopped")
			return
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	payments, err := p.source.FindOpen(ctx, p.cfg.PollBatchSize)
	if err != nil {
		p.cfg.Log.Error("Failed to list open payments", "error", err)
		return
	}

	for _, payment := range payments {
		p.pollOne(ctx, payment)
	}
}

func (p *Poller) pollOne(ctx context.Context, payment *model.Payment) {
	if p.exhausted(payment) {
		if err := p.applier.Expire(ctx, payment); err != nil {
			p.cfg.Log.Error("Failed to expire payment", "id", payment.ID, "error", err)
		}
		return
	}

	if err := p.source.IncrementAttempts(ctx, payment.ID); err != nil {
		p.cfg.Log.Warn("Failed to record poll attempt", "id", payment.ID, "error", err)
	}

	tx, err := p.gateway.GetTransaction(ctx, payment.GatewayTransactionID)
	if err != nil {
		// Gateway hiccups cost an attempt; the next sweep retries.
		p.cfg.Log.Warn("Gateway status check failed",
			"id", payment.ID,
			"gateway_transaction_id", payment.GatewayTransactionID,
			"attempts", payment.Attempts+1,
			"error", err,
		)
		return
	}

	if err := p.applier.ApplyGatewayStatus(ctx, payment, tx); err != nil {
		p.cfg.Log.Error("Failed to apply gateway status", "id", payment.ID, "error", err)
	}
}

func (p *Poller) exhausted(payment *model.Payment) bool {
	if !payment.Deadline.IsZero() && p.now().After(payment.Deadline) {
		return true
	}
	return payment.Attempts >= p.cfg.PollMaxAttempts
}
