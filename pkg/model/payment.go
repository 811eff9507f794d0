package model

import "time"

const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
)

const (
	FailureReasonExpired  = "expired"
	FailureReasonRejected = "rejected"
)

// paymentTransitions lists the legal next states per current state.
// Completed and failed are terminal and never overwritten.
var paymentTransitions = map[string][]string{
	PaymentPending:    {PaymentProcessing, PaymentCompleted, PaymentFailed},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
}

func CanTransitionPayment(from, to string) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentPriorStates returns the states a payment may be in for a
// transition into target to be legal.
func PaymentPriorStates(target string) []string {
	var priors []string
	for from, nexts := range paymentTransitions {
		for _, next := range nexts {
			if next == target {
				priors = append(priors, from)
			}
		}
	}
	return priors
}

// PaymentOpen reports whether a payment is still waiting on the gateway.
func PaymentOpen(status string) bool {
	return status == PaymentPending || status == PaymentProcessing
}

type Payment struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	ReservationID        string    `json:"reservation_id" bson:"reservation_id" validate:"required,uuid4"`
	AmountMinor          int64     `json:"amount_minor" bson:"amount_minor" validate:"min=0"`
	Amount               string    `json:"amount,omitempty" bson:"-"`
	Currency             string    `json:"currency" bson:"currency" validate:"omitempty,len=3"`
	Status               string    `json:"status" bson:"status" validate:"omitempty,oneof=pending processing completed failed"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty" bson:"gateway_transaction_id,omitempty"`
	RedirectURL          string    `json:"redirect_url,omitempty" bson:"redirect_url,omitempty"`
	ReceiptURL           string    `json:"receipt_url,omitempty" bson:"receipt_url,omitempty"`
	FailureReason        string    `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	Attempts             int       `json:"attempts" bson:"attempts"`
	Deadline             time.Time `json:"deadline,omitempty" bson:"deadline"`
	CreatedAt            time.Time `json:"created_at,omitempty" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at,omitempty" bson:"updated_at"`
}

// Render fills the derived presentation fields.
func (p *Payment) Render() {
	p.Amount = FormatMinor(p.AmountMinor)
}

type PaymentRequest struct {
	ReservationID string `json:"reservation_id" validate:"required,uuid4"`
}
