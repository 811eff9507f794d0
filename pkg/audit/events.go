package audit

import "time"

const (
	EventReservationCreated       = "reservation.created"
	EventReservationStatusChanged = "reservation.status_changed"
	EventPaymentInitiated         = "payment.initiated"
	EventPaymentStatusChanged     = "payment.status_changed"
)

// Event is the envelope written to the audit stream. Subject carries the
// entity ID and doubles as the partition key so events for one entity
// stay ordered.
type Event struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Subject string         `json:"subject"`
	At      time.Time      `json:"at"`
	Data    map[string]any `json:"data,omitempty"`
}
