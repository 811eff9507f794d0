package model

import (
	"time"
)

const (
	ReservationPending   = "pending"
	ReservationPaid      = "paid"
	ReservationFailed    = "failed"
	ReservationCancelled = "cancelled"
)

// reservationTransitions lists the legal next states per current state.
// Terminal states have no successors; transitions never reverse.
var reservationTransitions = map[string][]string{
	ReservationPending: {ReservationPaid, ReservationFailed, ReservationCancelled},
}

func CanTransitionReservation(from, to string) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReservationPriorStates returns the states a reservation may be in for a
// transition into target to be legal.
func ReservationPriorStates(target string) []string {
	var priors []string
	for from, nexts := range reservationTransitions {
		for _, next := range nexts {
			if next == target {
				priors = append(priors, from)
			}
		}
	}
	return priors
}

type Reservation struct {
	ID                   string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	CityCode             string    `json:"city_code" bson:"city_code" validate:"required,len=3,alpha"`
	GuestName            string    `json:"guest_name" bson:"guest_name" validate:"required,min=2,max=100"`
	GuestEmail           string    `json:"guest_email" bson:"guest_email" validate:"required,email"`
	AccommodationName    string    `json:"accommodation_name" bson:"accommodation_name" validate:"required,min=2,max=100"`
	AccommodationAddress string    `json:"accommodation_address" bson:"accommodation_address" validate:"required,min=5,max=200"`
	CheckIn              time.Time `json:"check_in" bson:"check_in" validate:"required"`
	CheckOut             time.Time `json:"check_out" bson:"check_out" validate:"required,gtfield=CheckIn"`
	GuestCount           int       `json:"guest_count" bson:"guest_count" validate:"required,min=1,max=20"`
	RateMinor            int64     `json:"rate_minor" bson:"rate_minor" validate:"min=0"`
	TotalMinor           int64     `json:"total_minor" bson:"total_minor" validate:"min=0"`
	TotalAmount          string    `json:"total_amount,omitempty" bson:"-"`
	Currency             string    `json:"currency" bson:"currency" validate:"omitempty,len=3"`
	Status               string    `json:"status" bson:"status" validate:"omitempty,oneof=pending paid failed cancelled"`
	CreatedAt            time.Time `json:"created_at,omitempty" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at,omitempty" bson:"updated_at"`
}

// Nights counts whole nights between check-in and check-out, comparing
// calendar days in UTC so arrival and departure times do not matter.
func (r *Reservation) Nights() int {
	in := r.CheckIn.UTC().Truncate(24 * time.Hour)
	out := r.CheckOut.UTC().Truncate(24 * time.Hour)
	return int(out.Sub(in) / (24 * time.Hour))
}

// Render fills the derived presentation fields.
func (r *Reservation) Render() {
	r.TotalAmount = FormatMinor(r.TotalMinor)
}

type ReservationUpdate struct {
	GuestName            *string    `json:"guest_name,omitempty" validate:"omitempty,min=2,max=100"`
	GuestEmail           *string    `json:"guest_email,omitempty" validate:"omitempty,email"`
	AccommodationName    *string    `json:"accommodation_name,omitempty" validate:"omitempty,min=2,max=100"`
	AccommodationAddress *string    `json:"accommodation_address,omitempty" validate:"omitempty,min=5,max=200"`
	CheckIn              *time.Time `json:"check_in,omitempty"`
	CheckOut             *time.Time `json:"check_out,omitempty"`
	GuestCount           *int       `json:"guest_count,omitempty" validate:"omitempty,min=1,max=20"`
}

type ReservationStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=paid failed cancelled"`
}
