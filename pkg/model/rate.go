package model

import "time"

// CityTaxRate is the per-person per-night tourist tax for a city.
type CityTaxRate struct {
	CityCode      string    `json:"city_code" bson:"_id" validate:"required,len=3,alpha"`
	CityName      string    `json:"city_name" bson:"city_name" validate:"required,min=2,max=100"`
	RateMinor     int64     `json:"rate_minor" bson:"rate_minor" validate:"min=0"`
	Rate          string    `json:"rate,omitempty" bson:"-"`
	Currency      string    `json:"currency" bson:"currency" validate:"required,len=3"`
	EffectiveFrom time.Time `json:"effective_from,omitempty" bson:"effective_from"`
}

// Render fills the derived presentation fields.
func (r *CityTaxRate) Render() {
	r.Rate = FormatMinor(r.RateMinor)
}
