package model

import "fmt"

// Money is carried as integer minor units (e.g. grosz for PLN) everywhere;
// decimal strings exist only at the JSON edge.

// FormatMinor renders minor units as a decimal amount with two places.
func FormatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// TotalMinor computes the tourist tax owed for a stay.
func TotalMinor(nights, guests int, rateMinor int64) int64 {
	return int64(nights) * int64(guests) * rateMinor
}
