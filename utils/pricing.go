package utils

import (
	"math"
	"time"
)

// GSTRate is the flat tax applied to every booking subtotal.
const GSTRate = 0.12

// StayNights returns the billable nights between check-in and check-out,
// the ceiling of the elapsed time in days. Zero or negative ranges return 0.
func StayNights(checkIn, checkOut time.Time) int {
	diff := checkOut.Sub(checkIn)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// BookingAmountFor computes the frozen amount for a stay.
// Tax is rounded half away from zero (math.Round), matching invoiced totals.
func BookingAmountFor(dailyRate float64, nights int) (subtotal, tax, total float64) {
	subtotal = dailyRate * float64(nights)
	tax = math.Round(subtotal * GSTRate)
	total = subtotal + tax
	return subtotal, tax, total
}
