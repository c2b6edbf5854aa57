package utils

import (
	"regexp"
	"testing"
	"time"
)

func TestStayNights(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
	}

	if got := StayNights(day(1), day(2)); got != 1 {
		t.Fatalf("expected 1 night, got %d", got)
	}
	if got := StayNights(day(1), day(15)); got != 14 {
		t.Fatalf("expected 14 nights, got %d", got)
	}
	// Partial days round up
	late := day(1).Add(18 * time.Hour)
	if got := StayNights(day(1), late); got != 1 {
		t.Fatalf("expected partial day to bill 1 night, got %d", got)
	}
	if got := StayNights(day(2), day(2)); got != 0 {
		t.Fatalf("expected 0 for same day, got %d", got)
	}
	if got := StayNights(day(5), day(2)); got != 0 {
		t.Fatalf("expected 0 for inverted range, got %d", got)
	}
}

func TestBookingAmountFor(t *testing.T) {
	cases := []struct {
		rate     float64
		nights   int
		subtotal float64
		tax      float64
		total    float64
	}{
		{550, 14, 7700, 924, 8624},
		{800, 15, 12000, 1440, 13440},
		{499, 1, 499, 60, 559}, // 59.88 rounds up
		{0, 3, 0, 0, 0},
	}

	for _, c := range cases {
		subtotal, tax, total := BookingAmountFor(c.rate, c.nights)
		if subtotal != c.subtotal || tax != c.tax || total != c.total {
			t.Errorf("BookingAmountFor(%v, %d) = %v/%v/%v, want %v/%v/%v",
				c.rate, c.nights, subtotal, tax, total, c.subtotal, c.tax, c.total)
		}
	}
}

func TestNewInvoiceNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^SE-[0-9A-Z]+-[0-9A-Z]{4}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		inv := NewInvoiceNumber()
		if !pattern.MatchString(inv) {
			t.Fatalf("invoice %q does not match expected format", inv)
		}
		if seen[inv] {
			t.Fatalf("duplicate invoice number %q", inv)
		}
		seen[inv] = true
	}
}

func TestNewSlug(t *testing.T) {
	slug := NewSlug("Sunrise PG & Hostel")
	if matched, _ := regexp.MatchString(`^sunrise-pg--hostel-[0-9a-z]{6}$`, slug); !matched {
		t.Fatalf("unexpected slug %q", slug)
	}

	empty := NewSlug("!!!")
	if matched, _ := regexp.MatchString(`^property-[0-9a-z]{6}$`, empty); !matched {
		t.Fatalf("unexpected fallback slug %q", empty)
	}
}
