package models

import (
	"time"

	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

const (
	BookingStatusPending    = "pending"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusCheckedIn  = "checked-in"
	BookingStatusCheckedOut = "checked-out"
	BookingStatusCancelled  = "cancelled"

	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// bookingTransitions is the allowed status graph. Cancellation is only
// reachable before check-in; checked-out and cancelled are terminal.
var bookingTransitions = map[string][]string{
	BookingStatusPending:    {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed:  {BookingStatusCheckedIn, BookingStatusCancelled},
	BookingStatusCheckedIn:  {BookingStatusCheckedOut},
	BookingStatusCheckedOut: {},
	BookingStatusCancelled:  {},
}

// CanTransitionBooking reports whether a booking may move from one status
// to another.
func CanTransitionBooking(from, to string) bool {
	next, ok := bookingTransitions[from]
	return ok && slices.Contains(next, to)
}

// BookingAmount is computed once at creation and never recalculated.
type BookingAmount struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

type BookingPayment struct {
	Method            string     `json:"method" gorm:"type:varchar(20)"` // razorpay, cash, bank-transfer
	Status            string     `json:"status" gorm:"type:varchar(20);default:pending"`
	RazorpayOrderID   string     `json:"razorpayOrderId" gorm:"index"`
	RazorpayPaymentID string     `json:"razorpayPaymentId"`
	RazorpaySignature string     `json:"razorpaySignature"`
	PaidAt            *time.Time `json:"paidAt"`
}

type Booking struct {
	gorm.Model
	UserID     uint `json:"userID" gorm:"not null;index"`
	PropertyID uint `json:"propertyID" gorm:"not null;index"`
	RoomID     uint `json:"roomID" gorm:"not null;index"`

	CheckIn         time.Time `json:"checkIn" gorm:"not null"`
	CheckOut        time.Time `json:"checkOut" gorm:"not null"`
	Guests          int       `json:"guests" gorm:"default:1"`
	SpecialRequests string    `json:"specialRequests" gorm:"type:varchar(500)"`

	Amount  BookingAmount  `json:"amount" gorm:"embedded;embeddedPrefix:amount_"`
	Payment BookingPayment `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`

	Status        string `json:"status" gorm:"type:varchar(20);default:pending;index"`
	InvoiceNumber string `json:"invoiceNumber" gorm:"uniqueIndex"`

	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
	Room     Room     `json:"room,omitempty" gorm:"foreignKey:RoomID"`
}
