package entity

import (
	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Terminal reports whether the booking is past awaiting payment. A booking
// in expired/failed may still originate a new attempt later, but the current
// payment cycle is over.
func (s BookingStatus) Terminal() bool {
	return s != BookingStatusPending
}

type Booking struct {
	Base
	// Amount is the total owed, in the smallest currency unit.
	Amount int64         `db:"amount"`
	Status BookingStatus `db:"status"`
	// CurrentAttemptID points at the authoritative payment attempt, if any.
	CurrentAttemptID *uuid.UUID `db:"current_attempt_id"`
	// ExternalRef mirrors the gateway order ref of the attempt that paid this
	// booking. Stamped once, on the first paid observation.
	ExternalRef *string `db:"external_ref"`
}
