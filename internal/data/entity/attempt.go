package entity

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptStatusPending AttemptStatus = "pending"
	AttemptStatusPaid    AttemptStatus = "paid"
	AttemptStatusExpired AttemptStatus = "expired"
	AttemptStatusFailed  AttemptStatus = "failed"
)

// Terminal reports whether the attempt status is absorbing. Transitions out
// of a terminal status are never permitted.
func (s AttemptStatus) Terminal() bool {
	return s != AttemptStatusPending
}

// PaymentAttempt is one order issued against a payment gateway for a booking.
// A booking accumulates attempts over time; a superseded attempt may linger
// as pending until the sweeper settles it.
type PaymentAttempt struct {
	Base
	BookingID uuid.UUID `db:"booking_id"`
	// Gateway names the provider that issued the attempt.
	Gateway string `db:"gateway"`
	// GatewayRef is the gateway-visible order identifier. Unique across the
	// whole system, generated at creation, immutable.
	GatewayRef string        `db:"gateway_ref"`
	Amount     int64         `db:"amount"`
	Status     AttemptStatus `db:"status"`
	// CheckoutRef is the gateway-provided redirect/checkout reference.
	CheckoutRef string    `db:"checkout_ref"`
	ExpiresAt   time.Time `db:"expires_at"`
	// LastObservedAt is when the gateway last told us anything about this
	// attempt, via webhook or poll.
	LastObservedAt *time.Time `db:"last_observed_at"`
	// RawPayload is the last-known gateway payload, kept for audit only.
	RawPayload []byte `db:"raw_payload"`
}
