package usecase

import "errors"

var (
	// ErrInvalidBookingID marks a booking identifier that is not a UUID.
	ErrInvalidBookingID = errors.New("invalid booking ID")

	// ErrBookingNotFound is wrapped into lookups against unknown bookings.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingCancelled refuses payment against a cancelled booking.
	// Cancellation is terminal by the owner's decree; unlike expired or
	// failed, it never re-enters the payment cycle.
	ErrBookingCancelled = errors.New("booking is cancelled")

	// ErrConcurrentModification means a competing payment request won the
	// race for this booking. The caller should retry once.
	ErrConcurrentModification = errors.New("booking is being modified concurrently, retry")

	// ErrNoAttemptToPoll means the booking never produced a payment attempt,
	// so there is nothing to ask the gateway about.
	ErrNoAttemptToPoll = errors.New("booking has no payment attempt to poll")

	// ErrPollTimeout means the poll budget ran out with the status still
	// unknown. Not a failure: the caller should check again later.
	ErrPollTimeout = errors.New("payment status poll budget exhausted")
)

// DeletionRefusedError is surfaced verbatim when the deletion guard rejects
// a destroy request.
type DeletionRefusedError struct {
	Reason string
}

func (e *DeletionRefusedError) Error() string {
	return "deletion refused: " + e.Reason
}
