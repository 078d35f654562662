package response

import (
	"time"

	"travel-booking/internal/data/entity"
)

type PaymentAttemptResponse struct {
	AttemptID         string               `json:"attempt_id"`
	BookingID         string               `json:"booking_id"`
	Gateway           string               `json:"gateway"`
	GatewayRef        string               `json:"gateway_ref"`
	CheckoutReference string               `json:"checkout_reference"`
	Amount            int64                `json:"amount"`
	Status            entity.AttemptStatus `json:"status"`
	ExpiresAt         time.Time            `json:"expires_at"`
	CreatedAt         time.Time            `json:"created_at"`
}

type PaymentStatusResponse struct {
	BookingID        string               `json:"booking_id"`
	Status           entity.BookingStatus `json:"status"`
	RemainingSeconds int                  `json:"remaining_seconds"`
}

type PollResultResponse struct {
	BookingID string `json:"booking_id"`
	Outcome   string `json:"outcome"`
}

// PollOutcomeTimeout marks a poll whose budget ran out with the status still
// unknown. Distinct from expired: the caller should check again later.
const PollOutcomeTimeout = "timeout"

// Helper converters

func AttemptToResponse(attempt *entity.PaymentAttempt) *PaymentAttemptResponse {
	return &PaymentAttemptResponse{
		AttemptID:         attempt.ID.String(),
		BookingID:         attempt.BookingID.String(),
		Gateway:           attempt.Gateway,
		GatewayRef:        attempt.GatewayRef,
		CheckoutReference: attempt.CheckoutRef,
		Amount:            attempt.Amount,
		Status:            attempt.Status,
		ExpiresAt:         attempt.ExpiresAt,
		CreatedAt:         attempt.CreatedAt,
	}
}

func PollResultToResponse(bookingID string, status entity.BookingStatus) *PollResultResponse {
	return &PollResultResponse{
		BookingID: bookingID,
		Outcome:   string(status),
	}
}
