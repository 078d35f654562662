package adaptor

import (
	"errors"
	"net/http"

	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service *usecase.Service
	log     *zap.Logger
}

func NewPaymentHandler(service *usecase.Service, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// RequestPayment handles POST /api/bookings/{id}/pay
func (h *PaymentHandler) RequestPayment(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	attempt, err := h.service.Payment.RequestPayment(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "request payment")
		return
	}

	utils.ResponseSuccess(w, "success", attempt)
}

// GetStatus handles GET /api/bookings/{id}/payment
func (h *PaymentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	status, err := h.service.Payment.GetStatus(r.Context(), bookingID)
	if err != nil {
		h.handleServiceError(w, err, "get payment status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// PollStatus handles POST /api/bookings/{id}/payment/poll. It blocks until
// the booking reaches a terminal status or the poll budget runs out.
func (h *PaymentHandler) PollStatus(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	result, err := h.service.Poller.Poll(r.Context(), bookingID)
	if errors.Is(err, usecase.ErrPollTimeout) {
		// Status genuinely unknown; not a failure, check again later.
		utils.ResponseSuccess(w, "status unknown, check later", &response.PollResultResponse{
			BookingID: bookingID,
			Outcome:   response.PollOutcomeTimeout,
		})
		return
	}
	if err != nil {
		h.handleServiceError(w, err, "poll payment status")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

// DeleteBooking handles DELETE /api/bookings/{id}
func (h *PaymentHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if bookingID == "" {
		utils.ResponseBadRequest(w, "Booking ID is required", nil)
		return
	}

	if err := h.service.Payment.DeleteBooking(r.Context(), bookingID); err != nil {
		h.handleServiceError(w, err, "delete booking")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// handleServiceError maps the service error taxonomy onto HTTP responses.
func (h *PaymentHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var refused *usecase.DeletionRefusedError

	switch {
	case errors.Is(err, usecase.ErrBookingNotFound):
		h.log.Warn(operation+" failed - booking not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.As(err, &refused):
		h.log.Warn(operation+" refused", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrBookingCancelled):
		h.log.Warn(operation+" refused - booking cancelled", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrConcurrentModification):
		h.log.Warn(operation+" lost a concurrent race", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, gateway.ErrUnavailable):
		h.log.Warn(operation+" failed - gateway unavailable", zap.Error(err))
		utils.ResponseServiceUnavailable(w, "Payment gateway is unavailable, try again")

	case errors.Is(err, gateway.ErrInvalidAmount),
		errors.Is(err, usecase.ErrNoAttemptToPoll),
		errors.Is(err, usecase.ErrInvalidBookingID):
		h.log.Warn(operation+" failed - bad input", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	default:
		h.log.Error("Failed to "+operation, zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
