package wire

import (
	"travel-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, handler *adaptor.Handler) {
	// ==================== BOOKING PAYMENT ROUTES ====================
	r.Route("/api/bookings/{id}", func(r chi.Router) {
		// POST /api/bookings/{id}/pay - start or resume paying a booking
		r.Post("/pay", handler.Payment.RequestPayment)

		// GET /api/bookings/{id}/payment - authoritative status + countdown
		r.Get("/payment", handler.Payment.GetStatus)

		// POST /api/bookings/{id}/payment/poll - gateway poll fallback when
		// no webhook channel exists
		r.Post("/payment/poll", handler.Payment.PollStatus)

		// DELETE /api/bookings/{id} - destroy, if the deletion guard allows
		r.Delete("/", handler.Payment.DeleteBooking)
	})

	// ==================== GATEWAY NOTIFICATIONS ====================
	// POST /api/payments/notifications/{gateway} - provider webhook intake.
	// Authenticity checks live in the collaborator fronting this route.
	r.Post("/api/payments/notifications/{gateway}", handler.Webhook.HandleNotification)
}
