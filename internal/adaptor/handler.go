package adaptor

import (
	"travel-booking/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Payment *PaymentHandler
	Webhook *WebhookHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Payment: NewPaymentHandler(service, log),
		Webhook: NewWebhookHandler(service.Payment, log),
	}
}
