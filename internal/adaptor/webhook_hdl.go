package adaptor

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"travel-booking/internal/dto/request"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// WebhookHandler is the thin intake for provider status notifications. The
// collaborator in front of us already checked payload authenticity; our job
// is only to translate the provider shape into a status observation.
type WebhookHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.PaymentService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// HandleNotification handles POST /api/payments/notifications/{gateway}.
// Unknown references and no-op statuses still answer 200: providers redeliver
// on anything else, and the observation path is idempotent anyway.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.ResponseBadRequest(w, "Unreadable request body", nil)
		return
	}

	var orderRef, status string
	switch gatewayName {
	case gateway.Midtrans:
		var n request.MidtransNotification
		if err := json.Unmarshal(body, &n); err != nil {
			h.log.Warn("Malformed midtrans notification", zap.Error(err))
			utils.ResponseBadRequest(w, "Invalid notification body", nil)
			return
		}
		if errs := utils.ValidateStruct(n); len(errs) > 0 {
			h.log.Warn("Incomplete midtrans notification",
				zap.String("errors", utils.FormatValidationErrors(errs)),
			)
			utils.ResponseBadRequest(w, "Invalid notification body", errs)
			return
		}
		orderRef, status = n.OrderID, n.TransactionStatus

	case gateway.Xendit:
		var n request.XenditNotification
		if err := json.Unmarshal(body, &n); err != nil {
			h.log.Warn("Malformed xendit notification", zap.Error(err))
			utils.ResponseBadRequest(w, "Invalid notification body", nil)
			return
		}
		if errs := utils.ValidateStruct(n); len(errs) > 0 {
			h.log.Warn("Incomplete xendit notification",
				zap.String("errors", utils.FormatValidationErrors(errs)),
			)
			utils.ResponseBadRequest(w, "Invalid notification body", errs)
			return
		}
		orderRef, status = n.ExternalID, n.Status

	default:
		utils.ResponseNotFound(w, "Unknown payment gateway")
		return
	}

	if err := h.service.ObserveStatus(r.Context(), orderRef, status, body, time.Now()); err != nil {
		// Infrastructure trouble; let the provider redeliver.
		h.log.Error("Failed to process gateway notification",
			zap.Error(err),
			zap.String("gateway", gatewayName),
			zap.String("order_ref", orderRef),
		)
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
