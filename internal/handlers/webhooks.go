package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

type webhookEventRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object map[string]any `json:"object"`
	} `json:"data"`
}

// WebhookHandlers ingests gateway callbacks. Signature verification happens
// in middleware before the request reaches these handlers.
type WebhookHandlers struct {
	payments services.PaymentService
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(payments services.PaymentService) *WebhookHandlers {
	return &WebhookHandlers{payments: payments}
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/payments", h.paymentEvent)
}

func (h *WebhookHandlers) paymentEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	var event webhookEventRequest
	if err := httpx.DecodeJSON(r, &event); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	gatewayOrderID, _ := event.Data.Object["id"].(string)
	if strings.TrimSpace(gatewayOrderID) == "" {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", "event payload is missing the gateway order id"))
		return
	}

	txn, err := h.payments.ProcessWebhookEvent(ctx, services.PaymentWebhookCommand{
		GatewayOrderID: gatewayOrderID,
		EventType:      event.Type,
		Captured:       isCapturedEvent(event.Type),
		Failed:         isFailedEvent(event.Type),
		Payload:        event.Data.Object,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"received":    true,
		"transaction": buildTransactionPayload(txn),
	})
}

func isCapturedEvent(eventType string) bool {
	switch eventType {
	case "payment_intent.succeeded", "charge.succeeded":
		return true
	}
	return false
}

func isFailedEvent(eventType string) bool {
	switch eventType {
	case "payment_intent.payment_failed", "payment_intent.canceled", "charge.failed":
		return true
	}
	return false
}
