package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

type createPaymentRequest struct {
	OrderID       string `json:"orderId"`
	OrderNumber   string `json:"orderNumber"`
	PaymentMethod string `json:"paymentMethod"`
}

type transactionPayload struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"orderId"`
	Amount          float64        `json:"amount"`
	PaymentMethod   string         `json:"paymentMethod"`
	GatewayOrderID  string         `json:"gatewayOrderId"`
	Status          string         `json:"status"`
	GatewayResponse map[string]any `json:"gatewayResponse,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// PaymentHandlers exposes gateway payment creation.
type PaymentHandlers struct {
	payments services.PaymentService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(payments services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{payments: payments}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createPayment)
}

func (h *PaymentHandlers) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	orderRef := req.OrderID
	if orderRef == "" {
		orderRef = req.OrderNumber
	}

	txn, err := h.payments.CreatePayment(ctx, services.CreatePaymentCommand{
		OrderRef:      orderRef,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusCreated, map[string]any{
		"transaction": buildTransactionPayload(txn),
	})
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", trimSentinel(err.Error())))
	case errors.Is(err, services.ErrPaymentNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound("payment_not_found", "payment or order not found"))
	default:
		writeTranslated(ctx, w, err)
	}
}

func buildTransactionPayload(txn domain.PaymentTransaction) transactionPayload {
	return transactionPayload{
		ID:              txn.ID,
		OrderID:         txn.OrderID,
		Amount:          txn.Amount,
		PaymentMethod:   txn.PaymentMethod,
		GatewayOrderID:  txn.GatewayOrderID,
		Status:          string(txn.Status),
		GatewayResponse: txn.GatewayResponse,
		CreatedAt:       txn.CreatedAt,
		UpdatedAt:       txn.UpdatedAt,
	}
}
