package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/services"
)

func newWebhookRouter(payments services.PaymentService) chi.Router {
	h := NewWebhookHandlers(payments)
	r := chi.NewRouter()
	r.Route("/webhooks", h.Routes)
	return r
}

func TestPaymentWebhookMapsCapturedEvent(t *testing.T) {
	var got services.PaymentWebhookCommand
	payments := &stubPaymentService{
		webhookFn: func(_ context.Context, cmd services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
			got = cmd
			return domain.PaymentTransaction{
				ID:             "pay_01",
				GatewayOrderID: cmd.GatewayOrderID,
				Status:         domain.TransactionCompleted,
			}, nil
		},
	}
	router := newWebhookRouter(payments)

	body := `{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_test_1", "amount": 27500}}
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if got.GatewayOrderID != "pi_test_1" {
		t.Fatalf("gatewayOrderId = %q", got.GatewayOrderID)
	}
	if !got.Captured || got.Failed {
		t.Fatalf("captured/failed = %v/%v", got.Captured, got.Failed)
	}
	if got.EventType != "payment_intent.succeeded" {
		t.Fatalf("eventType = %q", got.EventType)
	}
	if got.Payload["amount"] != float64(27500) {
		t.Fatalf("payload = %v", got.Payload)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["received"] != true {
		t.Fatalf("received = %v", envelope["received"])
	}
}

func TestPaymentWebhookMapsFailureEvent(t *testing.T) {
	var got services.PaymentWebhookCommand
	payments := &stubPaymentService{
		webhookFn: func(_ context.Context, cmd services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
			got = cmd
			return domain.PaymentTransaction{Status: domain.TransactionFailed}, nil
		},
	}
	router := newWebhookRouter(payments)

	body := `{"type": "payment_intent.payment_failed", "data": {"object": {"id": "pi_test_1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Captured || !got.Failed {
		t.Fatalf("captured/failed = %v/%v", got.Captured, got.Failed)
	}
}

func TestPaymentWebhookPassesUnknownEventsThrough(t *testing.T) {
	var got services.PaymentWebhookCommand
	payments := &stubPaymentService{
		webhookFn: func(_ context.Context, cmd services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
			got = cmd
			return domain.PaymentTransaction{Status: domain.TransactionPending}, nil
		},
	}
	router := newWebhookRouter(payments)

	body := `{"type": "payment_intent.created", "data": {"object": {"id": "pi_test_1"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Captured || got.Failed {
		t.Fatalf("neutral event flagged: captured=%v failed=%v", got.Captured, got.Failed)
	}
}

func TestPaymentWebhookRejectsMissingGatewayID(t *testing.T) {
	called := false
	payments := &stubPaymentService{
		webhookFn: func(context.Context, services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
			called = true
			return domain.PaymentTransaction{}, nil
		},
	}
	router := newWebhookRouter(payments)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{"type":"payment_intent.succeeded","data":{"object":{}}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Fatalf("service invoked for an event without a gateway id")
	}
}

func TestPaymentWebhookMapsUnknownTransaction(t *testing.T) {
	payments := &stubPaymentService{
		webhookFn: func(context.Context, services.PaymentWebhookCommand) (domain.PaymentTransaction, error) {
			return domain.PaymentTransaction{}, services.ErrPaymentNotFound
		},
	}
	router := newWebhookRouter(payments)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{"type":"payment_intent.succeeded","data":{"object":{"id":"pi_unknown"}}}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
