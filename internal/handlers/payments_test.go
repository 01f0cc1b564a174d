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

func newPaymentRouter(payments services.PaymentService) chi.Router {
	h := NewPaymentHandlers(payments)
	r := chi.NewRouter()
	r.Route("/payments", h.Routes)
	return r
}

func TestCreatePaymentPrefersOrderID(t *testing.T) {
	var got services.CreatePaymentCommand
	payments := &stubPaymentService{
		createFn: func(_ context.Context, cmd services.CreatePaymentCommand) (domain.PaymentTransaction, error) {
			got = cmd
			return domain.PaymentTransaction{
				ID:             "pay_01",
				OrderID:        "ord_01",
				Amount:         275,
				GatewayOrderID: "pi_test_1",
				Status:         domain.TransactionPending,
				GatewayResponse: map[string]any{
					"clientSecret": "pi_test_1_secret",
				},
			}, nil
		},
	}
	router := newPaymentRouter(payments)

	body := `{"orderId":"ord_01","orderNumber":"FK-2026-000001","paymentMethod":"card"}`
	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if got.OrderRef != "ord_01" {
		t.Fatalf("orderRef = %q, want document id over number", got.OrderRef)
	}
	if got.PaymentMethod != "card" {
		t.Fatalf("paymentMethod = %q", got.PaymentMethod)
	}

	txn := decodeEnvelope(t, rec)["transaction"].(map[string]any)
	if txn["gatewayOrderId"] != "pi_test_1" || txn["status"] != "pending" {
		t.Fatalf("transaction payload = %v", txn)
	}
	response := txn["gatewayResponse"].(map[string]any)
	if response["clientSecret"] != "pi_test_1_secret" {
		t.Fatalf("gatewayResponse = %v", response)
	}
}

func TestCreatePaymentFallsBackToOrderNumber(t *testing.T) {
	var got services.CreatePaymentCommand
	payments := &stubPaymentService{
		createFn: func(_ context.Context, cmd services.CreatePaymentCommand) (domain.PaymentTransaction, error) {
			got = cmd
			return domain.PaymentTransaction{ID: "pay_01"}, nil
		},
	}
	router := newPaymentRouter(payments)

	req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"orderNumber":"FK-2026-000001"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if got.OrderRef != "FK-2026-000001" {
		t.Fatalf("orderRef = %q", got.OrderRef)
	}
}

func TestCreatePaymentMapsServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid input", err: services.ErrPaymentInvalidInput, wantStatus: http.StatusBadRequest, wantCode: "invalid_request"},
		{name: "unknown order", err: services.ErrPaymentNotFound, wantStatus: http.StatusNotFound, wantCode: "payment_not_found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payments := &stubPaymentService{
				createFn: func(context.Context, services.CreatePaymentCommand) (domain.PaymentTransaction, error) {
					return domain.PaymentTransaction{}, tc.err
				},
			}
			router := newPaymentRouter(payments)

			req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"orderId":"ord_01"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if envelope := decodeEnvelope(t, rec); envelope["error"] != tc.wantCode {
				t.Fatalf("error code = %v", envelope["error"])
			}
		})
	}
}
