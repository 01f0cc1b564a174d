package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v78"
)

type fakeIntentAPI struct {
	newFn func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getFn func(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

func (f *fakeIntentAPI) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return f.newFn(params)
}

func (f *fakeIntentAPI) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return f.getFn(id, params)
}

type fakeRefundAPI struct {
	newFn func(params *stripe.RefundParams) (*stripe.Refund, error)
}

func (f *fakeRefundAPI) New(params *stripe.RefundParams) (*stripe.Refund, error) {
	return f.newFn(params)
}

func newTestGateway(t *testing.T, intents stripePaymentIntentAPI, refunds stripeRefundAPI) *StripeGateway {
	t.Helper()
	gateway, err := NewStripeGateway(StripeGatewayConfig{
		Currency: "INR",
		Clock:    func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
		Clients:  &stripeClients{intents: intents, refunds: refunds},
	})
	if err != nil {
		t.Fatalf("NewStripeGateway: %v", err)
	}
	return gateway
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{amount: 1499, want: 149900},
		{amount: 499.99, want: 49999},
		{amount: 0.005, want: 1},
		{amount: 0, want: 0},
	}
	for _, tc := range cases {
		if got := ToMinorUnits(tc.amount); got != tc.want {
			t.Errorf("ToMinorUnits(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestCreateOrderConvertsToPaise(t *testing.T) {
	var captured *stripe.PaymentIntentParams
	intents := &fakeIntentAPI{
		newFn: func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			captured = params
			return &stripe.PaymentIntent{
				ID:           "pi_test",
				Amount:       *params.Amount,
				Currency:     stripe.Currency(*params.Currency),
				ClientSecret: "pi_test_secret",
				Status:       stripe.PaymentIntentStatusRequiresPaymentMethod,
				Created:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC).Unix(),
			}, nil
		},
	}
	gateway := newTestGateway(t, intents, &fakeRefundAPI{})

	order, err := gateway.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:  1499.50,
		Receipt: "FK-2026-000042",
		Notes:   map[string]string{"orderId": "ord_01HTEST"},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if captured == nil {
		t.Fatal("expected intent params to be captured")
	}
	if *captured.Amount != 149950 {
		t.Errorf("expected amount 149950 paise, got %d", *captured.Amount)
	}
	if *captured.Currency != "inr" {
		t.Errorf("expected currency inr, got %q", *captured.Currency)
	}
	if captured.Metadata["receipt"] != "FK-2026-000042" {
		t.Errorf("expected receipt metadata, got %v", captured.Metadata)
	}
	if captured.Metadata["orderId"] != "ord_01HTEST" {
		t.Errorf("expected order note metadata, got %v", captured.Metadata)
	}

	if order.ID != "pi_test" {
		t.Errorf("unexpected order id %q", order.ID)
	}
	if order.ClientSecret != "pi_test_secret" {
		t.Errorf("expected client secret to pass through, got %q", order.ClientSecret)
	}
	if order.Status != StatusCreated {
		t.Errorf("expected created status, got %q", order.Status)
	}
	if order.Currency != "INR" {
		t.Errorf("expected INR, got %q", order.Currency)
	}
}

func TestCreateOrderRejectsNonPositiveAmount(t *testing.T) {
	gateway := newTestGateway(t, &fakeIntentAPI{}, &fakeRefundAPI{})
	if _, err := gateway.CreateOrder(context.Background(), CreateOrderRequest{Amount: 0}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestLookupPaymentCaptured(t *testing.T) {
	capturedAt := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	intents := &fakeIntentAPI{
		getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:       id,
				Amount:   149900,
				Currency: stripe.CurrencyINR,
				Status:   stripe.PaymentIntentStatusSucceeded,
				LatestCharge: &stripe.Charge{
					Paid:     true,
					Captured: true,
					Amount:   149900,
					Created:  capturedAt.Unix(),
				},
			}, nil
		},
	}
	gateway := newTestGateway(t, intents, &fakeRefundAPI{})

	details, err := gateway.LookupPayment(context.Background(), "pi_test")
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if details.Status != StatusCaptured {
		t.Errorf("expected captured status, got %q", details.Status)
	}
	if !details.Captured {
		t.Error("expected captured flag")
	}
	if details.CapturedAt == nil || !details.CapturedAt.Equal(capturedAt) {
		t.Errorf("unexpected capturedAt %v", details.CapturedAt)
	}
}

func TestLookupPaymentFullyRefunded(t *testing.T) {
	intents := &fakeIntentAPI{
		getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:       id,
				Amount:   149900,
				Currency: stripe.CurrencyINR,
				Status:   stripe.PaymentIntentStatusSucceeded,
				LatestCharge: &stripe.Charge{
					Paid:           true,
					Captured:       true,
					Refunded:       true,
					Amount:         149900,
					AmountRefunded: 149900,
					Created:        time.Now().Unix(),
				},
			}, nil
		},
	}
	gateway := newTestGateway(t, intents, &fakeRefundAPI{})

	details, err := gateway.LookupPayment(context.Background(), "pi_test")
	if err != nil {
		t.Fatalf("LookupPayment: %v", err)
	}
	if details.Status != StatusRefunded {
		t.Errorf("expected refunded status, got %q", details.Status)
	}
}

func TestRefundDelegatesToLookup(t *testing.T) {
	refunded := false
	refunds := &fakeRefundAPI{
		newFn: func(params *stripe.RefundParams) (*stripe.Refund, error) {
			refunded = true
			if *params.PaymentIntent != "pi_test" {
				t.Errorf("unexpected intent %q", *params.PaymentIntent)
			}
			return &stripe.Refund{ID: "re_test"}, nil
		},
	}
	intents := &fakeIntentAPI{
		getFn: func(id string, _ *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{ID: id, Status: stripe.PaymentIntentStatusSucceeded}, nil
		},
	}
	gateway := newTestGateway(t, intents, refunds)

	if _, err := gateway.Refund(context.Background(), RefundRequest{GatewayOrderID: "pi_test"}); err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if !refunded {
		t.Error("expected refund API call")
	}
}

func TestCreateOrderPropagatesError(t *testing.T) {
	intents := &fakeIntentAPI{
		newFn: func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
			return nil, errors.New("stripe unavailable")
		},
	}
	gateway := newTestGateway(t, intents, &fakeRefundAPI{})

	if _, err := gateway.CreateOrder(context.Background(), CreateOrderRequest{Amount: 100}); err == nil {
		t.Fatal("expected error to propagate")
	}
}
