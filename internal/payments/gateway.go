package payments

import (
	"context"
	"math"
	"time"
)

// Status enumerates the normalised payment states shared across gateways.
type Status string

const (
	// StatusCreated indicates the gateway order exists but no payment attempt
	// has completed yet.
	StatusCreated Status = "created"
	// StatusPending indicates the payment is awaiting customer action or
	// gateway confirmation.
	StatusPending Status = "pending"
	// StatusCaptured indicates the gateway reports the payment as captured.
	StatusCaptured Status = "captured"
	// StatusFailed indicates the gateway reports a terminal failure.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been fully refunded.
	StatusRefunded Status = "refunded"
)

// CreateOrderRequest captures the payload required to open a gateway order.
// Amount is in rupees; conversion to minor units happens inside the gateway.
type CreateOrderRequest struct {
	Amount         float64
	Currency       string
	Receipt        string
	CustomerEmail  string
	Notes          map[string]string
	IdempotencyKey string
}

// GatewayOrder represents the payment order returned to the client so it can
// complete the payment on the frontend.
type GatewayOrder struct {
	ID           string
	Amount       int64
	Currency     string
	ClientSecret string
	Status       Status
	CreatedAt    time.Time
	Raw          map[string]any
}

// RefundRequest defines a gateway refund attempt, optionally partial.
type RefundRequest struct {
	GatewayOrderID string
	Amount         *int64
	Reason         string
	IdempotencyKey string
}

// PaymentDetails normalises gateway specific fields for storage and
// reconciliation.
type PaymentDetails struct {
	GatewayOrderID string
	Status         Status
	Amount         int64
	Currency       string
	Captured       bool
	CapturedAt     *time.Time
	RefundedAt     *time.Time
	Raw            map[string]any
}

// Gateway defines the contract payment providers implement.
type Gateway interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (GatewayOrder, error)
	LookupPayment(ctx context.Context, gatewayOrderID string) (PaymentDetails, error)
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
}

// ToMinorUnits converts a rupee amount to paise, rounding to the nearest unit.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
