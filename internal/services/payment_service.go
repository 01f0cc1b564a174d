package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/payments"
	"github.com/fetchkids/api/internal/platform/jobs"
	"github.com/fetchkids/api/internal/repositories"
)

const paymentIDPrefix = "pay_"

var (
	// ErrPaymentInvalidInput signals the caller provided invalid data.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates no transaction matches the lookup.
	ErrPaymentNotFound = errors.New("payment: not found")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Orders       repositories.OrderRepository
	Transactions repositories.PaymentTransactionRepository
	Gateway      payments.Gateway
	Events       OrderEventPublisher
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders       repositories.OrderRepository
	transactions repositories.PaymentTransactionRepository
	gateway      payments.Gateway
	events       OrderEventPublisher
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Transactions == nil {
		return nil, errors.New("payment service: transaction repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment service: gateway is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		orders:       deps.Orders,
		transactions: deps.Transactions,
		gateway:      deps.Gateway,
		events:       deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreatePayment opens a gateway order for the given order and records a
// pending transaction back-linked to it.
func (s *paymentService) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (PaymentTransaction, error) {
	order, err := s.resolveOrder(ctx, cmd.OrderRef)
	if err != nil {
		return PaymentTransaction{}, err
	}
	if order.Total <= 0 {
		return PaymentTransaction{}, fmt.Errorf("%w: order total must be positive", ErrPaymentInvalidInput)
	}

	method := strings.TrimSpace(cmd.PaymentMethod)
	if method == "" {
		method = order.PaymentMethod
	}

	txnID := paymentIDPrefix + s.newID()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, payments.CreateOrderRequest{
		Amount:         order.Total,
		Receipt:        order.OrderNumber,
		CustomerEmail:  order.UserEmail,
		IdempotencyKey: txnID,
		Notes: map[string]string{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
		},
	})
	if err != nil {
		return PaymentTransaction{}, fmt.Errorf("payment: create gateway order: %w", err)
	}

	now := s.clock()
	txn := PaymentTransaction{
		ID:             txnID,
		OrderID:        order.ID,
		UserID:         order.UserID,
		Amount:         order.Total,
		PaymentMethod:  method,
		GatewayOrderID: gatewayOrder.ID,
		Status:         domain.TransactionPending,
		GatewayResponse: map[string]any{
			"clientSecret": gatewayOrder.ClientSecret,
			"currency":     gatewayOrder.Currency,
			"amount":       gatewayOrder.Amount,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.transactions.Insert(ctx, txn); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	order.PaymentTransactionID = txn.ID
	order.UpdatedAt = now
	if err := s.orders.Update(ctx, order); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	return txn, nil
}

// ProcessWebhookEvent ingests a verified gateway callback. A captured payment
// completes the transaction and moves the order to paid/confirmed; a failure
// marks the transaction failed and leaves the order untouched.
func (s *paymentService) ProcessWebhookEvent(ctx context.Context, cmd PaymentWebhookCommand) (PaymentTransaction, error) {
	gatewayOrderID := strings.TrimSpace(cmd.GatewayOrderID)
	if gatewayOrderID == "" {
		return PaymentTransaction{}, fmt.Errorf("%w: gateway order id is required", ErrPaymentInvalidInput)
	}

	txn, err := s.transactions.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	switch {
	case cmd.Captured:
		txn.Status = domain.TransactionCompleted
	case cmd.Failed:
		txn.Status = domain.TransactionFailed
	default:
		// Events the transaction state machine does not track are recorded
		// but change nothing.
		s.logger(ctx, "payment.webhook.ignored", map[string]any{
			"transaction": txn.ID,
			"eventType":   cmd.EventType,
		})
		return txn, nil
	}

	if cmd.Payload != nil {
		txn.GatewayResponse = cmd.Payload
	}
	txn.UpdatedAt = now
	if err := s.transactions.Update(ctx, txn); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	if txn.Status != domain.TransactionCompleted {
		return txn, nil
	}

	order, err := s.orders.FindByID(ctx, txn.OrderID)
	if err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	if order.Status == domain.OrderStatusPending {
		order.Status = domain.OrderStatusConfirmed
	}
	order.UpdatedAt = now
	if err := s.orders.Update(ctx, order); err != nil {
		return PaymentTransaction{}, s.mapRepositoryError(err)
	}

	if s.events != nil {
		if _, err := s.events.PublishOrderEvent(ctx, jobs.OrderEventMessage{
			EventType:   jobs.EventOrderPaid,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Status:      string(order.Status),
			Total:       order.Total,
			OccurredAt:  now,
		}); err != nil {
			s.logger(ctx, "payment.event.publish.failed", map[string]any{
				"order": order.ID,
				"error": err.Error(),
			})
		}
	}

	return txn, nil
}

func (s *paymentService) resolveOrder(ctx context.Context, orderRef string) (Order, error) {
	ref := strings.TrimSpace(orderRef)
	if ref == "" {
		return Order{}, fmt.Errorf("%w: order reference is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByOrderNumber(ctx, ref)
	if err == nil {
		return order, nil
	}
	if !isNotFound(err) {
		return Order{}, s.mapRepositoryError(err)
	}

	order, err = s.orders.FindByID(ctx, ref)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *paymentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPaymentNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("payment: repository unavailable: %w", err)
		}
	}

	return err
}
