package repositories

import (
	"context"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Users() UserRepository
	PaymentTransactions() PaymentTransactionRepository
	OrderDrafts() OrderDraftRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderRepository persists order documents and provides the lookups the
// tracking and admin surfaces need.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// OrderListFilter narrows order listings; zero-value fields are ignored.
type OrderListFilter struct {
	UserID     string
	UserEmail  string
	Status     []string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

// UserRepository stores customer accounts keyed by document id with an
// email lookup for the merged register-or-login flow.
type UserRepository interface {
	Insert(ctx context.Context, account domain.UserAccount) error
	Update(ctx context.Context, account domain.UserAccount) error
	FindByID(ctx context.Context, userID string) (domain.UserAccount, error)
	FindByEmail(ctx context.Context, email string) (domain.UserAccount, error)
	AppendOrder(ctx context.Context, userID string, orderID string, now time.Time) error
}

// PaymentTransactionRepository stores gateway payment attempts.
type PaymentTransactionRepository interface {
	Insert(ctx context.Context, txn domain.PaymentTransaction) error
	Update(ctx context.Context, txn domain.PaymentTransaction) error
	FindByID(ctx context.Context, txnID string) (domain.PaymentTransaction, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (domain.PaymentTransaction, error)
}

// OrderDraftRepository stores work-in-progress orders between builder steps.
type OrderDraftRepository interface {
	Insert(ctx context.Context, draft domain.OrderDraft) error
	Update(ctx context.Context, draft domain.OrderDraft) error
	FindByID(ctx context.Context, draftID string) (domain.OrderDraft, error)
	Delete(ctx context.Context, draftID string) error
}

// CounterRepository allocates monotonically increasing sequence numbers, used
// for order-number assignment.
type CounterRepository interface {
	Next(ctx context.Context, sequenceID string) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
