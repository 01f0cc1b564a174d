package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
	"github.com/fetchkids/api/internal/repositories"
)

// errNotFound is wrapped by WrapError into a repository not-found error for
// query-based lookups that return no documents.
var errNotFound = status.Error(codes.NotFound, "document not found")

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	orders   *OrderRepository
	users    *UserRepository
	payments *PaymentTransactionRepository
	drafts   *OrderDraftRepository
	counters *CounterRepository
	health   repositories.HealthRepository
}

// NewRegistry constructs the repository registry over a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentTransactionRepository(provider)
	if err != nil {
		return nil, err
	}
	drafts, err := NewOrderDraftRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{
			Name: "firestore",
			Check: func(ctx context.Context) error {
				client, err := provider.Client(ctx)
				if err != nil {
					return err
				}
				// Listing a single collection keeps the probe cheap.
				if _, err := client.Collections(ctx).Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		orders:   orders,
		users:    users,
		payments: payments,
		drafts:   drafts,
		counters: counters,
		health:   health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

// Users returns the user repository.
func (r *Registry) Users() repositories.UserRepository { return r.users }

// PaymentTransactions returns the payment transaction repository.
func (r *Registry) PaymentTransactions() repositories.PaymentTransactionRepository {
	return r.payments
}

// OrderDrafts returns the order draft repository.
func (r *Registry) OrderDrafts() repositories.OrderDraftRepository { return r.drafts }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

// Health returns the dependency health repository.
func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
