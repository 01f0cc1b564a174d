package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fetchkids/api/internal/payments"
	"github.com/fetchkids/api/internal/platform/auth"
	"github.com/fetchkids/api/internal/platform/config"
	"github.com/fetchkids/api/internal/repositories"
	"github.com/fetchkids/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders   services.OrderService
	Users    services.UserService
	Payments services.PaymentService
	Drafts   services.DraftService
	Uploads  services.UploadService
	System   services.SystemService
}

// Dependencies carries the externally constructed collaborators the container
// wires into services. Tests can substitute fakes for any of them.
type Dependencies struct {
	Registry repositories.Registry
	Tokens   *auth.TokenManager
	Gateway  payments.Gateway
	Events   services.OrderEventPublisher
	Store    services.ObjectStore
	Logger   *zap.Logger
}

// Container wires repositories, services, and supporting infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Tokens       *auth.TokenManager
	Services     Services
}

// NewContainer constructs the runtime dependencies. The payment gateway, event
// publisher, and object store are optional so local runs can start without
// credentials; the endpoints backed by a missing collaborator answer 503.
func NewContainer(_ context.Context, cfg config.Config, deps Dependencies) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token manager is required")
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Tokens:       deps.Tokens,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services
	reg := deps.Registry
	logger := eventLogger(deps.Logger)

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:          reg.Orders(),
		Users:           reg.Users(),
		Drafts:          reg.OrderDrafts(),
		Counters:        reg.Counters(),
		Clock:           time.Now,
		Events:          deps.Events,
		TrackingBaseURL: cfg.App.BaseURL,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users:  reg.Users(),
		Tokens: deps.Tokens,
		Clock:  time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	if deps.Gateway != nil {
		paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
			Orders:       reg.Orders(),
			Transactions: reg.PaymentTransactions(),
			Gateway:      deps.Gateway,
			Events:       deps.Events,
			Clock:        time.Now,
			Logger:       logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build payment service: %w", err)
		}
		svc.Payments = paymentSvc
	}

	draftSvc, err := services.NewDraftService(services.DraftServiceDeps{
		Drafts: reg.OrderDrafts(),
		Clock:  time.Now,
		TTL:    cfg.Drafts.TTL,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build draft service: %w", err)
	}
	svc.Drafts = draftSvc

	if deps.Store != nil {
		uploadSvc, err := services.NewUploadService(services.UploadServiceDeps{
			Store:    deps.Store,
			MaxBytes: cfg.Uploads.MaxBytes,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build upload service: %w", err)
		}
		svc.Uploads = uploadSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			Health: healthRepo,
			Clock:  time.Now,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func eventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if logger == nil {
		return nil
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
