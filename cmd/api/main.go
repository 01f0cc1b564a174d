package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/fetchkids/api/internal/di"
	"github.com/fetchkids/api/internal/handlers"
	"github.com/fetchkids/api/internal/payments"
	"github.com/fetchkids/api/internal/platform/auth"
	"github.com/fetchkids/api/internal/platform/config"
	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
	"github.com/fetchkids/api/internal/platform/idempotency"
	"github.com/fetchkids/api/internal/platform/jobs"
	"github.com/fetchkids/api/internal/platform/observability"
	"github.com/fetchkids/api/internal/platform/secrets"
	platformstorage "github.com/fetchkids/api/internal/platform/storage"
	"github.com/fetchkids/api/internal/postal"
	firestoreRepo "github.com/fetchkids/api/internal/repositories/firestore"
	"github.com/fetchkids/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets("Auth.JWTSecret"),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(tokens)

	deps := di.Dependencies{
		Registry: registry,
		Tokens:   tokens,
		Logger:   logger,
	}

	if key := strings.TrimSpace(cfg.Payments.StripeAPIKey); key != "" {
		gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
			APIKey:   key,
			Currency: cfg.Payments.Currency,
			Logger:   stripeEventLogger(logger.Named("payments")),
			Clock:    time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe gateway", zap.Error(err))
		}
		deps.Gateway = gateway
	} else {
		logger.Warn("stripe api key not configured; payment endpoints disabled")
	}

	if bucket := strings.TrimSpace(cfg.Storage.MediaBucket); bucket != "" {
		storageClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
		uploader, err := platformstorage.NewUploader(storageClient, bucket, cfg.Storage.PublicBaseURL)
		if err != nil {
			logger.Fatal("failed to initialise media uploader", zap.Error(err))
		}
		deps.Store = uploader
	} else {
		logger.Warn("media bucket not configured; upload endpoints disabled")
	}

	if topicName := strings.TrimSpace(cfg.PubSub.OrderTopic); topicName != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobsPublisher(pubsubClient, topicName)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		deps.Events = publisher
	} else {
		logger.Warn("order topic not configured; lifecycle events disabled")
	}

	container, err := di.NewContainer(ctx, cfg, deps)
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}

	var idempotencyMiddleware func(http.Handler) http.Handler
	if firestoreClient, err := firestoreProvider.Client(ctx); err != nil {
		logger.Warn("idempotency disabled: firestore client unavailable", zap.Error(err))
	} else {
		store := idempotency.NewFirestoreStore(firestoreClient)
		idempotencyMiddleware = idempotency.Middleware(store,
			idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
		)
	}

	postalClient, err := postal.NewClient(cfg.Postal.BaseURL, cfg.Postal.Timeout)
	if err != nil {
		logger.Fatal("failed to initialise postal client", zap.Error(err))
	}

	router := buildRouter(logger, cfg, container, authenticator, postalClient, idempotencyMiddleware)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("fetchkids api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func buildRouter(logger *zap.Logger, cfg config.Config, container *di.Container, authenticator *auth.Authenticator, postalClient *postal.Client, idempotencyMiddleware func(http.Handler) http.Handler) http.Handler {
	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		authenticator.Authenticate,
	}

	svc := container.Services
	routes := handlers.Routes{
		Health:   handlers.NewHealthHandlers(svc.System),
		Global:   middlewares,
		Auth:     handlers.Group{Register: handlers.NewAuthHandlers(svc.Users).Routes},
		Orders:   handlers.Group{Register: handlers.NewOrderHandlers(authenticator, svc.Orders).Routes},
		Drafts:   handlers.Group{Register: handlers.NewDraftHandlers(svc.Drafts).Routes},
		Payments: handlers.Group{Register: handlers.NewPaymentHandlers(svc.Payments).Routes},
		Uploads:  handlers.Group{Register: handlers.NewUploadHandlers(svc.Uploads).Routes},
		Public:   handlers.Group{Register: handlers.NewPublicHandlers(postalClient).Routes},
		Webhooks: handlers.Group{Register: handlers.NewWebhookHandlers(svc.Payments).Routes},
	}
	if idempotencyMiddleware != nil {
		routes.Orders.Middleware = append(routes.Orders.Middleware, idempotencyMiddleware)
		routes.Payments.Middleware = append(routes.Payments.Middleware, idempotencyMiddleware)
	}
	if webhookMW := newWebhookSignatureMiddleware(logger, cfg); webhookMW != nil {
		routes.Webhooks.Middleware = append(routes.Webhooks.Middleware, webhookMW)
	}

	return handlers.NewRouter(routes)
}

func newWebhookSignatureMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	secret := strings.TrimSpace(cfg.Payments.WebhookSecret)
	if secret == "" {
		logger.Warn("webhook signing secret not configured; gateway callbacks are unverified")
		return nil
	}
	verifier, err := auth.NewWebhookVerifier(secret,
		auth.WithWebhookHeader(cfg.Payments.SignatureHeader),
	)
	if err != nil {
		logger.Fatal("failed to initialise webhook verifier", zap.Error(err))
	}
	return verifier.RequireSignature()
}

func jobsPublisher(client *pubsub.Client, topicName string) (services.OrderEventPublisher, error) {
	return jobs.NewPubSubOrderEventPublisher(client.Topic(topicName))
}

func stripeEventLogger(logger *zap.Logger) payments.StripeLogger {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		if env == nil {
			return ""
		}
		if value, ok := env[key]; ok {
			return strings.TrimSpace(value)
		}
		return ""
	}

	envLabel := strings.ToLower(lookup("API_APP_ENVIRONMENT"))
	if envLabel == "" {
		envLabel = "local"
	}
	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIRESTORE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}
	credentialsFile := lookup("API_GOOGLE_CREDENTIALS_FILE")

	opts := []secrets.Option{
		secrets.WithEnvironment(envLabel),
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}
