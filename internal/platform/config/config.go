package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile             = ".env"
	defaultPort                = "8080"
	defaultReadTimeout         = 15 * time.Second
	defaultWriteTimeout        = 30 * time.Second
	defaultIdleTimeout         = 120 * time.Second
	defaultEnvironment         = "local"
	defaultCurrency            = "INR"
	defaultTokenTTL            = 7 * 24 * time.Hour
	defaultSignatureHeader     = "X-Webhook-Signature"
	defaultPostalBaseURL       = "https://api.postalpincode.in"
	defaultPostalTimeout       = 5 * time.Second
	defaultDraftTTL            = 7 * 24 * time.Hour
	defaultUploadMaxBytes      = 10 << 20
	defaultRateLimitDefault    = 120
	defaultRateLimitAuthPerMin = 30
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	App        AppConfig
	Firestore  FirestoreConfig
	Storage    StorageConfig
	Auth       AuthConfig
	Payments   PaymentsConfig
	PubSub     PubSubConfig
	Postal     PostalConfig
	Drafts     DraftConfig
	Uploads    UploadConfig
	RateLimits RateLimitConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// AppConfig holds application-level settings shared across components.
type AppConfig struct {
	Environment string
	// BaseURL is the public storefront origin used to build order tracking
	// links embedded in QR codes.
	BaseURL string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig names the bucket backing customer media uploads.
type StorageConfig struct {
	MediaBucket string
	// PublicBaseURL prefixes served object URLs; defaults to the GCS public host.
	PublicBaseURL string
}

// AuthConfig groups account and session settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PaymentsConfig collects gateway credentials and webhook expectations.
type PaymentsConfig struct {
	StripeAPIKey    string
	WebhookSecret   string
	SignatureHeader string
	Currency        string
}

// PubSubConfig names the topic order lifecycle events are published to.
type PubSubConfig struct {
	ProjectID  string
	OrderTopic string
}

// PostalConfig points at the postal-code lookup service.
type PostalConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DraftConfig controls order draft retention.
type DraftConfig struct {
	TTL time.Duration
}

// UploadConfig bounds customer media uploads.
type UploadConfig struct {
	MaxBytes int64
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute int
	AuthPerMinute    int
}

// SecretResolver resolves secret:// references, typically against Secret Manager.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// SecretError describes a failed secret reference resolution.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError reports required secrets that resolved to empty values.
// Error output and RedactedNames show hashed identifiers so logs never leak
// which credential is absent.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	if e == nil || len(e.names) == 0 {
		return "missing required secrets"
	}
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// RedactedNames returns hashed identifiers of the missing secrets.
func (e *MissingSecretsError) RedactedNames() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.names))
	for _, name := range e.names {
		sum := sha256.Sum256([]byte(name))
		out = append(out, hex.EncodeToString(sum[:8]))
	}
	sort.Strings(out)
	return out
}

// Names returns the plain identifiers of the missing secrets.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects explicit key/value overrides. Map values take precedence
// over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores os.Getenv, reading only provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// WithRequiredSecrets marks secret identifiers as mandatory. Identifiers match
// the config field paths recorded by the loader, e.g. "Auth.JWTSecret".
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) { o.requiredSecrets = append(o.requiredSecrets, names...) }
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// source answers environment lookups with the precedence explicit map > OS
// environment > .env file.
type source struct {
	envMap       map[string]string
	useSystemEnv bool
	dotEnv       map[string]string
}

func newSource(options loaderOptions) (source, error) {
	dotEnv, err := loadDotEnv(options.envFile)
	if err != nil {
		return source{}, err
	}
	return source{
		envMap:       options.envMap,
		useSystemEnv: options.useSystemEnv,
		dotEnv:       dotEnv,
	}, nil
}

func (s source) lookup(key string) (string, bool) {
	if value, ok := s.envMap[key]; ok {
		return value, true
	}
	if s.useSystemEnv {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
	}
	if value, ok := s.dotEnv[key]; ok {
		return value, true
	}
	return "", false
}

func (s source) str(key, fallback string) string {
	if value, ok := s.lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	if value, ok := s.lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (s source) integer(key string, fallback int) int {
	if value, ok := s.lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// EnvironmentValues returns the effective key/value map after applying the
// same precedence as Load. Callers use it to initialise dependencies, such as
// the secret fetcher, before invoking Load itself.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	src, err := newSource(newLoaderOptions(opts))
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for key, value := range src.dotEnv {
		values[key] = value
	}
	if src.useSystemEnv {
		for _, entry := range os.Environ() {
			if key, value, ok := strings.Cut(entry, "="); ok && strings.TrimSpace(key) != "" {
				values[strings.TrimSpace(key)] = value
			}
		}
	}
	for key, value := range src.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles the application configuration from defaults, .env overrides,
// environment variables, and secret references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)
	src, err := newSource(options)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         src.str("API_SERVER_PORT", defaultPort),
			ReadTimeout:  src.duration("API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: src.duration("API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  src.duration("API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		App: AppConfig{
			Environment: strings.ToLower(src.str("API_APP_ENVIRONMENT", defaultEnvironment)),
			BaseURL:     src.str("API_APP_BASE_URL", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    src.str("API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: src.str("API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			MediaBucket:   src.str("API_STORAGE_MEDIA_BUCKET", ""),
			PublicBaseURL: src.str("API_STORAGE_PUBLIC_BASE_URL", "https://storage.googleapis.com"),
		},
		Auth: AuthConfig{
			JWTSecret: src.str("API_AUTH_JWT_SECRET", ""),
			TokenTTL:  src.duration("API_AUTH_TOKEN_TTL", defaultTokenTTL),
		},
		Payments: PaymentsConfig{
			StripeAPIKey:    src.str("API_PAYMENTS_STRIPE_API_KEY", ""),
			WebhookSecret:   src.str("API_PAYMENTS_WEBHOOK_SECRET", ""),
			SignatureHeader: src.str("API_PAYMENTS_SIGNATURE_HEADER", defaultSignatureHeader),
			Currency:        strings.ToUpper(src.str("API_PAYMENTS_CURRENCY", defaultCurrency)),
		},
		PubSub: PubSubConfig{
			ProjectID:  src.str("API_PUBSUB_PROJECT_ID", ""),
			OrderTopic: src.str("API_PUBSUB_ORDER_TOPIC", ""),
		},
		Postal: PostalConfig{
			BaseURL: src.str("API_POSTAL_BASE_URL", defaultPostalBaseURL),
			Timeout: src.duration("API_POSTAL_TIMEOUT", defaultPostalTimeout),
		},
		Drafts: DraftConfig{
			TTL: src.duration("API_DRAFT_TTL", defaultDraftTTL),
		},
		Uploads: UploadConfig{
			MaxBytes: int64(src.integer("API_UPLOAD_MAX_BYTES", defaultUploadMaxBytes)),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute: src.integer("API_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
			AuthPerMinute:    src.integer("API_RATELIMIT_AUTH_PER_MIN", defaultRateLimitAuthPerMin),
		},
	}

	// PubSub project defaults to the Firestore project when unspecified.
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Auth.JWTSecret", &cfg.Auth.JWTSecret},
		{"Payments.StripeAPIKey", &cfg.Payments.StripeAPIKey},
		{"Payments.WebhookSecret", &cfg.Payments.WebhookSecret},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "secret://") && !strings.HasPrefix(trimmed, "sm://") {
		return value, nil
	}
	if after, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		trimmed = "secret://" + after
	}
	if resolver == nil {
		return "", &SecretError{Ref: trimmed, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, trimmed)
	if err != nil {
		return "", &SecretError{Ref: trimmed, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.App.BaseURL == "" {
		missing = append(missing, "App.BaseURL")
	}
	if cfg.Firestore.ProjectID == "" {
		missing = append(missing, "Firestore.ProjectID")
	}
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "Auth.JWTSecret")
	}
	if cfg.Auth.TokenTTL <= 0 {
		missing = append(missing, "Auth.TokenTTL")
	}
	if cfg.Uploads.MaxBytes <= 0 {
		missing = append(missing, "Uploads.MaxBytes")
	}
	if cfg.Drafts.TTL <= 0 {
		missing = append(missing, "Drafts.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	var names []string
	seen := make(map[string]struct{})
	for _, name := range required {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		if resolved[trimmed] == "" {
			names = append(names, trimmed)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return &MissingSecretsError{names: names}
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", path, err)
	}
	return values, nil
}
