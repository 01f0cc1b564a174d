package secrets

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	refScheme           = "secret://"
	altRefScheme        = "sm://"
	defaultVersion      = "latest"
	defaultFallbackFile = ".secrets.local"
)

// secretClient is the slice of the Secret Manager client the fetcher needs.
type secretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var newSecretManagerClient = func(ctx context.Context, opts ...option.ClientOption) (*secretmanager.Client, error) {
	return secretmanager.NewClient(ctx, opts...)
}

// Fetcher resolves secret:// references against Google Secret Manager,
// caching resolved values for the process lifetime and falling back to a
// local key=value file when the manager is unreachable or denies access.
type Fetcher struct {
	client     secretClient
	ownsClient bool
	logger     *zap.Logger
	env        string
	project    string
	clientOpts []option.ClientOption

	fallbackPath string
	loadFallback sync.Once
	fallback     map[string]string
	fallbackErr  error

	mu    sync.RWMutex
	cache map[string]string

	lookups        metric.Int64Counter
	lookupsEnabled bool
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithEnvironment labels lookups with the deployment environment.
func WithEnvironment(env string) Option {
	return func(f *Fetcher) {
		f.env = strings.ToLower(strings.TrimSpace(env))
	}
}

// WithDefaultProject sets the GCP project that hosts the secrets.
func WithDefaultProject(projectID string) Option {
	return func(f *Fetcher) {
		f.project = strings.TrimSpace(projectID)
	}
}

// WithFallbackFile overrides the local fallback secrets file path.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) {
		f.fallbackPath = strings.TrimSpace(path)
	}
}

// WithClientOptions is consumed at construction when dialing Secret Manager.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(f *Fetcher) {
		f.clientOpts = append(f.clientOpts, opts...)
	}
}

// WithSecretManagerClient injects a prebuilt client, primarily for tests.
func WithSecretManagerClient(client secretClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher builds a Fetcher. A failed Secret Manager dial is not fatal;
// the fetcher then serves only the fallback file.
func NewFetcher(ctx context.Context, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackFile,
		cache:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	meter := otel.GetMeterProvider().Meter("github.com/fetchkids/api/internal/platform/secrets")
	lookups, err := meter.Int64Counter(
		"secrets.lookups",
		metric.WithDescription("Secret resolutions by source"),
	)
	if err != nil {
		f.logger.Warn("secrets: lookup metric unavailable", zap.Error(err))
	} else {
		f.lookups = lookups
		f.lookupsEnabled = true
	}

	if f.client == nil {
		client, err := newSecretManagerClient(ctx, f.clientOpts...)
		if err != nil {
			f.logger.Warn("secrets: secret manager unreachable, using fallback file only", zap.Error(err))
		} else {
			f.client = client
			f.ownsClient = true
		}
	}

	return f, nil
}

// Close releases the Secret Manager client when the fetcher owns it.
func (f *Fetcher) Close() error {
	if f.ownsClient && f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Resolve returns the value for a secret:// reference. Values are cached for
// the process lifetime; rotation requires a restart.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	name, version, err := splitReference(ref)
	if err != nil {
		return "", err
	}
	key := name + "@" + version

	f.mu.RLock()
	value, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		f.count(ctx, "cache")
		return value, nil
	}

	if f.client != nil && f.project != "" {
		value, err := f.access(ctx, name, version)
		if err == nil {
			f.store(key, value)
			f.count(ctx, "remote")
			return value, nil
		}
		if !fallbackWorthy(err) {
			f.count(ctx, "error")
			return "", fmt.Errorf("secrets: fetch %s: %w", name, err)
		}
		f.logger.Debug("secrets: falling back to local file",
			zap.String("secret", name),
			zap.String("environment", f.env),
			zap.Error(err))
	}

	value, ok = f.localValue(name)
	if !ok {
		f.count(ctx, "error")
		return "", fmt.Errorf("secrets: no value available for %s", name)
	}
	f.store(key, value)
	f.count(ctx, "fallback")
	return value, nil
}

func (f *Fetcher) access(ctx context.Context, name, version string) (string, error) {
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.project, name, version)
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (f *Fetcher) store(key, value string) {
	f.mu.Lock()
	f.cache[key] = value
	f.mu.Unlock()
}

func (f *Fetcher) localValue(name string) (string, bool) {
	f.loadFallback.Do(f.readFallbackFile)
	if f.fallbackErr != nil {
		f.logger.Debug("secrets: fallback file unusable", zap.Error(f.fallbackErr))
		return "", false
	}
	value, ok := f.fallback[name]
	return value, ok
}

// readFallbackFile parses key=value lines. Keys may be bare secret names or
// carry the secret:// or sm:// prefix.
func (f *Fetcher) readFallbackFile() {
	f.fallback = map[string]string{}
	if f.fallbackPath == "" {
		return
	}

	file, err := os.Open(f.fallbackPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.fallbackErr = fmt.Errorf("secrets: open fallback file %s: %w", f.fallbackPath, err)
		}
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rawKey, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		name, _, err := splitReference(strings.TrimSpace(rawKey))
		if err != nil {
			name = strings.TrimSpace(rawKey)
		}
		if name != "" {
			f.fallback[name] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		f.fallbackErr = fmt.Errorf("secrets: read fallback file %s: %w", f.fallbackPath, err)
	}
}

func (f *Fetcher) count(ctx context.Context, source string) {
	if !f.lookupsEnabled {
		return
	}
	f.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("environment", f.env),
	))
}

// splitReference extracts the secret name and version from a reference of
// the form secret://name or secret://name?version=N. The sm:// prefix is
// accepted as an alias. A bare name is not a valid reference.
func splitReference(ref string) (name, version string, err error) {
	trimmed := strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(trimmed, refScheme):
		trimmed = strings.TrimPrefix(trimmed, refScheme)
	case strings.HasPrefix(trimmed, altRefScheme):
		trimmed = strings.TrimPrefix(trimmed, altRefScheme)
	default:
		return "", "", fmt.Errorf("secrets: unsupported reference %q", ref)
	}

	name, query, _ := strings.Cut(trimmed, "?")
	name = strings.Trim(name, "/")
	if name == "" {
		return "", "", fmt.Errorf("secrets: missing secret name in %q", ref)
	}

	version = defaultVersion
	for _, pair := range strings.Split(query, "&") {
		if k, v, found := strings.Cut(pair, "="); found && k == "version" && strings.TrimSpace(v) != "" {
			version = strings.TrimSpace(v)
		}
	}
	return name, version, nil
}

// fallbackWorthy reports whether a Secret Manager error should be masked by
// the local fallback file rather than surfaced.
func fallbackWorthy(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded:
		return true
	}
	return false
}
