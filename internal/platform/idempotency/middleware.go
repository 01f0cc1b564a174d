package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fetchkids/api/internal/platform/auth"
	"github.com/fetchkids/api/internal/platform/httpx"
)

const (
	keyHeader    = "Idempotency-Key"
	replayHeader = "X-Idempotent-Replay"
)

// Logger is the printf-shaped logging hook used for persistence failures.
type Logger interface {
	Printf(format string, args ...any)
}

// Option customises the middleware.
type Option func(*config)

type config struct {
	logger Logger
	clock  func() time.Time
}

// WithLogger injects a logger for store failures.
func WithLogger(logger Logger) Option {
	return func(cfg *config) { cfg.logger = logger }
}

// WithClock overrides the time source for tests.
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware replays stored responses for repeated Idempotency-Key headers
// on mutating requests. Requests without the header pass through untouched.
// The key is scoped to the authenticated caller, and reusing a key with a
// different request body or target is rejected.
func Middleware(store Store, opts ...Option) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := config{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := strings.TrimSpace(r.Header.Get(keyHeader))
			if clientKey == "" || isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := bufferBody(r)
			if err != nil {
				writeFailure(w, r, http.StatusInternalServerError, "idempotency_read_body_failed", "unable to read request body")
				return
			}

			caller := callerID(r)
			key := clientKey + "|" + caller
			fingerprint := fingerprintRequest(r, caller, body)
			now := cfg.clock().UTC()

			claim, stored, err := store.Claim(r.Context(), key, fingerprint, now)
			switch {
			case errors.Is(err, ErrKeyReused):
				writeFailure(w, r, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
				return
			case err != nil:
				logf(cfg.logger, "idempotency: claim failed for key %s: %v", clientKey, err)
				writeFailure(w, r, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
				return
			}

			switch claim {
			case ClaimReplay:
				replay(w, stored)
				return
			case ClaimInFlight:
				writeFailure(w, r, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
				return
			}

			buffer := &bufferedWriter{header: make(http.Header)}
			next.ServeHTTP(buffer, r)

			response := StoredResponse{
				Status: buffer.StatusCode(),
				Header: storableHeader(buffer.header),
				Body:   buffer.body.Bytes(),
			}
			if err := store.Complete(r.Context(), key, fingerprint, response, cfg.clock().UTC()); err != nil {
				logf(cfg.logger, "idempotency: persist failed for key %s: %v", clientKey, err)
				if err := store.Forget(r.Context(), key); err != nil {
					logf(cfg.logger, "idempotency: release failed for key %s: %v", clientKey, err)
				}
				writeFailure(w, r, http.StatusInternalServerError, "idempotency_store_error", "unable to persist idempotency state")
				return
			}

			buffer.copyTo(w)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func bufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func callerID(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok && identity != nil && identity.UID != "" {
		return identity.UID
	}
	return "anonymous"
}

func fingerprintRequest(r *http.Request, caller string, body []byte) string {
	sum := sha256.New()
	for _, part := range []string{r.Method, r.URL.RequestURI(), caller} {
		sum.Write([]byte(part))
		sum.Write([]byte{0})
	}
	sum.Write(body)
	return hex.EncodeToString(sum.Sum(nil))
}

func replay(w http.ResponseWriter, stored StoredResponse) {
	for name, values := range stored.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.Header().Set(replayHeader, "true")

	status := stored.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(stored.Body) > 0 {
		_, _ = w.Write(stored.Body)
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, message, status))
}

func logf(logger Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}

// bufferedWriter holds the full response until the store has accepted it.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferedWriter) Header() http.Header { return w.header }

func (w *bufferedWriter) WriteHeader(status int) {
	if w.status == 0 && status > 0 {
		w.status = status
	}
}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.body.Write(b)
}

func (w *bufferedWriter) StatusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *bufferedWriter) copyTo(dst http.ResponseWriter) {
	target := dst.Header()
	for name, values := range w.header {
		target[name] = values
	}
	dst.WriteHeader(w.StatusCode())
	if w.body.Len() > 0 {
		_, _ = dst.Write(w.body.Bytes())
	}
}
