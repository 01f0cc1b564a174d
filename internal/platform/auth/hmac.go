package auth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultWebhookSignatureHeader = "X-Webhook-Signature"

// Logger is the minimal logging surface the verifier needs.
type Logger interface {
	Printf(format string, args ...any)
}

// WebhookVerifier checks that gateway callbacks carry a valid HMAC-SHA256
// signature computed over the raw request body with a shared secret. A
// mismatch rejects the request before the payload is processed.
type WebhookVerifier struct {
	secret []byte
	header string
	logger Logger
	now    func() time.Time
}

// WebhookOption customises the verifier.
type WebhookOption func(*WebhookVerifier)

// WithWebhookHeader overrides the signature header name.
func WithWebhookHeader(header string) WebhookOption {
	return func(v *WebhookVerifier) {
		if strings.TrimSpace(header) != "" {
			v.header = strings.TrimSpace(header)
		}
	}
}

// WithWebhookLogger overrides the verifier logger.
func WithWebhookLogger(logger Logger) WebhookOption {
	return func(v *WebhookVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithWebhookClock injects a custom clock, primarily for tests.
func WithWebhookClock(now func() time.Time) WebhookOption {
	return func(v *WebhookVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewWebhookVerifier builds a verifier over the shared gateway secret.
func NewWebhookVerifier(secret string, opts ...WebhookOption) (*WebhookVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: webhook secret is required")
	}
	verifier := &WebhookVerifier{
		secret: []byte(secret),
		header: defaultWebhookSignatureHeader,
		logger: log.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(verifier)
		}
	}
	return verifier, nil
}

// WebhookMetadata describes the verification context for downstream handlers.
type WebhookMetadata struct {
	Signature    []byte
	RawSignature string
	VerifiedAt   time.Time
}

type webhookContextKey struct{}

// WithWebhookMetadata stores the metadata on the context.
func WithWebhookMetadata(ctx context.Context, meta *WebhookMetadata) context.Context {
	if meta == nil {
		return ctx
	}
	return context.WithValue(ctx, webhookContextKey{}, meta)
}

// WebhookMetadataFromContext retrieves metadata from the context.
func WebhookMetadataFromContext(ctx context.Context) (*WebhookMetadata, bool) {
	meta, ok := ctx.Value(webhookContextKey{}).(*WebhookMetadata)
	if !ok || meta == nil {
		return nil, false
	}
	return meta, true
}

// RequireSignature enforces a valid body signature on the request. The body
// is restored so the next handler can read it again.
func (v *WebhookVerifier) RequireSignature() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signatureValue := strings.TrimSpace(r.Header.Get(v.header))
			if signatureValue == "" {
				respondAuthError(w, http.StatusBadRequest, "signature_missing", "signature header missing")
				return
			}

			signature, err := decodeSignature(signatureValue)
			if err != nil {
				respondAuthError(w, http.StatusBadRequest, "signature_invalid", "signature encoding invalid")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				respondAuthError(w, http.StatusBadRequest, "invalid_body", "unable to read body for signature verification")
				return
			}

			expected := computeHMAC(v.secret, body)
			if !hmac.Equal(signature, expected) {
				if v.logger != nil {
					v.logger.Printf("auth: webhook signature mismatch")
				}
				respondAuthError(w, http.StatusBadRequest, "signature_mismatch", "signature verification failed")
				return
			}

			meta := &WebhookMetadata{
				Signature:    signature,
				RawSignature: signatureValue,
				VerifiedAt:   v.now(),
			}
			next.ServeHTTP(w, r.WithContext(WithWebhookMetadata(r.Context(), meta)))
		})
	}
}

// Sign computes the hex signature for a payload. Exposed for tests and for
// outbound calls that need to sign bodies the same way.
func (v *WebhookVerifier) Sign(body []byte) string {
	return hex.EncodeToString(computeHMAC(v.secret, body))
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	buf, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(buf))
	return buf, nil
}

func decodeSignature(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("auth: empty signature")
	}
	if decoded, err := hex.DecodeString(value); err == nil {
		return decoded, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return nil, errors.New("auth: signature must be hex or base64 encoded")
}

func computeHMAC(secret []byte, message []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(message)
	return mac.Sum(nil)
}
