package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

// RecordTTL is how long a completed response stays replayable. Reusing a key
// after expiry behaves like a fresh request.
const RecordTTL = 24 * time.Hour

// ErrKeyReused reports an idempotency key presented with a different request
// fingerprint than the one that first claimed it.
var ErrKeyReused = errors.New("idempotency: key reused for a different request")

// Claim is the outcome of presenting an idempotency key to the store.
type Claim int

const (
	// ClaimAccepted means the key is new; the caller runs the request.
	ClaimAccepted Claim = iota
	// ClaimReplay means a stored response exists and must be replayed.
	ClaimReplay
	// ClaimInFlight means an earlier request holding the key has not finished.
	ClaimInFlight
)

// StoredResponse is the response payload persisted for replay.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Store persists idempotency claims and their completed responses.
type Store interface {
	// Claim reserves key for fingerprint. On ClaimReplay the stored
	// response is returned alongside.
	Claim(ctx context.Context, key, fingerprint string, now time.Time) (Claim, StoredResponse, error)
	// Complete stores the response produced under key.
	Complete(ctx context.Context, key, fingerprint string, resp StoredResponse, now time.Time) error
	// Forget drops the claim so the key can be retried.
	Forget(ctx context.Context, key string) error
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// storableHeader drops hop-by-hop and framing headers that must not be
// replayed verbatim.
func storableHeader(header http.Header) http.Header {
	if len(header) == 0 {
		return nil
	}
	kept := make(http.Header, len(header))
	for name, values := range header {
		switch http.CanonicalHeaderKey(name) {
		case "Content-Length", "Date", "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade", "Trailer":
			continue
		}
		kept[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
