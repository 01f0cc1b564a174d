package idempotency

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type memoryRecord struct {
	fingerprint string
	done        bool
	response    StoredResponse
	expiresAt   time.Time
}

// MemoryStore keeps claims in process memory. It backs tests and local runs
// without a Firestore connection.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryRecord
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryRecord)}
}

// Claim implements Store.
func (s *MemoryStore) Claim(_ context.Context, key, fingerprint string, now time.Time) (Claim, StoredResponse, error) {
	now = now.UTC()
	id := hashKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok || !now.Before(record.expiresAt) {
		s.records[id] = memoryRecord{fingerprint: fingerprint, expiresAt: now.Add(RecordTTL)}
		return ClaimAccepted, StoredResponse{}, nil
	}
	if record.fingerprint != fingerprint {
		return 0, StoredResponse{}, ErrKeyReused
	}
	if record.done {
		return ClaimReplay, cloneResponse(record.response), nil
	}
	return ClaimInFlight, StoredResponse{}, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, resp StoredResponse, now time.Time) error {
	now = now.UTC()
	id := hashKey(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if ok && record.fingerprint != fingerprint {
		return ErrKeyReused
	}
	s.records[id] = memoryRecord{
		fingerprint: fingerprint,
		done:        true,
		response:    cloneResponse(resp),
		expiresAt:   now.Add(RecordTTL),
	}
	return nil
}

// Forget implements Store.
func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, hashKey(key))
	return nil
}

func cloneResponse(resp StoredResponse) StoredResponse {
	cloned := StoredResponse{Status: resp.Status}
	if len(resp.Header) > 0 {
		cloned.Header = make(http.Header, len(resp.Header))
		for name, values := range resp.Header {
			cloned.Header[name] = append([]string(nil), values...)
		}
	}
	if len(resp.Body) > 0 {
		cloned.Body = append([]byte(nil), resp.Body...)
	}
	return cloned
}
