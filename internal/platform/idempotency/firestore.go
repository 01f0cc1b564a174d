package idempotency

import (
	"context"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const keysCollection = "idempotency_keys"

type keyDocument struct {
	Fingerprint    string              `firestore:"fingerprint"`
	Done           bool                `firestore:"done"`
	ResponseStatus int                 `firestore:"responseStatus"`
	ResponseHeader map[string][]string `firestore:"responseHeader"`
	ResponseBody   []byte              `firestore:"responseBody"`
	CreatedAt      time.Time           `firestore:"createdAt"`
	ExpiresAt      time.Time           `firestore:"expiresAt"`
}

// FirestoreStore persists idempotency claims in a Firestore collection, one
// document per hashed key, claimed inside a transaction.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore constructs a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// Claim implements Store.
func (s *FirestoreStore) Claim(ctx context.Context, key, fingerprint string, now time.Time) (Claim, StoredResponse, error) {
	now = now.UTC()
	ref := s.client.Collection(keysCollection).Doc(hashKey(key))

	var claim Claim
	var stored StoredResponse
	err := s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			claim = ClaimAccepted
			return tx.Set(ref, keyDocument{
				Fingerprint: fingerprint,
				CreatedAt:   now,
				ExpiresAt:   now.Add(RecordTTL),
			})
		}
		if err != nil {
			return err
		}

		var doc keyDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if !now.Before(doc.ExpiresAt) {
			claim = ClaimAccepted
			return tx.Set(ref, keyDocument{
				Fingerprint: fingerprint,
				CreatedAt:   now,
				ExpiresAt:   now.Add(RecordTTL),
			})
		}
		if doc.Fingerprint != fingerprint {
			return ErrKeyReused
		}
		if doc.Done {
			claim = ClaimReplay
			stored = StoredResponse{
				Status: doc.ResponseStatus,
				Header: http.Header(doc.ResponseHeader),
				Body:   doc.ResponseBody,
			}
			return nil
		}
		claim = ClaimInFlight
		return nil
	})
	if err != nil {
		return 0, StoredResponse{}, err
	}
	return claim, stored, nil
}

// Complete implements Store.
func (s *FirestoreStore) Complete(ctx context.Context, key, fingerprint string, resp StoredResponse, now time.Time) error {
	now = now.UTC()
	ref := s.client.Collection(keysCollection).Doc(hashKey(key))

	return s.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		created := now
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil {
			var doc keyDocument
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			if doc.Fingerprint != fingerprint {
				return ErrKeyReused
			}
			if !doc.CreatedAt.IsZero() {
				created = doc.CreatedAt
			}
		}

		return tx.Set(ref, keyDocument{
			Fingerprint:    fingerprint,
			Done:           true,
			ResponseStatus: resp.Status,
			ResponseHeader: map[string][]string(resp.Header),
			ResponseBody:   resp.Body,
			CreatedAt:      created,
			ExpiresAt:      now.Add(RecordTTL),
		})
	})
}

// Forget implements Store.
func (s *FirestoreStore) Forget(ctx context.Context, key string) error {
	_, err := s.client.Collection(keysCollection).Doc(hashKey(key)).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}
