package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/fetchkids/api/internal/platform/firestore"
)

const sequencesCollection = "order_sequences"

// sequenceDocument holds the high-water mark for one order-number sequence.
// Order numbers embed the year, so a fresh document appears each January.
type sequenceDocument struct {
	Value     int64     `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// CounterRepository allocates sequence numbers through Firestore transactions
// so concurrent order creations never share a number.
type CounterRepository struct {
	provider *pfirestore.Provider
}

// NewCounterRepository constructs a Firestore-backed sequence allocator.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{provider: provider}, nil
}

// Next reserves and returns the next value of the named sequence, starting at
// 1 the first time a sequence is seen.
func (r *CounterRepository) Next(ctx context.Context, sequenceID string) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	if sequenceID == "" {
		return 0, errors.New("sequence id is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("sequences.next", err)
	}
	ref := client.Collection(sequencesCollection).Doc(sequenceID)

	var value int64
	err = r.provider.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		doc, err := readSequence(tx, ref)
		if err != nil {
			return err
		}
		doc.Value++
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		value = doc.Value
		return nil
	})
	if err != nil {
		return 0, pfirestore.WrapError("sequences.next", err)
	}
	return value, nil
}

func readSequence(tx *firestore.Transaction, ref *firestore.DocumentRef) (sequenceDocument, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return sequenceDocument{}, nil
	}
	if err != nil {
		return sequenceDocument{}, err
	}
	var doc sequenceDocument
	if err := snap.DataTo(&doc); err != nil {
		return sequenceDocument{}, err
	}
	return doc, nil
}
