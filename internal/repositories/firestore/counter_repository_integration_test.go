//go:build integration

package firestore

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestSequenceAllocationUnderContention(t *testing.T) {
	provider := emulatorProvider(t, "counter-test")

	repo, err := NewCounterRepository(provider)
	if err != nil {
		t.Fatalf("NewCounterRepository: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const workers = 16
	allocated := make([]int64, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(slot int) {
			defer wg.Done()
			value, err := repo.Next(ctx, "orders-2026")
			if err != nil {
				t.Errorf("Next (worker %d): %v", slot, err)
				return
			}
			allocated[slot] = value
		}(i)
	}
	wg.Wait()

	sort.Slice(allocated, func(i, j int) bool { return allocated[i] < allocated[j] })
	for i, got := range allocated {
		if want := int64(i + 1); got != want {
			t.Fatalf("allocated[%d] = %d, want %d (duplicate or gap)", i, got, want)
		}
	}

	// A different sequence id starts its own numbering.
	value, err := repo.Next(ctx, "orders-2027")
	if err != nil {
		t.Fatalf("Next on fresh sequence: %v", err)
	}
	if value != 1 {
		t.Fatalf("fresh sequence started at %d, want 1", value)
	}

	if _, err := repo.Next(ctx, ""); err == nil {
		t.Fatal("expected error for empty sequence id")
	}
}
