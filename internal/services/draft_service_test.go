package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/fetchkids/api/internal/domain"
)

func newTestDraftService(t *testing.T, drafts *stubDraftRepo, now time.Time) DraftService {
	t.Helper()
	svc, err := NewDraftService(DraftServiceDeps{
		Drafts:      drafts,
		Clock:       fixedClock(now),
		IDGenerator: sequentialIDs("DRAFT"),
		TTL:         48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new draft service: %v", err)
	}
	return svc
}

func TestCreateDraftSetsExpiry(t *testing.T) {
	now := time.Date(2026, time.April, 5, 12, 0, 0, 0, time.UTC)
	drafts := newStubDraftRepo()
	svc := newTestDraftService(t, drafts, now)

	draft, err := svc.CreateDraft(context.Background(), UpsertDraftCommand{
		UserName:  "Asha",
		UserEmail: "Asha@Example.com",
		Products:  []RawProduct{{ProductID: "prd_1", Name: "Name Puzzle"}},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	if draft.ID != "drf_DRAFT01" {
		t.Errorf("draft id = %q", draft.ID)
	}
	if draft.UserEmail != "asha@example.com" {
		t.Errorf("email not lowered: %q", draft.UserEmail)
	}
	if want := now.Add(48 * time.Hour); !draft.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", draft.ExpiresAt, want)
	}
}

func TestGetDraftRejectsExpired(t *testing.T) {
	now := time.Date(2026, time.April, 5, 12, 0, 0, 0, time.UTC)
	drafts := newStubDraftRepo()
	drafts.drafts["drf_old"] = domain.OrderDraft{
		ID:        "drf_old",
		ExpiresAt: now.Add(-time.Minute),
	}
	svc := newTestDraftService(t, drafts, now)

	if _, err := svc.GetDraft(context.Background(), "drf_old"); !errors.Is(err, ErrDraftExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestUpdateDraftExtendsExpiry(t *testing.T) {
	now := time.Date(2026, time.April, 5, 12, 0, 0, 0, time.UTC)
	drafts := newStubDraftRepo()
	drafts.drafts["drf_a"] = domain.OrderDraft{
		ID:        "drf_a",
		UserEmail: "asha@example.com",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now.Add(-time.Hour),
	}
	svc := newTestDraftService(t, drafts, now)

	draft, err := svc.UpdateDraft(context.Background(), UpsertDraftCommand{
		DraftID:   "drf_a",
		UserEmail: "asha@example.com",
		Products:  []RawProduct{{ProductID: "prd_2"}},
	})
	if err != nil {
		t.Fatalf("update draft: %v", err)
	}
	if want := now.Add(48 * time.Hour); !draft.ExpiresAt.Equal(want) {
		t.Errorf("expiry not extended: %v", draft.ExpiresAt)
	}
	if len(draft.Products) != 1 || draft.Products[0].ProductID != "prd_2" {
		t.Errorf("products not replaced: %+v", draft.Products)
	}
}

func TestDeleteDraft(t *testing.T) {
	now := time.Date(2026, time.April, 5, 12, 0, 0, 0, time.UTC)
	drafts := newStubDraftRepo()
	drafts.drafts["drf_a"] = domain.OrderDraft{ID: "drf_a", ExpiresAt: now.Add(time.Hour)}
	svc := newTestDraftService(t, drafts, now)

	if err := svc.DeleteDraft(context.Background(), "drf_a"); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if err := svc.DeleteDraft(context.Background(), "drf_a"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if err := svc.DeleteDraft(context.Background(), " "); !errors.Is(err, ErrDraftInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
