package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/services"
)

func newDraftRouter(drafts services.DraftService) chi.Router {
	h := NewDraftHandlers(drafts)
	r := chi.NewRouter()
	r.Route("/drafts", h.Routes)
	return r
}

func TestCreateDraftReturnsDraftPayload(t *testing.T) {
	now := time.Date(2026, time.April, 5, 10, 0, 0, 0, time.UTC)
	var got services.UpsertDraftCommand
	drafts := &stubDraftService{
		createFn: func(_ context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error) {
			got = cmd
			return domain.OrderDraft{
				ID:        "drf_01",
				UserName:  cmd.UserName,
				UserEmail: "asha@example.com",
				Products:  cmd.Products,
				ExpiresAt: now.Add(7 * 24 * time.Hour),
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		},
	}
	router := newDraftRouter(drafts)

	body := `{"userName":"Asha","userEmail":"asha@example.com","products":[{"productId":"prod-1","price":100,"quantity":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/drafts", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if len(got.Products) != 1 || got.Products[0].ProductID != "prod-1" {
		t.Fatalf("command products = %#v", got.Products)
	}
	draft := decodeEnvelope(t, rec)["draft"].(map[string]any)
	if draft["id"] != "drf_01" || draft["userEmail"] != "asha@example.com" {
		t.Fatalf("draft payload = %v", draft)
	}
}

func TestUpdateDraftUsesPathID(t *testing.T) {
	var got services.UpsertDraftCommand
	drafts := &stubDraftService{
		updateFn: func(_ context.Context, cmd services.UpsertDraftCommand) (domain.OrderDraft, error) {
			got = cmd
			return domain.OrderDraft{ID: cmd.DraftID}, nil
		},
	}
	router := newDraftRouter(drafts)

	req := httptest.NewRequest(http.MethodPut, "/drafts/drf_01", strings.NewReader(`{"userEmail":"asha@example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.DraftID != "drf_01" {
		t.Fatalf("draftId = %q", got.DraftID)
	}
}

func TestGetDraftMapsExpired(t *testing.T) {
	drafts := &stubDraftService{
		getFn: func(context.Context, string) (domain.OrderDraft, error) {
			return domain.OrderDraft{}, services.ErrDraftExpired
		},
	}
	router := newDraftRouter(drafts)

	req := httptest.NewRequest(http.MethodGet, "/drafts/drf_old", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope["error"] != "draft_expired" {
		t.Fatalf("error code = %v", envelope["error"])
	}
}

func TestDeleteDraftReportsDeletion(t *testing.T) {
	var deleted string
	drafts := &stubDraftService{
		deleteFn: func(_ context.Context, draftID string) error {
			deleted = draftID
			return nil
		},
	}
	router := newDraftRouter(drafts)

	req := httptest.NewRequest(http.MethodDelete, "/drafts/drf_01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if deleted != "drf_01" {
		t.Fatalf("deleted = %q", deleted)
	}
	if envelope := decodeEnvelope(t, rec); envelope["deleted"] != true {
		t.Fatalf("envelope = %v", envelope)
	}
}

func TestDraftNotFoundMapsTo404(t *testing.T) {
	drafts := &stubDraftService{
		getFn: func(context.Context, string) (domain.OrderDraft, error) {
			return domain.OrderDraft{}, services.ErrDraftNotFound
		},
	}
	router := newDraftRouter(drafts)

	req := httptest.NewRequest(http.MethodGet, "/drafts/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
