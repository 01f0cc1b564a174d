package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/postal"
)

func newPublicRouter(lookup PostalLookup) chi.Router {
	h := NewPublicHandlers(lookup)
	r := chi.NewRouter()
	r.Route("/public", h.Routes)
	return r
}

func TestLookupPostalReturnsLocalities(t *testing.T) {
	lookup := &stubPostalLookup{
		lookupFn: func(_ context.Context, code string) ([]domain.PostalLocality, error) {
			if code != "400001" {
				t.Fatalf("code = %q", code)
			}
			return []domain.PostalLocality{
				{Locality: "Fort", City: "Mumbai", District: "Mumbai", State: "Maharashtra", Country: "India"},
			}, nil
		},
	}
	router := newPublicRouter(lookup)

	req := httptest.NewRequest(http.MethodGet, "/public/postal/400001", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	envelope := decodeEnvelope(t, rec)
	localities := envelope["localities"].([]any)
	if len(localities) != 1 {
		t.Fatalf("localities = %v", localities)
	}
	first := localities[0].(map[string]any)
	if first["locality"] != "Fort" || first["state"] != "Maharashtra" {
		t.Fatalf("locality payload = %v", first)
	}
}

func TestLookupPostalMapsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid code", err: postal.ErrInvalidCode, wantStatus: http.StatusBadRequest, wantCode: "invalid_postal_code"},
		{name: "unknown code", err: postal.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "postal_code_not_found"},
		{name: "upstream outage", err: postal.ErrUpstream, wantStatus: http.StatusBadGateway, wantCode: "postal_lookup_failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lookup := &stubPostalLookup{
				lookupFn: func(context.Context, string) ([]domain.PostalLocality, error) {
					return nil, tc.err
				},
			}
			router := newPublicRouter(lookup)

			req := httptest.NewRequest(http.MethodGet, "/public/postal/abc123", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if envelope := decodeEnvelope(t, rec); envelope["error"] != tc.wantCode {
				t.Fatalf("error code = %v", envelope["error"])
			}
		})
	}
}
