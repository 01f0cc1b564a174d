package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
)

type stubSystemService struct {
	reportFn    func(ctx context.Context) (domain.SystemHealthReport, error)
	readinessFn func(ctx context.Context) error
}

func (s *stubSystemService) HealthReport(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.reportFn == nil {
		return domain.SystemHealthReport{Status: domain.HealthStatusOK}, nil
	}
	return s.reportFn(ctx)
}

func (s *stubSystemService) Readiness(ctx context.Context) error {
	if s.readinessFn == nil {
		return nil
	}
	return s.readinessFn(ctx)
}

func TestRouterServesHealthEndpoints(t *testing.T) {
	router := NewRouter(Routes{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope["status"] != "ok" {
		t.Fatalf("healthz envelope = %v", envelope)
	}
}

func TestRouterReadyzReportsDependencyOutage(t *testing.T) {
	system := &stubSystemService{
		reportFn: func(context.Context) (domain.SystemHealthReport, error) {
			return domain.SystemHealthReport{
				Status: domain.HealthStatusError,
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusError, Detail: "deadline exceeded", Latency: 2 * time.Second},
				},
			}, nil
		},
	}
	router := NewRouter(Routes{Health: NewHealthHandlers(system)})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	if envelope["error"] != "not_ready" {
		t.Fatalf("error code = %v", envelope["error"])
	}
	checks := envelope["checks"].(map[string]any)
	if _, present := checks["firestore"]; !present {
		t.Fatalf("checks missing firestore: %v", checks)
	}
}

func TestRouterFallsBackToNotImplemented(t *testing.T) {
	router := NewRouter(Routes{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestRouterEnvelopesUnknownRoutes(t *testing.T) {
	router := NewRouter(Routes{})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if envelope := decodeEnvelope(t, rec); envelope["error"] != "route_not_found" {
		t.Fatalf("error code = %v", envelope["error"])
	}
}

func TestRouterMountsRegistrarsWithGroupMiddleware(t *testing.T) {
	touched := false
	middlewareHit := false

	router := NewRouter(Routes{
		Webhooks: Group{
			Register: func(r chi.Router) {
				r.Post("/payments", func(w http.ResponseWriter, _ *http.Request) {
					touched = true
					w.WriteHeader(http.StatusOK)
				})
			},
			Middleware: []func(http.Handler) http.Handler{
				func(next http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						middlewareHit = true
						next.ServeHTTP(w, r)
					})
				},
			},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !touched || !middlewareHit {
		t.Fatalf("handler/middleware hit = %v/%v", touched, middlewareHit)
	}
}
