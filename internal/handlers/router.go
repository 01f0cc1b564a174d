package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fetchkids/api/internal/platform/httpx"
)

const (
	apiPrefix      = "/api/v1"
	requestTimeout = 60 * time.Second
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

// Group pairs a registrar with middleware applied to its route subtree.
type Group struct {
	Register   RouteRegistrar
	Middleware []func(http.Handler) http.Handler
}

// Routes declares everything mounted on the API router. Groups left empty
// respond with 501 so unfinished surfaces still answer in the envelope shape.
type Routes struct {
	Health *HealthHandlers

	// Global middleware runs on every request, health probes included.
	Global []func(http.Handler) http.Handler

	Auth     Group
	Orders   Group
	Drafts   Group
	Payments Group
	Uploads  Group
	Public   Group
	Webhooks Group
}

// NewRouter builds the chi router for the service.
func NewRouter(routes Routes) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(requestTimeout))
	for _, mw := range routes.Global {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("route_not_found", fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	health := routes.Health
	if health == nil {
		health = NewHealthHandlers(nil)
	}
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	r.Route(apiPrefix, func(api chi.Router) {
		mountGroup(api, "/auth", "auth", routes.Auth)
		mountGroup(api, "/orders", "orders", routes.Orders)
		mountGroup(api, "/drafts", "drafts", routes.Drafts)
		mountGroup(api, "/payments", "payments", routes.Payments)
		mountGroup(api, "/uploads", "uploads", routes.Uploads)
		mountGroup(api, "/public", "public", routes.Public)
		mountGroup(api, "/webhooks", "webhooks", routes.Webhooks)
	})

	return r
}

func mountGroup(api chi.Router, path, name string, group Group) {
	api.Route(path, func(r chi.Router) {
		for _, mw := range group.Middleware {
			if mw != nil {
				r.Use(mw)
			}
		}
		if group.Register != nil {
			group.Register(r)
			return
		}

		pending := func(w http.ResponseWriter, req *http.Request) {
			httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
		}
		r.HandleFunc("/*", pending)
		r.HandleFunc("/", pending)
		r.NotFound(pending)
		r.MethodNotAllowed(pending)
	})
}
