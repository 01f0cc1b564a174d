package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/postal"
)

// PostalLookup resolves a postal code to candidate delivery localities.
type PostalLookup interface {
	Lookup(ctx context.Context, code string) ([]domain.PostalLocality, error)
}

type localityPayload struct {
	Locality string `json:"locality"`
	City     string `json:"city"`
	District string `json:"district"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

// PublicHandlers serves unauthenticated utility endpoints used by the
// storefront for address pre-fill.
type PublicHandlers struct {
	postal PostalLookup
}

// NewPublicHandlers constructs a new PublicHandlers instance.
func NewPublicHandlers(postal PostalLookup) *PublicHandlers {
	return &PublicHandlers{postal: postal}
}

// Routes registers the /public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/postal/{code}", h.lookupPostal)
}

func (h *PublicHandlers) lookupPostal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.postal == nil {
		httpx.WriteError(ctx, w, httpx.NewError("postal_service_unavailable", "postal lookup unavailable", http.StatusServiceUnavailable))
		return
	}

	localities, err := h.postal.Lookup(ctx, chi.URLParam(r, "code"))
	if err != nil {
		writePostalError(ctx, w, err)
		return
	}

	items := make([]localityPayload, 0, len(localities))
	for _, locality := range localities {
		items = append(items, localityPayload{
			Locality: locality.Locality,
			City:     locality.City,
			District: locality.District,
			State:    locality.State,
			Country:  locality.Country,
		})
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"localities": items,
	})
}

func writePostalError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postal.ErrInvalidCode):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_postal_code", "postal code must be a 6-digit PIN"))
	case errors.Is(err, postal.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound("postal_code_not_found", "no localities found for this postal code"))
	case errors.Is(err, postal.ErrUpstream):
		httpx.WriteError(ctx, w, httpx.NewError("postal_lookup_failed", "postal lookup is temporarily unavailable", http.StatusBadGateway))
	default:
		writeTranslated(ctx, w, err)
	}
}
