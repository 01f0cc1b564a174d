package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fetchkids/api/internal/domain"
	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

type draftRequest struct {
	UserName        string              `json:"userName"`
	UserEmail       string              `json:"userEmail"`
	Phone           string              `json:"phone"`
	Products        []domain.RawProduct `json:"products"`
	ShippingAddress *domain.RawAddress  `json:"shippingAddress"`
}

type draftPayload struct {
	ID              string              `json:"id"`
	UserName        string              `json:"userName"`
	UserEmail       string              `json:"userEmail"`
	Phone           string              `json:"phone,omitempty"`
	Products        []domain.RawProduct `json:"products"`
	ShippingAddress *domain.RawAddress  `json:"shippingAddress,omitempty"`
	ExpiresAt       time.Time           `json:"expiresAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// DraftHandlers exposes the work-in-progress order endpoints.
type DraftHandlers struct {
	drafts services.DraftService
}

// NewDraftHandlers constructs a new DraftHandlers instance.
func NewDraftHandlers(drafts services.DraftService) *DraftHandlers {
	return &DraftHandlers{drafts: drafts}
}

// Routes registers the /drafts endpoints.
func (h *DraftHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createDraft)
	r.Get("/{draftID}", h.getDraft)
	r.Put("/{draftID}", h.updateDraft)
	r.Delete("/{draftID}", h.deleteDraft)
}

func (h *DraftHandlers) createDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("draft_service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	draft, err := h.drafts.CreateDraft(ctx, services.UpsertDraftCommand{
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		Phone:           req.Phone,
		Products:        req.Products,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeDraftError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusCreated, map[string]any{
		"draft": buildDraftPayload(draft),
	})
}

func (h *DraftHandlers) getDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("draft_service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	draft, err := h.drafts.GetDraft(ctx, chi.URLParam(r, "draftID"))
	if err != nil {
		writeDraftError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"draft": buildDraftPayload(draft),
	})
}

func (h *DraftHandlers) updateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("draft_service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req draftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	draft, err := h.drafts.UpdateDraft(ctx, services.UpsertDraftCommand{
		DraftID:         chi.URLParam(r, "draftID"),
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		Phone:           req.Phone,
		Products:        req.Products,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeDraftError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"draft": buildDraftPayload(draft),
	})
}

func (h *DraftHandlers) deleteDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.drafts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("draft_service_unavailable", "draft service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.drafts.DeleteDraft(ctx, chi.URLParam(r, "draftID")); err != nil {
		writeDraftError(ctx, w, err)
		return
	}

	httpx.WriteSuccess(ctx, w, http.StatusOK, map[string]any{
		"deleted": true,
	})
}

func writeDraftError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDraftInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", trimSentinel(err.Error())))
	case errors.Is(err, services.ErrDraftExpired):
		httpx.WriteError(ctx, w, httpx.NewError("draft_expired", "draft has expired", http.StatusGone))
	case errors.Is(err, services.ErrDraftNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound("draft_not_found", "draft not found"))
	default:
		writeTranslated(ctx, w, err)
	}
}

func buildDraftPayload(draft domain.OrderDraft) draftPayload {
	return draftPayload{
		ID:              draft.ID,
		UserName:        draft.UserName,
		UserEmail:       draft.UserEmail,
		Phone:           draft.Phone,
		Products:        draft.Products,
		ShippingAddress: draft.ShippingAddress,
		ExpiresAt:       draft.ExpiresAt,
		CreatedAt:       draft.CreatedAt,
		UpdatedAt:       draft.UpdatedAt,
	}
}
