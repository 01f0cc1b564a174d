package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fetchkids/api/internal/platform/httpx"
	"github.com/fetchkids/api/internal/services"
)

const (
	authAttemptLimit  = 10
	authAttemptWindow = time.Minute
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// AuthHandlers exposes the merged register-or-login endpoint.
type AuthHandlers struct {
	users   services.UserService
	limiter *authThrottle
}

// NewAuthHandlers constructs a new AuthHandlers instance.
func NewAuthHandlers(users services.UserService) *AuthHandlers {
	return &AuthHandlers{
		users:   users,
		limiter: newAuthThrottle(authAttemptLimit, authAttemptWindow, nil),
	}
}

// Routes registers the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.authenticate)
}

func (h *AuthHandlers) authenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req authRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeTranslated(ctx, w, err)
		return
	}

	limiterKey := strings.ToLower(strings.TrimSpace(req.Email))
	if limiterKey == "" {
		limiterKey = r.RemoteAddr
	}
	if h.limiter != nil && !h.limiter.Allow(limiterKey) {
		httpx.WriteError(ctx, w, httpx.NewError("too_many_attempts", "too many authentication attempts, retry later", http.StatusTooManyRequests))
		return
	}

	result, err := h.users.Authenticate(ctx, services.AuthenticateCommand{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	httpx.WriteSuccess(ctx, w, status, map[string]any{
		"token":   result.Token,
		"created": result.Created,
		"user": map[string]any{
			"id":    result.Account.ID,
			"email": result.Account.Email,
			"name":  result.Account.Name,
			"role":  string(result.Account.Role),
			"phone": result.Account.Phone,
		},
	})
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUserInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "email or password is incorrect", http.StatusUnauthorized))
	case errors.Is(err, services.ErrUserInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid_request", trimSentinel(err.Error())))
	case errors.Is(err, services.ErrUserNotFound):
		httpx.WriteError(ctx, w, httpx.NotFound("user_not_found", "account not found"))
	default:
		writeTranslated(ctx, w, err)
	}
}
