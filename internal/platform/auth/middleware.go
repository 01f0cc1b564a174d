package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

const roleHintHeader = "X-User-Role"

// Authenticator resolves request identities from session tokens, falling back
// to the X-User-Role header as an unverified hint for response shaping.
type Authenticator struct {
	tokens *TokenManager
}

// NewAuthenticator constructs an Authenticator over the token manager.
func NewAuthenticator(tokens *TokenManager) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Authenticate attaches an Identity to every request. A valid bearer token
// yields a verified identity; otherwise the role header (default "user")
// produces an unverified one. Requests are never rejected here.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := a.resolve(r)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireVerified rejects requests whose identity did not come from a valid
// session token.
func (a *Authenticator) RequireVerified() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.Verified {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "valid session token required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles rejects verified requests lacking one of the allowed roles.
func (a *Authenticator) RequireRoles(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range allowedRoles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			allowed[role] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !identity.Verified {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "valid session token required")
				return
			}
			if len(allowed) > 0 {
				if _, ok := allowed[strings.ToLower(identity.Role)]; !ok {
					respondAuthError(w, http.StatusForbidden, "insufficient_role", "identity does not have required role")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) resolve(r *http.Request) *Identity {
	if a != nil && a.tokens != nil {
		if tokenStr, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
			if claims, err := a.tokens.Verify(tokenStr); err == nil {
				role := claims.Role
				if role == "" {
					role = RoleUser
				}
				return &Identity{
					UID:      claims.Subject,
					Email:    claims.Email,
					Role:     role,
					Verified: true,
				}
			}
		}
	}

	role := strings.ToLower(strings.TrimSpace(r.Header.Get(roleHintHeader)))
	if role == "" {
		role = RoleUser
	}
	return &Identity{Role: role}
}

func extractBearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   code,
		"message": message,
	})
}
