package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAuthenticator(t *testing.T, opts ...TokenManagerOption) (*Authenticator, *TokenManager) {
	t.Helper()
	tokens, err := NewTokenManager("session-secret", opts...)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return NewAuthenticator(tokens), tokens
}

func TestAuthenticateValidBearerToken(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)

	tokenStr, err := tokens.Issue("usr_01H", "parent@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	var got *Identity
	handler := authn.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("expected identity in context")
	}
	if !got.Verified {
		t.Error("expected verified identity")
	}
	if got.UID != "usr_01H" || got.Email != "parent@example.com" || got.Role != RoleAdmin {
		t.Errorf("unexpected identity: %+v", got)
	}
	if !got.IsAdmin() {
		t.Error("expected IsAdmin to report true")
	}
}

func TestAuthenticateRoleHeaderFallback(t *testing.T) {
	authn, _ := newTestAuthenticator(t)

	cases := []struct {
		name     string
		header   string
		wantRole string
	}{
		{name: "admin hint", header: "Admin", wantRole: RoleAdmin},
		{name: "user hint", header: "user", wantRole: RoleUser},
		{name: "no header", header: "", wantRole: RoleUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got *Identity
			handler := authn.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/orders", nil)
			if tc.header != "" {
				req.Header.Set("X-User-Role", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got == nil {
				t.Fatal("expected identity in context")
			}
			if got.Verified {
				t.Error("header-derived identity must not be verified")
			}
			if got.Role != tc.wantRole {
				t.Errorf("expected role %q, got %q", tc.wantRole, got.Role)
			}
		})
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	authn, tokens := newTestAuthenticator(t, WithTokenTTL(time.Hour), WithTokenClock(func() time.Time { return past }))

	tokenStr, err := tokens.Issue("usr_01H", "parent@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Verification runs against the real clock, long after expiry.
	authn.tokens.now = time.Now

	var got *Identity
	handler := authn.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("expected fallback identity in context")
	}
	if got.Verified {
		t.Error("expired token must not yield a verified identity")
	}
}

func TestRequireVerified(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)

	protected := authn.Authenticate(authn.RequireVerified()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-User-Role", "admin")
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("header hint should not pass RequireVerified, got %d", rec.Code)
	}

	tokenStr, err := tokens.Issue("usr_01H", "parent@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token should pass RequireVerified, got %d", rec.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	authn, tokens := newTestAuthenticator(t)

	adminOnly := authn.Authenticate(authn.RequireRoles(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	userToken, err := tokens.Issue("usr_01H", "parent@example.com", RoleUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("user role should be forbidden, got %d", rec.Code)
	}

	adminToken, err := tokens.Issue("usr_02H", "ops@example.com", RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin role should pass, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request should be unauthorized, got %d", rec.Code)
	}
}
