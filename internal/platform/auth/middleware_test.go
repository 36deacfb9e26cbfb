package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func TestRequireAuth_AllowsFirebaseToken(t *testing.T) {
	verifier := &stubTokenVerifier{
		token: &firebaseauth.Token{
			UID: "uid-123",
			Claims: map[string]interface{}{
				"role":    []interface{}{"user", "admin"},
				"email":   "user@example.com",
				"name":    "Mina Ito",
				"picture": "https://example.com/a.png",
			},
		},
	}
	authn := NewAuthenticator([]IdentityVerifier{NewFirebaseIdentities(verifier)})

	handlerCalled := false
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		if identity.UID != "uid-123" || identity.Email != "user@example.com" || identity.DisplayName != "Mina Ito" {
			t.Fatalf("unexpected identity %+v", identity)
		}
		if !identity.IsAdmin() {
			t.Fatalf("expected admin role, got %v", identity.Roles)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Fatalf("expected handler to run")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "test-token" {
		t.Fatalf("expected verifier to receive token, got %q", verifier.received)
	}
}

func TestRequireAuth_RejectsMissingHeader(t *testing.T) {
	authn := NewAuthenticator([]IdentityVerifier{NewFirebaseIdentities(&stubTokenVerifier{})})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assertAuthError(t, rec, "unauthenticated")
}

func TestRequireAuth_InsufficientRoleIs401(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-1", Claims: map[string]interface{}{}}}
	authn := NewAuthenticator([]IdentityVerifier{NewFirebaseIdentities(verifier)})
	handler := authn.RequireAuth(RoleAdmin)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assertAuthError(t, rec, "insufficient_role")
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	verifier := &stubTokenVerifier{err: errors.New("boom")}
	authn := NewAuthenticator([]IdentityVerifier{NewFirebaseIdentities(verifier)})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assertAuthError(t, rec, "invalid_token")
}

func TestRequireAuth_SessionTokenBeforeFirebase(t *testing.T) {
	sessions, err := NewSessionTokens("secret-key", "shop-test", time.Hour)
	if err != nil {
		t.Fatalf("new session tokens: %v", err)
	}
	token, _, err := sessions.Issue(Identity{UID: "acc_1", Email: "a@example.com", Provider: "password", Roles: []string{"user"}})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	firebase := &stubTokenVerifier{err: errors.New("should not be called")}
	authn := NewAuthenticator([]IdentityVerifier{sessions, NewFirebaseIdentities(firebase)})

	var got *Identity
	handler := authn.RequireAuth(RoleUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.UID != "acc_1" || got.Provider != "password" {
		t.Fatalf("unexpected identity %+v", got)
	}
	if firebase.received != "" {
		t.Fatalf("firebase verifier should not have been consulted")
	}
}

func TestOptionalAuth_AllowsAnonymous(t *testing.T) {
	authn := NewAuthenticator(nil)
	called := false
	handler := authn.OptionalAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("expected no identity")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected handler to run")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":       {"Bearer abc", "abc", true},
		"lowercase":   {"bearer abc", "abc", true},
		"missing":     {"", "", false},
		"wrongScheme": {"Basic abc", "", false},
		"emptyToken":  {"Bearer   ", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := extractBearerToken(tc.header)
			if ok != tc.ok || token != tc.token {
				t.Fatalf("expected (%q,%v) got (%q,%v)", tc.token, tc.ok, token, ok)
			}
		})
	}
}

func assertAuthError(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != code {
		t.Fatalf("expected error %q, got %v", code, body["error"])
	}
}
