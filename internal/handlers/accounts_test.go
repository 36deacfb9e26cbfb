package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

func newAccountRouter(accounts services.AccountService, limiter RateLimiter) chi.Router {
	handler := NewAccountHandlers(nil, accounts, limiter)
	router := chi.NewRouter()
	router.Route("/auth", handler.AuthRoutes)
	router.Route("/session", handler.SessionRoutes)
	return router
}

func signedIn(accountID string, clear bool) services.SignInResult {
	return services.SignInResult{
		Account:        services.Account{ID: accountID, Email: "ada@example.com", DisplayName: "Ada", Roles: []string{"user"}},
		Token:          "token-" + accountID,
		ExpiresAt:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Cart:           services.CartView{AccountID: accountID, Currency: "USD"},
		ClearGuestCart: clear,
	}
}

func TestAccountHandlersRegisterCreated(t *testing.T) {
	var captured services.RegisterAccountCommand
	accounts := &stubAccountService{
		registerFn: func(_ context.Context, cmd services.RegisterAccountCommand) (services.SignInResult, error) {
			captured = cmd
			return signedIn("acc_01", true), nil
		},
	}
	router := newAccountRouter(accounts, nil)

	body := `{"email":"ada@example.com","password":"correct horse","name":"Ada","guest_cart":["cam-a"]}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.DisplayName != "Ada" || len(captured.GuestCart) != 1 {
		t.Fatalf("unexpected command: %#v", captured)
	}
	var resp signInResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Token != "token-acc_01" || !resp.ClearGuestCart || resp.ExpiresAt != "2026-03-05T00:00:00Z" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestAccountHandlersLoginErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "bad password", err: fmt.Errorf("%w: invalid credentials", services.ErrAuthorization), status: http.StatusUnauthorized},
		{name: "missing email", err: fmt.Errorf("%w: email is required", services.ErrValidation), status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			accounts := &stubAccountService{
				loginFn: func(context.Context, services.LoginCommand) (services.SignInResult, error) {
					return services.SignInResult{}, tc.err
				},
			}
			router := newAccountRouter(accounts, nil)

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"nope"}`))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestAccountHandlersLoginRateLimited(t *testing.T) {
	accounts := &stubAccountService{
		loginFn: func(context.Context, services.LoginCommand) (services.SignInResult, error) {
			return signedIn("acc_01", false), nil
		},
	}
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	router := newAccountRouter(accounts, newSimpleRateLimiter(2, time.Minute, func() time.Time { return now }))

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"pw"}`))
		req.RemoteAddr = "[2001:db8::1]:4431"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		statuses = append(statuses, rr.Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("unexpected statuses (-want +got):\n%s", diff)
	}
}

func TestAccountHandlersSignInBudgetSharedPerHost(t *testing.T) {
	calls := 0
	accounts := &stubAccountService{
		registerFn: func(context.Context, services.RegisterAccountCommand) (services.SignInResult, error) {
			calls++
			return signedIn("acc_01", false), nil
		},
		loginFn: func(context.Context, services.LoginCommand) (services.SignInResult, error) {
			calls++
			return signedIn("acc_01", false), nil
		},
	}
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	router := newAccountRouter(accounts, newSimpleRateLimiter(2, time.Minute, func() time.Time { return now }))

	send := func(path, remoteAddr, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	register := `{"email":"ada@example.com","password":"correct horse","name":"Ada"}`
	login := `{"email":"ada@example.com","password":"pw"}`

	statuses := []int{
		send("/auth/register", "203.0.113.7:5001", register),
		send("/auth/login", "203.0.113.7:5002", login),
		send("/auth/login", "203.0.113.7:5003", login),
		send("/auth/login", "198.51.100.2:5001", login),
	}
	want := []int{http.StatusCreated, http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
	if diff := cmp.Diff(want, statuses); diff != "" {
		t.Fatalf("unexpected statuses (-want +got):\n%s", diff)
	}
	if calls != 3 {
		t.Fatalf("expected limited request to skip the service, got %d calls", calls)
	}
}

func TestAccountHandlersSessionSyncsIdentity(t *testing.T) {
	var captured services.SyncFederatedCommand
	accounts := &stubAccountService{
		syncFn: func(_ context.Context, cmd services.SyncFederatedCommand) (services.SignInResult, error) {
			captured = cmd
			result := signedIn(cmd.Subject, len(cmd.GuestCart) > 0)
			result.Token = ""
			return result, nil
		},
	}
	router := newAccountRouter(accounts, nil)

	identity := &auth.Identity{UID: "firebase-uid", Email: "ada@example.com", DisplayName: "Ada", AvatarURL: "https://img.example.com/ada.png", Roles: []string{"user"}}
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"items":["lens-b"]}`)), identity)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	want := services.SyncFederatedCommand{
		Subject:     "firebase-uid",
		Email:       "ada@example.com",
		DisplayName: "Ada",
		AvatarURL:   "https://img.example.com/ada.png",
		Roles:       []string{"user"},
		GuestCart:   services.GuestCartEntries{"lens-b"},
	}
	if diff := cmp.Diff(want, captured); diff != "" {
		t.Fatalf("unexpected command (-want +got):\n%s", diff)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["clear_guest_cart"] != true {
		t.Fatalf("expected clear_guest_cart true, got %v", body["clear_guest_cart"])
	}
	if _, ok := body["token"]; ok {
		t.Fatalf("expected federated sign-in to omit token")
	}
}

func TestAccountHandlersSessionWithoutBody(t *testing.T) {
	accounts := &stubAccountService{
		syncFn: func(_ context.Context, cmd services.SyncFederatedCommand) (services.SignInResult, error) {
			if len(cmd.GuestCart) != 0 {
				t.Fatalf("expected empty guest cart, got %v", cmd.GuestCart)
			}
			return signedIn(cmd.Subject, false), nil
		},
	}
	router := newAccountRouter(accounts, nil)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/session", nil), shopperIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp signInResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ClearGuestCart {
		t.Fatalf("expected clear_guest_cart false without guest entries")
	}
}
