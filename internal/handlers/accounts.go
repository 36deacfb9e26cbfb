package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/platform/httpx"
	"github.com/shutterbay/api/internal/services"
)

const maxAuthBodySize = 32 * 1024

// AccountHandlers serves password registration, login and federated session sync.
type AccountHandlers struct {
	authn    *auth.Authenticator
	accounts services.AccountService
	limiter  RateLimiter
}

// NewAccountHandlers constructs the sign-in handlers. limiter may be nil.
func NewAccountHandlers(authn *auth.Authenticator, accounts services.AccountService, limiter RateLimiter) *AccountHandlers {
	return &AccountHandlers{authn: authn, accounts: accounts, limiter: limiter}
}

// AuthRoutes registers /auth endpoints.
func (h *AccountHandlers) AuthRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

// SessionRoutes registers the federated sign-in endpoint. The bearer token is the external ID token.
func (h *AccountHandlers) SessionRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.syncSession)
}

type registerRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Name      string   `json:"name"`
	GuestCart []string `json:"guest_cart"`
}

type loginRequest struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	GuestCart []string `json:"guest_cart"`
}

type signInResponse struct {
	Account        accountPayload `json:"account"`
	Token          string         `json:"token,omitempty"`
	ExpiresAt      string         `json:"expires_at,omitempty"`
	Cart           cartPayload    `json:"cart"`
	ClearGuestCart bool           `json:"clear_guest_cart"`
}

func buildSignInResponse(result services.SignInResult) signInResponse {
	return signInResponse{
		Account:        buildAccountPayload(result.Account),
		Token:          result.Token,
		ExpiresAt:      formatTime(result.ExpiresAt),
		Cart:           buildCartPayload(result.Cart),
		ClearGuestCart: result.ClearGuestCart,
	}
}

func (h *AccountHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		serviceUnavailable(ctx, w, "account")
		return
	}
	if !h.allow(w, r) {
		return
	}
	var req registerRequest
	if !decodeJSONBody(ctx, w, r, maxAuthBodySize, &req, false) {
		return
	}
	result, err := h.accounts.Register(ctx, services.RegisterAccountCommand{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Name,
		GuestCart:   guestCartRequest{Items: req.GuestCart}.entries(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildSignInResponse(result))
}

func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		serviceUnavailable(ctx, w, "account")
		return
	}
	if !h.allow(w, r) {
		return
	}
	var req loginRequest
	if !decodeJSONBody(ctx, w, r, maxAuthBodySize, &req, false) {
		return
	}
	result, err := h.accounts.Login(ctx, services.LoginCommand{
		Email:     req.Email,
		Password:  req.Password,
		GuestCart: guestCartRequest{Items: req.GuestCart}.entries(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignInResponse(result))
}

func (h *AccountHandlers) syncSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		serviceUnavailable(ctx, w, "account")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req guestCartRequest
	if !decodeJSONBody(ctx, w, r, maxAuthBodySize, &req, true) {
		return
	}
	result, err := h.accounts.SyncFederated(ctx, services.SyncFederatedCommand{
		Subject:     identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		Roles:       identity.Roles,
		GuestCart:   req.entries(),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildSignInResponse(result))
}

// allow applies the per-client sign-in rate limit. Register and login share one budget per
// client host; the port is dropped so every connection from a host counts against one window.
func (h *AccountHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	key := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(key); err == nil {
		key = host
	}
	if h.limiter.Allow(key) {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many sign-in attempts, retry later", http.StatusTooManyRequests))
	return false
}
