package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shutterbay/api/internal/platform/requestctx"
)

const defaultVerifyTimeout = 5 * time.Second

var (
	// ErrTokenExpired signals that the provided bearer token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the provided bearer token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenNotRecognised is returned by a verifier when the token was not minted by it.
	ErrTokenNotRecognised = errors.New("auth: token not recognised")
)

// IdentityVerifier resolves a bearer token into an Identity.
type IdentityVerifier interface {
	VerifyIdentity(ctx context.Context, token string) (*Identity, error)
}

// Authenticator wires bearer token verification into HTTP middleware. Verifiers are
// consulted in order until one recognises the token.
type Authenticator struct {
	verifiers []IdentityVerifier
	timeout   time.Duration
}

// Option customises Authenticator behaviour.
type Option func(*Authenticator)

// WithVerificationTimeout sets the timeout used when verifying tokens.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs an Authenticator from the given verifiers.
func NewAuthenticator(verifiers []IdentityVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{timeout: defaultVerifyTimeout}
	for _, v := range verifiers {
		if v != nil {
			a.verifiers = append(a.verifiers, v)
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Verify resolves a raw bearer token using the configured verifier chain.
func (a *Authenticator) Verify(ctx context.Context, token string) (*Identity, error) {
	if a == nil || len(a.verifiers) == 0 {
		return nil, ErrTokenNotRecognised
	}
	ctx, cancel := a.contextWithTimeout(ctx)
	if cancel != nil {
		defer cancel()
	}
	for _, v := range a.verifiers {
		identity, err := v.VerifyIdentity(ctx, token)
		if errors.Is(err, ErrTokenNotRecognised) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return identity, nil
	}
	return nil, ErrTokenNotRecognised
}

// RequireAuth verifies the Authorization bearer token and ensures allowed roles.
// A role mismatch answers 401 insufficient_role, matching the historical storefront contract.
func (a *Authenticator) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, role := range normaliseRoles(allowedRoles) {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}
			if a == nil || len(a.verifiers) == 0 {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization service unavailable")
				return
			}

			identity, err := a.Verify(r.Context(), tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}
			if len(identity.Roles) == 0 {
				respondAuthError(w, http.StatusUnauthorized, "missing_role", "no roles associated with identity")
				return
			}
			if len(allowed) > 0 && !hasAllowedRole(identity.Roles, allowed) {
				respondAuthError(w, http.StatusUnauthorized, "insufficient_role", "identity does not have required role")
				return
			}

			next.ServeHTTP(w, r.WithContext(attachIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches an identity when a bearer token is present and lets anonymous requests through.
func (a *Authenticator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := a.Verify(r.Context(), tokenStr)
			if err != nil {
				respondVerificationError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(attachIdentity(r.Context(), identity)))
		})
	}
}

// attachIdentity stores the identity and tags the request logger with the account id.
func attachIdentity(ctx context.Context, identity *Identity) context.Context {
	logger := requestctx.Logger(ctx).With(zap.String("account_id", identity.UID))
	return WithIdentity(requestctx.WithLogger(ctx, logger), identity)
}

func (a *Authenticator) contextWithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a == nil || a.timeout <= 0 {
		return ctx, nil
	}
	return context.WithTimeout(ctx, a.timeout)
}

func hasAllowedRole(identityRoles []string, allowed map[string]struct{}) bool {
	for _, role := range identityRoles {
		if _, ok := allowed[normaliseRole(role)]; ok {
			return true
		}
	}
	return false
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func respondAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   code,
		"message": message,
		"status":  status,
	})
}

func respondVerificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		respondAuthError(w, http.StatusUnauthorized, "token_expired", "bearer token expired")
	case errors.Is(err, ErrTokenNotRecognised):
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "bearer token not recognised")
	default:
		respondAuthError(w, http.StatusUnauthorized, "invalid_token", "bearer token invalid")
	}
}
