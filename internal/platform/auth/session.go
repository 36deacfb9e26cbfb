package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	domain "github.com/shutterbay/api/internal/domain"
)

var errSessionKeyMissing = errors.New("auth: session signing key is required")

// SessionTokens issues and verifies HS256 session tokens for password accounts.
type SessionTokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// SessionOption customises SessionTokens.
type SessionOption func(*SessionTokens)

// WithSessionClock injects the clock used when issuing tokens.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(s *SessionTokens) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewSessionTokens constructs a token issuer bound to a signing key and issuer name.
func NewSessionTokens(key, issuer string, ttl time.Duration, opts ...SessionOption) (*SessionTokens, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errSessionKeyMissing
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	s := &SessionTokens{
		key:    []byte(key),
		issuer: strings.TrimSpace(issuer),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email,omitempty"`
	Name     string   `json:"name,omitempty"`
	Picture  string   `json:"picture,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// Issue signs a session token for the identity and returns it with its expiry.
func (s *SessionTokens) Issue(identity Identity) (string, time.Time, error) {
	if s == nil {
		return "", time.Time{}, errSessionKeyMissing
	}
	if strings.TrimSpace(identity.UID) == "" {
		return "", time.Time{}, errors.New("auth: identity uid is required")
	}
	now := s.now().UTC()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:    identity.Email,
		Name:     identity.DisplayName,
		Picture:  identity.AvatarURL,
		Provider: identity.Provider,
		Roles:    normaliseRoles(identity.Roles),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, expires, nil
}

// IssueSession signs a session token carrying the account's profile and roles.
func (s *SessionTokens) IssueSession(account domain.Account) (string, time.Time, error) {
	return s.Issue(Identity{
		UID:         account.ID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Provider:    string(account.Provider),
		Roles:       account.Roles,
	})
}

// VerifyIdentity implements IdentityVerifier. Tokens from other issuers are reported as not recognised.
func (s *SessionTokens) VerifyIdentity(_ context.Context, token string) (*Identity, error) {
	if s == nil {
		return nil, ErrTokenNotRecognised
	}

	var peek sessionClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &peek); err != nil || peek.Issuer != s.issuer {
		return nil, ErrTokenNotRecognised
	}

	var claims sessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject missing", ErrTokenInvalid)
	}

	roles := normaliseRoles(claims.Roles)
	if len(roles) == 0 {
		roles = []string{defaultFallbackRole}
	}
	return &Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		AvatarURL:   claims.Picture,
		Provider:    claims.Provider,
		Roles:       roles,
	}, nil
}
