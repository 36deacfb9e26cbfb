package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/shutterbay/api/internal/platform/config"
)

const (
	defaultRoleClaim    = "role"
	defaultFallbackRole = RoleUser
)

// TokenVerifier verifies Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseVerifier coordinates Firebase Admin SDK initialisation for token verification.
type FirebaseVerifier struct {
	client  *firebaseauth.Client
	timeout time.Duration
}

// NewFirebaseVerifier constructs a FirebaseVerifier backed by the Admin SDK.
func NewFirebaseVerifier(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	var clientOpts []option.ClientOption
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise firebase auth client: %w", err)
	}

	return &FirebaseVerifier{client: authClient, timeout: defaultVerifyTimeout}, nil
}

// VerifyIDToken forwards verification to the underlying Firebase client using a bounded context.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error) {
	if v == nil || v.client == nil {
		return nil, errors.New("firebase verifier not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return v.client.VerifyIDToken(ctx, idToken)
}

// FirebaseIdentities turns verified Firebase ID tokens (Google sign-in) into identities.
type FirebaseIdentities struct {
	verifier     TokenVerifier
	roleClaim    string
	fallbackRole string
}

// NewFirebaseIdentities wraps a TokenVerifier. Roles come from the "role" custom claim.
func NewFirebaseIdentities(verifier TokenVerifier) *FirebaseIdentities {
	return &FirebaseIdentities{
		verifier:     verifier,
		roleClaim:    defaultRoleClaim,
		fallbackRole: defaultFallbackRole,
	}
}

// VerifyIdentity implements IdentityVerifier.
func (f *FirebaseIdentities) VerifyIdentity(ctx context.Context, token string) (*Identity, error) {
	if f == nil || f.verifier == nil {
		return nil, ErrTokenNotRecognised
	}
	decoded, err := f.verifier.VerifyIDToken(ctx, token)
	if err != nil {
		switch {
		case firebaseauth.IsIDTokenExpired(err):
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}

	identity := &Identity{
		UID:         decoded.UID,
		Email:       claimAsString(decoded.Claims, "email"),
		DisplayName: claimAsString(decoded.Claims, "name"),
		AvatarURL:   claimAsString(decoded.Claims, "picture"),
		Provider:    "google",
		Roles:       rolesFromClaims(decoded.Claims, f.roleClaim),
	}
	if provider := decoded.Firebase.SignInProvider; provider != "" && provider != "google.com" {
		identity.Provider = provider
	}
	if len(identity.Roles) == 0 {
		identity.Roles = []string{f.fallbackRole}
	}
	return identity, nil
}

func rolesFromClaims(claims map[string]interface{}, key string) []string {
	switch v := claims[key].(type) {
	case string:
		return normaliseRoles([]string{v})
	case []string:
		return normaliseRoles(v)
	case []interface{}:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				roles = append(roles, s)
			}
		}
		return normaliseRoles(roles)
	case map[string]interface{}:
		roles := make([]string, 0, len(v))
		for role, enabled := range v {
			if b, ok := enabled.(bool); ok && b {
				roles = append(roles, role)
			}
		}
		return normaliseRoles(roles)
	default:
		return nil
	}
}

func claimAsString(claims map[string]interface{}, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
