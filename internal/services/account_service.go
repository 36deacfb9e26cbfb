package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/repositories"
)

const (
	minPasswordLength   = 8
	maxPasswordLength   = 72
	maxDisplayNameRunes = 80
	roleUser            = "user"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthorization)

// AccountServiceDeps wires account persistence, credentials and the cart merge performed at sign-in.
type AccountServiceDeps struct {
	Accounts    repositories.AccountRepository
	Carts       CartService
	Passwords   PasswordHasher
	Sessions    SessionIssuer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type accountService struct {
	accounts  repositories.AccountRepository
	carts     CartService
	passwords PasswordHasher
	sessions  SessionIssuer
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewAccountService constructs the account service.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	if deps.Accounts == nil {
		return nil, errors.New("account service: account repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("account service: cart service is required")
	}
	if deps.Passwords == nil || deps.Sessions == nil {
		return nil, errors.New("account service: password hasher and session issuer are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &accountService{
		accounts:  deps.Accounts,
		carts:     deps.Carts,
		passwords: deps.Passwords,
		sessions:  deps.Sessions,
		now:       func() time.Time { return clock().UTC() },
		newID:     idGen,
		logger:    logger,
	}, nil
}

func (s *accountService) Register(ctx context.Context, cmd RegisterAccountCommand) (SignInResult, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return SignInResult{}, err
	}
	name := strings.TrimSpace(cmd.DisplayName)
	switch {
	case name == "":
		return SignInResult{}, validationError("name is required")
	case len([]rune(name)) > maxDisplayNameRunes:
		return SignInResult{}, validationError("name must be at most %d characters", maxDisplayNameRunes)
	case len(cmd.Password) < minPasswordLength:
		return SignInResult{}, validationError("password must be at least %d characters", minPasswordLength)
	case len(cmd.Password) > maxPasswordLength:
		return SignInResult{}, validationError("password must be at most %d bytes", maxPasswordLength)
	}

	hash, err := s.passwords.Hash(cmd.Password)
	if err != nil {
		return SignInResult{}, err
	}
	now := s.now()
	account := Account{
		ID:           "acc_" + s.newID(),
		Email:        email,
		DisplayName:  name,
		Provider:     domain.AuthProviderPassword,
		PasswordHash: hash,
		Roles:        []string{roleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  &now,
	}
	if err := s.accounts.Insert(ctx, account); err != nil {
		if errors.Is(mapRepositoryError(err), ErrConflict) {
			return SignInResult{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return SignInResult{}, mapRepositoryError(err)
	}
	s.logger(ctx, "account.registered", map[string]any{"accountID": account.ID})
	return s.signIn(ctx, account, cmd.GuestCart, true)
}

func (s *accountService) Login(ctx context.Context, cmd LoginCommand) (SignInResult, error) {
	email, err := normaliseEmail(cmd.Email)
	if err != nil {
		return SignInResult{}, errInvalidCredentials
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if isRepoNotFound(err) {
			return SignInResult{}, errInvalidCredentials
		}
		return SignInResult{}, mapRepositoryError(err)
	}
	if account.Provider != domain.AuthProviderPassword || account.PasswordHash == "" {
		return SignInResult{}, errInvalidCredentials
	}
	if err := s.passwords.Compare(account.PasswordHash, cmd.Password); err != nil {
		return SignInResult{}, errInvalidCredentials
	}

	now := s.now()
	account.LastLoginAt = &now
	if err := s.accounts.Update(ctx, account); err != nil {
		s.logger(ctx, "account.last_login_update_failed", map[string]any{"accountID": account.ID, "error": err})
	}
	return s.signIn(ctx, account, cmd.GuestCart, true)
}

// SyncFederated creates or refreshes the account for an identity verified by the external
// identity provider. The provider's token stays the bearer credential, so no session is minted.
func (s *accountService) SyncFederated(ctx context.Context, cmd SyncFederatedCommand) (SignInResult, error) {
	subject := strings.TrimSpace(cmd.Subject)
	if subject == "" {
		return SignInResult{}, validationError("identity subject is required")
	}
	now := s.now()
	roles := lo.Uniq(append([]string{roleUser}, lo.Map(cmd.Roles, func(r string, _ int) string {
		return strings.ToLower(strings.TrimSpace(r))
	})...))
	roles = lo.Compact(roles)

	account, err := s.accounts.FindByID(ctx, subject)
	switch {
	case err == nil:
		account.DisplayName = firstNonEmpty(strings.TrimSpace(cmd.DisplayName), account.DisplayName)
		account.AvatarURL = firstNonEmpty(strings.TrimSpace(cmd.AvatarURL), account.AvatarURL)
		account.Roles = roles
		account.UpdatedAt = now
		account.LastLoginAt = &now
		if err := s.accounts.Update(ctx, account); err != nil {
			return SignInResult{}, mapRepositoryError(err)
		}
	case isRepoNotFound(err):
		email, emailErr := normaliseEmail(cmd.Email)
		if emailErr != nil {
			return SignInResult{}, emailErr
		}
		account = Account{
			ID:          subject,
			Email:       email,
			DisplayName: firstNonEmpty(strings.TrimSpace(cmd.DisplayName), email),
			AvatarURL:   strings.TrimSpace(cmd.AvatarURL),
			Provider:    domain.AuthProviderGoogle,
			Roles:       roles,
			CreatedAt:   now,
			UpdatedAt:   now,
			LastLoginAt: &now,
		}
		if err := s.accounts.Insert(ctx, account); err != nil {
			if errors.Is(mapRepositoryError(err), ErrConflict) {
				return SignInResult{}, fmt.Errorf("%w: email is registered with a password account", ErrConflict)
			}
			return SignInResult{}, mapRepositoryError(err)
		}
		s.logger(ctx, "account.federated_created", map[string]any{"accountID": account.ID})
	default:
		return SignInResult{}, mapRepositoryError(err)
	}
	return s.signIn(ctx, account, cmd.GuestCart, false)
}

func (s *accountService) Get(ctx context.Context, accountID string) (Account, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Account{}, validationError("account id is required")
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return Account{}, mapRepositoryError(err)
	}
	return account, nil
}

// signIn merges the guest cart into the account cart. When the merge fails the sign-in still
// succeeds but ClearGuestCart stays false so the client keeps its entries for the next attempt.
func (s *accountService) signIn(ctx context.Context, account Account, guest GuestCartEntries, issueSession bool) (SignInResult, error) {
	result := SignInResult{Account: account}
	if issueSession {
		token, expires, err := s.sessions.IssueSession(account)
		if err != nil {
			return SignInResult{}, fmt.Errorf("%w: issue session: %v", ErrUpstream, err)
		}
		result.Token = token
		result.ExpiresAt = expires
	}

	if len(guest) == 0 {
		view, err := s.carts.LoadCart(ctx, account.ID, nil)
		if err != nil {
			s.logger(ctx, "account.cart_load_failed", map[string]any{"accountID": account.ID, "error": err})
		}
		result.Cart = view
		return result, nil
	}

	view, err := s.carts.MergeGuestCart(ctx, account.ID, guest)
	if err != nil {
		s.logger(ctx, "account.guest_merge_failed", map[string]any{"accountID": account.ID, "error": err})
		result.Cart = view
		return result, nil
	}
	result.Cart = view
	result.ClearGuestCart = true
	return result, nil
}

func normaliseEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", validationError("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", validationError("email %q is not valid", raw)
	}
	return strings.ToLower(addr.Address), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
