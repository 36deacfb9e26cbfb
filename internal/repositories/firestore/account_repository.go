package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const (
	accountsCollection     = "accounts"
	accountEmailCollection = "accountEmails"
)

type accountDocument struct {
	Email        string     `firestore:"email"`
	DisplayName  string     `firestore:"displayName"`
	AvatarURL    string     `firestore:"avatarUrl,omitempty"`
	Provider     string     `firestore:"provider"`
	PasswordHash string     `firestore:"passwordHash,omitempty"`
	Roles        []string   `firestore:"roles"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
	LastLoginAt  *time.Time `firestore:"lastLoginAt,omitempty"`
}

// accountEmailDocument reserves an email address for one account.
type accountEmailDocument struct {
	AccountID string    `firestore:"accountId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// AccountRepository persists shop accounts and enforces unique email addresses.
type AccountRepository struct {
	provider *pfirestore.Provider
	accounts *pfirestore.BaseRepository[accountDocument]
	emails   *pfirestore.BaseRepository[accountEmailDocument]
}

// NewAccountRepository constructs a Firestore-backed account repository.
func NewAccountRepository(provider *pfirestore.Provider) (*AccountRepository, error) {
	if provider == nil {
		return nil, errors.New("account repository requires firestore provider")
	}
	return &AccountRepository{
		provider: provider,
		accounts: pfirestore.NewBaseRepository[accountDocument](provider, accountsCollection),
		emails:   pfirestore.NewBaseRepository[accountEmailDocument](provider, accountEmailCollection),
	}, nil
}

// Insert creates the account and reserves its email. A taken email yields a conflict.
func (r *AccountRepository) Insert(ctx context.Context, account domain.Account) error {
	if r == nil || r.provider == nil {
		return errors.New("account repository not initialised")
	}
	accountID := strings.TrimSpace(account.ID)
	email := emailKey(account.Email)
	if accountID == "" || email == "" {
		return errors.New("account repository: id and email are required")
	}

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, taken, err := r.emails.GetTx(ctx, tx, email)
		if err != nil {
			return err
		}
		if taken {
			return pfirestore.Conflict("accounts.insert", "email already registered")
		}
		emailRef, err := r.emails.DocumentRef(ctx, email)
		if err != nil {
			return err
		}
		accountRef, err := r.accounts.DocumentRef(ctx, accountID)
		if err != nil {
			return err
		}
		if err := tx.Create(emailRef, accountEmailDocument{AccountID: accountID, CreatedAt: account.CreatedAt.UTC()}); err != nil {
			return err
		}
		return tx.Create(accountRef, encodeAccount(account))
	})
	return pfirestore.WrapError("accounts.insert", err)
}

// Update overwrites profile fields. The email reservation is left untouched.
func (r *AccountRepository) Update(ctx context.Context, account domain.Account) error {
	if r == nil || r.accounts == nil {
		return errors.New("account repository not initialised")
	}
	_, err := r.accounts.Set(ctx, strings.TrimSpace(account.ID), encodeAccount(account))
	return err
}

func (r *AccountRepository) FindByID(ctx context.Context, accountID string) (domain.Account, error) {
	if r == nil || r.accounts == nil {
		return domain.Account{}, errors.New("account repository not initialised")
	}
	doc, err := r.accounts.Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return domain.Account{}, err
	}
	return decodeAccount(doc), nil
}

// FindByEmail resolves the email reservation and then loads the account.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	if r == nil || r.emails == nil {
		return domain.Account{}, errors.New("account repository not initialised")
	}
	key := emailKey(email)
	if key == "" {
		return domain.Account{}, pfirestore.NotFound("accounts.find_by_email", email)
	}
	reservation, err := r.emails.Get(ctx, key)
	if err != nil {
		return domain.Account{}, err
	}
	return r.FindByID(ctx, reservation.Data.AccountID)
}

func encodeAccount(a domain.Account) accountDocument {
	return accountDocument{
		Email:        strings.TrimSpace(a.Email),
		DisplayName:  a.DisplayName,
		AvatarURL:    a.AvatarURL,
		Provider:     string(a.Provider),
		PasswordHash: a.PasswordHash,
		Roles:        append([]string(nil), a.Roles...),
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
		LastLoginAt:  utcPtr(a.LastLoginAt),
	}
}

func decodeAccount(doc pfirestore.Document[accountDocument]) domain.Account {
	return domain.Account{
		ID:           doc.ID,
		Email:        doc.Data.Email,
		DisplayName:  doc.Data.DisplayName,
		AvatarURL:    doc.Data.AvatarURL,
		Provider:     domain.AuthProvider(doc.Data.Provider),
		PasswordHash: doc.Data.PasswordHash,
		Roles:        append([]string(nil), doc.Data.Roles...),
		CreatedAt:    doc.Data.CreatedAt.UTC(),
		UpdatedAt:    doc.Data.UpdatedAt.UTC(),
		LastLoginAt:  utcPtr(doc.Data.LastLoginAt),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
