package domain

import (
	"time"
)

// Page defines page-number based paging inputs for list operations.
type Page struct {
	Number int
	Size   int
}

// PageResult packages a single page of results together with totals.
type PageResult[T any] struct {
	Items []T
	Page  int
	Pages int
	Total int
}

// Brand groups products by manufacturer.
type Brand struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Category groups products by kind (bodies, lenses, tripods, ...).
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Product is the catalog entry a cart line or order line refers to.
type Product struct {
	ID           ProductRef
	Name         string
	Description  string
	BrandID      string
	BrandName    string
	CategoryID   string
	CategoryName string
	Price        int64
	Currency     string
	CountInStock int
	Images       []string
	Rating       float64
	NumReviews   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrimaryImage returns the first image URL or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductFilter narrows catalog listings.
type ProductFilter struct {
	Keyword    string
	BrandID    string
	CategoryID string
}

// Review is a single customer rating of a product.
type Review struct {
	ID         string
	ProductID  ProductRef
	AccountID  string
	AuthorName string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

// WishlistItem records a product an account saved for later.
type WishlistItem struct {
	ProductID ProductRef
	AddedAt   time.Time
}

// AuthProvider identifies how an account signs in.
type AuthProvider string

const (
	AuthProviderGoogle   AuthProvider = "google"
	AuthProviderPassword AuthProvider = "password"
)

// Account is the persisted profile of an authenticated shopper or administrator.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	Provider     AuthProvider
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// NotificationAudience selects who a notification is addressed to.
type NotificationAudience string

const (
	// NotificationAudienceAccount targets a single account.
	NotificationAudienceAccount NotificationAudience = "account"
	// NotificationAudienceAdmins targets every administrator.
	NotificationAudienceAdmins NotificationAudience = "admins"
)

// Notification is a side-effect record produced by order lifecycle transitions.
type Notification struct {
	ID        string
	Audience  NotificationAudience
	AccountID string
	Message   string
	Link      string
	Read      bool
	ReadAt    *time.Time
	CreatedAt time.Time
}

// IsFor reports whether the notification is addressed to the given account.
func (n Notification) IsFor(accountID string, isAdmin bool) bool {
	switch n.Audience {
	case NotificationAudienceAdmins:
		return isAdmin
	default:
		return accountID != "" && n.AccountID == accountID
	}
}
