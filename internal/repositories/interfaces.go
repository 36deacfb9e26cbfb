package repositories

import (
	"context"
	"time"

	domain "github.com/shutterbay/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	Products() ProductRepository
	Brands() BrandRepository
	Categories() CategoryRepository
	Reviews() ReviewRepository
	Notifications() NotificationRepository
	Accounts() AccountRepository
	Wishlists() WishlistRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository stores one cart document per account. Save replaces the whole item map.
type CartRepository interface {
	// Get returns a not-found RepositoryError when the account has no cart yet.
	Get(ctx context.Context, accountID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, accountID string) error
}

// OrderRepository persists orders. Line items are stored by value inside the order document.
// Status facets are written field by field so concurrent transitions on different facets never
// overwrite each other.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	UpdatePayment(ctx context.Context, orderID string, payment domain.PaymentFacet, updatedAt time.Time) error
	UpdateDelivery(ctx context.Context, orderID string, delivery domain.DeliveryFacet, updatedAt time.Time) error
	// UpdateCancellation reads the current order and applies decide atomically with the write.
	// Nothing is written when decide reports false or returns an error; the error is returned as is.
	UpdateCancellation(ctx context.Context, orderID string, updatedAt time.Time, decide CancellationDecision) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// ListByAccount returns the account's orders newest first.
	ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error)
	// List applies the boolean facets of the filter; keyword matching is left to the caller.
	List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

// CancellationDecision inspects the stored order and returns the cancellation facet to write,
// or false to leave the order untouched.
type CancellationDecision func(current domain.Order) (domain.CancellationFacet, bool, error)

// ProductRepository persists catalog products.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID domain.ProductRef) error
	FindByID(ctx context.Context, productID domain.ProductRef) (domain.Product, error)
	// FindMany omits IDs that do not resolve to a product.
	FindMany(ctx context.Context, productIDs []domain.ProductRef) (map[domain.ProductRef]domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
}

// BrandRepository persists catalog brands.
type BrandRepository interface {
	Insert(ctx context.Context, brand domain.Brand) error
	FindByID(ctx context.Context, brandID string) (domain.Brand, error)
	List(ctx context.Context) ([]domain.Brand, error)
}

// CategoryRepository persists catalog categories.
type CategoryRepository interface {
	Insert(ctx context.Context, category domain.Category) error
	FindByID(ctx context.Context, categoryID string) (domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}

// ReviewRepository stores product reviews, at most one per account and product.
type ReviewRepository interface {
	// Insert stores the review and folds its rating into the product aggregate atomically.
	// A second review by the same account yields a conflict RepositoryError.
	Insert(ctx context.Context, review domain.Review) (domain.Product, error)
	ListByProduct(ctx context.Context, productID domain.ProductRef) ([]domain.Review, error)
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, notification domain.Notification) error
	FindByID(ctx context.Context, notificationID string) (domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string, readAt time.Time) error
	// ListVisible returns notifications addressed to the account, plus admin broadcasts when includeAdmin is set.
	ListVisible(ctx context.Context, accountID string, includeAdmin bool) ([]domain.Notification, error)
}

// AccountRepository persists shop accounts. Email addresses are unique case-insensitively.
type AccountRepository interface {
	Insert(ctx context.Context, account domain.Account) error
	Update(ctx context.Context, account domain.Account) error
	FindByID(ctx context.Context, accountID string) (domain.Account, error)
	FindByEmail(ctx context.Context, email string) (domain.Account, error)
}

// WishlistRepository stores saved products per account.
type WishlistRepository interface {
	List(ctx context.Context, accountID string) ([]domain.WishlistItem, error)
	Put(ctx context.Context, accountID string, item domain.WishlistItem) error
	Remove(ctx context.Context, accountID string, productID domain.ProductRef) error
}

// CounterRepository provides sequential number generation backed by persistent storage.
type CounterRepository interface {
	Next(ctx context.Context, counterID string) (int64, error)
}

// HealthRepository reports whether the backing store is reachable.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// ProductListFilter narrows product listings to indexed equality facets.
type ProductListFilter struct {
	BrandID    string
	CategoryID string
}
