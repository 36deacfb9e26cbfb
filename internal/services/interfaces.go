package services

import (
	"context"
	"io"
	"time"

	domain "github.com/shutterbay/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Page                 = domain.Page
	Product              = domain.Product
	ProductRef           = domain.ProductRef
	ProductFilter        = domain.ProductFilter
	Brand                = domain.Brand
	Category             = domain.Category
	Review               = domain.Review
	WishlistItem         = domain.WishlistItem
	Account              = domain.Account
	Notification         = domain.Notification
	GuestCartEntries     = domain.GuestCartEntries
	AccountCart          = domain.AccountCart
	Cart                 = domain.Cart
	CartLine             = domain.CartLine
	CartView             = domain.CartView
	Order                = domain.Order
	OrderLineItem        = domain.OrderLineItem
	OrderFilter          = domain.OrderFilter
	OrderStatus          = domain.OrderStatus
	Address              = domain.Address
	PriceBreakdown       = domain.PriceBreakdown
	PaymentResult        = domain.PaymentResult
	NotificationAudience = domain.NotificationAudience
)

// Actor identifies who is performing an operation. Account identity is always passed explicitly.
type Actor struct {
	AccountID string
	IsAdmin   bool
}

// CartService reconciles guest carts with persisted account carts.
type CartService interface {
	// LoadCart returns the account cart, creating an empty one when absent. With no account it
	// returns the collapsed guest cart.
	LoadCart(ctx context.Context, accountID string, guest GuestCartEntries) (CartView, error)
	// MergeGuestCart adds the guest counts to the account cart. Calling it twice double-adds.
	MergeGuestCart(ctx context.Context, accountID string, guest GuestCartEntries) (CartView, error)
	AddOne(ctx context.Context, accountID string, productID ProductRef) (CartView, error)
	RemoveOne(ctx context.Context, accountID string, productID ProductRef) (CartView, error)
	Clear(ctx context.Context, accountID string) error
}

// OrderService exposes the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	MarkPaid(ctx context.Context, cmd MarkOrderPaidCommand) (Order, error)
	MarkDelivered(ctx context.Context, cmd OrderActionCommand) (Order, error)
	Cancel(ctx context.Context, cmd OrderActionCommand) (Order, error)
	Get(ctx context.Context, cmd OrderActionCommand) (Order, error)
	ListOwn(ctx context.Context, accountID string) ([]Order, error)
	List(ctx context.Context, cmd ListOrdersCommand) (domain.PageResult[Order], error)
}

// CheckoutService turns a cart or explicit item list into a priced order.
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
}

// CatalogService serves products, brands and categories.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter, page Page) (domain.PageResult[Product], error)
	GetProduct(ctx context.Context, productID ProductRef) (ProductDetail, error)
	FindProducts(ctx context.Context, productIDs []ProductRef) (map[ProductRef]Product, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	ListCategories(ctx context.Context) ([]Category, error)
	CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error)
	CreateBrand(ctx context.Context, cmd CreateTaxonomyCommand) (Brand, error)
	CreateCategory(ctx context.Context, cmd CreateTaxonomyCommand) (Category, error)
	UploadProductImage(ctx context.Context, cmd UploadProductImageCommand) (Product, error)
}

// ReviewService records product reviews.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	ListByProduct(ctx context.Context, productID ProductRef) ([]Review, error)
}

// WishlistService manages the per-account saved product list.
type WishlistService interface {
	List(ctx context.Context, accountID string) ([]WishlistEntry, error)
	Add(ctx context.Context, accountID string, productID ProductRef) (WishlistItem, error)
	Remove(ctx context.Context, accountID string, productID ProductRef) error
}

// NotificationService records and serves in-app notifications.
type NotificationService interface {
	Notify(ctx context.Context, cmd NotifyCommand) (Notification, error)
	List(ctx context.Context, actor Actor) ([]Notification, error)
	MarkRead(ctx context.Context, cmd MarkNotificationReadCommand) (Notification, error)
}

// AccountService registers accounts, authenticates passwords and keeps federated profiles current.
type AccountService interface {
	Register(ctx context.Context, cmd RegisterAccountCommand) (SignInResult, error)
	Login(ctx context.Context, cmd LoginCommand) (SignInResult, error)
	SyncFederated(ctx context.Context, cmd SyncFederatedCommand) (SignInResult, error)
	Get(ctx context.Context, accountID string) (Account, error)
}

// SystemService reports readiness of downstream dependencies.
type SystemService interface {
	Readiness(ctx context.Context) ReadinessReport
}

// Command and result DTOs -------------------------------------------------

type CreateOrderCommand struct {
	AccountID       string
	AccountEmail    string
	AccountName     string
	Items           []OrderLineItem
	ShippingAddress Address
	PaymentMethod   string
	Currency        string
	Prices          PriceBreakdown
}

type MarkOrderPaidCommand struct {
	OrderID string
	Actor   Actor
	Result  PaymentResult
}

type OrderActionCommand struct {
	OrderID string
	Actor   Actor
}

type ListOrdersCommand struct {
	Actor  Actor
	Filter OrderFilter
	Page   Page
}

type CheckoutItem struct {
	ProductID ProductRef
	Quantity  int
}

type PlaceOrderCommand struct {
	AccountID       string
	AccountEmail    string
	AccountName     string
	Items           []CheckoutItem
	ShippingAddress Address
	PaymentMethod   string
}

// ProductDetail pairs a product with its rendered, sanitised description.
type ProductDetail struct {
	Product         Product
	DescriptionHTML string
}

type UpsertProductCommand struct {
	ProductID    ProductRef
	Name         string
	Description  string
	BrandID      string
	CategoryID   string
	Price        int64
	CountInStock int
	Images       []string
}

type CreateTaxonomyCommand struct {
	Name string
	Slug string
}

type UploadProductImageCommand struct {
	ProductID ProductRef
	FileName  string
	Body      io.Reader
}

type CreateReviewCommand struct {
	ProductID  ProductRef
	AccountID  string
	AuthorName string
	Rating     int
	Comment    string
}

// WishlistEntry is a wishlist item with its product, when the product still exists.
type WishlistEntry struct {
	Item    WishlistItem
	Product *Product
}

type NotifyCommand struct {
	Audience  NotificationAudience
	AccountID string
	Message   string
	Link      string
}

type MarkNotificationReadCommand struct {
	NotificationID string
	Actor          Actor
}

type RegisterAccountCommand struct {
	Email       string
	Password    string
	DisplayName string
	GuestCart   GuestCartEntries
}

type LoginCommand struct {
	Email     string
	Password  string
	GuestCart GuestCartEntries
}

// SyncFederatedCommand carries the verified identity from an external identity provider.
type SyncFederatedCommand struct {
	Subject     string
	Email       string
	DisplayName string
	AvatarURL   string
	Roles       []string
	GuestCart   GuestCartEntries
}

// SignInResult is returned by every sign-in path. ClearGuestCart tells the client to drop its
// local cart because the entries have been merged server side.
type SignInResult struct {
	Account        Account
	Token          string
	ExpiresAt      time.Time
	Cart           CartView
	ClearGuestCart bool
}

type ReadinessCheck struct {
	Name    string
	Healthy bool
	Error   string
}

type ReadinessReport struct {
	Ready  bool
	Checks []ReadinessCheck
}

// Collaborator ports --------------------------------------------------------

// EmailMessage is a templated transactional email handed to the mail pipeline.
type EmailMessage struct {
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Mailer delivers transactional email.
type Mailer interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// OrderEvent describes a lifecycle transition for downstream consumers.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	AccountID   string    `json:"account_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Status      string    `json:"status"`
	Total       int64     `json:"total"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OrderEventPublisher publishes order lifecycle events.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// ProductCache is a read-through cache for product lookups.
type ProductCache interface {
	GetProduct(ctx context.Context, productID ProductRef) (Product, bool, error)
	PutProduct(ctx context.Context, product Product) error
	InvalidateProducts(ctx context.Context, productIDs ...ProductRef) error
}

// ImageStore uploads product images and returns their public URL.
type ImageStore interface {
	PutProductImage(ctx context.Context, productID, fileName string, body io.Reader) (string, error)
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionIssuer mints session tokens for authenticated accounts.
type SessionIssuer interface {
	IssueSession(account Account) (token string, expiresAt time.Time, err error)
}

// ReadinessProbe checks one downstream dependency.
type ReadinessProbe interface {
	Ping(ctx context.Context) error
}
