package handlers

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

var errStubNotImplemented = errors.New("not implemented")

func withIdentity(req *http.Request, identity *auth.Identity) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func shopperIdentity() *auth.Identity {
	return &auth.Identity{UID: "acc-1", Email: "ada@example.com", DisplayName: "Ada", Roles: []string{auth.RoleUser}}
}

func adminIdentity() *auth.Identity {
	return &auth.Identity{UID: "acc-admin", Email: "ops@example.com", DisplayName: "Ops", Roles: []string{auth.RoleUser, auth.RoleAdmin}}
}

type stubOrderService struct {
	createFn   func(context.Context, services.CreateOrderCommand) (services.Order, error)
	markPaidFn func(context.Context, services.MarkOrderPaidCommand) (services.Order, error)
	deliverFn  func(context.Context, services.OrderActionCommand) (services.Order, error)
	cancelFn   func(context.Context, services.OrderActionCommand) (services.Order, error)
	getFn      func(context.Context, services.OrderActionCommand) (services.Order, error)
	listOwnFn  func(context.Context, string) ([]services.Order, error)
	listFn     func(context.Context, services.ListOrdersCommand) (domain.PageResult[services.Order], error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

func (s *stubOrderService) MarkPaid(ctx context.Context, cmd services.MarkOrderPaidCommand) (services.Order, error) {
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

func (s *stubOrderService) MarkDelivered(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
	if s.deliverFn != nil {
		return s.deliverFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

func (s *stubOrderService) Get(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

func (s *stubOrderService) ListOwn(ctx context.Context, accountID string) ([]services.Order, error) {
	if s.listOwnFn != nil {
		return s.listOwnFn(ctx, accountID)
	}
	return nil, errStubNotImplemented
}

func (s *stubOrderService) List(ctx context.Context, cmd services.ListOrdersCommand) (domain.PageResult[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, cmd)
	}
	return domain.PageResult[services.Order]{}, errStubNotImplemented
}

type stubCheckoutService struct {
	placeFn func(context.Context, services.PlaceOrderCommand) (services.Order, error)
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	if s.placeFn != nil {
		return s.placeFn(ctx, cmd)
	}
	return services.Order{}, errStubNotImplemented
}

type stubCartService struct {
	loadFn   func(context.Context, string, services.GuestCartEntries) (services.CartView, error)
	mergeFn  func(context.Context, string, services.GuestCartEntries) (services.CartView, error)
	addFn    func(context.Context, string, services.ProductRef) (services.CartView, error)
	removeFn func(context.Context, string, services.ProductRef) (services.CartView, error)
}

func (s *stubCartService) LoadCart(ctx context.Context, accountID string, guest services.GuestCartEntries) (services.CartView, error) {
	if s.loadFn != nil {
		return s.loadFn(ctx, accountID, guest)
	}
	return services.CartView{}, errStubNotImplemented
}

func (s *stubCartService) MergeGuestCart(ctx context.Context, accountID string, guest services.GuestCartEntries) (services.CartView, error) {
	if s.mergeFn != nil {
		return s.mergeFn(ctx, accountID, guest)
	}
	return services.CartView{}, errStubNotImplemented
}

func (s *stubCartService) AddOne(ctx context.Context, accountID string, productID services.ProductRef) (services.CartView, error) {
	if s.addFn != nil {
		return s.addFn(ctx, accountID, productID)
	}
	return services.CartView{}, errStubNotImplemented
}

func (s *stubCartService) RemoveOne(ctx context.Context, accountID string, productID services.ProductRef) (services.CartView, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, accountID, productID)
	}
	return services.CartView{}, errStubNotImplemented
}

func (s *stubCartService) Clear(context.Context, string) error {
	return nil
}

type stubCatalogService struct {
	listFn     func(context.Context, services.ProductFilter, services.Page) (domain.PageResult[services.Product], error)
	getFn      func(context.Context, services.ProductRef) (services.ProductDetail, error)
	createFn   func(context.Context, services.UpsertProductCommand) (services.Product, error)
	updateFn   func(context.Context, services.UpsertProductCommand) (services.Product, error)
	brandFn    func(context.Context, services.CreateTaxonomyCommand) (services.Brand, error)
	categoryFn func(context.Context, services.CreateTaxonomyCommand) (services.Category, error)
	uploadFn   func(context.Context, services.UploadProductImageCommand) (services.Product, error)
	brands     []services.Brand
	categories []services.Category
}

func (s *stubCatalogService) ListProducts(ctx context.Context, filter services.ProductFilter, page services.Page) (domain.PageResult[services.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter, page)
	}
	return domain.PageResult[services.Product]{}, errStubNotImplemented
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID services.ProductRef) (services.ProductDetail, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	return services.ProductDetail{}, errStubNotImplemented
}

func (s *stubCatalogService) FindProducts(context.Context, []services.ProductRef) (map[services.ProductRef]services.Product, error) {
	return map[services.ProductRef]services.Product{}, nil
}

func (s *stubCatalogService) ListBrands(context.Context) ([]services.Brand, error) {
	return s.brands, nil
}

func (s *stubCatalogService) ListCategories(context.Context) ([]services.Category, error) {
	return s.categories, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Product{}, errStubNotImplemented
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.Product{}, errStubNotImplemented
}

func (s *stubCatalogService) CreateBrand(ctx context.Context, cmd services.CreateTaxonomyCommand) (services.Brand, error) {
	if s.brandFn != nil {
		return s.brandFn(ctx, cmd)
	}
	return services.Brand{}, errStubNotImplemented
}

func (s *stubCatalogService) CreateCategory(ctx context.Context, cmd services.CreateTaxonomyCommand) (services.Category, error) {
	if s.categoryFn != nil {
		return s.categoryFn(ctx, cmd)
	}
	return services.Category{}, errStubNotImplemented
}

func (s *stubCatalogService) UploadProductImage(ctx context.Context, cmd services.UploadProductImageCommand) (services.Product, error) {
	if s.uploadFn != nil {
		return s.uploadFn(ctx, cmd)
	}
	return services.Product{}, errStubNotImplemented
}

type stubReviewService struct {
	createFn func(context.Context, services.CreateReviewCommand) (services.Review, error)
	listFn   func(context.Context, services.ProductRef) ([]services.Review, error)
}

func (s *stubReviewService) Create(ctx context.Context, cmd services.CreateReviewCommand) (services.Review, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Review{}, errStubNotImplemented
}

func (s *stubReviewService) ListByProduct(ctx context.Context, productID services.ProductRef) ([]services.Review, error) {
	if s.listFn != nil {
		return s.listFn(ctx, productID)
	}
	return []services.Review{}, nil
}

type stubAccountService struct {
	registerFn func(context.Context, services.RegisterAccountCommand) (services.SignInResult, error)
	loginFn    func(context.Context, services.LoginCommand) (services.SignInResult, error)
	syncFn     func(context.Context, services.SyncFederatedCommand) (services.SignInResult, error)
	getFn      func(context.Context, string) (services.Account, error)
}

func (s *stubAccountService) Register(ctx context.Context, cmd services.RegisterAccountCommand) (services.SignInResult, error) {
	if s.registerFn != nil {
		return s.registerFn(ctx, cmd)
	}
	return services.SignInResult{}, errStubNotImplemented
}

func (s *stubAccountService) Login(ctx context.Context, cmd services.LoginCommand) (services.SignInResult, error) {
	if s.loginFn != nil {
		return s.loginFn(ctx, cmd)
	}
	return services.SignInResult{}, errStubNotImplemented
}

func (s *stubAccountService) SyncFederated(ctx context.Context, cmd services.SyncFederatedCommand) (services.SignInResult, error) {
	if s.syncFn != nil {
		return s.syncFn(ctx, cmd)
	}
	return services.SignInResult{}, errStubNotImplemented
}

func (s *stubAccountService) Get(ctx context.Context, accountID string) (services.Account, error) {
	if s.getFn != nil {
		return s.getFn(ctx, accountID)
	}
	return services.Account{}, errStubNotImplemented
}

type stubWishlistService struct {
	listFn   func(context.Context, string) ([]services.WishlistEntry, error)
	addFn    func(context.Context, string, services.ProductRef) (services.WishlistItem, error)
	removeFn func(context.Context, string, services.ProductRef) error
}

func (s *stubWishlistService) List(ctx context.Context, accountID string) ([]services.WishlistEntry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, accountID)
	}
	return nil, errStubNotImplemented
}

func (s *stubWishlistService) Add(ctx context.Context, accountID string, productID services.ProductRef) (services.WishlistItem, error) {
	if s.addFn != nil {
		return s.addFn(ctx, accountID, productID)
	}
	return services.WishlistItem{}, errStubNotImplemented
}

func (s *stubWishlistService) Remove(ctx context.Context, accountID string, productID services.ProductRef) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, accountID, productID)
	}
	return errStubNotImplemented
}

type stubNotificationService struct {
	listFn     func(context.Context, services.Actor) ([]services.Notification, error)
	markReadFn func(context.Context, services.MarkNotificationReadCommand) (services.Notification, error)
}

func (s *stubNotificationService) Notify(context.Context, services.NotifyCommand) (services.Notification, error) {
	return services.Notification{}, errStubNotImplemented
}

func (s *stubNotificationService) List(ctx context.Context, actor services.Actor) ([]services.Notification, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor)
	}
	return nil, errStubNotImplemented
}

func (s *stubNotificationService) MarkRead(ctx context.Context, cmd services.MarkNotificationReadCommand) (services.Notification, error) {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, cmd)
	}
	return services.Notification{}, errStubNotImplemented
}

type stubSystemService struct {
	report services.ReadinessReport
}

func (s *stubSystemService) Readiness(context.Context) services.ReadinessReport {
	return s.report
}

var (
	_ services.OrderService        = (*stubOrderService)(nil)
	_ services.CheckoutService     = (*stubCheckoutService)(nil)
	_ services.CartService         = (*stubCartService)(nil)
	_ services.CatalogService      = (*stubCatalogService)(nil)
	_ services.ReviewService       = (*stubReviewService)(nil)
	_ services.AccountService      = (*stubAccountService)(nil)
	_ services.WishlistService     = (*stubWishlistService)(nil)
	_ services.NotificationService = (*stubNotificationService)(nil)
	_ services.SystemService       = (*stubSystemService)(nil)
)
