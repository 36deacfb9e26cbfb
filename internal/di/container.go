package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shutterbay/api/internal/platform/config"
	"github.com/shutterbay/api/internal/platform/observability"
	"github.com/shutterbay/api/internal/repositories"
	"github.com/shutterbay/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog       services.CatalogService
	Cart          services.CartService
	Orders        services.OrderService
	Checkout      services.CheckoutService
	Reviews       services.ReviewService
	Wishlist      services.WishlistService
	Notifications services.NotificationService
	Accounts      services.AccountService
	System        services.SystemService
}

// Adapters carries the infrastructure collaborators built outside the repository registry.
// Passwords and Sessions are required; the remaining adapters are optional and services fall back
// to their documented degraded behaviour when one is nil.
type Adapters struct {
	Logger    *zap.Logger
	Mailer    services.Mailer
	Events    services.OrderEventPublisher
	Cache     services.ProductCache
	Images    services.ImageStore
	Passwords services.PasswordHasher
	Sessions  services.SessionIssuer
	// Probes are added to the readiness report next to the repository health check.
	Probes map[string]services.ReadinessProbe
	Clock  func() time.Time
}

// Container wires repositories, services, and infrastructure adapters for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, adapters Adapters) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, adapters)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, adapters Adapters) (Services, error) {
	var svc Services
	clock := adapters.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := observability.ServiceLogger(adapters.Logger)

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:        reg.Products(),
		Brands:          reg.Brands(),
		Categories:      reg.Categories(),
		Cache:           adapters.Cache,
		Images:          adapters.Images,
		DefaultCurrency: cfg.Shop.Currency,
		Clock:           clock,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository:      reg.Carts(),
		Products:        catalogSvc,
		Clock:           clock,
		DefaultCurrency: cfg.Shop.Currency,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	notificationSvc, err := services.NewNotificationService(services.NotificationServiceDeps{
		Repository: reg.Notifications(),
		Clock:      clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build notification service: %w", err)
	}
	svc.Notifications = notificationSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Counters:      reg.Counters(),
		Notifications: notificationSvc,
		Mailer:        adapters.Mailer,
		Events:        adapters.Events,
		Clock:         clock,
		Logger:        logger,
		ReplyTo:       cfg.Shop.SupportEmail,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	pricing, err := services.NewPricing(services.PricingConfig{
		Currency:              cfg.Shop.Currency,
		TaxRate:               cfg.Shop.TaxRate,
		FreeShippingThreshold: cfg.Shop.FreeShippingThreshold,
		FlatShippingFee:       cfg.Shop.FlatShippingFee,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build pricing: %w", err)
	}

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:    cartSvc,
		Orders:   orderSvc,
		Products: catalogSvc,
		Pricing:  pricing,
		Logger:   logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Cache:   adapters.Cache,
		Clock:   clock,
		Logger:  logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{
		Repository: reg.Wishlists(),
		Products:   catalogSvc,
		Clock:      clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wishlist service: %w", err)
	}
	svc.Wishlist = wishlistSvc

	accountSvc, err := services.NewAccountService(services.AccountServiceDeps{
		Accounts:  reg.Accounts(),
		Carts:     cartSvc,
		Passwords: adapters.Passwords,
		Sessions:  adapters.Sessions,
		Clock:     clock,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build account service: %w", err)
	}
	svc.Accounts = accountSvc

	probes := make(map[string]services.ReadinessProbe, len(adapters.Probes)+1)
	if health := reg.Health(); health != nil {
		probes["firestore"] = health
	}
	for name, probe := range adapters.Probes {
		probes[name] = probe
	}
	svc.System = services.NewSystemService(services.SystemServiceDeps{Probes: probes})

	return svc, nil
}
