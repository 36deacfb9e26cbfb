package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/repositories"
)

// Registry wires every Firestore repository over one shared provider.
type Registry struct {
	provider      *pfirestore.Provider
	carts         *CartRepository
	orders        *OrderRepository
	products      *ProductRepository
	brands        *BrandRepository
	categories    *CategoryRepository
	reviews       *ReviewRepository
	notifications *NotificationRepository
	accounts      *AccountRepository
	wishlists     *WishlistRepository
	counters      *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs all repositories. The Firestore client is created lazily on first use.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	reg := &Registry{provider: provider}
	var err error
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, err
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, err
	}
	if reg.brands, err = NewBrandRepository(provider); err != nil {
		return nil, err
	}
	if reg.categories, err = NewCategoryRepository(provider); err != nil {
		return nil, err
	}
	if reg.reviews, err = NewReviewRepository(provider); err != nil {
		return nil, err
	}
	if reg.notifications, err = NewNotificationRepository(provider); err != nil {
		return nil, err
	}
	if reg.accounts, err = NewAccountRepository(provider); err != nil {
		return nil, err
	}
	if reg.wishlists, err = NewWishlistRepository(provider); err != nil {
		return nil, err
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *Registry) Close(ctx context.Context) error { return r.provider.Close(ctx) }

func (r *Registry) Carts() repositories.CartRepository                 { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository               { return r.orders }
func (r *Registry) Products() repositories.ProductRepository           { return r.products }
func (r *Registry) Brands() repositories.BrandRepository               { return r.brands }
func (r *Registry) Categories() repositories.CategoryRepository        { return r.categories }
func (r *Registry) Reviews() repositories.ReviewRepository             { return r.reviews }
func (r *Registry) Notifications() repositories.NotificationRepository { return r.notifications }
func (r *Registry) Accounts() repositories.AccountRepository           { return r.accounts }
func (r *Registry) Wishlists() repositories.WishlistRepository         { return r.wishlists }
func (r *Registry) Counters() repositories.CounterRepository           { return r.counters }
func (r *Registry) Health() repositories.HealthRepository              { return r.provider }
