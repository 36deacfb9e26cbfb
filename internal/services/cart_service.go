package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/shutterbay/api/internal/repositories"
)

var errCartRepositoryRequired = errors.New("cart service: repository is required")

// ProductFinder resolves product references in bulk. Unknown references are omitted.
type ProductFinder interface {
	FindProducts(ctx context.Context, productIDs []ProductRef) (map[ProductRef]Product, error)
}

// CartServiceDeps wires the repository and catalog dependencies for cart operations.
type CartServiceDeps struct {
	Repository      repositories.CartRepository
	Products        ProductFinder
	Clock           func() time.Time
	DefaultCurrency string
	Logger          func(context.Context, string, map[string]any)
}

type cartService struct {
	repo     repositories.CartRepository
	products ProductFinder
	now      func() time.Time
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
		currency: currency,
		logger:   logger,
	}, nil
}

func (s *cartService) LoadCart(ctx context.Context, accountID string, guest GuestCartEntries) (CartView, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return s.view(ctx, Cart{Items: guest.Collapse()}), nil
	}
	cart, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart), nil
}

func (s *cartService) MergeGuestCart(ctx context.Context, accountID string, guest GuestCartEntries) (CartView, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return CartView{}, validationError("account id is required")
	}
	counts := guest.Collapse()
	cart, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return CartView{}, err
	}
	if len(counts) == 0 {
		return s.view(ctx, cart), nil
	}

	cart.Items.Merge(counts)
	view, err := s.persist(ctx, cart)
	if err != nil {
		return view, err
	}
	s.logger(ctx, "cart.guest_merged", map[string]any{
		"accountID": accountID,
		"products":  len(counts),
		"units":     counts.Units(),
	})
	return view, nil
}

func (s *cartService) AddOne(ctx context.Context, accountID string, productID ProductRef) (CartView, error) {
	return s.mutate(ctx, accountID, productID, func(items AccountCart, ref ProductRef) {
		items.Add(ref, 1)
	})
}

func (s *cartService) RemoveOne(ctx context.Context, accountID string, productID ProductRef) (CartView, error) {
	return s.mutate(ctx, accountID, productID, func(items AccountCart, ref ProductRef) {
		items.Remove(ref, 1)
	})
}

// Clear deletes the account cart document; the next load recreates it empty.
func (s *cartService) Clear(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return validationError("account id is required")
	}
	return mapRepositoryError(s.repo.Delete(ctx, accountID))
}

func (s *cartService) mutate(ctx context.Context, accountID string, productID ProductRef, apply func(AccountCart, ProductRef)) (CartView, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return CartView{}, validationError("account id is required")
	}
	ref := productID.Normalize()
	if ref == "" {
		return CartView{}, validationError("product id is required")
	}
	cart, err := s.loadOrCreate(ctx, accountID)
	if err != nil {
		return CartView{}, err
	}
	before := cart.Items.Units()
	apply(cart.Items, ref)
	if cart.Items.Units() == before {
		return s.view(ctx, cart), nil
	}
	return s.persist(ctx, cart)
}

// persist saves the whole cart. On failure the returned view still reflects the change so callers
// can show it while surfacing the error; nothing is rolled back.
func (s *cartService) persist(ctx context.Context, cart Cart) (CartView, error) {
	cart.UpdatedAt = s.now()
	saved, err := s.repo.Save(ctx, cart)
	if err != nil {
		s.logger(ctx, "cart.save_failed", map[string]any{
			"accountID": cart.AccountID,
			"error":     err,
		})
		return s.view(ctx, cart), fmt.Errorf("cart service: save cart: %w", mapRepositoryError(err))
	}
	return s.view(ctx, saved), nil
}

func (s *cartService) loadOrCreate(ctx context.Context, accountID string) (Cart, error) {
	cart, err := s.repo.Get(ctx, accountID)
	if err == nil {
		if cart.Items == nil {
			cart.Items = AccountCart{}
		}
		cart.AccountID = accountID
		return cart, nil
	}
	if !isRepoNotFound(err) {
		return Cart{}, mapRepositoryError(err)
	}
	now := s.now()
	created, err := s.repo.Save(ctx, Cart{AccountID: accountID, Items: AccountCart{}, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Cart{}, mapRepositoryError(err)
	}
	if created.Items == nil {
		created.Items = AccountCart{}
	}
	return created, nil
}

// view enriches cart lines from the catalog. Products that no longer exist stay in the view
// without details and do not count towards the subtotal.
func (s *cartService) view(ctx context.Context, cart Cart) CartView {
	refs := cart.Items.Refs()
	view := CartView{
		AccountID: cart.AccountID,
		Lines:     make([]CartLine, 0, len(refs)),
		Units:     cart.Items.Units(),
		Currency:  s.currency,
		UpdatedAt: cart.UpdatedAt,
	}
	if len(refs) == 0 {
		return view
	}

	var found map[ProductRef]Product
	if s.products != nil {
		products, err := s.products.FindProducts(ctx, refs)
		if err != nil {
			s.logger(ctx, "cart.product_lookup_failed", map[string]any{
				"accountID": cart.AccountID,
				"error":     err,
			})
		}
		found = products
	}

	view.Lines = lo.Map(refs, func(ref ProductRef, _ int) CartLine {
		line := CartLine{ProductID: ref, Quantity: cart.Items[ref]}
		if product, ok := found[ref]; ok {
			line.Product = &product
		}
		return line
	})
	view.Subtotal = lo.SumBy(view.Lines, func(line CartLine) int64 {
		if line.Product == nil {
			return 0
		}
		return line.Product.Price * int64(line.Quantity)
	})
	return view
}
