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

const maxWishlistItems = 200

// WishlistServiceDeps wires the wishlist repository and catalog lookups.
type WishlistServiceDeps struct {
	Repository repositories.WishlistRepository
	Products   ProductFinder
	Clock      func() time.Time
}

type wishlistService struct {
	repo     repositories.WishlistRepository
	products ProductFinder
	now      func() time.Time
}

// NewWishlistService constructs the wishlist service.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Repository == nil {
		return nil, errors.New("wishlist service: repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("wishlist service: product finder is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &wishlistService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return clock().UTC() },
	}, nil
}

// List returns wishlist entries with their products. Entries for deleted products are kept
// without product details.
func (s *wishlistService) List(ctx context.Context, accountID string) ([]WishlistEntry, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, validationError("account id is required")
	}
	items, err := s.repo.List(ctx, accountID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	products, err := s.products.FindProducts(ctx, lo.Map(items, func(item WishlistItem, _ int) ProductRef { return item.ProductID }))
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(item WishlistItem, _ int) WishlistEntry {
		entry := WishlistEntry{Item: item}
		if product, ok := products[item.ProductID]; ok {
			entry.Product = &product
		}
		return entry
	}), nil
}

// Add saves the product. Adding a product already on the list returns the existing entry.
func (s *wishlistService) Add(ctx context.Context, accountID string, productID ProductRef) (WishlistItem, error) {
	accountID = strings.TrimSpace(accountID)
	ref := productID.Normalize()
	if accountID == "" || ref == "" {
		return WishlistItem{}, validationError("account id and product id are required")
	}

	items, err := s.repo.List(ctx, accountID)
	if err != nil {
		return WishlistItem{}, mapRepositoryError(err)
	}
	if existing, ok := lo.Find(items, func(item WishlistItem) bool { return item.ProductID == ref }); ok {
		return existing, nil
	}
	if len(items) >= maxWishlistItems {
		return WishlistItem{}, validationError("wishlist is limited to %d products", maxWishlistItems)
	}

	products, err := s.products.FindProducts(ctx, []ProductRef{ref})
	if err != nil {
		return WishlistItem{}, err
	}
	if _, ok := products[ref]; !ok {
		return WishlistItem{}, fmt.Errorf("%w: product %s", ErrNotFound, ref)
	}

	item := WishlistItem{ProductID: ref, AddedAt: s.now()}
	if err := s.repo.Put(ctx, accountID, item); err != nil {
		return WishlistItem{}, mapRepositoryError(err)
	}
	return item, nil
}

func (s *wishlistService) Remove(ctx context.Context, accountID string, productID ProductRef) error {
	accountID = strings.TrimSpace(accountID)
	ref := productID.Normalize()
	if accountID == "" || ref == "" {
		return validationError("account id and product id are required")
	}
	return mapRepositoryError(s.repo.Remove(ctx, accountID, ref))
}
