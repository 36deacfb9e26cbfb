package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/shutterbay/api/internal/domain"
)

type memWishlistRepo struct {
	items map[string][]domain.WishlistItem
}

func (r *memWishlistRepo) List(_ context.Context, accountID string) ([]domain.WishlistItem, error) {
	return append([]domain.WishlistItem(nil), r.items[accountID]...), nil
}

func (r *memWishlistRepo) Put(_ context.Context, accountID string, item domain.WishlistItem) error {
	r.items[accountID] = append(r.items[accountID], item)
	return nil
}

func (r *memWishlistRepo) Remove(_ context.Context, accountID string, productID domain.ProductRef) error {
	kept := r.items[accountID][:0]
	for _, item := range r.items[accountID] {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	r.items[accountID] = kept
	return nil
}

func newTestWishlist(t *testing.T, repo *memWishlistRepo) WishlistService {
	t.Helper()
	svc, err := NewWishlistService(WishlistServiceDeps{
		Repository: repo,
		Products:   newMemCatalog(domain.Product{ID: "cam-a", Name: "Body A"}),
		Clock:      fixedClock(orderTestNow),
	})
	if err != nil {
		t.Fatalf("new wishlist service: %v", err)
	}
	return svc
}

func TestWishlistServiceAddIsIdempotent(t *testing.T) {
	repo := &memWishlistRepo{items: map[string][]domain.WishlistItem{}}
	svc := newTestWishlist(t, repo)
	ctx := context.Background()

	first, err := svc.Add(ctx, "acc-1", "cam-a")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := svc.Add(ctx, "acc-1", " cam-a ")
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(repo.items["acc-1"]) != 1 || !first.AddedAt.Equal(second.AddedAt) {
		t.Fatalf("expected single entry, got %+v", repo.items["acc-1"])
	}

	if _, err := svc.Add(ctx, "acc-1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestWishlistServiceLimit(t *testing.T) {
	repo := &memWishlistRepo{items: map[string][]domain.WishlistItem{}}
	for i := 0; i < maxWishlistItems; i++ {
		repo.items["acc-1"] = append(repo.items["acc-1"], domain.WishlistItem{ProductID: ProductRef(fmt.Sprintf("p-%d", i))})
	}
	svc := newTestWishlist(t, repo)

	if _, err := svc.Add(context.Background(), "acc-1", "cam-a"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error at limit, got %v", err)
	}
}

func TestWishlistServiceListKeepsDeletedProducts(t *testing.T) {
	repo := &memWishlistRepo{items: map[string][]domain.WishlistItem{
		"acc-1": {{ProductID: "cam-a"}, {ProductID: "retired"}},
	}}
	svc := newTestWishlist(t, repo)

	entries, err := svc.List(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].Product == nil || entries[1].Product != nil {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := svc.Remove(context.Background(), "acc-1", "retired"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.items["acc-1"]) != 1 {
		t.Fatalf("expected one remaining entry, got %+v", repo.items["acc-1"])
	}
}
