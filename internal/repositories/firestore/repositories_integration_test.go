//go:build integration

package firestore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/firestore/firestoretest"
	"github.com/shutterbay/api/internal/repositories"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(firestoretest.NewProvider(t))
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestCounterRepositoryIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	const workers = 16
	results := make([]int64, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			value, err := reg.Counters().Next(ctx, "orders")
			if err != nil {
				t.Errorf("next(%d): %v", idx, err)
				return
			}
			results[idx] = value
		}(i)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	for i, val := range results {
		if expected := int64(i + 1); val != expected {
			t.Fatalf("expected sequence %d at position %d, got %d", expected, i, val)
		}
	}
}

func TestCartRepositoryRoundTripIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.Carts().Get(ctx, "acct_1"); !isNotFound(err) {
		t.Fatalf("expected not found for missing cart, got %v", err)
	}

	saved, err := reg.Carts().Save(ctx, domain.Cart{
		AccountID: "acct_1",
		Items:     domain.AccountCart{"prod_a": 2, "prod_b": 1},
	})
	if err != nil {
		t.Fatalf("save cart: %v", err)
	}
	loaded, err := reg.Carts().Get(ctx, "acct_1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if loaded.Items["prod_a"] != 2 || loaded.Items["prod_b"] != 1 || len(loaded.Items) != 2 {
		t.Fatalf("unexpected items: %#v", loaded.Items)
	}
	if !loaded.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("created at mismatch: %v vs %v", loaded.CreatedAt, saved.CreatedAt)
	}
}

func TestReviewRepositoryRejectsDuplicateIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := reg.Products().Insert(ctx, domain.Product{ID: "prod_x100", Name: "X100", Price: 129900, Currency: "USD", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("insert product: %v", err)
	}
	review := domain.Review{ID: "rev_1", ProductID: "prod_x100", AccountID: "acct_1", AuthorName: "Kim", Rating: 4, CreatedAt: now}
	product, err := reg.Reviews().Insert(ctx, review)
	if err != nil {
		t.Fatalf("insert review: %v", err)
	}
	if product.NumReviews != 1 || product.Rating != 4 {
		t.Fatalf("unexpected aggregate: %d reviews rating %v", product.NumReviews, product.Rating)
	}

	review.ID = "rev_2"
	_, err = reg.Reviews().Insert(ctx, review)
	var repoErr repositories.RepositoryError
	if !asRepositoryError(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAccountRepositoryEmailUniquenessIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first := domain.Account{ID: "acct_1", Email: "Ana@Example.com", Provider: domain.AuthProviderPassword, Roles: []string{"user"}, CreatedAt: now, UpdatedAt: now}
	if err := reg.Accounts().Insert(ctx, first); err != nil {
		t.Fatalf("insert account: %v", err)
	}
	found, err := reg.Accounts().FindByEmail(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if found.ID != "acct_1" {
		t.Fatalf("expected acct_1, got %s", found.ID)
	}

	second := first
	second.ID = "acct_2"
	err = reg.Accounts().Insert(ctx, second)
	var repoErr repositories.RepositoryError
	if !asRepositoryError(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func insertTestOrder(t *testing.T, reg *Registry, id string, now time.Time) {
	t.Helper()
	err := reg.Orders().Insert(context.Background(), domain.Order{
		ID:          id,
		OrderNumber: "SB-" + id,
		AccountID:   "acct_1",
		Items:       []domain.OrderLineItem{{ProductID: "prod_a", Name: "Lens", UnitPrice: 1000, Quantity: 1}},
		Currency:    "USD",
		Prices:      domain.PriceBreakdown{Items: 1000, Total: 1000},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("insert order: %v", err)
	}
}

func TestOrderFacetUpdatesKeepConcurrentFlagsIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	insertTestOrder(t, reg, "ord_flags", now)

	start := make(chan struct{})
	errs := make(chan error, 2)
	go func() {
		<-start
		errs <- reg.Orders().UpdatePayment(ctx, "ord_flags", domain.PaymentFacet{Paid: true, PaidAt: &now, Result: &domain.PaymentResult{ID: "pay_1"}}, now)
	}()
	go func() {
		<-start
		errs <- reg.Orders().UpdateDelivery(ctx, "ord_flags", domain.DeliveryFacet{Delivered: true, DeliveredAt: &now}, now)
	}()
	close(start)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("facet update: %v", err)
		}
	}

	order, err := reg.Orders().FindByID(ctx, "ord_flags")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if !order.Payment.Paid || !order.Delivery.Delivered {
		t.Fatalf("expected both flags, got paid=%v delivered=%v", order.Payment.Paid, order.Delivery.Delivered)
	}
	if order.Payment.Result == nil || order.Payment.Result.ID != "pay_1" {
		t.Fatalf("unexpected payment result: %#v", order.Payment.Result)
	}
	if len(order.Items) != 1 || order.Prices.Total != 1000 {
		t.Fatalf("facet update touched the order body: %#v", order)
	}
}

func TestOrderCancellationSeesCommittedDeliveryIntegration(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	insertTestOrder(t, reg, "ord_cancel", now)

	if err := reg.Orders().UpdateDelivery(ctx, "ord_cancel", domain.DeliveryFacet{Delivered: true, DeliveredAt: &now}, now); err != nil {
		t.Fatalf("update delivery: %v", err)
	}

	errDelivered := errors.New("delivered")
	_, err := reg.Orders().UpdateCancellation(ctx, "ord_cancel", now, func(current domain.Order) (domain.CancellationFacet, bool, error) {
		if current.Delivery.Delivered {
			return domain.CancellationFacet{}, false, errDelivered
		}
		return domain.CancellationFacet{Cancelled: true, CancelledAt: &now, CancelledBy: "acct_1"}, true, nil
	})
	if !errors.Is(err, errDelivered) {
		t.Fatalf("expected decision error, got %v", err)
	}

	order, err := reg.Orders().FindByID(ctx, "ord_cancel")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if order.Cancellation.Cancelled || !order.Delivery.Delivered {
		t.Fatalf("expected delivered and not cancelled, got %#v", order)
	}

	if _, err := reg.Orders().UpdateCancellation(ctx, "ord_missing", now, func(domain.Order) (domain.CancellationFacet, bool, error) {
		return domain.CancellationFacet{}, false, nil
	}); !isNotFound(err) {
		t.Fatalf("expected not found for missing order, got %v", err)
	}
}

func asRepositoryError(err error, target *repositories.RepositoryError) bool {
	return err != nil && errors.As(err, target)
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return asRepositoryError(err, &repoErr) && repoErr.IsNotFound()
}
