package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/repositories"
)

type testRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e testRepoError) Error() string       { return "repository error" }
func (e testRepoError) IsNotFound() bool    { return e.notFound }
func (e testRepoError) IsConflict() bool    { return e.conflict }
func (e testRepoError) IsUnavailable() bool { return e.unavailable }

var (
	errRepoNotFound    = testRepoError{notFound: true}
	errRepoConflict    = testRepoError{conflict: true}
	errRepoUnavailable = testRepoError{unavailable: true}
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + string(rune('A'+n-1))
	}
}

type memCartRepo struct {
	mu      sync.Mutex
	carts   map[string]domain.Cart
	saveErr error
	saves   int
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]domain.Cart{}}
}

func (r *memCartRepo) Get(_ context.Context, accountID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[accountID]
	if !ok {
		return domain.Cart{}, errRepoNotFound
	}
	cart.Items = cart.Items.Clone()
	return cart, nil
}

func (r *memCartRepo) Save(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return domain.Cart{}, r.saveErr
	}
	r.saves++
	cart.Items = cart.Items.Clone()
	r.carts[cart.AccountID] = cart
	return cart, nil
}

func (r *memCartRepo) Delete(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, accountID)
	return nil
}

func (r *memCartRepo) items(accountID string) domain.AccountCart {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts[accountID].Items.Clone()
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
	// beforeWrite runs outside the lock ahead of every facet write when set.
	beforeWrite func(op string)
}

func newMemOrderRepo(orders ...domain.Order) *memOrderRepo {
	repo := &memOrderRepo{orders: map[string]domain.Order{}}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *memOrderRepo) Insert(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return errRepoConflict
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memOrderRepo) UpdatePayment(_ context.Context, orderID string, payment domain.PaymentFacet, updatedAt time.Time) error {
	return r.mutate("payment", orderID, func(o *domain.Order) {
		o.Payment = payment
		o.UpdatedAt = updatedAt
	})
}

func (r *memOrderRepo) UpdateDelivery(_ context.Context, orderID string, delivery domain.DeliveryFacet, updatedAt time.Time) error {
	return r.mutate("delivery", orderID, func(o *domain.Order) {
		o.Delivery = delivery
		o.UpdatedAt = updatedAt
	})
}

func (r *memOrderRepo) UpdateCancellation(_ context.Context, orderID string, updatedAt time.Time, decide repositories.CancellationDecision) (domain.Order, error) {
	if r.beforeWrite != nil {
		r.beforeWrite("cancellation")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	facet, write, err := decide(cloneOrder(order))
	if err != nil {
		return domain.Order{}, err
	}
	if write {
		order.Cancellation = facet
		order.UpdatedAt = updatedAt
		r.orders[orderID] = order
	}
	return cloneOrder(order), nil
}

func (r *memOrderRepo) mutate(op, orderID string, apply func(*domain.Order)) error {
	if r.beforeWrite != nil {
		r.beforeWrite(op)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return errRepoNotFound
	}
	apply(&order)
	r.orders[orderID] = order
	return nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return cloneOrder(order), nil
}

func (r *memOrderRepo) ListByAccount(_ context.Context, accountID string) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool { return o.AccountID == accountID }), nil
}

func (r *memOrderRepo) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return r.filter(func(o domain.Order) bool {
		return matchFlag(filter.Paid, o.Payment.Paid) &&
			matchFlag(filter.Delivered, o.Delivery.Delivered) &&
			matchFlag(filter.Cancelled, o.Cancellation.Cancelled)
	}), nil
}

func (r *memOrderRepo) filter(keep func(domain.Order) bool) []domain.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func matchFlag(want *bool, got bool) bool {
	return want == nil || *want == got
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderLineItem(nil), o.Items...)
	return o
}

type stubCounterRepo struct {
	nextFn func(context.Context, string) (int64, error)
	n      int64
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID)
	}
	s.n++
	return s.n, nil
}

// memCatalog implements ProductFinder over a mutable product map.
type memCatalog struct {
	mu       sync.Mutex
	products map[domain.ProductRef]domain.Product
	err      error
}

func newMemCatalog(products ...domain.Product) *memCatalog {
	c := &memCatalog{products: map[domain.ProductRef]domain.Product{}}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *memCatalog) FindProducts(_ context.Context, ids []domain.ProductRef) (map[domain.ProductRef]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := map[domain.ProductRef]domain.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *memCatalog) setPrice(id domain.ProductRef, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.products[id]
	p.Price = price
	c.products[id] = p
}

type captureNotifications struct {
	mu       sync.Mutex
	commands []NotifyCommand
	err      error
}

func (c *captureNotifications) Notify(_ context.Context, cmd NotifyCommand) (Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, cmd)
	if c.err != nil {
		return Notification{}, c.err
	}
	return Notification{Audience: cmd.Audience, AccountID: cmd.AccountID, Message: cmd.Message}, nil
}

func (c *captureNotifications) List(context.Context, Actor) ([]Notification, error) {
	return nil, errors.New("not implemented")
}

func (c *captureNotifications) MarkRead(context.Context, MarkNotificationReadCommand) (Notification, error) {
	return Notification{}, errors.New("not implemented")
}

type captureOrderEvents struct {
	mu     sync.Mutex
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

type stubMailer struct {
	sendFn func(context.Context, EmailMessage) error
}

func (s *stubMailer) SendEmail(ctx context.Context, msg EmailMessage) error {
	if s.sendFn != nil {
		return s.sendFn(ctx, msg)
	}
	return nil
}

var (
	_ repositories.CartRepository    = (*memCartRepo)(nil)
	_ repositories.OrderRepository   = (*memOrderRepo)(nil)
	_ repositories.CounterRepository = (*stubCounterRepo)(nil)
	_ ProductFinder                  = (*memCatalog)(nil)
)
