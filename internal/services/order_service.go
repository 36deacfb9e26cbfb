package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/pagination"
	"github.com/shutterbay/api/internal/platform/requestctx"
	"github.com/shutterbay/api/internal/platform/textutil"
	"github.com/shutterbay/api/internal/repositories"
)

const (
	orderCounterID       = "orders"
	defaultEmailTimeout  = 30 * time.Second
	orderEventCreated    = "order.created"
	orderEventPaid       = "order.paid"
	orderEventDelivered  = "order.delivered"
	orderEventCancelled  = "order.cancelled"
	deliveryEmailSubject = "Your order has been delivered"
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Counters      repositories.CounterRepository
	Notifications NotificationService
	Mailer        Mailer
	Events        OrderEventPublisher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(context.Context, string, map[string]any)
	// RunAsync executes detached side effects. Defaults to a new goroutine.
	RunAsync     func(func())
	EmailTimeout time.Duration
	// ReplyTo is attached to customer email when set.
	ReplyTo string
}

type orderService struct {
	orders        repositories.OrderRepository
	counters      repositories.CounterRepository
	notifications NotificationService
	mailer        Mailer
	events        OrderEventPublisher
	now           func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
	runAsync      func(func())
	emailTimeout  time.Duration
	replyTo       string
}

// NewOrderService constructs the order lifecycle service.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	runAsync := deps.RunAsync
	if runAsync == nil {
		runAsync = func(fn func()) { go fn() }
	}
	timeout := deps.EmailTimeout
	if timeout <= 0 {
		timeout = defaultEmailTimeout
	}

	return &orderService{
		orders:        deps.Orders,
		counters:      deps.Counters,
		notifications: deps.Notifications,
		mailer:        deps.Mailer,
		events:        deps.Events,
		now:           func() time.Time { return clock().UTC() },
		newID:         idGen,
		logger:        logger,
		runAsync:      runAsync,
		emailTimeout:  timeout,
		replyTo:       strings.TrimSpace(deps.ReplyTo),
	}, nil
}

// Create stores a new order. Line items and prices are copied so later catalog edits cannot
// alter the placed order.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	accountID := strings.TrimSpace(cmd.AccountID)
	if accountID == "" {
		return Order{}, validationError("account id is required")
	}
	if len(cmd.Items) == 0 {
		return Order{}, validationError("order must contain at least one item")
	}
	for i, item := range cmd.Items {
		if item.ProductID.Normalize() == "" {
			return Order{}, validationError("item %d: product id is required", i)
		}
		if item.Quantity < 1 {
			return Order{}, validationError("item %d: quantity must be at least 1", i)
		}
		if item.UnitPrice < 0 {
			return Order{}, validationError("item %d: unit price must not be negative", i)
		}
	}
	prices := cmd.Prices
	if itemsTotal := lo.SumBy(cmd.Items, func(item OrderLineItem) int64 { return item.Subtotal() }); prices.Items != itemsTotal {
		return Order{}, validationError("items price %d does not match line items %d", prices.Items, itemsTotal)
	}
	if prices.Total != prices.Items+prices.Shipping+prices.Tax {
		return Order{}, validationError("total price does not add up")
	}

	now := s.now()
	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		ID:              "ord_" + s.newID(),
		OrderNumber:     number,
		AccountID:       accountID,
		AccountEmail:    strings.TrimSpace(cmd.AccountEmail),
		AccountName:     strings.TrimSpace(cmd.AccountName),
		Items:           append([]OrderLineItem(nil), cmd.Items...),
		ShippingAddress: cmd.ShippingAddress,
		PaymentMethod:   strings.TrimSpace(cmd.PaymentMethod),
		Currency:        strings.ToUpper(strings.TrimSpace(cmd.Currency)),
		Prices:          prices,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range order.Items {
		order.Items[i].ProductID = order.Items[i].ProductID.Normalize()
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return Order{}, mapRepositoryError(err)
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderID":   order.ID,
		"accountID": order.AccountID,
		"total":     order.Prices.Total,
	})
	s.notify(ctx, NotifyCommand{
		Audience: domain.NotificationAudienceAdmins,
		Message:  fmt.Sprintf("New order placed: %s", order.OrderNumber),
		Link:     orderLink(order.ID),
	})
	s.publish(ctx, orderEventCreated, order, accountID)
	return order, nil
}

// MarkPaid overwrites the payment facet. Calling it again replaces the stored result.
func (s *orderService) MarkPaid(ctx context.Context, cmd MarkOrderPaidCommand) (Order, error) {
	if !cmd.Actor.IsAdmin {
		return Order{}, fmt.Errorf("%w: only administrators can mark orders paid", ErrAuthorization)
	}
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	result := cmd.Result
	payment := domain.PaymentFacet{Paid: true, PaidAt: &now, Result: &result}
	if err := s.orders.UpdatePayment(ctx, order.ID, payment, now); err != nil {
		return Order{}, mapRepositoryError(err)
	}
	order.Payment = payment
	order.UpdatedAt = now

	s.notify(ctx, NotifyCommand{
		Audience:  domain.NotificationAudienceAccount,
		AccountID: order.AccountID,
		Message:   fmt.Sprintf("Payment received for order %s", order.OrderNumber),
		Link:      orderLink(order.ID),
	})
	s.publish(ctx, orderEventPaid, order, cmd.Actor.AccountID)
	return order, nil
}

// MarkDelivered sets the delivery facet and emails the owner in the background. Email failures
// are logged and never fail the transition.
func (s *orderService) MarkDelivered(ctx context.Context, cmd OrderActionCommand) (Order, error) {
	if !cmd.Actor.IsAdmin {
		return Order{}, fmt.Errorf("%w: only administrators can mark orders delivered", ErrAuthorization)
	}
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}

	now := s.now()
	delivery := domain.DeliveryFacet{Delivered: true, DeliveredAt: &now}
	if err := s.orders.UpdateDelivery(ctx, order.ID, delivery, now); err != nil {
		return Order{}, mapRepositoryError(err)
	}
	order.Delivery = delivery
	order.UpdatedAt = now

	s.notify(ctx, NotifyCommand{
		Audience:  domain.NotificationAudienceAccount,
		AccountID: order.AccountID,
		Message:   fmt.Sprintf("Order %s has been delivered", order.OrderNumber),
		Link:      orderLink(order.ID),
	})
	s.publish(ctx, orderEventDelivered, order, cmd.Actor.AccountID)
	s.sendDeliveryEmail(ctx, order)
	return order, nil
}

// Cancel marks a non-delivered order cancelled. Stock and payment are left untouched. The
// delivery check and the write share one transaction.
func (s *orderService) Cancel(ctx context.Context, cmd OrderActionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, validationError("order id is required")
	}

	now := s.now()
	wrote := false
	order, err := s.orders.UpdateCancellation(ctx, orderID, now, func(current Order) (domain.CancellationFacet, bool, error) {
		wrote = false
		if current.Delivery.Delivered {
			return domain.CancellationFacet{}, false, fmt.Errorf("%w: delivered orders cannot be cancelled", ErrInvalidState)
		}
		if !canAccessOrder(current, cmd.Actor) {
			return domain.CancellationFacet{}, false, fmt.Errorf("%w: only the owner or an administrator can cancel this order", ErrAuthorization)
		}
		if current.Cancellation.Cancelled {
			return domain.CancellationFacet{}, false, nil
		}
		wrote = true
		return domain.CancellationFacet{Cancelled: true, CancelledAt: &now, CancelledBy: strings.TrimSpace(cmd.Actor.AccountID)}, true, nil
	})
	if err != nil {
		return Order{}, mapRepositoryError(err)
	}
	if !wrote {
		return order, nil
	}

	if cmd.Actor.AccountID == order.AccountID {
		s.notify(ctx, NotifyCommand{
			Audience: domain.NotificationAudienceAdmins,
			Message:  fmt.Sprintf("Order %s was cancelled by the customer", order.OrderNumber),
			Link:     orderLink(order.ID),
		})
	} else {
		s.notify(ctx, NotifyCommand{
			Audience:  domain.NotificationAudienceAccount,
			AccountID: order.AccountID,
			Message:   fmt.Sprintf("Order %s has been cancelled", order.OrderNumber),
			Link:      orderLink(order.ID),
		})
	}
	s.publish(ctx, orderEventCancelled, order, cmd.Actor.AccountID)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, cmd OrderActionCommand) (Order, error) {
	order, err := s.load(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if !canAccessOrder(order, cmd.Actor) {
		return Order{}, fmt.Errorf("%w: order belongs to another account", ErrAuthorization)
	}
	return order, nil
}

func (s *orderService) ListOwn(ctx context.Context, accountID string) ([]Order, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, validationError("account id is required")
	}
	orders, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}

// List is the administrative listing. Status flags are filtered in the store, the keyword in memory.
func (s *orderService) List(ctx context.Context, cmd ListOrdersCommand) (domain.PageResult[Order], error) {
	if !cmd.Actor.IsAdmin {
		return domain.PageResult[Order]{}, fmt.Errorf("%w: only administrators can list all orders", ErrAuthorization)
	}
	orders, err := s.orders.List(ctx, cmd.Filter)
	if err != nil {
		return domain.PageResult[Order]{}, mapRepositoryError(err)
	}
	if keyword := strings.TrimSpace(cmd.Filter.Keyword); keyword != "" {
		orders = lo.Filter(orders, func(order Order, _ int) bool {
			return matchesOrderKeyword(order, keyword)
		})
	}
	if orders == nil {
		orders = []Order{}
	}
	return pagination.Apply(orders, cmd.Page), nil
}

func (s *orderService) load(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, validationError("order id is required")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderCounterID)
	if err != nil {
		return "", mapRepositoryError(err)
	}
	return fmt.Sprintf("SB-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) notify(ctx context.Context, cmd NotifyCommand) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Notify(ctx, cmd); err != nil {
		s.logger(ctx, "order.notification_failed", map[string]any{
			"audience": string(cmd.Audience),
			"error":    err,
		})
	}
}

func (s *orderService) publish(ctx context.Context, eventType string, order Order, actorID string) {
	if s.events == nil {
		return
	}
	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		AccountID:   order.AccountID,
		ActorID:     actorID,
		Status:      string(order.Status()),
		Total:       order.Prices.Total,
		Currency:    order.Currency,
		OccurredAt:  order.UpdatedAt,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderID": order.ID,
			"event":   eventType,
			"error":   err,
		})
	}
}

func (s *orderService) sendDeliveryEmail(ctx context.Context, order Order) {
	if s.mailer == nil || order.AccountEmail == "" {
		return
	}
	msg := EmailMessage{
		To:       order.AccountEmail,
		Subject:  deliveryEmailSubject,
		Template: "order_delivered",
		Data: map[string]string{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"name":         order.AccountName,
			"total":        FormatMoney(order.Prices.Total, order.Currency),
		},
	}
	if s.replyTo != "" {
		msg.Data["reply_to"] = s.replyTo
	}
	detached := requestctx.Detach(ctx)
	s.runAsync(func() {
		ctx, cancel := context.WithTimeout(detached, s.emailTimeout)
		defer cancel()
		if err := s.mailer.SendEmail(ctx, msg); err != nil {
			s.logger(ctx, "order.delivery_email.failed", map[string]any{
				"orderID": order.ID,
				"error":   err,
			})
		}
	})
}

func canAccessOrder(order Order, actor Actor) bool {
	if actor.IsAdmin {
		return true
	}
	accountID := strings.TrimSpace(actor.AccountID)
	return accountID != "" && accountID == order.AccountID
}

func matchesOrderKeyword(order Order, keyword string) bool {
	haystacks := []string{order.ID, order.OrderNumber, order.AccountName, order.AccountEmail, order.ShippingAddress.Recipient}
	for _, item := range order.Items {
		haystacks = append(haystacks, item.Name)
	}
	return textutil.ContainsFold(keyword, haystacks...)
}

func orderLink(orderID string) string {
	return "/orders/" + orderID
}
