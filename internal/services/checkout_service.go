package services

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/lo"
)

const maxCheckoutQuantity = 99

// CheckoutServiceDeps wires the collaborators that turn a cart into an order.
type CheckoutServiceDeps struct {
	Carts    CartService
	Orders   OrderService
	Products ProductFinder
	Pricing  Pricing
	Logger   func(context.Context, string, map[string]any)
}

type checkoutService struct {
	carts    CartService
	orders   OrderService
	products ProductFinder
	pricing  Pricing
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs the checkout service.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil || deps.Orders == nil || deps.Products == nil {
		return nil, errors.New("checkout service: carts, orders and products are required")
	}
	if deps.Pricing.Currency() == "" {
		return nil, errors.New("checkout service: pricing is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutService{
		carts:    deps.Carts,
		orders:   deps.Orders,
		products: deps.Products,
		pricing:  deps.Pricing,
		logger:   logger,
	}, nil
}

// PlaceOrder snapshots the requested items, or the account cart when none are given, captures
// catalog prices and creates the order. A cart-sourced checkout clears the cart afterwards.
func (s *checkoutService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	accountID := strings.TrimSpace(cmd.AccountID)
	if accountID == "" {
		return Order{}, validationError("account id is required")
	}
	if err := validateAddress(cmd.ShippingAddress); err != nil {
		return Order{}, err
	}
	paymentMethod := strings.TrimSpace(cmd.PaymentMethod)
	if paymentMethod == "" {
		return Order{}, validationError("payment method is required")
	}

	items := cmd.Items
	fromCart := len(items) == 0
	if fromCart {
		view, err := s.carts.LoadCart(ctx, accountID, nil)
		if err != nil {
			return Order{}, err
		}
		items = lo.Map(view.Lines, func(line CartLine, _ int) CheckoutItem {
			return CheckoutItem{ProductID: line.ProductID, Quantity: int(line.Quantity)}
		})
	}

	lines, err := s.snapshot(ctx, items)
	if err != nil {
		return Order{}, err
	}

	order, err := s.orders.Create(ctx, CreateOrderCommand{
		AccountID:       accountID,
		AccountEmail:    cmd.AccountEmail,
		AccountName:     cmd.AccountName,
		Items:           lines,
		ShippingAddress: trimAddress(cmd.ShippingAddress),
		PaymentMethod:   paymentMethod,
		Currency:        s.pricing.Currency(),
		Prices:          s.pricing.Breakdown(lines),
	})
	if err != nil {
		return Order{}, err
	}

	if fromCart {
		if err := s.carts.Clear(ctx, accountID); err != nil {
			s.logger(ctx, "checkout.cart_clear_failed", map[string]any{
				"accountID": accountID,
				"orderID":   order.ID,
				"error":     err,
			})
		}
	}
	return order, nil
}

// snapshot copies name, price and image from the catalog into order lines. Repeated products
// are combined; unknown products are rejected.
func (s *checkoutService) snapshot(ctx context.Context, items []CheckoutItem) ([]OrderLineItem, error) {
	quantities := make(map[ProductRef]int, len(items))
	order := make([]ProductRef, 0, len(items))
	for _, item := range items {
		ref := item.ProductID.Normalize()
		if ref == "" {
			return nil, validationError("product id is required")
		}
		if item.Quantity < 1 {
			return nil, validationError("quantity for %s must be at least 1", ref)
		}
		if _, seen := quantities[ref]; !seen {
			order = append(order, ref)
		}
		quantities[ref] += item.Quantity
		if quantities[ref] > maxCheckoutQuantity {
			return nil, validationError("quantity for %s exceeds %d", ref, maxCheckoutQuantity)
		}
	}
	if len(order) == 0 {
		return nil, validationError("order must contain at least one item")
	}

	products, err := s.products.FindProducts(ctx, order)
	if err != nil {
		return nil, err
	}
	lines := make([]OrderLineItem, 0, len(order))
	for _, ref := range order {
		product, ok := products[ref]
		if !ok {
			return nil, validationError("product %s is no longer available", ref)
		}
		lines = append(lines, OrderLineItem{
			ProductID: ref,
			Name:      product.Name,
			Image:     product.PrimaryImage(),
			UnitPrice: product.Price,
			Quantity:  quantities[ref],
		})
	}
	return lines, nil
}

func validateAddress(addr Address) error {
	missing := lo.Filter([]lo.Tuple2[string, string]{
		lo.T2("recipient", addr.Recipient),
		lo.T2("line1", addr.Line1),
		lo.T2("city", addr.City),
		lo.T2("postal_code", addr.PostalCode),
		lo.T2("country", addr.Country),
	}, func(field lo.Tuple2[string, string], _ int) bool {
		return strings.TrimSpace(field.B) == ""
	})
	if len(missing) > 0 {
		return validationError("shipping address is missing %s", strings.Join(lo.Map(missing, func(f lo.Tuple2[string, string], _ int) string { return f.A }), ", "))
	}
	return nil
}

func trimAddress(addr Address) Address {
	return Address{
		Recipient:  strings.TrimSpace(addr.Recipient),
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      strings.TrimSpace(addr.Line2),
		City:       strings.TrimSpace(addr.City),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}
}
