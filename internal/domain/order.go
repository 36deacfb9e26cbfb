package domain

import "time"

// OrderStatus is the human-facing label derived from the lifecycle flags.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// DeriveOrderStatus computes the display status with precedence
// cancelled > delivered > paid > pending.
func DeriveOrderStatus(paid, delivered, cancelled bool) OrderStatus {
	switch {
	case cancelled:
		return OrderStatusCancelled
	case delivered:
		return OrderStatusDelivered
	case paid:
		return OrderStatusPaid
	default:
		return OrderStatusPending
	}
}

// OrderLineItem freezes a purchased product as it was when the order was placed.
type OrderLineItem struct {
	ProductID ProductRef
	Name      string
	Image     string
	UnitPrice int64
	Quantity  int
}

// Subtotal returns unit price multiplied by quantity.
func (l OrderLineItem) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Address is a postal shipping address.
type Address struct {
	Recipient  string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
}

// PriceBreakdown is computed once at creation and never recomputed. Amounts are minor units.
type PriceBreakdown struct {
	Items    int64
	Shipping int64
	Tax      int64
	Total    int64
}

// PaymentResult is the opaque record an administrator attaches when marking an order paid.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// PaymentFacet tracks the payment flag.
type PaymentFacet struct {
	Paid   bool
	PaidAt *time.Time
	Result *PaymentResult
}

// DeliveryFacet tracks the delivery flag.
type DeliveryFacet struct {
	Delivered   bool
	DeliveredAt *time.Time
}

// CancellationFacet tracks the cancellation flag.
type CancellationFacet struct {
	Cancelled   bool
	CancelledAt *time.Time
	CancelledBy string
}

// Order is created once at checkout and afterwards only its status facets change.
type Order struct {
	ID              string
	OrderNumber     string
	AccountID       string
	AccountEmail    string
	AccountName     string
	Items           []OrderLineItem
	ShippingAddress Address
	PaymentMethod   string
	Currency        string
	Prices          PriceBreakdown
	Payment         PaymentFacet
	Delivery        DeliveryFacet
	Cancellation    CancellationFacet
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Status returns the derived display status.
func (o Order) Status() OrderStatus {
	return DeriveOrderStatus(o.Payment.Paid, o.Delivery.Delivered, o.Cancellation.Cancelled)
}

// OrderFilter narrows the administrative order listing. Nil flags match any value.
type OrderFilter struct {
	Keyword   string
	Paid      *bool
	Delivered *bool
	Cancelled *bool
}
