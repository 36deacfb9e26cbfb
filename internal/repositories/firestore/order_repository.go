package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	OrderNumber     string                 `firestore:"orderNumber"`
	AccountID       string                 `firestore:"accountId"`
	AccountEmail    string                 `firestore:"accountEmail"`
	AccountName     string                 `firestore:"accountName"`
	Items           []orderItemDocument    `firestore:"items"`
	ShippingAddress orderAddressDocument   `firestore:"shippingAddress"`
	PaymentMethod   string                 `firestore:"paymentMethod"`
	Currency        string                 `firestore:"currency"`
	ItemsPrice      int64                  `firestore:"itemsPrice"`
	ShippingPrice   int64                  `firestore:"shippingPrice"`
	TaxPrice        int64                  `firestore:"taxPrice"`
	TotalPrice      int64                  `firestore:"totalPrice"`
	IsPaid          bool                   `firestore:"isPaid"`
	PaidAt          *time.Time             `firestore:"paidAt,omitempty"`
	PaymentResult   *paymentResultDocument `firestore:"paymentResult,omitempty"`
	IsDelivered     bool                   `firestore:"isDelivered"`
	DeliveredAt     *time.Time             `firestore:"deliveredAt,omitempty"`
	IsCancelled     bool                   `firestore:"isCancelled"`
	CancelledAt     *time.Time             `firestore:"cancelledAt,omitempty"`
	CancelledBy     string                 `firestore:"cancelledBy,omitempty"`
	CreatedAt       time.Time              `firestore:"createdAt"`
	UpdatedAt       time.Time              `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Image     string `firestore:"image"`
	UnitPrice int64  `firestore:"unitPrice"`
	Quantity  int    `firestore:"quantity"`
}

type orderAddressDocument struct {
	Recipient  string `firestore:"recipient"`
	Line1      string `firestore:"line1"`
	Line2      string `firestore:"line2,omitempty"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Country    string `firestore:"country"`
}

type paymentResultDocument struct {
	ID           string `firestore:"id"`
	Status       string `firestore:"status"`
	UpdateTime   string `firestore:"updateTime"`
	EmailAddress string `firestore:"emailAddress"`
}

// OrderRepository persists orders in a single top level collection.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		base:     pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection),
	}, nil
}

// Insert creates the order document. Reusing an order ID yields a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	return r.base.Create(ctx, strings.TrimSpace(order.ID), encodeOrder(order))
}

// UpdatePayment writes only the payment fields. A missing order yields a not-found error.
func (r *OrderRepository) UpdatePayment(ctx context.Context, orderID string, payment domain.PaymentFacet, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	return r.base.Update(ctx, strings.TrimSpace(orderID), paymentUpdates(payment, updatedAt))
}

// UpdateDelivery writes only the delivery fields. A missing order yields a not-found error.
func (r *OrderRepository) UpdateDelivery(ctx context.Context, orderID string, delivery domain.DeliveryFacet, updatedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	return r.base.Update(ctx, strings.TrimSpace(orderID), deliveryUpdates(delivery, updatedAt))
}

// UpdateCancellation runs decide against the order read inside a transaction and writes the
// cancellation fields in the same transaction, so a delivery committed first is always observed.
func (r *OrderRepository) UpdateCancellation(ctx context.Context, orderID string, updatedAt time.Time, decide repositories.CancellationDecision) (domain.Order, error) {
	if r == nil || r.provider == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if decide == nil {
		return domain.Order{}, errors.New("order repository: cancellation decision is required")
	}
	orderID = strings.TrimSpace(orderID)

	var (
		result    domain.Order
		decideErr error
	)
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		decideErr = nil
		doc, found, err := r.base.GetTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !found {
			return pfirestore.NotFound("orders.cancel", orderID)
		}
		current := decodeOrder(doc)
		facet, write, err := decide(current)
		if err != nil {
			decideErr = err
			return err
		}
		if !write {
			result = current
			return nil
		}

		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.Update(ref, cancellationUpdates(facet, updatedAt)); err != nil {
			return err
		}
		current.Cancellation = domain.CancellationFacet{
			Cancelled:   facet.Cancelled,
			CancelledAt: utcPtr(facet.CancelledAt),
			CancelledBy: facet.CancelledBy,
		}
		current.UpdatedAt = updatedAt.UTC()
		result = current
		return nil
	})
	if decideErr != nil {
		return domain.Order{}, decideErr
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.cancel", err)
	}
	return result, nil
}

func paymentUpdates(payment domain.PaymentFacet, updatedAt time.Time) []firestore.Update {
	var result *paymentResultDocument
	if payment.Result != nil {
		result = &paymentResultDocument{
			ID:           payment.Result.ID,
			Status:       payment.Result.Status,
			UpdateTime:   payment.Result.UpdateTime,
			EmailAddress: payment.Result.EmailAddress,
		}
	}
	return []firestore.Update{
		{Path: "isPaid", Value: payment.Paid},
		{Path: "paidAt", Value: utcPtr(payment.PaidAt)},
		{Path: "paymentResult", Value: result},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
}

func deliveryUpdates(delivery domain.DeliveryFacet, updatedAt time.Time) []firestore.Update {
	return []firestore.Update{
		{Path: "isDelivered", Value: delivery.Delivered},
		{Path: "deliveredAt", Value: utcPtr(delivery.DeliveredAt)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
}

func cancellationUpdates(cancellation domain.CancellationFacet, updatedAt time.Time) []firestore.Update {
	return []firestore.Update{
		{Path: "isCancelled", Value: cancellation.Cancelled},
		{Path: "cancelledAt", Value: utcPtr(cancellation.CancelledAt)},
		{Path: "cancelledBy", Value: strings.TrimSpace(cancellation.CancelledBy)},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
}

// FindByID loads a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrder(doc), nil
}

// ListByAccount returns every order placed by the account, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("accountId", "==", strings.TrimSpace(accountID)).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

// List returns orders matching the filter's status flags, newest first.
func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.Paid != nil {
			q = q.Where("isPaid", "==", *filter.Paid)
		}
		if filter.Delivered != nil {
			q = q.Where("isDelivered", "==", *filter.Delivered)
		}
		if filter.Cancelled != nil {
			q = q.Where("isCancelled", "==", *filter.Cancelled)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	return decodeOrders(docs), nil
}

func encodeOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:  order.OrderNumber,
		AccountID:    order.AccountID,
		AccountEmail: order.AccountEmail,
		AccountName:  order.AccountName,
		Items:        make([]orderItemDocument, 0, len(order.Items)),
		ShippingAddress: orderAddressDocument{
			Recipient:  order.ShippingAddress.Recipient,
			Line1:      order.ShippingAddress.Line1,
			Line2:      order.ShippingAddress.Line2,
			City:       order.ShippingAddress.City,
			PostalCode: order.ShippingAddress.PostalCode,
			Country:    order.ShippingAddress.Country,
		},
		PaymentMethod: order.PaymentMethod,
		Currency:      order.Currency,
		ItemsPrice:    order.Prices.Items,
		ShippingPrice: order.Prices.Shipping,
		TaxPrice:      order.Prices.Tax,
		TotalPrice:    order.Prices.Total,
		IsPaid:        order.Payment.Paid,
		PaidAt:        utcPtr(order.Payment.PaidAt),
		IsDelivered:   order.Delivery.Delivered,
		DeliveredAt:   utcPtr(order.Delivery.DeliveredAt),
		IsCancelled:   order.Cancellation.Cancelled,
		CancelledAt:   utcPtr(order.Cancellation.CancelledAt),
		CancelledBy:   order.Cancellation.CancelledBy,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ProductID: string(item.ProductID),
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	if result := order.Payment.Result; result != nil {
		doc.PaymentResult = &paymentResultDocument{
			ID:           result.ID,
			Status:       result.Status,
			UpdateTime:   result.UpdateTime,
			EmailAddress: result.EmailAddress,
		}
	}
	return doc
}

func decodeOrders(docs []pfirestore.Document[orderDocument]) []domain.Order {
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrder(doc))
	}
	return orders
}

func decodeOrder(doc pfirestore.Document[orderDocument]) domain.Order {
	data := doc.Data
	order := domain.Order{
		ID:           doc.ID,
		OrderNumber:  data.OrderNumber,
		AccountID:    data.AccountID,
		AccountEmail: data.AccountEmail,
		AccountName:  data.AccountName,
		Items:        make([]domain.OrderLineItem, 0, len(data.Items)),
		ShippingAddress: domain.Address{
			Recipient:  data.ShippingAddress.Recipient,
			Line1:      data.ShippingAddress.Line1,
			Line2:      data.ShippingAddress.Line2,
			City:       data.ShippingAddress.City,
			PostalCode: data.ShippingAddress.PostalCode,
			Country:    data.ShippingAddress.Country,
		},
		PaymentMethod: data.PaymentMethod,
		Currency:      data.Currency,
		Prices: domain.PriceBreakdown{
			Items:    data.ItemsPrice,
			Shipping: data.ShippingPrice,
			Tax:      data.TaxPrice,
			Total:    data.TotalPrice,
		},
		Payment:      domain.PaymentFacet{Paid: data.IsPaid, PaidAt: utcPtr(data.PaidAt)},
		Delivery:     domain.DeliveryFacet{Delivered: data.IsDelivered, DeliveredAt: utcPtr(data.DeliveredAt)},
		Cancellation: domain.CancellationFacet{Cancelled: data.IsCancelled, CancelledAt: utcPtr(data.CancelledAt), CancelledBy: data.CancelledBy},
		CreatedAt:    data.CreatedAt.UTC(),
		UpdatedAt:    data.UpdatedAt.UTC(),
	}
	for _, item := range data.Items {
		order.Items = append(order.Items, domain.OrderLineItem{
			ProductID: domain.ProductRef(item.ProductID),
			Name:      item.Name,
			Image:     item.Image,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	if data.PaymentResult != nil {
		order.Payment.Result = &domain.PaymentResult{
			ID:           data.PaymentResult.ID,
			Status:       data.PaymentResult.Status,
			UpdateTime:   data.PaymentResult.UpdateTime,
			EmailAddress: data.PaymentResult.EmailAddress,
		}
	}
	return order
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.UTC()
	return &v
}
