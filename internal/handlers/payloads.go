package handlers

import (
	"strings"

	"github.com/samber/lo"

	"github.com/shutterbay/api/internal/services"
)

type productPayload struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	BrandID      string   `json:"brand_id"`
	Brand        string   `json:"brand"`
	CategoryID   string   `json:"category_id"`
	Category     string   `json:"category"`
	Price        int64    `json:"price"`
	Currency     string   `json:"currency"`
	CountInStock int      `json:"count_in_stock"`
	Images       []string `json:"images"`
	Rating       float64  `json:"rating"`
	NumReviews   int      `json:"num_reviews"`
	CreatedAt    string   `json:"created_at,omitempty"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

func buildProductPayload(p services.Product) productPayload {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return productPayload{
		ID:           string(p.ID),
		Name:         p.Name,
		Description:  p.Description,
		BrandID:      p.BrandID,
		Brand:        p.BrandName,
		CategoryID:   p.CategoryID,
		Category:     p.CategoryName,
		Price:        p.Price,
		Currency:     p.Currency,
		CountInStock: p.CountInStock,
		Images:       images,
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		CreatedAt:    formatTime(p.CreatedAt),
		UpdatedAt:    formatTime(p.UpdatedAt),
	}
}

type cartLinePayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Available bool            `json:"available"`
	Product   *productPayload `json:"product,omitempty"`
	LineTotal int64           `json:"line_total"`
}

type cartPayload struct {
	AccountID string            `json:"account_id,omitempty"`
	Items     []cartLinePayload `json:"items"`
	Units     int               `json:"units"`
	Subtotal  int64             `json:"subtotal"`
	Currency  string            `json:"currency"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

func buildCartPayload(view services.CartView) cartPayload {
	return cartPayload{
		AccountID: view.AccountID,
		Items: lo.Map(view.Lines, func(line services.CartLine, _ int) cartLinePayload {
			payload := cartLinePayload{ProductID: string(line.ProductID), Quantity: int(line.Quantity)}
			if line.Product != nil {
				product := buildProductPayload(*line.Product)
				payload.Product = &product
				payload.Available = true
				payload.LineTotal = line.Product.Price * int64(line.Quantity)
			}
			return payload
		}),
		Units:     view.Units,
		Subtotal:  view.Subtotal,
		Currency:  view.Currency,
		UpdatedAt: formatTime(view.UpdatedAt),
	}
}

type addressPayload struct {
	Recipient  string `json:"recipient"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (p addressPayload) toAddress() services.Address {
	return services.Address{
		Recipient:  p.Recipient,
		Line1:      p.Line1,
		Line2:      p.Line2,
		City:       p.City,
		PostalCode: p.PostalCode,
		Country:    p.Country,
	}
}

func buildAddressPayload(addr services.Address) addressPayload {
	return addressPayload{
		Recipient:  addr.Recipient,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

type orderItemPayload struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type orderPricesPayload struct {
	Items    int64 `json:"items"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

type paymentResultPayload struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

type orderPayload struct {
	ID              string                `json:"id"`
	OrderNumber     string                `json:"order_number"`
	AccountID       string                `json:"account_id"`
	AccountName     string                `json:"account_name,omitempty"`
	AccountEmail    string                `json:"account_email,omitempty"`
	Status          string                `json:"status"`
	Items           []orderItemPayload    `json:"items"`
	ShippingAddress addressPayload        `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	Currency        string                `json:"currency"`
	Prices          orderPricesPayload    `json:"prices"`
	IsPaid          bool                  `json:"is_paid"`
	PaidAt          string                `json:"paid_at,omitempty"`
	PaymentResult   *paymentResultPayload `json:"payment_result,omitempty"`
	IsDelivered     bool                  `json:"is_delivered"`
	DeliveredAt     string                `json:"delivered_at,omitempty"`
	IsCancelled     bool                  `json:"is_cancelled"`
	CancelledAt     string                `json:"cancelled_at,omitempty"`
	CancelledBy     string                `json:"cancelled_by,omitempty"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	payload := orderPayload{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		AccountID:    order.AccountID,
		AccountName:  order.AccountName,
		AccountEmail: order.AccountEmail,
		Status:       string(order.Status()),
		Items: lo.Map(order.Items, func(item services.OrderLineItem, _ int) orderItemPayload {
			return orderItemPayload{
				ProductID: string(item.ProductID),
				Name:      item.Name,
				Image:     item.Image,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
				Subtotal:  item.Subtotal(),
			}
		}),
		ShippingAddress: buildAddressPayload(order.ShippingAddress),
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		Prices: orderPricesPayload{
			Items:    order.Prices.Items,
			Shipping: order.Prices.Shipping,
			Tax:      order.Prices.Tax,
			Total:    order.Prices.Total,
		},
		IsPaid:      order.Payment.Paid,
		PaidAt:      formatTimePtr(order.Payment.PaidAt),
		IsDelivered: order.Delivery.Delivered,
		DeliveredAt: formatTimePtr(order.Delivery.DeliveredAt),
		IsCancelled: order.Cancellation.Cancelled,
		CancelledAt: formatTimePtr(order.Cancellation.CancelledAt),
		CancelledBy: order.Cancellation.CancelledBy,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
	}
	if result := order.Payment.Result; result != nil {
		payload.PaymentResult = &paymentResultPayload{
			ID:           result.ID,
			Status:       result.Status,
			UpdateTime:   result.UpdateTime,
			EmailAddress: result.EmailAddress,
		}
	}
	return payload
}

func buildOrderPayloads(orders []services.Order) []orderPayload {
	return lo.Map(orders, func(order services.Order, _ int) orderPayload { return buildOrderPayload(order) })
}

type accountPayload struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Provider    string   `json:"provider"`
	Roles       []string `json:"roles"`
	IsAdmin     bool     `json:"is_admin"`
	CreatedAt   string   `json:"created_at,omitempty"`
	LastLoginAt string   `json:"last_login_at,omitempty"`
}

func buildAccountPayload(account services.Account) accountPayload {
	roles := account.Roles
	if roles == nil {
		roles = []string{}
	}
	return accountPayload{
		ID:          account.ID,
		Email:       account.Email,
		Name:        account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Provider:    string(account.Provider),
		Roles:       roles,
		IsAdmin:     lo.ContainsBy(roles, func(role string) bool { return strings.EqualFold(role, "admin") }),
		CreatedAt:   formatTime(account.CreatedAt),
		LastLoginAt: formatTimePtr(account.LastLoginAt),
	}
}

type reviewPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

func buildReviewPayload(review services.Review) reviewPayload {
	return reviewPayload{
		ID:        review.ID,
		ProductID: string(review.ProductID),
		Name:      review.AuthorName,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: formatTime(review.CreatedAt),
	}
}

type notificationPayload struct {
	ID        string `json:"id"`
	Audience  string `json:"audience"`
	Message   string `json:"message"`
	Link      string `json:"link,omitempty"`
	Read      bool   `json:"read"`
	ReadAt    string `json:"read_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

func buildNotificationPayload(n services.Notification) notificationPayload {
	return notificationPayload{
		ID:        n.ID,
		Audience:  string(n.Audience),
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		ReadAt:    formatTimePtr(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}

type taxonomyPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// guestCartRequest carries the client-held cart. Repeated references encode quantity.
type guestCartRequest struct {
	Items []string `json:"items"`
}

func (r guestCartRequest) entries() services.GuestCartEntries {
	return lo.Map(r.Items, func(item string, _ int) services.ProductRef { return services.ProductRef(item) })
}
