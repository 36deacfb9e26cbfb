package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

const (
	maxOrderBodySize   = 32 * 1024
	maxPaymentBodySize = 8 * 1024
)

// OrderHandlers exposes checkout and the order lifecycle to authenticated accounts. Pay and
// deliver are reachable by any signed-in account; the order service rejects non-administrators.
type OrderHandlers struct {
	authn    *auth.Authenticator
	orders   services.OrderService
	checkout services.CheckoutService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, checkout services.CheckoutService) *OrderHandlers {
	return &OrderHandlers{authn: authn, orders: orders, checkout: checkout}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.placeOrder)
	r.Get("/", h.listOwnOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Put("/{orderID}:pay", h.markPaid)
	r.Put("/{orderID}:deliver", h.markDelivered)
}

type placeOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	ShippingAddress addressPayload          `json:"shipping_address"`
	PaymentMethod   string                  `json:"payment_method"`
	Items           []placeOrderItemRequest `json:"items"`
}

type markPaidRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		serviceUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !decodeJSONBody(ctx, w, r, maxOrderBodySize, &req, false) {
		return
	}
	order, err := h.checkout.PlaceOrder(ctx, services.PlaceOrderCommand{
		AccountID:    identity.UID,
		AccountEmail: identity.Email,
		AccountName:  identity.DisplayName,
		Items: lo.Map(req.Items, func(item placeOrderItemRequest, _ int) services.CheckoutItem {
			return services.CheckoutItem{ProductID: services.ProductRef(strings.TrimSpace(item.ProductID)), Quantity: item.Quantity}
		}),
		ShippingAddress: req.ShippingAddress.toAddress(),
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOwnOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	orders, err := h.orders.ListOwn(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"orders": buildOrderPayloads(orders)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
		return h.orders.Get(ctx, cmd)
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
		return h.orders.Cancel(ctx, cmd)
	})
}

func (h *OrderHandlers) markDelivered(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error) {
		return h.orders.MarkDelivered(ctx, cmd)
	})
}

func (h *OrderHandlers) markPaid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req markPaidRequest
	if !decodeJSONBody(ctx, w, r, maxPaymentBodySize, &req, true) {
		return
	}
	order, err := h.orders.MarkPaid(ctx, services.MarkOrderPaidCommand{
		OrderID: strings.TrimSpace(chi.URLParam(r, "orderID")),
		Actor:   actorFrom(identity),
		Result: services.PaymentResult{
			ID:           strings.TrimSpace(req.ID),
			Status:       strings.TrimSpace(req.Status),
			UpdateTime:   strings.TrimSpace(req.UpdateTime),
			EmailAddress: strings.TrimSpace(req.EmailAddress),
		},
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type orderAction func(ctx context.Context, cmd services.OrderActionCommand) (services.Order, error)

// act runs a single-order operation on behalf of the caller and renders the result.
func (h *OrderHandlers) act(w http.ResponseWriter, r *http.Request, run orderAction) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	order, err := run(ctx, services.OrderActionCommand{
		OrderID: strings.TrimSpace(chi.URLParam(r, "orderID")),
		Actor:   actorFrom(identity),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}
