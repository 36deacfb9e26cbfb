package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

const maxCartBodySize = 32 * 1024

// CartHandlers exposes the signed-in account cart.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getCart)
	r.Post("/items/{productID}", h.addItem)
	r.Delete("/items/{productID}", h.removeItem)
	r.Post("/merge", h.mergeGuestCart)
}

type cartResponse struct {
	Cart           cartPayload `json:"cart"`
	ClearGuestCart bool        `json:"clear_guest_cart"`
}

type cartMutation func(ctx context.Context, accountID string, productID services.ProductRef) (services.CartView, error)

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	view, err := h.carts.LoadCart(ctx, identity.UID, nil)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, accountID string, productID services.ProductRef) (services.CartView, error) {
		return h.carts.AddOne(ctx, accountID, productID)
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, accountID string, productID services.ProductRef) (services.CartView, error) {
		return h.carts.RemoveOne(ctx, accountID, productID)
	})
}

func (h *CartHandlers) mutate(w http.ResponseWriter, r *http.Request, apply cartMutation) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	productID := services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID")))
	view, err := apply(ctx, identity.UID, productID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view)})
}

// mergeGuestCart folds a client-held cart into the account cart. Each call adds again, so clients
// must drop their local cart once clear_guest_cart is returned.
func (h *CartHandlers) mergeGuestCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	var req guestCartRequest
	if !decodeJSONBody(ctx, w, r, maxCartBodySize, &req, false) {
		return
	}
	view, err := h.carts.MergeGuestCart(ctx, identity.UID, req.entries())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(view), ClearGuestCart: true})
}
