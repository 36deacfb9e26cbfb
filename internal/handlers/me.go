package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/services"
)

// MeHandlers exposes account scoped endpoints for the current caller.
type MeHandlers struct {
	authn         *auth.Authenticator
	accounts      services.AccountService
	wishlist      services.WishlistService
	notifications services.NotificationService
}

// NewMeHandlers constructs handlers enforcing authentication before invoking the account services.
func NewMeHandlers(authn *auth.Authenticator, accounts services.AccountService, wishlist services.WishlistService, notifications services.NotificationService) *MeHandlers {
	return &MeHandlers{
		authn:         authn,
		accounts:      accounts,
		wishlist:      wishlist,
		notifications: notifications,
	}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getProfile)
	r.Route("/wishlist", func(rt chi.Router) {
		rt.Get("/", h.listWishlist)
		rt.Put("/{productID}", h.addWishlist)
		rt.Delete("/{productID}", h.removeWishlist)
	})
	r.Route("/notifications", func(rt chi.Router) {
		rt.Get("/", h.listNotifications)
		rt.Post("/{notificationID}/read", h.markNotificationRead)
	})
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.accounts == nil {
		serviceUnavailable(ctx, w, "account")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	account, err := h.accounts.Get(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"account": buildAccountPayload(account)})
}

type wishlistEntryPayload struct {
	ProductID string          `json:"product_id"`
	AddedAt   string          `json:"added_at"`
	Product   *productPayload `json:"product,omitempty"`
}

func (h *MeHandlers) listWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		serviceUnavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	entries, err := h.wishlist.List(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"items": lo.Map(entries, func(entry services.WishlistEntry, _ int) wishlistEntryPayload {
			payload := wishlistEntryPayload{
				ProductID: string(entry.Item.ProductID),
				AddedAt:   formatTime(entry.Item.AddedAt),
			}
			if entry.Product != nil {
				product := buildProductPayload(*entry.Product)
				payload.Product = &product
			}
			return payload
		}),
	})
}

func (h *MeHandlers) addWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		serviceUnavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	item, err := h.wishlist.Add(ctx, identity.UID, services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID"))))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, wishlistEntryPayload{
		ProductID: string(item.ProductID),
		AddedAt:   formatTime(item.AddedAt),
	})
}

func (h *MeHandlers) removeWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlist == nil {
		serviceUnavailable(ctx, w, "wishlist")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	if err := h.wishlist.Remove(ctx, identity.UID, services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID")))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MeHandlers) listNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		serviceUnavailable(ctx, w, "notification")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	notifications, err := h.notifications.List(ctx, actorFrom(identity))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"notifications": lo.Map(notifications, func(n services.Notification, _ int) notificationPayload {
			return buildNotificationPayload(n)
		}),
	})
}

func (h *MeHandlers) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.notifications == nil {
		serviceUnavailable(ctx, w, "notification")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	notification, err := h.notifications.MarkRead(ctx, services.MarkNotificationReadCommand{
		NotificationID: strings.TrimSpace(chi.URLParam(r, "notificationID")),
		Actor:          actorFrom(identity),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"notification": buildNotificationPayload(notification)})
}
