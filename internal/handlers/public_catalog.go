package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/httpx"
	"github.com/shutterbay/api/internal/platform/pagination"
	"github.com/shutterbay/api/internal/services"
)

const (
	defaultProductPageSize = 12
	maxGuestCartBodySize   = 32 * 1024
)

// PublicHandlers serves anonymous catalog browsing and the guest cart preview.
type PublicHandlers struct {
	catalog     services.CatalogService
	reviews     services.ReviewService
	carts       services.CartService
	maxPageSize int
}

// NewPublicHandlers constructs the public route handlers.
func NewPublicHandlers(catalog services.CatalogService, reviews services.ReviewService, carts services.CartService, maxPageSize int) *PublicHandlers {
	return &PublicHandlers{catalog: catalog, reviews: reviews, carts: carts, maxPageSize: maxPageSize}
}

// Routes registers the /public endpoints.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/products/{productID}/reviews", h.listReviews)
	r.Get("/brands", h.listBrands)
	r.Get("/categories", h.listCategories)
	r.Post("/guest-cart", h.viewGuestCart)
}

type productListResponse struct {
	Products []productPayload `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
}

func (h *PublicHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	query := r.URL.Query()
	page, err := pagination.Parse(query, pagination.Options{DefaultPageSize: defaultProductPageSize, MaxPageSize: h.maxPageSize})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter := services.ProductFilter{
		Keyword:    strings.TrimSpace(query.Get("keyword")),
		BrandID:    strings.TrimSpace(query.Get("brand")),
		CategoryID: strings.TrimSpace(query.Get("category")),
	}

	result, err := h.catalog.ListProducts(ctx, filter, page)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{
		Products: lo.Map(result.Items, func(p services.Product, _ int) productPayload { return buildProductPayload(p) }),
		Page:     result.Page,
		Pages:    result.Pages,
		Total:    result.Total,
	})
}

type productDetailResponse struct {
	Product         productPayload `json:"product"`
	DescriptionHTML string         `json:"description_html"`
}

func (h *PublicHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	detail, err := h.catalog.GetProduct(ctx, services.ProductRef(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productDetailResponse{
		Product:         buildProductPayload(detail.Product),
		DescriptionHTML: detail.DescriptionHTML,
	})
}

func (h *PublicHandlers) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(ctx, w, "review")
		return
	}
	reviews, err := h.reviews.ListByProduct(ctx, services.ProductRef(chi.URLParam(r, "productID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"reviews": lo.Map(reviews, func(review services.Review, _ int) reviewPayload { return buildReviewPayload(review) }),
	})
}

func (h *PublicHandlers) listBrands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	brands, err := h.catalog.ListBrands(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"brands": lo.Map(brands, func(b domain.Brand, _ int) taxonomyPayload {
			return taxonomyPayload{ID: b.ID, Name: b.Name, Slug: b.Slug}
		}),
	})
}

func (h *PublicHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"categories": lo.Map(categories, func(c domain.Category, _ int) taxonomyPayload {
			return taxonomyPayload{ID: c.ID, Name: c.Name, Slug: c.Slug}
		}),
	})
}

// viewGuestCart renders the client-held cart without persisting anything.
func (h *PublicHandlers) viewGuestCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.carts == nil {
		serviceUnavailable(ctx, w, "cart")
		return
	}
	var req guestCartRequest
	if !decodeJSONBody(ctx, w, r, maxGuestCartBodySize, &req, true) {
		return
	}
	view, err := h.carts.LoadCart(ctx, "", req.entries())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"cart": buildCartPayload(view)})
}
