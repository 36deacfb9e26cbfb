package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/auth"
	"github.com/shutterbay/api/internal/platform/httpx"
	"github.com/shutterbay/api/internal/platform/pagination"
	"github.com/shutterbay/api/internal/services"
)

const (
	maxCatalogRequestBody  = 256 * 1024
	maxImageUploadSize     = 10 << 20
	defaultAdminOrderPage  = 20
	imageUploadFormField   = "image"
	multipartMemoryBufSize = 2 << 20
)

// AdminHandlers exposes the administrator order dashboard and catalog maintenance endpoints.
type AdminHandlers struct {
	authn       *auth.Authenticator
	catalog     services.CatalogService
	orders      services.OrderService
	maxPageSize int
}

// NewAdminHandlers constructs admin handlers.
func NewAdminHandlers(authn *auth.Authenticator, catalog services.CatalogService, orders services.OrderService, maxPageSize int) *AdminHandlers {
	return &AdminHandlers{authn: authn, catalog: catalog, orders: orders, maxPageSize: maxPageSize}
}

// Routes registers admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth(auth.RoleAdmin))
	}
	r.Get("/orders", h.listOrders)
	r.Route("/catalog", func(rt chi.Router) {
		rt.Post("/products", h.createProduct)
		rt.Put("/products/{productID}", h.updateProduct)
		rt.Post("/products/{productID}/images", h.uploadProductImage)
		rt.Post("/brands", h.createBrand)
		rt.Post("/categories", h.createCategory)
	})
}

type adminOrderListResponse struct {
	Orders []orderPayload `json:"orders"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Total  int            `json:"total"`
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}
	query := r.URL.Query()
	page, err := pagination.Parse(query, pagination.Options{DefaultPageSize: defaultAdminOrderPage, MaxPageSize: h.maxPageSize})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter := domain.OrderFilter{Keyword: strings.TrimSpace(query.Get("keyword"))}
	for name, target := range map[string]**bool{
		"paid":      &filter.Paid,
		"delivered": &filter.Delivered,
		"cancelled": &filter.Cancelled,
	} {
		raw := strings.TrimSpace(query.Get(name))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", name+" must be true or false", http.StatusBadRequest))
			return
		}
		*target = lo.ToPtr(value)
	}

	result, err := h.orders.List(ctx, services.ListOrdersCommand{Actor: actorFrom(identity), Filter: filter, Page: page})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, adminOrderListResponse{
		Orders: buildOrderPayloads(result.Items),
		Page:   result.Page,
		Pages:  result.Pages,
		Total:  result.Total,
	})
}

type productRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	BrandID      string   `json:"brand_id"`
	CategoryID   string   `json:"category_id"`
	Price        int64    `json:"price"`
	CountInStock int      `json:"count_in_stock"`
	Images       []string `json:"images"`
}

func (req productRequest) command(productID services.ProductRef) services.UpsertProductCommand {
	return services.UpsertProductCommand{
		ProductID:    productID,
		Name:         req.Name,
		Description:  req.Description,
		BrandID:      req.BrandID,
		CategoryID:   req.CategoryID,
		Price:        req.Price,
		CountInStock: req.CountInStock,
		Images:       req.Images,
	}
}

type productResponse struct {
	Product productPayload `json:"product"`
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogRequestBody, &req, false) {
		return
	}
	product, err := h.catalog.CreateProduct(ctx, req.command(""))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	var req productRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogRequestBody, &req, false) {
		return
	}
	productID := services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID")))
	product, err := h.catalog.UpdateProduct(ctx, req.command(productID))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

// uploadProductImage accepts a multipart form with a single "image" file part.
func (h *AdminHandlers) uploadProductImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
	if err := r.ParseMultipartForm(multipartMemoryBufSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "image exceeds allowed size", http.StatusRequestEntityTooLarge))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "multipart form with an image file is required", http.StatusBadRequest))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile(imageUploadFormField)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "image file part is required", http.StatusBadRequest))
		return
	}
	defer file.Close()

	product, err := h.catalog.UploadProductImage(ctx, services.UploadProductImageCommand{
		ProductID: services.ProductRef(strings.TrimSpace(chi.URLParam(r, "productID"))),
		FileName:  header.Filename,
		Body:      file,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, productResponse{Product: buildProductPayload(product)})
}

type taxonomyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *AdminHandlers) createBrand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	var req taxonomyRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogRequestBody, &req, false) {
		return
	}
	brand, err := h.catalog.CreateBrand(ctx, services.CreateTaxonomyCommand{Name: req.Name, Slug: req.Slug})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"brand": taxonomyPayload{ID: brand.ID, Name: brand.Name, Slug: brand.Slug},
	})
}

func (h *AdminHandlers) createCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(ctx, w, "catalog")
		return
	}
	var req taxonomyRequest
	if !decodeJSONBody(ctx, w, r, maxCatalogRequestBody, &req, false) {
		return
	}
	category, err := h.catalog.CreateCategory(ctx, services.CreateTaxonomyCommand{Name: req.Name, Slug: req.Slug})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, map[string]any{
		"category": taxonomyPayload{ID: category.ID, Name: category.Name, Slug: category.Slug},
	})
}
