package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/services"
)

func newAdminRouter(catalog services.CatalogService, orders services.OrderService) chi.Router {
	handler := NewAdminHandlers(nil, catalog, orders, 50)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)
	return router
}

func TestAdminHandlersListOrdersShape(t *testing.T) {
	var captured services.ListOrdersCommand
	orders := &stubOrderService{
		listFn: func(_ context.Context, cmd services.ListOrdersCommand) (domain.PageResult[services.Order], error) {
			captured = cmd
			return domain.PageResult[services.Order]{Items: []services.Order{sampleOrder()}, Page: 2, Pages: 3, Total: 11}, nil
		},
	}
	router := newAdminRouter(nil, orders)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/admin/orders?paid=false&cancelled=true&keyword=%20ada%20&page=2&pageSize=5", nil), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !captured.Actor.IsAdmin || captured.Actor.AccountID != "acc-admin" {
		t.Fatalf("unexpected actor: %#v", captured.Actor)
	}
	if captured.Filter.Keyword != "ada" {
		t.Fatalf("expected trimmed keyword, got %q", captured.Filter.Keyword)
	}
	if captured.Filter.Paid == nil || *captured.Filter.Paid {
		t.Fatalf("expected paid=false filter, got %v", captured.Filter.Paid)
	}
	if captured.Filter.Cancelled == nil || !*captured.Filter.Cancelled {
		t.Fatalf("expected cancelled=true filter, got %v", captured.Filter.Cancelled)
	}
	if captured.Filter.Delivered != nil {
		t.Fatalf("expected delivered filter unset, got %v", *captured.Filter.Delivered)
	}
	if captured.Page.Number != 2 || captured.Page.Size != 5 {
		t.Fatalf("unexpected page: %#v", captured.Page)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, key := range []string{"orders", "page", "pages", "total"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("expected key %q in response %s", key, rr.Body.String())
		}
	}
	var resp adminOrderListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Page != 2 || resp.Pages != 3 || resp.Total != 11 || len(resp.Orders) != 1 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestAdminHandlersListOrdersRejectsBadFlag(t *testing.T) {
	router := newAdminRouter(nil, &stubOrderService{})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/admin/orders?delivered=maybe", nil), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersListOrdersNonAdmin(t *testing.T) {
	orders := &stubOrderService{
		listFn: func(_ context.Context, cmd services.ListOrdersCommand) (domain.PageResult[services.Order], error) {
			if cmd.Actor.IsAdmin {
				t.Fatalf("expected non-admin actor")
			}
			return domain.PageResult[services.Order]{}, fmt.Errorf("%w: admin only", services.ErrAuthorization)
		},
	}
	router := newAdminRouter(nil, orders)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/admin/orders", nil), shopperIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestAdminHandlersCreateProduct(t *testing.T) {
	var captured services.UpsertProductCommand
	catalog := &stubCatalogService{
		createFn: func(_ context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
			captured = cmd
			return services.Product{ID: "prd_01", Name: cmd.Name, Price: cmd.Price, Currency: "USD"}, nil
		},
	}
	router := newAdminRouter(catalog, nil)

	body := `{"name":"Tripod T1","brand_id":"acme","category_id":"tripods","price":8900,"count_in_stock":4}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/admin/catalog/products", strings.NewReader(body)), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ProductID != "" || captured.BrandID != "acme" || captured.CountInStock != 4 {
		t.Fatalf("unexpected command: %#v", captured)
	}
	var resp productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Product.ID != "prd_01" || len(resp.Product.Images) != 0 || resp.Product.Images == nil {
		t.Fatalf("unexpected product payload: %#v", resp.Product)
	}
}

func TestAdminHandlersUpdateProductNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		updateFn: func(_ context.Context, cmd services.UpsertProductCommand) (services.Product, error) {
			if cmd.ProductID != "prd_missing" {
				t.Fatalf("expected product id from path, got %s", cmd.ProductID)
			}
			return services.Product{}, fmt.Errorf("%w: product", services.ErrNotFound)
		},
	}
	router := newAdminRouter(catalog, nil)

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/admin/catalog/products/prd_missing", strings.NewReader(`{"name":"x"}`)), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestAdminHandlersUploadProductImage(t *testing.T) {
	var gotName, gotBody string
	catalog := &stubCatalogService{
		uploadFn: func(_ context.Context, cmd services.UploadProductImageCommand) (services.Product, error) {
			data, err := io.ReadAll(cmd.Body)
			if err != nil {
				t.Fatalf("read upload body: %v", err)
			}
			gotName, gotBody = cmd.FileName, string(data)
			return services.Product{ID: cmd.ProductID, Images: []string{"https://cdn.example.com/products/prd_01/lens.jpg"}}, nil
		},
	}
	router := newAdminRouter(catalog, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", "lens.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("jpeg-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/catalog/products/prd_01/images", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = withIdentity(req, adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotName != "lens.jpg" || gotBody != "jpeg-bytes" {
		t.Fatalf("unexpected upload: name=%q body=%q", gotName, gotBody)
	}
}

func TestAdminHandlersUploadRequiresMultipart(t *testing.T) {
	router := newAdminRouter(&stubCatalogService{}, nil)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/admin/catalog/products/prd_01/images", strings.NewReader("raw")), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersCreateBrandConflict(t *testing.T) {
	catalog := &stubCatalogService{
		brandFn: func(context.Context, services.CreateTaxonomyCommand) (services.Brand, error) {
			return services.Brand{}, fmt.Errorf("%w: brand exists", services.ErrConflict)
		},
	}
	router := newAdminRouter(catalog, nil)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/admin/catalog/brands", strings.NewReader(`{"name":"Acme"}`)), adminIdentity())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}
