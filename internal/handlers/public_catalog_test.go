package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/services"
)

func newPublicRouter(catalog services.CatalogService, reviews services.ReviewService, carts services.CartService) chi.Router {
	handler := NewPublicHandlers(catalog, reviews, carts, 48)
	router := chi.NewRouter()
	router.Route("/public", handler.Routes)
	return router
}

func TestPublicHandlersListProducts(t *testing.T) {
	var gotFilter services.ProductFilter
	var gotPage services.Page
	catalog := &stubCatalogService{
		listFn: func(_ context.Context, filter services.ProductFilter, page services.Page) (domain.PageResult[services.Product], error) {
			gotFilter, gotPage = filter, page
			return domain.PageResult[services.Product]{
				Items: []services.Product{{ID: "cam-a", Name: "Mirrorless A", BrandID: "acme", BrandName: "Acme", Price: 4500, Currency: "USD"}},
				Page:  1,
				Pages: 1,
				Total: 1,
			}, nil
		},
	}
	router := newPublicRouter(catalog, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/public/products?keyword=mirrorless&brand=acme&category=bodies&pageSize=500", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotFilter != (services.ProductFilter{Keyword: "mirrorless", BrandID: "acme", CategoryID: "bodies"}) {
		t.Fatalf("unexpected filter: %#v", gotFilter)
	}
	if gotPage.Number != 1 || gotPage.Size != 48 {
		t.Fatalf("expected page size clamped to 48, got %#v", gotPage)
	}
	var resp productListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Total != 1 || len(resp.Products) != 1 || resp.Products[0].Brand != "Acme" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestPublicHandlersListProductsInvalidPage(t *testing.T) {
	router := newPublicRouter(&stubCatalogService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/public/products?page=0", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestPublicHandlersGetProduct(t *testing.T) {
	catalog := &stubCatalogService{
		getFn: func(_ context.Context, productID services.ProductRef) (services.ProductDetail, error) {
			if productID == "ghost" {
				return services.ProductDetail{}, fmt.Errorf("%w: product ghost", services.ErrNotFound)
			}
			return services.ProductDetail{
				Product:         services.Product{ID: productID, Name: "Mirrorless A"},
				DescriptionHTML: "<p><strong>Fast</strong> autofocus</p>",
			}, nil
		},
	}
	router := newPublicRouter(catalog, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/public/products/cam-a", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp productDetailResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Product.ID != "cam-a" || !strings.Contains(resp.DescriptionHTML, "<strong>Fast</strong>") {
		t.Fatalf("unexpected detail: %#v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/public/products/ghost", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestPublicHandlersGuestCartPreview(t *testing.T) {
	carts := &stubCartService{
		loadFn: func(_ context.Context, accountID string, guest services.GuestCartEntries) (services.CartView, error) {
			if accountID != "" {
				t.Fatalf("expected guest load, got account %q", accountID)
			}
			collapsed := guest.Collapse()
			lines := make([]services.CartLine, 0, len(collapsed))
			for ref, qty := range collapsed {
				lines = append(lines, services.CartLine{ProductID: ref, Quantity: qty})
			}
			return cartViewOf("", lines...), nil
		},
	}
	router := newPublicRouter(nil, nil, carts)

	req := httptest.NewRequest(http.MethodPost, "/public/guest-cart", strings.NewReader(`{"items":["cam-a","lens-b","cam-a"]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Cart cartPayload `json:"cart"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Cart.Units != 3 || len(resp.Cart.Items) != 2 || resp.Cart.AccountID != "" {
		t.Fatalf("unexpected guest cart: %#v", resp.Cart)
	}
}

func TestPublicHandlersTaxonomies(t *testing.T) {
	catalog := &stubCatalogService{
		brands:     []services.Brand{{ID: "acme", Name: "Acme", Slug: "acme"}},
		categories: []services.Category{{ID: "lenses", Name: "Lenses", Slug: "lenses"}},
	}
	router := newPublicRouter(catalog, nil, nil)

	for path, key := range map[string]string{"/public/brands": "brands", "/public/categories": "categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rr.Code)
		}
		var body map[string][]taxonomyPayload
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: failed to parse response: %v", path, err)
		}
		if len(body[key]) != 1 {
			t.Fatalf("%s: expected one %s entry, got %#v", path, key, body)
		}
	}
}

func TestPublicHandlersReviewsUnavailable(t *testing.T) {
	router := newPublicRouter(&stubCatalogService{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/public/products/cam-a/reviews", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}
