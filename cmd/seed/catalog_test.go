package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/repositories"
)

type memoryBrands struct {
	items map[string]domain.Brand
}

func (m *memoryBrands) Insert(_ context.Context, brand domain.Brand) error {
	if _, ok := m.items[brand.ID]; ok {
		return pfirestore.Conflict("brands.insert", "exists")
	}
	m.items[brand.ID] = brand
	return nil
}

func (m *memoryBrands) FindByID(_ context.Context, id string) (domain.Brand, error) {
	b, ok := m.items[id]
	if !ok {
		return domain.Brand{}, pfirestore.NotFound("brands.get", id)
	}
	return b, nil
}

func (m *memoryBrands) List(context.Context) ([]domain.Brand, error) { return nil, nil }

type memoryCategories struct {
	items map[string]domain.Category
}

func (m *memoryCategories) Insert(_ context.Context, category domain.Category) error {
	if _, ok := m.items[category.ID]; ok {
		return pfirestore.Conflict("categories.insert", "exists")
	}
	m.items[category.ID] = category
	return nil
}

func (m *memoryCategories) FindByID(_ context.Context, id string) (domain.Category, error) {
	c, ok := m.items[id]
	if !ok {
		return domain.Category{}, pfirestore.NotFound("categories.get", id)
	}
	return c, nil
}

func (m *memoryCategories) List(context.Context) ([]domain.Category, error) { return nil, nil }

type memoryProducts struct {
	items map[domain.ProductRef]domain.Product
}

func (m *memoryProducts) Insert(_ context.Context, product domain.Product) error {
	m.items[product.ID] = product
	return nil
}

func (m *memoryProducts) Update(_ context.Context, product domain.Product) error {
	m.items[product.ID] = product
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, id domain.ProductRef) error {
	delete(m.items, id)
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, id domain.ProductRef) (domain.Product, error) {
	p, ok := m.items[id]
	if !ok {
		return domain.Product{}, pfirestore.NotFound("products.get", string(id))
	}
	return p, nil
}

func (m *memoryProducts) FindMany(context.Context, []domain.ProductRef) (map[domain.ProductRef]domain.Product, error) {
	return nil, nil
}

func (m *memoryProducts) List(context.Context, repositories.ProductListFilter) ([]domain.Product, error) {
	return nil, nil
}

func newMemoryTargets() (catalogTargets, *memoryProducts) {
	products := &memoryProducts{items: map[domain.ProductRef]domain.Product{}}
	return catalogTargets{
		Brands:     &memoryBrands{items: map[string]domain.Brand{}},
		Categories: &memoryCategories{items: map[string]domain.Category{}},
		Products:   products,
	}, products
}

func TestLoadCatalogFile(t *testing.T) {
	file, err := loadCatalogFile("testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(file.Brands) != 2 || len(file.Categories) != 2 || len(file.Products) != 2 {
		t.Fatalf("unexpected fixture shape: %#v", file)
	}
	if file.Products[0].CountInStock != 7 || len(file.Products[0].Images) != 1 {
		t.Fatalf("unexpected product: %#v", file.Products[0])
	}
}

func TestParseCatalogRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"unknown brand": `
brands: [{id: acme, name: Acme}]
categories: [{id: bodies, name: Bodies}]
products: [{id: x1, name: X1, brand: nope, category: bodies, price: 100}]`,
		"negative price": `
brands: [{id: acme, name: Acme}]
categories: [{id: bodies, name: Bodies}]
products: [{id: x1, name: X1, brand: acme, category: bodies, price: -1}]`,
		"duplicate product": `
brands: [{id: acme, name: Acme}]
categories: [{id: bodies, name: Bodies}]
products:
  - {id: x1, name: X1, brand: acme, category: bodies}
  - {id: x1, name: X1 again, brand: acme, category: bodies}`,
		"missing brand name": `brands: [{id: acme}]`,
		"malformed":          `brands: {`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseCatalog([]byte(strings.TrimSpace(raw))); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSeedCatalogUpsertsProducts(t *testing.T) {
	file, err := loadCatalogFile("testdata/catalog.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	targets, products := newMemoryTargets()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	summary, err := seedCatalog(context.Background(), targets, file, "USD", first)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	if diff := cmp.Diff(seedSummary{Brands: 2, Categories: 2, ProductsCreated: 2}, summary); diff != "" {
		t.Fatalf("first summary mismatch (-want +got):\n%s", diff)
	}
	seeded := products.items["acme-m5"]
	if seeded.BrandName != "Acme Optics" || seeded.CategoryName != "Camera Bodies" || seeded.Currency != "USD" {
		t.Fatalf("unexpected denormalised product: %#v", seeded)
	}

	seeded.Rating, seeded.NumReviews = 4.5, 2
	products.items["acme-m5"] = seeded

	second := first.Add(24 * time.Hour)
	summary, err = seedCatalog(context.Background(), targets, file, "USD", second)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if diff := cmp.Diff(seedSummary{ProductsUpdated: 2}, summary); diff != "" {
		t.Fatalf("second summary mismatch (-want +got):\n%s", diff)
	}
	reseeded := products.items["acme-m5"]
	if !reseeded.CreatedAt.Equal(first) || !reseeded.UpdatedAt.Equal(second) {
		t.Fatalf("unexpected timestamps: created %v updated %v", reseeded.CreatedAt, reseeded.UpdatedAt)
	}
	if reseeded.Rating != 4.5 || reseeded.NumReviews != 2 {
		t.Fatalf("expected review aggregate preserved, got %v/%d", reseeded.Rating, reseeded.NumReviews)
	}
}
