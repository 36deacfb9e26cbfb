package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
	"github.com/yuin/goldmark"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/platform/pagination"
	"github.com/shutterbay/api/internal/platform/storage"
	"github.com/shutterbay/api/internal/platform/textutil"
	"github.com/shutterbay/api/internal/repositories"
)

const (
	maxProductNameLength        = 200
	maxProductDescriptionLength = 20000
	maxProductImages            = 12
)

// CatalogServiceDeps wires catalog repositories and optional collaborators.
type CatalogServiceDeps struct {
	Products        repositories.ProductRepository
	Brands          repositories.BrandRepository
	Categories      repositories.CategoryRepository
	Cache           ProductCache
	Images          ImageStore
	DefaultCurrency string
	Clock           func() time.Time
	IDGenerator     func() string
	Logger          func(context.Context, string, map[string]any)
}

type catalogService struct {
	products   repositories.ProductRepository
	brands     repositories.BrandRepository
	categories repositories.CategoryRepository
	cache      ProductCache
	images     ImageStore
	currency   string
	markdown   goldmark.Markdown
	policy     *bluemonday.Policy
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil || deps.Brands == nil || deps.Categories == nil {
		return nil, errors.New("catalog service: product, brand and category repositories are required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "USD"
	}
	return &catalogService{
		products:   deps.Products,
		brands:     deps.Brands,
		categories: deps.Categories,
		cache:      deps.Cache,
		images:     deps.Images,
		currency:   currency,
		markdown:   goldmark.New(),
		policy:     bluemonday.UGCPolicy(),
		now:        func() time.Time { return clock().UTC() },
		newID:      idGen,
		logger:     logger,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter, page Page) (domain.PageResult[Product], error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{
		BrandID:    strings.TrimSpace(filter.BrandID),
		CategoryID: strings.TrimSpace(filter.CategoryID),
	})
	if err != nil {
		return domain.PageResult[Product]{}, mapRepositoryError(err)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		products = lo.Filter(products, func(p Product, _ int) bool {
			return textutil.ContainsFold(keyword, p.Name, p.BrandName, p.CategoryName)
		})
	}
	if products == nil {
		products = []Product{}
	}
	return pagination.Apply(products, page), nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID ProductRef) (ProductDetail, error) {
	product, err := s.findProduct(ctx, productID)
	if err != nil {
		return ProductDetail{}, err
	}
	return ProductDetail{Product: product, DescriptionHTML: s.renderDescription(ctx, product)}, nil
}

// FindProducts resolves products through the cache first and falls back to one batched store read.
func (s *catalogService) FindProducts(ctx context.Context, productIDs []ProductRef) (map[ProductRef]Product, error) {
	refs := lo.Uniq(lo.FilterMap(productIDs, func(id ProductRef, _ int) (ProductRef, bool) {
		ref := id.Normalize()
		return ref, ref != ""
	}))
	out := make(map[ProductRef]Product, len(refs))
	missing := make([]ProductRef, 0, len(refs))
	for _, ref := range refs {
		if product, ok := s.cached(ctx, ref); ok {
			out[ref] = product
			continue
		}
		missing = append(missing, ref)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := s.products.FindMany(ctx, missing)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	for ref, product := range loaded {
		out[ref] = product
		s.store(ctx, product)
	}
	return out, nil
}

func (s *catalogService) ListBrands(ctx context.Context) ([]Brand, error) {
	brands, err := s.brands.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if brands == nil {
		brands = []Brand{}
	}
	return brands, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if categories == nil {
		categories = []Category{}
	}
	return categories, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	product, err := s.applyProductCommand(ctx, Product{}, cmd)
	if err != nil {
		return Product{}, err
	}
	now := s.now()
	product.ID = ProductRef("prd_" + s.newID())
	product.Currency = s.currency
	product.CreatedAt = now
	product.UpdatedAt = now
	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, mapRepositoryError(err)
	}
	s.logger(ctx, "catalog.product_created", map[string]any{"productID": string(product.ID)})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	existing, err := s.loadProduct(ctx, cmd.ProductID)
	if err != nil {
		return Product{}, err
	}
	product, err := s.applyProductCommand(ctx, existing, cmd)
	if err != nil {
		return Product{}, err
	}
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, mapRepositoryError(err)
	}
	s.invalidate(ctx, product.ID)
	return product, nil
}

func (s *catalogService) CreateBrand(ctx context.Context, cmd CreateTaxonomyCommand) (Brand, error) {
	name, slug, err := taxonomyFields(cmd)
	if err != nil {
		return Brand{}, err
	}
	brand := Brand{ID: slug, Name: name, Slug: slug, CreatedAt: s.now()}
	if err := s.brands.Insert(ctx, brand); err != nil {
		return Brand{}, mapRepositoryError(err)
	}
	return brand, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, cmd CreateTaxonomyCommand) (Category, error) {
	name, slug, err := taxonomyFields(cmd)
	if err != nil {
		return Category{}, err
	}
	category := Category{ID: slug, Name: name, Slug: slug, CreatedAt: s.now()}
	if err := s.categories.Insert(ctx, category); err != nil {
		return Category{}, mapRepositoryError(err)
	}
	return category, nil
}

// UploadProductImage stores the image in blob storage and appends its public URL to the product.
func (s *catalogService) UploadProductImage(ctx context.Context, cmd UploadProductImageCommand) (Product, error) {
	if s.images == nil {
		return Product{}, fmt.Errorf("%w: image storage is not configured", ErrUpstream)
	}
	if cmd.Body == nil {
		return Product{}, validationError("image body is required")
	}
	product, err := s.loadProduct(ctx, cmd.ProductID)
	if err != nil {
		return Product{}, err
	}
	if len(product.Images) >= maxProductImages {
		return Product{}, validationError("product already has %d images", maxProductImages)
	}

	url, err := s.images.PutProductImage(ctx, string(product.ID), cmd.FileName, cmd.Body)
	switch {
	case errors.Is(err, storage.ErrUnsupportedImage), errors.Is(err, storage.ErrImageTooLarge):
		return Product{}, fmt.Errorf("%w: %v", ErrValidation, err)
	case err != nil:
		s.logger(ctx, "catalog.image_upload_failed", map[string]any{"productID": string(product.ID), "error": err})
		return Product{}, fmt.Errorf("%w: upload image: %v", ErrUpstream, err)
	}

	product.Images = append(product.Images, url)
	product.UpdatedAt = s.now()
	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, mapRepositoryError(err)
	}
	s.invalidate(ctx, product.ID)
	return product, nil
}

func (s *catalogService) applyProductCommand(ctx context.Context, product Product, cmd UpsertProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	switch {
	case name == "":
		return Product{}, validationError("name is required")
	case len([]rune(name)) > maxProductNameLength:
		return Product{}, validationError("name must be at most %d characters", maxProductNameLength)
	case len(cmd.Description) > maxProductDescriptionLength:
		return Product{}, validationError("description is too long")
	case cmd.Price < 0:
		return Product{}, validationError("price must not be negative")
	case cmd.CountInStock < 0:
		return Product{}, validationError("count in stock must not be negative")
	case len(cmd.Images) > maxProductImages:
		return Product{}, validationError("at most %d images are allowed", maxProductImages)
	}

	brand, err := s.brands.FindByID(ctx, strings.TrimSpace(cmd.BrandID))
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, validationError("unknown brand %q", cmd.BrandID)
		}
		return Product{}, mapRepositoryError(err)
	}
	category, err := s.categories.FindByID(ctx, strings.TrimSpace(cmd.CategoryID))
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, validationError("unknown category %q", cmd.CategoryID)
		}
		return Product{}, mapRepositoryError(err)
	}

	product.Name = name
	product.Description = strings.TrimSpace(cmd.Description)
	product.BrandID = brand.ID
	product.BrandName = brand.Name
	product.CategoryID = category.ID
	product.CategoryName = category.Name
	product.Price = cmd.Price
	product.CountInStock = cmd.CountInStock
	if cmd.Images != nil {
		product.Images = lo.Compact(lo.Map(cmd.Images, func(url string, _ int) string { return strings.TrimSpace(url) }))
	}
	return product, nil
}

func (s *catalogService) findProduct(ctx context.Context, productID ProductRef) (Product, error) {
	ref := productID.Normalize()
	if ref == "" {
		return Product{}, validationError("product id is required")
	}
	if product, ok := s.cached(ctx, ref); ok {
		return product, nil
	}
	product, err := s.products.FindByID(ctx, ref)
	if err != nil {
		return Product{}, mapRepositoryError(err)
	}
	s.store(ctx, product)
	return product, nil
}

// loadProduct reads from the store directly so writes never start from a stale cached copy.
func (s *catalogService) loadProduct(ctx context.Context, productID ProductRef) (Product, error) {
	ref := productID.Normalize()
	if ref == "" {
		return Product{}, validationError("product id is required")
	}
	product, err := s.products.FindByID(ctx, ref)
	if err != nil {
		return Product{}, mapRepositoryError(err)
	}
	return product, nil
}

func (s *catalogService) cached(ctx context.Context, ref ProductRef) (Product, bool) {
	if s.cache == nil {
		return Product{}, false
	}
	product, ok, err := s.cache.GetProduct(ctx, ref)
	if err != nil {
		s.logger(ctx, "catalog.cache_read_failed", map[string]any{"productID": string(ref), "error": err})
		return Product{}, false
	}
	return product, ok
}

func (s *catalogService) store(ctx context.Context, product Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.PutProduct(ctx, product); err != nil {
		s.logger(ctx, "catalog.cache_write_failed", map[string]any{"productID": string(product.ID), "error": err})
	}
}

func (s *catalogService) invalidate(ctx context.Context, ids ...ProductRef) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
		s.logger(ctx, "catalog.cache_invalidate_failed", map[string]any{"error": err})
	}
}

func (s *catalogService) renderDescription(ctx context.Context, product Product) string {
	if product.Description == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(product.Description), &buf); err != nil {
		s.logger(ctx, "catalog.markdown_failed", map[string]any{"productID": string(product.ID), "error": err})
		return s.policy.Sanitize(product.Description)
	}
	return string(s.policy.SanitizeBytes(buf.Bytes()))
}

func taxonomyFields(cmd CreateTaxonomyCommand) (string, string, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return "", "", validationError("name is required")
	}
	slug := slugify(cmd.Slug)
	if slug == "" {
		slug = slugify(name)
	}
	if slug == "" {
		return "", "", validationError("slug must contain letters or digits")
	}
	return name, slug, nil
}

func slugify(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
