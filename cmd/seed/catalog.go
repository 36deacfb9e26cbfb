package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/shutterbay/api/internal/domain"
	"github.com/shutterbay/api/internal/repositories"
)

// catalogFile is the on-disk fixture format.
type catalogFile struct {
	Brands     []taxonomyEntry `yaml:"brands"`
	Categories []taxonomyEntry `yaml:"categories"`
	Products   []productEntry  `yaml:"products"`
}

type taxonomyEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type productEntry struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Brand        string   `yaml:"brand"`
	Category     string   `yaml:"category"`
	Price        int64    `yaml:"price"`
	CountInStock int      `yaml:"count_in_stock"`
	Images       []string `yaml:"images"`
}

type seedSummary struct {
	Brands          int
	Categories      int
	ProductsCreated int
	ProductsUpdated int
}

type catalogTargets struct {
	Brands     repositories.BrandRepository
	Categories repositories.CategoryRepository
	Products   repositories.ProductRepository
}

func loadCatalogFile(path string) (catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return catalogFile{}, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (catalogFile, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return catalogFile{}, fmt.Errorf("parse catalog yaml: %w", err)
	}
	if err := file.validate(); err != nil {
		return catalogFile{}, err
	}
	return file, nil
}

func (f catalogFile) validate() error {
	brands := make(map[string]struct{}, len(f.Brands))
	for i, b := range f.Brands {
		if strings.TrimSpace(b.ID) == "" || strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("brands[%d]: id and name are required", i)
		}
		brands[b.ID] = struct{}{}
	}
	categories := make(map[string]struct{}, len(f.Categories))
	for i, c := range f.Categories {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("categories[%d]: id and name are required", i)
		}
		categories[c.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(f.Products))
	for i, p := range f.Products {
		switch {
		case strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "":
			return fmt.Errorf("products[%d]: id and name are required", i)
		case p.Price < 0 || p.CountInStock < 0:
			return fmt.Errorf("products[%d] %s: price and stock must not be negative", i, p.ID)
		}
		if _, ok := brands[p.Brand]; !ok {
			return fmt.Errorf("products[%d] %s: unknown brand %q", i, p.ID, p.Brand)
		}
		if _, ok := categories[p.Category]; !ok {
			return fmt.Errorf("products[%d] %s: unknown category %q", i, p.ID, p.Category)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("products[%d]: duplicate id %s", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// seedCatalog writes the fixture. Brands and categories are create-only; products are upserted by id.
func seedCatalog(ctx context.Context, targets catalogTargets, file catalogFile, currency string, now time.Time) (seedSummary, error) {
	var summary seedSummary
	brandNames := make(map[string]string, len(file.Brands))
	for _, b := range file.Brands {
		brandNames[b.ID] = b.Name
		err := targets.Brands.Insert(ctx, domain.Brand{ID: b.ID, Name: b.Name, Slug: b.ID, CreatedAt: now})
		if err != nil && !isConflict(err) {
			return summary, fmt.Errorf("insert brand %s: %w", b.ID, err)
		}
		if err == nil {
			summary.Brands++
		}
	}
	categoryNames := make(map[string]string, len(file.Categories))
	for _, c := range file.Categories {
		categoryNames[c.ID] = c.Name
		err := targets.Categories.Insert(ctx, domain.Category{ID: c.ID, Name: c.Name, Slug: c.ID, CreatedAt: now})
		if err != nil && !isConflict(err) {
			return summary, fmt.Errorf("insert category %s: %w", c.ID, err)
		}
		if err == nil {
			summary.Categories++
		}
	}

	for _, p := range file.Products {
		product := domain.Product{
			ID:           domain.ProductRef(p.ID),
			Name:         p.Name,
			Description:  p.Description,
			BrandID:      p.Brand,
			BrandName:    brandNames[p.Brand],
			CategoryID:   p.Category,
			CategoryName: categoryNames[p.Category],
			Price:        p.Price,
			Currency:     currency,
			CountInStock: p.CountInStock,
			Images:       p.Images,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		existing, err := targets.Products.FindByID(ctx, product.ID)
		switch {
		case err == nil:
			product.CreatedAt = existing.CreatedAt
			product.Rating = existing.Rating
			product.NumReviews = existing.NumReviews
			if err := targets.Products.Update(ctx, product); err != nil {
				return summary, fmt.Errorf("update product %s: %w", p.ID, err)
			}
			summary.ProductsUpdated++
		case isNotFound(err):
			if err := targets.Products.Insert(ctx, product); err != nil {
				return summary, fmt.Errorf("insert product %s: %w", p.ID, err)
			}
			summary.ProductsCreated++
		default:
			return summary, fmt.Errorf("load product %s: %w", p.ID, err)
		}
	}
	return summary, nil
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
