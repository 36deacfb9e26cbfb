package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
	"github.com/shutterbay/api/internal/repositories"
)

const productsCollection = "products"

type productDocument struct {
	Name         string    `firestore:"name"`
	Description  string    `firestore:"description"`
	BrandID      string    `firestore:"brandId"`
	BrandName    string    `firestore:"brandName"`
	CategoryID   string    `firestore:"categoryId"`
	CategoryName string    `firestore:"categoryName"`
	Price        int64     `firestore:"price"`
	Currency     string    `firestore:"currency"`
	CountInStock int       `firestore:"countInStock"`
	Images       []string  `firestore:"images"`
	Rating       float64   `firestore:"rating"`
	NumReviews   int       `firestore:"numReviews"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// ProductRepository persists catalog products.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{base: pfirestore.NewBaseRepository[productDocument](provider, productsCollection)}, nil
}

// Insert creates a product document; an existing ID yields a conflict.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	return r.base.Create(ctx, string(product.ID.Normalize()), encodeProduct(product))
}

// Update overwrites a product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	_, err := r.base.Set(ctx, string(product.ID.Normalize()), encodeProduct(product))
	return err
}

// Delete removes a product document.
func (r *ProductRepository) Delete(ctx context.Context, productID domain.ProductRef) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	return r.base.Delete(ctx, string(productID.Normalize()))
}

// FindByID loads one product.
func (r *ProductRepository) FindByID(ctx context.Context, productID domain.ProductRef) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.base.Get(ctx, string(productID.Normalize()))
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc), nil
}

// FindMany loads several products in one round trip.
func (r *ProductRepository) FindMany(ctx context.Context, productIDs []domain.ProductRef) (map[domain.ProductRef]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		ids = append(ids, string(id.Normalize()))
	}
	docs, err := r.base.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ProductRef]domain.Product, len(docs))
	for _, doc := range docs {
		product := decodeProduct(doc)
		out[product.ID] = product
	}
	return out, nil
}

// List returns products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("product repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if brand := strings.TrimSpace(filter.BrandID); brand != "" {
			q = q.Where("brandId", "==", brand)
		}
		if category := strings.TrimSpace(filter.CategoryID); category != "" {
			q = q.Where("categoryId", "==", category)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, decodeProduct(doc))
	}
	return products, nil
}

func encodeProduct(p domain.Product) productDocument {
	return productDocument{
		Name:         p.Name,
		Description:  p.Description,
		BrandID:      p.BrandID,
		BrandName:    p.BrandName,
		CategoryID:   p.CategoryID,
		CategoryName: p.CategoryName,
		Price:        p.Price,
		Currency:     strings.ToUpper(strings.TrimSpace(p.Currency)),
		CountInStock: p.CountInStock,
		Images:       append([]string(nil), p.Images...),
		Rating:       p.Rating,
		NumReviews:   p.NumReviews,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}
}

func decodeProduct(doc pfirestore.Document[productDocument]) domain.Product {
	data := doc.Data
	return domain.Product{
		ID:           domain.ProductRef(doc.ID),
		Name:         data.Name,
		Description:  data.Description,
		BrandID:      data.BrandID,
		BrandName:    data.BrandName,
		CategoryID:   data.CategoryID,
		CategoryName: data.CategoryName,
		Price:        data.Price,
		Currency:     data.Currency,
		CountInStock: data.CountInStock,
		Images:       append([]string(nil), data.Images...),
		Rating:       data.Rating,
		NumReviews:   data.NumReviews,
		CreatedAt:    data.CreatedAt.UTC(),
		UpdatedAt:    data.UpdatedAt.UTC(),
	}
}
