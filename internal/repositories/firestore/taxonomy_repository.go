package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const (
	brandsCollection     = "brands"
	categoriesCollection = "categories"
)

// taxonomyDocument backs both brands and categories; they share a shape but not a collection.
type taxonomyDocument struct {
	Name      string    `firestore:"name"`
	Slug      string    `firestore:"slug"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type taxonomyStore struct {
	base *pfirestore.BaseRepository[taxonomyDocument]
}

func (s taxonomyStore) insert(ctx context.Context, id string, doc taxonomyDocument) error {
	return s.base.Create(ctx, strings.TrimSpace(id), doc)
}

func (s taxonomyStore) get(ctx context.Context, id string) (pfirestore.Document[taxonomyDocument], error) {
	return s.base.Get(ctx, strings.TrimSpace(id))
}

func (s taxonomyStore) list(ctx context.Context) ([]pfirestore.Document[taxonomyDocument], error) {
	return s.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("name", firestore.Asc)
	})
}

// BrandRepository persists camera and lens manufacturers.
type BrandRepository struct {
	store taxonomyStore
}

// NewBrandRepository constructs a Firestore-backed brand repository.
func NewBrandRepository(provider *pfirestore.Provider) (*BrandRepository, error) {
	if provider == nil {
		return nil, errors.New("brand repository requires firestore provider")
	}
	return &BrandRepository{store: taxonomyStore{base: pfirestore.NewBaseRepository[taxonomyDocument](provider, brandsCollection)}}, nil
}

func (r *BrandRepository) Insert(ctx context.Context, brand domain.Brand) error {
	return r.store.insert(ctx, brand.ID, taxonomyDocument{Name: brand.Name, Slug: brand.Slug, CreatedAt: brand.CreatedAt.UTC()})
}

func (r *BrandRepository) FindByID(ctx context.Context, brandID string) (domain.Brand, error) {
	doc, err := r.store.get(ctx, brandID)
	if err != nil {
		return domain.Brand{}, err
	}
	return domain.Brand{ID: doc.ID, Name: doc.Data.Name, Slug: doc.Data.Slug, CreatedAt: doc.Data.CreatedAt.UTC()}, nil
}

func (r *BrandRepository) List(ctx context.Context) ([]domain.Brand, error) {
	docs, err := r.store.list(ctx)
	if err != nil {
		return nil, err
	}
	brands := make([]domain.Brand, 0, len(docs))
	for _, doc := range docs {
		brands = append(brands, domain.Brand{ID: doc.ID, Name: doc.Data.Name, Slug: doc.Data.Slug, CreatedAt: doc.Data.CreatedAt.UTC()})
	}
	return brands, nil
}

// CategoryRepository persists product categories such as bodies, lenses and lighting.
type CategoryRepository struct {
	store taxonomyStore
}

// NewCategoryRepository constructs a Firestore-backed category repository.
func NewCategoryRepository(provider *pfirestore.Provider) (*CategoryRepository, error) {
	if provider == nil {
		return nil, errors.New("category repository requires firestore provider")
	}
	return &CategoryRepository{store: taxonomyStore{base: pfirestore.NewBaseRepository[taxonomyDocument](provider, categoriesCollection)}}, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, category domain.Category) error {
	return r.store.insert(ctx, category.ID, taxonomyDocument{Name: category.Name, Slug: category.Slug, CreatedAt: category.CreatedAt.UTC()})
}

func (r *CategoryRepository) FindByID(ctx context.Context, categoryID string) (domain.Category, error) {
	doc, err := r.store.get(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	return domain.Category{ID: doc.ID, Name: doc.Data.Name, Slug: doc.Data.Slug, CreatedAt: doc.Data.CreatedAt.UTC()}, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	docs, err := r.store.list(ctx)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, domain.Category{ID: doc.ID, Name: doc.Data.Name, Slug: doc.Data.Slug, CreatedAt: doc.Data.CreatedAt.UTC()})
	}
	return categories, nil
}
