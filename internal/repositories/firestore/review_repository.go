package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const reviewsCollection = "reviews"

type reviewDocument struct {
	ReviewID   string    `firestore:"reviewId"`
	ProductID  string    `firestore:"productId"`
	AccountID  string    `firestore:"accountId"`
	AuthorName string    `firestore:"authorName"`
	Rating     int       `firestore:"rating"`
	Comment    string    `firestore:"comment"`
	CreatedAt  time.Time `firestore:"createdAt"`
}

// ReviewRepository stores reviews keyed by product and author so each account reviews a product once.
type ReviewRepository struct {
	provider *pfirestore.Provider
	reviews  *pfirestore.BaseRepository[reviewDocument]
	products *pfirestore.BaseRepository[productDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) (*ReviewRepository, error) {
	if provider == nil {
		return nil, errors.New("review repository requires firestore provider")
	}
	return &ReviewRepository{
		provider: provider,
		reviews:  pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection),
	}, nil
}

// Insert stores the review and updates the product's rating aggregate in one transaction.
func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Product, error) {
	if r == nil || r.provider == nil {
		return domain.Product{}, errors.New("review repository not initialised")
	}
	productID := string(review.ProductID.Normalize())
	accountID := strings.TrimSpace(review.AccountID)
	if productID == "" || accountID == "" {
		return domain.Product{}, errors.New("review repository: product and account are required")
	}
	key := reviewKey(productID, accountID)

	var updated domain.Product
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, exists, err := r.reviews.GetTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if exists {
			return pfirestore.Conflict("reviews.insert", "product already reviewed by account")
		}
		product, found, err := r.products.GetTx(ctx, tx, productID)
		if err != nil {
			return err
		}
		if !found {
			return pfirestore.NotFound("reviews.insert", productID)
		}

		data := product.Data
		total := data.Rating*float64(data.NumReviews) + float64(review.Rating)
		data.NumReviews++
		data.Rating = total / float64(data.NumReviews)
		data.UpdatedAt = review.CreatedAt.UTC()

		reviewRef, err := r.reviews.DocumentRef(ctx, key)
		if err != nil {
			return err
		}
		productRef, err := r.products.DocumentRef(ctx, productID)
		if err != nil {
			return err
		}
		if err := tx.Create(reviewRef, reviewDocument{
			ReviewID:   review.ID,
			ProductID:  productID,
			AccountID:  accountID,
			AuthorName: review.AuthorName,
			Rating:     review.Rating,
			Comment:    review.Comment,
			CreatedAt:  review.CreatedAt.UTC(),
		}); err != nil {
			return err
		}
		if err := tx.Set(productRef, data); err != nil {
			return err
		}
		product.Data = data
		updated = decodeProduct(product)
		return nil
	})
	if err != nil {
		return domain.Product{}, pfirestore.WrapError("reviews.insert", err)
	}
	return updated, nil
}

// ListByProduct returns a product's reviews, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID domain.ProductRef) ([]domain.Review, error) {
	if r == nil || r.reviews == nil {
		return nil, errors.New("review repository not initialised")
	}
	docs, err := r.reviews.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("productId", "==", string(productID.Normalize())).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, domain.Review{
			ID:         doc.Data.ReviewID,
			ProductID:  domain.ProductRef(doc.Data.ProductID),
			AccountID:  doc.Data.AccountID,
			AuthorName: doc.Data.AuthorName,
			Rating:     doc.Data.Rating,
			Comment:    doc.Data.Comment,
			CreatedAt:  doc.Data.CreatedAt.UTC(),
		})
	}
	return reviews, nil
}

func reviewKey(productID, accountID string) string {
	return fmt.Sprintf("%s_%s", productID, accountID)
}
