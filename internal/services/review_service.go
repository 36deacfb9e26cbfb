package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	"github.com/shutterbay/api/internal/repositories"
)

const maxReviewCommentLength = 2000

// ReviewServiceDeps wires the review repository and the product cache that must forget stale ratings.
type ReviewServiceDeps struct {
	Reviews     repositories.ReviewRepository
	Cache       ProductCache
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type reviewService struct {
	reviews repositories.ReviewRepository
	cache   ProductCache
	policy  *bluemonday.Policy
	now     func() time.Time
	newID   func() string
	logger  func(context.Context, string, map[string]any)
}

// NewReviewService constructs the review service.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
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
	return &reviewService{
		reviews: deps.Reviews,
		cache:   deps.Cache,
		policy:  bluemonday.StrictPolicy(),
		now:     func() time.Time { return clock().UTC() },
		newID:   idGen,
		logger:  logger,
	}, nil
}

// Create stores the review and refreshes the product rating. A second review of the same
// product by the same account is a conflict.
func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	productID := cmd.ProductID.Normalize()
	accountID := strings.TrimSpace(cmd.AccountID)
	switch {
	case productID == "":
		return Review{}, validationError("product id is required")
	case accountID == "":
		return Review{}, validationError("account id is required")
	case cmd.Rating < 1 || cmd.Rating > 5:
		return Review{}, validationError("rating must be between 1 and 5")
	}

	comment := strings.TrimSpace(s.policy.Sanitize(cmd.Comment))
	if comment == "" {
		return Review{}, validationError("comment is required")
	}
	if runes := []rune(comment); len(runes) > maxReviewCommentLength {
		comment = string(runes[:maxReviewCommentLength])
	}
	author := strings.TrimSpace(cmd.AuthorName)
	if author == "" {
		author = "Customer"
	}

	review := Review{
		ID:         "rev_" + s.newID(),
		ProductID:  productID,
		AccountID:  accountID,
		AuthorName: author,
		Rating:     cmd.Rating,
		Comment:    comment,
		CreatedAt:  s.now(),
	}
	product, err := s.reviews.Insert(ctx, review)
	if err != nil {
		if errors.Is(mapRepositoryError(err), ErrConflict) {
			return Review{}, fmt.Errorf("%w: product already reviewed", ErrConflict)
		}
		return Review{}, mapRepositoryError(err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProducts(ctx, productID); err != nil {
			s.logger(ctx, "review.cache_invalidate_failed", map[string]any{"productID": string(productID), "error": err})
		}
	}
	s.logger(ctx, "review.created", map[string]any{
		"productID":  string(productID),
		"rating":     product.Rating,
		"numReviews": product.NumReviews,
	})
	return review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID ProductRef) ([]Review, error) {
	ref := productID.Normalize()
	if ref == "" {
		return nil, validationError("product id is required")
	}
	reviews, err := s.reviews.ListByProduct(ctx, ref)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return reviews, nil
}
