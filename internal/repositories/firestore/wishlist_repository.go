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

const wishlistSubcollection = "wishlist"

type wishlistDocument struct {
	ProductID string    `firestore:"productId"`
	AddedAt   time.Time `firestore:"addedAt"`
}

// WishlistRepository stores saved products under accounts/{accountID}/wishlist.
type WishlistRepository struct {
	accounts *pfirestore.BaseRepository[accountDocument]
}

// NewWishlistRepository constructs a Firestore-backed wishlist repository.
func NewWishlistRepository(provider *pfirestore.Provider) (*WishlistRepository, error) {
	if provider == nil {
		return nil, errors.New("wishlist repository requires firestore provider")
	}
	return &WishlistRepository{accounts: pfirestore.NewBaseRepository[accountDocument](provider, accountsCollection)}, nil
}

// List returns the account's saved products, most recently added first.
func (r *WishlistRepository) List(ctx context.Context, accountID string) ([]domain.WishlistItem, error) {
	coll, err := r.collection(accountID)
	if err != nil {
		return nil, err
	}
	docs, err := coll.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("addedAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	items := make([]domain.WishlistItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.WishlistItem{
			ProductID: domain.ProductRef(doc.Data.ProductID),
			AddedAt:   doc.Data.AddedAt.UTC(),
		})
	}
	return items, nil
}

// Put stores the item keyed by product, replacing an earlier entry for the same product.
func (r *WishlistRepository) Put(ctx context.Context, accountID string, item domain.WishlistItem) error {
	coll, err := r.collection(accountID)
	if err != nil {
		return err
	}
	productID := string(item.ProductID.Normalize())
	if productID == "" {
		return errors.New("wishlist repository: product id is required")
	}
	_, err = coll.Set(ctx, productID, wishlistDocument{ProductID: productID, AddedAt: item.AddedAt.UTC()})
	return err
}

// Remove deletes the product from the wishlist. Removing an absent product succeeds.
func (r *WishlistRepository) Remove(ctx context.Context, accountID string, productID domain.ProductRef) error {
	coll, err := r.collection(accountID)
	if err != nil {
		return err
	}
	return coll.Delete(ctx, string(productID.Normalize()))
}

func (r *WishlistRepository) collection(accountID string) (*pfirestore.BaseRepository[wishlistDocument], error) {
	if r == nil || r.accounts == nil {
		return nil, errors.New("wishlist repository not initialised")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.New("wishlist repository: account id is required")
	}
	return pfirestore.Sub[wishlistDocument](r.accounts, accountID, wishlistSubcollection), nil
}
