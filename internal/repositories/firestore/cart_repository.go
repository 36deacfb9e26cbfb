package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/shutterbay/api/internal/domain"
	pfirestore "github.com/shutterbay/api/internal/platform/firestore"
)

const cartCollection = "carts"

type cartDocument struct {
	Items      map[string]int `firestore:"items"`
	ItemsCount int            `firestore:"itemsCount"`
	CreatedAt  time.Time      `firestore:"createdAt"`
	UpdatedAt  time.Time      `firestore:"updatedAt"`
}

// CartRepository persists account carts within Firestore, one document per account.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection)}, nil
}

// Get loads the cart owned by accountID.
func (r *CartRepository) Get(ctx context.Context, accountID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(accountID))
	if err != nil {
		return domain.Cart{}, err
	}
	return decodeCart(doc), nil
}

// Save replaces the cart document using the account ID as document identifier.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	accountID := strings.TrimSpace(cart.AccountID)
	if accountID == "" {
		return domain.Cart{}, errors.New("cart repository: account id is required")
	}

	now := time.Now().UTC()
	if !cart.UpdatedAt.IsZero() {
		now = cart.UpdatedAt.UTC()
	}
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	doc := cartDocument{
		Items:      make(map[string]int, len(cart.Items)),
		ItemsCount: cart.Items.Units(),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	for ref, qty := range cart.Items {
		if qty > 0 {
			doc.Items[string(ref)] = int(qty)
		}
	}

	if _, err := r.base.Set(ctx, accountID, doc); err != nil {
		return domain.Cart{}, err
	}

	cart.AccountID = accountID
	cart.Items = cart.Items.Clone()
	cart.CreatedAt = createdAt
	cart.UpdatedAt = now
	return cart, nil
}

// Delete removes the account's cart document.
func (r *CartRepository) Delete(ctx context.Context, accountID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	return r.base.Delete(ctx, strings.TrimSpace(accountID))
}

func decodeCart(doc pfirestore.Document[cartDocument]) domain.Cart {
	items := make(domain.AccountCart, len(doc.Data.Items))
	for ref, qty := range doc.Data.Items {
		items.Add(domain.ProductRef(ref), domain.Quantity(qty))
	}
	return domain.Cart{
		AccountID: doc.ID,
		Items:     items,
		CreatedAt: doc.Data.CreatedAt.UTC(),
		UpdatedAt: doc.Data.UpdatedAt.UTC(),
	}
}
