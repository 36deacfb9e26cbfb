package domain

import (
	"sort"
	"strings"
	"time"
)

// ProductRef identifies a catalog product. The referenced product may no longer exist.
type ProductRef string

// Normalize trims surrounding whitespace.
func (r ProductRef) Normalize() ProductRef {
	return ProductRef(strings.TrimSpace(string(r)))
}

// Quantity is a positive unit count for a cart entry.
type Quantity int

// GuestCartEntries is the anonymous client-held cart. Repetition encodes quantity.
type GuestCartEntries []ProductRef

// Collapse converts the guest multiset into per-product counts. Blank references are dropped.
func (g GuestCartEntries) Collapse() AccountCart {
	counts := make(AccountCart, len(g))
	for _, ref := range g {
		ref = ref.Normalize()
		if ref == "" {
			continue
		}
		counts[ref]++
	}
	return counts
}

// AccountCart maps each distinct product to its quantity. Stored quantities are always >= 1.
type AccountCart map[ProductRef]Quantity

// Clone returns an independent copy.
func (c AccountCart) Clone() AccountCart {
	out := make(AccountCart, len(c))
	for ref, qty := range c {
		out[ref] = qty
	}
	return out
}

// Add increases the quantity of ref by qty, creating the entry when absent.
func (c AccountCart) Add(ref ProductRef, qty Quantity) {
	if qty <= 0 {
		return
	}
	c[ref] += qty
}

// Remove decreases the quantity of ref by qty and deletes the entry at zero.
// Removing an absent product does nothing.
func (c AccountCart) Remove(ref ProductRef, qty Quantity) {
	current, ok := c[ref]
	if !ok || qty <= 0 {
		return
	}
	if current-qty <= 0 {
		delete(c, ref)
		return
	}
	c[ref] = current - qty
}

// Merge adds every count from other onto c.
func (c AccountCart) Merge(other AccountCart) {
	for ref, qty := range other {
		c.Add(ref, qty)
	}
}

// Refs returns the product references in a stable order.
func (c AccountCart) Refs() []ProductRef {
	refs := make([]ProductRef, 0, len(c))
	for ref := range c {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

// Units returns the total number of units across entries.
func (c AccountCart) Units() int {
	total := 0
	for _, qty := range c {
		total += int(qty)
	}
	return total
}

// Cart is the persisted cart document owned by exactly one account.
type Cart struct {
	AccountID string
	Items     AccountCart
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a rendered cart entry. Product is nil when the reference dangles.
type CartLine struct {
	ProductID ProductRef
	Quantity  Quantity
	Product   *Product
}

// CartView is the read model returned by cart operations. AccountID is empty for guests.
type CartView struct {
	AccountID string
	Lines     []CartLine
	Units     int
	Subtotal  int64
	Currency  string
	UpdatedAt time.Time
}
