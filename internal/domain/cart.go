package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrCartVersion      = &Error{Code: ECONFLICT, Message: "Cart was modified concurrently, please retry"}
)

// =============================================================================
// CART AGGREGATE
// =============================================================================

// Owner identifies who a cart belongs to: exactly one of a user ID or a
// guest token. When a request somehow carries both, the user wins.
type Owner struct {
	UserID  string `json:"userId,omitempty"`
	GuestID string `json:"guestId,omitempty"`
}

// Key returns the lookup key for the owner.
func (o Owner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	return "guest:" + o.GuestID
}

// IsZero reports whether no identity is present at all.
func (o Owner) IsZero() bool {
	return o.UserID == "" && o.GuestID == ""
}

// UserOwner builds an Owner for an authenticated user.
func UserOwner(userID string) Owner { return Owner{UserID: userID} }

// GuestOwner builds an Owner for an anonymous session token.
func GuestOwner(guestID string) Owner { return Owner{GuestID: guestID} }

// VariantSnapshot is the denormalized copy of a variant's display and pricing
// fields taken when a line is added. It is a value embedded in the cart
// record, not a reference: later catalog edits never touch existing lines.
type VariantSnapshot struct {
	VariantID     uuid.UUID       `json:"variantId"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DiscountType  DiscountType    `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	TaxIncluded   bool            `json:"taxIncluded"`
	TaxPercent    decimal.Decimal `json:"taxPercent"`
	Images        []string        `json:"images,omitempty"`
}

// SnapshotOf copies the cart-relevant fields out of a catalog variant.
func SnapshotOf(v Variant) VariantSnapshot {
	return VariantSnapshot{
		VariantID:     v.ID,
		Name:          v.Name,
		Price:         v.Price,
		DiscountType:  v.DiscountType,
		DiscountValue: v.DiscountValue,
		TaxIncluded:   v.TaxIncluded,
		TaxPercent:    v.TaxPercent,
		Images:        v.Images,
	}
}

// CartLine is one priced, quantified entry in a cart.
type CartLine struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Variant     VariantSnapshot `json:"variant"`
	Quantity    int32           `json:"quantity"`

	// UnitPrice is captured once when the line is first added and is never
	// recomputed from the catalog, so mid-cart price changes cannot reprice
	// quantity increments.
	UnitPrice decimal.Decimal `json:"unitPrice"`

	// LineTotal == UnitPrice * Quantity after every mutation.
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Cart holds a consistent snapshot of one owner's cart. SubTotal and
// GrandTotal are derived; every mutator recomputes them before returning.
type Cart struct {
	ID    uuid.UUID  `json:"id"`
	Owner Owner      `json:"owner"`
	Lines []CartLine `json:"lines"`

	Shipping   decimal.Decimal `json:"shipping"`
	Discount   decimal.Decimal `json:"discount"`
	SubTotal   decimal.Decimal `json:"subTotal"`
	GrandTotal decimal.Decimal `json:"grandTotal"`

	// Version backs the store's compare-and-swap; zero means never persisted.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCart returns an empty transient cart for the owner. It is not persisted
// until the first mutation reaches the store.
func NewCart(owner Owner, shipping decimal.Decimal) *Cart {
	c := &Cart{
		ID:       uuid.New(),
		Owner:    owner,
		Lines:    []CartLine{},
		Shipping: shipping,
		Discount: decimal.Zero,
	}
	c.recalc()
	return c
}

// AddLine adds quantity units of the variant to the cart. If a line for the
// same (productID, variantID) already exists its quantity is incremented and
// the original unit price retained; otherwise a new line is appended with the
// given unit price and a fresh snapshot.
func (c *Cart) AddLine(productID uuid.UUID, productName string, snap VariantSnapshot, unitPrice decimal.Decimal, quantity int32) (*CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if line := c.findLine(productID, snap.VariantID); line != nil {
		line.Quantity += quantity
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
		c.recalc()
		return line, nil
	}

	c.Lines = append(c.Lines, CartLine{
		ID:          uuid.New(),
		ProductID:   productID,
		ProductName: productName,
		Variant:     snap,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt32(quantity)),
	})
	c.recalc()
	return &c.Lines[len(c.Lines)-1], nil
}

// SetLineQuantity replaces the quantity of an existing line. Quantity must be
// positive; zero is a caller error rather than an implicit remove.
func (c *Cart) SetLineQuantity(lineID uuid.UUID, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines[i].Quantity = quantity
			c.Lines[i].LineTotal = c.Lines[i].UnitPrice.Mul(decimal.NewFromInt32(quantity))
			c.recalc()
			return nil
		}
	}

	return ErrCartItemNotFound
}

// RemoveLine deletes the matching line. Removing an absent line is a no-op,
// not an error, so duplicate clicks and client retries stay harmless.
func (c *Cart) RemoveLine(lineID uuid.UUID) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			break
		}
	}
	c.recalc()
}

// Clear empties the cart. The record itself persists for reuse.
func (c *Cart) Clear() {
	c.Lines = c.Lines[:0]
	c.recalc()
}

// MergeFrom folds another cart's lines into this one: quantities are summed
// for matching (productID, variantID) pairs, keeping this cart's unit price,
// and unmatched lines are appended as-is. Merging an empty cart is a no-op,
// which makes a login-time merge replay-safe once the guest cart is cleared.
func (c *Cart) MergeFrom(other *Cart) {
	for _, gl := range other.Lines {
		if line := c.findLine(gl.ProductID, gl.Variant.VariantID); line != nil {
			line.Quantity += gl.Quantity
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity))
			continue
		}

		merged := gl
		merged.ID = uuid.New()
		c.Lines = append(c.Lines, merged)
	}
	c.recalc()
}

// SetShipping replaces the shipping charge and rederives the totals.
func (c *Cart) SetShipping(amount decimal.Decimal) {
	c.Shipping = amount
	c.recalc()
}

// SetDiscount replaces the cart-level discount and rederives the totals.
// This is independent of per-line variant discounts.
func (c *Cart) SetDiscount(amount decimal.Decimal) {
	c.Discount = amount
	c.recalc()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount returns the total number of units across all lines.
func (c *Cart) ItemCount() int {
	var n int
	for i := range c.Lines {
		n += int(c.Lines[i].Quantity)
	}
	return n
}

func (c *Cart) findLine(productID, variantID uuid.UUID) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID && c.Lines[i].Variant.VariantID == variantID {
			return &c.Lines[i]
		}
	}
	return nil
}

// recalc rederives the totals. SubTotal is the sum of line totals; GrandTotal
// adds the shipping charge and subtracts the cart-level discount, floored at
// zero so an oversized discount cannot produce a negative amount due.
func (c *Cart) recalc() {
	sub := decimal.Zero
	for i := range c.Lines {
		sub = sub.Add(c.Lines[i].LineTotal)
	}
	c.SubTotal = sub

	grand := sub.Add(c.Shipping).Sub(c.Discount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	c.GrandTotal = grand
}

// =============================================================================
// CART STORE
// =============================================================================

// CartStore is the persistence collaborator. Implementations must provide
// per-document atomicity: Save performs a compare-and-swap on Cart.Version
// and returns ErrCartVersion when another writer got there first.
type CartStore interface {
	// FindByOwner returns the stored cart for the owner, or ErrCartNotFound.
	FindByOwner(ctx context.Context, owner Owner) (*Cart, error)

	// Save upserts the cart and bumps its version.
	Save(ctx context.Context, cart *Cart) (*Cart, error)
}
