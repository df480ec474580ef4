package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG DOMAIN TYPES
// =============================================================================

// DiscountType is a closed set of discount treatments for a variant price.
type DiscountType string

const (
	DiscountNone    DiscountType = "none"
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
	DiscountSale    DiscountType = "sale"
)

// ParseDiscountType maps a stored discount type string to the closed set.
// Unknown or empty values behave as DiscountNone; pricing is permissive and
// never rejects a variant over its discount configuration.
func ParseDiscountType(s string) DiscountType {
	switch DiscountType(s) {
	case DiscountPercent, DiscountFixed, DiscountSale:
		return DiscountType(s)
	default:
		return DiscountNone
	}
}

// VariantTag marks a variant for storefront badges.
type VariantTag string

const (
	TagNew        VariantTag = "New"
	TagHot        VariantTag = "Hot"
	TagSale       VariantTag = "Sale"
	TagBestseller VariantTag = "Bestseller"
)

// Variant is a purchasable configuration of a product (size, volume, box)
// carrying its own price, stock, and discount rules.
type Variant struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string

	// Pricing
	Price         decimal.Decimal
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	TaxIncluded   bool
	TaxPercent    decimal.Decimal

	// Inventory
	SKU               string
	StockCount        int32
	StockUnit         string
	LowStockThreshold int32

	// Presentation
	Tag    VariantTag
	Images []string
}

// Product is a catalog entry with one or more purchasable variants.
type Product struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Description string
	Category    string
	Variants    []Variant
}

// VariantByID returns the variant with the given ID, if present.
func (p *Product) VariantByID(id uuid.UUID) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

// Catalog domain errors.
var (
	ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrVariantNotFound = &Error{Code: ENOTFOUND, Message: "Variant not found"}
)

// ProductFilters narrows catalog listings.
type ProductFilters struct {
	Category      string
	PriceLessThan *decimal.Decimal
}

// CatalogService provides read access to products and variants.
// The cart only consults it at add-item time; lines added earlier keep their
// snapshot even if the catalog changes.
type CatalogService interface {
	// ListProducts returns a page of products and the total count after filtering.
	ListProducts(ctx context.Context, offset, limit int, filters ProductFilters) ([]Product, int64, error)

	// GetProductBySlug returns one product with all of its variants.
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)

	// GetProduct returns one product by ID with all of its variants.
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// GetVariant returns the variant identified by (productID, variantID).
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*Variant, error)
}
