package api

import (
	"net/http"
	"strconv"

	"github.com/davortega/attar/internal/domain"
	"github.com/davortega/attar/internal/pricing"
	"github.com/davortega/attar/internal/telemetry"
	"github.com/shopspring/decimal"
)

// CatalogHandler serves read-only product listings with display pricing.
type CatalogHandler struct {
	catalog        domain.CatalogService
	currencySymbol string
	metrics        *telemetry.BusinessMetrics
}

// NewCatalogHandler creates a new catalog handler. metrics may be nil in tests.
func NewCatalogHandler(catalog domain.CatalogService, currencySymbol string, metrics *telemetry.BusinessMetrics) *CatalogHandler {
	return &CatalogHandler{
		catalog:        catalog,
		currencySymbol: currencySymbol,
		metrics:        metrics,
	}
}

type variantView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SKU           string   `json:"sku,omitempty"`
	Price         string   `json:"price"`
	FinalPrice    string   `json:"finalPrice"`
	DiscountLabel string   `json:"discountLabel,omitempty"`
	Tag           string   `json:"tag,omitempty"`
	InStock       bool     `json:"inStock"`
	Images        []string `json:"images,omitempty"`
}

type productView struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	Variants    []variantView `json:"variants"`
}

type listResponse struct {
	Total    int64         `json:"total"`
	Products []productView `json:"products"`
}

// List handles GET /api/products
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	offset := 0
	limit := 20

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l >= 1 && l <= 100 {
			limit = l
		}
	}

	filters := domain.ProductFilters{
		Category: r.URL.Query().Get("category"),
	}
	if priceStr := r.URL.Query().Get("price_lt"); priceStr != "" {
		if d, err := decimal.NewFromString(priceStr); err == nil {
			filters.PriceLessThan = &d
		}
	}

	products, total, err := h.catalog.ListProducts(r.Context(), offset, limit, filters)
	if err != nil {
		respondError(w, r, err)
		return
	}

	views := make([]productView, len(products))
	for i, p := range products {
		views[i] = h.productView(p)
	}

	respondJSON(w, http.StatusOK, listResponse{Total: total, Products: views})
}

// Get handles GET /api/products/{slug}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ProductViews.WithLabelValues(product.Slug).Inc()
	}

	respondJSON(w, http.StatusOK, h.productView(*product))
}

// productView renders a product with display pricing. The final price shown
// here is computed by the same pricing function the cart uses, so the badge
// price and the in-cart price always agree.
func (h *CatalogHandler) productView(p domain.Product) productView {
	variants := make([]variantView, len(p.Variants))
	for i, v := range p.Variants {
		view := variantView{
			ID:         v.ID.String(),
			Name:       v.Name,
			SKU:        v.SKU,
			Price:      v.Price.StringFixed(2),
			FinalPrice: pricing.FinalPrice(v).StringFixed(2),
			Tag:        string(v.Tag),
			InStock:    v.StockCount > 0,
			Images:     v.Images,
		}
		if label, ok := pricing.DiscountLabel(v, h.currencySymbol); ok {
			view.DiscountLabel = label
		}
		variants[i] = view
	}

	return productView{
		ID:          p.ID.String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    p.Category,
		Variants:    variants,
	}
}
