package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/davortega/attar/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository reads products and their variants.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a CatalogRepository on the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

const productColumns = `id, name, slug, description, category`

// ListProducts returns a page of products with their variants and the total
// count after filtering.
func (r *CatalogRepository) ListProducts(ctx context.Context, offset, limit int, filters domain.ProductFilters) ([]domain.Product, int64, error) {
	where := `WHERE 1=1`
	args := []any{}

	if filters.Category != "" {
		args = append(args, filters.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filters.PriceLessThan != nil {
		args = append(args, filters.PriceLessThan.String())
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM variants v WHERE v.product_id = products.id AND v.price < $%d)", len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY name LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read products: %w", err)
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetProductBySlug returns one product with all of its variants.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getProduct(ctx, `slug = $1`, slug)
}

// GetProduct returns one product by ID with all of its variants.
func (r *CatalogRepository) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.getProduct(ctx, `id = $1`, id)
}

func (r *CatalogRepository) getProduct(ctx context.Context, cond string, arg any) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE %s`, productColumns, cond), arg)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	page := []domain.Product{*product}
	if err := r.attachVariants(ctx, page); err != nil {
		return nil, err
	}
	return &page[0], nil
}

// attachVariants loads the variants for every product in the slice, in
// position order, with one query.
func (r *CatalogRepository) attachVariants(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(products))
	index := make(map[uuid.UUID]*domain.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, name, price::text, discount_type, discount_value::text,
		        tax_included, tax_percent::text, sku, stock_count, stock_unit,
		        low_stock_threshold, tag, images
		 FROM variants
		 WHERE product_id = ANY($1)
		 ORDER BY product_id, position`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return err
		}
		if p, ok := index[v.ProductID]; ok {
			p.Variants = append(p.Variants, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read variants: %w", err)
	}

	return nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

func scanVariant(row pgx.Row) (*domain.Variant, error) {
	var (
		v                            domain.Variant
		price, discountValue, taxPct string
		discountType, tag            string
	)

	if err := row.Scan(&v.ID, &v.ProductID, &v.Name, &price, &discountType, &discountValue,
		&v.TaxIncluded, &taxPct, &v.SKU, &v.StockCount, &v.StockUnit,
		&v.LowStockThreshold, &tag, &v.Images); err != nil {
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}

	var err error
	if v.Price, err = parseDecimal(price); err != nil {
		return nil, err
	}
	if v.DiscountValue, err = parseDecimal(discountValue); err != nil {
		return nil, err
	}
	if v.TaxPercent, err = parseDecimal(taxPct); err != nil {
		return nil, err
	}

	v.DiscountType = domain.ParseDiscountType(discountType)
	v.Tag = domain.VariantTag(tag)
	return &v, nil
}
