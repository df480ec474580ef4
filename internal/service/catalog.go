package service

import (
	"context"
	"fmt"

	"github.com/davortega/attar/internal/domain"
	"github.com/google/uuid"
)

// CatalogRepository is the storage contract the catalog service reads from.
type CatalogRepository interface {
	ListProducts(ctx context.Context, offset, limit int, filters domain.ProductFilters) ([]domain.Product, int64, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

type catalogService struct {
	repo CatalogRepository
}

// NewCatalogService creates a CatalogService backed by the given repository.
func NewCatalogService(repo CatalogRepository) domain.CatalogService {
	return &catalogService{repo: repo}
}

// ListProducts returns a page of products and the total count after filtering.
func (s *catalogService) ListProducts(ctx context.Context, offset, limit int, filters domain.ProductFilters) ([]domain.Product, int64, error) {
	products, total, err := s.repo.ListProducts(ctx, offset, limit, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetProductBySlug returns one product with all of its variants.
func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct returns one product by ID with all of its variants.
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetVariant returns the variant identified by (productID, variantID).
func (s *catalogService) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*domain.Variant, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	variant, ok := product.VariantByID(variantID)
	if !ok {
		return nil, ErrVariantNotFound
	}
	return variant, nil
}
