// Package postgres implements the storage contracts over a pgx connection
// pool. Carts are stored document-style: one row per cart with the lines and
// totals in a jsonb column, guarded by a version counter so concurrent
// read-modify-write cycles against the same cart cannot silently lose one
// side's update.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/davortega/attar/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CartStore persists carts as versioned jsonb documents.
type CartStore struct {
	pool *pgxpool.Pool
}

// NewCartStore creates a CartStore on the given pool.
func NewCartStore(pool *pgxpool.Pool) *CartStore {
	return &CartStore{pool: pool}
}

// FindByOwner returns the stored cart for the owner, or domain.ErrCartNotFound.
func (s *CartStore) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	var (
		doc       []byte
		version   int64
		createdAt time.Time
		updatedAt time.Time
	)

	err := s.pool.QueryRow(ctx,
		`SELECT doc, version, created_at, updated_at FROM carts WHERE owner_key = $1`,
		owner.Key(),
	).Scan(&doc, &version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(doc, &cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart document: %w", err)
	}

	cart.Version = version
	cart.CreatedAt = createdAt
	cart.UpdatedAt = updatedAt
	return &cart, nil
}

// Save upserts the cart document. A cart with Version 0 has never been
// persisted and is inserted; otherwise the update is a compare-and-swap on
// the version column and a stale write returns domain.ErrCartVersion.
func (s *CartStore) Save(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	doc, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart document: %w", err)
	}

	if cart.Version == 0 {
		return s.insert(ctx, cart, doc)
	}
	return s.update(ctx, cart, doc)
}

func (s *CartStore) insert(ctx context.Context, cart *domain.Cart, doc []byte) (*domain.Cart, error) {
	var createdAt, updatedAt time.Time

	err := s.pool.QueryRow(ctx,
		`INSERT INTO carts (id, owner_key, doc, version)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (owner_key) DO NOTHING
		 RETURNING created_at, updated_at`,
		cart.ID, cart.Owner.Key(), doc,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Another request created this owner's cart first.
			return nil, domain.ErrCartVersion
		}
		return nil, fmt.Errorf("failed to insert cart: %w", err)
	}

	saved := *cart
	saved.Version = 1
	saved.CreatedAt = createdAt
	saved.UpdatedAt = updatedAt
	return &saved, nil
}

func (s *CartStore) update(ctx context.Context, cart *domain.Cart, doc []byte) (*domain.Cart, error) {
	var updatedAt time.Time

	err := s.pool.QueryRow(ctx,
		`UPDATE carts
		 SET doc = $1, version = version + 1, updated_at = now()
		 WHERE owner_key = $2 AND version = $3
		 RETURNING updated_at`,
		doc, cart.Owner.Key(), cart.Version,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCartVersion
		}
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	saved := *cart
	saved.Version = cart.Version + 1
	saved.UpdatedAt = updatedAt
	return &saved, nil
}
