package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/davortega/attar/internal/domain"
	"github.com/davortega/attar/internal/pricing"
	"github.com/davortega/attar/internal/shipping"
	"github.com/davortega/attar/internal/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartService provides business logic for shopping cart operations.
//
// Every method resolves the cart for the calling owner, applies one mutation
// through the aggregate, persists the result, and returns the fully
// recomputed cart. No method retries internally: the store's version check
// surfaces concurrent writes as ErrCartVersion and the caller decides.
type CartService interface {
	// GetCart returns the owner's cart, or an empty transient cart when none
	// has been persisted yet.
	GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)

	// AddItem prices the variant through the pricing engine and adds it to
	// the cart, creating and persisting the cart on first use.
	AddItem(ctx context.Context, owner domain.Owner, productID, variantID uuid.UUID, quantity int32) (*domain.Cart, error)

	// UpdateItemQuantity replaces the quantity of an existing line.
	UpdateItemQuantity(ctx context.Context, owner domain.Owner, lineID uuid.UUID, quantity int32) (*domain.Cart, error)

	// RemoveItem removes a line. Removing an absent line is not an error.
	RemoveItem(ctx context.Context, owner domain.Owner, lineID uuid.UUID) (*domain.Cart, error)

	// ClearCart empties the cart. The record persists for reuse.
	ClearCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error)

	// MergeGuestCart folds the guest's cart into the user's at login and
	// empties the guest cart so a replayed merge is a no-op.
	MergeGuestCart(ctx context.Context, userID, guestID string) (*domain.Cart, error)
}

type cartService struct {
	store    domain.CartStore
	catalog  domain.CatalogService
	shipping shipping.Provider
	metrics  *telemetry.BusinessMetrics
}

// NewCartService creates a CartService. metrics may be nil in tests.
func NewCartService(store domain.CartStore, catalog domain.CatalogService, ship shipping.Provider, metrics *telemetry.BusinessMetrics) CartService {
	return &cartService{
		store:    store,
		catalog:  catalog,
		shipping: ship,
		metrics:  metrics,
	}
}

// GetCart returns the owner's cart, or an empty transient cart when none has
// been persisted yet.
func (s *cartService) GetCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrOwnerRequired
	}

	cart, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return s.newTransientCart(owner), nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return cart, nil
}

// AddItem adds quantity units of a variant, pricing it at add time. A line
// that already exists for the same (product, variant) keeps its original unit
// price and only gains quantity.
func (s *cartService) AddItem(ctx context.Context, owner domain.Owner, productID, variantID uuid.UUID, quantity int32) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrOwnerRequired
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	variant, ok := product.VariantByID(variantID)
	if !ok {
		return nil, ErrVariantNotFound
	}

	cart, created, err := s.loadOrCreate(ctx, owner)
	if err != nil {
		return nil, err
	}

	unitPrice := pricing.FinalPrice(*variant)
	if _, err := cart.AddLine(productID, product.Name, domain.SnapshotOf(*variant), unitPrice, quantity); err != nil {
		return nil, err
	}

	saved, err := s.persist(ctx, cart)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		if created {
			s.metrics.CartsCreated.Inc()
		}
		s.metrics.CartItemsAdd.Add(float64(quantity))
		s.metrics.ProductAddToCart.WithLabelValues(productID.String()).Inc()
		s.metrics.CartValue.Observe(saved.GrandTotal.InexactFloat64())
	}

	return saved, nil
}

// UpdateItemQuantity replaces the quantity of an existing line and returns
// the recomputed cart.
func (s *cartService) UpdateItemQuantity(ctx context.Context, owner domain.Owner, lineID uuid.UUID, quantity int32) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrOwnerRequired
	}

	cart, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := cart.SetLineQuantity(lineID, quantity); err != nil {
		return nil, err
	}

	return s.persist(ctx, cart)
}

// RemoveItem removes a line from the cart. An absent line is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, owner domain.Owner, lineID uuid.UUID) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrOwnerRequired
	}

	cart, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	cart.RemoveLine(lineID)
	return s.persist(ctx, cart)
}

// ClearCart empties the cart while keeping the record for reuse.
func (s *cartService) ClearCart(ctx context.Context, owner domain.Owner) (*domain.Cart, error) {
	if owner.IsZero() {
		return nil, ErrOwnerRequired
	}

	cart, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			// Nothing stored, nothing to clear.
			return s.newTransientCart(owner), nil
		}
		return nil, err
	}

	cart.Clear()
	saved, err := s.persist(ctx, cart)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.CartsCleared.Inc()
	}
	return saved, nil
}

// MergeGuestCart folds the guest cart into the user cart at login. The guest
// cart is emptied afterwards, so calling the merge again with the same guest
// token leaves the user cart unchanged.
func (s *cartService) MergeGuestCart(ctx context.Context, userID, guestID string) (*domain.Cart, error) {
	if userID == "" || guestID == "" {
		return nil, ErrOwnerRequired
	}

	guestCart, err := s.store.FindByOwner(ctx, domain.GuestOwner(guestID))
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			// No guest cart to merge; hand back whatever the user has.
			return s.GetCart(ctx, domain.UserOwner(userID))
		}
		return nil, err
	}

	userCart, _, err := s.loadOrCreate(ctx, domain.UserOwner(userID))
	if err != nil {
		return nil, err
	}

	if guestCart.IsEmpty() {
		return userCart, nil
	}

	userCart.MergeFrom(guestCart)
	saved, err := s.persist(ctx, userCart)
	if err != nil {
		return nil, err
	}

	guestCart.Clear()
	if _, err := s.store.Save(ctx, guestCart); err != nil {
		return nil, fmt.Errorf("failed to clear merged guest cart: %w", err)
	}

	if s.metrics != nil {
		s.metrics.GuestMerges.Inc()
	}
	return saved, nil
}

// loadOrCreate returns the stored cart or a new transient one. The second
// return value reports whether the cart has never been persisted.
func (s *cartService) loadOrCreate(ctx context.Context, owner domain.Owner) (*domain.Cart, bool, error) {
	cart, err := s.store.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, domain.ErrCartNotFound) {
			return s.newTransientCart(owner), true, nil
		}
		return nil, false, fmt.Errorf("failed to load cart: %w", err)
	}
	return cart, false, nil
}

func (s *cartService) newTransientCart(owner domain.Owner) *domain.Cart {
	return domain.NewCart(owner, s.shipping.Quote(decimal.Zero))
}

// persist re-quotes shipping against the new subtotal and saves the cart.
func (s *cartService) persist(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	cart.SetShipping(s.shipping.Quote(cart.SubTotal))

	saved, err := s.store.Save(ctx, cart)
	if err != nil {
		if errors.Is(err, domain.ErrCartVersion) && s.metrics != nil {
			s.metrics.CartConflicts.Inc()
		}
		return nil, err
	}
	return saved, nil
}
