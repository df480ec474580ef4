package service

import (
	"context"
	"testing"

	"github.com/davortega/attar/internal/domain"
	"github.com/davortega/attar/internal/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCartStore is an in-memory CartStore with the same version semantics
// as the postgres implementation.
type memoryCartStore struct {
	carts map[string]*domain.Cart
	saves int
}

func newMemoryCartStore() *memoryCartStore {
	return &memoryCartStore{carts: make(map[string]*domain.Cart)}
}

func (s *memoryCartStore) FindByOwner(_ context.Context, owner domain.Owner) (*domain.Cart, error) {
	stored, ok := s.carts[owner.Key()]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	copied := *stored
	copied.Lines = append([]domain.CartLine(nil), stored.Lines...)
	return &copied, nil
}

func (s *memoryCartStore) Save(_ context.Context, cart *domain.Cart) (*domain.Cart, error) {
	key := cart.Owner.Key()
	if stored, ok := s.carts[key]; ok {
		if stored.Version != cart.Version {
			return nil, domain.ErrCartVersion
		}
	} else if cart.Version != 0 {
		return nil, domain.ErrCartVersion
	}

	s.saves++
	copied := *cart
	copied.Version = cart.Version + 1
	copied.Lines = append([]domain.CartLine(nil), cart.Lines...)
	s.carts[key] = &copied

	result := copied
	result.Lines = append([]domain.CartLine(nil), copied.Lines...)
	return &result, nil
}

// mockCatalog implements domain.CatalogService with overridable functions.
type mockCatalog struct {
	getProductFunc func(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

func (m *mockCatalog) ListProducts(ctx context.Context, offset, limit int, filters domain.ProductFilters) ([]domain.Product, int64, error) {
	return nil, 0, nil
}

func (m *mockCatalog) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if m.getProductFunc != nil {
		return m.getProductFunc(ctx, id)
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockCatalog) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*domain.Variant, error) {
	product, err := m.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	v, ok := product.VariantByID(variantID)
	if !ok {
		return nil, domain.ErrVariantNotFound
	}
	return v, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testProduct(productID, variantID uuid.UUID, price string) *domain.Product {
	return &domain.Product{
		ID:   productID,
		Name: "Rose Attar",
		Slug: "rose-attar",
		Variants: []domain.Variant{
			{
				ID:           variantID,
				ProductID:    productID,
				Name:         "10 ml",
				Price:        dec(price),
				DiscountType: domain.DiscountNone,
				TaxIncluded:  true,
				StockCount:   10,
			},
		},
	}
}

func newTestService(store domain.CartStore, catalog domain.CatalogService) CartService {
	return NewCartService(store, catalog, shipping.NewFlatRateProvider(dec("250"), decimal.Zero), nil)
}

func TestCartService_GetCart_EmptyWhenNeverPersisted(t *testing.T) {
	store := newMemoryCartStore()
	svc := newTestService(store, &mockCatalog{})

	cart, err := svc.GetCart(context.Background(), domain.GuestOwner("g1"))
	require.NoError(t, err)

	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.SubTotal.Equal(decimal.Zero), "subTotal = %s", cart.SubTotal)
	assert.Equal(t, 0, store.saves, "a read must not persist anything")
}

func TestCartService_GetCart_RequiresOwner(t *testing.T) {
	svc := newTestService(newMemoryCartStore(), &mockCatalog{})

	_, err := svc.GetCart(context.Background(), domain.Owner{})
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestCartService_AddItem(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	store := newMemoryCartStore()
	catalog := &mockCatalog{
		getProductFunc: func(_ context.Context, id uuid.UUID) (*domain.Product, error) {
			require.Equal(t, productID, id)
			return testProduct(productID, variantID, "50"), nil
		},
	}
	svc := newTestService(store, catalog)

	cart, err := svc.AddItem(context.Background(), domain.GuestOwner("g1"), productID, variantID, 2)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("50.00")), "unitPrice = %s", cart.Lines[0].UnitPrice)
	assert.True(t, cart.Lines[0].LineTotal.Equal(dec("100.00")), "lineTotal = %s", cart.Lines[0].LineTotal)
	assert.True(t, cart.SubTotal.Equal(dec("100.00")), "subTotal = %s", cart.SubTotal)
	assert.True(t, cart.GrandTotal.Equal(dec("350.00")), "grandTotal = %s", cart.GrandTotal)

	// The cart is persisted and readable again.
	reloaded, err := svc.GetCart(context.Background(), domain.GuestOwner("g1"))
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.ItemCount())
}

func TestCartService_AddItem_PriceChangeKeepsOriginalUnitPrice(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	price := "50"
	store := newMemoryCartStore()
	catalog := &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, price), nil
		},
	}
	svc := newTestService(store, catalog)
	owner := domain.UserOwner("u1")

	_, err := svc.AddItem(context.Background(), owner, productID, variantID, 2)
	require.NoError(t, err)

	// The catalog reprices the variant between the two adds.
	price = "80"

	cart, err := svc.AddItem(context.Background(), owner, productID, variantID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int32(3), cart.Lines[0].Quantity)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("50.00")), "unitPrice = %s", cart.Lines[0].UnitPrice)
	assert.True(t, cart.Lines[0].LineTotal.Equal(dec("150.00")), "lineTotal = %s", cart.Lines[0].LineTotal)
}

func TestCartService_AddItem_AppliesDiscountAtAddTime(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	product := testProduct(productID, variantID, "100")
	product.Variants[0].DiscountType = domain.DiscountPercent
	product.Variants[0].DiscountValue = dec("20")

	svc := newTestService(newMemoryCartStore(), &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return product, nil
		},
	})

	cart, err := svc.AddItem(context.Background(), domain.GuestOwner("g1"), productID, variantID, 1)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Lines[0].UnitPrice.Equal(dec("80.00")), "unitPrice = %s", cart.Lines[0].UnitPrice)
}

func TestCartService_AddItem_Errors(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()

	tests := []struct {
		name      string
		owner     domain.Owner
		productID uuid.UUID
		variantID uuid.UUID
		quantity  int32
		expected  error
	}{
		{
			name:     "missing owner",
			owner:    domain.Owner{},
			quantity: 1,
			expected: ErrOwnerRequired,
		},
		{
			name:      "zero quantity",
			owner:     domain.GuestOwner("g1"),
			productID: productID,
			variantID: variantID,
			quantity:  0,
			expected:  ErrInvalidQuantity,
		},
		{
			name:      "unknown product",
			owner:     domain.GuestOwner("g1"),
			productID: uuid.New(),
			variantID: variantID,
			quantity:  1,
			expected:  ErrProductNotFound,
		},
		{
			name:      "unknown variant",
			owner:     domain.GuestOwner("g1"),
			productID: productID,
			variantID: uuid.New(),
			quantity:  1,
			expected:  ErrVariantNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryCartStore()
			svc := newTestService(store, &mockCatalog{
				getProductFunc: func(_ context.Context, id uuid.UUID) (*domain.Product, error) {
					if id != productID {
						return nil, domain.ErrProductNotFound
					}
					return testProduct(productID, variantID, "50"), nil
				},
			})

			_, err := svc.AddItem(context.Background(), tt.owner, tt.productID, tt.variantID, tt.quantity)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, 0, store.saves, "a failed add must not persist anything")
		})
	}
}

func TestCartService_UpdateItemQuantity(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	store := newMemoryCartStore()
	svc := newTestService(store, &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, "50"), nil
		},
	})
	owner := domain.GuestOwner("g1")

	cart, err := svc.AddItem(context.Background(), owner, productID, variantID, 2)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	updated, err := svc.UpdateItemQuantity(context.Background(), owner, lineID, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), updated.Lines[0].Quantity)
	assert.True(t, updated.SubTotal.Equal(dec("250.00")), "subTotal = %s", updated.SubTotal)

	_, err = svc.UpdateItemQuantity(context.Background(), owner, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartItemNotFound)

	_, err = svc.UpdateItemQuantity(context.Background(), owner, lineID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestCartService_UpdateItemQuantity_NoCart(t *testing.T) {
	svc := newTestService(newMemoryCartStore(), &mockCatalog{})

	_, err := svc.UpdateItemQuantity(context.Background(), domain.GuestOwner("g1"), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCartService_RemoveItem_AbsentLineIsNoOp(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	svc := newTestService(newMemoryCartStore(), &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, "50"), nil
		},
	})
	owner := domain.GuestOwner("g1")

	cart, err := svc.AddItem(context.Background(), owner, productID, variantID, 1)
	require.NoError(t, err)

	after, err := svc.RemoveItem(context.Background(), owner, uuid.New())
	require.NoError(t, err)
	assert.Len(t, after.Lines, 1, "removing an unknown line must not change the cart")

	after, err = svc.RemoveItem(context.Background(), owner, cart.Lines[0].ID)
	require.NoError(t, err)
	assert.True(t, after.IsEmpty())
}

func TestCartService_ClearCart(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	store := newMemoryCartStore()
	svc := newTestService(store, &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, "50"), nil
		},
	})
	owner := domain.UserOwner("u1")

	_, err := svc.AddItem(context.Background(), owner, productID, variantID, 3)
	require.NoError(t, err)

	cart, err := svc.ClearCart(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.SubTotal.Equal(decimal.Zero))

	// Clearing a cart that was never persisted is also fine.
	cart, err = svc.ClearCart(context.Background(), domain.GuestOwner("nobody"))
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestCartService_MergeGuestCart(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	otherProduct := uuid.New()
	otherVariant := uuid.New()

	store := newMemoryCartStore()
	svc := newTestService(store, &mockCatalog{
		getProductFunc: func(_ context.Context, id uuid.UUID) (*domain.Product, error) {
			if id == otherProduct {
				return testProduct(otherProduct, otherVariant, "300"), nil
			}
			return testProduct(productID, variantID, "50"), nil
		},
	})

	// User already has 2 of the shared variant, guest has 1 plus another product.
	_, err := svc.AddItem(context.Background(), domain.UserOwner("u1"), productID, variantID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), domain.GuestOwner("g1"), productID, variantID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), domain.GuestOwner("g1"), otherProduct, otherVariant, 1)
	require.NoError(t, err)

	merged, err := svc.MergeGuestCart(context.Background(), "u1", "g1")
	require.NoError(t, err)

	require.Len(t, merged.Lines, 2)
	assert.Equal(t, int32(3), merged.Lines[0].Quantity)
	assert.Equal(t, 4, merged.ItemCount())

	// The guest cart is emptied by the merge.
	guestCart, err := svc.GetCart(context.Background(), domain.GuestOwner("g1"))
	require.NoError(t, err)
	assert.True(t, guestCart.IsEmpty())

	// Replaying the merge leaves the user cart unchanged.
	again, err := svc.MergeGuestCart(context.Background(), "u1", "g1")
	require.NoError(t, err)
	assert.Equal(t, 4, again.ItemCount())
	assert.True(t, again.GrandTotal.Equal(merged.GrandTotal), "grandTotal changed on replay: %s != %s", again.GrandTotal, merged.GrandTotal)
}

func TestCartService_MergeGuestCart_NoGuestCart(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	svc := newTestService(newMemoryCartStore(), &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, "50"), nil
		},
	})

	_, err := svc.AddItem(context.Background(), domain.UserOwner("u1"), productID, variantID, 1)
	require.NoError(t, err)

	cart, err := svc.MergeGuestCart(context.Background(), "u1", "never-seen")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.ItemCount())
}

func TestCartService_MergeGuestCart_RequiresBothIdentities(t *testing.T) {
	svc := newTestService(newMemoryCartStore(), &mockCatalog{})

	_, err := svc.MergeGuestCart(context.Background(), "", "g1")
	assert.ErrorIs(t, err, ErrOwnerRequired)

	_, err = svc.MergeGuestCart(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestCartService_StaleVersionSurfacesConflict(t *testing.T) {
	productID := uuid.New()
	variantID := uuid.New()
	store := newMemoryCartStore()
	svc := newTestService(store, &mockCatalog{
		getProductFunc: func(_ context.Context, _ uuid.UUID) (*domain.Product, error) {
			return testProduct(productID, variantID, "50"), nil
		},
	})
	owner := domain.GuestOwner("g1")

	cart, err := svc.AddItem(context.Background(), owner, productID, variantID, 1)
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	// Another writer bumps the stored version behind our back.
	store.carts[owner.Key()].Version++

	_, err = svc.UpdateItemQuantity(context.Background(), owner, lineID, 2)
	assert.NoError(t, err, "reloading picks up the new version")

	// A write with a genuinely stale version is rejected.
	stale, err := store.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	stale.Version--
	_, err = store.Save(context.Background(), stale)
	assert.ErrorIs(t, err, domain.ErrCartVersion)
}
