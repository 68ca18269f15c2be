package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/domain"
	"github.com/maximefrech68-hue/monthe/internal/storage"
)

var testProducts = []domain.Product{
	{ID: "the-vert", Name: "Thé vert Sencha", PriceCents: 300, Stock: 5},
	{ID: "the-noir", Name: "Thé noir Earl Grey", PriceCents: 500, Stock: 2},
	{ID: "infusion", Name: "Infusion verveine", PriceCents: 450, Stock: -1},
}

func newTestService() (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewService(store, catalog.NewStatic(testProducts)), store
}

type failingCatalog struct{}

func (failingCatalog) Products(context.Context) ([]domain.Product, error) {
	return nil, fmt.Errorf("sheet unavailable")
}

func TestGet_MissingCartReturnsEmpty(t *testing.T) {
	sut, _ := newTestService()

	c, err := sut.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.True(t, c.IsEmpty())
}

func TestAdd_NewEntry(t *testing.T) {
	sut, _ := newTestService()

	c, err := sut.Add(context.Background(), "s1", "the-vert")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Items["the-vert"])
}

func TestAdd_Increments(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)
	c, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items["the-vert"])
}

func TestAdd_RefusesBeyondStock(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-noir")
	require.NoError(t, err)
	_, err = sut.Add(ctx, "s1", "the-noir")
	require.NoError(t, err)

	// Stock is 2, a third unit must be refused without touching the cart.
	_, err = sut.Add(ctx, "s1", "the-noir")
	require.ErrorIs(t, err, ErrOutOfStock)

	c, err := sut.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items["the-noir"])
}

func TestAdd_UntrackedStockHasNoLimit(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := sut.Add(ctx, "s1", "infusion")
		require.NoError(t, err)
	}

	c, err := sut.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 20, c.Items["infusion"])
}

func TestAdd_UnknownProduct(t *testing.T) {
	sut, _ := newTestService()

	_, err := sut.Add(context.Background(), "s1", "no-such-tea")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAdd_CatalogError(t *testing.T) {
	sut := NewService(storage.NewMemoryStore(), failingCatalog{})

	_, err := sut.Add(context.Background(), "s1", "the-vert")
	require.ErrorContains(t, err, "sheet unavailable")
}

func TestChangeQuantity_NegativeDeltaSkipsStockCheck(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-noir")
	require.NoError(t, err)

	// Decrements never need the catalog, even for sold-out products.
	c, err := sut.ChangeQuantity(ctx, "s1", "the-noir", -1)
	require.NoError(t, err)
	assert.NotContains(t, c.Items, "the-noir")
}

func TestChangeQuantity_ZeroOrLessRemovesEntry(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.ChangeQuantity(ctx, "s1", "the-vert", 3)
	require.NoError(t, err)

	c, err := sut.ChangeQuantity(ctx, "s1", "the-vert", -5)
	require.NoError(t, err)
	assert.NotContains(t, c.Items, "the-vert")
}

func TestChangeQuantity_PositiveDeltaStockCheck(t *testing.T) {
	sut, _ := newTestService()

	_, err := sut.ChangeQuantity(context.Background(), "s1", "the-noir", 3)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestRemove_Unconditional(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)

	c, err := sut.Remove(ctx, "s1", "the-vert")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	// Removing an absent entry is fine.
	_, err = sut.Remove(ctx, "s1", "never-added")
	assert.NoError(t, err)
}

func TestClear(t *testing.T) {
	sut, store := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)

	require.NoError(t, sut.Clear(ctx, "s1"))
	assert.Equal(t, 0, store.Len())

	c, err := sut.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestMutations_PersistRoundTrip(t *testing.T) {
	sut, store := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)
	_, err = sut.ChangeQuantity(ctx, "s1", "the-vert", 1)
	require.NoError(t, err)
	_, err = sut.Add(ctx, "s1", "the-noir")
	require.NoError(t, err)

	// A fresh service over the same store must see the same cart.
	reloaded := NewService(store, catalog.NewStatic(testProducts))
	c, err := reloaded.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Items["the-vert"])
	assert.Equal(t, 1, c.Items["the-noir"])
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, domain.CartSchemaVersion, c.SchemaVersion)
}

func TestTotal(t *testing.T) {
	c := domain.NewCart()
	c.Items["the-vert"] = 2 // 2 x 3.00
	c.Items["the-noir"] = 1 // 1 x 5.00

	assert.Equal(t, int64(1100), c.Total(testProducts))
}

func TestTotal_UnknownProductExcludedNotDeleted(t *testing.T) {
	c := domain.NewCart()
	c.Items["the-vert"] = 2
	c.Items["discontinued"] = 4

	assert.Equal(t, int64(600), c.Total(testProducts))
	// The stale entry survives: the cart never auto-prunes.
	assert.Equal(t, 4, c.Items["discontinued"])
}

func TestSessionsAreIsolated(t *testing.T) {
	sut, _ := newTestService()
	ctx := context.Background()

	_, err := sut.Add(ctx, "s1", "the-vert")
	require.NoError(t, err)

	c, err := sut.Get(ctx, "s2")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
