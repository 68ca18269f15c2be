package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maximefrech68-hue/monthe/internal/catalog"
	"github.com/maximefrech68-hue/monthe/internal/domain"
	"github.com/maximefrech68-hue/monthe/internal/storage"
)

var (
	// ErrOutOfStock means the requested quantity would exceed the product's
	// stock from the most recent catalog snapshot. Best effort, not
	// transactional: the stock may have moved since the snapshot.
	ErrOutOfStock = errors.New("quantity exceeds available stock")

	ErrProductNotFound = errors.New("product not found in catalog")
)

// Service owns the session carts. Every mutation persists the full cart
// mapping through the store synchronously before returning.
type Service struct {
	store   storage.Store
	catalog catalog.Provider
}

func NewService(store storage.Store, catalog catalog.Provider) *Service {
	return &Service{store: store, catalog: catalog}
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

// Get loads the session's cart. A missing or unreadable record yields an
// empty cart.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.Cart, error) {
	data, err := s.store.Get(ctx, cartKey(sessionID))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return domain.NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	if c.Items == nil {
		c.Items = make(map[string]int)
	}
	return &c, nil
}

// Add increments the product's quantity by one, refusing when the catalog's
// known stock would be exceeded.
func (s *Service) Add(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	return s.ChangeQuantity(ctx, sessionID, productID, +1)
}

// ChangeQuantity applies delta to the product's quantity. A resulting
// quantity of zero or less removes the entry; a positive delta is subject to
// the same stock check as Add.
func (s *Service) ChangeQuantity(ctx context.Context, sessionID, productID string, delta int) (*domain.Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	next := c.Items[productID] + delta
	if next <= 0 {
		delete(c.Items, productID)
		return c, s.persist(ctx, sessionID, c)
	}

	if delta > 0 {
		products, errCatalog := s.catalog.Products(ctx)
		if errCatalog != nil {
			return nil, fmt.Errorf("load catalog for stock check: %w", errCatalog)
		}
		p, ok := domain.FindProduct(products, productID)
		if !ok {
			return nil, ErrProductNotFound
		}
		if p.StockTracked() && next > p.Stock {
			return nil, ErrOutOfStock
		}
	}

	c.Items[productID] = next
	return c, s.persist(ctx, sessionID, c)
}

// Remove deletes the entry unconditionally.
func (s *Service) Remove(ctx context.Context, sessionID, productID string) (*domain.Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	delete(c.Items, productID)
	return c, s.persist(ctx, sessionID, c)
}

// Clear deletes the session's cart record.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, cartKey(sessionID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) persist(ctx context.Context, sessionID string, c *domain.Cart) error {
	c.SchemaVersion = domain.CartSchemaVersion
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.store.Set(ctx, cartKey(sessionID), data, 0); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
