package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/maximefrech68-hue/monthe/internal/domain"
)

var (
	ErrEmptyCart       = errors.New("checkout: cart is empty")
	ErrInvalidCustomer = errors.New("checkout: invalid customer fields")
)

var validate = validator.New()

// BuildOrder assembles a pending order from the cart and the current catalog
// snapshot. Product name and price are copied into the line items so later
// catalog changes cannot alter the order once built. Entries referencing
// products missing from the snapshot are skipped, mirroring the cart total
// policy.
func BuildOrder(c *domain.Cart, products []domain.Product, customer domain.Customer) (*domain.PendingOrder, error) {
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := validate.Struct(customer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCustomer, err)
	}

	order := &domain.PendingOrder{
		SchemaVersion: domain.OrderSchemaVersion,
		OrderRef:      newOrderRef(),
		Customer:      customer,
		Items:         make([]domain.LineItem, 0, len(c.Items)),
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}

	// Map iteration order is random; sort by product ID so the same cart
	// always yields the same line item sequence.
	ids := make([]string, 0, len(c.Items))
	for id := range c.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		qty := c.Items[id]
		p, ok := domain.FindProduct(products, id)
		if !ok {
			continue
		}
		lineTotal := p.PriceCents * int64(qty)
		order.Items = append(order.Items, domain.LineItem{
			ProductID:      id,
			Name:           p.Name,
			Quantity:       qty,
			UnitPriceCents: p.PriceCents,
			LineTotalCents: lineTotal,
		})
		order.TotalCents += lineTotal
	}

	return order, nil
}

// newOrderRef generates a fresh MT-prefixed reference. Collisions are
// accepted as negligible; the gateway does its own dedup by reference.
func newOrderRef() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "MT-" + strings.ToUpper(hex[:8])
}
