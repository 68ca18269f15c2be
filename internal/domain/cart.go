package domain

// CartSchemaVersion is stored with every persisted cart so the shape can
// evolve without silently corrupting old records.
const CartSchemaVersion = 1

// Cart maps product id to quantity for one session.
type Cart struct {
	SchemaVersion int            `json:"schema_version"`
	Items         map[string]int `json:"items"`
}

// NewCart returns an empty cart at the current schema version.
func NewCart() *Cart {
	return &Cart{
		SchemaVersion: CartSchemaVersion,
		Items:         make(map[string]int),
	}
}

// Count returns the total quantity across all entries.
func (c *Cart) Count() int {
	total := 0
	for _, qty := range c.Items {
		total += qty
	}
	return total
}

// IsEmpty reports whether the cart has no entries.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total sums quantity times unit price over entries whose product exists in
// the supplied catalog snapshot. Entries referencing unknown products are
// excluded from the total but not deleted: the cart never auto-prunes on
// catalog staleness.
func (c *Cart) Total(products []Product) int64 {
	var total int64
	for id, qty := range c.Items {
		p, ok := FindProduct(products, id)
		if !ok {
			continue
		}
		total += p.PriceCents * int64(qty)
	}
	return total
}
