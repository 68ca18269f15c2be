package domain

// Product is a read-only view of a catalog row. The sheet is the source of
// truth; this struct only carries the fields the storefront needs.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	// PriceCents is the unit price in euro cents.
	PriceCents int64 `json:"price_cents"`
	// Stock is the available quantity. -1 when the sheet leaves the cell
	// blank, meaning stock is not tracked for this product.
	Stock     int    `json:"stock"`
	Category  string `json:"category,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	ShortDesc string `json:"short_desc,omitempty"`
}

// StockTracked reports whether the product has a stock count to enforce.
func (p Product) StockTracked() bool {
	return p.Stock >= 0
}

// FindProduct returns the product with the given id, or false.
func FindProduct(products []Product, id string) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
