package catalog

import (
	"context"

	"github.com/maximefrech68-hue/monthe/internal/domain"
)

// Provider supplies the current product catalog snapshot.
type Provider interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// Static is a fixed catalog, used by tests and local dev.
type Static struct {
	items []domain.Product
}

func NewStatic(items []domain.Product) *Static {
	return &Static{items: items}
}

func (s *Static) Products(context.Context) ([]domain.Product, error) {
	return s.items, nil
}
