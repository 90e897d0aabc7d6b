package catalog

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("catalog: not found")
	ErrSKUConflict = errors.New("catalog: sku already exists")
)

type Repository interface {
	ProductByID(ctx context.Context, id string) (Product, error)
	ProductBySKU(ctx context.Context, sku string) (Product, error)
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	ListProducts(ctx context.Context, f Filter) ([]Product, error)

	Variants(ctx context.Context, productID string) ([]Variant, error)
	// ReplaceVariants deletes every variant of the product and inserts vs.
	ReplaceVariants(ctx context.Context, productID string, vs []Variant) error

	CategoryByID(ctx context.Context, id string) (Category, error)
	// CategoryByName matches case-insensitively.
	CategoryByName(ctx context.Context, name string) (Category, error)
	CreateCategory(ctx context.Context, c *Category) error
	Categories(ctx context.Context) ([]Category, error)
}

// Store is a Repository that can run a unit of work atomically.
type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(Repository) error) error
}
