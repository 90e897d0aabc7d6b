package orders

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

var (
	ErrNotFound = errors.New("orders: not found")
	// ErrDuplicateOrderNumber is returned by InsertOrder when the order number is already taken.
	ErrDuplicateOrderNumber = errors.New("orders: duplicate order number")
)

type Repository interface {
	UserByID(ctx context.Context, id string) (User, error)
	AddressOwnedBy(ctx context.Context, addressID, userID string) (bool, error)

	// LockProduct reads the current product row and holds it until the unit of work ends.
	LockProduct(ctx context.Context, id string) (catalog.Product, error)
	// DecrementStock subtracts qty only when enough stock remains; false means nothing changed.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)

	InsertOrder(ctx context.Context, o *Order) error
	AppendLog(ctx context.Context, l *Log) error
	Logs(ctx context.Context, orderID string) ([]Log, error)
	OrderByID(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, int, error)
	SaveStatus(ctx context.Context, id string, status Status, trackNumber string) error
}

type Store interface {
	Repository
	WithinTx(ctx context.Context, fn func(Repository) error) error
}
