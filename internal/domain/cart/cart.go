package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

var (
	// ErrNotFound is returned when the customer has no entry for the product.
	ErrNotFound = errors.New("cart entry not found")
	// ErrInvalidQuantity is returned for non-positive quantities on add.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// OutOfStockError indicates the requested quantity exceeds the product's
// available stock at validation time. The check is advisory: checkout
// re-validates against live stock inside its transaction.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Entry is one line of a customer's cart, keyed by (customer, product).
type Entry struct {
	Customer  string
	ProductID string
	Quantity  int
}

// Item pairs a cart entry with its product snapshot for display.
type Item struct {
	Entry   Entry
	Product product.Product
}

// Repository defines persistence operations for carts.
type Repository interface {
	Get(ctx context.Context, customer, productID string) (*Entry, error)
	Upsert(ctx context.Context, e *Entry) error
	Remove(ctx context.Context, customer, productID string) error
	List(ctx context.Context, customer string) ([]Entry, error)
	Clear(ctx context.Context, customer string) error
}
