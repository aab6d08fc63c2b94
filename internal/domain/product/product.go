package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist or
	// is not visible to the caller.
	ErrNotFound = errors.New("product not found")
	// ErrForbidden is returned when the actor does not own the product.
	ErrForbidden = errors.New("not the product owner")

	ErrNameRequired = errors.New("product name required")
	ErrInvalidPrice = errors.New("price must be greater than 0")
	ErrInvalidStock = errors.New("stock must not be negative")
)

// Product is a catalog item owned by a seller.
type Product struct {
	ID          string
	Name        string
	Description string
	Image       string
	Price       decimal.Decimal
	Stock       int
	Owner       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortKey selects the search result ordering.
type SortKey string

const (
	SortNone  SortKey = ""
	SortName  SortKey = "name"
	SortPrice SortKey = "price"
	SortStock SortKey = "stock"
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortName, SortPrice, SortStock:
		return true
	}
	return false
}

// SearchQuery filters active catalog products.
type SearchQuery struct {
	// Text is matched case-insensitively as a substring of name and
	// description. Empty matches everything.
	Text string
	// MinStock excludes products with fewer units available. Search flows
	// commonly pass 1 to hide unorderable items.
	MinStock int
	// Sort orders the results; SortNone keeps insertion order. Ties break
	// by id either way.
	Sort SortKey
	Desc bool
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	ListByOwner(ctx context.Context, owner string) ([]Product, error)
	Search(ctx context.Context, q SearchQuery) ([]Product, error)
}
