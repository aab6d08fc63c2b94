package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// Service applies cart business rules on top of the repositories. Stock
// checks here bound what a customer can stage; the authoritative re-check
// happens at checkout.
type Service struct {
	products product.Repository
	carts    Repository
}

// NewService creates a cart Service.
func NewService(products product.Repository, carts Repository) *Service {
	return &Service{products: products, carts: carts}
}

// lookupActive fetches a product and hides inactive ones, matching the
// storefront views a customer adds from.
func (s *Service) lookupActive(ctx context.Context, productID string) (*product.Product, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, product.ErrNotFound
	}
	return p, nil
}

// Add stages qty units of a product in the customer's cart.
//
// A fresh add whose quantity alone exceeds current stock fails with
// *OutOfStockError. Adding to an existing entry sums the quantities and
// clamps the result to current stock, so repeated adds converge on the
// maximum orderable amount instead of erroring.
func (s *Service) Add(ctx context.Context, customer, productID string, qty int) (*Entry, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.lookupActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	existing, err := s.carts.Get(ctx, customer, productID)
	switch {
	case err == nil:
		total := existing.Quantity + qty
		if total > p.Stock {
			total = p.Stock
		}
		existing.Quantity = total
		if err := s.carts.Upsert(ctx, existing); err != nil {
			return nil, errors.Wrap(err, "upsert cart entry")
		}
		return existing, nil
	case errors.Is(err, ErrNotFound):
		if qty > p.Stock {
			return nil, &OutOfStockError{ProductID: productID, Requested: qty, Available: p.Stock}
		}
		e := &Entry{Customer: customer, ProductID: productID, Quantity: qty}
		if err := s.carts.Upsert(ctx, e); err != nil {
			return nil, errors.Wrap(err, "upsert cart entry")
		}
		return e, nil
	default:
		return nil, errors.Wrap(err, "get cart entry")
	}
}

// Update sets the absolute quantity of an existing entry. Quantities below
// 1 remove the entry.
func (s *Service) Update(ctx context.Context, customer, productID string, qty int) (*Entry, error) {
	if qty < 1 {
		if err := s.Remove(ctx, customer, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	p, err := s.lookupActive(ctx, productID)
	if err != nil {
		return nil, err
	}
	if qty > p.Stock {
		return nil, &OutOfStockError{ProductID: productID, Requested: qty, Available: p.Stock}
	}

	e, err := s.carts.Get(ctx, customer, productID)
	if err != nil {
		return nil, err
	}
	e.Quantity = qty
	if err := s.carts.Upsert(ctx, e); err != nil {
		return nil, errors.Wrap(err, "upsert cart entry")
	}
	return e, nil
}

// Remove deletes one entry from the customer's cart.
func (s *Service) Remove(ctx context.Context, customer, productID string) error {
	return s.carts.Remove(ctx, customer, productID)
}

// List returns the customer's cart entries joined with product snapshots,
// fetched in a single batch.
func (s *Service) List(ctx context.Context, customer string) ([]Item, error) {
	entries, err := s.carts.List(ctx, customer)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get cart products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		p, ok := byID[e.ProductID]
		if !ok {
			// Product vanished since it was staged; skip rather than fail
			// the whole listing.
			continue
		}
		items = append(items, Item{Entry: e, Product: p})
	}
	return items, nil
}

// Clear drops every entry in the customer's cart.
func (s *Service) Clear(ctx context.Context, customer string) error {
	return s.carts.Clear(ctx, customer)
}
