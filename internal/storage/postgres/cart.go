package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const (
	getCartEntrySQL = `SELECT customer, product_id, quantity FROM cart_items
		WHERE customer = $1 AND product_id = $2`

	upsertCartEntrySQL = `INSERT INTO cart_items (customer, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (customer, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	removeCartEntrySQL = `DELETE FROM cart_items WHERE customer = $1 AND product_id = $2`

	listCartSQL = `SELECT customer, product_id, quantity FROM cart_items
		WHERE customer = $1 ORDER BY added_at, product_id`

	clearCartSQL = `DELETE FROM cart_items WHERE customer = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns one cart entry by its composite key.
func (r *CartRepository) Get(ctx context.Context, customer, productID string) (*cart.Entry, error) {
	rows, err := r.pool.Query(ctx, getCartEntrySQL, customer, productID)
	if err != nil {
		return nil, fmt.Errorf("getting cart entry: %w", err)
	}

	e, err := pgx.CollectExactlyOneRow(rows, scanCartEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart entry: %w", err)
	}
	return &e, nil
}

// Upsert writes the absolute quantity for (customer, product).
func (r *CartRepository) Upsert(ctx context.Context, e *cart.Entry) error {
	_, err := r.pool.Exec(ctx, upsertCartEntrySQL, e.Customer, e.ProductID, e.Quantity)
	if err != nil {
		return fmt.Errorf("upserting cart entry: %w", err)
	}
	return nil
}

// Remove deletes one entry; removing an absent entry is ErrNotFound so the
// API layer can 404 it.
func (r *CartRepository) Remove(ctx context.Context, customer, productID string) error {
	ct, err := r.pool.Exec(ctx, removeCartEntrySQL, customer, productID)
	if err != nil {
		return fmt.Errorf("removing cart entry: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// List returns the customer's entries oldest first.
func (r *CartRepository) List(ctx context.Context, customer string) ([]cart.Entry, error) {
	rows, err := r.pool.Query(ctx, listCartSQL, customer)
	if err != nil {
		return nil, fmt.Errorf("listing cart for %q: %w", customer, err)
	}
	return pgx.CollectRows(rows, scanCartEntry)
}

// Clear removes every entry of the customer.
func (r *CartRepository) Clear(ctx context.Context, customer string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, customer); err != nil {
		return fmt.Errorf("clearing cart for %q: %w", customer, err)
	}
	return nil
}

func scanCartEntry(row pgx.CollectableRow) (cart.Entry, error) {
	var e cart.Entry
	err := row.Scan(&e.Customer, &e.ProductID, &e.Quantity)
	return e, err
}
