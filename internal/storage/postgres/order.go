package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/order"
)

const orderColumns = `id, product_id, product_name, product_image, customer, seller,
	quantity, unit_price, status, shipping_address, payment_method, created_at, status_changed_at`

const (
	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	// CAS: the WHERE clause on the expected status makes concurrent
	// conflicting transitions resolve to exactly one winner. RETURNING
	// hands back the exact row this update produced, not whatever a
	// later transition may have installed by the time we re-read.
	updateOrderStatusSQL = `UPDATE orders SET status = $3, status_changed_at = $4
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns

	listOrdersByCustomerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer = $1 ORDER BY created_at DESC, id`

	listOrdersBySellerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE seller = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id`

	lockCartForCheckoutSQL = `SELECT product_id, quantity FROM cart_items
		WHERE customer = $1 ORDER BY product_id FOR UPDATE`

	lockProductSQL = `SELECT name, image, price, stock, owner, active
		FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = $3 WHERE id = $1`

	// Only the lines this checkout converted: a blanket delete by
	// customer would also sweep up rows inserted by a concurrent Add
	// after our FOR UPDATE read (row locks don't block new inserts).
	drainCheckedOutLinesSQL = `DELETE FROM cart_items WHERE customer = $1 AND product_id = ANY($2)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, now: time.Now}
}

// Checkout converts the customer's cart into Pending orders inside a
// single transaction. Product rows are locked FOR UPDATE in ascending id
// order; concurrent checkouts over the same products serialize on those
// locks, so the stock check and decrement are atomic per product. Any
// failing line rolls back everything.
func (r *OrderRepository) Checkout(ctx context.Context, customer, shippingAddress string, method order.PaymentMethod) ([]order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin checkout")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, lockCartForCheckoutSQL, customer)
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	type line struct {
		productID string
		qty       int
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (line, error) {
		var l line
		err := row.Scan(&l.productID, &l.qty)
		return l, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "read cart")
	}
	if len(lines) == 0 {
		return nil, order.ErrEmptyCart
	}

	// Cart rows come back ordered by product id already; keep the lock
	// order explicit anyway so concurrent multi-line checkouts can't
	// deadlock on each other.
	sort.Slice(lines, func(i, j int) bool { return lines[i].productID < lines[j].productID })

	now := r.now().UTC()
	created := make([]order.Order, 0, len(lines))
	drained := make([]string, 0, len(lines))

	for _, l := range lines {
		var (
			name, image, owner string
			price              decimal.Decimal
			stock              int
			active             bool
		)
		err := tx.QueryRow(ctx, lockProductSQL, l.productID).
			Scan(&name, &image, &price, &stock, &owner, &active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &order.InsufficientStockError{ProductID: l.productID, Requested: l.qty, Available: 0}
			}
			return nil, errors.Wrapf(err, "lock product %s", l.productID)
		}
		if !active {
			return nil, &order.ProductInactiveError{ProductID: l.productID}
		}
		if stock < l.qty {
			return nil, &order.InsufficientStockError{ProductID: l.productID, Requested: l.qty, Available: stock}
		}

		if _, err := tx.Exec(ctx, decrementStockSQL, l.productID, l.qty, now); err != nil {
			return nil, errors.Wrapf(err, "decrement stock for %s", l.productID)
		}

		o := order.Order{
			ID:              uuid.New().String(),
			ProductID:       l.productID,
			ProductName:     name,
			ProductImage:    image,
			Customer:        customer,
			Seller:          owner,
			Quantity:        l.qty,
			UnitPrice:       price,
			Status:          order.StatusPending,
			ShippingAddress: shippingAddress,
			PaymentMethod:   method,
			CreatedAt:       now,
			StatusChangedAt: now,
		}
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.ProductID, o.ProductName, o.ProductImage, o.Customer, o.Seller,
			o.Quantity, o.UnitPrice, o.Status, o.ShippingAddress, o.PaymentMethod,
			o.CreatedAt, o.StatusChangedAt,
		); err != nil {
			return nil, errors.Wrapf(err, "insert order for %s", l.productID)
		}
		created = append(created, o)
		drained = append(drained, l.productID)
	}

	if _, err := tx.Exec(ctx, drainCheckedOutLinesSQL, customer, drained); err != nil {
		return nil, errors.Wrap(err, "drain cart")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit checkout")
	}
	return created, nil
}

// GetByID returns a single order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// UpdateStatus compare-and-swaps the order status. Zero rows affected
// means the order left the expected status first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, from, to, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the id is unknown or another actor already moved it.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, order.ErrInvalidTransition
		}
		return nil, fmt.Errorf("updating order %q status: %w", id, err)
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customer string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customer)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customer, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListBySeller returns orders on the seller's products, optionally
// filtered to one status.
func (r *OrderRepository) ListBySeller(ctx context.Context, seller string, status order.Status) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersBySellerSQL, seller, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing orders for seller %q: %w", seller, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.ProductID, &o.ProductName, &o.ProductImage, &o.Customer, &o.Seller,
		&o.Quantity, &o.UnitPrice, &o.Status, &o.ShippingAddress, &o.PaymentMethod,
		&o.CreatedAt, &o.StatusChangedAt,
	)
	return o, err
}
