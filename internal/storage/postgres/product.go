package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const productColumns = `id, name, description, image, price, stock, owner, active, created_at, updated_at`

const (
	insertProductSQL = `INSERT INTO products (id, name, description, image, price, stock, owner, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, image = $4, price = $5, stock = $6, active = $7, updated_at = $8
		WHERE id = $1`

	listProductsByOwnerSQL = `SELECT ` + productColumns + ` FROM products
		WHERE owner = $1 ORDER BY created_at, id`

	searchProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE active AND stock >= $1
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' ESCAPE '\' OR description ILIKE '%' || $2 || '%' ESCAPE '\')`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new catalog row.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Image, p.Price, p.Stock, p.Owner, p.Active, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Update overwrites the mutable columns of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	ct, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Image, p.Price, p.Stock, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// ListByOwner returns every product of a seller in insertion order.
func (r *ProductRepository) ListByOwner(ctx context.Context, owner string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsByOwnerSQL, owner)
	if err != nil {
		return nil, fmt.Errorf("listing products for %q: %w", owner, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Search returns active products matching the query. The sort key comes
// from a closed set, so string-building the ORDER BY clause is safe.
func (r *ProductRepository) Search(ctx context.Context, q product.SearchQuery) ([]product.Product, error) {
	sql := searchProductsSQL + searchOrderBy(q.Sort, q.Desc)

	rows, err := r.pool.Query(ctx, sql, q.MinStock, escapeLike(q.Text))
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE metacharacters so the search text
// matches literally, the same way the in-memory store does.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func searchOrderBy(key product.SortKey, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	switch key {
	case product.SortName:
		return " ORDER BY name " + dir + ", id"
	case product.SortPrice:
		return " ORDER BY price " + dir + ", id"
	case product.SortStock:
		return " ORDER BY stock " + dir + ", id"
	default:
		// Insertion order; uuid ids only break exact timestamp ties.
		return " ORDER BY created_at, id"
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Image, &p.Price, &p.Stock,
		&p.Owner, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
