package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/storage/memory"
)

func seedProduct(s *memory.Store, id string, price string, stock int) product.Product {
	return s.Seed(product.Product{
		ID:     id,
		Name:   "Product " + id,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Owner:  "bob",
		Active: true,
	})
}

func addToCart(t *testing.T, s *memory.Store, customer, productID string, qty int) {
	t.Helper()
	err := s.Carts().Upsert(context.Background(), &cart.Entry{
		Customer:  customer,
		ProductID: productID,
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func TestCheckout(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	addToCart(t, s, "alice", "p1", 3)

	created, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
	require.NoError(t, err)
	require.Len(t, created, 1)

	o := created[0]
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "p1", o.ProductID)
	assert.Equal(t, "Product p1", o.ProductName)
	assert.Equal(t, "alice", o.Customer)
	assert.Equal(t, "bob", o.Seller)
	assert.Equal(t, 3, o.Quantity)
	assert.True(t, o.UnitPrice.Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, "1 Main St", o.ShippingAddress)

	p, err := s.Products().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	entries, err := s.Carts().List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := memory.New()

	_, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
	require.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestCheckout_AllOrNothing(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	seedProduct(s, "p2", "4.50", 1)
	addToCart(t, s, "alice", "p1", 2)
	addToCart(t, s, "alice", "p2", 3) // exceeds stock

	_, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)

	var ins *order.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "p2", ins.ProductID)
	assert.Equal(t, 3, ins.Requested)
	assert.Equal(t, 1, ins.Available)

	// Nothing changed: stock intact, cart intact, no orders.
	p1, err := s.Products().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p1.Stock)

	entries, err := s.Carts().List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	out, err := s.Orders().ListByCustomer(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestCheckout_InactiveProduct(t *testing.T) {
	s := memory.New()
	p := seedProduct(s, "p1", "10.00", 5)
	addToCart(t, s, "alice", "p1", 1)

	p.Active = false
	require.NoError(t, s.Products().Update(context.Background(), &p))

	_, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)

	var inactive *order.ProductInactiveError
	require.ErrorAs(t, err, &inactive)
	assert.Equal(t, "p1", inactive.ProductID)
}

func TestCheckout_MultiLine(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	seedProduct(s, "p2", "4.50", 8)
	addToCart(t, s, "alice", "p1", 2)
	addToCart(t, s, "alice", "p2", 3)

	created, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentPayPal)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "p1", created[0].ProductID)
	assert.Equal(t, "p2", created[1].ProductID)
}

func TestCheckout_ConcurrentSingleWinner(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	addToCart(t, s, "alice", "p1", 3)
	addToCart(t, s, "carol", "p1", 3)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, customer := range []string{"alice", "carol"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.Orders().Checkout(context.Background(), customer, "1 Main St", order.PaymentCash)
		}()
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		failed++
		var ins *order.InsufficientStockError
		require.ErrorAs(t, err, &ins)
		assert.Equal(t, 2, ins.Available)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	p, err := s.Products().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)
	assert.GreaterOrEqual(t, p.Stock, 0)
}

func TestCheckout_ConcurrentStockNeverNegative(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 10)

	const customers = 8
	var wg sync.WaitGroup
	for i := 0; i < customers; i++ {
		customer := string(rune('a' + i))
		addToCart(t, s, customer, "p1", 3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Orders().Checkout(context.Background(), customer, "1 Main St", order.PaymentCash)
		}()
	}
	wg.Wait()

	p, err := s.Products().GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Stock, 0)

	// Sold units plus remaining stock must balance.
	sold := 0
	for i := 0; i < customers; i++ {
		out, err := s.Orders().ListByCustomer(context.Background(), string(rune('a'+i)))
		require.NoError(t, err)
		for _, o := range out {
			sold += o.Quantity
		}
	}
	assert.Equal(t, 10, sold+p.Stock)
}

func TestCheckout_ConcurrentAddNotDropped(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 50)
	seedProduct(s, "p2", "4.50", 50)

	// A line staged while checkout runs must either become an order or
	// stay in the cart; it must never silently vanish.
	for i := 0; i < 20; i++ {
		addToCart(t, s, "alice", "p1", 1)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
		}()
		go func() {
			defer wg.Done()
			_ = s.Carts().Upsert(context.Background(), &cart.Entry{
				Customer:  "alice",
				ProductID: "p2",
				Quantity:  1,
			})
		}()
		wg.Wait()

		entries, err := s.Carts().List(context.Background(), "alice")
		require.NoError(t, err)
		staged := 0
		for _, e := range entries {
			if e.ProductID == "p2" {
				staged += e.Quantity
			}
		}

		ordered := 0
		out, err := s.Orders().ListByCustomer(context.Background(), "alice")
		require.NoError(t, err)
		for _, o := range out {
			if o.ProductID == "p2" {
				ordered += o.Quantity
			}
		}

		require.Equal(t, i+1, staged+ordered, "staged p2 line dropped on iteration %d", i)

		// Drain whatever is left so the next round starts clean.
		if staged > 0 {
			_, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
			require.NoError(t, err)
		}
	}
}

func TestUpdateStatus_CAS(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	addToCart(t, s, "alice", "p1", 1)

	created, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
	require.NoError(t, err)
	id := created[0].ID

	updated, err := s.Orders().UpdateStatus(context.Background(), id, order.StatusPending, order.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, updated.Status)

	// Stale expected status loses.
	_, err = s.Orders().UpdateStatus(context.Background(), id, order.StatusPending, order.StatusAccepted)
	require.ErrorIs(t, err, order.ErrInvalidTransition)

	_, err = s.Orders().UpdateStatus(context.Background(), "missing", order.StatusPending, order.StatusAccepted)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestUpdateStatus_ConcurrentOneWinner(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 5)
	addToCart(t, s, "alice", "p1", 1)

	created, err := s.Orders().Checkout(context.Background(), "alice", "1 Main St", order.PaymentCash)
	require.NoError(t, err)
	id := created[0].ID

	const racers = 8
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = s.Orders().UpdateStatus(context.Background(), id, order.StatusPending, order.StatusAccepted)
		}()
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			require.True(t, errors.Is(err, order.ErrInvalidTransition))
		}
	}
	assert.Equal(t, 1, winners)

	o, err := s.Orders().GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusAccepted, o.Status)
}

func TestSearch_InsertionOrderAndSorts(t *testing.T) {
	s := memory.New()
	s.Seed(product.Product{ID: "b", Name: "Beta Desk", Price: decimal.RequireFromString("30.00"), Stock: 2, Owner: "bob", Active: true})
	s.Seed(product.Product{ID: "a", Name: "Alpha Desk", Price: decimal.RequireFromString("20.00"), Stock: 5, Owner: "bob", Active: true})
	s.Seed(product.Product{ID: "c", Name: "Gamma Chair", Price: decimal.RequireFromString("20.00"), Stock: 0, Owner: "bob", Active: true})
	s.Seed(product.Product{ID: "d", Name: "Hidden Desk", Price: decimal.RequireFromString("10.00"), Stock: 5, Owner: "bob", Active: false})

	ctx := context.Background()

	// Default: insertion order, inactive hidden.
	out, err := s.Products().Search(ctx, product.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"b", "a", "c"}, ids(out))

	// Substring match over name, case-insensitive.
	out, err = s.Products().Search(ctx, product.SearchQuery{Text: "desk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(out))

	// MinStock filter.
	out, err = s.Products().Search(ctx, product.SearchQuery{MinStock: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(out))

	// Sort by name.
	out, err = s.Products().Search(ctx, product.SearchQuery{Sort: product.SortName})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))

	// Sort by price descending with id tie-break between a and c.
	out, err = s.Products().Search(ctx, product.SearchQuery{Sort: product.SortPrice, Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, ids(out))
}

func ids(ps []product.Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func TestListByCustomer_NewestFirst(t *testing.T) {
	s := memory.New()
	seedProduct(s, "p1", "10.00", 10)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		addToCart(t, s, "alice", "p1", 1)
		_, err := s.Orders().Checkout(ctx, "alice", "1 Main St", order.PaymentCash)
		require.NoError(t, err)
	}

	out, err := s.Orders().ListByCustomer(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].CreatedAt.After(out[i-1].CreatedAt))
	}
}
