package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListByOwner(_ context.Context, _ string) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) Search(_ context.Context, _ product.SearchQuery) ([]product.Product, error) {
	return nil, nil
}

type mockCartRepo struct {
	entries map[string]map[string]*Entry // customer -> product -> entry
	order   map[string][]string
}

func newCartRepo() *mockCartRepo {
	return &mockCartRepo{
		entries: make(map[string]map[string]*Entry),
		order:   make(map[string][]string),
	}
}

func (m *mockCartRepo) Get(_ context.Context, customer, productID string) (*Entry, error) {
	e, ok := m.entries[customer][productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockCartRepo) Upsert(_ context.Context, e *Entry) error {
	if m.entries[e.Customer] == nil {
		m.entries[e.Customer] = make(map[string]*Entry)
	}
	if _, ok := m.entries[e.Customer][e.ProductID]; !ok {
		m.order[e.Customer] = append(m.order[e.Customer], e.ProductID)
	}
	cp := *e
	m.entries[e.Customer][e.ProductID] = &cp
	return nil
}

func (m *mockCartRepo) Remove(_ context.Context, customer, productID string) error {
	if _, ok := m.entries[customer][productID]; !ok {
		return ErrNotFound
	}
	delete(m.entries[customer], productID)
	ids := m.order[customer]
	for i, id := range ids {
		if id == productID {
			m.order[customer] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockCartRepo) List(_ context.Context, customer string) ([]Entry, error) {
	var out []Entry
	for _, id := range m.order[customer] {
		out = append(out, *m.entries[customer][id])
	}
	return out, nil
}

func (m *mockCartRepo) Clear(_ context.Context, customer string) error {
	delete(m.entries, customer)
	delete(m.order, customer)
	return nil
}

// --- Helpers ---

func newTestProduct(id string, stock int, active bool) product.Product {
	return product.Product{
		ID:     id,
		Name:   "Widget " + id,
		Price:  decimal.RequireFromString("10.00"),
		Stock:  stock,
		Owner:  "bob",
		Active: active,
	}
}

func newService(products ...product.Product) (*Service, *mockCartRepo) {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	carts := newCartRepo()
	return NewService(&mockProductRepo{byID: byID}, carts), carts
}

// --- Tests ---

func TestAdd_InvalidQuantity(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(context.Background(), "alice", "p1", -1)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Add(context.Background(), "alice", "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAdd_InactiveProductHidden(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, false))

	_, err := svc.Add(context.Background(), "alice", "p1", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestAdd_ExceedsStock(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 6)

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "p1", oos.ProductID)
	assert.Equal(t, 6, oos.Requested)
	assert.Equal(t, 5, oos.Available)
}

func TestAdd_Fresh(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	e, err := svc.Add(context.Background(), "alice", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Quantity)
}

func TestAdd_MergesQuantities(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 10, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 3)
	require.NoError(t, err)

	e, err := svc.Add(context.Background(), "alice", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 7, e.Quantity)
}

func TestAdd_MergeClampsToStock(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 4)
	require.NoError(t, err)

	e, err := svc.Add(context.Background(), "alice", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, e.Quantity)
}

func TestUpdate_SetsQuantity(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 2)
	require.NoError(t, err)

	e, err := svc.Update(context.Background(), "alice", "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, e.Quantity)
}

func TestUpdate_ZeroRemoves(t *testing.T) {
	svc, repo := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 2)
	require.NoError(t, err)

	e, err := svc.Update(context.Background(), "alice", "p1", 0)
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = repo.Get(context.Background(), "alice", "p1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ExceedsStock(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 2)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), "alice", "p1", 9)

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, 5, oos.Available)
}

func TestUpdate_MissingEntry(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Update(context.Background(), "alice", "p1", 2)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 2)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), "alice", "p1"))
	require.ErrorIs(t, svc.Remove(context.Background(), "alice", "p1"), ErrNotFound)
}

func TestList_JoinsProducts(t *testing.T) {
	svc, _ := newService(newTestProduct("p1", 5, true), newTestProduct("p2", 3, true))

	_, err := svc.Add(context.Background(), "alice", "p1", 2)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), "alice", "p2", 1)
	require.NoError(t, err)

	items, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].Product.ID)
	assert.Equal(t, 2, items[0].Entry.Quantity)
	assert.Equal(t, "Widget p1", items[0].Product.Name)
	assert.Equal(t, "p2", items[1].Product.ID)
}

func TestList_Empty(t *testing.T) {
	svc, _ := newService()

	items, err := svc.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, items)
}
