// Package memory implements the domain repositories on in-process maps
// behind a single mutex. It upholds the same atomicity guarantees as the
// PostgreSQL implementation and backs the unit, API, and concurrency
// tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// Store holds all storefront state. The repository views returned by
// Products, Carts, and Orders share one mutex, so cross-entity operations
// like checkout are atomic against everything else.
type Store struct {
	mu sync.Mutex

	products     map[string]product.Product
	productOrder []string // insertion order of product ids

	// carts maps customer -> product id -> quantity; cartOrder preserves
	// per-customer insertion order for stable listings.
	carts     map[string]map[string]int
	cartOrder map[string][]string

	orders map[string]order.Order

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		products:  make(map[string]product.Product),
		carts:     make(map[string]map[string]int),
		cartOrder: make(map[string][]string),
		orders:    make(map[string]order.Order),
		now:       time.Now,
	}
}

// SetClock overrides the store's clock. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Products returns the product.Repository view of the store.
func (s *Store) Products() product.Repository { return productStore{s} }

// Carts returns the cart.Repository view of the store.
func (s *Store) Carts() cart.Repository { return cartStore{s} }

// Orders returns the order.Repository view of the store.
func (s *Store) Orders() order.Repository { return orderStore{s} }

// Seed inserts a product directly, bypassing service validation. Test and
// tooling helper.
func (s *Store) Seed(p product.Product) product.Product {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
	s.productOrder = append(s.productOrder, p.ID)
	return p
}

// --- product.Repository ---

type productStore struct{ s *Store }

var _ product.Repository = productStore{}

func (ps productStore) Create(_ context.Context, p *product.Product) error {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ID] = *p
	s.productOrder = append(s.productOrder, p.ID)
	return nil
}

func (ps productStore) GetByID(_ context.Context, id string) (*product.Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (ps productStore) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (ps productStore) Update(_ context.Context, p *product.Product) error {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return product.ErrNotFound
	}
	s.products[p.ID] = *p
	return nil
}

func (ps productStore) ListByOwner(_ context.Context, owner string) ([]product.Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []product.Product
	for _, id := range s.productOrder {
		if p := s.products[id]; p.Owner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (ps productStore) Search(_ context.Context, q product.SearchQuery) ([]product.Product, error) {
	s := ps.s
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.ToLower(q.Text)
	var out []product.Product
	for _, id := range s.productOrder {
		p := s.products[id]
		if !p.Active || p.Stock < q.MinStock {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Name), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, q.Sort, q.Desc)
	return out, nil
}

func sortProducts(ps []product.Product, key product.SortKey, desc bool) {
	if key == product.SortNone {
		return // insertion order
	}
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		var less, eq bool
		switch key {
		case product.SortName:
			less, eq = a.Name < b.Name, a.Name == b.Name
		case product.SortPrice:
			c := a.Price.Cmp(b.Price)
			less, eq = c < 0, c == 0
		case product.SortStock:
			less, eq = a.Stock < b.Stock, a.Stock == b.Stock
		}
		if eq {
			return a.ID < b.ID // stable tie-break, same direction either way
		}
		if desc {
			return !less
		}
		return less
	})
}

// --- cart.Repository ---

type cartStore struct{ s *Store }

var _ cart.Repository = cartStore{}

func (cs cartStore) Get(_ context.Context, customer, productID string) (*cart.Entry, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()

	qty, ok := s.carts[customer][productID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return &cart.Entry{Customer: customer, ProductID: productID, Quantity: qty}, nil
}

func (cs cartStore) Upsert(_ context.Context, e *cart.Entry) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[e.Customer]
	if !ok {
		c = make(map[string]int)
		s.carts[e.Customer] = c
	}
	if _, exists := c[e.ProductID]; !exists {
		s.cartOrder[e.Customer] = append(s.cartOrder[e.Customer], e.ProductID)
	}
	c[e.ProductID] = e.Quantity
	return nil
}

func (cs cartStore) Remove(_ context.Context, customer, productID string) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[customer][productID]; !ok {
		return cart.ErrNotFound
	}
	delete(s.carts[customer], productID)
	ord := s.cartOrder[customer]
	for i, id := range ord {
		if id == productID {
			s.cartOrder[customer] = append(ord[:i], ord[i+1:]...)
			break
		}
	}
	return nil
}

func (cs cartStore) List(_ context.Context, customer string) ([]cart.Entry, error) {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCartLocked(customer), nil
}

func (cs cartStore) Clear(_ context.Context, customer string) error {
	s := cs.s
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, customer)
	delete(s.cartOrder, customer)
	return nil
}

func (s *Store) listCartLocked(customer string) []cart.Entry {
	var out []cart.Entry
	for _, id := range s.cartOrder[customer] {
		out = append(out, cart.Entry{
			Customer:  customer,
			ProductID: id,
			Quantity:  s.carts[customer][id],
		})
	}
	return out
}

// --- order.Repository ---

type orderStore struct{ s *Store }

var _ order.Repository = orderStore{}

// Checkout converts the cart under the store lock, making the read /
// validate / decrement / insert / drain sequence atomic against every
// other operation.
func (os orderStore) Checkout(_ context.Context, customer, shippingAddress string, method order.PaymentMethod) ([]order.Order, error) {
	s := os.s
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.listCartLocked(customer)
	if len(lines) == 0 {
		return nil, order.ErrEmptyCart
	}

	// Validate everything first so a failing line leaves no effects.
	for _, l := range lines {
		p, ok := s.products[l.ProductID]
		if !ok {
			return nil, &order.InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: 0}
		}
		if !p.Active {
			return nil, &order.ProductInactiveError{ProductID: l.ProductID}
		}
		if p.Stock < l.Quantity {
			return nil, &order.InsufficientStockError{ProductID: l.ProductID, Requested: l.Quantity, Available: p.Stock}
		}
	}

	now := s.now().UTC()
	created := make([]order.Order, 0, len(lines))
	for _, l := range lines {
		p := s.products[l.ProductID]
		p.Stock -= l.Quantity
		p.UpdatedAt = now
		s.products[l.ProductID] = p

		o := order.Order{
			ID:              uuid.New().String(),
			ProductID:       p.ID,
			ProductName:     p.Name,
			ProductImage:    p.Image,
			Customer:        customer,
			Seller:          p.Owner,
			Quantity:        l.Quantity,
			UnitPrice:       p.Price,
			Status:          order.StatusPending,
			ShippingAddress: shippingAddress,
			PaymentMethod:   method,
			CreatedAt:       now,
			StatusChangedAt: now,
		}
		s.orders[o.ID] = o
		created = append(created, o)
	}

	delete(s.carts, customer)
	delete(s.cartOrder, customer)
	return created, nil
}

func (os orderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s := os.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return &o, nil
}

func (os orderStore) UpdateStatus(_ context.Context, id string, from, to order.Status) (*order.Order, error) {
	s := os.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	if o.Status != from {
		return nil, order.ErrInvalidTransition
	}
	o.Status = to
	o.StatusChangedAt = s.now().UTC()
	s.orders[id] = o
	return &o, nil
}

func (os orderStore) ListByCustomer(_ context.Context, customer string) ([]order.Order, error) {
	s := os.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []order.Order
	for _, o := range s.orders {
		if o.Customer == customer {
			out = append(out, o)
		}
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func (os orderStore) ListBySeller(_ context.Context, seller string, status order.Status) ([]order.Order, error) {
	s := os.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []order.Order
	for _, o := range s.orders {
		if o.Seller != seller {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	sortOrdersNewestFirst(out)
	return out, nil
}

func sortOrdersNewestFirst(os []order.Order) {
	sort.Slice(os, func(i, j int) bool {
		if !os[i].CreatedAt.Equal(os[j].CreatedAt) {
			return os[i].CreatedAt.After(os[j].CreatedAt)
		}
		return os[i].ID < os[j].ID
	})
}
