package product

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementation ---

type mockRepo struct {
	byID    map[string]*Product
	created []*Product
	updated []*Product
}

func newMockRepo(products ...Product) *mockRepo {
	byID := make(map[string]*Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockRepo{byID: byID}
}

func (m *mockRepo) Create(_ context.Context, p *Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []string) ([]Product, error) {
	var out []Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, p *Product) error {
	if _, ok := m.byID[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	m.updated = append(m.updated, &cp)
	return nil
}

func (m *mockRepo) ListByOwner(_ context.Context, owner string) ([]Product, error) {
	var out []Product
	for _, p := range m.byID {
		if p.Owner == owner {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockRepo) Search(_ context.Context, _ SearchQuery) ([]Product, error) {
	return nil, nil
}

// --- Helpers ---

func validInput() Input {
	return Input{
		Name:  "Walnut Desk",
		Price: decimal.RequireFromString("249.90"),
		Stock: 5,
	}
}

// --- Tests ---

func TestCreate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), "bob", validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "bob", p.Owner)
	assert.True(t, p.Active)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("249.90")))
	assert.False(t, p.CreatedAt.IsZero())
	require.Len(t, repo.created, 1)
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	in := validInput()
	in.Name = ""
	_, err := svc.Create(context.Background(), "bob", in)
	require.ErrorIs(t, err, ErrNameRequired)

	in = validInput()
	in.Price = decimal.Zero
	_, err = svc.Create(context.Background(), "bob", in)
	require.ErrorIs(t, err, ErrInvalidPrice)

	in = validInput()
	in.Price = decimal.RequireFromString("-1")
	_, err = svc.Create(context.Background(), "bob", in)
	require.ErrorIs(t, err, ErrInvalidPrice)

	in = validInput()
	in.Stock = -1
	_, err = svc.Create(context.Background(), "bob", in)
	require.ErrorIs(t, err, ErrInvalidStock)
}

func TestUpdate_OwnerOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), "bob", validInput())
	require.NoError(t, err)

	in := validInput()
	in.Stock = 9
	updated, err := svc.Update(context.Background(), "bob", p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Stock)

	_, err = svc.Update(context.Background(), "mallory", p.ID, in)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Update(context.Background(), "bob", "missing", validInput())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_TouchesUpdatedAt(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	p, err := svc.Create(context.Background(), "bob", validInput())
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	updated, err := svc.Update(context.Background(), "bob", p.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, base, updated.CreatedAt)
}

func TestSetActive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), "bob", validInput())
	require.NoError(t, err)

	deactivated, err := svc.SetActive(context.Background(), "bob", p.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = svc.SetActive(context.Background(), "mallory", p.ID, true)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestSearch_NormalizesQuery(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Search(context.Background(), SearchQuery{Sort: SortKey("bogus"), MinStock: -5})
	require.NoError(t, err)
}
