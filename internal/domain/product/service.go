package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Input holds the caller-supplied fields for creating or updating a product.
type Input struct {
	Name        string
	Description string
	Image       string
	Price       decimal.Decimal
	Stock       int
}

// Service encapsulates catalog business rules: field validation and
// owner-only mutation.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a catalog Service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func validateInput(in Input) error {
	if in.Name == "" {
		return ErrNameRequired
	}
	if !in.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if in.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// Create adds a new product owned by the given seller. New products start
// active.
func (s *Service) Create(ctx context.Context, owner string, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Image:       in.Image,
		Price:       in.Price,
		Stock:       in.Stock,
		Owner:       owner,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update replaces the mutable fields of an existing product. Only the
// owning seller may update; anyone else gets ErrForbidden.
func (s *Service) Update(ctx context.Context, actor, id string, in Input) (*Product, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != actor {
		return nil, ErrForbidden
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Image = in.Image
	p.Price = in.Price
	p.Stock = in.Stock
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// SetActive toggles a product's visibility. Products referenced by orders
// are never deleted; deactivation is the way to retire them.
func (s *Service) SetActive(ctx context.Context, actor, id string, active bool) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != actor {
		return nil, ErrForbidden
	}

	p.Active = active
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

// Get returns a single product by id.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOwner returns every product belonging to a seller, including
// inactive ones.
func (s *Service) ListByOwner(ctx context.Context, owner string) ([]Product, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Search returns active catalog products matching the query.
func (s *Service) Search(ctx context.Context, q SearchQuery) ([]Product, error) {
	if !q.Sort.Valid() {
		q.Sort = SortNone
	}
	if q.MinStock < 0 {
		q.MinStock = 0
	}
	return s.repo.Search(ctx, q)
}
