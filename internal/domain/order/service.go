package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-api/internal/domain/identity"
)

// Service owns the order lifecycle: checkout, role-gated status
// transitions, and order queries.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by the given ledger.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// CheckoutRequest holds the input for converting a cart into orders.
type CheckoutRequest struct {
	Customer        string
	ShippingAddress string
	PaymentMethod   PaymentMethod
}

// Checkout converts the customer's entire cart into Pending orders, one
// per cart line, decrementing stock as it goes. The operation is
// all-or-nothing: any line failing the live stock check aborts the whole
// checkout and leaves stock, orders, and the cart untouched.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) ([]Order, error) {
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, ErrEmptyShippingAddress
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	created, err := s.orders.Checkout(ctx, req.Customer, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Transition moves an order one step along the lifecycle on behalf of the
// actor. The seller who owns the order's product advances Pending ->
// Accepted -> Shipped; the customer who placed it confirms Shipped ->
// Completed. Everything else fails without mutating state. The second
// return value is the status the order held before this transition, the
// same one the CAS succeeded against.
func (s *Service) Transition(ctx context.Context, actor identity.Identity, orderID string, target Status) (*Order, Status, error) {
	if !target.Valid() {
		return nil, "", ErrUnknownStatus
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	role, ok := RequiredRole(target)
	if !ok {
		// Pending is never a transition target.
		return nil, "", ErrInvalidTransition
	}
	switch role {
	case identity.RoleSeller:
		if actor.Role != identity.RoleSeller || actor.Subject != o.Seller {
			return nil, "", ErrForbidden
		}
	case identity.RoleCustomer:
		if actor.Role != identity.RoleCustomer || actor.Subject != o.Customer {
			return nil, "", ErrForbidden
		}
	}

	if !CanTransition(o.Status, target) {
		return nil, "", ErrInvalidTransition
	}

	// CAS on the status we just observed: if a concurrent transition won,
	// the repository reports ErrInvalidTransition instead of corrupting
	// the lifecycle.
	updated, err := s.orders.UpdateStatus(ctx, orderID, o.Status, target)
	if err != nil {
		return nil, "", err
	}
	return updated, o.Status, nil
}

// Get returns one order, visible only to its customer and its seller.
func (s *Service) Get(ctx context.Context, actor identity.Identity, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Subject != o.Customer && actor.Subject != o.Seller {
		return nil, ErrForbidden
	}
	return o, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customer string) ([]Order, error) {
	out, err := s.orders.ListByCustomer(ctx, customer)
	if err != nil {
		return nil, errors.Wrap(err, "list customer orders")
	}
	return out, nil
}

// ListForSeller returns orders for the seller's products, optionally
// filtered to one status.
func (s *Service) ListForSeller(ctx context.Context, seller string, status Status) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrUnknownStatus
	}
	out, err := s.orders.ListBySeller(ctx, seller, status)
	if err != nil {
		return nil, errors.Wrap(err, "list seller orders")
	}
	return out, nil
}
