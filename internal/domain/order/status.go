package order

import "github.com/xenking/storefront-api/internal/domain/identity"

// Status is the order lifecycle state. The workflow is strictly linear:
// Pending -> Accepted -> Shipped -> Completed. No state repeats, no state
// is skipped, and there is no cancellation edge.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusShipped   Status = "Shipped"
	StatusCompleted Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusShipped, StatusCompleted:
		return true
	}
	return false
}

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusAccepted: true},
	StatusAccepted:  {StatusShipped: true},
	StatusShipped:   {StatusCompleted: true},
	StatusCompleted: {},
}

// CanTransition reports whether the edge from -> to exists in the
// lifecycle graph, ignoring who is asking.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// transitionRole gates each target state by actor role: the seller works
// the order towards Shipped, the customer confirms receipt.
var transitionRole = map[Status]identity.Role{
	StatusAccepted:  identity.RoleSeller,
	StatusShipped:   identity.RoleSeller,
	StatusCompleted: identity.RoleCustomer,
}

// RequiredRole returns the role allowed to move an order into to.
func RequiredRole(to Status) (identity.Role, bool) {
	r, ok := transitionRole[to]
	return r, ok
}
