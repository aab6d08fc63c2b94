// Package identity defines the acting identity attached to every request.
//
// Identities are opaque strings (typically email addresses) supplied by the
// external authentication collaborator. This service never validates
// credentials; it only authorizes actions against the identity it is given.
package identity

// Role distinguishes the two actor kinds known to the storefront.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSeller
}

// Identity is the authenticated actor performing an operation.
type Identity struct {
	// Subject is the opaque identity string, e.g. an email address.
	Subject string
	Role    Role
}
