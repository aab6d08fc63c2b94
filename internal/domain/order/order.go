package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when the order id is unknown.
	ErrNotFound = errors.New("order not found")
	// ErrForbidden is returned when the actor is neither the order's
	// customer nor the seller of its product, or holds the wrong role for
	// the attempted transition.
	ErrForbidden = errors.New("not allowed to act on this order")
	// ErrEmptyCart is returned by checkout when the customer's cart has no
	// entries.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidTransition is returned when a status change violates the
	// transition table, including the case where a concurrent actor moved
	// the order first.
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrEmptyShippingAddress = errors.New("shipping address required")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrUnknownStatus        = errors.New("unknown order status")
)

// InsufficientStockError aborts an entire checkout when any line exceeds
// the product's live stock. No stock is decremented and no orders are
// created for any line.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProductInactiveError aborts a checkout containing a line whose product
// was deactivated after it was staged.
type ProductInactiveError struct {
	ProductID string
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.ProductID)
}

// PaymentMethod is a tag from a closed set; no payment processing happens
// here.
type PaymentMethod string

const (
	PaymentCash           PaymentMethod = "Cash"
	PaymentCredit         PaymentMethod = "Credit"
	PaymentBankTransfer   PaymentMethod = "BankTransfer"
	PaymentPayPal         PaymentMethod = "PayPal"
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
)

// Valid reports whether m is one of the accepted payment method tags.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentBankTransfer, PaymentPayPal, PaymentCashOnDelivery:
		return true
	}
	return false
}

// Order is an immutable record of one purchased line item. Quantity and
// unit price are snapshots taken at checkout; only Status and
// StatusChangedAt ever change afterwards.
type Order struct {
	ID        string
	ProductID string
	// ProductName and ProductImage are display snapshots so later catalog
	// edits don't rewrite order history.
	ProductName     string
	ProductImage    string
	Customer        string
	Seller          string
	Quantity        int
	UnitPrice       decimal.Decimal
	Status          Status
	ShippingAddress string
	PaymentMethod   PaymentMethod
	CreatedAt       time.Time
	StatusChangedAt time.Time
}

// Repository defines persistence operations for the order ledger.
//
// Checkout is the atomic cart-to-order conversion: within one transaction
// it reads the customer's cart, re-validates every line against live
// stock, decrements stock, inserts one Pending order per line, and drains
// the cart. Implementations must guarantee stock never goes negative under
// concurrent checkouts and that a failed line leaves no effects at all.
type Repository interface {
	Checkout(ctx context.Context, customer, shippingAddress string, method PaymentMethod) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	// UpdateStatus performs a compare-and-swap on (id, from) -> to and
	// returns ErrInvalidTransition when the order is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
	ListByCustomer(ctx context.Context, customer string) ([]Order, error)
	// ListBySeller filters to one status when status is non-empty.
	ListBySeller(ctx context.Context, seller string, status Status) ([]Order, error)
}
