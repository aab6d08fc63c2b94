// Package api exposes the storefront over HTTP: catalog management and
// search, cart operations, checkout, and the order lifecycle.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront-api/internal/auth"
	"github.com/xenking/storefront-api/internal/cache"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/identity"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/events"
)

// Handler wires the domain services into HTTP endpoints.
type Handler struct {
	products *product.Service
	carts    *cart.Service
	orders   *order.Service

	events events.Publisher
	status *cache.StatusCache
}

// NewHandler creates the HTTP handler set. The status cache may be nil;
// the publisher must not be (use events.Noop when Kafka is off).
func NewHandler(
	products *product.Service,
	carts *cart.Service,
	orders *order.Service,
	pub events.Publisher,
	status *cache.StatusCache,
) *Handler {
	if pub == nil {
		pub = events.Noop{}
	}
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		events:   pub,
		status:   status,
	}
}

// Routes mounts every endpoint under /api. Product search is public;
// everything else requires a bearer token.
func (h *Handler) Routes(verifier *auth.Verifier) chi.Router {
	r := chi.NewRouter()

	r.Get("/products/search", h.searchProducts)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(verifier))

		r.Post("/products", requireRole(identity.RoleSeller, h.createProduct))
		r.Get("/products", requireRole(identity.RoleSeller, h.listOwnProducts))
		r.Get("/products/{id}", h.getProduct)
		r.Put("/products/{id}", requireRole(identity.RoleSeller, h.updateProduct))
		r.Put("/products/{id}/status", requireRole(identity.RoleSeller, h.setProductActive))

		r.Get("/cart", requireRole(identity.RoleCustomer, h.listCart))
		r.Post("/cart", requireRole(identity.RoleCustomer, h.addToCart))
		r.Put("/cart", requireRole(identity.RoleCustomer, h.updateCart))
		r.Delete("/cart", requireRole(identity.RoleCustomer, h.removeFromCart))

		r.Post("/checkout", requireRole(identity.RoleCustomer, h.checkout))

		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getOrderStatus)
		r.Put("/orders/{id}/status", h.transitionOrder)
	})

	return r
}

func mustIdentity(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity")
	}
	return id, ok
}
