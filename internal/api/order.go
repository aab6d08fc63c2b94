package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/identity"
	"github.com/xenking/storefront-api/internal/domain/order"
)

type checkoutRequest struct {
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

type orderResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductImage    string          `json:"productImage,omitempty"`
	Customer        string          `json:"customer"`
	Seller          string          `json:"seller"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Total           decimal.Decimal `json:"total"`
	Status          order.Status    `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
	StatusChangedAt time.Time       `json:"statusChangedAt"`
}

func toOrderResponse(o order.Order) orderResponse {
	return orderResponse{
		ID:              o.ID,
		ProductID:       o.ProductID,
		ProductName:     o.ProductName,
		ProductImage:    o.ProductImage,
		Customer:        o.Customer,
		Seller:          o.Seller,
		Quantity:        o.Quantity,
		UnitPrice:       o.UnitPrice,
		Total:           o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity))),
		Status:          o.Status,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		CreatedAt:       o.CreatedAt,
		StatusChangedAt: o.StatusChangedAt,
	}
}

func toOrderResponses(os []order.Order) []orderResponse {
	out := make([]orderResponse, len(os))
	for i, o := range os {
		out[i] = toOrderResponse(o)
	}
	return out
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		Customer:        id.Subject,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	for _, o := range created {
		h.events.OrderCreated(o)
		h.status.Set(r.Context(), o.ID, o.Status)
	}
	writeJSON(w, http.StatusCreated, toOrderResponses(created))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}

	var (
		out []order.Order
		err error
	)
	switch id.Role {
	case identity.RoleSeller:
		out, err = h.orders.ListForSeller(r.Context(), id.Subject, order.Status(r.URL.Query().Get("status")))
	default:
		out, err = h.orders.ListForCustomer(r.Context(), id.Subject)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(out))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	o, err := h.orders.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

type statusResponse struct {
	ID     string       `json:"id"`
	Status order.Status `json:"status"`
}

// getOrderStatus serves the polling endpoint the storefront hits while an
// order is in flight. A cache hit answers without touching the ledger; a
// miss reads the order, which also enforces visibility, and primes the
// cache for the next poll.
func (h *Handler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	if cached, hit := h.status.Get(r.Context(), orderID); hit {
		writeJSON(w, http.StatusOK, statusResponse{ID: orderID, Status: cached})
		return
	}

	o, err := h.orders.Get(r.Context(), id, orderID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.status.Set(r.Context(), orderID, o.Status)
	writeJSON(w, http.StatusOK, statusResponse{ID: orderID, Status: o.Status})
}

func (h *Handler) transitionOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, from, err := h.orders.Transition(r.Context(), id, chi.URLParam(r, "id"), order.Status(req.Status))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.events.OrderStatusChanged(*updated, from, id.Subject)
	h.status.Set(r.Context(), updated.ID, updated.Status)
	writeJSON(w, http.StatusOK, toOrderResponse(*updated))
}
