package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

type cartLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartItemResponse struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name"`
	Image       string          `json:"image,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type cartResponse struct {
	Items []cartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

func toCartResponse(items []cart.Item) cartResponse {
	out := cartResponse{Items: make([]cartItemResponse, len(items)), Total: decimal.Zero}
	for i, it := range items {
		line := it.Product.Price.Mul(decimal.NewFromInt(int64(it.Entry.Quantity)))
		out.Items[i] = cartItemResponse{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Image:     it.Product.Image,
			Price:     it.Product.Price,
			Stock:     it.Product.Stock,
			Quantity:  it.Entry.Quantity,
			LineTotal: line,
		}
		out.Total = out.Total.Add(line)
	}
	return out
}

func (h *Handler) listCart(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	items, err := h.carts.List(r.Context(), id.Subject)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req cartLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.carts.Add(r.Context(), id.Subject, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}

	items, err := h.carts.List(r.Context(), id.Subject)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartResponse(items))
}

func (h *Handler) updateCart(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	var req cartLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.carts.Update(r.Context(), id.Subject, req.ProductID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}

	items, err := h.carts.List(r.Context(), id.Subject)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(items))
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := mustIdentity(w, r)
	if !ok {
		return
	}
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		writeError(w, http.StatusBadRequest, "productId query parameter required")
		return
	}

	if err := h.carts.Remove(r.Context(), id.Subject, productID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
