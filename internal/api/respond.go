package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// ProductID identifies the offending line for stock failures.
	ProductID string `json:"productId,omitempty"`
	// Available is the live stock for stock failures.
	Available *int `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeDomainError maps domain errors onto HTTP statuses:
// validation 400, ownership/role 403, missing 404, lifecycle conflicts
// 409, stock failures 422. Unknown errors are logged and become opaque
// 500s.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrNameRequired),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, product.ErrInvalidStock),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyShippingAddress),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrUnknownStatus):
		writeError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, product.ErrForbidden),
		errors.Is(err, order.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())

	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())

	default:
		var oos *cart.OutOfStockError
		if errors.As(err, &oos) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:      http.StatusUnprocessableEntity,
				Message:   oos.Error(),
				ProductID: oos.ProductID,
				Available: &oos.Available,
			})
			return
		}
		var ins *order.InsufficientStockError
		if errors.As(err, &ins) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:      http.StatusUnprocessableEntity,
				Message:   ins.Error(),
				ProductID: ins.ProductID,
				Available: &ins.Available,
			})
			return
		}
		var inactive *order.ProductInactiveError
		if errors.As(err, &inactive) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Code:      http.StatusUnprocessableEntity,
				Message:   inactive.Error(),
				ProductID: inactive.ProductID,
			})
			return
		}

		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}
