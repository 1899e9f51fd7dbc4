package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/terminal"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Product   string `json:"product,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

type errorKind struct {
	target error
	status int
	code   string
}

// errorKinds maps domain errors to HTTP statuses; the first match wins.
var errorKinds = []errorKind{
	{cart.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{checkout.ErrStockConflict, http.StatusConflict, "stock_conflict"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{cart.ErrInvalidProduct, http.StatusUnprocessableEntity, "invalid_product"},
	{checkout.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	{checkout.ErrInvalidTaxRate, http.StatusUnprocessableEntity, "invalid_tax_rate"},
	{receipt.ErrEmptyTransaction, http.StatusUnprocessableEntity, "empty_transaction"},
	{terminal.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{terminal.ErrSessionCommitted, http.StatusConflict, "session_committed"},
	{catalog.ErrNotFound, http.StatusNotFound, "product_not_found"},
	{catalog.ErrDuplicateName, http.StatusConflict, "duplicate_name"},
	{catalog.ErrDuplicateBarcode, http.StatusConflict, "duplicate_barcode"},
	{catalog.ErrInvalidProduct, http.StatusBadRequest, "invalid_product"},
	{sales.ErrNotFound, http.StatusNotFound, "sale_not_found"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, errorBody{Error: "bad_request", Message: reqErr.msg}
	}

	for _, k := range errorKinds {
		if !errors.Is(err, k.target) {
			continue
		}
		body := errorBody{Error: k.code, Message: err.Error()}
		var stockErr *cart.InsufficientStockError
		if errors.As(err, &stockErr) {
			body.Product = stockErr.Product
			body.Available = &stockErr.Available
			body.Requested = &stockErr.Requested
		}
		var conflict *checkout.StockConflictError
		if errors.As(err, &conflict) {
			body.Product = conflict.Product
		}
		return k.status, body
	}
	return http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"}
}
