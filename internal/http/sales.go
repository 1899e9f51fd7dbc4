package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

func (h *Handler) RecentSales(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			h.writeError(w, r, badRequest("limit must be between 1 and 500"))
			return
		}
		limit = n
	}
	recent, err := h.sales.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recent == nil {
		recent = []checkout.Transaction{}
	}
	writeJSON(w, http.StatusOK, recent)
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ownedSale(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// SaleReceipt re-renders the receipt of a recorded sale.
func (h *Handler) SaleReceipt(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ownedSale(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rc, err := h.receipts.Build(tx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(rc.Text))
}

// ownedSale loads the sale named in the URL. Cashiers only see the sales
// they rang up.
func (h *Handler) ownedSale(r *http.Request) (checkout.Transaction, error) {
	tx, err := h.sales.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return checkout.Transaction{}, err
	}
	op := operator(r)
	if !op.Role.CanAuditSales() && op.Username != tx.Operator {
		return checkout.Transaction{}, auth.ErrForbidden
	}
	return tx, nil
}
