package httpapi

import (
	"net/http"
	"strconv"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var (
		products []catalog.Product
		err      error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		products, err = h.catalog.Search(r.Context(), q)
	} else {
		products, err = h.catalog.List(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.FindByName(r.Context(), pathParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) GetProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.FindByBarcode(r.Context(), pathParam(r, "barcode"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	created, err := h.catalog.Create(r.Context(), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.catalog.Update(r.Context(), pathParam(r, "name"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), pathParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	threshold := h.threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.writeError(w, r, badRequest("threshold must be a non-negative integer"))
			return
		}
		threshold = n
	}
	low, err := h.catalog.LowStock(r.Context(), threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if low == nil {
		low = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threshold": threshold, "products": low})
}

func (h *Handler) StockValueReport(w http.ResponseWriter, r *http.Request) {
	value, err := h.catalog.TotalStockValue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totalStockValue": value.StringFixed(2)})
}
