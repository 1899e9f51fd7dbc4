package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/terminal"
)

type addLineRequest struct {
	Product  string `json:"product"`
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.terminal.Open(operator(r).Username))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req addLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	switch {
	case strings.TrimSpace(req.Barcode) != "":
		_, err = h.terminal.AddByBarcode(r.Context(), s.ID, req.Barcode, req.Quantity)
	case strings.TrimSpace(req.Product) != "":
		_, err = h.terminal.AddByName(r.Context(), s.ID, req.Product, req.Quantity)
	default:
		err = badRequest("product or barcode is required")
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, s.ID, http.StatusOK)
}

func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.terminal.Remove(s.ID, pathParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, s.ID, http.StatusOK)
}

func (h *Handler) ClearLines(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.terminal.Clear(s.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSession(w, r, s.ID, http.StatusOK)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, err := h.ownedSession(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.terminal.Checkout(r.Context(), s.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ownedSession loads the session named in the URL. Cashiers only see their
// own sessions; admins may act on any.
func (h *Handler) ownedSession(r *http.Request) (terminal.Summary, error) {
	s, err := h.terminal.Summary(chi.URLParam(r, "id"))
	if err != nil {
		return terminal.Summary{}, err
	}
	op := operator(r)
	if !op.Role.CanAuditSales() && op.Username != s.Operator {
		return terminal.Summary{}, auth.ErrForbidden
	}
	return s, nil
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, id string, status int) {
	s, err := h.terminal.Summary(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, s)
}
