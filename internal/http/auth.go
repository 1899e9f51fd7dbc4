package httpapi

import (
	"net/http"
	"strings"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tok, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

// RequireOperator authenticates the bearer token and puts the operator on
// the request context.
func (h *Handler) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			h.writeError(w, r, auth.ErrUnauthenticated)
			return
		}
		op, err := h.auth.Verify(strings.TrimSpace(raw))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithOperator(r.Context(), op)))
	})
}

// RequirePermission rejects operators whose role fails allowed.
func (h *Handler) RequirePermission(allowed func(auth.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := auth.OperatorFrom(r.Context())
			if !ok {
				h.writeError(w, r, auth.ErrUnauthenticated)
				return
			}
			if !allowed(op.Role) {
				h.writeError(w, r, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func operator(r *http.Request) auth.Operator {
	op, _ := auth.OperatorFrom(r.Context())
	return op
}
