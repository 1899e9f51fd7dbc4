package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/terminal"
)

type Deps struct {
	Catalog           catalog.Store
	Terminal          *terminal.Service
	Sales             sales.Store
	Receipts          *receipt.Builder
	Auth              *auth.Authenticator
	Metrics           *metrics.Metrics
	Logger            *zap.Logger
	LowStockThreshold int
}

type Handler struct {
	catalog   catalog.Store
	terminal  *terminal.Service
	sales     sales.Store
	receipts  *receipt.Builder
	auth      *auth.Authenticator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	threshold int
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog:   d.Catalog,
		terminal:  d.Terminal,
		sales:     d.Sales,
		receipts:  d.Receipts,
		auth:      d.Auth,
		metrics:   d.Metrics,
		logger:    logger,
		threshold: d.LowStockThreshold,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request carries one (an escaped "/" in a product name), and parameters
// taken from it are still escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
