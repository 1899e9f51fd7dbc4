package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/health", h.Health)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Post("/api/auth/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireOperator)

		r.Route("/api/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/barcode/{barcode}", h.GetProductByBarcode)
			r.Get("/{name}", h.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(h.RequirePermission(auth.Role.CanManageCatalog))
				r.Post("/", h.CreateProduct)
				r.Put("/{name}", h.UpdateProduct)
				r.Delete("/{name}", h.DeleteProduct)
			})
		})

		r.Route("/api/reports", func(r chi.Router) {
			r.Use(h.RequirePermission(auth.Role.CanManageCatalog))
			r.Get("/low-stock", h.LowStockReport)
			r.Get("/stock-value", h.StockValueReport)
		})

		r.Route("/api/sessions", func(r chi.Router) {
			r.Use(h.RequirePermission(auth.Role.CanSell))
			r.Post("/", h.OpenSession)
			r.Get("/{id}", h.GetSession)
			r.Post("/{id}/lines", h.AddLine)
			r.Delete("/{id}/lines", h.ClearLines)
			r.Delete("/{id}/lines/{name}", h.RemoveLine)
			r.Post("/{id}/checkout", h.Checkout)
		})

		r.Route("/api/sales", func(r chi.Router) {
			r.With(h.RequirePermission(auth.Role.CanAuditSales)).Get("/", h.RecentSales)
			r.Get("/{id}", h.GetSale)
			r.Get("/{id}/receipt", h.SaleReceipt)
		})
	})

	return r
}
