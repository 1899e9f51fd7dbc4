package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

func TestSaleAndFailureCounters(t *testing.T) {
	m := New()
	m.SaleCompleted(checkout.Transaction{
		Lines: []checkout.LineSnapshot{{ProductName: "Widget", Quantity: 3}, {ProductName: "Gadget", Quantity: 2}},
		Total: decimal.RequireFromString("35.75"),
	})
	m.CheckoutFailed("insufficient_stock")
	m.CheckoutFailed("insufficient_stock")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("committed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.itemsSold))
	assert.InDelta(t, 35.75, testutil.ToFloat64(m.revenue), 1e-9)
}

func TestGauges(t *testing.T) {
	m := New()
	m.SessionsOpen(4)
	m.LowStock(2)
	m.SessionsOpen(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.openSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.lowStock))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.CheckoutFailed("empty_cart")
	m.ObserveRequest(http.MethodGet, "/api/products", http.StatusOK, 15*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",path="/api/products",status="200"} 1`)
	assert.Contains(t, string(body), `path="undefined"`)
	assert.Contains(t, string(body), "pos_checkouts_total")
}
