package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

const namespace = "pos"

// Metrics holds the POS collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	checkouts    *prometheus.CounterVec
	itemsSold    prometheus.Counter
	revenue      prometheus.Counter
	openSessions prometheus.Gauge
	lowStock     prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		itemsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_sold_total",
			Help:      "Units sold across committed transactions.",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Sum of committed transaction totals including tax.",
		}),
		openSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Terminal sessions currently tracked.",
		}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_stock_products",
			Help:      "Products below the low-stock threshold at the last scan.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
	}

	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkouts, m.itemsSold, m.revenue, m.openSessions, m.lowStock,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SaleCompleted(tx checkout.Transaction) {
	m.checkouts.WithLabelValues("committed").Inc()
	m.itemsSold.Add(float64(tx.ItemCount()))
	m.revenue.Add(tx.Total.InexactFloat64())
}

func (m *Metrics) CheckoutFailed(reason string) {
	m.checkouts.WithLabelValues(reason).Inc()
}

func (m *Metrics) SessionsOpen(n int) {
	m.openSessions.Set(float64(n))
}

func (m *Metrics) LowStock(n int) {
	m.lowStock.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, path string, status int, took time.Duration) {
	if path == "" {
		path = "undefined"
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(path).Observe(took.Seconds())
}
