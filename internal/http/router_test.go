package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/receipt"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/sales"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/terminal"
)

type testServer struct {
	t       *testing.T
	router  http.Handler
	catalog *catalog.MemoryCatalog
	tokens  map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cat, err := catalog.NewMemoryCatalog(
		catalog.Product{Name: "Gadget", Barcode: "222", Price: decimal.RequireFromString("2.50"), Stock: 10},
		catalog.Product{Name: "Product 1", Barcode: "1234567890123", Price: decimal.RequireFromString("10.50"), Stock: 3},
	)
	require.NoError(t, err)

	users := auth.NewMemoryStore(bcrypt.MinCost)
	require.NoError(t, users.AddUser("admin", "", auth.RoleAdmin, "admin123"))
	require.NoError(t, users.AddUser("cashier", "", auth.RoleCashier, "cashier123"))
	require.NoError(t, users.AddUser("ahmed", "", auth.RoleCashier, "ahmed123"))

	m := metrics.New()
	ledger := sales.NewMemoryStore()
	builder := receipt.NewBuilder("Test Store")
	svc, err := terminal.NewService(cat, checkout.NewEngine(cat, logger), builder,
		terminal.Config{Terminal: "T1", TaxRate: decimal.RequireFromString("0.10")}, logger,
		terminal.WithLedger(ledger), terminal.WithRecorder(m))
	require.NoError(t, err)

	h := NewHandler(Deps{
		Catalog:           cat,
		Terminal:          svc,
		Sales:             ledger,
		Receipts:          builder,
		Auth:              auth.NewAuthenticator(users, "secret", 0, logger),
		Metrics:           m,
		Logger:            logger,
		LowStockThreshold: 5,
	})

	ts := &testServer{t: t, router: NewRouter(h), catalog: cat, tokens: map[string]string{}}
	for user, pass := range map[string]string{"admin": "admin123", "cashier": "cashier123", "ahmed": "ahmed123"} {
		rec := ts.do(http.MethodPost, "/api/auth/login", "", loginRequest{Username: user, Password: pass})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var tok auth.Token
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
		ts.tokens[user] = tok.Token
	}
	return ts
}

func (ts *testServer) do(method, path, user string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[user])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) openSession(user string) terminal.Summary {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/sessions", user, nil)
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[terminal.Summary](ts.t, rec)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestWidgetScenarioOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/products", "admin", map[string]any{"name": "Widget", "price": "10.00", "stock": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	sess := ts.openSession("cashier")
	assert.Equal(t, "cashier", sess.Operator)
	assert.Equal(t, "open", sess.State.String())

	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/lines", "cashier", addLineRequest{Product: "Widget", Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[terminal.Summary](t, rec)
	require.Len(t, view.Lines, 1)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("33")))

	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/lines", "cashier", addLineRequest{Product: "Widget", Quantity: 3})
	require.Equal(t, http.StatusConflict, rec.Code)
	errBody := decode[errorBody](t, rec)
	assert.Equal(t, "insufficient_stock", errBody.Error)
	assert.Equal(t, "Widget", errBody.Product)
	require.NotNil(t, errBody.Available)
	assert.Equal(t, 5, *errBody.Available)
	assert.Equal(t, 6, *errBody.Requested)

	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/checkout", "cashier", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[terminal.Result](t, rec)
	assert.True(t, res.Transaction.Subtotal.Equal(decimal.NewFromInt(30)))
	assert.True(t, res.Transaction.Tax.Equal(decimal.NewFromInt(3)))
	assert.True(t, res.Transaction.Total.Equal(decimal.NewFromInt(33)))
	assert.Contains(t, res.Receipt.Text, "Widget")

	rec = ts.do(http.MethodGet, "/api/products/Widget", "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[catalog.Product](t, rec).Stock)

	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/checkout", "cashier", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session_committed", decode[errorBody](t, rec).Error)

	rec = ts.do(http.MethodGet, "/api/sales/"+res.Transaction.ID+"/receipt", "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, res.Receipt.Text, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/sales/"+res.Transaction.ID, "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "T1", decode[checkout.Transaction](t, rec).Terminal)
}

func TestSessionErrors(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.openSession("cashier")
	lines := "/api/sessions/" + sess.ID + "/lines"

	tests := map[string]struct {
		method string
		path   string
		user   string
		body   any
		status int
		code   string
	}{
		"empty cart":         {http.MethodPost, "/api/sessions/" + sess.ID + "/checkout", "cashier", nil, http.StatusUnprocessableEntity, "empty_cart"},
		"zero quantity":      {http.MethodPost, lines, "cashier", addLineRequest{Product: "Gadget"}, http.StatusBadRequest, "invalid_quantity"},
		"unknown product":    {http.MethodPost, lines, "cashier", addLineRequest{Product: "Ghost", Quantity: 1}, http.StatusUnprocessableEntity, "invalid_product"},
		"missing product":    {http.MethodPost, lines, "cashier", addLineRequest{Quantity: 1}, http.StatusBadRequest, "bad_request"},
		"malformed body":     {http.MethodPost, lines, "cashier", "{", http.StatusBadRequest, "bad_request"},
		"unknown session":    {http.MethodGet, "/api/sessions/nope", "cashier", nil, http.StatusNotFound, "session_not_found"},
		"other cashier":      {http.MethodGet, "/api/sessions/" + sess.ID, "ahmed", nil, http.StatusForbidden, "forbidden"},
		"no token":           {http.MethodGet, "/api/sessions/" + sess.ID, "", nil, http.StatusUnauthorized, "unauthenticated"},
		"cashier as admin":   {http.MethodDelete, "/api/products/Gadget", "cashier", nil, http.StatusForbidden, "forbidden"},
		"cashier reports":    {http.MethodGet, "/api/reports/stock-value", "cashier", nil, http.StatusForbidden, "forbidden"},
		"cashier sales list": {http.MethodGet, "/api/sales", "cashier", nil, http.StatusForbidden, "forbidden"},
		"unknown sale":       {http.MethodGet, "/api/sales/nope", "cashier", nil, http.StatusNotFound, "sale_not_found"},
		"bad login":          {http.MethodPost, "/api/auth/login", "", loginRequest{Username: "admin", Password: "x"}, http.StatusUnauthorized, "invalid_credentials"},
		"duplicate product":  {http.MethodPost, "/api/products", "admin", map[string]any{"name": "Gadget", "price": "1", "stock": 1}, http.StatusConflict, "duplicate_name"},
		"negative stock":     {http.MethodPost, "/api/products", "admin", map[string]any{"name": "Bad", "price": "1", "stock": -1}, http.StatusBadRequest, "invalid_product"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.user, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Error)
		})
	}
}

func TestInvalidToken(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens["mallory"] = "forged"
	rec := ts.do(http.MethodGet, "/api/products", "mallory", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_token", decode[errorBody](t, rec).Error)
}

func TestBarcodeScanAndLineEdits(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.openSession("cashier")
	lines := "/api/sessions/" + sess.ID + "/lines"

	rec := ts.do(http.MethodPost, lines, "cashier", addLineRequest{Barcode: "1234567890123", Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPost, lines, "cashier", addLineRequest{Product: "Gadget", Quantity: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodDelete, lines+"/"+url.PathEscape("Product 1"), "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[terminal.Summary](t, rec)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Gadget", view.Lines[0].ProductName)

	rec = ts.do(http.MethodDelete, lines, "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[terminal.Summary](t, rec).Lines)

	rec = ts.do(http.MethodGet, "/api/sessions/"+sess.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "admins may inspect any session")
}

func TestProductQueries(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/products?q=gad", "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]catalog.Product](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "Gadget", found[0].Name)

	rec = ts.do(http.MethodGet, "/api/products?q=zzz", "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	rec = ts.do(http.MethodGet, "/api/products/barcode/222", "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gadget", decode[catalog.Product](t, rec).Name)

	rec = ts.do(http.MethodGet, "/api/products/"+url.PathEscape("Product 1"), "cashier", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/products/barcode/000", "cashier", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/api/products/Gadget", "admin", map[string]any{"name": "Gadget Pro", "barcode": "222", "price": "3.00", "stock": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Gadget Pro", decode[catalog.Product](t, rec).Name)

	rec = ts.do(http.MethodGet, "/api/reports/low-stock", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	low := decode[struct {
		Threshold int               `json:"threshold"`
		Products  []catalog.Product `json:"products"`
	}](t, rec)
	assert.Equal(t, 5, low.Threshold)
	require.Len(t, low.Products, 2)
	assert.Equal(t, "Product 1", low.Products[0].Name)

	rec = ts.do(http.MethodGet, "/api/reports/low-stock?threshold=-1", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodGet, "/api/reports/stock-value", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "43.50", decode[map[string]string](t, rec)["totalStockValue"])

	rec = ts.do(http.MethodDelete, "/api/products/"+url.PathEscape("Gadget Pro"), "admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/products/"+url.PathEscape("Gadget Pro"), "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentSalesAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.openSession("cashier")
	rec := ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/lines", "cashier", addLineRequest{Product: "Gadget", Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/checkout", "cashier", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodGet, "/api/sales?limit=5", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]checkout.Transaction](t, rec), 1)

	rec = ts.do(http.MethodGet, "/api/sales", "cashier", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pos_checkouts_total{outcome="committed"} 1`)
	assert.Contains(t, body, "pos_items_sold_total 2")
	assert.Contains(t, body, `path="/api/sessions/{id}/checkout"`)
}

func TestSaleAccessIsOwnerScoped(t *testing.T) {
	ts := newTestServer(t)
	sess := ts.openSession("cashier")
	rec := ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/lines", "cashier", addLineRequest{Product: "Gadget", Quantity: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodPost, "/api/sessions/"+sess.ID+"/checkout", "cashier", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[terminal.Result](t, rec).Transaction.ID

	for _, path := range []string{"/api/sales/" + id, "/api/sales/" + id + "/receipt"} {
		rec = ts.do(http.MethodGet, path, "ahmed", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, "forbidden", decode[errorBody](t, rec).Error)

		rec = ts.do(http.MethodGet, path, "cashier", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)

		rec = ts.do(http.MethodGet, path, "admin", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestProductNamesAreDecodedOnce(t *testing.T) {
	ts := newTestServer(t)

	for _, name := range []string{"Promo %41", "Tea/Coffee", "Product 1"} {
		rec := ts.do(http.MethodPost, "/api/products", "admin", map[string]any{"name": name, "price": "1.00", "stock": 1})
		if name == "Product 1" {
			require.Equal(t, http.StatusConflict, rec.Code)
		} else {
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		}

		rec = ts.do(http.MethodGet, "/api/products/"+url.PathEscape(name), "cashier", nil)
		require.Equal(t, http.StatusOK, rec.Code, name)
		assert.Equal(t, name, decode[catalog.Product](t, rec).Name)
	}

	rec := ts.do(http.MethodGet, "/api/products/"+url.PathEscape("Promo A"), "cashier", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
