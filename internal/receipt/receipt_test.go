package receipt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleTransaction() checkout.Transaction {
	return checkout.Transaction{
		ID:        "tx-0001",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Terminal:  "T1",
		Operator:  "cashier",
		Lines: []checkout.LineSnapshot{
			{ProductName: "Widget", Quantity: 3, UnitPrice: dec("10"), LineTotal: dec("30")},
			{ProductName: "An extremely long product name", Quantity: 1, UnitPrice: dec("2.5"), LineTotal: dec("2.5")},
		},
		TaxRate:  dec("0.10"),
		Subtotal: dec("32.5"),
		Tax:      dec("3.25"),
		Total:    dec("35.75"),
	}
}

const wantReceipt = `════════════════════════════════════════════
                Corner Shop
               Sales Receipt
════════════════════════════════════════════
Date: 2024-05-01 12:00:00
Transaction: tx-0001
Terminal: T1
Cashier: cashier
────────────────────────────────────────────
Product               Qty    Price     Total
────────────────────────────────────────────
Widget                  3    10.00     30.00
An extremely long...    1     2.50      2.50
────────────────────────────────────────────
Subtotal:                              32.50
Tax (10%):                              3.25
────────────────────────────────────────────
Total:                                 35.75
════════════════════════════════════════════
                 Thank You!
════════════════════════════════════════════
`

func TestBuild_Golden(t *testing.T) {
	r, err := NewBuilder("Corner Shop").Build(sampleTransaction())
	require.NoError(t, err)
	assert.Equal(t, "tx-0001", r.TransactionID)
	assert.Equal(t, wantReceipt, r.Text)
}

func TestBuild_IsDeterministic(t *testing.T) {
	b := NewBuilder("Corner Shop")
	first, err := b.Build(sampleTransaction())
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := b.Build(sampleTransaction())
		require.NoError(t, err)
		require.Equal(t, first.Text, again.Text)
	}
}

func TestBuild_EmptyTransaction(t *testing.T) {
	_, err := NewBuilder("").Build(checkout.Transaction{ID: "tx"})
	assert.ErrorIs(t, err, ErrEmptyTransaction)
}

func TestBuild_OptionalHeaderFieldsAndDefaultName(t *testing.T) {
	tx := sampleTransaction()
	tx.Terminal = ""
	tx.Operator = ""
	tx.Timestamp = time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))

	r, err := NewBuilder(" ").Build(tx)
	require.NoError(t, err)
	assert.Contains(t, r.Text, defaultName)
	assert.Contains(t, r.Text, "Date: 2024-05-01 12:00:00", "timestamps render in UTC")
	assert.NotContains(t, r.Text, "Terminal:")
	assert.NotContains(t, r.Text, "Cashier:")
}

func TestBuild_LineOrderFollowsSnapshot(t *testing.T) {
	tx := sampleTransaction()
	tx.Lines[0], tx.Lines[1] = tx.Lines[1], tx.Lines[0]

	r, err := NewBuilder("x").Build(tx)
	require.NoError(t, err)
	assert.Less(t, strings.Index(r.Text, "An extremely long..."), strings.Index(r.Text, "Widget "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "exactly twenty chars", truncate("exactly twenty chars"))
	assert.Equal(t, "twenty one chars ...", truncate("twenty one chars !!!!"))
	assert.Equal(t, "ÄÖÜäöüÄÖÜäöüÄÖÜäö...", truncate("ÄÖÜäöüÄÖÜäöüÄÖÜäöüÄÖÜ"))
}

func TestBuild_WidensColumnsForLargeValues(t *testing.T) {
	tx := sampleTransaction()
	tx.Lines = []checkout.LineSnapshot{
		{ProductName: "Bulk Pallet", Quantity: 12345, UnitPrice: dec("123456.78"), LineTotal: dec("1524073949.10")},
	}
	tx.Subtotal = dec("1524073949.10")
	tx.Tax = dec("152407394.91")
	tx.Total = dec("1676481344.01")

	r, err := NewBuilder("Corner Shop").Build(tx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(r.Text, "\n"), "\n")
	rule := utf8.RuneCountInString(lines[0])
	assert.Equal(t, 52, rule)
	for _, l := range lines {
		assert.LessOrEqual(t, utf8.RuneCountInString(l), rule, l)
	}

	want := "Bulk Pallet          12345  123456.78  1524073949.10"
	assert.Contains(t, lines, want)
	assert.Contains(t, lines, "Total:"+strings.Repeat(" ", rule-6-13)+"1676481344.01")
}
