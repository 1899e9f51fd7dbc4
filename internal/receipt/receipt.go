package receipt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

var ErrEmptyTransaction = errors.New("cannot build a receipt for a transaction without lines")

const (
	width       = 44
	nameWidth   = 20
	qtyWidth    = 4
	priceWidth  = 7
	amountWidth = 8
	ellipsis    = "..."
	timeLayout  = "2006-01-02 15:04:05"
	defaultName = "POS Terminal"
)

type Receipt struct {
	TransactionID string `json:"transactionId"`
	Text          string `json:"text"`
}

// Builder renders transactions as fixed-width text receipts. Output depends
// only on the transaction, so the same input always renders the same bytes.
type Builder struct {
	storeName string
}

func NewBuilder(storeName string) *Builder {
	if strings.TrimSpace(storeName) == "" {
		storeName = defaultName
	}
	return &Builder{storeName: storeName}
}

func (b *Builder) Build(tx checkout.Transaction) (Receipt, error) {
	if len(tx.Lines) == 0 {
		return Receipt{}, ErrEmptyTransaction
	}

	taxLabel := fmt.Sprintf("Tax (%s%%):", tx.TaxRate.Shift(2).String())
	lay := newLayout(tx, taxLabel)

	var sb strings.Builder
	heavy := strings.Repeat("═", lay.width)
	light := strings.Repeat("─", lay.width)

	line := func(s string) {
		sb.WriteString(s)
		sb.WriteByte('\n')
	}

	line(heavy)
	line(lay.center(b.storeName))
	line(lay.center("Sales Receipt"))
	line(heavy)
	line("Date: " + tx.Timestamp.UTC().Format(timeLayout))
	line("Transaction: " + tx.ID)
	if tx.Terminal != "" {
		line("Terminal: " + tx.Terminal)
	}
	if tx.Operator != "" {
		line("Cashier: " + tx.Operator)
	}
	line(light)
	line(lay.row("Product", "Qty", "Price", "Total"))
	line(light)
	for _, l := range tx.Lines {
		line(lay.row(truncate(l.ProductName), strconv.Itoa(l.Quantity), money(l.UnitPrice), money(l.LineTotal)))
	}
	line(light)
	line(lay.summary("Subtotal:", money(tx.Subtotal)))
	line(lay.summary(taxLabel, money(tx.Tax)))
	line(light)
	line(lay.summary("Total:", money(tx.Total)))
	line(heavy)
	line(lay.center("Thank You!"))
	line(heavy)

	return Receipt{TransactionID: tx.ID, Text: sb.String()}, nil
}

// layout holds the column widths for one receipt. Numeric columns grow past
// their defaults when a value does not fit, and the rules grow with them.
type layout struct {
	width  int
	qty    int
	price  int
	amount int
}

func newLayout(tx checkout.Transaction, taxLabel string) layout {
	lay := layout{width: width, qty: qtyWidth, price: priceWidth, amount: amountWidth}
	for _, l := range tx.Lines {
		lay.qty = max(lay.qty, len(strconv.Itoa(l.Quantity)))
		lay.price = max(lay.price, len(money(l.UnitPrice)))
		lay.amount = max(lay.amount, len(money(l.LineTotal)))
	}
	lay.width = max(lay.width, nameWidth+1+lay.qty+2+lay.price+2+lay.amount)

	totals := [][2]string{
		{"Subtotal:", money(tx.Subtotal)},
		{taxLabel, money(tx.Tax)},
		{"Total:", money(tx.Total)},
	}
	for _, t := range totals {
		lay.width = max(lay.width, utf8.RuneCountInString(t[0])+1+len(t[1]))
	}
	return lay
}

func (l layout) row(name, qty, price, amount string) string {
	return fmt.Sprintf("%-*s %*s  %*s  %*s", nameWidth, name, l.qty, qty, l.price, price, l.amount, amount)
}

func (l layout) center(s string) string {
	pad := (l.width - utf8.RuneCountInString(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}

func (l layout) summary(label, amount string) string {
	gap := l.width - utf8.RuneCountInString(label) - len(amount)
	return label + strings.Repeat(" ", gap) + amount
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func truncate(name string) string {
	if utf8.RuneCountInString(name) <= nameWidth {
		return name
	}
	runes := []rune(name)
	return string(runes[:nameWidth-len(ellipsis)]) + ellipsis
}
