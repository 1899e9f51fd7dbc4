package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineSnapshot is a cart line frozen at commit time.
type LineSnapshot struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Transaction is the immutable record of a committed sale.
type Transaction struct {
	ID        string          `json:"transactionId"`
	Timestamp time.Time       `json:"timestamp"`
	Terminal  string          `json:"terminal,omitempty"`
	Operator  string          `json:"operator,omitempty"`
	Lines     []LineSnapshot  `json:"lines"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
}

func (t Transaction) ItemCount() int {
	n := 0
	for _, l := range t.Lines {
		n += l.Quantity
	}
	return n
}
