package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. Name is the business key; Barcode is optional
// but unique when present.
type Product struct {
	Name    string          `json:"name"`
	Barcode string          `json:"barcode,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
}

// Validate checks the invariants every stored product must satisfy.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if !p.Price.Equal(p.Price.Round(2)) {
		return fmt.Errorf("%w: price has more than two decimal places", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

// Line is a quantity of one product, used for batch deductions.
type Line struct {
	ProductName string
	Quantity    int
}

type DepletedLine struct {
	ProductName string
	Requested   int
	Available   int
}

type DeductResult struct {
	Deducted []Line
	Depleted []DepletedLine
}

// ToCents converts a money amount to integer cents, rounding half away from zero.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
