package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
)

// StockReader is the part of the catalog a cart needs to validate additions.
type StockReader interface {
	CurrentStock(ctx context.Context, name string) (int, error)
}

// Line is one product in the cart. UnitPrice is captured when the product is
// first added and is not affected by later catalog price changes.
type Line struct {
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the merged lines of the sale in progress, in insertion order.
// It is not safe for concurrent use.
type Cart struct {
	stock StockReader
	lines []Line
}

func New(stock StockReader) *Cart {
	return &Cart{stock: stock}
}

// Add puts quantity units of p into the cart, merging with an existing line
// for the same product. Stock is checked against the catalog's current value,
// not p.Stock. The cart is unchanged when an error is returned.
func (c *Cart) Add(ctx context.Context, p *catalog.Product, quantity int) (Line, error) {
	idx, requested, err := c.check(ctx, p, quantity)
	if err != nil {
		return Line{}, err
	}

	if idx >= 0 {
		c.lines[idx].Quantity = requested
		return c.lines[idx], nil
	}

	line := Line{ProductName: p.Name, Quantity: quantity, UnitPrice: p.Price}
	c.lines = append(c.lines, line)
	return line, nil
}

// CanAdd reports whether Add would succeed, without mutating the cart.
func (c *Cart) CanAdd(ctx context.Context, p *catalog.Product, quantity int) bool {
	_, _, err := c.check(ctx, p, quantity)
	return err == nil
}

func (c *Cart) check(ctx context.Context, p *catalog.Product, quantity int) (int, int, error) {
	if quantity <= 0 {
		return -1, 0, ErrInvalidQuantity
	}
	if p == nil || p.Name == "" {
		return -1, 0, ErrInvalidProduct
	}

	available, err := c.stock.CurrentStock(ctx, p.Name)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return -1, 0, ErrInvalidProduct
		}
		return -1, 0, fmt.Errorf("read stock for %q: %w", p.Name, err)
	}

	idx := c.indexOf(p.Name)
	requested := quantity
	if idx >= 0 {
		requested += c.lines[idx].Quantity
	}
	if requested > available {
		return -1, 0, &InsufficientStockError{Product: p.Name, Available: available, Requested: requested}
	}
	return idx, requested, nil
}

// Remove drops the line for name. Removing an absent product is a no-op.
func (c *Cart) Remove(name string) {
	c.lines = slices.DeleteFunc(c.lines, func(l Line) bool { return l.ProductName == name })
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Subtotal() decimal.Decimal {
	return Subtotal(c.lines)
}

// Tax is Subtotal() * rate; rate is a non-negative fraction (0.15 for 15%).
func (c *Cart) Tax(rate decimal.Decimal) decimal.Decimal {
	return Tax(c.Subtotal(), rate)
}

func (c *Cart) Total(rate decimal.Decimal) decimal.Decimal {
	subtotal := c.Subtotal()
	return subtotal.Add(Tax(subtotal, rate))
}

// Subtotal sums line totals; zero for no lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate)
}

func (c *Cart) indexOf(name string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.ProductName == name })
}
