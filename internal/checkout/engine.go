package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
)

// Engine validates a cart against the catalog and commits the stock
// deductions for all of its lines, or none of them.
type Engine struct {
	catalog catalog.Catalog
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(c catalog.Catalog, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		catalog: c,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) CanCheckout(c *cart.Cart) bool {
	return c != nil && !c.IsEmpty()
}

// Checkout commits the cart and returns the resulting Transaction. The cart
// itself is not modified; clearing it is up to the caller.
func (e *Engine) Checkout(ctx context.Context, c *cart.Cart, taxRate decimal.Decimal) (Transaction, error) {
	if !e.CanCheckout(c) {
		return Transaction{}, ErrEmptyCart
	}
	if taxRate.IsNegative() {
		return Transaction{}, ErrInvalidTaxRate
	}

	lines := c.Lines()
	if err := e.validate(ctx, lines); err != nil {
		return Transaction{}, err
	}
	if err := e.deduct(ctx, lines); err != nil {
		if errors.Is(err, ErrStockConflict) {
			e.logger.Warn("checkout lost a stock race", zap.Error(err))
		}
		return Transaction{}, err
	}

	tx := Transaction{
		ID:        e.newID(),
		Timestamp: e.now(),
		Lines:     make([]LineSnapshot, 0, len(lines)),
		TaxRate:   taxRate,
	}
	for _, l := range lines {
		tx.Lines = append(tx.Lines, LineSnapshot{
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
		})
	}
	tx.Subtotal = cart.Subtotal(lines)
	tx.Tax = cart.Tax(tx.Subtotal, taxRate)
	tx.Total = tx.Subtotal.Add(tx.Tax)

	e.logger.Info("sale committed",
		zap.String("transaction_id", tx.ID),
		zap.Int("lines", len(tx.Lines)),
		zap.Stringer("total", tx.Total),
	)
	return tx, nil
}

func (e *Engine) validate(ctx context.Context, lines []cart.Line) error {
	for _, l := range lines {
		available, err := e.catalog.CurrentStock(ctx, l.ProductName)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("read stock for %q: %w", l.ProductName, err)
			}
			available = 0
		}
		if l.Quantity > available {
			return &cart.InsufficientStockError{Product: l.ProductName, Available: available, Requested: l.Quantity}
		}
	}
	return nil
}

func (e *Engine) deduct(ctx context.Context, lines []cart.Line) error {
	if batch, ok := e.catalog.(catalog.BatchDeducter); ok {
		return e.deductBatch(ctx, batch, lines)
	}

	applied := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		ok, err := e.catalog.TryDeduct(ctx, l.ProductName, l.Quantity)
		if err != nil {
			return e.rollback(ctx, applied, fmt.Errorf("deduct stock for %q: %w", l.ProductName, err))
		}
		if !ok {
			return e.rollback(ctx, applied, &StockConflictError{Product: l.ProductName})
		}
		applied = append(applied, l)
	}
	return nil
}

func (e *Engine) deductBatch(ctx context.Context, batch catalog.BatchDeducter, lines []cart.Line) error {
	req := make([]catalog.Line, 0, len(lines))
	for _, l := range lines {
		req = append(req, catalog.Line{ProductName: l.ProductName, Quantity: l.Quantity})
	}

	res, err := batch.DeductAll(ctx, req)
	if err != nil {
		var lockErr *catalog.LockConflictError
		if errors.As(err, &lockErr) {
			e.logger.Info("batch deduction lost a lock race", zap.String("product", lockErr.Product), zap.Error(err))
			return &StockConflictError{Product: lockErr.Product}
		}
		return fmt.Errorf("deduct stock: %w", err)
	}
	if len(res.Depleted) > 0 {
		return &StockConflictError{Product: res.Depleted[0].ProductName}
	}
	return nil
}

// rollback restores applied deductions in reverse order. It runs detached
// from ctx cancellation so a dropped request cannot leave stock deducted.
func (e *Engine) rollback(ctx context.Context, applied []cart.Line, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(applied) - 1; i >= 0; i-- {
		l := applied[i]
		if err := e.catalog.Restore(ctx, l.ProductName, l.Quantity); err != nil {
			e.logger.Error("restore stock failed",
				zap.String("product", l.ProductName),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("restore stock for %q: %w", l.ProductName, err))
		}
	}
	if len(errs) == 1 {
		return cause
	}
	return errors.Join(errs...)
}
