package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart      = errors.New("cannot check out an empty cart")
	ErrStockConflict  = errors.New("stock changed during checkout")
	ErrInvalidTaxRate = errors.New("tax rate must not be negative")
)

// StockConflictError is returned when a deduction fails after validation
// passed, i.e. a concurrent sale took the stock first. Deductions already
// applied by the same checkout have been rolled back when it is returned.
type StockConflictError struct {
	Product string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("stock for %q changed during checkout", e.Product)
}

func (e *StockConflictError) Is(target error) bool {
	return target == ErrStockConflict
}
