package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrDuplicateName    = errors.New("a product with the same name already exists")
	ErrDuplicateBarcode = errors.New("a product with the same barcode already exists")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrLockConflict     = errors.New("stock row locked by a concurrent transaction")
)

// LockConflictError reports that the database aborted a batch deduction
// because a concurrent transaction held the product row.
type LockConflictError struct {
	Product string
	Err     error
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("lock stock for %q: %v", e.Product, e.Err)
}

func (e *LockConflictError) Unwrap() error { return e.Err }

func (e *LockConflictError) Is(target error) bool {
	return target == ErrLockConflict
}

// Catalog is the product store the checkout core runs against.
//
// TryDeduct is an atomic check-then-decrement: it reports false, without
// changing anything, when the product is unknown or its stock is lower than
// the requested quantity. Restore is the compensating increment used to roll
// back a deduction.
type Catalog interface {
	FindByName(ctx context.Context, name string) (Product, error)
	FindByBarcode(ctx context.Context, barcode string) (Product, error)
	CurrentStock(ctx context.Context, name string) (int, error)
	TryDeduct(ctx context.Context, name string, quantity int) (bool, error)
	Restore(ctx context.Context, name string, quantity int) error
}

// BatchDeducter is implemented by catalogs that can deduct a whole set of
// lines inside one transaction. If any line is short, nothing is deducted and
// the result lists the depleted lines. Rows are locked in product name order.
type BatchDeducter interface {
	DeductAll(ctx context.Context, lines []Line) (DeductResult, error)
}

// Store adds product management on top of Catalog.
type Store interface {
	Catalog
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, name string, p Product) (Product, error)
	Delete(ctx context.Context, name string) error
	LowStock(ctx context.Context, threshold int) ([]Product, error)
	TotalStockValue(ctx context.Context) (decimal.Decimal, error)
}
