package catalog

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const selectProduct = `SELECT name, COALESCE(barcode, ''), price_cents, stock FROM products`

const (
	uniqueViolation      = "23505"
	deadlockDetected     = "40P01"
	serializationFailure = "40001"
)

type PostgresCatalog struct {
	pool DBPool
}

func NewPostgresCatalog(pool DBPool) *PostgresCatalog {
	return &PostgresCatalog{pool: pool}
}

func (c *PostgresCatalog) FindByName(ctx context.Context, name string) (Product, error) {
	return c.findOne(ctx, selectProduct+` WHERE name=$1`, name)
}

func (c *PostgresCatalog) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, ErrNotFound
	}
	return c.findOne(ctx, selectProduct+` WHERE barcode=$1`, barcode)
}

func (c *PostgresCatalog) CurrentStock(ctx context.Context, name string) (int, error) {
	var stock int
	err := c.pool.QueryRow(ctx, `SELECT stock FROM products WHERE name=$1`, name).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return stock, nil
}

// TryDeduct relies on the conditional UPDATE: Postgres re-checks the predicate
// after taking the row lock, so concurrent deductions cannot oversell.
func (c *PostgresCatalog) TryDeduct(ctx context.Context, name string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at=now()
		WHERE name=$1 AND stock >= $2
	`, name, quantity)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (c *PostgresCatalog) Restore(ctx context.Context, name string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at=now()
		WHERE name=$1
	`, name, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeductAll deducts every line in one transaction:
// - locks each product row (SELECT ... FOR UPDATE) in name order
// - if any line is short, we rollback and return depleted info (no mutation)
// - else we decrement stock for all lines and commit
func (c *PostgresCatalog) DeductAll(ctx context.Context, lines []Line) (DeductResult, error) {
	res := DeductResult{}

	ordered := slices.Clone(lines)
	slices.SortStableFunc(ordered, func(a, b Line) int {
		return cmp.Compare(a.ProductName, b.ProductName)
	})

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return res, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type locked struct {
		name      string
		requested int
		available int
	}
	lockedRows := make([]locked, 0, len(ordered))

	for _, line := range ordered {
		var available int
		err := tx.QueryRow(ctx, `
			SELECT stock
			FROM products
			WHERE name=$1
			FOR UPDATE
		`, line.ProductName).Scan(&available)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				available = 0
			} else {
				return res, lockError(line.ProductName, err)
			}
		}

		lockedRows = append(lockedRows, locked{name: line.ProductName, requested: line.Quantity, available: available})
		if available < line.Quantity {
			res.Depleted = append(res.Depleted, DepletedLine{
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}

	if len(res.Depleted) > 0 {
		return res, nil
	}

	for _, row := range lockedRows {
		_, err := tx.Exec(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at=now()
			WHERE name=$1
		`, row.name, row.requested)
		if err != nil {
			return DeductResult{}, lockError(row.name, err)
		}
		res.Deducted = append(res.Deducted, Line{ProductName: row.name, Quantity: row.requested})
	}

	if err := tx.Commit(ctx); err != nil {
		var last string
		if n := len(ordered); n > 0 {
			last = ordered[n-1].ProductName
		}
		return DeductResult{}, lockError(last, err)
	}
	return res, nil
}

// lockError tags deadlock and serialization aborts so callers can treat
// them as a lost race instead of a storage failure.
func lockError(product string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == deadlockDetected || pgErr.Code == serializationFailure) {
		return &LockConflictError{Product: product, Err: err}
	}
	return err
}

func (c *PostgresCatalog) List(ctx context.Context) ([]Product, error) {
	return c.findMany(ctx, selectProduct+` ORDER BY created_at, name`)
}

func (c *PostgresCatalog) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.List(ctx)
	}
	return c.findMany(ctx, selectProduct+` WHERE strpos(lower(name), lower($1)) > 0 ORDER BY created_at, name`, query)
}

func (c *PostgresCatalog) Create(ctx context.Context, p Product) (Product, error) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	_, err := c.pool.Exec(ctx, `
		INSERT INTO products(name, barcode, price_cents, stock)
		VALUES($1, NULLIF($2, ''), $3, $4)
	`, p.Name, p.Barcode, ToCents(p.Price), p.Stock)
	if err != nil {
		return Product{}, mapConstraintError(err)
	}
	return p, nil
}

func (c *PostgresCatalog) Update(ctx context.Context, name string, p Product) (Product, error) {
	p.Barcode = strings.TrimSpace(p.Barcode)
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	tag, err := c.pool.Exec(ctx, `
		UPDATE products
		SET name=$2, barcode=NULLIF($3, ''), price_cents=$4, stock=$5, updated_at=now()
		WHERE name=$1
	`, name, p.Name, p.Barcode, ToCents(p.Price), p.Stock)
	if err != nil {
		return Product{}, mapConstraintError(err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (c *PostgresCatalog) Delete(ctx context.Context, name string) error {
	tag, err := c.pool.Exec(ctx, `DELETE FROM products WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *PostgresCatalog) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	return c.findMany(ctx, selectProduct+` WHERE stock < $1 ORDER BY stock, name`, threshold)
}

func (c *PostgresCatalog) TotalStockValue(ctx context.Context) (decimal.Decimal, error) {
	var cents int64
	err := c.pool.QueryRow(ctx, `SELECT COALESCE(SUM(price_cents * stock), 0)::bigint FROM products`).Scan(&cents)
	if err != nil {
		return decimal.Zero, err
	}
	return FromCents(cents), nil
}

func (c *PostgresCatalog) findOne(ctx context.Context, sql string, args ...any) (Product, error) {
	p, err := scanProduct(c.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (c *PostgresCatalog) findMany(ctx context.Context, sql string, args ...any) ([]Product, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		cents int64
	)
	if err := row.Scan(&p.Name, &p.Barcode, &cents, &p.Stock); err != nil {
		return Product{}, err
	}
	p.Price = FromCents(cents)
	return p, nil
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "barcode") {
		return ErrDuplicateBarcode
	}
	return ErrDuplicateName
}
