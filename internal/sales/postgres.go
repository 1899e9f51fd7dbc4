package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/pos-service-go/internal/checkout"
)

// DBPool is the subset of *pgxpool.Pool used by PostgresStore.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Amounts and the tax rate are NUMERIC and travel as text so no precision
// is lost; unit prices and line totals are whole cents.
const selectSale = `
	SELECT id, occurred_at, terminal_id, operator, tax_rate::text, subtotal::text, tax::text, total::text
	FROM sales`

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, sale checkout.Transaction) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO sales (id, occurred_at, terminal_id, operator, tax_rate, subtotal, tax, total)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric)
	`, sale.ID, sale.Timestamp, sale.Terminal, sale.Operator,
		sale.TaxRate.String(), sale.Subtotal.String(), sale.Tax.String(), sale.Total.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}

	for i, l := range sale.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO sale_lines (sale_id, position, product_name, quantity, unit_price_cents, line_total_cents)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, sale.ID, i, l.ProductName, l.Quantity, catalog.ToCents(l.UnitPrice), catalog.ToCents(l.LineTotal))
		if err != nil {
			return fmt.Errorf("insert sale line %s/%d: %w", sale.ID, i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sale %s: %w", sale.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (checkout.Transaction, error) {
	sale, err := scanSale(s.pool.QueryRow(ctx, selectSale+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return checkout.Transaction{}, ErrNotFound
		}
		return checkout.Transaction{}, err
	}
	if sale.Lines, err = s.lines(ctx, id); err != nil {
		return checkout.Transaction{}, err
	}
	return sale, nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]checkout.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, selectSale+` ORDER BY occurred_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	var out []checkout.Transaction
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, sale)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Lines, err = s.lines(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *PostgresStore) lines(ctx context.Context, saleID string) ([]checkout.LineSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT product_name, quantity, unit_price_cents, line_total_cents
		FROM sale_lines
		WHERE sale_id=$1
		ORDER BY position
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []checkout.LineSnapshot
	for rows.Next() {
		var (
			l                    checkout.LineSnapshot
			unitCents, lineCents int64
		)
		if err := rows.Scan(&l.ProductName, &l.Quantity, &unitCents, &lineCents); err != nil {
			return nil, err
		}
		l.UnitPrice = catalog.FromCents(unitCents)
		l.LineTotal = catalog.FromCents(lineCents)
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (checkout.Transaction, error) {
	var (
		sale                       checkout.Transaction
		rate, subtotal, tax, total string
	)
	if err := row.Scan(&sale.ID, &sale.Timestamp, &sale.Terminal, &sale.Operator, &rate, &subtotal, &tax, &total); err != nil {
		return checkout.Transaction{}, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&sale.TaxRate, rate},
		{&sale.Subtotal, subtotal},
		{&sale.Tax, tax},
		{&sale.Total, total},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return checkout.Transaction{}, fmt.Errorf("sale %s: %w", sale.ID, err)
		}
		*f.dst = d
	}
	sale.Timestamp = sale.Timestamp.UTC()
	return sale, nil
}
