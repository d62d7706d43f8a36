package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Schema for the product table. Bounds are stored as REAL so the selection
// can compare in SQL; the rate is kept as text to preserve its exact digits.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	code          INTEGER PRIMARY KEY,
	description   TEXT    NOT NULL,
	rate          TEXT    NOT NULL,
	min_term      INTEGER NOT NULL,
	max_term      INTEGER,
	min_principal REAL    NOT NULL,
	max_principal REAL
);
`

const findSQL = `
SELECT code, description, rate, min_term, max_term, min_principal, max_principal
FROM products
WHERE ? >= min_term
  AND (max_term IS NULL OR ? <= max_term)
  AND ? >= min_principal
  AND (max_principal IS NULL OR ? <= max_principal)
ORDER BY min_term DESC, min_principal DESC
LIMIT 1`

// SQLite is a product catalog kept in a SQLite table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite ensures the product table exists on db.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("create products table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Find runs the selection query.
func (c *SQLite) Find(ctx context.Context, principal decimal.Decimal, term int) (Product, error) {
	p := principal.InexactFloat64()
	row := c.db.QueryRowContext(ctx, findSQL, term, term, p, p)

	prod, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("find product: %w", err)
	}
	return prod, nil
}

// List returns every product, most specific first.
func (c *SQLite) List(ctx context.Context) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT code, description, rate, min_term, max_term, min_principal, max_principal
		FROM products
		ORDER BY min_term DESC, min_principal DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// Seed inserts products when the table is empty and reports how many rows
// were written.
func (c *SQLite) Seed(ctx context.Context, products []Product) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		if err := insertProduct(ctx, tx, p); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	return len(products), nil
}

// Upsert writes or replaces a single product.
func (c *SQLite) Upsert(ctx context.Context, p Product) error {
	return insertProduct(ctx, c.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertProduct(ctx context.Context, db execer, p Product) error {
	var maxTerm, maxPrincipal any
	if p.MaxTerm != nil {
		maxTerm = *p.MaxTerm
	}
	if p.MaxPrincipal != nil {
		maxPrincipal = p.MaxPrincipal.InexactFloat64()
	}

	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO products
		(code, description, rate, min_term, max_term, min_principal, max_principal)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.Description, p.Rate.String(), p.MinTerm, maxTerm,
		p.MinPrincipal.InexactFloat64(), maxPrincipal,
	)
	if err != nil {
		return fmt.Errorf("insert product %d: %w", p.Code, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (Product, error) {
	var (
		p            Product
		rate         string
		maxTerm      sql.NullInt64
		minPrincipal float64
		maxPrincipal sql.NullFloat64
	)
	if err := s.Scan(&p.Code, &p.Description, &rate, &p.MinTerm, &maxTerm, &minPrincipal, &maxPrincipal); err != nil {
		return Product{}, err
	}

	r, err := decimal.NewFromString(rate)
	if err != nil {
		return Product{}, fmt.Errorf("product %d rate %q: %w", p.Code, rate, err)
	}
	p.Rate = r
	p.MinPrincipal = decimal.NewFromFloat(minPrincipal)
	if maxTerm.Valid {
		v := int(maxTerm.Int64)
		p.MaxTerm = &v
	}
	if maxPrincipal.Valid {
		v := decimal.NewFromFloat(maxPrincipal.Float64)
		p.MaxPrincipal = &v
	}
	return p, nil
}
