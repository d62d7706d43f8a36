// Package journal persists simulations and telemetry counters in SQLite and
// renders schedules for humans.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/loansim/simulation"
	"github.com/rustyeddy/loansim/telemetry"
)

// Open opens the SQLite file at path and applies the connection pragmas.
// SQLite allows one writer at a time, so the pool is capped at a single
// connection and concurrent callers queue inside database/sql.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	return nil
}

// Store is the simulation journal.
type Store struct {
	db *sql.DB
}

// NewStore creates the simulations table on db if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(simulationsSchema); err != nil {
		return nil, fmt.Errorf("create simulations table: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes one simulation with its full envelope.
func (s *Store) Save(ctx context.Context, rec simulation.Record) error {
	env := rec.Envelope
	if env == nil {
		return fmt.Errorf("save simulation: nil envelope")
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", env.ID, err)
	}

	created := rec.CreatedAt.UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO simulations
		(id, product_code, product_description, rate, principal, term, envelope_json, created_at, created_day, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		env.ID,
		env.ProductCode,
		env.ProductDescription,
		env.Rate.String(),
		rec.Principal.String(),
		rec.Term,
		string(body),
		created.Format(time.RFC3339Nano),
		created.Format(telemetry.DateLayout),
		telemetry.Milliseconds(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("insert simulation %s: %w", env.ID, err)
	}
	return nil
}
