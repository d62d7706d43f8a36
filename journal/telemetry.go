package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rustyeddy/loansim/telemetry"
)

// upsertSQL folds one observation into a service's row in a single
// statement, so concurrent writers never lose an update.
const upsertSQL = `
INSERT INTO telemetry (service, calls, total_ms, min_ms, max_ms, successes, failures)
VALUES (?, 1, ?, ?, ?, ?, ?)
ON CONFLICT(service) DO UPDATE SET
	calls     = calls + 1,
	total_ms  = total_ms + excluded.total_ms,
	min_ms    = MIN(min_ms, excluded.min_ms),
	max_ms    = MAX(max_ms, excluded.max_ms),
	successes = successes + excluded.successes,
	failures  = failures + excluded.failures`

// Telemetry is a telemetry.Aggregator that survives restarts.
type Telemetry struct {
	db *sql.DB
}

// NewTelemetry creates the telemetry table on db if needed.
func NewTelemetry(db *sql.DB) (*Telemetry, error) {
	if _, err := db.Exec(telemetrySchema); err != nil {
		return nil, fmt.Errorf("create telemetry table: %w", err)
	}
	return &Telemetry{db: db}, nil
}

func (t *Telemetry) Record(ctx context.Context, o telemetry.Observation) error {
	ms := telemetry.Milliseconds(o.Duration)
	ok, failed := 0, 1
	if telemetry.Succeeded(o.Status) {
		ok, failed = 1, 0
	}

	if _, err := t.db.ExecContext(ctx, upsertSQL, o.Name, ms, ms, ms, ok, failed); err != nil {
		return fmt.Errorf("record telemetry for %s: %w", o.Name, err)
	}
	return nil
}

// Snapshot reads the raw counters for name.
func (t *Telemetry) Snapshot(ctx context.Context, name string) (telemetry.Counters, bool, error) {
	var c telemetry.Counters
	err := t.db.QueryRowContext(ctx, `
		SELECT calls, total_ms, min_ms, max_ms, successes, failures
		FROM telemetry WHERE service = ?`, name).
		Scan(&c.Calls, &c.TotalMs, &c.MinMs, &c.MaxMs, &c.Successes, &c.Failures)
	if err == sql.ErrNoRows {
		return telemetry.Counters{}, false, nil
	}
	if err != nil {
		return telemetry.Counters{}, false, fmt.Errorf("read telemetry for %s: %w", name, err)
	}
	return c, true, nil
}

func (t *Telemetry) Report(ctx context.Context, asOf time.Time) (telemetry.Report, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT service, calls, total_ms, min_ms, max_ms, successes, failures
		FROM telemetry
		ORDER BY service`)
	if err != nil {
		return telemetry.Report{}, fmt.Errorf("telemetry report: %w", err)
	}
	defer rows.Close()

	rep := telemetry.Report{
		ReferenceDate: asOf.Format(telemetry.DateLayout),
		Endpoints:     []telemetry.EndpointStats{},
	}
	for rows.Next() {
		var (
			name string
			c    telemetry.Counters
		)
		if err := rows.Scan(&name, &c.Calls, &c.TotalMs, &c.MinMs, &c.MaxMs, &c.Successes, &c.Failures); err != nil {
			return telemetry.Report{}, fmt.Errorf("scan telemetry: %w", err)
		}
		rep.Endpoints = append(rep.Endpoints, telemetry.Summarize(name, c))
	}
	if err := rows.Err(); err != nil {
		return telemetry.Report{}, fmt.Errorf("telemetry report: %w", err)
	}
	return rep, nil
}
