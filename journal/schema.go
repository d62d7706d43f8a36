package journal

// Decimal columns are TEXT so amounts come back with the digits they went in
// with. created_day is the UTC calendar day of created_at.
const simulationsSchema = `
CREATE TABLE IF NOT EXISTS simulations (
	id                  TEXT    PRIMARY KEY,
	product_code        INTEGER NOT NULL,
	product_description TEXT    NOT NULL,
	rate                TEXT    NOT NULL,
	principal           TEXT    NOT NULL,
	term                INTEGER NOT NULL,
	envelope_json       TEXT    NOT NULL,
	created_at          TEXT    NOT NULL,
	created_day         TEXT    NOT NULL,
	duration_ms         REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_simulations_day ON simulations(created_day, product_code);
`

const telemetrySchema = `
CREATE TABLE IF NOT EXISTS telemetry (
	service   TEXT    PRIMARY KEY,
	calls     INTEGER NOT NULL DEFAULT 0,
	total_ms  REAL    NOT NULL DEFAULT 0,
	min_ms    REAL    NOT NULL,
	max_ms    REAL    NOT NULL,
	successes INTEGER NOT NULL DEFAULT 0,
	failures  INTEGER NOT NULL DEFAULT 0
);
`
