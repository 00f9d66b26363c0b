// Package store persists benchmark metric records in SQLite so runs survive
// interruption and can be reported on later.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modelmeter/modelmeter/pkg/metrics"
)

// Store records and queries benchmark metrics.
type Store interface {
	// Insert stores one evaluation record.
	Insert(ctx context.Context, rec metrics.Record) error
	// ListByRun returns all records of a run in insertion order.
	ListByRun(ctx context.Context, runID string) ([]metrics.Record, error)
	// RunCost returns the total USD cost accrued by a run so far.
	RunCost(ctx context.Context, runID string) (float64, error)
	// Runs returns per-run rollups, most recent first.
	Runs(ctx context.Context) ([]RunInfo, error)
	// LatestRunID returns the run id of the most recent record.
	LatestRunID(ctx context.Context) (string, error)
	// Close releases resources.
	Close() error
}

// RunInfo is a per-run rollup for listing past runs.
type RunInfo struct {
	RunID        string
	StartedAt    time.Time
	Records      int
	Errors       int
	TotalCostUSD float64
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS metric_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	model_name TEXT NOT NULL,
	model_id TEXT NOT NULL,
	prompt_id INTEGER,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	latency_ms REAL NOT NULL,
	json_valid INTEGER,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	cost_usd_input REAL NOT NULL,
	cost_usd_output REAL NOT NULL,
	cost_usd_total REAL NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_metrics_run_time ON metric_records(run_id, created_at);
`

// New creates a SQLiteStore and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate metrics db: %w", err)
	}

	// Verbatim text columns arrived later; add them if missing.
	for _, column := range []string{"prompt", "response", "extracted_json"} {
		if columnExists(db, "metric_records", column) {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE metric_records ADD COLUMN %s TEXT NOT NULL DEFAULT ''`, column)
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("add %s column: %w", column, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false
		}
		if name == column {
			return true
		}
	}
	return false
}

// Insert stores one evaluation record.
func (s *SQLiteStore) Insert(ctx context.Context, rec metrics.Record) error {
	var promptID sql.NullInt64
	if rec.PromptID != nil {
		promptID = sql.NullInt64{Int64: int64(*rec.PromptID), Valid: true}
	}
	var jsonValid sql.NullBool
	if rec.JSONValid != nil {
		jsonValid = sql.NullBool{Bool: *rec.JSONValid, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metric_records (run_id, model_name, model_id, prompt_id, input_tokens, output_tokens,
			latency_ms, json_valid, status, error, cost_usd_input, cost_usd_output, cost_usd_total,
			created_at, prompt, response, extracted_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.ModelName, rec.ModelID, promptID, rec.InputTokens, rec.OutputTokens,
		rec.LatencyMs, jsonValid, rec.Status, rec.Error, rec.CostUSDInput, rec.CostUSDOutput, rec.CostUSDTotal,
		rec.Timestamp, rec.Prompt, rec.Response, rec.ExtractedJSON,
	)
	if err != nil {
		return fmt.Errorf("insert metric record: %w", err)
	}
	return nil
}

// ListByRun returns all records of a run in insertion order.
func (s *SQLiteStore) ListByRun(ctx context.Context, runID string) ([]metrics.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, model_name, model_id, prompt_id, input_tokens, output_tokens,
			latency_ms, json_valid, status, error, cost_usd_input, cost_usd_output, cost_usd_total,
			created_at, prompt, response, extracted_json
		 FROM metric_records WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []metrics.Record
	for rows.Next() {
		var rec metrics.Record
		var promptID sql.NullInt64
		var jsonValid sql.NullBool
		if err := rows.Scan(&rec.RunID, &rec.ModelName, &rec.ModelID, &promptID, &rec.InputTokens, &rec.OutputTokens,
			&rec.LatencyMs, &jsonValid, &rec.Status, &rec.Error, &rec.CostUSDInput, &rec.CostUSDOutput, &rec.CostUSDTotal,
			&rec.Timestamp, &rec.Prompt, &rec.Response, &rec.ExtractedJSON); err != nil {
			return nil, fmt.Errorf("scan metric record: %w", err)
		}
		if promptID.Valid {
			id := int(promptID.Int64)
			rec.PromptID = &id
		}
		if jsonValid.Valid {
			v := jsonValid.Bool
			rec.JSONValid = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunCost returns the total USD cost accrued by a run so far.
func (s *SQLiteStore) RunCost(ctx context.Context, runID string) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cost_usd_total), 0) FROM metric_records WHERE run_id = ?`,
		runID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("run cost: %w", err)
	}
	return total, nil
}

// Runs returns per-run rollups, most recent first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, MIN(created_at), COUNT(*),
			SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END),
			COALESCE(SUM(cost_usd_total), 0)
		 FROM metric_records GROUP BY run_id ORDER BY MIN(created_at) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.RunID, &info.StartedAt, &info.Records, &info.Errors, &info.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LatestRunID returns the run id of the most recent record, or "" when the
// store is empty.
func (s *SQLiteStore) LatestRunID(ctx context.Context) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM metric_records ORDER BY id DESC LIMIT 1`,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return runID, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
