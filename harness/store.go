package harness

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog/log"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/mattn/go-sqlite3"
)

// Store archives run results in SQLite so past runs can be inspected after
// the process exits.
type Store struct {
	db      *sql.DB
	builder goqu.DialectWrapper
}

const resultsSchema = `
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	status      TEXT NOT NULL,
	predicted   TEXT NOT NULL,
	actual      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, scenario)
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results (run_id, started_at);
`

// NewStore opens (creating if needed) the results database at path.
func NewStore(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(path, ":memory:") {
		if strings.Contains(dsn, "?") {
			dsn += "&_journal_mode=WAL&_busy_timeout=5000"
		} else {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(resultsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create results schema: %w", err)
	}

	return &Store{db: db, builder: goqu.Dialect("sqlite3")}, nil
}

// SaveReport archives every result of one run in a single transaction.
func (s *Store) SaveReport(report *Report) error {
	rows := make([]goqu.Record, 0, len(report.Results))
	for i := range report.Results {
		res := &report.Results[i]
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		rows = append(rows, goqu.Record{
			"run_id":      report.RunID,
			"scenario":    res.Scenario.Name,
			"status":      string(res.Status),
			"predicted":   res.Predicted.String(),
			"actual":      res.Actual.String(),
			"error":       errText,
			"started_at":  res.StartedAt.UnixMilli(),
			"duration_ms": res.Duration.Milliseconds(),
		})
	}
	if len(rows) == 0 {
		return nil
	}

	query, args, err := s.builder.Insert("results").Rows(rows).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build results insert: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin results transaction: %w", err)
	}
	if _, err := tx.Exec(query, args...); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to archive results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	log.Debug().Str("run_id", report.RunID).Int("results", len(rows)).Msg("Run archived")
	return nil
}

// StoredResult is one archived scenario result.
type StoredResult struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	Status     string    `json:"status"`
	Predicted  string    `json:"predicted"`
	Actual     string    `json:"actual"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// ListResults returns the most recent archived results, newest first.
func (s *Store) ListResults(limit int) ([]StoredResult, error) {
	if limit < 1 {
		limit = 100
	}
	query, args, err := s.builder.From("results").
		Select("run_id", "scenario", "status", "predicted", "actual", "error", "started_at", "duration_ms").
		Order(goqu.C("started_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build results query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var r StoredResult
		var startedMS int64
		if err := rows.Scan(&r.RunID, &r.Scenario, &r.Status, &r.Predicted,
			&r.Actual, &r.Error, &startedMS, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMS)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSummary aggregates one archived run.
type RunSummary struct {
	RunID      string `json:"run_id"`
	Total      int    `json:"total"`
	Passed     int    `json:"passed"`
	Mismatches int    `json:"mismatches"`
	Errors     int    `json:"errors"`
}

// Summaries returns per-run aggregates for the most recent runs.
func (s *Store) Summaries(limit int) ([]RunSummary, error) {
	if limit < 1 {
		limit = 20
	}
	query, args, err := s.builder.From("results").
		Select(
			goqu.C("run_id"),
			goqu.COUNT("*").As("total"),
			goqu.SUM(goqu.Case().When(goqu.C("status").Eq("pass"), 1).Else(0)).As("passed"),
			goqu.SUM(goqu.Case().When(goqu.C("status").Eq("mismatch"), 1).Else(0)).As("mismatches"),
			goqu.SUM(goqu.Case().When(goqu.C("status").NotIn("pass", "mismatch"), 1).Else(0)).As("errors"),
		).
		GroupBy("run_id").
		Order(goqu.MAX("started_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Total, &r.Passed, &r.Mismatches, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
