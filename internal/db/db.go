// Package db provides optional PostgreSQL persistence of extraction runs and their reports.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/proposal-customizer/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the run and outcome tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateRun creates a new extraction run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, template string, catalogs []string, models int) (uuid.UUID, error) {
	if catalogs == nil {
		catalogs = []string{}
	}
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO extraction_runs (template, catalogs, models, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		template, catalogs, models, RunStatusRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks an extraction run as finished with the given status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE extraction_runs SET status = $1, completed_at = NOW() WHERE id = $2`,
		status, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveOutcome stores the outcome of one model, replacing an earlier one for the same run and model
func (db *DB) SaveOutcome(ctx context.Context, runID uuid.UUID, outcome types.ModelOutcome) error {
	rec, err := newOutcomeRecord(outcome)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO model_outcomes (run_id, model, template, status, coverage, error, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, model) DO UPDATE
		 SET template = $3, status = $4, coverage = $5, error = $6, report = $7, created_at = NOW()`,
		runID, rec.Model, rec.Template, rec.Status, rec.Coverage, rec.Error, rec.Report,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome %s: %w", outcome.Model, err)
	}
	return nil
}

// GetRun retrieves an extraction run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, template, catalogs, models, status, created_at, completed_at
		 FROM extraction_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Template, &run.Catalogs, &run.Models, &run.Status, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves recent extraction runs
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, template, catalogs, models, status, created_at, completed_at
		 FROM extraction_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Template, &run.Catalogs, &run.Models, &run.Status, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListOutcomes retrieves the stored outcomes of a run in model order
func (db *DB) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]types.ModelOutcome, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT model, template, status, coverage, error, report
		 FROM model_outcomes WHERE run_id = $1 ORDER BY model`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []types.ModelOutcome
	for rows.Next() {
		var rec outcomeRecord
		if err := rows.Scan(&rec.Model, &rec.Template, &rec.Status, &rec.Coverage, &rec.Error, &rec.Report); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcome, err := rec.outcome()
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// newOutcomeRecord flattens an outcome into its column values.
func newOutcomeRecord(o types.ModelOutcome) (outcomeRecord, error) {
	rec := outcomeRecord{Model: o.Model, Template: o.Template, Status: o.Status}
	if o.Error != "" {
		rec.Error = &o.Error
	}
	if o.Report != nil {
		coverage := o.Report.Coverage
		rec.Coverage = &coverage
		data, err := json.Marshal(o.Report)
		if err != nil {
			return outcomeRecord{}, fmt.Errorf("failed to marshal report %s: %w", o.Model, err)
		}
		rec.Report = data
	}
	return rec, nil
}

func (r outcomeRecord) outcome() (types.ModelOutcome, error) {
	o := types.ModelOutcome{Model: r.Model, Template: r.Template, Status: r.Status}
	if r.Error != nil {
		o.Error = *r.Error
	}
	if len(r.Report) > 0 {
		var report types.ValidationReport
		if err := json.Unmarshal(r.Report, &report); err != nil {
			return types.ModelOutcome{}, fmt.Errorf("failed to decode report %s: %w", r.Model, err)
		}
		o.Report = &report
	}
	return o, nil
}
