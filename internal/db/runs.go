package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// SaveFittingRun stores a run and its history in one transaction. Saving the same run
// ID again replaces it.
func (db *DB) SaveFittingRun(ctx context.Context, run *FittingRun) error {
	if run == nil || run.ID == uuid.Nil {
		return fmt.Errorf("run has no ID")
	}
	jobJSON, err := json.Marshal(run.Job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	var docJSON []byte
	if run.Document != nil {
		if docJSON, err = json.Marshal(run.Document); err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO fitting_runs (id, name, mode, status, target_pages, initial_pages, final_pages,
			best_pages, iterations_used, edit_attempts, exhausted_sections, job, document, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 ON CONFLICT (id) DO UPDATE SET name = $2, mode = $3, status = $4, target_pages = $5,
			initial_pages = $6, final_pages = $7, best_pages = $8, iterations_used = $9,
			edit_attempts = $10, exhausted_sections = $11, job = $12, document = $13,
			started_at = $14, completed_at = $15`,
		run.ID, run.Name, string(run.Mode), string(run.Status), run.TargetPages, run.InitialPages,
		run.FinalPages, run.BestPages, run.IterationsUsed, run.EditAttempts,
		kindStrings(run.ExhaustedSections), jobJSON, docJSON, run.StartedAt, run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM fitting_iterations WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("failed to clear iterations: %w", err)
	}

	if len(run.History) > 0 {
		batch := &pgx.Batch{}
		for _, h := range run.History {
			batch.Queue(
				`INSERT INTO fitting_iterations (run_id, attempt, section, score, units_before, units_after,
					pages_before, pages_after, outcome)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				run.ID, h.Attempt, string(h.Section), h.Score, h.UnitsBefore, h.UnitsAfter,
				h.PagesBefore, h.PagesAfter, string(h.Outcome),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save iterations: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetFittingRun retrieves a run with its document and history. It returns nil, nil
// when the run does not exist.
func (db *DB) GetFittingRun(ctx context.Context, id uuid.UUID) (*FittingRun, error) {
	var run FittingRun
	var mode, status string
	var exhausted []string
	var jobJSON, docJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT id, name, mode, status, target_pages, initial_pages, final_pages, best_pages,
			iterations_used, edit_attempts, exhausted_sections, job, document, started_at,
			completed_at, created_at
		 FROM fitting_runs WHERE id = $1`,
		id,
	).Scan(&run.ID, &run.Name, &mode, &status, &run.TargetPages, &run.InitialPages, &run.FinalPages,
		&run.BestPages, &run.IterationsUsed, &run.EditAttempts, &exhausted, &jobJSON, &docJSON,
		&run.StartedAt, &run.CompletedAt, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.Mode = types.Mode(mode)
	run.Status = types.Status(status)
	run.ExhaustedSections = stringKinds(exhausted)

	if len(jobJSON) > 0 {
		var job types.JobContext
		if err := json.Unmarshal(jobJSON, &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		run.Job = &job
	}
	if len(docJSON) > 0 {
		var doc sections.Document
		if err := json.Unmarshal(docJSON, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		run.Document = &doc
	}

	history, err := db.listIterations(ctx, id)
	if err != nil {
		return nil, err
	}
	run.History = history
	return &run, nil
}

func (db *DB) listIterations(ctx context.Context, id uuid.UUID) ([]types.IterationRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT attempt, section, score, units_before, units_after, pages_before, pages_after, outcome
		 FROM fitting_iterations WHERE run_id = $1 ORDER BY attempt`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list iterations: %w", err)
	}
	defer rows.Close()

	var history []types.IterationRecord
	for rows.Next() {
		var h types.IterationRecord
		var section, outcome string
		if err := rows.Scan(&h.Attempt, &section, &h.Score, &h.UnitsBefore, &h.UnitsAfter,
			&h.PagesBefore, &h.PagesAfter, &outcome); err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		h.Section = sections.Kind(section)
		h.Outcome = types.Outcome(outcome)
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListFittingRuns returns the most recent runs without documents or history.
func (db *DB) ListFittingRuns(ctx context.Context, limit int) ([]FittingRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, mode, status, target_pages, initial_pages, final_pages, best_pages,
			iterations_used, edit_attempts, started_at, completed_at, created_at
		 FROM fitting_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []FittingRun
	for rows.Next() {
		var run FittingRun
		var mode, status string
		if err := rows.Scan(&run.ID, &run.Name, &mode, &status, &run.TargetPages, &run.InitialPages,
			&run.FinalPages, &run.BestPages, &run.IterationsUsed, &run.EditAttempts,
			&run.StartedAt, &run.CompletedAt, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Mode = types.Mode(mode)
		run.Status = types.Status(status)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteFittingRun deletes a run and its history (via cascade)
func (db *DB) DeleteFittingRun(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM fitting_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}
