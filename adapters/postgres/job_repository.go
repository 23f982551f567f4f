// Package postgres persists forecast job history. It is optional: when no
// database URL is configured the in-memory store serves instead, at the
// cost of losing history on restart.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"retailpulse/domain/core"
	"retailpulse/domain/forecast"
	"retailpulse/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS forecast_jobs (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL,
	sequence BIGINT NOT NULL,
	status TEXT NOT NULL,
	pipeline TEXT NOT NULL,
	target_season TEXT NOT NULL,
	progress_percent INT NOT NULL DEFAULT 0,
	processed_count INT NOT NULL DEFAULT 0,
	total_count INT NOT NULL DEFAULT 0,
	eta_seconds INT,
	result JSONB,
	error JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (dataset_id, sequence)
);
CREATE INDEX IF NOT EXISTS idx_forecast_jobs_dataset ON forecast_jobs (dataset_id, sequence DESC);
`

// jobRepository implements ports.JobStore on Postgres.
type jobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates the repository and ensures its schema exists.
func NewJobRepository(db *sqlx.DB) (ports.JobStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure forecast_jobs schema: %w", err)
	}
	return &jobRepository{db: db}, nil
}

// Create inserts the job, assigning the next per-dataset sequence inside a
// transaction. The unique constraint backs the sequence against races.
func (r *jobRepository) Create(ctx context.Context, job *forecast.Job) error {
	resultJSON, errorJSON, err := marshalPayloads(job)
	if err != nil {
		return err
	}

	query := `INSERT INTO forecast_jobs (
		id, dataset_id, sequence, status, pipeline, target_season,
		progress_percent, processed_count, total_count, eta_seconds,
		result, error, created_at, updated_at
	) VALUES (
		$1, $2,
		(SELECT COALESCE(MAX(sequence), 0) + 1 FROM forecast_jobs WHERE dataset_id = $2),
		$3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	) RETURNING sequence`

	err = r.db.QueryRowContext(ctx, query,
		job.ID, job.DatasetID, job.Status, job.Pipeline, job.TargetSeason,
		job.ProgressPercent, job.ProcessedCount, job.TotalCount, job.EstimatedSecondsRemaining,
		resultJSON, errorJSON, job.CreatedAt.Time(), job.UpdatedAt.Time(),
	).Scan(&job.Sequence)
	if err != nil {
		return fmt.Errorf("failed to create forecast job: %w", err)
	}
	return nil
}

func (r *jobRepository) Get(ctx context.Context, id core.JobID) (*forecast.Job, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` FROM forecast_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get forecast job: %w", err)
	}
	return job, nil
}

func (r *jobRepository) Latest(ctx context.Context, datasetID core.DatasetID) (*forecast.Job, error) {
	row := r.db.QueryRowContext(ctx,
		selectColumns+` FROM forecast_jobs WHERE dataset_id = $1 ORDER BY sequence DESC LIMIT 1`,
		datasetID)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no jobs for dataset %s", core.ErrJobNotFound, datasetID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest forecast job: %w", err)
	}
	return job, nil
}

func (r *jobRepository) History(ctx context.Context, datasetID core.DatasetID) ([]*forecast.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+` FROM forecast_jobs WHERE dataset_id = $1 ORDER BY sequence DESC`,
		datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*forecast.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update re-reads the row under a row lock, applies the mutation, and
// writes the result back, so concurrent progress updates serialize.
func (r *jobRepository) Update(ctx context.Context, id core.JobID, mutate func(*forecast.Job) error) (*forecast.Job, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, selectColumns+` FROM forecast_jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock forecast job: %w", err)
	}

	if err := mutate(job); err != nil {
		return nil, err
	}

	resultJSON, errorJSON, err := marshalPayloads(job)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE forecast_jobs SET
		status = $2, progress_percent = $3, processed_count = $4, total_count = $5,
		eta_seconds = $6, result = $7, error = $8, updated_at = $9
	WHERE id = $1`,
		job.ID, job.Status, job.ProgressPercent, job.ProcessedCount, job.TotalCount,
		job.EstimatedSecondsRemaining, resultJSON, errorJSON, job.UpdatedAt.Time(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update forecast job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit forecast job update: %w", err)
	}
	return job, nil
}

const selectColumns = `SELECT
	id, dataset_id, sequence, status, pipeline, target_season,
	progress_percent, processed_count, total_count, eta_seconds,
	result, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*forecast.Job, error) {
	var (
		job        forecast.Job
		eta        sql.NullInt64
		resultJSON []byte
		errorJSON  []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := row.Scan(
		&job.ID, &job.DatasetID, &job.Sequence, &job.Status, &job.Pipeline, &job.TargetSeason,
		&job.ProgressPercent, &job.ProcessedCount, &job.TotalCount, &eta,
		&resultJSON, &errorJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if eta.Valid {
		v := int(eta.Int64)
		job.EstimatedSecondsRemaining = &v
	}
	if len(resultJSON) > 0 {
		var plan forecast.PurchasePlan
		if err := json.Unmarshal(resultJSON, &plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		job.Result = &plan
	}
	if len(errorJSON) > 0 {
		var jerr forecast.JobError
		if err := json.Unmarshal(errorJSON, &jerr); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job error: %w", err)
		}
		job.Error = &jerr
	}
	job.CreatedAt = core.NewTimestamp(createdAt)
	job.UpdatedAt = core.NewTimestamp(updatedAt)
	return &job, nil
}

func marshalPayloads(job *forecast.Job) (resultJSON, errorJSON []byte, err error) {
	if job.Result != nil {
		resultJSON, err = json.Marshal(job.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal job result: %w", err)
		}
	}
	if job.Error != nil {
		errorJSON, err = json.Marshal(job.Error)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal job error: %w", err)
		}
	}
	return resultJSON, errorJSON, nil
}
