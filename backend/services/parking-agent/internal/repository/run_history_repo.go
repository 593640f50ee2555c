package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"parkingagent/backend/services/parking-agent/internal/models"
)

const defaultHistoryLimit = 20

// RunHistoryRepository stores one row per orchestrator pass.
type RunHistoryRepository struct {
	db *sql.DB
}

// NewRunHistoryRepository returns repository.
func NewRunHistoryRepository(db *sql.DB) *RunHistoryRepository {
	return &RunHistoryRepository{db: db}
}

// EnsureSchema creates the history table when missing.
func (r *RunHistoryRepository) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS parking_agent_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			succeeded BOOLEAN NOT NULL,
			report JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Record inserts a finished run.
func (r *RunHistoryRepository) Record(ctx context.Context, report *models.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("history: encode report: %w", err)
	}
	const query = `
		INSERT INTO parking_agent_runs (started_at, finished_at, succeeded, report)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.db.ExecContext(ctx, query, report.StartedAt, report.FinishedAt, report.Succeeded(), payload)
	return err
}

// Recent returns the last runs, newest first.
func (r *RunHistoryRepository) Recent(ctx context.Context, limit int) ([]models.RunReport, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	const query = `
		SELECT report
		FROM parking_agent_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.RunReport
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var report models.RunReport
		if err := json.Unmarshal(raw, &report); err != nil {
			return nil, fmt.Errorf("history: decode report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}
