package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

// ExportRepository implements [models.Repository] for [models.Export].
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new ExportRepository with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = `id, run_id, playlist_id, playlist_url, confirmed, total, status, message, created_at`

// Create records an export attempt. The run must exist.
func (r *ExportRepository) Create(e *models.Export) error {
	if e.RunID == "" || e.Status == "" {
		return fmt.Errorf("%w: export needs a run and a status", shared.ErrValidation)
	}
	if e.ID == "" {
		e.ID = shared.GenerateID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO exports (` + exportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		e.ID,
		e.RunID,
		e.PlaylistID,
		e.PlaylistURL,
		e.Confirmed,
		e.Total,
		string(e.Status),
		e.Message,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

// Get retrieves an export by ID
func (r *ExportRepository) Get(id string) (*models.Export, error) {
	e, err := r.scan(r.db.QueryRow(`SELECT `+exportColumns+` FROM exports WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, shared.ErrExportNotFound, id)
	}
	return e, nil
}

// Delete removes an export by ID
func (r *ExportRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM exports WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrExportNotFound, id)
	}
	return nil
}

// List retrieves up to limit exports across all runs, newest first
func (r *ExportRepository) List(limit int) ([]models.Export, error) {
	return r.query(`SELECT `+exportColumns+` FROM exports ORDER BY created_at DESC, rowid DESC LIMIT ?`, listLimit(limit))
}

// ListByRun retrieves every export of a run, newest first
func (r *ExportRepository) ListByRun(runID string) ([]models.Export, error) {
	return r.query(`SELECT `+exportColumns+` FROM exports WHERE run_id = ? ORDER BY created_at DESC, rowid DESC`, runID)
}

// Latest returns the newest export of a run that created a playlist, or nil when there is none.
func (r *ExportRepository) Latest(runID string) (*models.Export, error) {
	query := `SELECT ` + exportColumns + ` FROM exports
		WHERE run_id = ? AND playlist_id != ''
		ORDER BY created_at DESC, rowid DESC LIMIT 1`
	e, err := r.scan(r.db.QueryRow(query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	return e, nil
}

func (r *ExportRepository) query(query string, args ...any) ([]models.Export, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var exports []models.Export
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exports: %w", err)
	}
	return exports, nil
}

func (r *ExportRepository) scan(s scanner) (*models.Export, error) {
	var (
		e      models.Export
		status string
	)
	if err := s.Scan(
		&e.ID,
		&e.RunID,
		&e.PlaylistID,
		&e.PlaylistURL,
		&e.Confirmed,
		&e.Total,
		&status,
		&e.Message,
		&e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.Status = models.ExportStatus(status)
	return &e, nil
}
