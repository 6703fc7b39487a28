package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
)

// RunRepository implements [models.Repository] for [models.Run].
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, image_path, description, params, tracks, vision_model, params_model, created_at`

// Create inserts run, assigning its ID and creation time when unset.
func (r *RunRepository) Create(run *models.Run) error {
	if run.ImagePath == "" {
		return fmt.Errorf("%w: run needs an image path", shared.ErrValidation)
	}
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	params, err := encodeJSON(run.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}
	tracks, err := encodeJSON(run.Tracks)
	if err != nil {
		return fmt.Errorf("failed to encode tracks: %w", err)
	}
	if run.Tracks == nil {
		tracks = "[]"
	}
	desc, err := encodeJSON(run.Description)
	if err != nil {
		return fmt.Errorf("failed to encode description: %w", err)
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		run.ID,
		run.ImagePath,
		desc,
		params,
		tracks,
		run.VisionModel,
		run.ParamsModel,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := r.scan(row)
	if err != nil {
		return nil, notFound(err, shared.ErrRunNotFound, id)
	}
	return run, nil
}

// Find retrieves a run by full ID or unique ID prefix, as printed by `runs list`.
func (r *RunRepository) Find(ref string) (*models.Run, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}
	if run, err := r.Get(ref); err == nil {
		return run, nil
	}

	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, escapeLike(ref)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var found []*models.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, ref)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches more than one run", shared.ErrInvalidArgument, ref)
	}
}

// Delete removes a run and, through the foreign key, its exports
func (r *RunRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	return nil
}

// List retrieves up to limit runs, newest first
func (r *RunRepository) List(limit int) ([]models.Run, error) {
	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) scan(s scanner) (*models.Run, error) {
	var (
		run                   models.Run
		desc, params, tracks string
	)
	if err := s.Scan(
		&run.ID,
		&run.ImagePath,
		&desc,
		&params,
		&tracks,
		&run.VisionModel,
		&run.ParamsModel,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}

	run.Description.Raw = json.RawMessage(desc)
	if err := json.Unmarshal([]byte(params), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(tracks), &run.Tracks); err != nil {
		return nil, fmt.Errorf("failed to decode tracks of run %s: %w", run.ID, err)
	}
	return &run, nil
}
