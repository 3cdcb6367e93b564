package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"snaplens/internal/model"
	"snaplens/internal/repository"
)

// ImagePostgres is a PostgreSQL implementation of repository.ImageRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Classifications are stored as a JSONB array ordered most-confident first.
type ImagePostgres struct {
	db *sql.DB
}

// NewImagePostgres creates a new ImagePostgres repository.
func NewImagePostgres(db *sql.DB) *ImagePostgres {
	return &ImagePostgres{db: db}
}

var _ repository.ImageRepository = (*ImagePostgres)(nil)

const imageColumns = `id, captured_at, formatted_time, storage_path, status, classifications, COALESCE(definition, ''), COALESCE(processed_at, 0)`

// Create inserts a new pending image row and returns the stored record.
func (r *ImagePostgres) Create(ctx context.Context, img *model.Image) (*model.Image, error) {
	const q = `
		INSERT INTO images (id, captured_at, formatted_time, storage_path, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + imageColumns + `
	`
	row := r.db.QueryRowContext(ctx, q,
		img.ID,
		img.CapturedAt,
		img.FormattedTime,
		img.StoragePath,
		img.Status,
	)
	return scanImage(row)
}

// FindByID fetches a single image by its ID.
func (r *ImagePostgres) FindByID(ctx context.Context, id string) (*model.Image, error) {
	const q = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE id = $1
	`
	return scanImage(r.db.QueryRowContext(ctx, q, id))
}

// ListProcessed returns processed images newest first by processing time.
func (r *ImagePostgres) ListProcessed(ctx context.Context) ([]model.Image, error) {
	const q = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE status = $1
		ORDER BY processed_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, model.StatusProcessed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// NextPending returns the oldest pending image. There is no claim step: a
// single worker instance is assumed, matching the queue's single-consumer
// design.
func (r *ImagePostgres) NextPending(ctx context.Context) (*model.Image, error) {
	const q = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE status = $1
		ORDER BY captured_at ASC, id ASC
		LIMIT 1
	`
	return scanImage(r.db.QueryRowContext(ctx, q, model.StatusPending))
}

// HasPending reports whether any pending images exist.
func (r *ImagePostgres) HasPending(ctx context.Context) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM images WHERE status = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, model.StatusPending).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// MarkProcessed flips a pending row to processed with its classification result.
// The status guard in the WHERE clause keeps the transition one-way.
func (r *ImagePostgres) MarkProcessed(ctx context.Context, id string, classifications []model.Classification, processedAt int64) error {
	payload, err := json.Marshal(classifications)
	if err != nil {
		return fmt.Errorf("marshal classifications: %w", err)
	}

	const q = `
		UPDATE images
		SET status = $1, classifications = $2, processed_at = $3
		WHERE id = $4 AND status = $5
	`
	res, err := r.db.ExecContext(ctx, q, model.StatusProcessed, payload, processedAt, id, model.StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetDefinition stores the cached dictionary definition. Missing rows are not
// an error; the write is best-effort by contract.
func (r *ImagePostgres) SetDefinition(ctx context.Context, id string, definition string) error {
	const q = `UPDATE images SET definition = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, q, definition, id)
	return err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*model.Image, error) {
	var (
		img     model.Image
		rawClas []byte
	)
	if err := row.Scan(
		&img.ID,
		&img.CapturedAt,
		&img.FormattedTime,
		&img.StoragePath,
		&img.Status,
		&rawClas,
		&img.Definition,
		&img.ProcessedAt,
	); err != nil {
		return nil, err
	}
	if len(rawClas) > 0 {
		if err := json.Unmarshal(rawClas, &img.Classifications); err != nil {
			return nil, fmt.Errorf("unmarshal classifications: %w", err)
		}
	}
	return &img, nil
}
