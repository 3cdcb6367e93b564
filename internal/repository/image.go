package repository

import (
	"context"

	"snaplens/internal/model"
)

// ImageRepository defines data access for captured images using SQL queries only.
// No business logic here, strictly persistence operations.
//
// The images table doubles as the work queue between the gallery service and
// the classification worker: rows move from 'pending' to 'processed' exactly
// once, and only NextPending/MarkProcessed touch that transition.
type ImageRepository interface {
	// Create inserts a new pending image record and returns the stored row.
	Create(ctx context.Context, img *model.Image) (*model.Image, error)

	// FindByID returns an image by its ID.
	FindByID(ctx context.Context, id string) (*model.Image, error)

	// ListProcessed returns all processed images, newest first by processing time.
	ListProcessed(ctx context.Context) ([]model.Image, error)

	// NextPending returns the oldest pending image, or sql.ErrNoRows when the
	// queue is empty.
	NextPending(ctx context.Context) (*model.Image, error)

	// HasPending reports whether any pending images exist.
	HasPending(ctx context.Context) (bool, error)

	// MarkProcessed flips a pending image to processed, recording its ranked
	// classifications and processing time.
	MarkProcessed(ctx context.Context, id string, classifications []model.Classification, processedAt int64) error

	// SetDefinition stores the cached dictionary definition for an image.
	// Writes are idempotent re-derivations of the same lookup; last write wins.
	SetDefinition(ctx context.Context, id string, definition string) error
}
