package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"snaplens/internal/classify"
	"snaplens/internal/dictionary"
	"snaplens/internal/model"
	"snaplens/internal/repository"
	"snaplens/internal/storage"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrNotFound     = errors.New("image not found")
	ErrInvalidImage = errors.New("invalid image data")
)

// GalleryEntry is one processed image prepared for rendering: the cleaned top
// label, a live-fetched definition, and the confidence as a percentage string.
type GalleryEntry struct {
	ID            string `json:"id"`
	FormattedTime string `json:"formatted_time"`
	TopLabel      string `json:"top_label"`
	Definition    string `json:"definition"`
	Confidence    string `json:"confidence"`
}

// DefinitionLookup supplies word definitions; lookups never fail, they
// degrade to a fallback string.
type DefinitionLookup interface {
	Lookup(ctx context.Context, word string) string
}

// ImageService defines the use cases of the capture/gallery side.
type ImageService interface {
	// Upload decodes a base64 data-URL payload, stores the JPEG bytes in
	// object storage, and inserts a pending record. Storage is rolled back if
	// the DB insert fails.
	Upload(ctx context.Context, dataURL string) (*model.Image, error)

	// GalleryEntries returns processed images newest first, each augmented
	// with its cleaned top label, definition, and confidence percentage. The
	// definition is re-fetched and written back on every call, best-effort.
	GalleryEntries(ctx context.Context) ([]GalleryEntry, error)

	// ImageData returns the raw JPEG bytes of one image.
	ImageData(ctx context.Context, id string) ([]byte, error)

	// HasPending reports whether any captures are still awaiting the worker.
	HasPending(ctx context.Context) (bool, error)
}

type imageService struct {
	store storage.Storage
	repo  repository.ImageRepository
	defs  DefinitionLookup
}

// NewImageService constructs a new ImageService.
func NewImageService(store storage.Storage, repo repository.ImageRepository, defs DefinitionLookup) ImageService {
	return &imageService{store: store, repo: repo, defs: defs}
}

func (s *imageService) Upload(ctx context.Context, dataURL string) (*model.Image, error) {
	payload, err := decodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	id := uuid.New().String()
	key := "images/" + id + ".jpg"

	// Upload to object storage first; the DB row is authoritative, so a
	// failed insert deletes the orphaned object.
	if _, err := s.store.Put(ctx, key, bytes.NewReader(payload), storage.PutObjectOptions{
		Size:        int64(len(payload)),
		ContentType: "image/jpeg",
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	img := &model.Image{
		ID:            id,
		CapturedAt:    now.Unix(),
		FormattedTime: now.Format("03:04 PM"),
		StoragePath:   key,
		Status:        model.StatusPending,
	}
	stored, err := s.repo.Create(ctx, img)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// decodeDataURL extracts the base64 payload from "data:<mime>;base64,<payload>".
func decodeDataURL(dataURL string) ([]byte, error) {
	_, encoded, found := strings.Cut(dataURL, ",")
	if !found || encoded == "" {
		return nil, ErrInvalidImage
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidImage
	}
	return payload, nil
}

func (s *imageService) GalleryEntries(ctx context.Context) ([]GalleryEntry, error) {
	images, err := s.repo.ListProcessed(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]GalleryEntry, 0, len(images))
	for _, img := range images {
		entry := GalleryEntry{
			ID:            img.ID,
			FormattedTime: img.FormattedTime,
		}

		if len(img.Classifications) == 0 {
			entry.TopLabel = "Unknown"
			entry.Definition = dictionary.Fallback
			entry.Confidence = "0%"
			entries = append(entries, entry)
			continue
		}

		top := img.Classifications[0]
		entry.TopLabel = classify.CleanLabel(top.Label)
		entry.Definition = s.defs.Lookup(ctx, entry.TopLabel)
		entry.Confidence = fmt.Sprintf("%.2f%%", top.Confidence*100)

		// Fetch-and-store cache refresh; a failed write only costs the next
		// render another lookup.
		if err := s.repo.SetDefinition(ctx, img.ID, entry.Definition); err != nil {
			log.Printf(`{"level":"warn","msg":"definition cache write failed","image_id":%q,"error":%q}`, img.ID, err.Error())
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *imageService) ImageData(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	img, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	obj, _, err := s.store.Get(ctx, img.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetch from storage: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read from storage: %w", err)
	}
	return data, nil
}

func (s *imageService) HasPending(ctx context.Context) (bool, error) {
	return s.repo.HasPending(ctx)
}
