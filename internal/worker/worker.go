package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"snaplens/internal/model"
	"snaplens/internal/repository"
	"snaplens/internal/storage"
)

// ImageClassifier is the inference dependency of the worker.
type ImageClassifier interface {
	Classify(ctx context.Context, data []byte) ([]model.Classification, error)
}

// Metrics holds the worker's Prometheus counters.
type Metrics struct {
	Processed prometheus.Counter
	Failures  prometheus.Counter
}

// NewMetrics registers and returns the worker counters.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Processed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worker_images_processed_total",
			Help: "Total number of images classified and marked processed.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "worker_classify_failures_total",
			Help: "Total number of classification attempts that failed and left the image pending.",
		}),
	}
	if err := reg.Register(m.Processed); err != nil {
		return nil, err
	}
	if err := reg.Register(m.Failures); err != nil {
		return nil, err
	}
	return m, nil
}

// Worker polls the shared images table for pending captures and classifies
// them one at a time. It is the only component allowed to flip a row from
// pending to processed.
//
// A single instance is assumed: there is no claim step, so two workers could
// race on the same pending row.
type Worker struct {
	repo         repository.ImageRepository
	store        storage.Storage
	classifier   ImageClassifier
	metrics      *Metrics
	pollInterval time.Duration
	errorBackoff time.Duration
}

// New constructs a worker. Intervals at or below zero fall back to the
// 1s-poll / 5s-error-backoff defaults.
func New(repo repository.ImageRepository, store storage.Storage, classifier ImageClassifier, metrics *Metrics, pollInterval, errorBackoff time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if errorBackoff <= 0 {
		errorBackoff = 5 * time.Second
	}
	return &Worker{
		repo:         repo,
		store:        store,
		classifier:   classifier,
		metrics:      metrics,
		pollInterval: pollInterval,
		errorBackoff: errorBackoff,
	}
}

// Run polls until ctx is cancelled: one pending image per cycle, a short
// sleep in between, a longer backoff after a database error.
func (w *Worker) Run(ctx context.Context) error {
	for {
		interval := w.pollInterval
		if err := w.RunOnce(ctx); err != nil {
			logJSON("error", "worker cycle failed", map[string]any{"error": err.Error()})
			interval = w.errorBackoff
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// RunOnce processes at most one pending image. It returns an error only for
// database-layer failures (which warrant the longer backoff); classification
// and storage failures are logged and leave the row pending, so the next
// cycle retries it. There is no retry limit: a permanently undecodable image
// is re-scanned forever.
func (w *Worker) RunOnce(ctx context.Context) error {
	img, err := w.repo.NextPending(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("next pending: %w", err)
	}

	data, err := w.fetch(ctx, img.StoragePath)
	if err != nil {
		w.failSoft(img.ID, "fetch image bytes failed", err)
		return nil
	}

	classifications, err := w.classifier.Classify(ctx, data)
	if err != nil {
		w.failSoft(img.ID, "classification failed", err)
		return nil
	}

	if err := w.repo.MarkProcessed(ctx, img.ID, classifications, time.Now().Unix()); err != nil {
		return fmt.Errorf("mark processed %s: %w", img.ID, err)
	}

	if w.metrics != nil {
		w.metrics.Processed.Inc()
	}
	logJSON("info", "image processed", map[string]any{
		"image_id":   img.ID,
		"top_label":  classifications[0].Label,
		"confidence": classifications[0].Confidence,
	})
	return nil
}

func (w *Worker) fetch(ctx context.Context, key string) ([]byte, error) {
	obj, _, err := w.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// failSoft records a non-fatal per-image failure; the row stays pending.
func (w *Worker) failSoft(imageID, msg string, err error) {
	if w.metrics != nil {
		w.metrics.Failures.Inc()
	}
	logJSON("warn", msg, map[string]any{"image_id": imageID, "error": err.Error()})
}

func logJSON(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal worker log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
