package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"snaplens/internal/classify"
	"snaplens/internal/config"
	"snaplens/internal/database"
	"snaplens/internal/database/migration"
	"snaplens/internal/otel"
	"snaplens/internal/repository/postgres"
	"snaplens/internal/storage"
	"snaplens/internal/worker"
)

func main() {
	cfg := config.Load()

	loc := time.UTC

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// The class list is loaded once at start; without it no prediction can be
	// mapped to a label, so a missing or empty list is fatal.
	labels, err := classify.LoadLabels(cfg.Classifier.LabelsPath)
	if err != nil {
		log.Fatalf("failed to load class list: %v", err)
	}

	predictor := classify.NewServingPredictor(cfg.Classifier.ServingURL)
	classifier := classify.NewClassifier(labels, predictor, cfg.Classifier.InputSize, cfg.Classifier.TopK)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := worker.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to initialize metrics: %v", err)
	}

	// Small standalone metrics endpoint; the worker serves no other HTTP.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.Worker.MetricsPort, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	imgRepo := postgres.NewImagePostgres(db)

	w := worker.New(
		imgRepo,
		objStore,
		classifier,
		metrics,
		time.Duration(cfg.Worker.PollIntervalSec)*time.Second,
		time.Duration(cfg.Worker.ErrorBackoffSec)*time.Second,
	)

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("worker stopped: %v", err)
	}
}
