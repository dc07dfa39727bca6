package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/campushq/regulations-assistant/internal/bootstrap"
	"github.com/campushq/regulations-assistant/internal/config"
	"github.com/campushq/regulations-assistant/internal/observability/logging"
	"github.com/campushq/regulations-assistant/internal/observability/metrics"
)

const (
	serviceName        = "indexer"
	perDocumentTimeout = 5 * time.Minute
)

func main() {
	batch := flag.Bool("batch", false, "index the local corpus directory once and exit")
	recreate := flag.Bool("recreate", false, "drop and recreate the vector collection before indexing")
	flag.Parse()

	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *recreate {
		if err := app.VectorDB.Recreate(ctx); err != nil {
			slog.Error("recreate_collection_failed", "error", err)
			os.Exit(1)
		}
		slog.Info("vector_collection_recreated", "collection", cfg.QdrantCollection)
	}

	if *batch {
		if err := runBatch(ctx, app, cfg.CorpusPath); err != nil {
			slog.Error("batch_indexing_failed", "error", err)
			os.Exit(1)
		}
		return
	}

	runWorker(ctx, app, cfg)
}

// runBatch walks the corpus tree once and indexes every regulation in place.
// The layout mirrors the catalog hierarchy: faculty/program_type/course/file.
// Run it while no worker is attached to the queue, otherwise documents get
// indexed twice.
func runBatch(ctx context.Context, app *bootstrap.App, corpusPath string) error {
	indexed := 0
	err := filepath.WalkDir(corpusPath, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(corpusPath, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 4 {
			slog.Warn("skipping_file_outside_hierarchy", "path", rel)
			return nil
		}
		faculty, programType, course, filename := parts[0], parts[1], parts[2], parts[3]

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", rel, err)
		}
		doc, err := app.UploadUC.Upload(ctx, faculty, programType, course, filename, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}

		if err := app.IndexUC.IndexByID(ctx, doc.ID); err != nil {
			slog.Error("document_indexing_failed", "document_id", doc.ID, "path", rel, "error", err)
			return nil
		}
		indexed++
		slog.Info("document_indexed", "document_id", doc.ID, "source", doc.Source())
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("batch_indexing_done", "documents", indexed)
	return nil
}

func runWorker(ctx context.Context, app *bootstrap.App, cfg config.Config) {
	m := metrics.NewIndexerMetrics(serviceName)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:        ":" + cfg.IndexerMetricsPort,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", "error", err)
		}
	}()

	handler := func(msgCtx context.Context, documentID string) error {
		docCtx, cancel := context.WithTimeout(msgCtx, perDocumentTimeout)
		defer cancel()

		m.StartDocument()
		start := time.Now()

		if doc, err := app.Catalog.GetByID(docCtx, documentID); err == nil {
			m.ObserveQueueLag(serviceName, time.Since(doc.UpdatedAt))
		}

		err := app.IndexUC.IndexByID(docCtx, documentID)
		m.FinishDocument(serviceName, time.Since(start), err)
		if err != nil {
			return err
		}

		observeChunkCount(docCtx, app, m, documentID)
		return nil
	}

	slog.Info("indexer_worker_listening", "subject", cfg.NATSSubject, "metrics_port", cfg.IndexerMetricsPort)
	if err := app.Queue.SubscribeDocumentUploaded(ctx, handler); err != nil {
		slog.Error("queue_subscription_failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics_shutdown_failed", "error", err)
	}
}

func observeChunkCount(ctx context.Context, app *bootstrap.App, m *metrics.IndexerMetrics, documentID string) {
	doc, err := app.Catalog.GetByID(ctx, documentID)
	if err != nil {
		return
	}
	corpus, err := app.Dataset.Load(ctx)
	if err != nil {
		return
	}
	m.ObserveChunks(serviceName, len(corpus[doc.Source()]))
}
