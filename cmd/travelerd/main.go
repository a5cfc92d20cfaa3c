package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joseph-ayodele/traveler-intake/internal/async"
	"github.com/joseph-ayodele/traveler-intake/internal/bootstrap"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
	"github.com/joseph-ayodele/traveler-intake/internal/repository"
	"github.com/joseph-ayodele/traveler-intake/internal/server"
)

const (
	service         = "travelerd"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := common.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	logger := common.NewLogger(service, cfg.Log.Level)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, service, logger)
	if err != nil {
		logger.Error("failed to start pipeline", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	queue := async.NewProcessorQueue(app.Processor, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithProcessTimeout(cfg.Worker.Timeout),
		async.WithMetrics(app.Metrics),
		async.WithOnDone(func(job async.Job, res *pipeline.Result, err error) {
			if err == nil && res.NeedsReview {
				logger.Info("document needs review", "doc_id", res.DocumentID, "path", job.Capture.Path, "flags", len(res.Flags))
			}
		}),
	)

	if err := os.MkdirAll(cfg.Storage.CaptureDir, 0o755); err != nil {
		logger.Error("failed to create capture dir", "dir", cfg.Storage.CaptureDir, "error", err)
		os.Exit(1)
	}
	targets, watchErrs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        cfg.Storage.CaptureDir,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start capture watcher", "dir", cfg.Storage.CaptureDir, "error", err)
		os.Exit(1)
	}
	go feedQueue(ctx, queue, targets, watchErrs, logger)

	deps := server.Deps{
		Processor:    app.Processor,
		Documents:    app.Documents,
		Exporter:     app.Exporter,
		Declarations: app.Submitter,
		CaptureDir:   cfg.Storage.CaptureDir,
		UploadDir:    cfg.Storage.UploadDir,
	}

	grpcServer, healthServer := server.NewGRPCServer(server.NewExtractionService(deps, logger), logger)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc server stopped", "error", err)
				stop()
			}
		}()
	}

	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           server.NewRouter(deps, dbHealth(app.DB), app.Metrics.Handler(), logger),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		}
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server stopped", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
	}
	grpcServer.GracefulStop()
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

// feedQueue hands watcher targets to the worker pool until ctx is done.
func feedQueue(ctx context.Context, queue async.Queue, targets <-chan ingest.Target, errs <-chan error, logger *slog.Logger) {
	for targets != nil || errs != nil {
		select {
		case t, ok := <-targets:
			if !ok {
				targets = nil
				continue
			}
			job := async.Job{
				Capture:     pipeline.Capture{Path: t.Path, DocType: t.DocType, Subtype: t.Subtype},
				SubmittedAt: time.Now(),
			}
			if err := queue.Enqueue(ctx, job); err != nil {
				logger.Warn("capture not queued", "path", t.Path, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("capture watcher error", "error", err)
		}
	}
}

func dbHealth(db *repository.DB) server.HealthFunc {
	return func(r *http.Request) error {
		return repository.HealthCheck(r.Context(), db.DB, 2*time.Second, slog.Default())
	}
}
