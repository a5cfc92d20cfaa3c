// Package bootstrap assembles the intake pipeline from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/events"
	"github.com/joseph-ayodele/traveler-intake/internal/export"
	"github.com/joseph-ayodele/traveler-intake/internal/metrics"
	"github.com/joseph-ayodele/traveler-intake/internal/ocr"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
	"github.com/joseph-ayodele/traveler-intake/internal/prefill"
	"github.com/joseph-ayodele/traveler-intake/internal/repository"
	"github.com/joseph-ayodele/traveler-intake/internal/resilience"
	"github.com/joseph-ayodele/traveler-intake/internal/schema"
	"github.com/joseph-ayodele/traveler-intake/internal/storage"
)

type App struct {
	Config *common.Config

	DB        *repository.DB
	Documents repository.DocumentRepository
	Store     *storage.LocalStore
	Metrics   *metrics.Pipeline
	Processor *pipeline.Processor
	Exporter  *export.Service
	Submitter *prefill.Submitter

	closers []func()
}

// Site converts the configured intake point.
func Site(cfg *common.Config) storage.Site {
	return storage.Site{
		Agency:      cfg.Site.Agency,
		Country:     cfg.Site.Country,
		State:       cfg.Site.State,
		AirportCode: cfg.Site.AirportCode,
	}
}

// New opens the database, migrates it and wires every pipeline stage.
// service labels metrics and events.
func New(ctx context.Context, cfg *common.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg}

	db, err := repository.Open(ctx, repository.Config{
		Driver:          repository.Dialect(cfg.Database.Driver),
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.DB = db
	app.closers = append(app.closers, func() { db.Close(logger) })

	if err := repository.HealthCheck(ctx, db.DB, cfg.Database.DialTimeout, logger); err != nil {
		app.Close()
		return nil, fmt.Errorf("database health: %w", err)
	}

	app.Documents = repository.NewDocumentRepository(db.DB, db.Dialect, logger)
	if err := app.Documents.Migrate(ctx); err != nil {
		app.Close()
		return nil, err
	}

	store, err := storage.NewLocalStore(cfg.Storage.Root, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	extractor, closeOCR, err := NewExtractor(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeOCR)

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, publisher.Close)

	schemas, err := schema.NewRegistry()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Metrics = metrics.NewPipeline(service)
	app.Processor, err = pipeline.NewProcessor(pipeline.Deps{
		OCR:       extractor,
		Documents: app.Documents,
		Store:     store,
		Keys:      storage.NewKeyBuilder(cfg.Storage.BucketRoot, Site(cfg)),
		Schemas:   schemas,
		Publisher: publisher,
		Metrics:   app.Metrics,
		Service:   service,
	}, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Exporter = export.NewService(app.Documents, logger)
	app.Submitter = prefill.NewSubmitter(cfg.Storage.FormsDir, Site(cfg), store, logger)
	return app, nil
}

// NewExtractor builds the configured OCR extractor. The returned func
// releases the Vision client, if one was opened.
func NewExtractor(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*ocr.Extractor, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	ocrCfg := OCRConfig(cfg)
	if cfg.OCR.Engine != "vision" {
		return ocr.NewExtractor(ocrCfg, logger), func() {}, nil
	}

	client, err := ocr.NewVisionClient(ctx, cfg.OCR.VisionCredFile)
	if err != nil {
		return nil, nil, fmt.Errorf("vision client: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("closing vision client", "error", err)
		}
	}

	rc := resilience.DefaultConfig()
	rc.RatePerSecond = cfg.OCR.VisionRPS
	rc.RateBurst = cfg.OCR.VisionBurst
	engine := ocr.NewVisionEngine(client, resilience.NewExecutor(rc, logger), logger)
	return ocr.NewExtractor(ocrCfg, logger, ocr.WithEngine(engine)), closeFn, nil
}

// OCRConfig maps the OCR settings onto the extractor configuration.
func OCRConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Tesseract:           cfg.OCR.TesseractBinary,
		TesseractLang:       cfg.OCR.Language,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		ArtifactCacheDir:    filepath.Join(cfg.Storage.Root, ".cache"),
		EnableTSVConfidence: true,
	}
}

func newPublisher(cfg *common.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.Events.NATSURL == "" {
		logger.Info("event publishing disabled, no NATS_URL")
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, events.Options{
		Executor: resilience.NewExecutor(resilience.DefaultConfig(), logger),
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing document events", "url", cfg.Events.NATSURL, "subject", cfg.Events.Subject)
	return pub, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
