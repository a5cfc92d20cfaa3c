// Command runocr OCRs a single capture and prints {"text": ...} on stdout,
// the input the standardize commands accept.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/traveler-intake/internal/bootstrap"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/ocr"
)

func main() {
	cfg, err := common.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	logger := common.NewLoggerTo(os.Stderr, "runocr", cfg.Log.Level)
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <image-or-pdf>")
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if hash, err := ingest.HashFile(path); err == nil {
		ctx = ocr.WithContentHash(ctx, hash)
	}

	extractor, closeOCR, err := bootstrap.NewExtractor(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build ocr engine", "engine", cfg.OCR.Engine, "error", err)
		os.Exit(1)
	}
	defer closeOCR()

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err, "duration_ms", res.Duration.Milliseconds())
		os.Exit(1)
	}
	logger.Info("text extraction OK",
		"method", res.Method,
		"engine", res.Engine,
		"pages", res.Pages,
		"bytes", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fields.RawText{Text: res.Text}); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
}
