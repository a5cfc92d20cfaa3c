// Package ocr turns capture files (photos, scans, PDFs) into raw document text.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string
	PSM           int // 6 suits a uniform block such as a boarding pass
	OEM           int

	DPI      int // rasterization DPI for scanned PDFs, default 300
	MaxPages int // 0 = no limit

	HeicConverter    string
	ArtifactCacheDir string

	EnableTSVConfidence bool
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Engine     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Engine recognizes text on a single decoded image file.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (text string, confidence float32, err error)
}

type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for tesseract and converters.
func WithRunner(r Runner) Option { return func(e *Extractor) { e.runner = r } }

// WithEngine replaces the default tesseract engine.
func WithEngine(engine Engine) Option { return func(e *Extractor) { e.engine = engine } }

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	e := &Extractor{cfg: cfg, runner: NewExecRunner(logger), logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.engine == nil {
		e.engine = NewTesseractEngine(cfg, e.runner)
	}
	return e
}

// Extract picks a strategy based on file extension. A missing or undecodable
// capture fails with common.ErrNotFound.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ExtractionResult{}, fmt.Errorf("cannot load capture %s: %w", path, common.ErrNotFound)
		}
		return ExtractionResult{}, fmt.Errorf("stat capture: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting ocr extraction", "path", path, "engine", e.engine.Name(), "ext", ext)

	var (
		res ExtractionResult
		err error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.IMAGE:
		res, err = e.extractImage(ctx, path, ext)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("extension %q: %w", ext, common.ErrUnsupported)
	}
	res.Duration = time.Since(start)
	res.Engine = e.engine.Name()
	if err != nil {
		return res, err
	}

	e.logger.Info("ocr extraction finished",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractImage(ctx context.Context, path, ext string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Pages: 1, Language: e.cfg.TesseractLang}

	imgPath := path
	switch {
	case constants.IsHEICExt(ext):
		hashHex, _ := contentHashFromCtx(ctx)
		out, warns, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
		res.Warnings = append(res.Warnings, warns...)
		if err != nil {
			e.logger.Error("heic conversion failed", "path", path, "error", err)
			return res, err
		}
		if cleanup != nil {
			defer cleanup()
		}
		imgPath = out
	case constants.IsWebPExt(ext):
		out, cleanup, err := convertWebPToPNG(path)
		if err != nil {
			return res, fmt.Errorf("cannot load capture %s: %v: %w", path, err, common.ErrNotFound)
		}
		defer cleanup()
		imgPath = out
	default:
		if err := checkDecodable(path); err != nil {
			return res, fmt.Errorf("cannot load capture %s: %v: %w", path, err, common.ErrNotFound)
		}
	}

	txt, conf, err := e.engine.Recognize(ctx, imgPath)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(txt)
	res.Confidence = blendConfidence(conf, heuristicConfidence(res.Text))
	return res, nil
}

func checkDecodable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err
}
