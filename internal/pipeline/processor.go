package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/entity"
	"github.com/joseph-ayodele/traveler-intake/internal/events"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/metrics"
	"github.com/joseph-ayodele/traveler-intake/internal/ocr"
	"github.com/joseph-ayodele/traveler-intake/internal/repository"
	"github.com/joseph-ayodele/traveler-intake/internal/schema"
	"github.com/joseph-ayodele/traveler-intake/internal/storage"
)

// TextExtractor is the OCR stage; *ocr.Extractor satisfies it.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// Capture is one file waiting to be processed.
type Capture struct {
	Path    string
	DocType constants.DocumentType
	Subtype constants.Subtype
	// Date is the YYYYMMDD folder in the storage key; empty means today.
	Date string
}

type Result struct {
	DocumentID  string
	DocType     constants.DocumentType
	Subtype     constants.Subtype
	StorageKey  string
	Fields      map[string]any
	JSONPath    string
	NeedsReview bool
	Flags       []common.ValidationError
	OCRMethod   string
	Confidence  float32
}

type Processor struct {
	logger    *slog.Logger
	ocr       TextExtractor
	docs      repository.DocumentRepository
	store     storage.Uploader
	keys      storage.KeyBuilder
	schemas   *schema.Registry
	publisher events.Publisher
	metrics   *metrics.Pipeline
	service   string
	now       func() time.Time
}

// Deps groups the collaborators of a Processor. Publisher and Metrics are
// optional.
type Deps struct {
	OCR       TextExtractor
	Documents repository.DocumentRepository
	Store     storage.Uploader
	Keys      storage.KeyBuilder
	Schemas   *schema.Registry
	Publisher events.Publisher
	Metrics   *metrics.Pipeline
	Service   string
}

func NewProcessor(d Deps, logger *slog.Logger) (*Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if d.OCR == nil || d.Documents == nil || d.Store == nil {
		return nil, fmt.Errorf("processor needs ocr, documents and store: %w", common.ErrInvalidInput)
	}
	if d.Schemas == nil {
		reg, err := schema.NewRegistry()
		if err != nil {
			return nil, err
		}
		d.Schemas = reg
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Service == "" {
		d.Service = "travelerd"
	}
	return &Processor{
		logger:    logger,
		ocr:       d.OCR,
		docs:      d.Documents,
		store:     d.Store,
		keys:      d.Keys,
		schemas:   d.Schemas,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		service:   d.Service,
		now:       time.Now,
	}, nil
}

// Process runs one capture through every stage. A capture whose content was
// already extracted returns the stored result together with ErrDuplicate.
func (p *Processor) Process(ctx context.Context, c Capture) (*Result, error) {
	if err := validateCapture(c); err != nil {
		return nil, err
	}
	hash, err := ingest.HashFile(c.Path)
	if err != nil {
		return nil, err
	}

	doc, err := p.begin(ctx, c, hash)
	if err != nil {
		return p.duplicate(doc, err)
	}

	ctx = common.WithDocumentID(ctx, doc.ID)
	ctx = ocr.WithContentHash(ctx, hash)
	log := common.LoggerFromContext(ctx, p.logger)

	start := time.Now()
	p.metrics.StartDocument()
	res, err := p.run(ctx, log, c, doc)
	status := constants.JobStatusExtracted
	if err != nil {
		status = constants.JobStatusFailed
		p.fail(ctx, log, doc.ID, err)
	}
	p.metrics.FinishDocument(p.service, string(c.DocType), string(status), time.Since(start))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// begin records the capture, reusing the row of an earlier failed attempt.
func (p *Processor) begin(ctx context.Context, c Capture, hash string) (*entity.Document, error) {
	prev, err := p.docs.GetByHash(ctx, hash)
	switch {
	case err == nil && prev.Status == constants.JobStatusFailed:
		if err := p.docs.Restart(ctx, prev.ID); err != nil {
			return nil, err
		}
		p.logger.Info("retrying failed document", "doc_id", prev.ID, "path", c.Path)
		prev.Status = constants.JobStatusRunning
		return prev, nil
	case err == nil:
		return prev, fmt.Errorf("content %s already recorded as %s: %w", hash[:12], prev.ID, common.ErrDuplicate)
	case !errors.Is(err, common.ErrNotFound):
		return nil, err
	}

	key := p.keys.ImageKey(c.Date, c.DocType, c.Subtype, p.now())
	key = key[:len(key)-len(filepath.Ext(key))] + "." + constants.NormalizeExt(filepath.Ext(c.Path))
	return p.docs.Start(ctx, repository.StartParams{
		DocType:     c.DocType,
		Subtype:     c.Subtype,
		SourcePath:  c.Path,
		ContentHash: hash,
		StorageKey:  key,
	})
}

func (p *Processor) duplicate(doc *entity.Document, err error) (*Result, error) {
	if doc == nil || !errors.Is(err, common.ErrDuplicate) {
		return nil, err
	}
	p.logger.Info("skipping duplicate capture", "doc_id", doc.ID, "status", doc.Status)
	res := &Result{
		DocumentID:  doc.ID,
		DocType:     doc.DocType,
		Subtype:     doc.Subtype,
		StorageKey:  doc.StorageKey,
		NeedsReview: doc.NeedsReview,
		JSONPath:    storage.PassengerJSONPath(doc.SourcePath),
	}
	if m, ferr := doc.Fields(); ferr == nil {
		res.Fields = m
	}
	return res, err
}

func (p *Processor) run(ctx context.Context, log *slog.Logger, c Capture, doc *entity.Document) (*Result, error) {
	if _, err := p.store.Upload(ctx, c.Path, doc.StorageKey); err != nil {
		return nil, fmt.Errorf("upload capture: %w", err)
	}

	t0 := time.Now()
	text, err := p.ocr.Extract(ctx, c.Path)
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	p.metrics.ObserveStage(p.service, "ocr", time.Since(t0))
	p.metrics.ObserveOCR(p.service, text.Method, text.Confidence)
	if err := p.docs.FinishOCR(ctx, doc.ID, text.Text, text.Method, text.Confidence); err != nil {
		return nil, err
	}
	log.Debug("ocr finished", "method", text.Method, "engine", text.Engine,
		"confidence", text.Confidence, "duration_ms", text.Duration.Milliseconds())

	rawPath := storage.RawOCRPath(c.Path)
	if err := storage.WriteJSON(rawPath, fields.RawText{Text: text.Text}); err != nil {
		return nil, err
	}
	if _, err := p.store.Upload(ctx, rawPath, storage.RawOCRKey(doc.StorageKey)); err != nil {
		return nil, fmt.Errorf("upload raw ocr: %w", err)
	}

	ext, err := Standardize(c.DocType, text.Text)
	if err != nil {
		return nil, err
	}
	if err := p.schemas.ValidateFields(c.DocType, ext.Record); err != nil {
		return nil, err
	}
	p.metrics.RecordFields(p.service, string(c.DocType), ext.Fields)
	for _, f := range ext.Flags {
		log.Warn("field needs review", "field", f.Field, "reason", f.Message)
	}

	jsonPath := storage.PassengerJSONPath(c.Path)
	if err := storage.WriteJSON(jsonPath, ext.Record); err != nil {
		return nil, err
	}
	if _, err := p.store.Upload(ctx, jsonPath, storage.PassengerJSONPath(doc.StorageKey)); err != nil {
		return nil, fmt.Errorf("upload fields: %w", err)
	}

	body, err := json.Marshal(ext.Record)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	needsReview := ext.NeedsReview()
	if err := p.docs.FinishExtract(ctx, doc.ID, body, needsReview); err != nil {
		return nil, err
	}

	ev := events.DocumentExtracted{
		DocumentID:  doc.ID,
		DocType:     string(c.DocType),
		Subtype:     string(c.Subtype),
		StorageKey:  doc.StorageKey,
		NeedsReview: needsReview,
		ExtractedAt: p.now().UTC(),
	}
	if err := p.publisher.PublishDocumentExtracted(ctx, ev); err != nil {
		// The row is already EXTRACTED; consumers can catch up from the table.
		log.Warn("document extracted event not published", "error", err)
	}

	log.Info("document extracted", "doc_type", c.DocType, "subtype", c.Subtype,
		"needs_review", needsReview, "json_path", jsonPath)
	return &Result{
		DocumentID:  doc.ID,
		DocType:     c.DocType,
		Subtype:     c.Subtype,
		StorageKey:  doc.StorageKey,
		Fields:      ext.Fields,
		JSONPath:    jsonPath,
		NeedsReview: needsReview,
		Flags:       ext.Flags,
		OCRMethod:   text.Method,
		Confidence:  text.Confidence,
	}, nil
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, id string, cause error) {
	log.Error("document processing failed", "error", cause)
	if err := p.docs.FinishFailure(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		log.Error("failed to record failure", "error", err)
	}
}

func validateCapture(c Capture) error {
	if c.Path == "" {
		return fmt.Errorf("capture path is required: %w", common.ErrInvalidInput)
	}
	if !constants.ValidSubtype(c.DocType, c.Subtype) {
		return fmt.Errorf("subtype %q is not valid for %q: %w", c.Subtype, c.DocType, common.ErrInvalidInput)
	}
	if !constants.IsAllowedExt(constants.NormalizeExt(filepath.Ext(c.Path))) {
		return fmt.Errorf("extension of %s: %w", c.Path, common.ErrUnsupported)
	}
	return nil
}
