// Package server exposes the intake pipeline over gRPC and HTTP.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/entity"
	"github.com/joseph-ayodele/traveler-intake/internal/ingest"
	"github.com/joseph-ayodele/traveler-intake/internal/pipeline"
	"github.com/joseph-ayodele/traveler-intake/internal/prefill"
)

// Processor runs a capture through the pipeline synchronously.
type Processor interface {
	Process(ctx context.Context, c pipeline.Capture) (*pipeline.Result, error)
}

type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*entity.Document, error)
}

type Exporter interface {
	TravelersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error)
}

type DeclarationSubmitter interface {
	Submit(ctx context.Context, d prefill.Declaration) (prefill.Submission, error)
}

// Deps are the collaborators shared by the gRPC and HTTP surfaces. Any of
// them may be nil; the matching endpoints then answer Unimplemented / 501.
type Deps struct {
	Processor    Processor
	Documents    DocumentReader
	Exporter     Exporter
	Declarations DeclarationSubmitter
	// CaptureDir is the watched capture root; paths under it may omit doc_type.
	CaptureDir string
	// UploadDir receives HTTP uploads as <doc_type>/<subtype>/<id>.<ext>. It
	// must not sit under CaptureDir or the watcher would pick uploads up too.
	UploadDir string
}

// standardizeResponse is the wire shape of a standardize call on both surfaces.
func standardizeResponse(ext pipeline.Extraction) map[string]any {
	review := make([]any, 0, len(ext.Flags))
	for _, f := range ext.Flags {
		review = append(review, map[string]any{"field": f.Field, "message": f.Message})
	}
	return map[string]any{
		"doc_type":     string(ext.DocType),
		"fields":       ext.Fields,
		"needs_review": ext.NeedsReview(),
		"review":       review,
	}
}

func resultResponse(res *pipeline.Result) map[string]any {
	return map[string]any{
		"document_id":  res.DocumentID,
		"doc_type":     string(res.DocType),
		"subtype":      string(res.Subtype),
		"storage_key":  res.StorageKey,
		"fields":       res.Fields,
		"needs_review": res.NeedsReview,
	}
}

func documentResponse(d *entity.Document) map[string]any {
	out := map[string]any{
		"document_id":  d.ID,
		"doc_type":     string(d.DocType),
		"subtype":      string(d.Subtype),
		"status":       string(d.Status),
		"storage_key":  d.StorageKey,
		"needs_review": d.NeedsReview,
		"created_at":   d.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m, err := d.Fields(); err == nil && m != nil {
		out["fields"] = m
	}
	if d.ErrorMessage != nil {
		out["error"] = *d.ErrorMessage
	}
	return out
}

// captureRequest is the transport-neutral form of a process call.
type captureRequest struct {
	Path    string `json:"path"`
	DocType string `json:"doc_type"`
	Subtype string `json:"subtype"`
	Date    string `json:"date"`
}

// capture resolves a request into a pipeline capture. Without an explicit
// doc_type the path must sit under CaptureDir in the doc_type/subtype layout.
func (d Deps) capture(req captureRequest) (pipeline.Capture, error) {
	if strings.TrimSpace(req.Path) == "" {
		return pipeline.Capture{}, fmt.Errorf("path is required: %w", common.ErrInvalidInput)
	}
	if strings.TrimSpace(req.DocType) == "" {
		if d.CaptureDir == "" {
			return pipeline.Capture{}, fmt.Errorf("doc_type is required: %w", common.ErrInvalidInput)
		}
		t, err := ingest.Resolve(d.CaptureDir, req.Path)
		if err != nil {
			return pipeline.Capture{}, err
		}
		return pipeline.Capture{Path: t.Path, DocType: t.DocType, Subtype: t.Subtype, Date: req.Date}, nil
	}
	dt, ok := constants.CanonicalizeDocumentType(req.DocType)
	if !ok {
		return pipeline.Capture{}, fmt.Errorf("unknown doc_type %q: %w", req.DocType, common.ErrInvalidInput)
	}
	st, ok := constants.CanonicalizeSubtype(req.Subtype)
	if !ok {
		return pipeline.Capture{}, fmt.Errorf("unknown subtype %q: %w", req.Subtype, common.ErrInvalidInput)
	}
	return pipeline.Capture{Path: req.Path, DocType: dt, Subtype: st, Date: req.Date}, nil
}

// parseDay reads an optional YYYY-MM-DD bound.
func parseDay(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, common.ErrInvalidInput)
	}
	return &t, nil
}

// declarationRequest carries the per-document field mappings of one traveler
// and the answers typed in on the form.
type declarationRequest struct {
	Passport  map[string]any      `json:"passport"`
	Arrival   map[string]any      `json:"arrival"`
	Departure map[string]any      `json:"departure"`
	Answers   prefill.Declaration `json:"answers"`
}

func (r declarationRequest) declaration() prefill.Declaration {
	s := prefill.Session{Passport: r.Passport, Arrival: r.Arrival, Departure: r.Departure}
	return s.Declaration().Apply(r.Answers)
}
