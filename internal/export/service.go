// Package export writes processed documents out as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/entity"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
	"github.com/joseph-ayodele/traveler-intake/internal/repository"
)

const (
	passportSheet     = "Passports"
	boardingPassSheet = "Boarding Passes"
	failedSheet       = "Failed"
)

// Lister is the slice of the document repository an export needs.
type Lister interface {
	List(ctx context.Context, f repository.ListFilter) ([]*entity.Document, error)
}

type Service struct {
	docs   Lister
	logger *slog.Logger
	now    func() time.Time
}

func NewService(docs Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger, now: time.Now}
}

// TravelersXLSX returns a workbook with one sheet per document type plus the
// captures that failed, for documents created in the date window.
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> everything.
func (s *Service) TravelersXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	filter := s.window(from, to)

	docs, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	meta := []string{"Document ID", "Subtype", "Captured At", "Needs Review", "Storage Key"}
	sheets := map[constants.DocumentType]*sheetWriter{
		constants.Passport:     newSheet(f, passportSheet, append(append([]string{}, meta...), fields.PassportKeys...)),
		constants.BoardingPass: newSheet(f, boardingPassSheet, append(append([]string{}, meta...), fields.BoardingPassKeys...)),
	}
	failed := newSheet(f, failedSheet, []string{"Document ID", "Document Type", "Subtype", "Captured At", "Source Path", "Error"})
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(passportSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	keysFor := map[constants.DocumentType][]string{
		constants.Passport:     fields.PassportKeys,
		constants.BoardingPass: fields.BoardingPassKeys,
	}
	for _, d := range docs {
		captured := d.CreatedAt.UTC().Format(time.RFC3339)
		if d.Status == constants.JobStatusFailed {
			msg := ""
			if d.ErrorMessage != nil {
				msg = truncate(*d.ErrorMessage, 140)
			}
			failed.row(d.ID, string(d.DocType), string(d.Subtype), captured, d.SourcePath, msg)
			continue
		}
		w, ok := sheets[d.DocType]
		if !ok || d.Status != constants.JobStatusExtracted {
			continue
		}
		values, err := d.Fields()
		if err != nil {
			s.logger.Warn("skipping document with unreadable fields", "doc_id", d.ID, "error", err)
			continue
		}
		cells := []any{d.ID, string(d.Subtype), captured, yesNo(d.NeedsReview), d.StorageKey}
		for _, k := range keysFor[d.DocType] {
			if v, ok := values[k].(string); ok {
				cells = append(cells, v)
			} else {
				cells = append(cells, "")
			}
		}
		w.row(cells...)
	}

	for _, w := range sheets {
		w.finish()
	}
	failed.finish()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(docs),
		"passports", sheets[constants.Passport].rows,
		"boarding_passes", sheets[constants.BoardingPass].rows,
		"failed", failed.rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) window(from, to *time.Time) repository.ListFilter {
	var out repository.ListFilter
	if from != nil {
		f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
		out.From = &f
	}
	if to == nil && from != nil {
		now := s.now().UTC()
		to = &now
	}
	if to != nil {
		// inclusive of the whole day
		t := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
		out.To = &t
	}
	return out
}

type sheetWriter struct {
	f      *excelize.File
	name   string
	width  int
	rows   int
	widest []int
}

func newSheet(f *excelize.File, name string, headers []string) *sheetWriter {
	_, _ = f.NewSheet(name)
	w := &sheetWriter{f: f, name: name, width: len(headers), widest: make([]int, len(headers))}
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	w.write(1, cells)
	return w
}

func (w *sheetWriter) row(cells ...any) {
	w.rows++
	w.write(w.rows+1, cells)
}

func (w *sheetWriter) write(row int, cells []any) {
	for i, v := range cells {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = w.f.SetCellValue(w.name, cell, v)
		if s, ok := v.(string); ok && i < len(w.widest) && len(s) > w.widest[i] {
			w.widest[i] = len(s)
		}
	}
}

// finish widens each column to its longest value, within reason.
func (w *sheetWriter) finish() {
	for i, n := range w.widest {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(min(max(n+2, 10), 60))
		_ = w.f.SetColWidth(w.name, col, col, width)
	}
	_ = w.f.SetPanes(w.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
