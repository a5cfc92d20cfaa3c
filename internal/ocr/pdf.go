package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/joseph-ayodele/traveler-intake/constants"
)

// minTextLayerChars is the shortest embedded text layer we trust; anything
// shorter is treated as a scanned PDF and rasterized.
const minTextLayerChars = 16

func (e *Extractor) extractPDF(ctx context.Context, path string) (ExtractionResult, error) {
	res := ExtractionResult{SourceType: constants.PDF, Language: e.cfg.TesseractLang}

	txt, pages, err := pdfTextLayer(ctx, path, e.cfg.MaxPages)
	if err != nil {
		e.logger.Debug("pdf text layer unavailable", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "text layer: "+err.Error())
	}
	if len(strings.TrimSpace(txt)) >= minTextLayerChars {
		res.Text = Normalize(txt)
		res.Pages = pages
		res.Method = "pdf-text"
		res.Confidence = blendConfidence(0.95, heuristicConfidence(res.Text))
		return res, nil
	}

	txt, pages, conf, warns, err := e.pdfToOCR(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(txt)
	res.Pages = pages
	res.Method = "pdf-ocr"
	res.Confidence = blendConfidence(conf, heuristicConfidence(res.Text))
	return res, nil
}

// pdfTextLayer reads embedded text page by page. E-ticket and mobile
// boarding-pass PDFs usually carry one.
func pdfTextLayer(ctx context.Context, path string, maxPages int) (text string, pages int, err error) {
	// the parser panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			text, pages, err = "", 0, fmt.Errorf("parse pdf: %v", p)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var b strings.Builder
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(content)
	}
	return b.String(), total, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, int, float32, []string, error) {
	tmpDir, err := os.MkdirTemp("", "ti-pp-*")
	if err != nil {
		return "", 0, 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, 0, []string{string(errb)}, fmt.Errorf("pdftoppm: %w", err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var (
		b       strings.Builder
		warns   []string
		confSum float32
	)
	for _, img := range matches {
		txt, conf, err := e.engine.Recognize(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
		confSum += conf
	}
	return b.String(), len(matches), confSum / float32(len(matches)), warns, nil
}
