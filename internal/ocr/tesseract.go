package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// TesseractEngine shells out to the tesseract CLI.
type TesseractEngine struct {
	cfg    Config
	runner Runner
}

func NewTesseractEngine(cfg Config, r Runner) *TesseractEngine {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	return &TesseractEngine{cfg: cfg, runner: r}
}

func (t *TesseractEngine) Name() string { return "tesseract" }

// Recognize returns plain text. Confidence is the mean word confidence when
// TSV scoring is enabled, otherwise 0.
func (t *TesseractEngine) Recognize(ctx context.Context, path string) (string, float32, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(path)...)
	if err != nil {
		return "", 0, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	txt := reBoxNoise.ReplaceAllString(string(out), "")

	if !t.cfg.EnableTSVConfidence {
		return txt, 0, nil
	}
	conf, err := t.tsvConfidence(ctx, path)
	if err != nil {
		return txt, 0, nil
	}
	return txt, conf, nil
}

func (t *TesseractEngine) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (t *TesseractEngine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := t.runner.Run(ctx, t.cfg.Tesseract, t.args(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
