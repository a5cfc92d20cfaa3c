package ocr

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

// fakeRunner answers tesseract with canned text and materializes the output
// files converters would write.
type fakeRunner struct {
	mu     sync.Mutex
	calls  [][]string
	stdout string
	fail   map[string]error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	if err := f.fail[name]; err != nil {
		return nil, []byte("boom"), err
	}
	switch name {
	case "magick":
		return nil, nil, os.WriteFile(args[len(args)-1], []byte("png"), 0o644)
	case "pdftoppm":
		prefix := args[len(args)-1]
		for _, p := range []string{"-1.png", "-2.png"} {
			if err := os.WriteFile(prefix+p, []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		return []byte(f.stdout), nil, nil
	}
	return nil, nil, nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c[0])
	}
	return out
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestExtractMissingFileIsNotFound(t *testing.T) {
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.jpg"))
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractUndecodableImageIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{}
	e := NewExtractor(Config{}, nil, WithRunner(r))
	_, err := e.Extract(context.Background(), path)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(r.commands()) != 0 {
		t.Fatalf("expected no commands, got %v", r.commands())
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))
	_, err := e.Extract(context.Background(), path)
	if !errors.Is(err, common.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestExtractImageNormalizesText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passport.png")
	writePNG(t, path)
	r := &fakeRunner{stdout: "PASSPORT\r\nSurname\t\tDOE\n\n\n\n-----\nP<USADOE«JOHN\n"}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := "PASSPORT\nSurname DOE\n\nP<USADOE<<JOHN"
	if res.Text != want {
		t.Fatalf("expected %q, got %q", want, res.Text)
	}
	if res.Method != "image-ocr" || res.Engine != "tesseract" {
		t.Fatalf("expected image-ocr via tesseract, got %s via %s", res.Method, res.Engine)
	}
	if res.Confidence <= 0 {
		t.Fatalf("expected positive confidence, got %f", res.Confidence)
	}
}

func TestExtractHEICConvertsFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.heic")
	if err := os.WriteFile(path, []byte("heic"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{stdout: "BOARDING PASS"}
	e := NewExtractor(Config{HeicConverter: "magick", ArtifactCacheDir: filepath.Join(dir, "cache")}, nil, WithRunner(r))

	ctx := WithContentHash(context.Background(), "abc123")
	if _, err := e.Extract(ctx, path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	got := strings.Join(r.commands(), ",")
	if got != "magick,tesseract" {
		t.Fatalf("expected magick then tesseract, got %s", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", "abc123.png")); err != nil {
		t.Fatalf("expected cached png, got %v", err)
	}

	// second pass reuses the cached conversion
	if _, err := e.Extract(ctx, path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := strings.Join(r.commands(), ","); got != "magick,tesseract,tesseract" {
		t.Fatalf("expected cached conversion, got %s", got)
	}
}

func TestExtractHEICWithoutConverter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.heic")
	if err := os.WriteFile(path, []byte("heic"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := NewExtractor(Config{}, nil, WithRunner(&fakeRunner{}))
	if _, err := e.Extract(context.Background(), path); err == nil {
		t.Fatal("expected error without converter")
	}
}

func TestExtractScannedPDFFallsBackToOCR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eticket.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nnot really"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := &fakeRunner{stdout: "FLIGHT BA178"}
	e := NewExtractor(Config{}, nil, WithRunner(r))

	res, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Method != "pdf-ocr" {
		t.Fatalf("expected pdf-ocr, got %s", res.Method)
	}
	if res.Pages != 2 {
		t.Fatalf("expected 2 pages, got %d", res.Pages)
	}
	if res.Text != "FLIGHT BA178\nFLIGHT BA178" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestTesseractArgs(t *testing.T) {
	eng := NewTesseractEngine(Config{TesseractLang: "eng+fra", PSM: 6, TessdataDir: "/td"}, nil)
	got := strings.Join(eng.args("img.png"), " ")
	want := "img.png stdout -l eng+fra --psm 6 --tessdata-dir /td"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t10\t10\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t0\t0\t10\t10\t90\tDOE\n" +
		"5\t1\t1\t1\t1\t2\t0\t0\t10\t10\t70\tJOHN\n"
	if got := meanTSVConfidence(tsv); got < 0.79 || got > 0.81 {
		t.Fatalf("expected 0.8, got %f", got)
	}
	if got := meanTSVConfidence(""); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}
