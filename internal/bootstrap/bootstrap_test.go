package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/repository"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := common.DefaultConfig()
	cfg.Database.DSN = ":memory:"
	cfg.Storage.Root = filepath.Join(dir, "data")
	cfg.Storage.FormsDir = filepath.Join(dir, "forms")
	cfg.Site = common.SiteConfig{Agency: "CBP", Country: "USA", State: "CA", AirportCode: "LAX"}
	return cfg
}

func TestNewWiresPipeline(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), "test", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Processor == nil || app.Exporter == nil || app.Submitter == nil || app.Metrics == nil {
		t.Fatalf("expected every stage wired, got %+v", app)
	}
	if app.DB.Dialect != repository.SQLite {
		t.Fatalf("expected sqlite dialect, got %q", app.DB.Dialect)
	}
	docs, err := app.Documents.List(context.Background(), repository.ListFilter{})
	if err != nil {
		t.Fatalf("List() on migrated database error = %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty database, got %d documents", len(docs))
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"
	if _, err := New(context.Background(), cfg, "test", nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOCRConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.OCR.TesseractBinary = "/usr/bin/tesseract"
	cfg.OCR.Language = "eng+spa"
	cfg.OCR.HeicConverter = "heif-convert"

	got := OCRConfig(cfg)
	if got.Tesseract != "/usr/bin/tesseract" || got.TesseractLang != "eng+spa" || got.HeicConverter != "heif-convert" {
		t.Fatalf("unexpected ocr config %+v", got)
	}
	if got.ArtifactCacheDir != filepath.Join(cfg.Storage.Root, ".cache") {
		t.Fatalf("expected cache under storage root, got %q", got.ArtifactCacheDir)
	}
}

func TestSite(t *testing.T) {
	s := Site(testConfig(t))
	if s.AirportCode != "LAX" || s.Agency != "CBP" {
		t.Fatalf("unexpected site %+v", s)
	}
}

func TestNewExtractorDefaultsToTesseract(t *testing.T) {
	x, closeFn, err := NewExtractor(context.Background(), testConfig(t), nil)
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	defer closeFn()
	if x == nil {
		t.Fatal("expected an extractor")
	}
}
