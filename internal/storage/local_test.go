package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.jpg")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := NewLocalStore(filepath.Join(dir, "bucket"), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	key := "images/CBP/US/CA/LAX/20250715/passport/main/morning/img-1.jpg"
	uri, err := store.Upload(context.Background(), src, key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.HasPrefix(uri, "file://") || !strings.HasSuffix(uri, "/img-1.jpg") {
		t.Fatalf("unexpected uri %q", uri)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "jpeg bytes" {
		t.Fatalf("expected copied bytes, got %q", b)
	}
}

func TestLocalStoreUploadMissingSource(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Upload(context.Background(), "/does/not/exist.jpg", "k.jpg")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Open(context.Background(), "k.jpg"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on open, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "raw.json")
	if err := WriteJSON(path, map[string]any{"text": "DOE", "gender": nil}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"gender\": null") {
		t.Fatalf("expected indented null, got %s", b)
	}
	var back map[string]any
	if err := json.Unmarshal(b, &back); err != nil || back["text"] != "DOE" {
		t.Fatalf("expected round trip, got %v (%v)", back, err)
	}
}
