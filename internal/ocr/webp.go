package ocr

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/webp"
)

// convertWebPToPNG decodes a WebP capture in-process since tesseract builds
// often lack WebP support.
func convertWebPToPNG(in string) (string, func(), error) {
	src, err := os.Open(in)
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	img, err := webp.Decode(src)
	if err != nil {
		return "", nil, fmt.Errorf("decode webp: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "ti-webp-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	dst, err := os.Create(out)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if err := png.Encode(dst, img); err != nil {
		_ = dst.Close()
		cleanup()
		return "", nil, fmt.Errorf("encode png: %w", err)
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return out, cleanup, nil
}
