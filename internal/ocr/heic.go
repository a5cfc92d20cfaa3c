package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 of the capture so converted
// artifacts can be cached by content.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// convertHEICtoPNG converts a HEIC/HEIF phone capture to PNG with an external
// converter ("heif-convert", "magick" or "sips"). When cacheDir and hashHex are
// set the PNG is kept at {cacheDir}/{hashHex}.png and reused; cleanup is then
// nil. Otherwise the PNG lives in a temp dir removed by cleanup.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, in, cacheDir, hashHex string) (string, []string, func(), error) {
	caching := cacheDir != "" && hashHex != ""
	var out string
	cleanup := func() {}

	if caching {
		out = filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(out); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", out)
			return out, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	} else {
		tmpDir, err := os.MkdirTemp("", "ti-heic-*")
		if err != nil {
			return "", nil, nil, err
		}
		cleanup = func() { _ = os.RemoveAll(tmpDir) }
		out = filepath.Join(tmpDir, "page.png")
	}

	var args []string
	switch converter {
	case "heif-convert", "magick":
		args = []string{in, out}
	case "sips":
		args = []string{"-s", "format", "png", in, "--out", out}
	default:
		cleanup()
		return "", nil, nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, errb, err := r.Run(ctx, converter, args...); err != nil {
		cleanup()
		return "", []string{string(errb)}, nil, fmt.Errorf("%s convert failed: %w", converter, err)
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", nil, nil, fmt.Errorf("HEIC conversion produced no output: %v", err)
	}

	if caching {
		logger.Debug("cached heic->png", "cache", out)
		return out, nil, nil, nil
	}
	return out, nil, cleanup, nil
}
