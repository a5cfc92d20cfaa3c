package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

// headerSize covers every magic number filetype inspects.
const headerSize = 261

// Sniff checks a capture's magic bytes and returns the detected extension.
// Anything that is neither an image nor a PDF is rejected, whatever its name.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, common.ErrNotFound)
		}
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read header: %w", err)
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("match header: %w", err)
	}
	if kind == filetype.Unknown {
		return "", fmt.Errorf("%s has unrecognized content: %w", path, common.ErrUnsupported)
	}
	if kind != matchers.TypePdf && !filetype.IsImage(head) {
		return "", fmt.Errorf("%s is %s, not an image or pdf: %w", path, kind.MIME.Value, common.ErrUnsupported)
	}
	return kind.Extension, nil
}
