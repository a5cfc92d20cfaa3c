// Package ingest discovers captured travel documents on disk and works out
// what each one is from where it was dropped.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
)

// Target is a capture file with its document type and subtype resolved.
type Target struct {
	Path    string
	DocType constants.DocumentType
	Subtype constants.Subtype
}

// Resolve reads the document type and subtype from a capture laid out as
// <root>/<doc_type>/<subtype>/<file>. Passports may omit the subtype folder.
func Resolve(root, path string) (Target, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Target{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." {
		return Target{}, fmt.Errorf("%s is not under <doc_type>/<subtype>/: %w", path, common.ErrInvalidInput)
	}

	dt, ok := constants.CanonicalizeDocumentType(parts[0])
	if !ok {
		return Target{}, fmt.Errorf("unknown document type folder %q: %w", parts[0], common.ErrInvalidInput)
	}
	sub := ""
	if len(parts) > 2 {
		sub = parts[1]
	}
	st, ok := constants.CanonicalizeSubtype(sub)
	if !ok || !constants.ValidSubtype(dt, st) {
		return Target{}, fmt.Errorf("subtype folder %q is not valid for %s: %w", sub, dt, common.ErrInvalidInput)
	}
	return Target{Path: path, DocType: dt, Subtype: st}, nil
}

// HashFile returns the hex sha256 of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", path, common.ErrNotFound)
		}
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// AllowedExt checks if a file extension is in the allowed capture set.
func AllowedExt(path string) bool {
	return constants.IsAllowedExt(constants.NormalizeExt(filepath.Ext(path)))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
