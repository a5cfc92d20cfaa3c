package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Resolved   uint32
	Rejected   uint32
	Unreadable uint32
}

// Rejection is a capture that could not be turned into a Target.
type Rejection struct {
	Path string
	Err  error
}

// ScanDirectory walks root for captures laid out as <doc_type>/<subtype>/<file>,
// skipping hidden entries when asked. Files with a capture extension that
// cannot be resolved or sniffed are reported as rejections.
func ScanDirectory(root string, skipHidden bool) ([]Target, []Rejection, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}

	var (
		targets  []Target
		rejected []Rejection
		stats    DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			rejected = append(rejected, Rejection{Path: path, Err: walkErr})
			stats.Unreadable++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(path) {
			return nil
		}
		stats.Matched++

		t, err := Resolve(root, path)
		if err == nil {
			_, err = Sniff(path)
		}
		if err != nil {
			rejected = append(rejected, Rejection{Path: path, Err: err})
			stats.Rejected++
			return nil
		}
		targets = append(targets, t)
		stats.Resolved++
		return nil
	})
	if err != nil {
		return targets, rejected, stats, fmt.Errorf("walk: %w", err)
	}
	return targets, rejected, stats, nil
}
