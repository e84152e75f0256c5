// Package ingest lists the input documents a run will extract.
package ingest

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nbirkbak/journalist/constants"
	"github.com/nbirkbak/journalist/internal/common"
)

// Stats aggregates one directory scan.
type Stats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// Scan walks root, keeps files whose extension is in the allowed set, skips
// hidden entries, and applies optional doublestar include patterns against
// the root-relative path. Returns the matched paths in walk order.
func Scan(root string, include []string) ([]string, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, Stats{}, common.NewAppError("INGEST", "root path is required", common.ErrInvalidInput)
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, Stats{}, common.NewAppError("INGEST", "invalid include pattern "+pattern, common.ErrInvalidInput)
		}
	}

	var paths []string
	var stats Stats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		if len(include) > 0 {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			matched := false
			for _, pattern := range include {
				if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
					matched = true
					break
				}
			}
			if !matched {
				stats.Skipped++
				return nil
			}
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && pathErr.Path == root {
			return nil, stats, common.NewAppError("INGEST", "cannot walk root "+root, err)
		}
		return nil, stats, common.WrapError(err, "walk input root")
	}
	return paths, stats, nil
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
