// Package pathid normalizes file references into canonical identity strings.
// Two references denote the same document iff their normalized forms match,
// or when a bare name stored historically in a dataset resolves against the
// configured root to the same normalized form.
package pathid

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize produces a canonical absolute form of path: user prefix expanded,
// relative segments resolved, symlinks followed where the path exists on
// disk. It has no side effects.
func Normalize(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	// Historical dataset entries may name files that no longer exist; symlink
	// resolution is best-effort for those.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", err
	}
	return resolved, nil
}

// IdentityIDs returns the identity strings for path: its normalized form,
// plus the normalized form of root/path when path is not already rooted.
// A dataset recorded with bare file names still matches an absolute input
// path this way, and vice versa.
func IdentityIDs(path, root string) ([]string, error) {
	id, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	ids := []string{id}
	rooted, err := isRooted(path, root)
	if err != nil {
		return nil, err
	}
	if !rooted {
		rid, err := Normalize(filepath.Join(root, path))
		if err != nil {
			return nil, err
		}
		if rid != id {
			ids = append(ids, rid)
		}
	}
	return ids, nil
}

// BuildIdentitySet is the union of IdentityIDs over a collection of paths.
func BuildIdentitySet(paths []string, root string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		ids, err := IdentityIDs(p, root)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return set, nil
}

// isRooted reports whether path already carries root's path components.
// Relative paths are never considered rooted.
func isRooted(path, root string) (bool, error) {
	if !filepath.IsAbs(path) {
		return false, nil
	}
	pn, err := Normalize(path)
	if err != nil {
		return false, err
	}
	rn, err := Normalize(root)
	if err != nil {
		return false, err
	}
	return pn == rn || strings.HasPrefix(pn, rn+string(filepath.Separator)), nil
}
