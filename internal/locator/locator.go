// Package locator implements the sample locator of spec §4/component C6:
// resolving a sample reference recorded inside a preset file (an absolute
// path, a path relative to the preset, or a bare filename) against what
// actually exists on disk, falling back to a bounded recursive search when
// neither resolves directly.
package locator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/git-moss/ConvertWithMoss-sub005/internal/cwmerr"
)

// DefaultMaxSearchDepth bounds the recursive fallback search so a
// pathological source tree can't make resolution unbounded.
const DefaultMaxSearchDepth = 6

// Resolver resolves sample references recorded by a preset file against
// the filesystem.
type Resolver struct {
	// PresetDir is the directory containing the preset file itself;
	// relative references resolve against it.
	PresetDir string
	// SearchRoots are additional directories to fall back to recursive
	// search under (typically the top-level source-tree root passed to
	// the pipeline).
	SearchRoots []string
	// MaxDepth bounds the recursive fallback; zero means
	// DefaultMaxSearchDepth.
	MaxDepth int

	index map[string][]string // lower-cased base name -> absolute paths, built lazily
}

// Resolve finds the on-disk path for a sample reference exactly as recorded
// in the preset (may be absolute, backslash-separated, or relative).
func (r *Resolver) Resolve(reference string) (string, error) {
	ref := normalizeSeparators(reference)
	if filepath.IsAbs(ref) {
		if fileExists(ref) {
			return ref, nil
		}
	} else if r.PresetDir != "" {
		candidate := filepath.Join(r.PresetDir, ref)
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	base := filepath.Base(ref)
	if found, ok := r.searchByName(base); ok {
		return found, nil
	}
	return "", cwmerr.New(cwmerr.KindSampleNotFound, "IDS_ERR_SAMPLE_NOT_FOUND", reference, nil)
}

// searchByName performs (and memoizes) a bounded recursive search rooted at
// PresetDir and every SearchRoots entry, matching case-insensitively on
// base filename — the common recovery path when a library has been moved
// to a different drive or renamed a containing folder.
func (r *Resolver) searchByName(base string) (string, bool) {
	if r.index == nil {
		r.buildIndex()
	}
	matches, ok := r.index[strings.ToLower(base)]
	if !ok || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func (r *Resolver) buildIndex() {
	r.index = map[string][]string{}
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSearchDepth
	}
	roots := append([]string{}, r.SearchRoots...)
	if r.PresetDir != "" {
		roots = append(roots, r.PresetDir)
	}
	seenRoot := map[string]bool{}
	for _, root := range roots {
		if root == "" || seenRoot[root] {
			continue
		}
		seenRoot[root] = true
		walkBounded(root, maxDepth, func(path string) {
			key := strings.ToLower(filepath.Base(path))
			r.index[key] = append(r.index[key], path)
		})
	}
}

// walkBounded walks root up to maxDepth directory levels deep, invoking fn
// for every regular file found. It never follows symlinked directories (to
// avoid cycles a plain filepath.Walk bounded-depth check wouldn't catch).
func walkBounded(root string, maxDepth int, fn func(path string)) {
	var recurse func(dir string, depth int)
	recurse = func(dir string, depth int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if depth < maxDepth {
					recurse(full, depth+1)
				}
				continue
			}
			fn(full)
		}
	}
	recurse(root, 0)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func normalizeSeparators(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))
}
