package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExtensions are the file extensions treated as Fortran sources.
var DefaultExtensions = []string{".f77", ".f90", ".f95", ".f03", ".f", ".for"}

// DiscoverOptions controls which files Discover returns.
type DiscoverOptions struct {
	// Extensions lists accepted extensions including the dot. Matching is
	// exact. Empty means DefaultExtensions.
	Extensions []string

	// Exclude holds doublestar patterns ("build/**", "**/*_old.f90")
	// matched against slash-separated paths relative to each root.
	Exclude []string
}

// Discover walks every root and returns the absolute paths of the Fortran
// files found, de-duplicated and sorted lexically. A root may be a
// directory or a single file.
func Discover(roots []string, opts DiscoverOptions) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	for _, pat := range opts.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pat)
		}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", root, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("source root %s: %w", root, err)
		}

		if !info.IsDir() {
			if hasExtension(abs, exts) && !excluded(filepath.Base(abs), opts.Exclude) {
				add(abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == abs {
				return nil
			}
			rel, err := filepath.Rel(abs, path)
			if err != nil {
				return err
			}
			if excluded(filepath.ToSlash(rel), opts.Exclude) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && hasExtension(path, exts) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	slices.Sort(files)
	return files, nil
}

func hasExtension(path string, exts []string) bool {
	return slices.Contains(exts, filepath.Ext(path))
}

func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
