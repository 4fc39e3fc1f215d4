// Package paths provides utilities for file path handling in downloads.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesDir means a resolved path lands outside its target directory.
var ErrEscapesDir = errors.New("path escapes target directory")

// maxAttempts bounds the numbered-suffix search.
const maxAttempts = 10000

// UniquePath returns a path in dir for name that does not exist yet.
// An existing "report.pdf" yields "report (1).pdf", then "report (2).pdf".
func UniquePath(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	for i := 1; i < maxAttempts; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

// CreateUnique creates and opens a new file in dir named after name,
// adding a numbered suffix on collision. The O_EXCL create makes two
// concurrent downloads of the same name land in different files.
func CreateUnique(dir, name string) (*os.File, error) {
	for attempt := 0; attempt < 5; attempt++ {
		p, err := UniquePath(dir, name)
		if err != nil {
			return nil, err
		}
		if err := Within(dir, p); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not create a unique file for %s in %s", name, dir)
}

// Within reports an error unless p, resolved against dir, stays inside dir.
func Within(dir, p string) error {
	base, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	rel, err := filepath.Rel(base, filepath.Clean(p))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEscapesDir, p)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrEscapesDir, p)
	}
	return nil
}

func exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil
}
