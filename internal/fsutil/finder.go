// Package fsutil provides file system utility functions.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns their full paths in lexical order.
// A root that is itself a matching file is returned as the only result.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// Exists reports whether path exists. Errors other than "not exist" are
// returned so that permission problems are not mistaken for absence.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
}

// MoveEntries moves every top-level entry of src into dst, creating dst if
// needed. Existing entries in dst are left untouched and reported as an
// error.
func MoveEntries(src, dst string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}

	var moved []string
	for _, e := range entries {
		target := filepath.Join(dst, e.Name())
		if ok, err := Exists(target); err != nil {
			return moved, err
		} else if ok {
			return moved, fmt.Errorf("'%s' already exists", target)
		}
		if err := os.Rename(filepath.Join(src, e.Name()), target); err != nil {
			return moved, err
		}
		moved = append(moved, target)
	}
	return moved, nil
}
