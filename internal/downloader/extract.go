package downloader

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TarGzWalker is called for each entry of a tar.gz stream.
type TarGzWalker func(header *tar.Header, payload io.Reader) error

// TarGzWalk reads a gzipped tarball entry by entry.
func TarGzWalk(from io.Reader, walker TarGzWalker) error {
	gzin, err := gzip.NewReader(from)
	if err != nil {
		return err
	}
	defer gzin.Close()

	tarin := tar.NewReader(gzin)
	for {
		header, err := tarin.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := walker(header, tarin); err != nil {
			return err
		}
	}
}

// entryPath resolves an archive entry name below root. Absolute names and
// names escaping root are rejected.
func entryPath(root, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return filepath.Join(root, clean), nil
}

// extractTarGz unpacks regular files and directories into root. Links and
// special files are skipped.
func extractTarGz(from io.Reader, root string) (int, error) {
	files := 0
	err := TarGzWalk(from, func(h *tar.Header, payload io.Reader) error {
		dest, err := entryPath(root, h.Name)
		if err != nil {
			return err
		}
		switch h.Typeflag {
		case tar.TypeDir:
			return os.MkdirAll(dest, 0o755)
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(dest, os.O_CREATE|os.O_RDWR|os.O_TRUNC, h.FileInfo().Mode().Perm()|0o600)
			if err != nil {
				return err
			}
			defer f.Close()
			if _, err := io.Copy(f, payload); err != nil {
				return err
			}
			files++
			return nil
		default:
			return nil
		}
	})
	return files, err
}

// isTarGz reports whether the URL names a gzipped tarball.
func isTarGz(rawURL string) bool {
	p := strings.ToLower(rawURL)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.HasSuffix(p, ".tar.gz") || strings.HasSuffix(p, ".tgz")
}
