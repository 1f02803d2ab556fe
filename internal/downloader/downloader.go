// Package downloader fetches and unpacks a dataset archive when its meta
// file is missing. Acquisition is all or nothing: files appear at their
// final location only after the whole archive was extracted and found to
// contain the meta file.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/vk/trainkit/internal/ctxlog"
	"github.com/vk/trainkit/internal/fsutil"
)

// AcquisitionError reports a failed download or extraction. Nothing is left
// behind when it is returned.
type AcquisitionError struct {
	URL    string
	Target string
	Err    error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("failed to acquire dataset from '%s' for '%s': %v", e.URL, e.Target, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// Options tunes acquisition.
type Options struct {
	// Sources by URL scheme. Missing schemes fall back to the defaults for
	// http, https and s3.
	Sources map[string]Source
	// S3Endpoint and S3Secure configure the default s3 source.
	S3Endpoint string
	S3Secure   bool
	// Progress receives the progress bar. Nil hides it.
	Progress io.Writer
}

func (o Options) source(scheme string) (Source, error) {
	if s, ok := o.Sources[scheme]; ok {
		return s, nil
	}
	switch scheme {
	case "http", "https":
		return HTTPSource{}, nil
	case "s3":
		return S3Source{Endpoint: o.S3Endpoint, Secure: o.S3Secure}, nil
	default:
		return nil, fmt.Errorf("unsupported url scheme %q", scheme)
	}
}

// Acquire makes sure metaPath exists. If it already does, nothing is
// downloaded and skipped is true. Otherwise the archive at rawURL is
// extracted into the parent of the meta file's directory, so an archive
// "camvid.tar.gz" holding "camvid/train.csv" serves the meta path
// ".../data/camvid/train.csv".
func Acquire(ctx context.Context, metaPath, rawURL string, opts Options) (skipped bool, err error) {
	logger := ctxlog.FromContext(ctx).With("meta", metaPath)

	ok, err := fsutil.Exists(metaPath)
	if err != nil {
		return false, &AcquisitionError{URL: rawURL, Target: metaPath, Err: err}
	}
	if ok {
		logger.Debug("Dataset meta file present, skipping download.")
		return true, nil
	}
	if rawURL == "" {
		return false, &AcquisitionError{URL: rawURL, Target: metaPath, Err: errors.New("dataset meta file is missing and no dataset url is configured")}
	}

	logger.Info("Dataset meta file missing, downloading.", "url", rawURL)
	if err := acquire(ctx, metaPath, rawURL, opts); err != nil {
		return false, &AcquisitionError{URL: rawURL, Target: metaPath, Err: err}
	}
	logger.Info("Dataset ready.")
	return false, nil
}

func acquire(ctx context.Context, metaPath, rawURL string, opts Options) (err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid dataset url: %w", err)
	}
	src, err := opts.source(u.Scheme)
	if err != nil {
		return err
	}

	root := filepath.Dir(filepath.Dir(metaPath))
	if !isTarGz(rawURL) {
		root = filepath.Dir(metaPath)
	}
	created, err := mkdirAllTracked(root)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil && created != "" {
			os.RemoveAll(created)
		}
	}()

	staging, err := os.MkdirTemp(root, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	body, size, err := src.Open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	bar := pb.New64(size)
	bar.Set(pb.Bytes, true)
	bar.SetWriter(io.Discard)
	if opts.Progress != nil {
		bar.SetWriter(opts.Progress)
	}
	bar.Start()
	in := bar.NewProxyReader(body)
	defer bar.Finish()

	extracted := filepath.Join(staging, "content")
	if isTarGz(rawURL) {
		n, err := extractTarGz(in, extracted)
		if err != nil {
			return fmt.Errorf("failed to extract archive: %w", err)
		}
		ctxlog.FromContext(ctx).Debug("Archive extracted.", "files", n)
	} else if err := saveFile(in, filepath.Join(extracted, filepath.Base(metaPath))); err != nil {
		return err
	}

	rel, err := filepath.Rel(root, metaPath)
	if err != nil {
		return err
	}
	if ok, err := fsutil.Exists(filepath.Join(extracted, rel)); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("archive does not contain '%s'", filepath.ToSlash(rel))
	}

	moved, err := fsutil.MoveEntries(extracted, root)
	if err != nil {
		for _, m := range moved {
			os.RemoveAll(m)
		}
		return fmt.Errorf("failed to move dataset into place: %w", err)
	}
	return nil
}

func saveFile(r io.Reader, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to save download: %w", err)
	}
	return nil
}

// mkdirAllTracked creates dir and returns the topmost directory it had to
// create, or "" when dir already existed.
func mkdirAllTracked(dir string) (string, error) {
	top := ""
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		ok, err := fsutil.Exists(p)
		if err != nil {
			return "", err
		}
		if ok {
			break
		}
		top = p
		if parent := filepath.Dir(p); parent == p || strings.TrimSpace(parent) == "" {
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create dataset dir: %w", err)
	}
	return top, nil
}
