// Package fetch downloads game archives into a local cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"
)

type Fetcher struct {
	cacheDir string
	log      *slog.Logger
}

func New(cacheDir string, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{cacheDir: cacheDir, log: log}
}

// CachePath is where src is stored once fetched.
func (f *Fetcher) CachePath(src string) string {
	return filepath.Join(f.cacheDir, fileName(src))
}

// Fetch downloads src unless it is already cached and returns the local
// path. src accepts anything go-getter understands: local paths, http(s),
// s3:: and gcs:: URLs, with optional checksum query parameters.
func (f *Fetcher) Fetch(ctx context.Context, src string, force bool) (string, error) {
	dst := f.CachePath(src)
	if !force {
		if _, err := os.Stat(dst); err == nil {
			f.log.Info("using cached archive", "path", dst)
			return dst, nil
		}
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", f.cacheDir, err)
	}
	if force {
		if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove cached archive: %w", err)
		}
	}

	f.log.Info("start downloading archive", "src", src, "dst", dst)
	if err := getter.GetFile(dst, src, getter.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("download %s: %w", src, err)
	}
	f.log.Info("done downloading archive", "dst", dst)
	return dst, nil
}

// fileName derives the cache file name from the last path element of src,
// ignoring getter prefixes, query strings and subdirectories.
func fileName(src string) string {
	if i := strings.Index(src, "::"); i >= 0 {
		src = src[i+2:]
	}
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	src = strings.TrimSuffix(filepath.ToSlash(src), "/")
	name := path.Base(src)
	if name == "." || name == "/" || name == "" {
		return "archive.jar"
	}
	return name
}
