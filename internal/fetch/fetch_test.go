package fetch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_LocalFileIsCached(t *testing.T) {
	src := filepath.Join(t.TempDir(), "1.21.jar")
	require.NoError(t, os.WriteFile(src, []byte("archive"), 0o644))

	cache := filepath.Join(t.TempDir(), "cache")
	f := New(cache, nil)

	got, err := f.Fetch(context.Background(), src, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cache, "1.21.jar"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "archive", string(data))

	// A second fetch is served from the cache.
	again, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "1.21.jar"), false)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFetch_MissingSource(t *testing.T) {
	f := New(t.TempDir(), nil)
	_, err := f.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.jar"), true)
	require.Error(t, err)
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"https://example.com/v1/objects/abc/server.jar?checksum=sha1:00": "server.jar",
		"s3::https://s3.amazonaws.com/bucket/1.20.4.jar":                 "1.20.4.jar",
		"/games/versions/1.21/1.21.jar":                                  "1.21.jar",
		"https://example.com/":                                           "example.com",
		"":                                                               "archive.jar",
	}
	for src, want := range tests {
		assert.Equal(t, want, fileName(src), src)
	}
}
