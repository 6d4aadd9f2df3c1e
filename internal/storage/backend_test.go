package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBackend_Open(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "data", "Housing.csv"), []byte("price,area\n1,2\n"), 0o600))

	backend, err := NewLocalBackend(tmpDir, zerolog.Nop())
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	t.Run("reads existing file", func(t *testing.T) {
		rc, err := backend.Open(ctx, "data/Housing.csv")
		require.NoError(t, err)
		defer rc.Close()

		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "price,area\n1,2\n", string(body))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := backend.Open(ctx, "data/nope.csv")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := backend.Exists(ctx, "data/Housing.csv")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = backend.Exists(ctx, "data/nope.csv")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLocalBackend_PathTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := NewLocalBackend(tmpDir, zerolog.Nop())
	require.NoError(t, err)

	for _, path := range []string{"../etc/passwd", "../../secret", "a/../../b"} {
		t.Run(path, func(t *testing.T) {
			full, err := backend.validatePath(path)
			require.NoError(t, err)
			rel, err := filepath.Rel(backend.BasePath(), full)
			require.NoError(t, err)
			assert.NotContains(t, rel, "..")
		})
	}

	_, err = backend.validatePath("bad\x00path")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	b, err := New(Config{Backend: "local", LocalPath: tmpDir}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "local", b.Type())

	_, err = New(Config{Backend: "ftp"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{Backend: "s3"}, zerolog.Nop())
	assert.Error(t, err, "bucket is required")
}
