package marker

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// TestFileRepository_SaveLoad writes the marker and reads it back.
func TestFileRepository_SaveLoad(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	repo := NewFileRepository(fs, "/app/version")

	_, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, fs.MkdirAll("/app", 0o755))
	require.NoError(t, repo.Save(context.Background(), " 1.2.3\n"))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "1.2.3", got)

	raw, err := afero.ReadFile(fs, repo.Path())
	require.NoError(t, err)
	require.Equal(t, "1.2.3", string(raw))
}

// TestFileRepository_LoadFirstLine ignores trailing lines and whitespace.
func TestFileRepository_LoadFirstLine(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/version", []byte("  2.0.0 \r\nnotes\n"), 0o644))

	got, err := NewFileRepository(fs, "/version").Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2.0.0", got)
}

// TestFileRepository_SaveRejectsEmpty guards against wiping the marker.
func TestFileRepository_SaveRejectsEmpty(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(afero.NewMemMapFs(), "/version")
	require.Error(t, repo.Save(context.Background(), "  "))
}
