package packager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/selfupdate/internal/archive"
	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/domain/release"
)

const testPassword = "packager-secret"

func seed(t *testing.T, fsys afero.Fs, root string, files map[string]string) {
	t.Helper()

	for rel, body := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, fsys.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fsys, p, []byte(body), 0o644))
	}
}

func testConfig(t *testing.T, project string) *config.Config {
	t.Helper()

	cfg := &config.Config{
		ZipPassword:   testPassword,
		GitHubRepo:    "acme/app",
		ProjectDir:    project,
		ExcludedItems: []string{".venv", "config.toml"},
	}
	require.NoError(t, config.Validate(cfg))

	return cfg
}

func readString(t *testing.T, fsys afero.Fs, p string) string {
	t.Helper()

	raw, err := afero.ReadFile(fsys, p)
	require.NoError(t, err)

	return string(raw)
}

// TestPack_BumpsAndPacks bumps the marker, skips excluded entries and writes a matching manifest.
func TestPack_BumpsAndPacks(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	project := filepath.FromSlash("/srv/app")

	seed(t, fsys, project, map[string]string{
		"version":           "1.2.3",
		"main.py":           "print('hi')",
		"lib/util.py":       "util",
		".venv/lib/site.py": "venv",
		"config.toml":       "secrets",
		"backup/main.py":    "old",
		"dist/update.zip":   "previous build",
	})

	cfg := testConfig(t, project)

	manifest, err := Pack(context.Background(), cfg, fsys, release.BumpMinor, "")
	require.NoError(t, err)
	require.Equal(t, "1.3.0", manifest.Version)
	require.Equal(t, ArchiveFilename, manifest.Archive)
	require.Equal(t, 3, manifest.Files)
	require.Equal(t, "1.3.0", readString(t, fsys, filepath.Join(project, "version")))

	outputDir := filepath.Join(project, DefaultOutputDir)
	archivePath := filepath.Join(outputDir, ArchiveFilename)

	checksum, err := FileChecksum(fsys, archivePath)
	require.NoError(t, err)
	require.Equal(t, checksum, manifest.Checksum)

	stored, err := ReadManifest(fsys, filepath.Join(outputDir, ManifestFilename))
	require.NoError(t, err)
	require.Equal(t, manifest, stored)

	staged := filepath.FromSlash("/tmp/staged")

	count, err := archive.Extract(fsys, archivePath, staged, testPassword)
	require.NoError(t, err)
	require.Equal(t, 3, count)
	require.Equal(t, "1.3.0", readString(t, fsys, filepath.Join(staged, "version")))
	require.Equal(t, "util", readString(t, fsys, filepath.Join(staged, "lib", "util.py")))

	for _, rel := range []string{".venv", "config.toml", "backup", "dist"} {
		exists, statErr := afero.Exists(fsys, filepath.Join(staged, rel))
		require.NoError(t, statErr)
		require.False(t, exists, rel)
	}
}

// TestPack_VersionMarker covers a missing and a malformed marker.
func TestPack_VersionMarker(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		marker  *string
		bump    release.BumpKind
		version string
	}{
		{name: "missing marker", bump: release.BumpPatch, version: "0.0.1"},
		{name: "malformed marker", marker: ptr("garbage"), bump: release.BumpMinor, version: "1.1.0"},
		{name: "major bump", marker: ptr("2.5.9\n"), bump: release.BumpMajor, version: "3.0.0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fsys := afero.NewMemMapFs()
			project := filepath.FromSlash("/srv/app")

			files := map[string]string{"main.py": "print('hi')"}
			if tc.marker != nil {
				files["version"] = *tc.marker
			}

			seed(t, fsys, project, files)

			manifest, err := Pack(context.Background(), testConfig(t, project), fsys, tc.bump, "out")
			require.NoError(t, err)
			require.Equal(t, tc.version, manifest.Version)
			require.Equal(t, 2, manifest.Files)
			require.Equal(t, tc.version, readString(t, fsys, filepath.Join(project, "version")))

			exists, err := afero.Exists(fsys, filepath.Join(project, "out", ArchiveFilename))
			require.NoError(t, err)
			require.True(t, exists)
		})
	}
}

// TestPack_ExtraExcluded keeps an explicit settings file out of the archive.
func TestPack_ExtraExcluded(t *testing.T) {
	t.Parallel()

	fsys := afero.NewMemMapFs()
	project := filepath.FromSlash("/srv/app")

	seed(t, fsys, project, map[string]string{
		"version":       "1.0.0",
		"main.py":       "print('hi')",
		"settings.toml": "secrets",
	})

	manifest, err := Pack(context.Background(), testConfig(t, project), fsys, release.BumpPatch, "",
		filepath.Join(project, "settings.toml"))
	require.NoError(t, err)
	require.Equal(t, 2, manifest.Files)
}

func ptr(s string) *string {
	return &s
}
