package integration

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/selfupdate/internal/relaunch"
	"github.com/oshokin/selfupdate/internal/service/packager"
	"github.com/oshokin/selfupdate/internal/service/updater"
)

// buildRelease packs a maintainer project at 1.0.0 with a minor bump and returns the archive path.
func buildRelease(t *testing.T, files map[string]string) string {
	t.Helper()

	maintainer := t.TempDir()
	writeTree(t, maintainer, files)

	options := &packager.Options{
		ConfigPath: writeSettings(t, maintainer, ""),
		Bump:       "minor",
	}

	require.NoError(t, packager.Run(context.Background(), options))
	require.Equal(t, "1.1.0", readTree(t, maintainer, "version"))

	outputDir := filepath.Join(maintainer, packager.DefaultOutputDir)

	manifest, err := packager.ReadManifest(afero.NewOsFs(), filepath.Join(outputDir, packager.ManifestFilename))
	require.NoError(t, err)
	require.Equal(t, "1.1.0", manifest.Version)

	archivePath := filepath.Join(outputDir, manifest.Archive)

	checksum, err := packager.FileChecksum(afero.NewOsFs(), archivePath)
	require.NoError(t, err)
	require.Equal(t, manifest.Checksum, checksum)

	return archivePath
}

// TestSelfUpdate_PackPublishApply packs a release, serves it as the latest GitHub release
// and lets the updater install it and relaunch.
//
//nolint:funlen // Integration test requires comprehensive setup and verification.
func TestSelfUpdate_PackPublishApply(t *testing.T) {
	archivePath := buildRelease(t, map[string]string{
		"version":           "1.0.0",
		"main.py":           "print('v2')",
		"lib/util.py":       "v2 util",
		"data/seed.db":      "seed rows",
		".venv/lib/site.py": "maintainer venv",
	})

	srv := newReleaseServer(t, "v1.1.0", archivePath)

	installed := t.TempDir()
	writeTree(t, installed, map[string]string{
		"version":           "1.0.0",
		"main.py":           "print('v1')",
		"lib/util.py":       "v1 util",
		"data/user.db":      "user rows",
		".venv/lib/site.py": "local venv",
	})

	cfgPath := writeSettings(t, installed, srv.URL)

	var relaunches atomic.Int32

	options := &updater.Options{
		ConfigPath: cfgPath,
		Relauncher: relaunch.Func(func(context.Context) error {
			relaunches.Add(1)

			return nil
		}),
	}

	require.NoError(t, updater.Run(context.Background(), options))
	require.Equal(t, int32(1), relaunches.Load())
	require.Equal(t, int32(1), srv.downloads.Load())

	require.Equal(t, "1.1.0", readTree(t, installed, "version"))
	require.Equal(t, "print('v2')", readTree(t, installed, "main.py"))
	require.Equal(t, "v2 util", readTree(t, installed, "lib/util.py"))
	require.Equal(t, "local venv", readTree(t, installed, ".venv/lib/site.py"))
	require.Equal(t, "user rows", readTree(t, installed, "data/user.db"))
	require.NoFileExists(t, filepath.Join(installed, "data", "seed.db"))
	require.Equal(t, "print('v1')", readTree(t, installed, "backup/main.py"))

	// The second run finds the installation current and neither downloads nor relaunches.
	require.NoError(t, updater.Run(context.Background(), options))
	require.Equal(t, int32(1), relaunches.Load())
	require.Equal(t, int32(1), srv.downloads.Load())
}

// TestSelfUpdate_WrongPasswordKeepsInstallation rejects an archive packed with another password.
func TestSelfUpdate_WrongPasswordKeepsInstallation(t *testing.T) {
	archivePath := buildRelease(t, map[string]string{
		"version": "1.0.0",
		"main.py": "print('v2')",
	})

	srv := newReleaseServer(t, "1.1.0", archivePath)

	installed := t.TempDir()
	writeTree(t, installed, map[string]string{
		"version": "1.0.0",
		"main.py": "print('v1')",
	})

	cfgPath := writeSettings(t, installed, srv.URL)
	t.Setenv("UPDATER_ZIP_PASSWORD", "not-the-release-password")

	options := &updater.Options{
		ConfigPath: cfgPath,
		Relauncher: relaunch.Func(func(context.Context) error {
			t.Fatal("relaunch after a failed update")

			return nil
		}),
	}

	err := updater.Run(context.Background(), options)
	require.ErrorIs(t, err, updater.ErrArchive)
	require.Equal(t, "print('v1')", readTree(t, installed, "main.py"))
	require.Equal(t, "1.0.0", readTree(t, installed, "version"))
}

// TestSelfUpdate_NoRestart skips the relaunch when asked to.
func TestSelfUpdate_NoRestart(t *testing.T) {
	archivePath := buildRelease(t, map[string]string{
		"version": "1.0.0",
		"main.py": "print('v2')",
	})

	srv := newReleaseServer(t, "1.1.0", archivePath)

	installed := t.TempDir()
	writeTree(t, installed, map[string]string{"main.py": "print('v1')"})

	options := &updater.Options{
		ConfigPath:  writeSettings(t, installed, srv.URL),
		SkipRestart: true,
		Relauncher: relaunch.Func(func(context.Context) error {
			t.Fatal("relaunch with restart disabled")

			return nil
		}),
	}

	require.NoError(t, updater.Run(context.Background(), options))
	require.Equal(t, "print('v2')", readTree(t, installed, "main.py"))
	require.Equal(t, "1.1.0", readTree(t, installed, "version"))
}
