package updater

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/workspace"
)

const (
	// downloadDirPrefix names the scratch directory receiving the release asset.
	downloadDirPrefix = "selfupdate-download-"

	// stagingDirPrefix names the scratch directory receiving the extracted release.
	stagingDirPrefix = "selfupdate-extract-"

	// leftoverSuffix is appended by go-update to the file it moves aside.
	leftoverSuffix = ".old"
)

// Excluder builds the exclusion predicate of an installation: the configured items, the
// backup directory when it lives inside the project, and any extra absolute paths inside
// the project (the packager passes its output directory).
func Excluder(cfg *config.Config, extraPaths ...string) *workspace.Excluder {
	excl := workspace.NewExcluder(cfg.ExcludedItems...)

	if rel, inside := relativeTo(cfg.ProjectDir, cfg.BackupPath()); inside {
		excl.With(rel)
	}

	for _, p := range extraPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cfg.ProjectDir, p)
		}

		if rel, inside := relativeTo(cfg.ProjectDir, p); inside {
			excl.With(rel)
		}
	}

	return excl
}

// relativeTo returns target relative to root and whether target lies strictly inside root.
func relativeTo(root, target string) (string, bool) {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", false
	}

	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	return filepath.ToSlash(rel), true
}

// removeLeftover deletes the file go-update keeps next to target after a swap.
func removeLeftover(target string) {
	leftover := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+leftoverSuffix)

	_ = os.Remove(leftover)
}
