package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/archive"
	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/logger"
	"github.com/oshokin/selfupdate/internal/repository/marker"
	"github.com/oshokin/selfupdate/internal/workspace"
)

// apply runs the apply phase. afterExtract is called once the archive is no longer needed,
// whether extraction succeeded or not.
func (u *Updater) apply(ctx context.Context, archivePath string, afterExtract func()) error {
	logger.InfoKV(ctx, "Starting update", "current", u.CurrentVersion(ctx), "project", u.cfg.ProjectDir)

	if err := u.backup(ctx); err != nil {
		afterExtract()

		return err
	}

	stagingDir, err := u.stage(ctx, archivePath)

	afterExtract()

	if err != nil {
		return err
	}

	defer u.removeQuietly(ctx, stagingDir)

	if err = u.validate(ctx, stagingDir); err != nil {
		return err
	}

	logger.Info(ctx, "Extraction successful, applying update")

	if err = u.replace(ctx, stagingDir); err != nil {
		return u.rollback(ctx, err)
	}

	if err = u.restoreData(ctx); err != nil {
		return fmt.Errorf("%w: restore %s: %w", ErrApplyFailed, u.cfg.DataDir, err)
	}

	logger.InfoKV(ctx, "Update completed successfully", "version", u.CurrentVersion(ctx))

	return nil
}

// backup replaces the previous snapshot with a copy of the current installation.
func (u *Updater) backup(ctx context.Context) error {
	names, err := workspace.Snapshot(u.fs, u.cfg.ProjectDir, u.cfg.BackupPath(), u.excluder)
	if err != nil {
		logger.ErrorKV(ctx, "Backup failed", "error", err)

		return fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}

	logger.InfoKV(ctx, "Backup created", "path", u.cfg.BackupPath(), "entries", len(names))

	return nil
}

// stage extracts the archive into a fresh scratch directory. On failure the directory is
// removed and the installation is left untouched.
func (u *Updater) stage(ctx context.Context, archivePath string) (string, error) {
	stagingDir, err := afero.TempDir(u.fs, u.tempDir, stagingDirPrefix)
	if err != nil {
		return "", fmt.Errorf("%w: create staging dir: %w", ErrArchive, err)
	}

	count, err := archive.Extract(u.fs, archivePath, stagingDir, u.cfg.ZipPassword)
	if err != nil {
		u.removeQuietly(ctx, stagingDir)
		logger.ErrorKV(ctx, "Update failed due to extraction error", "error", err)

		return "", fmt.Errorf("%w: %w", ErrArchive, err)
	}

	logger.DebugKV(ctx, "Archive extracted", "files", count, "staging", stagingDir)

	return stagingDir, nil
}

// validate refuses an empty release and a release shipping an unreadable version marker.
func (u *Updater) validate(ctx context.Context, stagingDir string) error {
	names, err := workspace.TopLevel(u.fs, stagingDir, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRelease, err)
	}

	if len(names) == 0 {
		return fmt.Errorf("%w: archive is empty", ErrInvalidRelease)
	}

	rel, inside := relativeTo(u.cfg.ProjectDir, u.cfg.VersionPath())
	if !inside {
		return nil
	}

	shipped, err := marker.NewFileRepository(u.fs, filepath.Join(stagingDir, rel)).Load(ctx)

	switch {
	case errors.Is(err, marker.ErrNotFound):
		logger.WarnKV(ctx, "Release does not ship a version marker", "file", rel)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrInvalidRelease, err)
	case shipped == "":
		return fmt.Errorf("%w: empty version marker", ErrInvalidRelease)
	default:
		logger.InfoKV(ctx, "Release validated", "version", shipped)
	}

	return nil
}

// replace merges the staged tree into the installation. Directories are created, never
// removed; each file is swapped in atomically.
func (u *Updater) replace(ctx context.Context, stagingDir string) error {
	installed := 0

	err := workspace.Walk(u.fs, stagingDir, u.excluder, func(rel string, info os.FileInfo) error {
		target := filepath.Join(u.cfg.ProjectDir, filepath.FromSlash(rel))

		if info.IsDir() {
			return ensureDir(target)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		if err := installFile(filepath.Join(stagingDir, filepath.FromSlash(rel)), target, info.Mode().Perm()); err != nil {
			return err
		}

		installed++

		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Files replaced", "files", installed)

	return nil
}

// installFile swaps target for the staged file through go-update. An existing target keeps
// its permission bits; a missing one gets a placeholder because go-update renames the old
// file aside before moving the new one in.
func installFile(src, target string, stagedMode os.FileMode) error {
	mode := stagedMode

	existing, err := os.Stat(target)

	switch {
	case err == nil && existing.IsDir():
		return fmt.Errorf("%s: %w", target, errTargetIsDir)
	case err == nil:
		mode = existing.Mode().Perm()
	case errors.Is(err, os.ErrNotExist):
		if err = createPlaceholder(target, mode); err != nil {
			return err
		}
	default:
		return fmt.Errorf("stat %s: %w", target, err)
	}

	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open staged %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: mode,
	}

	if err = goupdate.Apply(in, options); err != nil {
		return fmt.Errorf("install %s: %w", target, err)
	}

	removeLeftover(target)

	return nil
}

// rollback merges the snapshot back over the installation after a failed replace.
func (u *Updater) rollback(ctx context.Context, cause error) error {
	logger.ErrorKV(ctx, "Replacing files failed, restoring backup", "error", cause)

	if err := workspace.CopyTree(u.fs, u.cfg.BackupPath(), u.cfg.ProjectDir, nil); err != nil {
		logger.ErrorKV(ctx, "Restoring backup failed", "error", err, "backup", u.cfg.BackupPath())

		return fmt.Errorf("%w: %w", ErrApplyFailed, errors.Join(cause, fmt.Errorf("rollback: %w", err)))
	}

	logger.Warn(ctx, "Previous installation restored from backup")

	return fmt.Errorf("%w: %w", ErrApplyFailed, cause)
}

// restoreData puts the snapshot's data directory back in place of whatever the release shipped.
func (u *Updater) restoreData(ctx context.Context) error {
	backupData := filepath.Join(u.cfg.BackupPath(), u.cfg.DataDir)

	exists, err := workspace.Exists(u.fs, backupData)
	if err != nil {
		return err
	}

	if !exists {
		logger.DebugKV(ctx, "No data directory in backup", "path", backupData)

		return nil
	}

	if err = workspace.ReplaceDir(u.fs, backupData, filepath.Join(u.cfg.ProjectDir, u.cfg.DataDir)); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Restored data directory", "dir", u.cfg.DataDir)

	return nil
}

// removeQuietly deletes a scratch directory; failures are only logged.
func (u *Updater) removeQuietly(ctx context.Context, dir string) {
	if err := u.fs.RemoveAll(dir); err != nil {
		logger.DebugKV(ctx, "Could not remove temporary directory", "path", dir, "error", err)
	}
}

func ensureDir(p string) error {
	info, err := os.Stat(p)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", p, errTargetNotDir)
		}

		return nil
	}

	if err = os.MkdirAll(p, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}

	return nil
}

func createPlaceholder(target string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", target, err)
	}

	f, err := os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	return f.Close()
}
