package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/config"
)

// Snapshot replaces any previous backup at backupDir with a fresh copy of every
// non-excluded entry of projectDir. The backup directory itself must be matched by
// excl when it lives inside projectDir. It returns the names of the copied top-level entries.
func Snapshot(fsys afero.Fs, projectDir, backupDir string, excl *Excluder) ([]string, error) {
	if err := fsys.RemoveAll(backupDir); err != nil {
		return nil, fmt.Errorf("remove previous backup: %w", err)
	}

	if err := fsys.MkdirAll(backupDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	names, err := TopLevel(fsys, projectDir, excl)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		src := filepath.Join(projectDir, name)
		dst := filepath.Join(backupDir, name)

		if err = CopyTree(fsys, src, dst, scoped(excl, name)); err != nil {
			return nil, fmt.Errorf("backup %s: %w", name, err)
		}
	}

	return names, nil
}

// scoped rebases the exclusion entries below a top-level name so that nested entries
// such as "assets/cache" still apply when copying the "assets" subtree on its own.
func scoped(excl *Excluder, name string) *Excluder {
	if excl == nil {
		return nil
	}

	prefix := name + "/"
	nested := NewExcluder()

	for _, item := range excl.prefixes {
		if len(item) > len(prefix) && item[:len(prefix)] == prefix {
			nested.With(item[len(prefix):])
		}
	}

	return nested
}
