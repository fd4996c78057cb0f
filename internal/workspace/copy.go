package workspace

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/config"
)

var errNotADirectory = errors.New("destination exists and is not a directory")

// CopyFile copies the contents of src to dst, overwriting dst, and carries over
// the permission bits and modification time of src.
func CopyFile(fsys afero.Fs, src, dst string) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	if err = fsys.MkdirAll(filepath.Dir(dst), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()

		return fmt.Errorf("copy %s: %w", src, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	if err = fsys.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}

	if err = fsys.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dst, err)
	}

	return nil
}

// CopyTree merges the tree at src into dst. Files present in src overwrite their
// counterparts; files only present in dst are left alone. Paths matched by excl,
// relative to src, are skipped. A regular file src is copied as a single file.
func CopyTree(fsys afero.Fs, src, dst string, excl *Excluder) error {
	info, err := fsys.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if !info.IsDir() {
		return CopyFile(fsys, src, dst)
	}

	if err = ensureDir(fsys, dst); err != nil {
		return err
	}

	return Walk(fsys, src, excl, func(rel string, entry os.FileInfo) error {
		from := filepath.Join(src, filepath.FromSlash(rel))
		to := filepath.Join(dst, filepath.FromSlash(rel))

		if entry.IsDir() {
			return ensureDir(fsys, to)
		}

		return CopyFile(fsys, from, to)
	})
}

// ReplaceDir removes dst and copies src in its place wholesale. When dst is a symbolic
// link, the link is kept and the directory it points to is replaced instead.
func ReplaceDir(fsys afero.Fs, src, dst string) error {
	resolved, err := ResolveLink(fsys, dst)

	switch {
	case err == nil:
		dst = resolved
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("resolve %s: %w", dst, err)
	}

	if err = fsys.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove %s: %w", dst, err)
	}

	return CopyTree(fsys, src, dst, nil)
}

func ensureDir(fsys afero.Fs, p string) error {
	info, err := fsys.Stat(p)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s: %w", p, errNotADirectory)
		}

		return nil
	}

	if err = fsys.MkdirAll(p, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}

	return nil
}
