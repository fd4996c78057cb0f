package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/logger"
)

// maxLinkHops bounds how many symbolic links are followed when resolving a path.
const maxLinkHops = 40

var errTooManyLinks = errors.New("too many levels of symbolic links")

// WalkFunc receives the slash-separated path relative to the walk root and the entry info.
// Symbolic links to regular files are reported with the info of their target.
type WalkFunc func(rel string, info os.FileInfo) error

// Walk visits every non-excluded entry below root in lexical order. Excluded directories
// are pruned before they are read. A root that is a symbolic link is followed. Below the
// root, links that do not resolve to a regular file are skipped, which also avoids cycles.
func Walk(fsys afero.Fs, root string, excl *Excluder, fn WalkFunc) error {
	resolved, err := ResolveLink(fsys, root)
	if err != nil {
		return err
	}

	return afero.Walk(fsys, resolved, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(resolved, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}

		if rel == "." {
			return nil
		}

		rel = filepath.ToSlash(rel)

		if excl.Match(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, statErr := fsys.Stat(p)

			switch {
			case statErr != nil:
				logger.DebugKV(context.Background(), "Skipping broken symbolic link", "path", p, "error", statErr)

				return nil
			case target.IsDir():
				logger.DebugKV(context.Background(), "Skipping symbolic link to a directory", "path", p)

				return nil
			case !target.Mode().IsRegular():
				return nil
			}

			info = target
		}

		return fn(rel, info)
	})
}

// TopLevel lists the non-excluded entry names directly below root.
func TopLevel(fsys afero.Fs, root string, excl *Excluder) ([]string, error) {
	entries, err := afero.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !excl.Match(entry.Name()) {
			names = append(names, entry.Name())
		}
	}

	return names, nil
}

// Exists reports whether p exists. Errors other than "not exist" are returned.
func Exists(fsys afero.Fs, p string) (bool, error) {
	_, err := fsys.Stat(p)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// ResolveLink follows p while it is a symbolic link and returns the final path.
// Filesystems without link support return p unchanged.
func ResolveLink(fsys afero.Fs, p string) (string, error) {
	lstater, canLstat := fsys.(afero.Lstater)
	reader, canRead := fsys.(afero.LinkReader)

	if !canLstat || !canRead {
		return p, nil
	}

	for range maxLinkHops {
		info, _, err := lstater.LstatIfPossible(p)
		if err != nil {
			return "", err
		}

		if info.Mode()&os.ModeSymlink == 0 {
			return p, nil
		}

		target, err := reader.ReadlinkIfPossible(p)
		if err != nil {
			return "", fmt.Errorf("read link %s: %w", p, err)
		}

		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p), target)
		}

		p = target
	}

	return "", fmt.Errorf("%s: %w", p, errTooManyLinks)
}
