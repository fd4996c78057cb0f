package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/yeka/zip"

	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/workspace"
)

var (
	// ErrEmptyPassword is returned when packing or extracting without a password.
	ErrEmptyPassword = errors.New("archive password is empty")
	// ErrCorrupted is returned when the archive cannot be read or decrypted.
	ErrCorrupted = errors.New("incorrect password or corrupted archive")
	// ErrNotEncrypted is returned for entries stored without encryption.
	ErrNotEncrypted = errors.New("archive entry is not encrypted")
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Pack writes every non-excluded regular file below root into a new encrypted archive at dst.
// It returns the number of files written.
func Pack(fsys afero.Fs, root, dst, password string, excl *workspace.Excluder) (int, error) {
	if password == "" {
		return 0, ErrEmptyPassword
	}

	out, err := fsys.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}

	w := zip.NewWriter(out)
	count := 0

	err = workspace.Walk(fsys, root, excl, func(rel string, info os.FileInfo) error {
		if !info.Mode().IsRegular() {
			return nil
		}

		if addErr := addFile(fsys, w, filepath.Join(root, filepath.FromSlash(rel)), rel, info, password); addErr != nil {
			return addErr
		}

		count++

		return nil
	})

	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("finish archive: %w", closeErr)
	}

	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close archive: %w", closeErr)
	}

	if err != nil {
		_ = fsys.Remove(dst)

		return 0, err
	}

	return count, nil
}

// addFile stores src under name, keeping the mode and modification time of info.
func addFile(fsys afero.Fs, w *zip.Writer, src, name string, info os.FileInfo, password string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = in.Close()
	}()

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header of %s: %w", name, err)
	}

	header.Name = name
	header.Method = zip.Deflate
	header.SetPassword(password)
	header.SetEncryptionMethod(zip.AES256Encryption)

	entry, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	if _, err = io.Copy(entry, in); err != nil {
		return fmt.Errorf("compress %s: %w", name, err)
	}

	return nil
}

// Extract decrypts every entry of the archive at src into dst, which is created if needed.
// Any failure leaves dst possibly partially written; callers extract into a scratch
// directory. It returns the number of files written.
func Extract(fsys afero.Fs, src, dst, password string) (int, error) {
	if password == "" {
		return 0, ErrEmptyPassword
	}

	in, err := fsys.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = in.Close()
	}()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat archive: %w", err)
	}

	r, err := zip.NewReader(in, info.Size())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	if err = fsys.MkdirAll(dst, config.DefaultDirPermissions); err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	count := 0

	for _, f := range r.File {
		target, err := safeJoin(dst, f.Name)
		if err != nil {
			return count, err
		}

		if strings.HasSuffix(f.Name, "/") {
			if err = fsys.MkdirAll(target, config.DefaultDirPermissions); err != nil {
				return count, fmt.Errorf("create %s: %w", target, err)
			}

			continue
		}

		if !f.IsEncrypted() {
			return count, fmt.Errorf("%w: %s", ErrNotEncrypted, f.Name)
		}

		f.SetPassword(password)

		if err = extractFile(fsys, f, target); err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

func extractFile(fsys afero.Fs, f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupted, f.Name, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	if err = fsys.MkdirAll(filepath.Dir(target), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create parent of %s: %w", target, err)
	}

	out, err := fsys.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, entryMode(f))
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}

	if _, err = io.Copy(out, rc); err != nil {
		_ = out.Close()

		return fmt.Errorf("%w: %s: %w", ErrCorrupted, f.Name, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}

	return nil
}

// entryMode keeps only the executable bit of the recorded mode.
func entryMode(f *zip.File) os.FileMode {
	if f.Mode().Perm()&0o111 != 0 {
		return config.DefaultDirPermissions
	}

	return config.DefaultFilePermissions
}

func safeJoin(root, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	return filepath.Join(root, filepath.FromSlash(clean)), nil
}
