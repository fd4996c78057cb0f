package packager

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/selfupdate/internal/config"
)

// ManifestFilename is the name of the manifest written next to the archive.
const ManifestFilename = "update.yaml"

// Manifest describes a packed release.
type Manifest struct {
	// Version is the bumped version shipped in the archive.
	Version string `yaml:"version"`
	// Archive is the file name of the archive inside the output directory.
	Archive string `yaml:"archive"`
	// Checksum is the base64 SHA-512 digest of the archive.
	Checksum string `yaml:"checksum"`
	// Files is the number of files in the archive.
	Files int `yaml:"files"`
}

// ReadManifest loads a manifest written by the packager.
func ReadManifest(fsys afero.Fs, path string) (*Manifest, error) {
	contents, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	m := new(Manifest)
	if err = yaml.Unmarshal(contents, m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return m, nil
}

func writeManifest(fsys afero.Fs, path string, m *Manifest) error {
	contents, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return afero.WriteFile(fsys, path, contents, config.DefaultFilePermissions)
}

// FileChecksum returns the base64-encoded SHA-512 digest of a file.
func FileChecksum(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	hash := sha512.New()
	if _, err = io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return base64.StdEncoding.EncodeToString(hash.Sum(nil)), nil
}
