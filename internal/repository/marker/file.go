package marker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/config"
)

// Repository defines persistence operations for the version marker.
type Repository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, version string) error
}

// FileRepository persists the version marker to a file.
type FileRepository struct {
	// fs is the filesystem holding the marker.
	fs afero.Fs
	// path is the location of the marker file.
	path string
	// mu serializes access to the marker file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the marker file does not exist yet.
	ErrNotFound = errors.New("version marker not found")
	// errEmptyVersion is returned when saving a blank version.
	errEmptyVersion = errors.New("version must not be empty")
)

// NewFileRepository creates a repository that reads/writes the marker at the provided path.
func NewFileRepository(fs afero.Fs, path string) *FileRepository {
	return &FileRepository{
		fs:   fs,
		path: filepath.Clean(path),
	}
}

// Path returns the marker location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the marker and returns its first line without surrounding whitespace.
func (r *FileRepository) Load(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("read version marker: %w", err)
	}

	line, _, _ := strings.Cut(string(contents), "\n")

	return strings.TrimSpace(line), nil
}

// Save overwrites the marker with version.
func (r *FileRepository) Save(_ context.Context, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		return errEmptyVersion
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := afero.WriteFile(r.fs, r.path, []byte(version), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write version marker: %w", err)
	}

	return nil
}
