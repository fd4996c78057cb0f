package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings shared by the updater and the packager.
// It is built once by Load and passed explicitly to every component.
type Config struct {
	// ZipPassword is the symmetric password of the release archive.
	ZipPassword string
	// GitHubRepo is the "owner/name" repository publishing releases.
	GitHubRepo string
	// ExcludedItems are project-relative paths never touched by backup, replace or packaging.
	ExcludedItems []string
	// ProjectDir is the root of the managed installation.
	ProjectDir string
	// BackupDir is the snapshot location, relative to ProjectDir unless absolute.
	BackupDir string
	// DataDir is the user data directory restored from the snapshot after every update.
	DataDir string
	// VersionFile is the version marker file, relative to ProjectDir unless absolute.
	VersionFile string
	// APIURL is the base URL of the GitHub REST API.
	APIURL string
	// Timeout bounds every release metadata request.
	Timeout time.Duration
	// DownloadTimeout bounds a whole archive download.
	DownloadTimeout time.Duration
	// Retries is the number of retries after a failed request.
	Retries uint
	// RetryInterval is the initial backoff interval between retries.
	RetryInterval time.Duration
	// LogLevel is the textual zap level.
	LogLevel string
}

// Setting keys. The environment override of a key is the key upper-cased with dots replaced
// by underscores, e.g. UPDATER_ZIP_PASSWORD.
const (
	KeyZipPassword     = "updater.zip_password"
	KeyGitHubRepo      = "updater.github_repo"
	KeyExcludedItems   = "updater.excluded_items"
	KeyProjectDir      = "updater.project_dir"
	KeyBackupDir       = "updater.backup_dir"
	KeyDataDir         = "updater.data_dir"
	KeyVersionFile     = "updater.version_file"
	KeyAPIURL          = "updater.api_url"
	KeyTimeout         = "updater.timeout"
	KeyDownloadTimeout = "updater.download_timeout"
	KeyRetries         = "updater.retries"
	KeyRetryInterval   = "updater.retry_interval"
	KeyLogLevel        = "log.level"
)

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "config.toml"

	// DefaultBackupDir is the default snapshot directory name.
	DefaultBackupDir = "backup"

	// DefaultDataDir is the default user data directory name.
	DefaultDataDir = "data"

	// DefaultVersionFile is the default version marker file name.
	DefaultVersionFile = "version"

	// DefaultAPIURL is the public GitHub REST API.
	DefaultAPIURL = "https://api.github.com"

	// DefaultTimeout is the default duration of a metadata request.
	DefaultTimeout = 30 * time.Second

	// DefaultDownloadTimeout is the default duration of an archive download.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultRetries is the default number of retries.
	DefaultRetries = 3

	// DefaultRetryInterval is the default initial backoff interval.
	DefaultRetryInterval = time.Second

	// DefaultFilePermissions is the permission of files written by the tools.
	DefaultFilePermissions = 0o644

	// DefaultDirPermissions is the permission of directories created by the tools.
	DefaultDirPermissions = 0o755
)

//nolint:gochecknoglobals // Shared by viper and DefaultPath, read-only.
var envKeyReplacer = strings.NewReplacer(".", "_")

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errPasswordRequired is returned when the archive password is missing.
	errPasswordRequired = errors.New("updater.zip_password must be provided")
	// errRepoRequired is returned when the repository is missing or malformed.
	errRepoRequired = errors.New("updater.github_repo must be provided as owner/name")
)

// Load reads settings from path layered under environment overrides and validates them.
// An empty path means DefaultPath. A missing settings file is tolerated so that the
// environment alone can configure a run.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error

		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	v.SetConfigFile(filepath.Clean(path))

	if filepath.Ext(path) == "" {
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := &Config{
		ZipPassword:     strings.TrimSpace(v.GetString(KeyZipPassword)),
		GitHubRepo:      strings.TrimSpace(v.GetString(KeyGitHubRepo)),
		ExcludedItems:   stringList(v.Get(KeyExcludedItems)),
		ProjectDir:      strings.TrimSpace(v.GetString(KeyProjectDir)),
		BackupDir:       v.GetString(KeyBackupDir),
		DataDir:         v.GetString(KeyDataDir),
		VersionFile:     v.GetString(KeyVersionFile),
		APIURL:          v.GetString(KeyAPIURL),
		Timeout:         v.GetDuration(KeyTimeout),
		DownloadTimeout: v.GetDuration(KeyDownloadTimeout),
		Retries:         v.GetUint(KeyRetries),
		RetryInterval:   v.GetDuration(KeyRetryInterval),
		LogLevel:        v.GetString(KeyLogLevel),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultPath returns the settings file of the installation: DefaultConfigFilename inside
// the project directory taken from the environment, or next to the running executable.
func DefaultPath() (string, error) {
	dir := strings.TrimSpace(os.Getenv(envName(KeyProjectDir)))
	if dir == "" {
		var err error

		dir, err = executableDir()
		if err != nil {
			return "", err
		}
	}

	return filepath.Join(dir, DefaultConfigFilename), nil
}

// envName is the environment variable overriding key.
func envName(key string) string {
	return strings.ToUpper(envKeyReplacer.Replace(key))
}

// Validate checks required fields, fills defaults and resolves paths.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.ZipPassword = strings.TrimSpace(cfg.ZipPassword)
	if cfg.ZipPassword == "" {
		return errPasswordRequired
	}

	owner, name, found := strings.Cut(cfg.GitHubRepo, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: got %q", errRepoRequired, cfg.GitHubRepo)
	}

	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}

	if _, err := url.ParseRequestURI(cfg.APIURL); err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	if cfg.BackupDir == "" {
		cfg.BackupDir = DefaultBackupDir
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}

	if cfg.VersionFile == "" {
		cfg.VersionFile = DefaultVersionFile
	}

	if cfg.ProjectDir == "" {
		dir, err := executableDir()
		if err != nil {
			return err
		}

		cfg.ProjectDir = dir
	}

	projectDir, err := filepath.Abs(cfg.ProjectDir)
	if err != nil {
		return fmt.Errorf("resolve project dir: %w", err)
	}

	cfg.ProjectDir = projectDir

	return nil
}

// BackupPath returns the absolute snapshot directory.
func (c *Config) BackupPath() string {
	return c.resolve(c.BackupDir)
}

// VersionPath returns the absolute version marker path.
func (c *Config) VersionPath() string {
	return c.resolve(c.VersionFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(c.ProjectDir, p)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyExcludedItems, []string{})
	v.SetDefault(KeyBackupDir, DefaultBackupDir)
	v.SetDefault(KeyDataDir, DefaultDataDir)
	v.SetDefault(KeyVersionFile, DefaultVersionFile)
	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyDownloadTimeout, DefaultDownloadTimeout)
	v.SetDefault(KeyRetries, DefaultRetries)
	v.SetDefault(KeyRetryInterval, DefaultRetryInterval)
	v.SetDefault(KeyLogLevel, "info")
}

// stringList accepts both a settings-file list and a comma-separated environment value.
func stringList(raw any) []string {
	var items []string

	switch value := raw.(type) {
	case string:
		items = strings.Split(value, ",")
	case []string:
		items = value
	case []any:
		items = make([]string, 0, len(value))
		for _, item := range value {
			items = append(items, fmt.Sprint(item))
		}
	}

	result := make([]string, 0, len(items))

	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}

	return result
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}

	return filepath.Dir(exe), nil
}
