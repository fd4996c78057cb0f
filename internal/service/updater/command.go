package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/api/github"
	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/domain/release"
	"github.com/oshokin/selfupdate/internal/logger"
	"github.com/oshokin/selfupdate/internal/relaunch"
	"github.com/oshokin/selfupdate/internal/repository/marker"
	"github.com/oshokin/selfupdate/internal/workspace"
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// ConfigPath is the optional path to the settings file.
	ConfigPath string
	// SkipRestart keeps the process running after a successful update.
	SkipRestart bool
	// Relauncher overrides the platform relauncher.
	Relauncher relaunch.Relauncher
}

// ReleaseSource resolves and downloads releases.
type ReleaseSource interface {
	LatestRelease(ctx context.Context) (*release.Descriptor, error)
	Download(ctx context.Context, url, dir string) (string, error)
}

// Outcome is the result of a check.
type Outcome int

// Check outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeUpToDate
	OutcomeUpdated
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case OutcomeUpToDate:
		return "up-to-date"
	case OutcomeUpdated:
		return "updated"
	default:
		return "failed"
	}
}

// Updater drives a single installation through check, download, apply and restart.
type Updater struct {
	// cfg holds the settings of the managed installation.
	cfg *config.Config
	// fs is the filesystem of the installation; installs go through go-update, so it is the OS.
	fs afero.Fs
	// source resolves and downloads releases.
	source ReleaseSource
	// versions persists the local version marker.
	versions marker.Repository
	// relauncher restarts the program after an update.
	relauncher relaunch.Relauncher
	// excluder is the single exclusion predicate of every tree operation.
	excluder *workspace.Excluder
	// tempDir is the parent of download and staging directories ("" means the OS default).
	tempDir string
}

// Option configures an Updater.
type Option func(*Updater)

// WithReleaseSource replaces the GitHub client built from the settings.
func WithReleaseSource(source ReleaseSource) Option {
	return func(u *Updater) {
		if source != nil {
			u.source = source
		}
	}
}

// WithRelauncher replaces the platform relauncher.
func WithRelauncher(r relaunch.Relauncher) Option {
	return func(u *Updater) {
		if r != nil {
			u.relauncher = r
		}
	}
}

// WithTempDir sets the parent directory of download and staging directories.
func WithTempDir(dir string) Option {
	return func(u *Updater) {
		u.tempDir = dir
	}
}

// Run executes check, apply and restart and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "updater")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !logger.SetLevelFromString(cfg.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "level", cfg.LogLevel)
	}

	u, err := New(cfg, WithRelauncher(opts.Relauncher))
	if err != nil {
		return err
	}

	outcome, err := u.CheckForUpdates(ctx)
	if err != nil {
		return err
	}

	if outcome != OutcomeUpdated || opts.SkipRestart {
		return nil
	}

	return u.Restart(ctx)
}

// New creates an Updater for the installation described by cfg.
func New(cfg *config.Config, opts ...Option) (*Updater, error) {
	if cfg == nil {
		return nil, errSettingsNotInitialised
	}

	fs := afero.NewOsFs()
	u := &Updater{
		cfg:        cfg,
		fs:         fs,
		versions:   marker.NewFileRepository(fs, cfg.VersionPath()),
		relauncher: relaunch.New(),
		excluder:   Excluder(cfg),
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.source == nil {
		client, err := github.NewClient(cfg.GitHubRepo,
			github.WithBaseURL(cfg.APIURL),
			github.WithTimeout(cfg.Timeout),
			github.WithDownloadTimeout(cfg.DownloadTimeout),
			github.WithRetries(cfg.Retries, cfg.RetryInterval),
		)
		if err != nil {
			return nil, err
		}

		u.source = client
	}

	return u, nil
}

// CurrentVersion returns the local version marker, or release.InitialVersion when absent.
func (u *Updater) CurrentVersion(ctx context.Context) string {
	current, err := u.versions.Load(ctx)
	if err == nil && current != "" {
		return current
	}

	if err != nil && !errors.Is(err, marker.ErrNotFound) {
		logger.WarnKV(ctx, "Could not read version marker", "error", err)
	}

	return release.InitialVersion
}

// CheckForUpdates compares the local version with the latest release and applies it when they differ.
// A failed check never touches the installation.
func (u *Updater) CheckForUpdates(ctx context.Context) (Outcome, error) {
	current := u.CurrentVersion(ctx)

	logger.InfoKV(ctx, "Checking for updates", "current", current, "repository", u.cfg.GitHubRepo)

	latest, err := u.source.LatestRelease(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to check for updates", "error", err)

		return OutcomeFailed, fmt.Errorf("%w: %w", ErrCheckFailed, err)
	}

	if release.SameVersion(current, latest.Tag) {
		logger.InfoKV(ctx, "You're using the latest version", "version", current)

		return OutcomeUpToDate, nil
	}

	logger.InfoKV(ctx, "New version available", "latest", latest.Tag, "current", current)

	if err = u.downloadAndApply(ctx, latest); err != nil {
		return OutcomeFailed, err
	}

	return OutcomeUpdated, nil
}

// Apply installs a local release archive: backup, extract, validate, replace, restore data, clean up.
func (u *Updater) Apply(ctx context.Context, archivePath string) error {
	return u.apply(ctx, archivePath, func() {})
}

// Restart relaunches the program so the installed files take effect.
func (u *Updater) Restart(ctx context.Context) error {
	logger.Info(ctx, "Restarting application")

	if err := u.relauncher.Relaunch(ctx); err != nil {
		logger.ErrorKV(ctx, "Restart failed", "error", err)

		return fmt.Errorf("%w: %w", ErrRestartFailed, err)
	}

	return nil
}

// downloadAndApply fetches the release asset into its own scratch directory, which is
// removed right after extraction.
func (u *Updater) downloadAndApply(ctx context.Context, latest *release.Descriptor) error {
	downloadDir, err := afero.TempDir(u.fs, u.tempDir, downloadDirPrefix)
	if err != nil {
		return fmt.Errorf("%w: create download dir: %w", ErrDownloadFailed, err)
	}

	removeDownload := func() {
		u.removeQuietly(ctx, downloadDir)
	}

	logger.InfoKV(ctx, "Downloading update", "asset", latest.AssetName, "url", latest.DownloadURL)

	archivePath, err := u.source.Download(ctx, latest.DownloadURL, downloadDir)
	if err != nil {
		removeDownload()
		logger.ErrorKV(ctx, "Update failed. Please try again.", "error", err)

		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	return u.apply(ctx, archivePath, removeDownload)
}
