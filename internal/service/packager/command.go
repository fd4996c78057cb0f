package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/selfupdate/internal/archive"
	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/domain/release"
	"github.com/oshokin/selfupdate/internal/logger"
	"github.com/oshokin/selfupdate/internal/repository/marker"
	"github.com/oshokin/selfupdate/internal/service/updater"
	"github.com/oshokin/selfupdate/internal/workspace"
)

const (
	// DefaultOutputDir is where the archive and manifest are written, relative to the project.
	DefaultOutputDir = "dist"

	// ArchiveFilename is the name of the packed release.
	ArchiveFilename = "update.zip"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is the optional path to the settings file.
	ConfigPath string
	// Bump is the version component to increment ("" means patch).
	Bump string
	// OutputDir receives the archive and manifest; relative paths are resolved against the project.
	OutputDir string
}

// packager bumps the version and packs the project of a single run.
// It is unexported; callers should use Run, which loads and validates the settings.
type packager struct {
	// cfg holds the settings of the project being packed.
	cfg *config.Config
	// fs is the filesystem holding the project.
	fs afero.Fs
	// versions persists the version marker.
	versions marker.Repository
	// excluder skips reserved entries, the output directory and the settings file.
	excluder *workspace.Excluder
	// outputDir is the absolute output directory.
	outputDir string
	// bump selects the version component to increment.
	bump release.BumpKind
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "packager")

	bump, err := release.ParseBumpKind(opts.Bump)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if !logger.SetLevelFromString(cfg.LogLevel) {
		logger.WarnKV(ctx, "Unknown log level, keeping default", "level", cfg.LogLevel)
	}

	manifest, err := Pack(ctx, cfg, afero.NewOsFs(), bump, opts.OutputDir, settingsPath(opts.ConfigPath))
	if err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "version", manifest.Version)

	return nil
}

// Pack bumps the version marker of the project described by cfg, packs the project into
// outputDir and writes the manifest. extraExcluded are absolute paths kept out of the archive.
func Pack(
	ctx context.Context,
	cfg *config.Config,
	fsys afero.Fs,
	bump release.BumpKind,
	outputDir string,
	extraExcluded ...string,
) (*Manifest, error) {
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(cfg.ProjectDir, outputDir)
	}

	p := &packager{
		cfg:       cfg,
		fs:        fsys,
		versions:  marker.NewFileRepository(fsys, cfg.VersionPath()),
		excluder:  updater.Excluder(cfg, append([]string{outputDir}, extraExcluded...)...),
		outputDir: filepath.Clean(outputDir),
		bump:      bump,
	}

	return p.run(ctx)
}

func (p *packager) run(ctx context.Context) (*Manifest, error) {
	next, err := p.bumpVersion(ctx)
	if err != nil {
		return nil, err
	}

	if err = p.fs.MkdirAll(p.outputDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	archivePath := filepath.Join(p.outputDir, ArchiveFilename)

	logger.InfoKV(ctx, "Packing project", "project", p.cfg.ProjectDir, "excluded", p.excluder.Items())

	count, err := archive.Pack(p.fs, p.cfg.ProjectDir, archivePath, p.cfg.ZipPassword, p.excluder)
	if err != nil {
		return nil, fmt.Errorf("pack project: %w", err)
	}

	checksum, err := FileChecksum(p.fs, archivePath)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:  next,
		Archive:  ArchiveFilename,
		Checksum: checksum,
		Files:    count,
	}

	manifestPath := filepath.Join(p.outputDir, ManifestFilename)

	logger.InfoKV(ctx, "Saving release manifest", "path", manifestPath)

	if err = writeManifest(p.fs, manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	p.printNextSteps(ctx, manifest)

	return manifest, nil
}

// bumpVersion increments and persists the version marker.
func (p *packager) bumpVersion(ctx context.Context) (string, error) {
	current, err := p.versions.Load(ctx)

	switch {
	case errors.Is(err, marker.ErrNotFound):
		current = release.InitialVersion
	case err != nil:
		return "", err
	}

	next, normalized, err := release.Bump(current, p.bump)
	if err != nil {
		return "", err
	}

	if normalized {
		logger.WarnKV(ctx, "Invalid version format, using baseline",
			"found", current,
			"baseline", release.BaselineVersion,
		)
	}

	if err = p.versions.Save(ctx, next); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Version bumped", "from", current, "to", next, "bump", string(p.bump))

	return next, nil
}

// printNextSteps logs human-readable guidance for publishing the release.
func (p *packager) printNextSteps(ctx context.Context, m *Manifest) {
	var builder strings.Builder

	builder.WriteString("Packed ")
	builder.WriteString(strconv.Itoa(m.Files))
	builder.WriteString(" files into ")
	builder.WriteString(filepath.Join(p.outputDir, m.Archive))
	builder.WriteString("\n\nCreate a release tagged v")
	builder.WriteString(m.Version)
	builder.WriteString(" in ")
	builder.WriteString(p.cfg.GitHubRepo)
	builder.WriteString(" and upload ")
	builder.WriteString(m.Archive)
	builder.WriteString(" as its first asset.")
	builder.WriteString("\nSHA-512: ")
	builder.WriteString(m.Checksum)

	logger.Info(ctx, builder.String())
}

// settingsPath resolves the settings file so it can be kept out of the archive.
func settingsPath(configPath string) string {
	if configPath == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return ""
		}

		configPath = defaultPath
	}

	abs, err := filepath.Abs(configPath)
	if err != nil {
		return ""
	}

	return abs
}
