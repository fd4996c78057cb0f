package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/domain/release"
	"github.com/oshokin/selfupdate/internal/service/packager"
	"github.com/oshokin/selfupdate/internal/version"
)

var (
	// configPath to the TOML settings file.
	configPath string

	// outputDir receives the archive and manifest.
	outputDir string

	// rootCmd represents the base command for building a release.
	rootCmd = &cobra.Command{
		Use:       "packager [patch|minor|major]",
		Short:     "Bump the version and build an encrypted release archive",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: release.BumpKinds(),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				OutputDir:  outputDir,
			}

			if len(args) > 0 {
				options.Bump = args[0]
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" in the installation directory)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", packager.DefaultOutputDir, "directory receiving the archive and manifest")
}
