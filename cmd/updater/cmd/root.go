package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/selfupdate/internal/config"
	"github.com/oshokin/selfupdate/internal/service/updater"
	"github.com/oshokin/selfupdate/internal/version"
)

var (
	// configPath to the TOML settings file.
	configPath string

	// skipRestart keeps the process alive after a successful update.
	skipRestart bool

	// rootCmd represents the base command for checking, applying and restarting.
	rootCmd = &cobra.Command{
		Use:   "updater",
		Short: "Check GitHub for a newer release and apply it in place",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &updater.Options{
				ConfigPath:  configPath,
				SkipRestart: skipRestart,
			}

			return updater.Run(ctx, options)
		},
	}
)

// Execute runs the updater CLI and exits with non-zero status on error.
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
	rootCmd.Flags().BoolVar(&skipRestart, "no-restart", false, "do not relaunch the program after an update")
}
