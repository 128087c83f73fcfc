// Package cli defines the command-line interface for genconf.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atframework/genconf/internal/logging"
)

const (
	// defaultEnvPrefix is the prefix of environment variables that supply flag defaults.
	defaultEnvPrefix = "AUTOBUILD_"
	// defaultConfigName is the configuration file looked up in the work directory.
	defaultConfigName = "config.conf"
)

// Options stores the CLI options of a generation run.
type Options struct {
	ConfigPath      string
	WorkDir         string
	InstallRoot     string
	Sets            []string
	Number          int
	IDOffset        int
	DisableSHM      bool
	DisableUnixSock bool
	EnvPrefix       string
	EnvFiles        []string
	VarFiles        []string
	ReportPath      string
	LogLevel        logging.Level

	// numberSet records whether Number came from a flag or the environment.
	numberSet bool
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
// SIGINT and SIGTERM cancel the run between instances.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(defaultOptions(), logger)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

// defaultOptions returns the options used before flags and environment are applied.
func defaultOptions() *Options {
	return &Options{
		WorkDir:   ".",
		EnvPrefix: defaultEnvPrefix,
		LogLevel:  logging.LevelInfo,
	}
}

// newRootCommand constructs the root cobra.Command. Running it without a subcommand
// generates configuration and scripts for the whole fleet.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genconf",
		Short: "genconf generates per-instance configuration and control scripts",
		Long: "genconf expands every service declared in an INI configuration into numbered instances " +
			"and renders their configuration files and start/stop/reload scripts, plus fleet-wide control scripts.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	addGenerateFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(
		newPlanCommand(opts),
		newRenderCommand(opts),
		newDoctorCommand(opts),
		newServerIDCommand(),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
