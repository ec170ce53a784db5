package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cheahjs/replicate-image-bundler/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "replicate-image-bundler",
	Short:             "Generate images with a hosted diffusion model and bundle them into a zip archive",
	SilenceUsage:      true,
	PersistentPreRunE: preRunE,
}

func init() {
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&cfg.PrettyLogs, "pretty-logs", cfg.PrettyLogs, "Human readable console logs")
	rootCmd.PersistentFlags().StringVar(&cfg.ModelEndpoint, "model", cfg.ModelEndpoint, "Model endpoint as owner/name or owner/name:version")

	rootCmd.AddCommand(serveCmd, generateCmd)
}

func preRunE(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(level)

	if cfg.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return cfg.Validate()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
