package main

import (
	"os"
	"strings"

	"clinic-api/config"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "clinic-api",
		Short:        "Accounts and subscriptions API for the clinic SaaS",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger writes JSON to stdout, or the console format in development.
func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout)
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger.Level(level).With().Timestamp().Str("env", cfg.AppEnv).Logger()
}

// loadConfig logs every degraded setting before handing the config back.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, warnings, err := config.Load()
	if err != nil {
		return nil, zerolog.New(os.Stderr).With().Timestamp().Logger(), err
	}
	logger := newLogger(cfg)
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}
	return cfg, logger, nil
}
