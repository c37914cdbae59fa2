package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanko-field/storefront/internal/platform/config"
	"github.com/hanko-field/storefront/internal/platform/observability"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront API over the dummyjson catalog",
		Long:          "Runs the storefront HTTP API when invoked without a subcommand.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file loaded before the process environment (default .env)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (defaults to LOG_LEVEL)")

	serveCmd := newServeCommand(opts)
	cmd.Args = cobra.NoArgs
	cmd.RunE = serveCmd.RunE
	cmd.AddCommand(serveCmd)
	cmd.AddCommand(newCatalogCommand(opts))
	return cmd
}

func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var loadOpts []config.Option
	if strings.TrimSpace(o.envFile) != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(o.envFile))
	}
	cfg, err := config.Load(cmd.Context(), loadOpts...)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) newLogger() (*zap.Logger, error) {
	level := o.logLevel
	if strings.TrimSpace(level) == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logger, err := observability.NewLoggerWithLevel(level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
