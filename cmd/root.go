// Package cmd defines and implements the CLI commands for the onboarder executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/receptionist-onboarding/internal/config"
	"github.com/JakeFAU/receptionist-onboarding/internal/logging"
	"github.com/JakeFAU/receptionist-onboarding/internal/server"
	"github.com/JakeFAU/receptionist-onboarding/internal/worker"
)

// runtimeKeyType is the key for storing the runtime in the context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// runtime carries what every subcommand needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
}

// App is the subset of server.App the commands drive. Tests swap in a fake.
type App interface {
	Run(ctx context.Context) error
	Importer() worker.Importer
	Close(ctx context.Context)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (App, error) {
	app, err := server.Build(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("build application: %w", err)
	}
	return app, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "onboarder",
		Short: "Imports small-business websites into receptionist profiles.",
		Long: `onboarder crawls a business website with a headless browser, extracts
contact details, opening hours, locations, and the price list, and merges
them into the stored business profile.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)
			ctx := context.WithValue(cmd.Context(), runtimeKey, &runtime{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, err := resolveRuntime(cmd.Context()); err == nil {
				_ = rt.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, JSON, or TOML)")
	cmd.AddCommand(newServeCmd(), newImportCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	if ctx == nil {
		return nil, errors.New("runtime not initialized")
	}
	rt, ok := ctx.Value(runtimeKey).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
