package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidbz/draftlock/internal/config"
)

// Build information, set with -ldflags.
//
//nolint:gochecknoglobals // set by the linker
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type rootOptions struct {
	envFile string
	backend string
	verbose bool
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "draftlock",
		Short: "Draftlock - pricing and usage accounting for draft rewriting",
		Long: `Draftlock rewrites drafts through a language model and accounts for
every token it spends.

It provides:
  - A versioned pricing catalog with alias and dated-name resolution
  - Exact decimal cost calculation
  - A persistent usage ledger with derived totals
  - A debounced live estimate of the next run's cost`,
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file to load")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "override language model backend (openai, echo)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newPriceCmd(opts),
		newEstimateCmd(opts),
		newTransformCmd(opts),
		newUsageCmd(opts),
		newTemplatesCmd(opts),
	)

	return cmd
}

// loadConfig reads the configuration and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, err
	}

	if o.backend != "" {
		cfg.LLM.Backend = o.backend
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	return cfg, nil
}

// invoke builds the container, initializes logging and calls fn with its
// dependencies. Everything fn caused to be constructed is released on return.
func invoke(cfg *config.Config, fn any) error {
	life := &lifecycle{}
	container, err := buildContainer(cfg, life)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := life.close(); closeErr != nil {
			fmt.Fprintln(os.Stderr, "shutdown:", closeErr)
		}
	}()

	if err := container.Invoke(func(*zap.Logger) {}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return container.Invoke(fn)
}
