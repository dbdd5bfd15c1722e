// Package commands implements the CLI commands for the ladle recipe runner.
package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/ladle/internal/app"
	"go.trai.ch/ladle/internal/core/domain"
)

// CLI represents the command line interface for ladle.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "ladle",
		Short:         "A cache-aware autopkg recipe runner for CI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "ladle.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().String("log-format", "text", "Log output format (text or json)")
	rootCmd.PersistentFlags().String("backend", "", "Cache backend (json, bolt, sqlite, s3, azure, gcs)")
	rootCmd.PersistentFlags().IntP("concurrency", "j", 0, "Maximum concurrent recipe runs")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-recipe timeout")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newTrustCmd())
	rootCmd.AddCommand(c.newCacheCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetLogHook sets up a PersistentPreRun function that retrieves the verbosity
// flags and calls the provided callback before any command runs.
func (c *CLI) SetLogHook(fn func(verbosity int, quiet bool)) {
	c.rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			return err
		}
		quiet, err := cmd.Flags().GetBool("quiet")
		if err != nil {
			return err
		}
		fn(verbosity, quiet)
		return nil
	}
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// settings loads the configuration file and layers any persistent flag
// overrides on top of it.
func (c *CLI) settings(cmd *cobra.Command) (domain.Settings, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return domain.Settings{}, err
	}

	settings, err := c.app.Settings(configPath)
	if err != nil {
		return domain.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		settings.Backend.Name, _ = flags.GetString("backend")
	}
	if flags.Changed("concurrency") {
		settings.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("timeout") {
		var timeout time.Duration
		timeout, _ = flags.GetDuration("timeout")
		settings.Timeout = timeout
	}
	return settings, nil
}
