// internal/cli/root.go
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobharbor/harvest/internal/app"
	"github.com/jobharbor/harvest/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "harvest",
	Short:   "Collect, deduplicate, and store job listings",
	Long:    `Harvest pulls job listings from provider APIs and employer career pages, deduplicates them, and writes them to a single store.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.RegisterFlags(rootCmd)

	// Lazily initialize the application before running commands (avoid
	// starting backends for -h/help)
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if globalApp != nil {
			return nil
		}

		cfg, err := config.Load(rootCmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
		defer cancel()
		a, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		globalApp = a
		return nil
	}

	// Ensure app is closed after command runs
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if globalApp == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), globalApp.Config.HTTPTimeout)
		defer cancel()
		_ = globalApp.Close(ctx)
		globalApp = nil
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
