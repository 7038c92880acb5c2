// internal/cli/run.go
package cli

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jobharbor/harvest/internal/notify"
)

var noProgress bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one ingestion pass over all configured sources",
	Long: `Fetches listings from every configured provider API and crawls every
career-page target, pushes all candidates through deduplication, and prints
the run summary.`,
	Example: `  # Run with the default sources
  harvest run

  # Include career pages from a targets file
  harvest run --targets targets.yaml

  # Render JavaScript-only pages in a headless browser
  harvest run --targets targets.yaml --render`,
	Args: cobra.NoArgs,
	RunE: runIngestion,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
}

func runIngestion(cmd *cobra.Command, args []string) error {
	a := GetApp()

	targets, err := a.Targets()
	if err != nil {
		return fmt.Errorf("load crawl targets: %w", err)
	}

	total := len(a.Sources) + len(targets)
	if total == 0 {
		return fmt.Errorf("nothing to do: no sources configured and no targets file given")
	}

	if !noProgress {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("ingesting"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		a.Coordinator.Progress = func() { _ = bar.Add(1) }
	}

	summary := a.Coordinator.Run(cmd.Context(), a.Sources, targets)
	fmt.Print(notify.FormatText(summary))

	if total := summary.Totals(); total.ErrorCount > 0 {
		return fmt.Errorf("run finished with %d errors", total.ErrorCount)
	}
	return nil
}
