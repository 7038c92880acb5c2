// internal/cli/dedupe.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobharbor/harvest/internal/ui"
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Sweep the store for duplicate records",
	Long: `Scans all stored listings grouped by company, removes duplicates, and
keeps the earliest-created record of each group.`,
	Args: cobra.NoArgs,
	RunE: runDedupe,
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	a := GetApp()

	stats, err := a.Engine.FindAndRemoveDuplicates(cmd.Context())
	if err != nil {
		return fmt.Errorf("dedupe sweep: %w", err)
	}

	fmt.Printf("scanned %d records in %d company groups\n", stats.Scanned, stats.Groups)
	if stats.RemovedDuplicates == 0 {
		fmt.Println(ui.Success("no duplicates found"))
	} else {
		fmt.Println(ui.Warn(fmt.Sprintf("removed %d duplicates", stats.RemovedDuplicates)))
	}
	return nil
}
