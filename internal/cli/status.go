// internal/cli/status.go
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobharbor/harvest/internal/ui"
	"github.com/jobharbor/harvest/pkg/models"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remaining request quota per source",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json-output", false, "Print status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := GetApp()

	var statuses []models.QuotaStatus
	for _, src := range a.Sources {
		statuses = append(statuses, a.Ledger.Status(src.Name()))
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	fmt.Printf("%-20s %10s %s\n", ui.Bold("SOURCE"), ui.Bold("REMAINING"), ui.Bold("NEXT RESET"))
	for _, st := range statuses {
		reset := "-"
		if st.NextReset != nil {
			reset = st.NextReset.Local().Format("2006-01-02 15:04")
		}
		remaining := fmt.Sprintf("%d", st.Remaining)
		if st.Remaining == 0 {
			remaining = ui.Error(remaining)
		} else {
			remaining = ui.Success(remaining)
		}
		fmt.Printf("%-20s %10s %s\n", st.Source, remaining, reset)
	}
	return nil
}
