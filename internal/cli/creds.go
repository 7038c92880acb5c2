// internal/cli/creds.go
package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jobharbor/harvest/internal/config"
	"github.com/jobharbor/harvest/internal/ui"
)

// credsCmd groups credential management subcommands
var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage provider credentials in the OS keyring",
	Long: `Stores provider API credentials in the operating system keyring.
Environment variables (HARVEST_<NAME>) take precedence over stored values.`,
}

var credsSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store a credential (prompts for the value)",
	Example: `  harvest creds set adzuna_app_id
  harvest creds set adzuna_app_key`,
	Args: cobra.ExactArgs(1),
	RunE: runCredsSet,
}

var credsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a credential from the keyring",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredsDelete,
}

func init() {
	rootCmd.AddCommand(credsCmd)
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsDeleteCmd)

	// Credential commands never need backends.
	credsCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error { return nil }
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	fmt.Printf("value for %s: ", name)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read credential value: %w", err)
	}
	if len(value) == 0 {
		return fmt.Errorf("empty credential value")
	}

	if err := config.SetCredential(name, string(value)); err != nil {
		return err
	}
	fmt.Println(ui.Success("credential stored"))
	return nil
}

func runCredsDelete(cmd *cobra.Command, args []string) error {
	if err := config.DeleteCredential(args[0]); err != nil {
		return err
	}
	fmt.Println(ui.Success("credential removed"))
	return nil
}
