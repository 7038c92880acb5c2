package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors")
	cmd.PersistentFlags().Bool("json", false, "Log in JSON format")
	cmd.PersistentFlags().String("timeout", "30s", "Hard timeout for HTTP requests")
	cmd.PersistentFlags().String("host-delay", "2s", "Minimum delay between requests to the same host")
	cmd.PersistentFlags().String("user-agent", "", "Custom user agent string")
	cmd.PersistentFlags().String("targets", "", "Path to the career-page targets YAML file")
	cmd.PersistentFlags().Int("concurrency", DefaultConcurrency, "Number of sources processed in parallel")
	cmd.PersistentFlags().Int("limit", DefaultFetchLimit, "Maximum candidates fetched per API source")
	cmd.PersistentFlags().Bool("render", false, "Render JavaScript-only pages in a headless browser")
}
