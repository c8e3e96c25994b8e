package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quill",
	Short: "Agent-run paper company back office",
	Long: `Quill runs the back office of a paper supply company with a team of
specialist agents over an append-only transaction ledger.

Customer requests are classified, priced against the catalog with bulk
discounts, and fulfilled transactionally: sales are recorded, purchases
are gated on cash reserves, and low stock triggers restocking.

Start with 'quill init' to create the ledger, then feed it requests with
'quill process' or multi-step goals with 'quill workflow'.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
