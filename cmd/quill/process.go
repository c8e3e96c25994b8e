package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/pkg/models"
)

var processDate string

var processCmd = &cobra.Command{
	Use:   "process <request>",
	Short: "Process a customer request",
	Long: `Process one customer request end to end: classify its intent, resolve
the items against the catalog, and quote or fulfill it.

Quotes are priced with bulk discounts and recorded in quote history.
Orders additionally record the sale, and trigger a restock purchase when
stock falls below an item's minimum level and cash reserves allow it.

Examples:
  quill process "How much would 600 sheets of A4 paper cost?"
  quill process "I'd like to order 200 rolls of banner paper" --date 2025-06-01`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processDate, "date", "", "Date the request is processed as of (YYYY-MM-DD, defaults to today)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	task := models.NewTask(strings.Join(args, " "), processDate)
	result := p.orchestrator.ProcessCustomerRequest(cmd.Context(), task)

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s %s\n\n", cyan("intent:"), result.Intent)
	fmt.Println(result.Response)

	if len(result.Restocks) > 0 {
		fmt.Println()
		for _, r := range result.Restocks {
			if r.Approved {
				fmt.Printf("%s restocked %d units of %s ($%.2f, arriving %s)\n",
					color.GreenString("✓"), r.Units, r.ItemName, r.Cost, r.ExpectedDelivery)
			} else {
				fmt.Printf("%s restock of %s deferred, $%.2f exceeds cash reserves\n",
					color.YellowString("!"), r.ItemName, r.Cost)
			}
		}
	}
	return nil
}
