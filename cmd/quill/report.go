package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/internal/finance"
)

var reportDate string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the financial report",
	Long: `Print the financial report as of a date: cash balance, inventory
valuation at catalog prices, total assets, financial health, and top
selling products.

The report is computed directly from the ledger and involves no agents.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Report date (YYYY-MM-DD, defaults to today)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	asOf := reportDate
	if asOf == "" {
		asOf = time.Now().Format("2006-01-02")
	}

	rep, err := finance.GenerateReport(store, asOf)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	healthColor := color.GreenString
	switch rep.Health {
	case finance.HealthFair:
		healthColor = color.YellowString
	case finance.HealthPoor:
		healthColor = color.RedString
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s (as of %s)\n\n", bold("Financial report"), rep.AsOf)
	fmt.Printf("Cash balance:     $%.2f\n", rep.CashBalance)
	fmt.Printf("Inventory value:  $%.2f\n", rep.InventoryValue)
	fmt.Printf("Total assets:     $%.2f\n", rep.TotalAssets)
	fmt.Printf("Health:           %s (cash/assets %.2f)\n", healthColor(string(rep.Health)), rep.CashToAssets)

	if len(rep.TopSellers) > 0 {
		fmt.Printf("\n%s\n", bold("Top sellers"))
		for _, s := range rep.TopSellers {
			fmt.Printf("  %-28s %6d units  $%.2f\n", s.ItemName, s.TotalUnits, s.Revenue)
		}
	}
	return nil
}
