package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/internal/ledger"
)

var (
	initCatalogPath  string
	initDate         string
	initStartingCash float64
	initStockFactor  int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and seed the ledger",
	Long: `Create the ledger database, load the product catalog, and record the
opening balance and opening stock.

Seeding is idempotent: running init again refreshes the catalog but never
duplicates opening transactions.

Examples:
  quill init                                # Built-in catalog, default opening books
  quill init --catalog products.yaml        # Custom catalog
  quill init --starting-cash 50000          # Custom opening balance
  quill init --stock-factor 0               # No opening stock`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initCatalogPath, "catalog", "", "YAML catalog file overriding the built-in catalog")
	initCmd.Flags().StringVar(&initDate, "date", "", "Date for opening transactions (YYYY-MM-DD, defaults to 2025-01-01)")
	initCmd.Flags().Float64Var(&initStartingCash, "starting-cash", 20000, "Opening cash balance in dollars")
	initCmd.Flags().IntVar(&initStockFactor, "stock-factor", 2, "Opening stock as a multiple of each item's minimum level")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	catalogPath := initCatalogPath
	if catalogPath == "" {
		catalogPath = cfg.Ledger.CatalogPath
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(ledger.SeedOptions{
		CatalogPath:        catalogPath,
		AsOf:               initDate,
		InitialStockFactor: initStockFactor,
		StartingCash:       initStartingCash,
	}); err != nil {
		return fmt.Errorf("seed ledger: %w", err)
	}

	items, err := store.Items()
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	green := color.New(color.FgGreen).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s Ledger ready at %s\n", green("✓"), bold(store.Path()))
	fmt.Printf("  %d catalog items loaded\n", len(items))
	if initStartingCash > 0 {
		fmt.Printf("  Opening balance: $%.2f\n", initStartingCash)
	}
	return nil
}
