package ledger

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// catalogFile is the YAML shape of a catalog seed file.
type catalogFile struct {
	Items []InventoryItem `yaml:"items"`
}

// defaultCatalog is the built-in paper catalog used when no seed file is
// provided. Prices are per unit.
var defaultCatalog = []InventoryItem{
	{ItemName: "A4 paper", Category: CategoryPaper, UnitPrice: 0.05, MinStockLevel: 500},
	{ItemName: "Letter-sized paper", Category: CategoryPaper, UnitPrice: 0.06, MinStockLevel: 500},
	{ItemName: "Cardstock", Category: CategoryPaper, UnitPrice: 0.15, MinStockLevel: 300},
	{ItemName: "Glossy paper", Category: CategoryPaper, UnitPrice: 0.20, MinStockLevel: 300},
	{ItemName: "Colored paper", Category: CategoryPaper, UnitPrice: 0.10, MinStockLevel: 400},
	{ItemName: "Recycled paper", Category: CategoryPaper, UnitPrice: 0.08, MinStockLevel: 400},
	{ItemName: "Envelopes", Category: CategoryProduct, UnitPrice: 0.05, MinStockLevel: 500},
	{ItemName: "Sticky notes", Category: CategoryProduct, UnitPrice: 0.03, MinStockLevel: 600},
	{ItemName: "Notepads", Category: CategoryProduct, UnitPrice: 1.50, MinStockLevel: 100},
	{ItemName: "Paper plates", Category: CategoryProduct, UnitPrice: 0.12, MinStockLevel: 300},
	{ItemName: "Paper cups", Category: CategoryProduct, UnitPrice: 0.08, MinStockLevel: 300},
	{ItemName: "Poster paper (24x36 inches)", Category: CategoryLargeFormat, UnitPrice: 1.00, MinStockLevel: 50},
	{ItemName: "Banner paper (36-inch roll)", Category: CategoryLargeFormat, UnitPrice: 2.50, MinStockLevel: 30},
	{ItemName: "Wrapping paper", Category: CategorySpecialty, UnitPrice: 0.35, MinStockLevel: 100},
	{ItemName: "Crepe paper", Category: CategorySpecialty, UnitPrice: 0.25, MinStockLevel: 100},
	{ItemName: "Invitation cards", Category: CategorySpecialty, UnitPrice: 0.50, MinStockLevel: 150},
}

// SeedOptions controls catalog seeding and the opening stock order.
type SeedOptions struct {
	// CatalogPath is an optional YAML file overriding the built-in catalog.
	CatalogPath string
	// AsOf is the date for the opening stock orders (YYYY-MM-DD).
	AsOf string
	// InitialStockFactor multiplies each item's minimum stock level to get
	// its opening stock. Zero means no opening stock is written.
	InitialStockFactor int
	// StartingCash is recorded as an opening sale so the derived cash
	// balance starts positive. Zero skips the entry.
	StartingCash float64
}

// Seed loads the catalog (from the YAML file if given, the built-in catalog
// otherwise) and optionally writes opening stock orders. Seeding is
// idempotent for the catalog; opening transactions are only written when
// the transaction log is empty.
func (s *Store) Seed(opts SeedOptions) error {
	items := defaultCatalog
	if opts.CatalogPath != "" {
		loaded, err := LoadCatalogFile(opts.CatalogPath)
		if err != nil {
			return err
		}
		items = loaded
	}

	for _, item := range items {
		if err := s.AddItem(item); err != nil {
			return err
		}
	}

	var txCount int
	if err := s.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&txCount); err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	if txCount > 0 {
		return nil
	}

	asOf := opts.AsOf
	if asOf == "" {
		asOf = "2025-01-01"
	}

	if opts.StartingCash > 0 {
		if _, err := s.Append("opening balance", TypeSales, 1, opts.StartingCash, asOf); err != nil {
			return fmt.Errorf("record starting cash: %w", err)
		}
	}

	if opts.InitialStockFactor > 0 {
		for _, item := range items {
			units := item.MinStockLevel * opts.InitialStockFactor
			if units == 0 {
				continue
			}
			// Opening stock is recorded at zero cost so it does not distort
			// the derived cash balance.
			if _, err := s.Append(item.ItemName, TypeStockOrders, units, 0, asOf); err != nil {
				return fmt.Errorf("record opening stock for %q: %w", item.ItemName, err)
			}
		}
	}

	return nil
}

// LoadCatalogFile reads a YAML catalog seed file.
func LoadCatalogFile(path string) ([]InventoryItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if len(cf.Items) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no items", path)
	}

	for _, item := range cf.Items {
		if item.ItemName == "" {
			return nil, fmt.Errorf("catalog file %s: item with empty name", path)
		}
		if !item.Category.Valid() {
			return nil, fmt.Errorf("catalog file %s: invalid category %q for %q", path, item.Category, item.ItemName)
		}
	}

	return cf.Items, nil
}
