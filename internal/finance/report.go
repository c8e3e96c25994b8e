package finance

import (
	"fmt"

	"github.com/quillworks/quill/internal/ledger"
)

// HealthStatus classifies liquidity from the cash-to-assets ratio.
type HealthStatus string

const (
	HealthExcellent HealthStatus = "EXCELLENT"
	HealthGood      HealthStatus = "GOOD"
	HealthFair      HealthStatus = "FAIR"
	HealthPoor      HealthStatus = "POOR"
)

// ClassifyHealth maps the cash-to-assets ratio onto a health status.
// A business with no assets is classified POOR.
func ClassifyHealth(cash, totalAssets float64) HealthStatus {
	if totalAssets <= 0 {
		return HealthPoor
	}
	ratio := cash / totalAssets
	switch {
	case ratio >= 0.30:
		return HealthExcellent
	case ratio >= 0.20:
		return HealthGood
	case ratio >= 0.10:
		return HealthFair
	default:
		return HealthPoor
	}
}

// ItemValuation is one catalog item's contribution to inventory value.
type ItemValuation struct {
	ItemName  string  `json:"item_name"`
	Stock     int     `json:"stock"`
	UnitPrice float64 `json:"unit_price"`
	Value     float64 `json:"value"`
}

// Report is a point-in-time financial summary derived from the ledger.
type Report struct {
	AsOf             string             `json:"as_of_date"`
	CashBalance      float64            `json:"cash_balance"`
	InventoryValue   float64            `json:"inventory_value"`
	TotalAssets      float64            `json:"total_assets"`
	CashToAssets     float64            `json:"cash_to_assets_ratio"`
	Health           HealthStatus       `json:"health_status"`
	InventorySummary []ItemValuation    `json:"inventory_summary"`
	TopSellers       []ledger.ItemSales `json:"top_selling_products"`
}

// GenerateReport computes the financial report as of the given date: cash,
// inventory valuation at catalog prices, total assets, per-item summary,
// and the top five sellers.
func GenerateReport(store *ledger.Store, asOf string) (*Report, error) {
	cash, err := store.CashBalance(asOf)
	if err != nil {
		return nil, fmt.Errorf("report cash balance: %w", err)
	}

	items, err := store.Items()
	if err != nil {
		return nil, fmt.Errorf("report catalog: %w", err)
	}

	report := &Report{AsOf: asOf, CashBalance: roundCents(cash)}
	for _, item := range items {
		stock, err := store.StockLevel(item.ItemName, asOf)
		if err != nil {
			return nil, fmt.Errorf("report stock for %q: %w", item.ItemName, err)
		}
		value := roundCents(float64(stock) * item.UnitPrice)
		report.InventoryValue += value
		report.InventorySummary = append(report.InventorySummary, ItemValuation{
			ItemName:  item.ItemName,
			Stock:     stock,
			UnitPrice: item.UnitPrice,
			Value:     value,
		})
	}
	report.InventoryValue = roundCents(report.InventoryValue)
	report.TotalAssets = roundCents(report.CashBalance + report.InventoryValue)
	if report.TotalAssets > 0 {
		report.CashToAssets = report.CashBalance / report.TotalAssets
	}
	report.Health = ClassifyHealth(report.CashBalance, report.TotalAssets)

	sellers, err := store.TopSellers(asOf, 5)
	if err != nil {
		return nil, fmt.Errorf("report top sellers: %w", err)
	}
	report.TopSellers = sellers

	return report, nil
}

// Summary renders the report headline figures.
func (r *Report) Summary() string {
	return fmt.Sprintf("Financial report as of %s:\n  Cash: $%.2f\n  Inventory: $%.2f\n  Total assets: $%.2f\n  Health: %s",
		r.AsOf, r.CashBalance, r.InventoryValue, r.TotalAssets, r.Health)
}
