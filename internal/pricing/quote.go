// Package pricing implements the pure business math for quotes: bulk
// discount tiers, line breakdowns, and supplier lead times.
package pricing

import "math"

// Line is one requested item with its catalog unit price.
type Line struct {
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// QuoteLine is one priced line of a quote breakdown.
type QuoteLine struct {
	ItemName  string  `json:"item_name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// Quote is the full priced result for one request. It is a pure function of
// catalog prices and requested quantities and carries no identity.
type Quote struct {
	Breakdown       []QuoteLine `json:"breakdown"`
	Subtotal        float64     `json:"subtotal"`
	DiscountPercent float64     `json:"discount_percent"`
	DiscountAmount  float64     `json:"discount_amount"`
	Total           float64     `json:"total"`
	TotalUnits      int         `json:"total_units"`
}

// DiscountPercent returns the bulk discount tier for the summed unit count
// across all lines of a quote.
func DiscountPercent(totalUnits int) float64 {
	switch {
	case totalUnits <= 500:
		return 0
	case totalUnits <= 1000:
		return 10
	default:
		return 15
	}
}

// ComputeQuote prices the given lines, applying the bulk discount tier to
// the summed subtotal rather than per line. An empty request yields a
// zero-valued quote.
func ComputeQuote(lines []Line) Quote {
	q := Quote{Breakdown: []QuoteLine{}}

	for _, line := range lines {
		lineTotal := roundCents(float64(line.Quantity) * line.UnitPrice)
		q.Breakdown = append(q.Breakdown, QuoteLine{
			ItemName:  line.ItemName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: lineTotal,
		})
		q.Subtotal += lineTotal
		q.TotalUnits += line.Quantity
	}

	q.Subtotal = roundCents(q.Subtotal)
	q.DiscountPercent = DiscountPercent(q.TotalUnits)
	q.DiscountAmount = roundCents(q.Subtotal * q.DiscountPercent / 100)
	q.Total = roundCents(q.Subtotal - q.DiscountAmount)
	return q
}

// AllocateLineTotals distributes the discounted quote total across its
// lines in proportion to each line's share of the subtotal. The allocations
// sum exactly to the quote total: rounding remainder lands on the last
// line. This keeps per-item ledger entries consistent with the authoritative
// quote total.
func AllocateLineTotals(q Quote) []float64 {
	if len(q.Breakdown) == 0 {
		return nil
	}

	allocated := make([]float64, len(q.Breakdown))
	var running float64
	for i, line := range q.Breakdown {
		if i == len(q.Breakdown)-1 {
			allocated[i] = roundCents(q.Total - running)
			break
		}
		share := roundCents(line.LineTotal * (1 - q.DiscountPercent/100))
		allocated[i] = share
		running += share
	}
	return allocated
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
