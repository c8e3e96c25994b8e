package pricing

import (
	"math"
	"testing"
)

func TestDiscountPercent_Boundaries(t *testing.T) {
	tests := []struct {
		units int
		want  float64
	}{
		{0, 0},
		{1, 0},
		{500, 0},
		{501, 10},
		{1000, 10},
		{1001, 15},
		{50000, 15},
	}

	for _, tt := range tests {
		if got := DiscountPercent(tt.units); got != tt.want {
			t.Errorf("DiscountPercent(%d) = %.0f, want %.0f", tt.units, got, tt.want)
		}
	}
}

func TestComputeQuote_BulkDiscount(t *testing.T) {
	q := ComputeQuote([]Line{
		{ItemName: "A4 paper", Quantity: 600, UnitPrice: 0.05},
	})

	if q.TotalUnits != 600 {
		t.Errorf("TotalUnits = %d, want 600", q.TotalUnits)
	}
	if q.Subtotal != 30.00 {
		t.Errorf("Subtotal = %.2f, want 30.00", q.Subtotal)
	}
	if q.DiscountPercent != 10 {
		t.Errorf("DiscountPercent = %.0f, want 10", q.DiscountPercent)
	}
	if q.DiscountAmount != 3.00 {
		t.Errorf("DiscountAmount = %.2f, want 3.00", q.DiscountAmount)
	}
	if q.Total != 27.00 {
		t.Errorf("Total = %.2f, want 27.00", q.Total)
	}
}

func TestComputeQuote_DiscountAppliedAcrossLines(t *testing.T) {
	// Two lines of 300 units each: neither alone crosses the 500-unit tier,
	// but the summed total does.
	q := ComputeQuote([]Line{
		{ItemName: "A4 paper", Quantity: 300, UnitPrice: 0.05},
		{ItemName: "Cardstock", Quantity: 300, UnitPrice: 0.15},
	})

	if q.TotalUnits != 600 {
		t.Errorf("TotalUnits = %d, want 600", q.TotalUnits)
	}
	if q.DiscountPercent != 10 {
		t.Errorf("DiscountPercent = %.0f, want 10 (discount must apply to the summed subtotal)", q.DiscountPercent)
	}
	if q.Subtotal != 60.00 {
		t.Errorf("Subtotal = %.2f, want 60.00", q.Subtotal)
	}
	if q.Total != 54.00 {
		t.Errorf("Total = %.2f, want 54.00", q.Total)
	}
}

func TestComputeQuote_Empty(t *testing.T) {
	q := ComputeQuote(nil)
	if q.Subtotal != 0 || q.Total != 0 || q.TotalUnits != 0 || q.DiscountPercent != 0 {
		t.Errorf("empty quote not zero-valued: %+v", q)
	}
	if len(q.Breakdown) != 0 {
		t.Errorf("empty quote has breakdown: %v", q.Breakdown)
	}
}

func TestAllocateLineTotals_SumsToQuoteTotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
	}{
		{
			name:  "single line",
			lines: []Line{{ItemName: "A4 paper", Quantity: 600, UnitPrice: 0.05}},
		},
		{
			name: "multiple lines with discount",
			lines: []Line{
				{ItemName: "A4 paper", Quantity: 700, UnitPrice: 0.05},
				{ItemName: "Glossy paper", Quantity: 333, UnitPrice: 0.20},
				{ItemName: "Cardstock", Quantity: 1, UnitPrice: 0.15},
			},
		},
		{
			name: "no discount",
			lines: []Line{
				{ItemName: "Envelopes", Quantity: 100, UnitPrice: 0.05},
				{ItemName: "Sticky notes", Quantity: 50, UnitPrice: 0.03},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := ComputeQuote(tt.lines)
			allocated := AllocateLineTotals(q)
			if len(allocated) != len(tt.lines) {
				t.Fatalf("got %d allocations, want %d", len(allocated), len(tt.lines))
			}

			var sum float64
			for _, a := range allocated {
				sum += a
			}
			if math.Abs(sum-q.Total) > 1e-9 {
				t.Errorf("allocations sum to %.4f, want quote total %.4f", sum, q.Total)
			}
		})
	}
}

func TestLeadTimeDays_Boundaries(t *testing.T) {
	tests := []struct {
		qty  int
		want int
	}{
		{10, 0},
		{11, 1},
		{100, 1},
		{101, 4},
		{1000, 4},
		{1001, 7},
	}

	for _, tt := range tests {
		if got := LeadTimeDays(tt.qty); got != tt.want {
			t.Errorf("LeadTimeDays(%d) = %d, want %d", tt.qty, got, tt.want)
		}
	}
}

func TestLeadTimeDays_Monotonic(t *testing.T) {
	prev := 0
	for qty := 1; qty <= 2000; qty++ {
		days := LeadTimeDays(qty)
		if days < prev {
			t.Fatalf("LeadTimeDays(%d) = %d decreased from %d", qty, days, prev)
		}
		prev = days
	}
}

func TestDeliveryDate(t *testing.T) {
	tests := []struct {
		name      string
		orderDate string
		qty       int
		want      string
	}{
		{"same day", "2025-04-01", 5, "2025-04-01"},
		{"one day", "2025-04-01", 50, "2025-04-02"},
		{"four days", "2025-04-01", 500, "2025-04-05"},
		{"week with timestamp", "2025-04-01T09:00:00", 5000, "2025-04-08"},
		{"month rollover", "2025-01-30", 5000, "2025-02-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeliveryDate(tt.orderDate, tt.qty)
			if err != nil {
				t.Fatalf("DeliveryDate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DeliveryDate(%q, %d) = %q, want %q", tt.orderDate, tt.qty, got, tt.want)
			}
		})
	}
}

func TestDeliveryDate_InvalidDate(t *testing.T) {
	if _, err := DeliveryDate("not-a-date", 10); err == nil {
		t.Error("DeliveryDate() with invalid date succeeded, want error")
	}
}
