package pricing

import (
	"fmt"
	"time"
)

// LeadTimeDays returns the supplier lead time for an order quantity. The
// function is a non-decreasing step function of quantity.
func LeadTimeDays(quantity int) int {
	switch {
	case quantity <= 10:
		return 0
	case quantity <= 100:
		return 1
	case quantity <= 1000:
		return 4
	default:
		return 7
	}
}

// DeliveryDate returns the estimated delivery date for an order placed on
// orderDate (YYYY-MM-DD, a timestamp suffix is tolerated).
func DeliveryDate(orderDate string, quantity int) (string, error) {
	base := orderDate
	if len(base) > 10 {
		base = base[:10]
	}

	t, err := time.Parse("2006-01-02", base)
	if err != nil {
		return "", fmt.Errorf("invalid order date %q: %w", orderDate, err)
	}

	delivery := t.AddDate(0, 0, LeadTimeDays(quantity))
	return delivery.Format("2006-01-02"), nil
}
