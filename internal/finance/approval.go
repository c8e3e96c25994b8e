// Package finance implements purchase approval against cash reserves and
// financial reporting over the ledger.
package finance

import (
	"fmt"
	"math"
)

// DefaultSafetyMargin is the fraction of the cash balance reserved and
// excluded from purchase approval.
const DefaultSafetyMargin = 0.20

// ApprovalDecision is the outcome of a purchase approval check. It is
// derived from the cash balance and never persisted.
type ApprovalDecision struct {
	Approved             bool    `json:"approved"`
	PurchaseAmount       float64 `json:"purchase_amount"`
	CurrentBalance       float64 `json:"current_balance"`
	MinimumBalance       float64 `json:"minimum_balance"`
	AvailableForPurchase float64 `json:"available_for_purchase"`
	SafetyMarginPercent  float64 `json:"safety_margin_percent"`
}

// Approve decides whether a purchase keeps the cash balance above the
// safety margin. The boundary is inclusive: a purchase equal to the
// available amount is approved. A non-positive or out-of-range margin
// falls back to the default.
func Approve(purchaseAmount, currentBalance, safetyMargin float64) ApprovalDecision {
	if safetyMargin <= 0 || safetyMargin >= 1 {
		safetyMargin = DefaultSafetyMargin
	}

	minimum := roundCents(currentBalance * safetyMargin)
	available := roundCents(currentBalance - minimum)

	return ApprovalDecision{
		Approved:             purchaseAmount <= available,
		PurchaseAmount:       roundCents(purchaseAmount),
		CurrentBalance:       roundCents(currentBalance),
		MinimumBalance:       minimum,
		AvailableForPurchase: available,
		SafetyMarginPercent:  safetyMargin * 100,
	}
}

// Message renders the decision as a human-readable status line.
func (d ApprovalDecision) Message() string {
	if d.Approved {
		return fmt.Sprintf("APPROVED: purchase of $%.2f approved; balance $%.2f stays above minimum $%.2f",
			d.PurchaseAmount, d.CurrentBalance-d.PurchaseAmount, d.MinimumBalance)
	}
	return fmt.Sprintf("REJECTED: purchase of $%.2f exceeds available funds; maximum approvable amount is $%.2f (balance $%.2f, reserve $%.2f)",
		d.PurchaseAmount, d.AvailableForPurchase, d.CurrentBalance, d.MinimumBalance)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
