package handler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quillworks/quill/internal/finance"
	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
)

const financialPersona = `You are the financial controller for Quill, a paper supply company.
You report cash balance, approve or reject purchases against the safety
margin policy, and produce financial reports. When a purchase is rejected,
state the approved spending limit so the requester can adjust. Base every
answer on tool results, never on estimates.`

// FinancialHandler answers cash questions and gates purchases against the
// safety margin policy.
type FinancialHandler struct {
	store        *ledger.Store
	safetyMargin float64
	loop         *ToolLoop
}

var _ Handler = (*FinancialHandler)(nil)

// NewFinancialHandler wires the finance tool set to the given ledger.
// A non-positive safetyMargin selects the default policy.
func NewFinancialHandler(o oracle.Oracle, store *ledger.Store, safetyMargin float64, maxSteps int) *FinancialHandler {
	h := &FinancialHandler{store: store, safetyMargin: safetyMargin}
	h.loop = NewToolLoop(o, financialPersona, h.tools(), maxSteps)
	return h
}

func (h *FinancialHandler) Name() string { return "financial" }

func (h *FinancialHandler) Description() string {
	return "Reports cash balance and financial health, and approves or rejects purchases against the cash safety margin. Does not record transactions."
}

func (h *FinancialHandler) Execute(ctx context.Context, task string) (string, error) {
	result, err := h.loop.Run(ctx, task)
	if err != nil {
		return "", fmt.Errorf("financial handler: %w", err)
	}
	return result.Output, nil
}

func (h *FinancialHandler) tools() []Tool {
	return []Tool{
		{
			Def: oracle.ToolDef{
				Name:        "check_cash_balance",
				Description: "Get the company cash balance as of a date.",
				Properties: map[string]interface{}{
					"as_of": map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"as_of"},
			},
			Run: h.cashBalance,
		},
		{
			Def: oracle.ToolDef{
				Name:        "approve_purchase",
				Description: "Decide whether a purchase amount fits within the cash safety margin as of a date.",
				Properties: map[string]interface{}{
					"amount": map[string]interface{}{"type": "number", "description": "Purchase amount in dollars"},
					"as_of":  map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"amount", "as_of"},
			},
			Run: h.approvePurchase,
		},
		{
			Def: oracle.ToolDef{
				Name:        "financial_report",
				Description: "Generate the full financial report: cash, inventory valuation, total assets, and top selling items.",
				Properties: map[string]interface{}{
					"as_of": map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"as_of"},
			},
			Run: h.report,
		},
		{
			Def: oracle.ToolDef{
				Name:        "financial_health",
				Description: "Classify financial health from the cash to total assets ratio as of a date.",
				Properties: map[string]interface{}{
					"as_of": map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"as_of"},
			},
			Run: h.health,
		},
	}
}

func (h *FinancialHandler) cashBalance(_ context.Context, input json.RawMessage) string {
	var args struct {
		AsOf string `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	balance, err := h.store.CashBalance(args.AsOf)
	if err != nil {
		return toolFailure(err, "could not read cash balance")
	}
	return toolSuccess(map[string]any{"as_of": args.AsOf, "cash_balance": balance})
}

func (h *FinancialHandler) approvePurchase(_ context.Context, input json.RawMessage) string {
	var args struct {
		Amount float64 `json:"amount"`
		AsOf   string  `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	balance, err := h.store.CashBalance(args.AsOf)
	if err != nil {
		return toolFailure(err, "could not read cash balance")
	}
	decision := finance.Approve(args.Amount, balance, h.safetyMargin)
	return toolSuccess(decision)
}

func (h *FinancialHandler) report(_ context.Context, input json.RawMessage) string {
	var args struct {
		AsOf string `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	rep, err := finance.GenerateReport(h.store, args.AsOf)
	if err != nil {
		return toolFailure(err, "could not generate report")
	}
	return toolSuccess(rep)
}

func (h *FinancialHandler) health(_ context.Context, input json.RawMessage) string {
	var args struct {
		AsOf string `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	rep, err := finance.GenerateReport(h.store, args.AsOf)
	if err != nil {
		return toolFailure(err, "could not generate report")
	}
	return toolSuccess(map[string]any{
		"as_of":        args.AsOf,
		"cash_balance": rep.CashBalance,
		"total_assets": rep.TotalAssets,
		"health":       rep.Health,
	})
}
