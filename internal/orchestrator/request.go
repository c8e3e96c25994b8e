package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quillworks/quill/internal/finance"
	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/pricing"
	"github.com/quillworks/quill/internal/router"
	"github.com/quillworks/quill/pkg/models"
)

// Intent is the classified purpose of a customer request.
type Intent string

const (
	IntentQuote   Intent = "quote"
	IntentOrder   Intent = "order"
	IntentGeneral Intent = "general"
)

// RestockAction records one restock attempt made after a sale.
type RestockAction struct {
	ItemName         string  `json:"item_name"`
	Units            int     `json:"units"`
	Cost             float64 `json:"cost"`
	Approved         bool    `json:"approved"`
	ExpectedDelivery string  `json:"expected_delivery,omitempty"`
}

// RequestResult is the outcome of processing one customer request.
type RequestResult struct {
	Intent   Intent          `json:"intent"`
	Response string          `json:"response"`
	Quote    *pricing.Quote  `json:"quote,omitempty"`
	SaleIDs  []int64         `json:"sale_ids,omitempty"`
	Restocks []RestockAction `json:"restocks,omitempty"`
}

const apologyResponse = "We're sorry, but we were unable to process your request at this time. " +
	"Please try again shortly or contact us directly so we can make it right."

// ProcessCustomerRequest runs the full pipeline for one request: classify
// intent, resolve requested items against the catalog, quote, and for
// confirmed orders record the sale and restock as needed. Internal
// failures come back as a customer-facing apology, never as a raw error.
func (o *Orchestrator) ProcessCustomerRequest(ctx context.Context, task models.Task) *RequestResult {
	o.logger.Log("request %s: %q (as of %s)", task.ID, task.Instruction, task.AsOf)

	intent := o.classifyIntent(ctx, task.Instruction)
	o.logger.Log("request %s: intent %s", task.ID, intent)

	var result *RequestResult
	var err error
	switch intent {
	case IntentQuote:
		result, err = o.processQuote(ctx, task)
	case IntentOrder:
		result, err = o.processOrder(ctx, task)
	default:
		result, err = o.processGeneral(ctx, task)
	}
	if err != nil {
		o.logger.Log("request %s: failed: %v", task.ID, err)
		return &RequestResult{Intent: intent, Response: apologyResponse}
	}

	result.Intent = intent
	return result
}

// classifyIntent picks quote, order, or general. Classification failures
// fall back to general handling rather than refusing the request.
func (o *Orchestrator) classifyIntent(ctx context.Context, instruction string) Intent {
	candidates := []oracle.Candidate{
		{Name: string(IntentQuote), Description: "The customer asks what items would cost. No commitment to buy yet."},
		{Name: string(IntentOrder), Description: "The customer places or confirms an order and expects it fulfilled."},
		{Name: string(IntentGeneral), Description: "Anything else: stock questions, financial questions, complaints, general correspondence."},
	}
	intents := []Intent{IntentQuote, IntentOrder, IntentGeneral}

	sel, err := o.classifier.Classify(ctx, instruction, candidates)
	if err != nil || sel.None() {
		return IntentGeneral
	}
	return intents[sel.Index]
}

func (o *Orchestrator) processGeneral(ctx context.Context, task models.Task) (*RequestResult, error) {
	out, err := o.router.Route(ctx, contextualize(task))
	if errors.Is(err, router.ErrNoHandler) {
		return &RequestResult{Response: "We couldn't match your request to any of our departments. Could you rephrase it, or tell us whether it concerns stock, pricing, an order, or billing?"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &RequestResult{Response: out}, nil
}

func (o *Orchestrator) processQuote(ctx context.Context, task models.Task) (*RequestResult, error) {
	lines, clarification, err := o.resolveRequest(ctx, task)
	if err != nil {
		return nil, err
	}
	if clarification != "" {
		return &RequestResult{Response: clarification}, nil
	}

	quote := pricing.ComputeQuote(lines)
	response := renderQuote(quote, task.AsOf)

	if _, err := o.store.RecordQuote(task.Instruction, quote.Total, quoteExplanation(quote), quote.TotalUnits, task.AsOf); err != nil {
		return nil, fmt.Errorf("record quote: %w", err)
	}
	o.logger.Log("request %s: quoted $%.2f for %d units", task.ID, quote.Total, quote.TotalUnits)

	return &RequestResult{Response: response, Quote: &quote}, nil
}

func (o *Orchestrator) processOrder(ctx context.Context, task models.Task) (*RequestResult, error) {
	lines, clarification, err := o.resolveRequest(ctx, task)
	if err != nil {
		return nil, err
	}
	if clarification != "" {
		return &RequestResult{Response: clarification}, nil
	}

	// One order mutates the ledger in several steps; no other request may
	// read or write between the stock check and the final restock.
	o.mu.Lock()
	defer o.mu.Unlock()

	if shortages := o.checkStock(lines, task.AsOf); len(shortages) > 0 {
		return &RequestResult{Response: renderShortages(shortages)}, nil
	}

	quote := pricing.ComputeQuote(lines)
	allocations := pricing.AllocateLineTotals(quote)

	result := &RequestResult{Quote: &quote}
	for i, line := range quote.Breakdown {
		id, err := o.store.Append(line.ItemName, ledger.TypeSales, line.Quantity, allocations[i], task.AsOf)
		if err != nil {
			return nil, fmt.Errorf("record sale of %q: %w", line.ItemName, err)
		}
		result.SaleIDs = append(result.SaleIDs, id)
	}
	o.logger.Log("request %s: sale recorded, %d lines, total $%.2f", task.ID, len(quote.Breakdown), quote.Total)

	restocks, err := o.restockCycle(quote.Breakdown, task.AsOf)
	if err != nil {
		return nil, err
	}
	result.Restocks = restocks

	result.Response = renderOrderConfirmation(quote, task.AsOf)
	return result, nil
}

type shortage struct {
	ItemName  string
	Requested int
	Available int
}

func (o *Orchestrator) checkStock(lines []pricing.Line, asOf string) []shortage {
	var shortages []shortage
	for _, line := range lines {
		stock, err := o.store.StockLevel(line.ItemName, asOf)
		if err != nil || stock < line.Quantity {
			shortages = append(shortages, shortage{ItemName: line.ItemName, Requested: line.Quantity, Available: stock})
		}
	}
	return shortages
}

// restockCycle runs at most one restock pass over the items just sold.
// Each purchase is gated on the cash safety margin at the moment of the
// check; a rejected purchase is reported, not retried.
func (o *Orchestrator) restockCycle(sold []pricing.QuoteLine, date string) ([]RestockAction, error) {
	seen := make(map[string]bool, len(sold))
	var actions []RestockAction

	for _, line := range sold {
		if seen[line.ItemName] {
			continue
		}
		seen[line.ItemName] = true

		item, err := o.store.Item(line.ItemName)
		if err != nil {
			return nil, fmt.Errorf("restock lookup %q: %w", line.ItemName, err)
		}
		stock, err := o.store.StockLevel(line.ItemName, date)
		if err != nil {
			return nil, fmt.Errorf("restock stock level %q: %w", line.ItemName, err)
		}
		if stock >= item.MinStockLevel {
			continue
		}

		units := 2*item.MinStockLevel - stock
		cost := float64(units) * item.UnitPrice
		balance, err := o.store.CashBalance(date)
		if err != nil {
			return nil, fmt.Errorf("restock balance: %w", err)
		}

		action := RestockAction{ItemName: line.ItemName, Units: units, Cost: cost}
		decision := finance.Approve(cost, balance, o.safetyMargin)
		if decision.Approved {
			if _, err := o.store.Append(line.ItemName, ledger.TypeStockOrders, units, cost, date); err != nil {
				return nil, fmt.Errorf("record restock of %q: %w", line.ItemName, err)
			}
			action.Approved = true
			if delivery, derr := pricing.DeliveryDate(date, units); derr == nil {
				action.ExpectedDelivery = delivery
			}
			o.logger.Log("restock: %d units of %q for $%.2f, delivery %s", units, line.ItemName, cost, action.ExpectedDelivery)
		} else {
			o.logger.Log("restock: %d units of %q rejected, cost $%.2f exceeds available $%.2f",
				units, line.ItemName, cost, decision.AvailableForPurchase)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

const extractionPersona = `You extract order lines from customer requests for Quill, a paper supply company.
Respond with a JSON array of objects with keys "item_name" and "quantity"
and nothing else, for example:
[{"item_name": "A4 paper", "quantity": 600}]
Use the customer's wording for item names. If the request names no
purchasable items, respond with [].`

type requestedLine struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// resolveRequest extracts the requested lines and resolves each against
// the catalog. Names that match nothing or several items produce a
// clarification response instead of a hard failure.
func (o *Orchestrator) resolveRequest(ctx context.Context, task models.Task) ([]pricing.Line, string, error) {
	requested, err := o.extractLines(ctx, task.Instruction)
	if err != nil {
		return nil, "", err
	}
	if len(requested) == 0 {
		return nil, "We couldn't identify any items in your request. Could you list the products and quantities you need?", nil
	}

	var lines []pricing.Line
	for _, req := range requested {
		if req.Quantity <= 0 {
			return nil, fmt.Sprintf("Could you confirm the quantity you need for %q?", req.ItemName), nil
		}

		item, err := o.store.Item(req.ItemName)
		if errors.Is(err, ledger.ErrItemNotFound) {
			matches, serr := o.store.FindSimilarItems(req.ItemName)
			if serr != nil {
				return nil, "", fmt.Errorf("resolve %q: %w", req.ItemName, serr)
			}
			switch len(matches) {
			case 1:
				item = &matches[0]
			case 0:
				return nil, fmt.Sprintf("We don't carry %q. Could you check the product name? We're happy to send our full catalog.", req.ItemName), nil
			default:
				return nil, renderAmbiguous(req.ItemName, matches), nil
			}
		} else if err != nil {
			return nil, "", fmt.Errorf("resolve %q: %w", req.ItemName, err)
		}

		lines = append(lines, pricing.Line{ItemName: item.ItemName, Quantity: req.Quantity, UnitPrice: item.UnitPrice})
	}
	return lines, "", nil
}

func (o *Orchestrator) extractLines(ctx context.Context, instruction string) ([]requestedLine, error) {
	resp, err := o.oracle.Complete(ctx, oracle.Request{
		Persona:   extractionPersona,
		Messages:  []oracle.Message{oracle.UserText(instruction)},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("extract order lines: %w", err)
	}

	start := strings.Index(resp.Text, "[")
	end := strings.LastIndex(resp.Text, "]")
	if start == -1 || end <= start {
		return nil, nil
	}

	var requested []requestedLine
	if err := json.Unmarshal([]byte(resp.Text[start:end+1]), &requested); err != nil {
		return nil, fmt.Errorf("parse order lines: %w", err)
	}
	return requested, nil
}

func contextualize(task models.Task) string {
	return fmt.Sprintf("%s\n(as of %s)", task.Instruction, task.AsOf)
}

func quoteExplanation(q pricing.Quote) string {
	if q.DiscountPercent == 0 {
		return fmt.Sprintf("Standard pricing for %d units, no bulk discount.", q.TotalUnits)
	}
	return fmt.Sprintf("Bulk discount of %.0f%% applied for %d total units, saving $%.2f.",
		q.DiscountPercent, q.TotalUnits, q.DiscountAmount)
}

func renderQuote(q pricing.Quote, asOf string) string {
	var b strings.Builder
	b.WriteString("Thank you for your interest. Here is your quote:\n\n")
	for _, line := range q.Breakdown {
		fmt.Fprintf(&b, "  %d x %s at $%.2f each: $%.2f\n", line.Quantity, line.ItemName, line.UnitPrice, line.LineTotal)
	}
	fmt.Fprintf(&b, "\nSubtotal: $%.2f\n", q.Subtotal)
	if q.DiscountPercent > 0 {
		fmt.Fprintf(&b, "Bulk discount (%.0f%%): -$%.2f\n", q.DiscountPercent, q.DiscountAmount)
	}
	fmt.Fprintf(&b, "Total: $%.2f\n", q.Total)
	if delivery, err := pricing.DeliveryDate(asOf, q.TotalUnits); err == nil {
		fmt.Fprintf(&b, "\nEstimated delivery if ordered today: %s\n", delivery)
	}
	b.WriteString("\nThis quote is valid for 30 days. Reply to confirm and we'll get it moving.")
	return b.String()
}

func renderOrderConfirmation(q pricing.Quote, asOf string) string {
	var b strings.Builder
	b.WriteString("Your order is confirmed. Summary:\n\n")
	for _, line := range q.Breakdown {
		fmt.Fprintf(&b, "  %d x %s\n", line.Quantity, line.ItemName)
	}
	fmt.Fprintf(&b, "\nTotal charged: $%.2f", q.Total)
	if q.DiscountPercent > 0 {
		fmt.Fprintf(&b, " (includes %.0f%% bulk discount)", q.DiscountPercent)
	}
	b.WriteString("\n")
	if delivery, err := pricing.DeliveryDate(asOf, q.TotalUnits); err == nil {
		fmt.Fprintf(&b, "Expected delivery: %s\n", delivery)
	}
	b.WriteString("\nThank you for your business!")
	return b.String()
}

func renderShortages(shortages []shortage) string {
	var b strings.Builder
	b.WriteString("Unfortunately we can't fulfill your order in full right now:\n\n")
	for _, s := range shortages {
		fmt.Fprintf(&b, "  %s: %d requested, %d in stock\n", s.ItemName, s.Requested, s.Available)
	}
	b.WriteString("\nWe can part-ship what we have or notify you when stock arrives. Let us know what works best.")
	return b.String()
}

func renderAmbiguous(name string, matches []ledger.InventoryItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "We carry several products matching %q:\n\n", name)
	for _, m := range matches {
		fmt.Fprintf(&b, "  - %s ($%.2f per unit)\n", m.ItemName, m.UnitPrice)
	}
	b.WriteString("\nWhich one would you like?")
	return b.String()
}
