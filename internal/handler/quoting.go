package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/pricing"
)

const quotingPersona = `You are the quoting specialist for Quill, a paper supply company.
You produce price quotes for customer requests using the calculate_quote tool,
which applies the company's bulk discount tiers. Always look up real unit
prices first; never invent prices. When quote history is relevant, search it
to keep pricing consistent with past quotes for similar order sizes.
Present the final quote with a per-item breakdown, the discount applied, and
the total.`

// QuotingHandler prices customer requests using catalog prices and the
// bulk discount schedule.
type QuotingHandler struct {
	store *ledger.Store
	loop  *ToolLoop
}

var _ Handler = (*QuotingHandler)(nil)

// NewQuotingHandler wires the quoting tool set to the given ledger.
func NewQuotingHandler(o oracle.Oracle, store *ledger.Store, maxSteps int) *QuotingHandler {
	h := &QuotingHandler{store: store}
	h.loop = NewToolLoop(o, quotingPersona, h.tools(), maxSteps)
	return h
}

func (h *QuotingHandler) Name() string { return "quoting" }

func (h *QuotingHandler) Description() string {
	return "Produces price quotes with bulk discounts for requested items and quantities. Does not record sales or check stock."
}

func (h *QuotingHandler) Execute(ctx context.Context, task string) (string, error) {
	result, err := h.loop.Run(ctx, task)
	if err != nil {
		return "", fmt.Errorf("quoting handler: %w", err)
	}
	return result.Output, nil
}

func (h *QuotingHandler) tools() []Tool {
	return []Tool{
		{
			Def: oracle.ToolDef{
				Name:        "calculate_quote",
				Description: "Price a set of items and quantities. Applies the bulk discount tier for the combined unit count and returns a full breakdown.",
				Properties: map[string]interface{}{
					"items": map[string]interface{}{
						"type":        "array",
						"description": "Requested lines",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"item_name": map[string]interface{}{"type": "string"},
								"quantity":  map[string]interface{}{"type": "integer"},
							},
							"required": []string{"item_name", "quantity"},
						},
					},
				},
				Required: []string{"items"},
			},
			Run: h.calculateQuote,
		},
		{
			Def: oracle.ToolDef{
				Name:        "get_item_prices",
				Description: "Look up unit prices for one or more catalog items by name.",
				Properties: map[string]interface{}{
					"item_names": map[string]interface{}{
						"type":        "array",
						"description": "Exact catalog item names",
						"items":       map[string]interface{}{"type": "string"},
					},
				},
				Required: []string{"item_names"},
			},
			Run: h.itemPrices,
		},
		{
			Def: oracle.ToolDef{
				Name:        "search_quote_history",
				Description: "Search past quotes whose request or explanation mentions all the given terms. Use it to keep pricing consistent with earlier quotes.",
				Properties: map[string]interface{}{
					"search_terms": map[string]interface{}{
						"type":        "array",
						"description": "Terms that must all appear",
						"items":       map[string]interface{}{"type": "string"},
					},
					"limit": map[string]interface{}{"type": "integer", "description": "Max results, default 5"},
				},
				Required: []string{"search_terms"},
			},
			Run: h.searchHistory,
		},
	}
}

func (h *QuotingHandler) calculateQuote(_ context.Context, input json.RawMessage) string {
	var args struct {
		Items []struct {
			ItemName string `json:"item_name"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	if len(args.Items) == 0 {
		return toolFailure(errors.New("no items given"), "a quote needs at least one item")
	}

	var lines []pricing.Line
	var unknown []string
	for _, req := range args.Items {
		item, err := h.store.Item(req.ItemName)
		if errors.Is(err, ledger.ErrItemNotFound) {
			unknown = append(unknown, req.ItemName)
			continue
		}
		if err != nil {
			return toolFailure(err, "could not read catalog")
		}
		lines = append(lines, pricing.Line{ItemName: item.ItemName, Quantity: req.Quantity, UnitPrice: item.UnitPrice})
	}
	if len(unknown) > 0 {
		return toolFailure(
			fmt.Errorf("unknown items: %s", strings.Join(unknown, ", ")),
			"These names are not in the catalog. Use find_similar_items via the inventory specialist, or ask the customer to clarify.",
		)
	}

	quote := pricing.ComputeQuote(lines)
	return toolSuccess(quote)
}

func (h *QuotingHandler) itemPrices(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemNames []string `json:"item_names"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	prices := make(map[string]float64, len(args.ItemNames))
	var missing []string
	for _, name := range args.ItemNames {
		item, err := h.store.Item(name)
		if errors.Is(err, ledger.ErrItemNotFound) {
			missing = append(missing, name)
			continue
		}
		if err != nil {
			return toolFailure(err, "could not read catalog")
		}
		prices[item.ItemName] = item.UnitPrice
	}
	return toolSuccess(map[string]any{"prices": prices, "not_found": missing})
}

func (h *QuotingHandler) searchHistory(_ context.Context, input json.RawMessage) string {
	var args struct {
		SearchTerms []string `json:"search_terms"`
		Limit       int      `json:"limit"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	if args.Limit <= 0 {
		args.Limit = 5
	}
	quotes, err := h.store.SearchQuoteHistory(args.SearchTerms, args.Limit)
	if err != nil {
		return toolFailure(err, "quote history search failed")
	}
	return toolSuccess(map[string]any{"quotes": quotes})
}
