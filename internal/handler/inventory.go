package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
)

const inventoryPersona = `You are the inventory specialist for Quill, a paper supply company.
You answer questions about stock levels, item availability, and the product catalog.
Use your tools to look up real data; never guess quantities or prices.
All stock figures are as of the date given in the request. Answer concisely and
state item names exactly as they appear in the catalog.`

// InventoryHandler answers stock and catalog questions against the ledger.
type InventoryHandler struct {
	store *ledger.Store
	loop  *ToolLoop
}

var _ Handler = (*InventoryHandler)(nil)

// NewInventoryHandler wires the inventory tool set to the given ledger.
func NewInventoryHandler(o oracle.Oracle, store *ledger.Store, maxSteps int) *InventoryHandler {
	h := &InventoryHandler{store: store}
	h.loop = NewToolLoop(o, inventoryPersona, h.tools(), maxSteps)
	return h
}

func (h *InventoryHandler) Name() string { return "inventory" }

func (h *InventoryHandler) Description() string {
	return "Answers questions about current stock levels, item availability, unit prices, and the product catalog. Cannot record sales or orders."
}

func (h *InventoryHandler) Execute(ctx context.Context, task string) (string, error) {
	result, err := h.loop.Run(ctx, task)
	if err != nil {
		return "", fmt.Errorf("inventory handler: %w", err)
	}
	return result.Output, nil
}

func (h *InventoryHandler) tools() []Tool {
	return []Tool{
		{
			Def: oracle.ToolDef{
				Name:        "check_item_stock",
				Description: "Get the current stock level of a single item as of a date.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
					"as_of":     map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"item_name", "as_of"},
			},
			Run: h.checkItemStock,
		},
		{
			Def: oracle.ToolDef{
				Name:        "check_all_inventory",
				Description: "Get stock levels for every item with stock on hand as of a date.",
				Properties: map[string]interface{}{
					"as_of": map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"as_of"},
			},
			Run: h.checkAllInventory,
		},
		{
			Def: oracle.ToolDef{
				Name:        "get_available_items",
				Description: "List every item in the catalog with its category, unit price, and minimum stock level.",
				Properties:  map[string]interface{}{},
				Required:    []string{},
			},
			Run: h.availableItems,
		},
		{
			Def: oracle.ToolDef{
				Name:        "find_similar_items",
				Description: "Search the catalog for items whose name contains the given text, case-insensitively.",
				Properties: map[string]interface{}{
					"query": map[string]interface{}{"type": "string", "description": "Partial item name to search for"},
				},
				Required: []string{"query"},
			},
			Run: h.findSimilar,
		},
		{
			Def: oracle.ToolDef{
				Name:        "get_item_price",
				Description: "Get the unit price of a catalog item.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
				},
				Required: []string{"item_name"},
			},
			Run: h.itemPrice,
		},
		{
			Def: oracle.ToolDef{
				Name:        "find_items_by_category",
				Description: "List all catalog items in a category. Valid categories: paper, product, large_format, specialty.",
				Properties: map[string]interface{}{
					"category": map[string]interface{}{"type": "string", "description": "Category name"},
				},
				Required: []string{"category"},
			},
			Run: h.itemsByCategory,
		},
	}
}

func (h *InventoryHandler) checkItemStock(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemName string `json:"item_name"`
		AsOf     string `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	stock, err := h.store.StockLevel(args.ItemName, args.AsOf)
	if err != nil {
		return toolFailure(err, "could not read stock level")
	}
	return toolSuccess(map[string]any{"item_name": args.ItemName, "stock": stock, "as_of": args.AsOf})
}

func (h *InventoryHandler) checkAllInventory(_ context.Context, input json.RawMessage) string {
	var args struct {
		AsOf string `json:"as_of"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	stock, err := h.store.AllStock(args.AsOf)
	if err != nil {
		return toolFailure(err, "could not read inventory")
	}
	return toolSuccess(map[string]any{"as_of": args.AsOf, "inventory": stock})
}

func (h *InventoryHandler) availableItems(_ context.Context, _ json.RawMessage) string {
	items, err := h.store.Items()
	if err != nil {
		return toolFailure(err, "could not read catalog")
	}
	return toolSuccess(map[string]any{"items": items})
}

func (h *InventoryHandler) findSimilar(_ context.Context, input json.RawMessage) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	matches, err := h.store.FindSimilarItems(args.Query)
	if err != nil {
		return toolFailure(err, "catalog search failed")
	}
	return toolSuccess(map[string]any{"query": args.Query, "matches": matches})
}

func (h *InventoryHandler) itemPrice(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemName string `json:"item_name"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	item, err := h.store.Item(args.ItemName)
	if errors.Is(err, ledger.ErrItemNotFound) {
		return toolFailure(err, fmt.Sprintf("no catalog item named %q", args.ItemName))
	}
	if err != nil {
		return toolFailure(err, "could not read catalog")
	}
	return toolSuccess(map[string]any{"item_name": item.ItemName, "unit_price": item.UnitPrice})
}

func (h *InventoryHandler) itemsByCategory(_ context.Context, input json.RawMessage) string {
	var args struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	items, err := h.store.ItemsByCategory(ledger.Category(args.Category))
	if err != nil {
		return toolFailure(err, "could not read catalog")
	}
	return toolSuccess(map[string]any{"category": args.Category, "items": items})
}
