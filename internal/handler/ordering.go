package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/pricing"
)

const orderingPersona = `You are the order fulfillment specialist for Quill, a paper supply company.
You record confirmed sales and supplier stock orders in the transaction log,
and you report delivery timelines based on supplier lead times.
Record a sale only when the task states a confirmed order with an agreed
total. After recording a sale, check whether the item needs restocking and
say so in your answer. Never record the same transaction twice.`

// OrderingHandler records sales and stock orders against the ledger.
type OrderingHandler struct {
	store *ledger.Store
	loop  *ToolLoop
}

var _ Handler = (*OrderingHandler)(nil)

// NewOrderingHandler wires the ordering tool set to the given ledger.
func NewOrderingHandler(o oracle.Oracle, store *ledger.Store, maxSteps int) *OrderingHandler {
	h := &OrderingHandler{store: store}
	h.loop = NewToolLoop(o, orderingPersona, h.tools(), maxSteps)
	return h
}

func (h *OrderingHandler) Name() string { return "ordering" }

func (h *OrderingHandler) Description() string {
	return "Records confirmed sales and supplier stock orders, reports delivery timelines, and checks restock needs. Does not produce quotes."
}

func (h *OrderingHandler) Execute(ctx context.Context, task string) (string, error) {
	result, err := h.loop.Run(ctx, task)
	if err != nil {
		return "", fmt.Errorf("ordering handler: %w", err)
	}
	return result.Output, nil
}

func (h *OrderingHandler) tools() []Tool {
	return []Tool{
		{
			Def: oracle.ToolDef{
				Name:        "record_sale",
				Description: "Append a sale to the transaction log. Reduces derived stock and increases cash.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
					"units":     map[string]interface{}{"type": "integer", "description": "Units sold, must be positive"},
					"price":     map[string]interface{}{"type": "number", "description": "Total sale amount in dollars"},
					"date":      map[string]interface{}{"type": "string", "description": "Sale date in YYYY-MM-DD format"},
				},
				Required: []string{"item_name", "units", "price", "date"},
			},
			Run: h.recordSale,
		},
		{
			Def: oracle.ToolDef{
				Name:        "record_stock_order",
				Description: "Append a supplier stock order to the transaction log. Increases derived stock and decreases cash.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
					"units":     map[string]interface{}{"type": "integer", "description": "Units ordered, must be positive"},
					"price":     map[string]interface{}{"type": "number", "description": "Total purchase cost in dollars"},
					"date":      map[string]interface{}{"type": "string", "description": "Order date in YYYY-MM-DD format"},
				},
				Required: []string{"item_name", "units", "price", "date"},
			},
			Run: h.recordStockOrder,
		},
		{
			Def: oracle.ToolDef{
				Name:        "check_delivery_timeline",
				Description: "Get the supplier lead time and expected delivery date for an order quantity.",
				Properties: map[string]interface{}{
					"quantity":   map[string]interface{}{"type": "integer", "description": "Units to order"},
					"order_date": map[string]interface{}{"type": "string", "description": "Order date in YYYY-MM-DD format"},
				},
				Required: []string{"quantity", "order_date"},
			},
			Run: h.deliveryTimeline,
		},
		{
			Def: oracle.ToolDef{
				Name:        "check_restock_needed",
				Description: "Check whether an item's stock is below its minimum level and by how much to reorder.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
					"as_of":     map[string]interface{}{"type": "string", "description": "Date in YYYY-MM-DD format"},
				},
				Required: []string{"item_name", "as_of"},
			},
			Run: h.restockNeeded,
		},
		{
			Def: oracle.ToolDef{
				Name:        "get_item_unit_price",
				Description: "Get the unit price of a catalog item, for pricing a stock order.",
				Properties: map[string]interface{}{
					"item_name": map[string]interface{}{"type": "string", "description": "Exact catalog name of the item"},
				},
				Required: []string{"item_name"},
			},
			Run: h.unitPrice,
		},
	}
}

func (h *OrderingHandler) recordSale(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemName string  `json:"item_name"`
		Units    int     `json:"units"`
		Price    float64 `json:"price"`
		Date     string  `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	// Reject sales of unknown items before they pollute the log.
	if _, err := h.store.Item(args.ItemName); err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			return toolFailure(err, fmt.Sprintf("no catalog item named %q, sale not recorded", args.ItemName))
		}
		return toolFailure(err, "could not read catalog")
	}
	id, err := h.store.Append(args.ItemName, ledger.TypeSales, args.Units, args.Price, args.Date)
	if err != nil {
		return toolFailure(err, "sale not recorded")
	}
	return toolSuccess(map[string]any{
		"success":        true,
		"transaction_id": id,
		"item_name":      args.ItemName,
		"units":          args.Units,
		"price":          args.Price,
		"date":           args.Date,
	})
}

func (h *OrderingHandler) recordStockOrder(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemName string  `json:"item_name"`
		Units    int     `json:"units"`
		Price    float64 `json:"price"`
		Date     string  `json:"date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	if _, err := h.store.Item(args.ItemName); err != nil {
		if errors.Is(err, ledger.ErrItemNotFound) {
			return toolFailure(err, fmt.Sprintf("no catalog item named %q, order not recorded", args.ItemName))
		}
		return toolFailure(err, "could not read catalog")
	}
	id, err := h.store.Append(args.ItemName, ledger.TypeStockOrders, args.Units, args.Price, args.Date)
	if err != nil {
		return toolFailure(err, "stock order not recorded")
	}
	delivery, derr := pricing.DeliveryDate(args.Date, args.Units)
	result := map[string]any{
		"success":        true,
		"transaction_id": id,
		"item_name":      args.ItemName,
		"units":          args.Units,
		"price":          args.Price,
		"date":           args.Date,
	}
	if derr == nil {
		result["expected_delivery"] = delivery
	}
	return toolSuccess(result)
}

func (h *OrderingHandler) deliveryTimeline(_ context.Context, input json.RawMessage) string {
	var args struct {
		Quantity  int    `json:"quantity"`
		OrderDate string `json:"order_date"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return toolFailure(err, "invalid tool input")
	}
	delivery, err := pricing.DeliveryDate(args.OrderDate, args.Quantity)
	if err != nil {
		return toolFailure(err, "could not compute delivery date")
	}
	return toolSuccess(map[string]any{
		"quantity":          args.Quantity,
		"order_date":        args.OrderDate,
		"lead_time_days":    pricing.LeadTimeDays(args.Quantity),
		"expected_delivery": delivery,
	})
}

func (h *OrderingHandler) restockNeeded(_ context.Context, input json.RawMessage) string {
	var args struct {
		ItemName string `json:"item_name"`
		AsOf     string `json:"as_of"`
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
	stock, err := h.store.StockLevel(args.ItemName, args.AsOf)
	if err != nil {
		return toolFailure(err, "could not read stock level")
	}
	needed, reorder := RestockQuantity(stock, item.MinStockLevel)
	return toolSuccess(map[string]any{
		"item_name":       item.ItemName,
		"stock":           stock,
		"min_stock_level": item.MinStockLevel,
		"restock_needed":  needed,
		"reorder_units":   reorder,
	})
}

func (h *OrderingHandler) unitPrice(_ context.Context, input json.RawMessage) string {
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

// RestockQuantity decides whether stock has fallen below the minimum level
// and how many units to reorder. The reorder brings stock to twice the
// minimum, which leaves headroom before the next trigger.
func RestockQuantity(stock, minLevel int) (bool, int) {
	if stock >= minLevel {
		return false, 0
	}
	return true, 2*minLevel - stock
}
