package handler

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
)

// scriptedOracle replays a fixed sequence of responses and records every
// request it receives.
type scriptedOracle struct {
	responses []*oracle.Response
	requests  []oracle.Request
	err       error
}

func (s *scriptedOracle) Complete(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &oracle.Response{Text: "done", EndTurn: true}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

func openTestStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "quill.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTestCatalog(t *testing.T, store *ledger.Store) {
	t.Helper()
	items := []ledger.InventoryItem{
		{ItemName: "A4 paper", Category: ledger.CategoryPaper, UnitPrice: 0.05, MinStockLevel: 500},
		{ItemName: "Cardstock", Category: ledger.CategoryPaper, UnitPrice: 0.15, MinStockLevel: 300},
	}
	for _, item := range items {
		if err := store.AddItem(item); err != nil {
			t.Fatalf("AddItem(%q): %v", item.ItemName, err)
		}
	}
}

func TestToolLoop_ExecutesToolAndReturnsAnswer(t *testing.T) {
	var gotInput json.RawMessage
	tools := []Tool{{
		Def: oracle.ToolDef{Name: "echo", Description: "echoes"},
		Run: func(_ context.Context, input json.RawMessage) string {
			gotInput = input
			return `{"echoed":true}`
		},
	}}
	fake := &scriptedOracle{responses: []*oracle.Response{
		{ToolCalls: []oracle.ToolCall{{ID: "t1", Name: "echo", Input: json.RawMessage(`{"v":1}`)}}},
		{Text: "all done", EndTurn: true},
	}}

	loop := NewToolLoop(fake, "persona", tools, 5)
	result, err := loop.Run(context.Background(), "do the thing")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Output != "all done" {
		t.Errorf("Output = %q, want %q", result.Output, "all done")
	}
	if result.Steps != 2 || result.ToolCalls != 1 {
		t.Errorf("Steps = %d, ToolCalls = %d, want 2 and 1", result.Steps, result.ToolCalls)
	}
	if string(gotInput) != `{"v":1}` {
		t.Errorf("tool input = %s, want {\"v\":1}", gotInput)
	}

	// The second request must carry the tool result back to the oracle.
	second := fake.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if len(last.ToolResults) != 1 || last.ToolResults[0].Content != `{"echoed":true}` {
		t.Errorf("tool result not fed back, got %+v", last)
	}
}

func TestToolLoop_UnknownToolIsErrorResult(t *testing.T) {
	fake := &scriptedOracle{responses: []*oracle.Response{
		{ToolCalls: []oracle.ToolCall{{ID: "t1", Name: "no_such_tool", Input: json.RawMessage(`{}`)}}},
		{Text: "recovered", EndTurn: true},
	}}

	loop := NewToolLoop(fake, "persona", nil, 5)
	result, err := loop.Run(context.Background(), "task")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Output != "recovered" {
		t.Errorf("Output = %q, want %q", result.Output, "recovered")
	}
	second := fake.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if len(last.ToolResults) != 1 || !last.ToolResults[0].IsError {
		t.Errorf("unknown tool should produce an error result, got %+v", last.ToolResults)
	}
}

func TestToolLoop_StepCap(t *testing.T) {
	// Never ends the turn.
	fake := &scriptedOracle{responses: []*oracle.Response{
		{ToolCalls: []oracle.ToolCall{{ID: "1", Name: "spin", Input: json.RawMessage(`{}`)}}},
		{ToolCalls: []oracle.ToolCall{{ID: "2", Name: "spin", Input: json.RawMessage(`{}`)}}},
		{ToolCalls: []oracle.ToolCall{{ID: "3", Name: "spin", Input: json.RawMessage(`{}`)}}},
	}}
	tools := []Tool{{
		Def: oracle.ToolDef{Name: "spin", Description: "spins"},
		Run: func(_ context.Context, _ json.RawMessage) string { return "{}" },
	}}

	loop := NewToolLoop(fake, "persona", tools, 2)
	_, err := loop.Run(context.Background(), "task")
	if err == nil || !strings.Contains(err.Error(), "max steps (2) reached") {
		t.Fatalf("err = %v, want max steps error", err)
	}
}

func TestToolLoop_OracleErrorWrapped(t *testing.T) {
	wantErr := errors.New("transport down")
	fake := &scriptedOracle{err: wantErr}

	loop := NewToolLoop(fake, "persona", nil, 3)
	_, err := loop.Run(context.Background(), "task")
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want wrapped %v", err, wantErr)
	}
}

func TestInventoryTools(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	if _, err := store.Append("A4 paper", ledger.TypeStockOrders, 800, 0, "2025-01-01"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h := NewInventoryHandler(&scriptedOracle{}, store, 0)

	t.Run("check_item_stock", func(t *testing.T) {
		out := h.checkItemStock(context.Background(), json.RawMessage(`{"item_name":"A4 paper","as_of":"2025-06-01"}`))
		var got struct {
			Stock int `json:"stock"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("bad tool output %q: %v", out, err)
		}
		if got.Stock != 800 {
			t.Errorf("stock = %d, want 800", got.Stock)
		}
	})

	t.Run("get_item_price unknown item", func(t *testing.T) {
		out := h.itemPrice(context.Background(), json.RawMessage(`{"item_name":"vellum"}`))
		var got struct {
			Success *bool  `json:"success"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("bad tool output %q: %v", out, err)
		}
		if got.Success == nil || *got.Success {
			t.Errorf("expected structured failure, got %s", out)
		}
	})

	t.Run("find_similar_items", func(t *testing.T) {
		out := h.findSimilar(context.Background(), json.RawMessage(`{"query":"card"}`))
		if !strings.Contains(out, "Cardstock") {
			t.Errorf("expected Cardstock in %s", out)
		}
	})
}

func TestQuotingTool_CalculateQuote(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	h := NewQuotingHandler(&scriptedOracle{}, store, 0)

	out := h.calculateQuote(context.Background(), json.RawMessage(`{"items":[{"item_name":"A4 paper","quantity":600}]}`))
	var got struct {
		Subtotal        float64 `json:"subtotal"`
		DiscountPercent float64 `json:"discount_percent"`
		Total           float64 `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad tool output %q: %v", out, err)
	}
	if got.Subtotal != 30 || got.DiscountPercent != 10 || got.Total != 27 {
		t.Errorf("quote = %+v, want subtotal 30, discount 10, total 27", got)
	}
}

func TestQuotingTool_UnknownItemFails(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	h := NewQuotingHandler(&scriptedOracle{}, store, 0)

	out := h.calculateQuote(context.Background(), json.RawMessage(`{"items":[{"item_name":"parchment","quantity":100}]}`))
	if !strings.Contains(out, `"success":false`) || !strings.Contains(out, "parchment") {
		t.Errorf("expected failure naming parchment, got %s", out)
	}
}

func TestOrderingTool_RecordSaleUnknownItem(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	h := NewOrderingHandler(&scriptedOracle{}, store, 0)

	out := h.recordSale(context.Background(), json.RawMessage(`{"item_name":"parchment","units":10,"price":5,"date":"2025-06-01"}`))
	if !strings.Contains(out, `"success":false`) {
		t.Fatalf("expected rejection, got %s", out)
	}
	// Nothing may have reached the log.
	stock, err := store.StockLevel("parchment", "2025-12-31")
	if err != nil {
		t.Fatalf("StockLevel: %v", err)
	}
	if stock != 0 {
		t.Errorf("stock = %d after rejected sale, want 0", stock)
	}
}

func TestOrderingTool_RecordSaleAndRestockCheck(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	if _, err := store.Append("A4 paper", ledger.TypeStockOrders, 600, 0, "2025-01-01"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h := NewOrderingHandler(&scriptedOracle{}, store, 0)

	out := h.recordSale(context.Background(), json.RawMessage(`{"item_name":"A4 paper","units":200,"price":10,"date":"2025-06-01"}`))
	if !strings.Contains(out, `"success":true`) {
		t.Fatalf("expected success, got %s", out)
	}

	// 400 left against a minimum of 500: restock by 2*500-400.
	out = h.restockNeeded(context.Background(), json.RawMessage(`{"item_name":"A4 paper","as_of":"2025-06-01"}`))
	var got struct {
		RestockNeeded bool `json:"restock_needed"`
		ReorderUnits  int  `json:"reorder_units"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad tool output %q: %v", out, err)
	}
	if !got.RestockNeeded || got.ReorderUnits != 600 {
		t.Errorf("restock = %+v, want needed with 600 units", got)
	}
}

func TestRestockQuantity(t *testing.T) {
	tests := []struct {
		name        string
		stock, min  int
		wantNeeded  bool
		wantReorder int
	}{
		{"above minimum", 600, 500, false, 0},
		{"at minimum", 500, 500, false, 0},
		{"below minimum", 400, 500, true, 600},
		{"empty", 0, 500, true, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needed, reorder := RestockQuantity(tt.stock, tt.min)
			if needed != tt.wantNeeded || reorder != tt.wantReorder {
				t.Errorf("RestockQuantity(%d, %d) = (%v, %d), want (%v, %d)",
					tt.stock, tt.min, needed, reorder, tt.wantNeeded, tt.wantReorder)
			}
		})
	}
}

func TestFinancialTool_ApprovePurchase(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	if _, err := store.Append("A4 paper", ledger.TypeSales, 100, 300, "2025-01-01"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h := NewFinancialHandler(&scriptedOracle{}, store, 0.20, 0)

	out := h.approvePurchase(context.Background(), json.RawMessage(`{"amount":260,"as_of":"2025-06-01"}`))
	var got struct {
		Approved             bool    `json:"approved"`
		AvailableForPurchase float64 `json:"available_for_purchase"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("bad tool output %q: %v", out, err)
	}
	if got.Approved {
		t.Error("260 against a 300 balance with 20% margin should be rejected")
	}
	if got.AvailableForPurchase != 240 {
		t.Errorf("available = %v, want 240", got.AvailableForPurchase)
	}
}

func TestHandlerExecute_RunsLoop(t *testing.T) {
	store := openTestStore(t)
	seedTestCatalog(t, store)
	fake := &scriptedOracle{responses: []*oracle.Response{
		{ToolCalls: []oracle.ToolCall{{ID: "t1", Name: "check_item_stock", Input: json.RawMessage(`{"item_name":"A4 paper","as_of":"2025-06-01"}`)}}},
		{Text: "We have 0 units of A4 paper on hand.", EndTurn: true},
	}}
	h := NewInventoryHandler(fake, store, 0)

	answer, err := h.Execute(context.Background(), "How much A4 paper do we have as of 2025-06-01?")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(answer, "A4 paper") {
		t.Errorf("answer = %q", answer)
	}
	if fake.requests[0].Persona == "" {
		t.Error("persona not set on oracle request")
	}
	if len(fake.requests[0].Tools) == 0 {
		t.Error("tool definitions not sent to oracle")
	}
}

func TestPromptHandler(t *testing.T) {
	fake := &scriptedOracle{responses: []*oracle.Response{{Text: "Thanks for reaching out.", EndTurn: true}}}
	h := NewPromptHandler(fake, "correspondence", "Writes customer replies.", "You write polite replies.", []string{"Quill sells paper."})

	answer, err := h.Execute(context.Background(), "Reply to this complaint.")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if answer != "Thanks for reaching out." {
		t.Errorf("answer = %q", answer)
	}
	if !strings.Contains(fake.requests[0].Persona, "Quill sells paper.") {
		t.Error("knowledge not folded into persona")
	}
}
