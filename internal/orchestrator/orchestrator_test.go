package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillworks/quill/internal/handler"
	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/planner"
	"github.com/quillworks/quill/internal/router"
	"github.com/quillworks/quill/pkg/models"
)

type scriptedOracle struct {
	responses []string
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
	text := s.responses[0]
	s.responses = s.responses[1:]
	return &oracle.Response{Text: text, EndTurn: true}, nil
}

type fixedClassifier struct {
	index int
	err   error
}

func (f *fixedClassifier) Classify(_ context.Context, _ string, candidates []oracle.Candidate) (oracle.Selection, error) {
	if f.err != nil {
		return oracle.Selection{Index: -1}, f.err
	}
	if f.index < 0 || f.index >= len(candidates) {
		return oracle.Selection{Index: -1, Raw: "none"}, nil
	}
	return oracle.Selection{Index: f.index, Raw: candidates[f.index].Name}, nil
}

type fakeHandler struct {
	name     string
	response string
	tasks    []string
}

var _ handler.Handler = (*fakeHandler)(nil)

func (f *fakeHandler) Name() string        { return f.name }
func (f *fakeHandler) Description() string { return f.name + " things" }

func (f *fakeHandler) Execute(_ context.Context, task string) (string, error) {
	f.tasks = append(f.tasks, task)
	return f.response, nil
}

func openSeededStore(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "quill.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	items := []ledger.InventoryItem{
		{ItemName: "A4 paper", Category: ledger.CategoryPaper, UnitPrice: 0.05, MinStockLevel: 500},
		{ItemName: "A4 glossy paper", Category: ledger.CategoryPaper, UnitPrice: 0.20, MinStockLevel: 200},
		{ItemName: "Cardstock", Category: ledger.CategoryPaper, UnitPrice: 0.15, MinStockLevel: 300},
	}
	for _, item := range items {
		if err := store.AddItem(item); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	// 1000 units of A4 paper on hand, $500 cash.
	if _, err := store.Append("A4 paper", ledger.TypeStockOrders, 1000, 0, "2025-01-01"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Append("Cardstock", ledger.TypeSales, 100, 500, "2025-01-02"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return store
}

func newTestOrchestrator(store *ledger.Store, o oracle.Oracle, cls oracle.Classifier, handlers ...handler.Handler) *Orchestrator {
	return New(Options{
		Store:        store,
		Oracle:       o,
		Classifier:   cls,
		Router:       router.New(cls, o, router.FallbackError, handlers...),
		Planner:      planner.New(o),
		Logger:       NopLogger(),
		SafetyMargin: 0.20,
	})
}

func testTask(instruction string) models.Task {
	return models.Task{ID: "test-task", Instruction: instruction, AsOf: "2025-06-01"}
}

func TestProcessCustomerRequest_OrderRecordsSaleAndRestocks(t *testing.T) {
	store := openSeededStore(t)
	// Intent index 1 is "order"; the one oracle call extracts lines.
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "A4 paper", "quantity": 600}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 1})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("I'd like to order 600 units of A4 paper"))
	if result.Intent != IntentOrder {
		t.Fatalf("intent = %s", result.Intent)
	}
	if len(result.SaleIDs) != 1 {
		t.Fatalf("sale ids = %v, want one sale", result.SaleIDs)
	}
	if result.Quote == nil || result.Quote.Total != 27 {
		t.Fatalf("quote = %+v, want total 27", result.Quote)
	}

	// 400 left against a minimum of 500 triggers a single restock of 600
	// units, affordable within the margin.
	if len(result.Restocks) != 1 {
		t.Fatalf("restocks = %+v, want one", result.Restocks)
	}
	r := result.Restocks[0]
	if !r.Approved || r.Units != 600 || r.Cost != 30 {
		t.Errorf("restock = %+v, want approved 600 units at $30", r)
	}

	stock, err := store.StockLevel("A4 paper", "2025-06-01")
	if err != nil {
		t.Fatalf("StockLevel: %v", err)
	}
	if stock != 1000 {
		t.Errorf("stock after order and restock = %d, want 1000", stock)
	}

	cash, err := store.CashBalance("2025-06-01")
	if err != nil {
		t.Fatalf("CashBalance: %v", err)
	}
	if cash != 497 {
		t.Errorf("cash = %v, want 497 (500 + 27 sale - 30 restock)", cash)
	}

	if !strings.Contains(result.Response, "$27.00") {
		t.Errorf("response missing total: %q", result.Response)
	}
}

func TestProcessCustomerRequest_QuoteRecordsHistoryOnly(t *testing.T) {
	store := openSeededStore(t)
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "A4 paper", "quantity": 600}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("How much would 600 units of A4 paper cost?"))
	if result.Intent != IntentQuote {
		t.Fatalf("intent = %s", result.Intent)
	}
	if !strings.Contains(result.Response, "$27.00") || !strings.Contains(result.Response, "discount") {
		t.Errorf("response = %q", result.Response)
	}
	if len(result.SaleIDs) != 0 {
		t.Error("a quote must not record sales")
	}

	// Stock unchanged, quote history written.
	stock, _ := store.StockLevel("A4 paper", "2025-06-01")
	if stock != 1000 {
		t.Errorf("stock = %d, want unchanged 1000", stock)
	}
	quotes, err := store.SearchQuoteHistory([]string{"A4 paper"}, 5)
	if err != nil {
		t.Fatalf("SearchQuoteHistory: %v", err)
	}
	if len(quotes) != 1 || quotes[0].TotalAmount != 27 {
		t.Errorf("history = %+v, want one $27 quote", quotes)
	}
}

func TestProcessCustomerRequest_ShortageBlocksSale(t *testing.T) {
	store := openSeededStore(t)
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "A4 paper", "quantity": 5000}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 1})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("Order 5000 units of A4 paper"))
	if len(result.SaleIDs) != 0 {
		t.Fatal("shortage must not record a sale")
	}
	if !strings.Contains(result.Response, "5000 requested") || !strings.Contains(result.Response, "1000 in stock") {
		t.Errorf("response = %q", result.Response)
	}

	stock, _ := store.StockLevel("A4 paper", "2025-06-01")
	if stock != 1000 {
		t.Errorf("stock = %d, want unchanged", stock)
	}
}

func TestProcessCustomerRequest_AmbiguousItemAsksForClarification(t *testing.T) {
	store := openSeededStore(t)
	// "A4" matches both A4 paper and A4 glossy paper.
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "A4", "quantity": 100}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("Quote me 100 A4"))
	if !strings.Contains(result.Response, "A4 paper") || !strings.Contains(result.Response, "A4 glossy paper") {
		t.Errorf("clarification should list both candidates: %q", result.Response)
	}
}

func TestProcessCustomerRequest_SimilarMatchResolvesSingleCandidate(t *testing.T) {
	store := openSeededStore(t)
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "glossy", "quantity": 50}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("Quote 50 glossy sheets"))
	if result.Quote == nil {
		t.Fatalf("no quote produced: %q", result.Response)
	}
	if result.Quote.Breakdown[0].ItemName != "A4 glossy paper" {
		t.Errorf("resolved item = %q", result.Quote.Breakdown[0].ItemName)
	}
}

func TestProcessCustomerRequest_UnknownItemApologizes(t *testing.T) {
	store := openSeededStore(t)
	fake := &scriptedOracle{responses: []string{
		`[{"item_name": "vellum scrolls", "quantity": 10}]`,
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("Quote 10 vellum scrolls"))
	if !strings.Contains(result.Response, "vellum scrolls") {
		t.Errorf("response = %q", result.Response)
	}
}

func TestProcessCustomerRequest_InternalFailureBecomesApology(t *testing.T) {
	store := openSeededStore(t)
	fake := &scriptedOracle{err: errors.New("oracle unreachable")}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0})

	result := orc.ProcessCustomerRequest(context.Background(), testTask("Quote 600 A4 paper"))
	if result.Response != apologyResponse {
		t.Errorf("response = %q, want apology", result.Response)
	}
}

func TestProcessCustomerRequest_GeneralRoutesToHandler(t *testing.T) {
	store := openSeededStore(t)
	h := &fakeHandler{name: "financial", response: "Cash balance is $500."}
	// Intent classification and routing share the classifier; index 2 is
	// "general" for three intents, and would be out of range for a
	// single-handler registry, so use a two-stage classifier.
	cls := &sequenceClassifier{indexes: []int{2, 0}}
	orc := newTestOrchestrator(store, &scriptedOracle{}, cls, h)

	result := orc.ProcessCustomerRequest(context.Background(), testTask("What's our cash balance?"))
	if result.Intent != IntentGeneral {
		t.Fatalf("intent = %s", result.Intent)
	}
	if result.Response != "Cash balance is $500." {
		t.Errorf("response = %q", result.Response)
	}
	if len(h.tasks) != 1 || !strings.Contains(h.tasks[0], "as of 2025-06-01") {
		t.Errorf("handler task = %v, want as-of context attached", h.tasks)
	}
}

type sequenceClassifier struct {
	indexes []int
	calls   int
}

func (s *sequenceClassifier) Classify(_ context.Context, _ string, candidates []oracle.Candidate) (oracle.Selection, error) {
	idx := s.indexes[s.calls%len(s.indexes)]
	s.calls++
	if idx < 0 || idx >= len(candidates) {
		return oracle.Selection{Index: -1, Raw: "none"}, nil
	}
	return oracle.Selection{Index: idx, Raw: candidates[idx].Name}, nil
}

func TestRunWorkflow_DispatchesPlannedSteps(t *testing.T) {
	store := openSeededStore(t)
	h := &fakeHandler{name: "inventory", response: "step handled"}
	// First oracle call plans, second synthesizes the final answer.
	fake := &scriptedOracle{responses: []string{
		`["Check A4 paper stock", "Report the cash balance"]`,
		"Final combined answer.",
	}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0}, h)

	result, err := orc.RunWorkflow(context.Background(), "Review stock and cash")
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}
	if len(result.Steps) != 2 {
		t.Fatalf("steps = %+v", result.Steps)
	}
	if result.Final != "Final combined answer." {
		t.Errorf("final = %q", result.Final)
	}
	if len(h.tasks) != 2 {
		t.Errorf("handler ran %d times, want 2", len(h.tasks))
	}
}

func TestRunWorkflow_UnplannableGoalRoutesDirectly(t *testing.T) {
	store := openSeededStore(t)
	h := &fakeHandler{name: "inventory", response: "direct answer"}
	// The planner gets no structure back and falls through to a single
	// direct step, whose output is final without synthesis.
	fake := &scriptedOracle{responses: []string{"I cannot break that down."}}
	orc := newTestOrchestrator(store, fake, &fixedClassifier{index: 0}, h)

	result, err := orc.RunWorkflow(context.Background(), "Do the thing")
	if err != nil {
		t.Fatalf("RunWorkflow: %v", err)
	}
	if result.Final != "direct answer" || len(result.Steps) != 1 {
		t.Errorf("result = %+v", result)
	}
}
