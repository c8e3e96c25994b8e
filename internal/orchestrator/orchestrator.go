package orchestrator

import (
	"sync"

	"github.com/quillworks/quill/internal/evaluator"
	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/planner"
	"github.com/quillworks/quill/internal/router"
)

// Orchestrator owns the customer request pipeline: intent classification,
// item resolution, quoting, sale recording, restock, and multi-step
// workflows dispatched through the router.
type Orchestrator struct {
	store      *ledger.Store
	oracle     oracle.Oracle
	classifier oracle.Classifier
	router     *router.Router
	planner    *planner.Planner
	evaluator  *evaluator.Evaluator
	logger     *DebugLogger

	safetyMargin float64

	// mu serializes the read-decide-write section of order processing.
	// Stock checks and approvals must see a ledger no concurrent request
	// is mutating.
	mu sync.Mutex
}

// Options configures an Orchestrator.
type Options struct {
	Store        *ledger.Store
	Oracle       oracle.Oracle
	Classifier   oracle.Classifier
	Router       *router.Router
	Planner      *planner.Planner
	Evaluator    *evaluator.Evaluator
	Logger       *DebugLogger
	SafetyMargin float64
}

// New assembles an Orchestrator. A nil Logger selects the no-op logger.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = NopLogger()
	}
	return &Orchestrator{
		store:        opts.Store,
		oracle:       opts.Oracle,
		classifier:   opts.Classifier,
		router:       opts.Router,
		planner:      opts.Planner,
		evaluator:    opts.Evaluator,
		logger:       logger,
		safetyMargin: opts.SafetyMargin,
	}
}
