package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/quillworks/quill/internal/config"
	"github.com/quillworks/quill/internal/evaluator"
	"github.com/quillworks/quill/internal/handler"
	"github.com/quillworks/quill/internal/ledger"
	"github.com/quillworks/quill/internal/oracle"
	"github.com/quillworks/quill/internal/orchestrator"
	"github.com/quillworks/quill/internal/planner"
	"github.com/quillworks/quill/internal/router"
)

// pipeline bundles everything a command needs to process requests.
type pipeline struct {
	store        *ledger.Store
	orchestrator *orchestrator.Orchestrator
	logger       *orchestrator.DebugLogger
}

func (p *pipeline) Close() {
	p.logger.Close()
	p.store.Close()
}

// buildPipeline assembles the full request pipeline from configuration:
// ledger store, oracle client, capability handlers, router, planner,
// evaluator, and the orchestrator over them.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	client, err := oracle.NewClient(oracle.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create oracle client: %w", err)
	}

	classifier := oracle.NewOracleClassifier(client)
	maxSteps := cfg.Pipeline.MaxToolSteps

	handlers := []handler.Handler{
		handler.NewInventoryHandler(client, store, maxSteps),
		handler.NewQuotingHandler(client, store, maxSteps),
		handler.NewOrderingHandler(client, store, maxSteps),
		handler.NewFinancialHandler(client, store, cfg.Finance.SafetyMargin, maxSteps),
	}

	policy := router.FallbackError
	if cfg.Pipeline.RouterFallback {
		policy = router.FallbackSynthesize
	}

	logger := orchestrator.NewDebugLoggerForDir(".")

	orc := orchestrator.New(orchestrator.Options{
		Store:        store,
		Oracle:       client,
		Classifier:   classifier,
		Router:       router.New(classifier, client, policy, handlers...),
		Planner:      planner.New(client),
		Evaluator:    evaluator.New(client, cfg.Pipeline.MaxEvaluateRounds),
		Logger:       logger,
		SafetyMargin: cfg.Finance.SafetyMargin,
	})

	return &pipeline{store: store, orchestrator: orc, logger: logger}, nil
}

func openStore(cfg *config.Config) (*ledger.Store, error) {
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger at %s: %w", cfg.Ledger.Path, err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return store, nil
}
