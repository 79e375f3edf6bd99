package main

import (
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/rookhq/rook/internal/config"
	"github.com/rookhq/rook/internal/credential"
	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/internal/orchestrator"
	"github.com/rookhq/rook/internal/state"
)

// openRunStore opens (and migrates) the project-local run database.
func openRunStore() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	db, err := state.Open(state.DefaultDBPath(cwd))
	if err != nil {
		return nil, fmt.Errorf("open run database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run database: %w", err)
	}
	return db, nil
}

// buildRouter assembles the credential pool from configuration.
func buildRouter(cfg *config.Config) (*credential.Router, error) {
	keys, err := config.APIKeys(cfg)
	if err != nil {
		return nil, err
	}

	creds := credential.FromKeys(keys)
	if cfg.Bedrock.Enabled {
		for _, c := range creds {
			c.UseBedrock = true
			c.AWSRegion = cfg.Bedrock.Region
		}
	}

	return credential.NewRouter(creds,
		credential.WithCooldown(cfg.Router.CooldownBase, cfg.Router.CooldownMax))
}

// buildOrchestrator wires the full call chain: credential router, model
// client, executor, run store, and orchestrator.
func buildOrchestrator(cfg *config.Config, extra ...orchestrator.Option) (*orchestrator.Orchestrator, *state.DB, *llm.Client, error) {
	router, err := buildRouter(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	client := llm.NewClient(anthropic.Model(cfg.Anthropic.Model))
	exec := llm.NewExecutor(router, client, llm.WithCallTimeout(cfg.Run.CallTimeout))

	db, err := openRunStore()
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithDraftWidth(cfg.Run.DraftWidth),
		orchestrator.WithConfidenceThreshold(cfg.Run.ConfidenceThreshold),
		orchestrator.WithMaxPlanRetries(cfg.Run.MaxPlanRetries),
		orchestrator.WithMaxCallRetries(cfg.Run.MaxCallRetries),
		orchestrator.WithTokenBudgets(cfg.Budgets.PlanTokens, cfg.Budgets.DraftTokens, cfg.Budgets.MergeTokens),
		orchestrator.WithDefaultRecipient(cfg.Run.DefaultRecipient),
	}
	opts = append(opts, extra...)

	orch, err := orchestrator.New(orchestrator.RequiredConfig{Executor: exec, Store: db}, opts...)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return orch, db, client, nil
}
