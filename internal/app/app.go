// Package app assembles the logger, store, model chain and service from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/Epistemic-Technology/vetrecords/internal/config"
	"github.com/Epistemic-Technology/vetrecords/internal/documents"
	"github.com/Epistemic-Technology/vetrecords/internal/extraction"
	"github.com/Epistemic-Technology/vetrecords/internal/llm"
	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/storage"
)

// App holds everything a command needs to serve extractions.
type App struct {
	Config  *config.Config
	Log     logger.Logger
	Store   storage.Store
	Chain   *llm.Chain
	Service *extraction.Service
}

// NewLogger builds the zap-backed logger described by cfg.
func NewLogger(cfg config.LogConfig) (logger.Logger, error) {
	return logger.NewLogger(logger.LogConfig{
		Output:   cfg.Output,
		Level:    cfg.Level,
		Format:   cfg.Format,
		FilePath: cfg.FilePath,
	})
}

// New opens the store and builds the model chain. Callers must Close the App.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	chain, err := NewChain(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
	}
	log.Info("Using %s storage", cfg.Storage.Backend)

	svc := extraction.NewService(store, chain, extraction.Options{
		InputMode:    llm.InputMode(cfg.LLM.InputMode),
		SchemaMode:   llm.SchemaMode(cfg.LLM.SchemaMode),
		MaxTextChars: cfg.LLM.MaxTextChars,
		MaxWorkers:   cfg.LLM.MaxWorkers,
	}, log)

	return &App{Config: cfg, Log: log, Store: store, Chain: chain, Service: svc}, nil
}

// NewChain creates one client per provider and orders attempts as configured.
func NewChain(ctx context.Context, cfg *config.Config, log logger.Logger) (*llm.Chain, error) {
	if err := cfg.RequireProviderKeys(); err != nil {
		return nil, err
	}
	specs, err := cfg.ModelSpecs()
	if err != nil {
		return nil, err
	}

	providers := map[string]llm.Provider{}
	attempts := make([]llm.Attempt, 0, len(specs))
	for _, spec := range specs {
		p, ok := providers[spec.Provider]
		if !ok {
			switch spec.Provider {
			case "openai":
				p = llm.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIBaseURL)
			case "gemini":
				gemini, err := llm.NewGeminiProvider(ctx, cfg.LLM.GeminiAPIKey)
				if err != nil {
					return nil, err
				}
				p = gemini
			default:
				return nil, fmt.Errorf("unknown provider %q", spec.Provider)
			}
			providers[spec.Provider] = p
		}
		attempts = append(attempts, llm.Attempt{Provider: p, Model: spec.Model})
	}
	log.Info("Model chain: %v", specs)
	return llm.NewChain(log, cfg.LLM.Timeout, attempts...), nil
}

// ZoteroConfig adapts the configured credentials for document fetching.
func (a *App) ZoteroConfig() documents.ZoteroConfig {
	return documents.ZoteroConfig{
		APIKey:    a.Config.Zotero.APIKey,
		LibraryID: a.Config.Zotero.LibraryID,
		MaxBytes:  int64(a.Config.Server.MaxUploadMB) << 20,
	}
}

// Close releases the store.
func (a *App) Close() error {
	return a.Store.Close()
}
