package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/halcyon-labs/comms-triage/backend/internal/analyst"
	"github.com/halcyon-labs/comms-triage/backend/internal/audit"
	"github.com/halcyon-labs/comms-triage/backend/internal/cache"
	"github.com/halcyon-labs/comms-triage/backend/internal/classify"
	"github.com/halcyon-labs/comms-triage/backend/internal/config"
	"github.com/halcyon-labs/comms-triage/backend/internal/decision"
	"github.com/halcyon-labs/comms-triage/backend/internal/explain"
	"github.com/halcyon-labs/comms-triage/backend/internal/pipeline"
	"github.com/halcyon-labs/comms-triage/backend/internal/provider"
	"github.com/halcyon-labs/comms-triage/backend/internal/segment"
	"github.com/halcyon-labs/comms-triage/backend/internal/server"
	"github.com/halcyon-labs/comms-triage/backend/internal/taxonomy"
	"github.com/halcyon-labs/comms-triage/backend/internal/translate"
)

func main() {
	// Load environment variables
	godotenv.Load()

	logger := log.New(os.Stdout, "[triage] ", log.LstdFlags|log.Lshortfile)

	cfg := config.Load()
	logger.Println("Configuration loaded")

	// Taxonomy store with optional hot-reload
	store, err := taxonomy.NewStore(cfg.Taxonomy.Directory, logger)
	if err != nil {
		logger.Fatalf("Failed to load taxonomy: %v", err)
	}
	if cfg.Taxonomy.WatchChanges && cfg.Taxonomy.Directory != "" {
		if err := store.StartHotReload(); err != nil {
			logger.Printf("[ERROR] Taxonomy hot-reload unavailable: %v", err)
		}
	}

	// Flagging policy engine
	engine, err := decision.NewEngine(cfg.Decision.PolicyPath, logger)
	if err != nil {
		logger.Fatalf("Failed to load flagging policy: %v", err)
	}
	if cfg.Decision.WatchChanges && cfg.Decision.PolicyPath != "" {
		if err := engine.StartHotReload(); err != nil {
			logger.Printf("[ERROR] Policy hot-reload unavailable: %v", err)
		}
	}

	// LLM provider, used by the llm translation backend and the analyst
	var p provider.Provider
	if cfg.Provider.BaseURL != "" {
		switch cfg.Provider.Type {
		case "ollama":
			p = provider.NewOllamaProvider(cfg.Provider.BaseURL, cfg.Provider.Timeout)
		default:
			p = provider.NewOpenAIProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
		}
		p = provider.NewBreaker(p, provider.BreakerConfig{})
		logger.Printf("Provider: %s (%s)", p.Name(), cfg.Provider.BaseURL)
	}

	// Translation backend
	var backend translate.Backend
	switch cfg.Translate.Backend {
	case "llm":
		if p == nil {
			logger.Fatalf("Translation backend %q requires PROVIDER_URL", cfg.Translate.Backend)
		}
		backend = translate.NewLLMBackend(p, cfg.Provider.Model)
	default:
		if cfg.Translate.PhrasebookPath != "" {
			backend, err = translate.LoadPhrasebook(cfg.Translate.PhrasebookPath)
			if err != nil {
				logger.Fatalf("Failed to load phrasebook: %v", err)
			}
		} else {
			backend = translate.NewPhrasebook()
		}
	}
	logger.Printf("Translation backend: %s", backend.Name())

	// Triage pipeline
	stages := []pipeline.Stage{
		segment.New(logger),
		translate.NewNormalizer(backend, logger),
		classify.New(store, engine, logger),
		explain.New(logger),
	}
	pipe := pipeline.New(stages, cfg.Pipeline.TimeBudget, logger)

	// Optional collaborators
	var verdictCache *cache.VerdictCache
	if cfg.Cache.Enabled {
		verdictCache = cache.New(cfg.Cache.MaxSize, cfg.Cache.TTL)
	}

	auditLogger, err := audit.NewLogger(cfg.Logging.AuditPath)
	if err != nil {
		logger.Fatalf("Failed to open audit log: %v", err)
	}
	defer auditLogger.Close()

	var reviewer *analyst.Analyst
	if cfg.Analyst.Enabled {
		if p == nil {
			logger.Fatalf("Analyst requires PROVIDER_URL")
		}
		reviewer = analyst.New(p, cfg.Analyst.Model, store, logger)
		logger.Printf("Analyst enabled (model %s)", cfg.Analyst.Model)
	}

	srv := server.New(server.Options{
		Config:   cfg,
		Pipeline: pipe,
		Store:    store,
		Engine:   engine,
		Cache:    verdictCache,
		Audit:    auditLogger,
		Analyst:  reviewer,
		Logger:   logger,
	})

	logger.Println("=================================")
	logger.Println("Comms Triage Starting")
	logger.Println("=================================")
	logger.Printf("Taxonomy: %s", store.Version())
	logger.Printf("Policy:   %s", engine.PolicyVersion())
	logger.Println("=================================")

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
}
