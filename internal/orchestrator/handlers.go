package orchestrator

import (
	"log/slog"

	"adloom/internal/config"
	"adloom/internal/services/embedding"
	"adloom/internal/services/firecrawl"
	"adloom/internal/services/llm"
	"adloom/internal/services/videogen"
	"adloom/internal/session"
	"adloom/internal/steps"
)

// DefaultHandlers wires the full step set against the vendor clients built
// from configuration. Unconfigured vendors leave their steps on simulated
// payloads.
func DefaultHandlers(cfg *config.Config, store *session.Store, logger *slog.Logger) []steps.Handler {
	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	searchClient := firecrawl.NewClient(firecrawl.Config{
		APIKey:         cfg.Firecrawl.APIKey,
		BaseURL:        cfg.Firecrawl.BaseURL,
		TimeoutSeconds: cfg.Firecrawl.TimeoutSeconds,
		MaxResults:     cfg.Firecrawl.MaxResults,
	})
	videoClient := videogen.NewClient(videogen.Config{
		APIKey:              cfg.VideoGen.APIKey,
		BaseURL:             cfg.VideoGen.BaseURL,
		Model:               cfg.VideoGen.Model,
		PollIntervalSeconds: cfg.VideoGen.PollIntervalSeconds,
		TimeoutSeconds:      cfg.VideoGen.TimeoutSeconds,
	})
	embedClient := embedding.NewClient(embedding.Config{
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
		Model:   cfg.Embedding.Model,
	})

	return []steps.Handler{
		steps.NewBrandAnalysis(store, cfg.Workflow.MemoryLimit, logger),
		steps.NewCompetitorResearch(searchClient, logger),
		steps.NewTrendAnalysis(llmClient, logger),
		steps.NewConceptGeneration(llmClient, logger),
		steps.NewScriptGeneration(llmClient, logger),
		steps.NewVideoGeneration(videoClient, logger),
		steps.NewMemoryUpdate(store, llmClient, embedClient, logger),
	}
}
