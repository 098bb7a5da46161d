package steps

import (
	"context"
	"log/slog"

	"adloom/internal/logging"
	"adloom/internal/services"
	"adloom/internal/services/firecrawl"
	"adloom/internal/session"
)

// Searcher runs web searches for competitor research.
type Searcher interface {
	Configured() bool
	Search(ctx context.Context, query string) ([]firecrawl.SearchResult, error)
}

// CompetitorResearch gathers competitor ad activity via web search, falling
// back to a deterministic sample payload when no search credential is
// configured.
type CompetitorResearch struct {
	search Searcher
	logger *slog.Logger
}

// NewCompetitorResearch constructs the competitor research step.
func NewCompetitorResearch(search Searcher, logger *slog.Logger) *CompetitorResearch {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CompetitorResearch{search: search, logger: logger}
}

func (c *CompetitorResearch) Name() session.Step {
	return session.StepResearchCompetitors
}

func (c *CompetitorResearch) Execute(ctx context.Context, runCtx *RunContext) (Result, error) {
	if c.search == nil || !c.search.Configured() {
		c.logger.Debug("competitor research using simulated payload",
			logging.String(logging.FieldSessionID, runCtx.SessionID))
		return Result{
			Data:    map[string]any{"competitors": sampleCompetitors()},
			Summary: "Simulated competitor research (search not configured)",
		}, nil
	}

	query := "competitor video ads for " + runCtx.BrandContext
	results, err := c.search.Search(ctx, query)
	if err != nil {
		return Result{}, services.Wrap(
			services.ErrExternalTool, string(c.Name()), "search competitors",
			"Competitor search failed; check Firecrawl credentials", err)
	}

	competitors := make([]map[string]any, 0, len(results))
	for _, result := range results {
		competitors = append(competitors, map[string]any{
			"name":     result.Title,
			"url":      result.URL,
			"strategy": result.Description,
		})
	}
	return Result{
		Data:     map[string]any{"competitors": competitors},
		ToolName: "firecrawl",
		Summary:  "Competitor research from web search",
	}, nil
}
