// Package ideas turns portfolio and market state into trade proposals,
// either via an LLM provider or a deterministic fallback.
package ideas

import (
	"context"

	"go.uber.org/zap"

	"github.com/akshayg/coach/internal/config"
	"github.com/akshayg/coach/internal/core"
	"github.com/akshayg/coach/internal/llm"
	"github.com/akshayg/coach/internal/sector"
)

// Input carries everything the generator needs for one run.
type Input struct {
	Snapshot core.PortfolioSnapshot
	Market   core.MarketContext
	Signals  []core.Signal
}

// Source reports where a batch of ideas came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Generator produces trade ideas for a portfolio. When no LLM provider is
// configured it serves fallback ideas only.
type Generator struct {
	provider llm.Provider
	sectors  sector.Lookup
	budget   float64
	maxTok   int
	log      *zap.Logger
}

// NewGenerator creates a Generator. provider may be nil to disable LLM calls.
func NewGenerator(provider llm.Provider, sectors sector.Lookup, cfg config.IdeasConfig, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	budget := cfg.NewPositionBudget
	if budget <= 0 {
		budget = 5000
	}
	maxTok := cfg.MaxTokens
	if maxTok <= 0 {
		maxTok = 1000
	}
	return &Generator{
		provider: provider,
		sectors:  sectors,
		budget:   budget,
		maxTok:   maxTok,
		log:      log,
	}
}

// Generate returns trade ideas for the given input with their source. On
// LLM transport failure it returns the error and no ideas; only an
// unparseable LLM response falls back to deterministic heuristics over the
// current holdings.
func (g *Generator) Generate(ctx context.Context, in Input) ([]core.TradeIdea, Source, error) {
	if g.provider == nil {
		g.log.Info("no idea provider configured, using fallback heuristics")
		return g.fallbackIdeas(in.Snapshot), SourceFallback, nil
	}

	resp, err := g.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: ideasSystemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: g.buildPrompt(in)},
		},
		MaxTokens:   g.maxTok,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, SourceLLM, core.WrapError(core.ErrLLMFailed, err)
	}

	parsed, perr := ParseIdeas(resp.Content)
	if perr != nil {
		g.log.Warn("idea response unparseable, using fallback heuristics", zap.Error(perr))
		return g.fallbackIdeas(in.Snapshot), SourceFallback, nil
	}
	if len(parsed) == 0 {
		g.log.Warn("idea response contained no valid ideas, using fallback heuristics")
		return g.fallbackIdeas(in.Snapshot), SourceFallback, nil
	}

	g.log.Info("trade ideas generated",
		zap.String("provider", g.provider.Name()),
		zap.Int("count", len(parsed)))
	return parsed, SourceLLM, nil
}

const ideasSystemPrompt = "You are a professional portfolio manager. Generate actionable trade ideas " +
	"based on the provided portfolio and market data. Focus on evidence-backed recommendations."
