// Package sim runs one simulation job from agent generation to final
// report, reporting progress along the way. The engine owns its MarketState
// for the duration of a run; callers only ever see the finished result.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"unicode/utf8"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
)

// Advisor is the slice of the advisory gateway the engine needs. Every
// method may fail; the engine treats each failure as recoverable.
type Advisor interface {
	GenerateAgents(ctx context.Context, idea, region string, population float64) (*advisory.GeneratedMarket, error)
	StrategyCheckpoint(ctx context.Context, state *market.State) (*advisory.CheckpointResult, error)
	FinalReport(ctx context.Context, state *market.State) (*advisory.Report, error)
}

// Params are the validated job-creation parameters.
type Params struct {
	Idea       string
	Region     string
	Population float64
	Sentiment  float64
	Duration   int // months
}

// Config tunes simulation mechanics shared by every job.
type Config struct {
	CheckpointInterval int     // strategy checkpoint every N months
	VisitsPerMonth     float64 // default transaction frequency per capita
	Volatility         float64 // sentiment drift scale
	Seed               int64   // rng seed; 0 means the caller wants time-based seeding upstream
}

// Result is a completed simulation: the final market state and its report.
type Result struct {
	State  *market.State
	Report *advisory.Report
}

// Progress milestones.
const (
	progressAgents = 5
	progressInit   = 10
	progressReport = 90
	progressDone   = 100
)

// Engine runs one simulation to completion.
type Engine struct {
	params  Params
	cfg     Config
	advisor Advisor
	rng     *rand.Rand
}

// New creates an engine for one job. rng drives the monthly variance draws;
// inject a seeded source for reproducible runs.
func New(params Params, cfg Config, advisor Advisor, rng *rand.Rand) *Engine {
	if cfg.CheckpointInterval < 1 {
		cfg.CheckpointInterval = 6
	}
	if cfg.VisitsPerMonth <= 0 {
		cfg.VisitsPerMonth = 2.5
	}
	return &Engine{params: params, cfg: cfg, advisor: advisor, rng: rng}
}

// Run executes the full simulation. onProgress is called with values in
// [0, 100]; the engine emits them in non-decreasing order. The returned
// error is reserved for truly unexpected failures — advisory trouble is
// absorbed by fallbacks.
func (e *Engine) Run(ctx context.Context, onProgress func(int)) (*Result, error) {
	slog.Info("simulation starting", "idea", e.params.Idea, "region", e.params.Region, "months", e.params.Duration)

	onProgress(progressAgents)
	agents, visits, sentiment := e.generateAgents(ctx)

	prepared, err := market.PrepareAgents(agents)
	if err != nil {
		return nil, fmt.Errorf("prepare agents: %w", err)
	}

	state := market.NewState(
		e.params.Region, prepared,
		e.params.Population, sentiment,
		visits, e.cfg.Volatility, e.params.Duration,
	)
	drift := market.NewSentimentDrift(e.cfg.Seed, sentiment, e.cfg.Volatility)
	onProgress(progressInit)

	for tick := 0; tick < e.params.Duration; tick++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state.MarketSentiment = drift.At(state.Tick)
		state = market.Advance(state, e.rng)

		if tick > 0 && tick%e.cfg.CheckpointInterval == 0 {
			e.runCheckpoint(ctx, state, tick)
		}

		onProgress(progressInit + tick*(progressReport-progressInit)/e.params.Duration)
	}

	onProgress(progressReport)
	report := e.finalReport(ctx, state)
	onProgress(progressDone)

	slog.Info("simulation completed", "region", e.params.Region, "ticks", state.Tick, "events", len(state.Events))
	return &Result{State: state, Report: report}, nil
}

// generateAgents asks the advisor for a competitor set, falling back to the
// fixed set on any failure. The advisor may refine the visit frequency and
// baseline sentiment; zero values mean the model declined to.
func (e *Engine) generateAgents(ctx context.Context) ([]market.Agent, float64, float64) {
	visits := e.cfg.VisitsPerMonth
	sentiment := e.params.Sentiment

	generated, err := e.advisor.GenerateAgents(ctx, e.params.Idea, e.params.Region, e.params.Population)
	if err != nil {
		// The fallback set is fixed and startup-free on purpose: it must be
		// byte-for-byte deterministic, shares 0.25 each.
		slog.Warn("agent generation failed, using fallback set", "error", err)
		return market.FallbackAgents(), visits, sentiment
	}

	if generated.VisitsPerMonth > 0 {
		visits = generated.VisitsPerMonth
	}
	if generated.Sentiment > 0 {
		sentiment = generated.Sentiment
	}
	return withStartupAgent(generated.Agents, e.params.Idea), visits, sentiment
}

// withStartupAgent ensures exactly one agent carries the startup role so the
// final report always has a subject for the user-vs-leader comparison. The
// synthesized agent gets median economics: it is the unknown quantity.
func withStartupAgent(agents []market.Agent, idea string) []market.Agent {
	for i := range agents {
		if agents[i].Role == market.RoleStartup {
			return agents
		}
	}

	var price, budget float64
	for i := range agents {
		price += agents[i].BasePricing
		budget += agents[i].Budget
	}
	n := float64(len(agents))

	return append(agents, market.Agent{
		ID:            "agent-startup",
		Name:          startupName(idea),
		Role:          market.RoleStartup,
		Archetype:     market.ArchetypeValue,
		Description:   idea,
		StrategyStyle: "Finding its footing",
		BasePricing:   price / n,
		Quality:       0.6,
		BrandPower:    0.1, // nobody has heard of it yet
		Budget:        budget / n,
	})
}

func startupName(idea string) string {
	const maxLen = 40
	if len(idea) > maxLen {
		// Cut on a rune boundary so the name stays valid UTF-8.
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(idea[cut]) {
			cut--
		}
		idea = idea[:cut]
	}
	return "Your Venture (" + idea + ")"
}

// finalReport requests the feasibility report, substituting the fixed
// fallback so a job never fails solely due to report generation.
func (e *Engine) finalReport(ctx context.Context, state *market.State) *advisory.Report {
	report, err := e.advisor.FinalReport(ctx, state)
	if err != nil {
		slog.Warn("report generation failed, using fallback report", "error", err)
		return advisory.FallbackReport()
	}
	return report
}
