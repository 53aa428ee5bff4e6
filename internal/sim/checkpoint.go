package sim

import (
	"context"
	"log/slog"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
)

// runCheckpoint asks the advisor for strategy deltas and merges them into
// the state. Advisory failures are swallowed: the simulation continues
// without an intervention for this checkpoint.
func (e *Engine) runCheckpoint(ctx context.Context, state *market.State, tick int) {
	result, err := e.advisor.StrategyCheckpoint(ctx, state)
	if err != nil {
		slog.Debug("strategy checkpoint skipped", "tick", tick, "error", err)
		return
	}
	ApplyCheckpoint(state, result, tick)
}

// ApplyCheckpoint merges advised deltas into the market state in place.
//
// Matching: an update applies to the first agent whose id or name equals the
// update's agentId; an update matching nothing is a silent no-op, and an
// agent matching nothing is left unchanged. Pricing changes are
// multiplicative and compound across checkpoints; quality stays clamped to
// [0.1, 1]. Free-text fields overwrite only when the replacement is
// non-empty so a terse response cannot blank prior state.
func ApplyCheckpoint(state *market.State, result *advisory.CheckpointResult, tick int) {
	matched := make([]bool, len(result.Updates))
	for i := range state.Agents {
		a := &state.Agents[i]
		for j := range result.Updates {
			u := &result.Updates[j]
			if u.AgentID != a.ID && u.AgentID != a.Name {
				continue
			}
			matched[j] = true

			a.CurrentPricing *= 1 + u.PricingChange
			a.Quality = clampQuality(a.Quality + u.QualityAdjustment)
			if u.NewStrategy != "" {
				a.StrategyStyle = u.NewStrategy
			}
			if u.Reasoning != "" {
				a.Reasoning = u.Reasoning
			}
			break
		}
	}

	for j := range result.Updates {
		if !matched[j] {
			slog.Debug("strategy update matched no agent", "tick", tick, "agent_id", result.Updates[j].AgentID)
		}
	}

	state.AppendEvent(market.Event{
		Tick:        tick,
		Title:       "Strategy shift",
		Description: "Competitors adjusted pricing and positioning",
		Impact:      market.ImpactNeutral,
	})
	if result.MarketEvent != nil {
		ev := *result.MarketEvent
		ev.Tick = tick
		state.AppendEvent(ev)
	}
}

func clampQuality(v float64) float64 {
	if v < 0.1 {
		return 0.1
	}
	if v > 1 {
		return 1
	}
	return v
}
