// Strategy checkpoint — the second advisory request shape: summarize current
// standings, get back per-agent deltas plus an optional market event.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/echelon/internal/market"
)

// StrategyUpdate is one agent's advised delta. PricingChange and
// QualityAdjustment are clamped to [-0.1, 0.1] at parse time.
type StrategyUpdate struct {
	AgentID           string  `json:"agentId"`
	PricingChange     float64 `json:"pricingChange"`
	QualityAdjustment float64 `json:"qualityAdjustment"`
	NewStrategy       string  `json:"newStrategy"`
	Reasoning         string  `json:"reasoning"`
}

// CheckpointResult is the parsed strategy-checkpoint response. MarketEvent
// is nil when the model supplied none; its Tick is zero until the caller
// tags it with the triggering tick.
type CheckpointResult struct {
	Updates     []StrategyUpdate
	MarketEvent *market.Event
}

const strategySystemPrompt = `You are a strategic advisor observing a regional market simulation. Given the current standings, suggest small strategic adjustments for each agent. Respond ONLY with a single JSON object — no prose, no code fences.`

// StrategyCheckpoint asks the advisory model for per-agent strategy deltas
// at the current tick.
func (g *Gateway) StrategyCheckpoint(ctx context.Context, state *market.State) (*CheckpointResult, error) {
	prompt := buildStrategyPrompt(state)

	text, err := g.Call(ctx, strategySystemPrompt, prompt, 1500, PriorityCheckpoint)
	if err != nil {
		return nil, fmt.Errorf("strategy checkpoint: %w", err)
	}

	return parseCheckpointResult(text)
}

func buildStrategyPrompt(state *market.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Month %d simulation update for %s.\n\nCurrent standings:\n", state.Tick, state.Region)
	for i := range state.Agents {
		a := &state.Agents[i]
		fmt.Fprintf(&b, "- %s (%s): share %.1f%%, cumulative revenue %s, price %.2f, quality %.2f\n",
			a.Name, a.Archetype,
			a.MarketShare*100,
			humanize.CommafWithDigits(a.Revenue, 0),
			a.CurrentPricing, a.Quality,
		)
	}

	b.WriteString(`
As a market expert, adjust pricing and strategies based on local competition trends.

Respond with this JSON shape:
{
  "updates": [
    {
      "agentId": "agent id or name",
      "pricingChange": 0.0,
      "qualityAdjustment": 0.0,
      "newStrategy": "Updated strategy description",
      "reasoning": "Why this change makes sense"
    }
  ],
  "marketEvent": {
    "title": "Optional notable event",
    "description": "What happened in the market this month",
    "impact": "positive|negative|neutral"
  }
}

Rules:
- pricingChange and qualityAdjustment are between -0.1 and 0.1 (e.g. -0.05 = 5% price cut).
- Omit "marketEvent" if nothing notable happened.`)

	return b.String()
}

func parseCheckpointResult(response string) (*CheckpointResult, error) {
	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Updates     []StrategyUpdate `json:"updates"`
		MarketEvent *struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Impact      string `json:"impact"`
		} `json:"marketEvent"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("parse checkpoint: %v", err)}
	}

	out := &CheckpointResult{}
	for _, u := range wire.Updates {
		if strings.TrimSpace(u.AgentID) == "" {
			continue
		}
		u.PricingChange = clamp(u.PricingChange, -0.1, 0.1)
		u.QualityAdjustment = clamp(u.QualityAdjustment, -0.1, 0.1)
		out.Updates = append(out.Updates, u)
	}

	if wire.MarketEvent != nil && strings.TrimSpace(wire.MarketEvent.Title) != "" {
		impact := market.Impact(wire.MarketEvent.Impact)
		if !market.ValidImpact(impact) {
			impact = market.ImpactNeutral
		}
		out.MarketEvent = &market.Event{
			Title:       wire.MarketEvent.Title,
			Description: wire.MarketEvent.Description,
			Impact:      impact,
		}
	}

	return out, nil
}
