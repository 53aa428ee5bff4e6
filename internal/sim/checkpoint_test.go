package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
)

func checkpointState() *market.State {
	agents, _ := market.PrepareAgents([]market.Agent{
		{ID: "a1", Name: "Grind House", Role: market.RoleIncumbent, Archetype: market.ArchetypePremium, BasePricing: 100, Quality: 0.9, BrandPower: 0.8, StrategyStyle: "Premium", Reasoning: "initial"},
		{ID: "a2", Name: "Cup & Go", Role: market.RoleCompetitor, Archetype: market.ArchetypeBudget, BasePricing: 50, Quality: 0.5, BrandPower: 0.6, StrategyStyle: "Volume", Reasoning: "initial"},
	})
	return market.NewState("Testville", agents, 10_000, 0.65, 2.5, 0, 12)
}

func TestApplyCheckpoint_MatchByID(t *testing.T) {
	state := checkpointState()
	ApplyCheckpoint(state, &advisory.CheckpointResult{
		Updates: []advisory.StrategyUpdate{
			{AgentID: "a1", PricingChange: -0.05, QualityAdjustment: 0.05, NewStrategy: "Discount defense", Reasoning: "Budget pressure"},
		},
	}, 6)

	a := state.Agents[0]
	assert.InDelta(t, 95.0, a.CurrentPricing, 1e-9, "pricing change is multiplicative")
	assert.InDelta(t, 0.95, a.Quality, 1e-9)
	assert.Equal(t, "Discount defense", a.StrategyStyle)
	assert.Equal(t, "Budget pressure", a.Reasoning)

	// The unmatched agent is untouched.
	assert.Equal(t, 50.0, state.Agents[1].CurrentPricing)
	assert.Equal(t, "Volume", state.Agents[1].StrategyStyle)
}

func TestApplyCheckpoint_MatchByName(t *testing.T) {
	state := checkpointState()
	ApplyCheckpoint(state, &advisory.CheckpointResult{
		Updates: []advisory.StrategyUpdate{
			{AgentID: "Cup & Go", PricingChange: 0.1},
		},
	}, 6)

	assert.InDelta(t, 55.0, state.Agents[1].CurrentPricing, 1e-9)
}

func TestApplyCheckpoint_FirstMatchWins(t *testing.T) {
	state := checkpointState()
	ApplyCheckpoint(state, &advisory.CheckpointResult{
		Updates: []advisory.StrategyUpdate{
			{AgentID: "a1", PricingChange: 0.1},
			{AgentID: "Grind House", PricingChange: -0.1},
		},
	}, 6)

	// Only the first matching update applies.
	assert.InDelta(t, 110.0, state.Agents[0].CurrentPricing, 1e-9)
}

func TestApplyCheckpoint_QualityClamped(t *testing.T) {
	state := checkpointState()
	for i := 0; i < 20; i++ {
		ApplyCheckpoint(state, &advisory.CheckpointResult{
			Updates: []advisory.StrategyUpdate{
				{AgentID: "a1", QualityAdjustment: 0.1},
				{AgentID: "a2", QualityAdjustment: -0.1},
			},
		}, 6)
	}

	assert.Equal(t, 1.0, state.Agents[0].Quality)
	assert.Equal(t, 0.1, state.Agents[1].Quality)
}

func TestApplyCheckpoint_EmptyTextDoesNotOverwrite(t *testing.T) {
	state := checkpointState()
	ApplyCheckpoint(state, &advisory.CheckpointResult{
		Updates: []advisory.StrategyUpdate{
			{AgentID: "a1", PricingChange: 0.01, NewStrategy: "", Reasoning: ""},
		},
	}, 6)

	assert.Equal(t, "Premium", state.Agents[0].StrategyStyle)
	assert.Equal(t, "initial", state.Agents[0].Reasoning)
}

func TestApplyCheckpoint_NoMatchIsNoOp(t *testing.T) {
	state := checkpointState()
	before := state.Agents[0]

	ApplyCheckpoint(state, &advisory.CheckpointResult{
		Updates: []advisory.StrategyUpdate{
			{AgentID: "nobody", PricingChange: 0.1},
		},
	}, 6)

	assert.Equal(t, before.CurrentPricing, state.Agents[0].CurrentPricing)
	assert.Equal(t, before.Quality, state.Agents[0].Quality)
}

func TestApplyCheckpoint_Events(t *testing.T) {
	state := checkpointState()
	ApplyCheckpoint(state, &advisory.CheckpointResult{
		MarketEvent: &market.Event{
			Title:       "Price war erupts",
			Description: "Budget entrants slash pricing.",
			Impact:      market.ImpactNegative,
		},
	}, 6)

	require.Len(t, state.Events, 2)

	// Bookkeeping entry first, then the advisory event stamped with the tick.
	assert.Equal(t, 6, state.Events[0].Tick)
	assert.Equal(t, market.ImpactNeutral, state.Events[0].Impact)
	assert.Equal(t, "Price war erupts", state.Events[1].Title)
	assert.Equal(t, 6, state.Events[1].Tick)
	assert.Equal(t, market.ImpactNegative, state.Events[1].Impact)
}
