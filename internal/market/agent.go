// Package market provides the agent and market-state data model and the
// deterministic monthly tick that advances it.
package market

import (
	"fmt"
)

// Role is an agent's position in the competitive field.
type Role string

const (
	RoleStartup    Role = "startup" // the user's proposed business
	RoleCompetitor Role = "competitor"
	RoleIncumbent  Role = "incumbent"
	RoleDisruptor  Role = "disruptor"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleStartup, RoleCompetitor, RoleIncumbent, RoleDisruptor:
		return true
	}
	return false
}

// Archetype is a coarse strategic posture assigned at generation.
type Archetype string

const (
	ArchetypeBudget    Archetype = "Budget Provider"
	ArchetypePremium   Archetype = "Premium Leader"
	ArchetypeValue     Archetype = "Value Specialist"
	ArchetypeBoutique  Archetype = "High-End Boutique"
	ArchetypeExpansion Archetype = "Rapid Expansionist"
)

// ValidArchetype reports whether a is one of the known archetypes.
func ValidArchetype(a Archetype) bool {
	switch a {
	case ArchetypeBudget, ArchetypePremium, ArchetypeValue, ArchetypeBoutique, ArchetypeExpansion:
		return true
	}
	return false
}

// HistoryEntry is one completed month of an agent's trajectory. Entries are
// append-only and never mutated retroactively.
type HistoryEntry struct {
	Tick    int     `json:"tick"`
	Share   float64 `json:"share"`
	Revenue float64 `json:"revenue"`
	Pricing float64 `json:"pricing"`
}

// Agent is one simulated business — the user's venture or a competitor.
type Agent struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Archetype Archetype `json:"archetype"`

	Description   string `json:"description"`
	StrategyStyle string `json:"strategyStyle"`
	Reasoning     string `json:"reasoning"` // last rationale received from the advisor

	// Economics. BasePricing is the reference price and never changes after
	// creation; CurrentPricing moves at strategy checkpoints.
	BasePricing    float64 `json:"basePricing"`
	CurrentPricing float64 `json:"currentPricing"`
	Quality        float64 `json:"quality"`    // 0.1–1.0
	BrandPower     float64 `json:"brandPower"` // 0.0–1.0
	Budget         float64 `json:"budget"`

	// Simulation outputs.
	MarketShare float64        `json:"marketShare"` // 0–1, sums to 1 across agents
	Revenue     float64        `json:"revenue"`     // cumulative
	Profit      float64        `json:"profit"`      // cumulative
	GrowthRate  float64        `json:"growthRate"`  // month-over-month revenue delta ratio
	History     []HistoryEntry `json:"history"`
}

// PrepareAgents normalizes freshly generated agents for tick zero: quality
// and brand power are clamped into range, current pricing snaps to base,
// shares split equally, and all outputs reset. Returns an error on an empty
// set since a market needs at least one participant.
func PrepareAgents(list []Agent) ([]Agent, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("market: no agents to prepare")
	}

	share := 1.0 / float64(len(list))
	for i := range list {
		a := &list[i]
		if a.ID == "" {
			a.ID = fmt.Sprintf("agent-%d", i+1)
		}
		if !ValidRole(a.Role) {
			a.Role = RoleCompetitor
		}
		if !ValidArchetype(a.Archetype) {
			a.Archetype = ArchetypeValue
		}
		a.Quality = clamp(a.Quality, 0.1, 1)
		a.BrandPower = clamp(a.BrandPower, 0, 1)
		if a.BasePricing < 0.1 {
			a.BasePricing = 0.1
		}
		a.CurrentPricing = a.BasePricing
		a.MarketShare = share
		a.Revenue = 0
		a.Profit = 0
		a.GrowthRate = 0
		a.History = nil
	}
	return list, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
