package market

// FallbackAgents returns the fixed competitor set used when agent generation
// fails or produces unparsable output. It is deterministic and role-diverse
// so the simulation can always proceed. Callers still run the result through
// PrepareAgents, which assigns the equal 0.25 shares.
func FallbackAgents() []Agent {
	return []Agent{
		{
			ID:            "agent-1",
			Name:          "Market Leader Inc",
			Role:          RoleIncumbent,
			Archetype:     ArchetypePremium,
			Description:   "Established market leader with strong brand",
			StrategyStyle: "Premium positioning with high quality",
			BasePricing:   100,
			Quality:       0.9,
			BrandPower:    0.9,
			Budget:        1_000_000,
		},
		{
			ID:            "agent-2",
			Name:          "Budget Solutions Co",
			Role:          RoleCompetitor,
			Archetype:     ArchetypeBudget,
			Description:   "Low-cost provider targeting price-sensitive customers",
			StrategyStyle: "Cost leadership and volume",
			BasePricing:   50,
			Quality:       0.6,
			BrandPower:    0.5,
			Budget:        500_000,
		},
		{
			ID:            "agent-3",
			Name:          "Innovation Labs",
			Role:          RoleDisruptor,
			Archetype:     ArchetypeBoutique,
			Description:   "Innovative disruptor with unique value proposition",
			StrategyStyle: "Differentiation through innovation",
			BasePricing:   120,
			Quality:       0.95,
			BrandPower:    0.7,
			Budget:        750_000,
		},
		{
			ID:            "agent-4",
			Name:          "Value Experts",
			Role:          RoleCompetitor,
			Archetype:     ArchetypeValue,
			Description:   "Balanced approach offering good value",
			StrategyStyle: "Value optimization",
			BasePricing:   75,
			Quality:       0.75,
			BrandPower:    0.65,
			Budget:        600_000,
		},
	}
}
