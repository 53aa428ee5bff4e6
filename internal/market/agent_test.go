package market

import (
	"testing"
)

func TestPrepareAgents_Normalization(t *testing.T) {
	list := []Agent{
		{Name: "Over", Role: "weird", Archetype: "Nonsense", BasePricing: 80, Quality: 1.7, BrandPower: 1.3, Revenue: 500, Profit: 100},
		{Name: "Under", Role: RoleIncumbent, Archetype: ArchetypePremium, BasePricing: 120, Quality: -0.2, BrandPower: -0.5},
		{Name: "Fine", Role: RoleStartup, Archetype: ArchetypeValue, BasePricing: 60, Quality: 0.5, BrandPower: 0.5},
		{Name: "Cheap", Role: RoleDisruptor, Archetype: ArchetypeBoutique, BasePricing: 0, Quality: 0.4, BrandPower: 0.3},
	}

	prepared, err := PrepareAgents(list)
	if err != nil {
		t.Fatalf("PrepareAgents: %v", err)
	}

	for i, a := range prepared {
		if a.Quality < 0.1 || a.Quality > 1 {
			t.Errorf("agent %d quality %v out of [0.1, 1]", i, a.Quality)
		}
		if a.BrandPower < 0 || a.BrandPower > 1 {
			t.Errorf("agent %d brand power %v out of [0, 1]", i, a.BrandPower)
		}
		if a.CurrentPricing != a.BasePricing {
			t.Errorf("agent %d current pricing %v != base %v", i, a.CurrentPricing, a.BasePricing)
		}
		if a.MarketShare != 0.25 {
			t.Errorf("agent %d share %v, want 0.25", i, a.MarketShare)
		}
		if a.Revenue != 0 || a.Profit != 0 || a.GrowthRate != 0 {
			t.Errorf("agent %d outputs not reset: %+v", i, a)
		}
		if len(a.History) != 0 {
			t.Errorf("agent %d history not empty", i)
		}
		if a.ID == "" {
			t.Errorf("agent %d missing id", i)
		}
	}

	if prepared[0].Role != RoleCompetitor {
		t.Errorf("unknown role not defaulted: %q", prepared[0].Role)
	}
	if prepared[0].Archetype != ArchetypeValue {
		t.Errorf("unknown archetype not defaulted: %q", prepared[0].Archetype)
	}
	if prepared[3].BasePricing != 0.1 {
		t.Errorf("zero base pricing not floored: %v", prepared[3].BasePricing)
	}
}

func TestPrepareAgents_Empty(t *testing.T) {
	if _, err := PrepareAgents(nil); err == nil {
		t.Fatal("expected error for empty agent set")
	}
}

func TestFallbackAgents_Deterministic(t *testing.T) {
	first, err := PrepareAgents(FallbackAgents())
	if err != nil {
		t.Fatalf("prepare fallback: %v", err)
	}
	second, err := PrepareAgents(FallbackAgents())
	if err != nil {
		t.Fatalf("prepare fallback: %v", err)
	}

	if len(first) != 4 {
		t.Fatalf("fallback set size = %d, want 4", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Name != second[i].Name ||
			first[i].BasePricing != second[i].BasePricing {
			t.Errorf("fallback agent %d differs between calls", i)
		}
		if first[i].MarketShare != 0.25 {
			t.Errorf("fallback agent %d share = %v, want 0.25", i, first[i].MarketShare)
		}
	}

	roles := map[Role]bool{}
	for _, a := range first {
		roles[a.Role] = true
	}
	if !roles[RoleIncumbent] || !roles[RoleCompetitor] || !roles[RoleDisruptor] {
		t.Errorf("fallback set not role-diverse: %v", roles)
	}
}

func TestSentimentDrift(t *testing.T) {
	// Zero volatility pins sentiment to the base.
	flat := NewSentimentDrift(42, 0.65, 0)
	for tick := 0; tick < 24; tick++ {
		if got := flat.At(tick); got != 0.65 {
			t.Fatalf("tick %d: flat sentiment = %v, want 0.65", tick, got)
		}
	}

	// Drift stays in bounds and is reproducible for a fixed seed.
	a := NewSentimentDrift(7, 0.65, 0.5)
	b := NewSentimentDrift(7, 0.65, 0.5)
	var moved bool
	for tick := 0; tick < 60; tick++ {
		got := a.At(tick)
		if got < 0.05 || got > 1 {
			t.Fatalf("tick %d: sentiment %v out of [0.05, 1]", tick, got)
		}
		if got != b.At(tick) {
			t.Fatalf("tick %d: drift not reproducible for same seed", tick)
		}
		if got != 0.65 {
			moved = true
		}
	}
	if !moved {
		t.Error("volatile drift never left the base value")
	}
}
