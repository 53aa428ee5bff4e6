package market

import (
	"math"
	"math/rand"
)

// Tuning constants for the monthly update. Inertia keeps shares slow-moving
// so a single month cannot produce winner-take-all swings; the margin is the
// fixed profit assumption applied to every agent.
const (
	shareInertia = 0.85
	profitMargin = 0.25
	varianceSpan = 0.05 // monthly demand variance: uniform(-0.05, +0.05)
)

// Advance computes one simulated month and returns the next state. It is
// pure apart from one variance draw per agent from rng, which callers inject
// so tests can fix the seed. The input state is not modified.
//
// Shares follow a softmax-like redistribution: each agent's utility
// (quality*1.5 + brandPower, discounted by its price drift from baseline) is
// normalized into a target share, then blended 85/15 with the previous
// share. Both terms sum to 1 and the blend weights are identical across
// agents, so the new shares sum to 1 by construction.
func Advance(s *State, rng *rand.Rand) *State {
	n := len(s.Agents)
	weights := make([]float64, n)
	var total float64
	for i := range s.Agents {
		a := &s.Agents[i]
		priceRatio := math.Max(0.1, a.CurrentPricing) / math.Max(0.1, a.BasePricing)
		utility := (a.Quality*1.5 + a.BrandPower) / math.Max(0.5, priceRatio)
		weights[i] = math.Max(0.01, utility)
		total += weights[i]
	}

	agents := make([]Agent, n)
	for i := range s.Agents {
		a := s.Agents[i] // copy

		targetShare := weights[i] / total
		actualShare := a.MarketShare*shareInertia + targetShare*(1-shareInertia)

		monthlyVariance := 1 + (rng.Float64()*2*varianceSpan - varianceSpan)
		transactions := s.PopulationScale * s.MarketSentiment * s.VisitsPerMonth * actualShare * monthlyVariance
		revenueThisMonth := transactions * a.CurrentPricing
		newRevenue := a.Revenue + revenueThisMonth

		// Growth vs the previous recorded month; zero on the first tick to
		// guard the division.
		growth := 0.0
		if last := len(a.History) - 1; last >= 0 && a.History[last].Revenue > 0 {
			prev := a.History[last].Revenue
			growth = (newRevenue - prev) / prev
		}

		history := make([]HistoryEntry, len(a.History), len(a.History)+1)
		copy(history, a.History)
		history = append(history, HistoryEntry{
			Tick:    s.Tick,
			Share:   actualShare,
			Revenue: newRevenue,
			Pricing: a.CurrentPricing,
		})

		a.MarketShare = actualShare
		a.Revenue = newRevenue
		a.Profit += revenueThisMonth * profitMargin
		a.GrowthRate = growth
		a.History = history
		agents[i] = a
	}

	next := *s
	next.Tick = s.Tick + 1
	next.Agents = agents
	return &next
}
