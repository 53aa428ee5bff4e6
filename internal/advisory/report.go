// Final report — the third advisory request shape: summarize final
// standings, get back a structured feasibility report.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/echelon/internal/market"
)

// ComparisonRow scores one attribute user-vs-leader on a 1–10 scale.
type ComparisonRow struct {
	Attribute string  `json:"attribute"`
	User      float64 `json:"user"`
	Leader    float64 `json:"leader"`
}

// PositioningPoint places one agent on the quality/price map.
type PositioningPoint struct {
	Name    string  `json:"name"`
	Quality float64 `json:"quality"`
	Price   float64 `json:"price"`
	IsUser  bool    `json:"isUser"`
}

// SuccessDriver scores one success factor 0–100.
type SuccessDriver struct {
	Factor string  `json:"factor"`
	Score  float64 `json:"score"`
}

// HeadToHead is the user-vs-leader summary block.
type HeadToHead struct {
	UserRevenue        string `json:"userRevenue"`
	LeaderRevenue      string `json:"leaderRevenue"`
	UserMarketShare    string `json:"userMarketShare"`
	LeaderMarketShare  string `json:"leaderMarketShare"`
	PriceCompetitive   string `json:"priceCompetitive"`
	QualityCompetitive string `json:"qualityCompetitive"`
}

// SWOT holds the four analysis lists.
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Report is the structured feasibility report attached to a completed
// simulation. PositioningMap and HeadToHead pass through when the model
// includes them.
type Report struct {
	FeasibilityScore float64            `json:"feasibilityScore"` // 0–10
	Verdict          string             `json:"verdict"`
	Summary          string             `json:"summary"`
	Comparison       []ComparisonRow    `json:"comparison"`
	PositioningMap   []PositioningPoint `json:"positioningMap,omitempty"`
	SuccessDrivers   []SuccessDriver    `json:"successDrivers"`
	HeadToHead       *HeadToHead        `json:"headToHead,omitempty"`
	SWOT             SWOT               `json:"swot"`
	Recommendation   string             `json:"recommendation"`
}

const reportSystemPrompt = `You are a business feasibility analyst. Given the final state of a regional market simulation, produce a structured feasibility report. Respond ONLY with a single JSON object — no prose, no code fences.`

// FinalReport asks the advisory model for the feasibility report on the
// final market state.
func (g *Gateway) FinalReport(ctx context.Context, state *market.State) (*Report, error) {
	prompt := buildReportPrompt(state)

	text, err := g.Call(ctx, reportSystemPrompt, prompt, 3000, PriorityReport)
	if err != nil {
		return nil, fmt.Errorf("final report: %w", err)
	}

	return parseReport(text)
}

func buildReportPrompt(state *market.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Final report for %s after %d simulated months.\n\nFinal standings:\n", state.Region, state.Tick)
	for i := range state.Agents {
		a := &state.Agents[i]
		fmt.Fprintf(&b, "- %s (%s, %s): share %.1f%%, revenue %s, profit %s, price %.2f, quality %.2f, brand %.2f\n",
			a.Name, a.Role, a.Archetype,
			a.MarketShare*100,
			humanize.CommafWithDigits(a.Revenue, 0),
			humanize.CommafWithDigits(a.Profit, 0),
			a.CurrentPricing, a.Quality, a.BrandPower,
		)
	}
	if len(state.Events) > 0 {
		b.WriteString("\nNotable events:\n")
		for _, e := range state.Events {
			fmt.Fprintf(&b, "- month %d: %s\n", e.Tick, e.Title)
		}
	}

	b.WriteString(`
The agent with role "startup" is the user's venture; the agent with the largest market share among the others is the market leader.

Respond with this JSON shape:
{
  "feasibilityScore": 7,
  "verdict": "Go|Review|No-Go",
  "summary": "2-3 sentence assessment",
  "comparison": [{"attribute": "Pricing", "user": 5, "leader": 8}],
  "positioningMap": [{"name": "Agent", "quality": 0.5, "price": 50, "isUser": false}],
  "successDrivers": [{"factor": "Location", "score": 70}],
  "headToHead": {"userRevenue": "", "leaderRevenue": "", "userMarketShare": "", "leaderMarketShare": "", "priceCompetitive": "", "qualityCompetitive": ""},
  "swot": {"strengths": [], "weaknesses": [], "opportunities": [], "threats": []},
  "recommendation": "One-paragraph recommendation"
}

Rules:
- feasibilityScore is 0-10; comparison scores are 1-10; successDrivers scores are 0-100.`)

	return b.String()
}

func parseReport(response string) (*Report, error) {
	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var report Report
	if err := json.Unmarshal([]byte(jsonStr), &report); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("parse report: %v", err)}
	}

	if strings.TrimSpace(report.Verdict) == "" {
		return nil, &SchemaError{Reason: "report missing verdict"}
	}
	if strings.TrimSpace(report.Summary) == "" {
		return nil, &SchemaError{Reason: "report missing summary"}
	}
	report.FeasibilityScore = clamp(report.FeasibilityScore, 0, 10)
	for i := range report.SuccessDrivers {
		report.SuccessDrivers[i].Score = clamp(report.SuccessDrivers[i].Score, 0, 100)
	}

	return &report, nil
}

// FallbackReport is the fixed conservative report used when the advisory
// call fails or its response is unparsable, so a job never fails solely due
// to report generation.
func FallbackReport() *Report {
	return &Report{
		FeasibilityScore: 7,
		Verdict:          "Review",
		Summary:          "Simulation completed. Strategic data is being processed.",
		Comparison:       []ComparisonRow{},
		SuccessDrivers:   []SuccessDriver{{Factor: "Observation", Score: 70}},
		SWOT: SWOT{
			Strengths:     []string{"Operational"},
			Weaknesses:    []string{},
			Opportunities: []string{},
			Threats:       []string{},
		},
		Recommendation: "Continue market monitoring.",
	}
}
