// Agent generation — the first advisory request shape: describe the idea and
// region, get back 4–5 competitor agents plus market context.
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/echelon/internal/market"
)

// GeneratedMarket is the parsed agent-generation response. VisitsPerMonth
// and Sentiment refine the initial market state when the model supplies sane
// values; zero means "not provided".
type GeneratedMarket struct {
	Agents         []market.Agent
	VisitsPerMonth float64
	Sentiment      float64
	Description    string
}

const generateSystemPrompt = `You are a market analyst for a regional business feasibility simulator. Given a business idea, produce a realistic set of local competitors and basic market context. Respond ONLY with a single JSON object — no prose, no code fences.`

// GenerateAgents asks the advisory model for a competitor set. Responses
// failing schema validation come back as a *SchemaError so the caller can
// fall back to the fixed agent set.
func (g *Gateway) GenerateAgents(ctx context.Context, idea, region string, population float64) (*GeneratedMarket, error) {
	prompt := buildGeneratePrompt(idea, region, population)

	text, err := g.Call(ctx, generateSystemPrompt, prompt, 2000, PriorityGeneration)
	if err != nil {
		return nil, fmt.Errorf("agent generation: %w", err)
	}

	return parseGeneratedMarket(text)
}

func buildGeneratePrompt(idea, region string, population float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Business idea: %q in the region of %q.\n", idea, region)
	fmt.Fprintf(&b, "Addressable population: %s people.\n\n", humanize.Comma(int64(population)))

	b.WriteString(`Create a realistic market of 4-5 agents based on real-world local competition.

Rules:
- Exactly one agent has role "startup" and represents the user's idea; the rest are competitors with roles "competitor", "incumbent", or "disruptor".
- Assign each agent an "archetype": "Budget Provider", "Premium Leader", "Value Specialist", "High-End Boutique", or "Rapid Expansionist".
- Use pricing that matches the region's economy.
- quality is 0.1 to 1.0, brandPower is 0.1 to 1.0, budget is a realistic annual figure.

Respond with this JSON shape:
{
  "agents": [
    {
      "name": "Company Name",
      "role": "startup|competitor|incumbent|disruptor",
      "archetype": "Budget Provider",
      "description": "Brief description",
      "strategyStyle": "Their strategic approach",
      "basePricing": 0,
      "quality": 0.5,
      "brandPower": 0.5,
      "budget": 0
    }
  ],
  "marketContext": {
    "visitsPerMonth": 2.5,
    "sentiment": 0.65,
    "description": "One-line market summary"
  }
}`)

	return b.String()
}

// generatedAgent mirrors the wire shape of one agent in the response.
type generatedAgent struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	Archetype     string  `json:"archetype"`
	Description   string  `json:"description"`
	StrategyStyle string  `json:"strategyStyle"`
	BasePricing   float64 `json:"basePricing"`
	Quality       float64 `json:"quality"`
	BrandPower    float64 `json:"brandPower"`
	Budget        float64 `json:"budget"`
}

func parseGeneratedMarket(response string) (*GeneratedMarket, error) {
	jsonStr, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var wire struct {
		Agents        []generatedAgent `json:"agents"`
		MarketContext struct {
			VisitsPerMonth float64 `json:"visitsPerMonth"`
			Sentiment      float64 `json:"sentiment"`
			Description    string  `json:"description"`
		} `json:"marketContext"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &wire); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("parse agents: %v", err)}
	}

	if len(wire.Agents) < 2 {
		return nil, &SchemaError{Reason: fmt.Sprintf("expected at least 2 agents, got %d", len(wire.Agents))}
	}

	out := &GeneratedMarket{
		VisitsPerMonth: wire.MarketContext.VisitsPerMonth,
		Sentiment:      clamp(wire.MarketContext.Sentiment, 0, 1),
		Description:    wire.MarketContext.Description,
	}
	for _, ga := range wire.Agents {
		if strings.TrimSpace(ga.Name) == "" {
			return nil, &SchemaError{Reason: "agent with empty name"}
		}
		if ga.BasePricing <= 0 {
			return nil, &SchemaError{Reason: fmt.Sprintf("agent %q has non-positive basePricing", ga.Name)}
		}
		out.Agents = append(out.Agents, market.Agent{
			ID:            ga.ID,
			Name:          ga.Name,
			Role:          market.Role(ga.Role),
			Archetype:     market.Archetype(ga.Archetype),
			Description:   ga.Description,
			StrategyStyle: ga.StrategyStyle,
			BasePricing:   ga.BasePricing,
			Quality:       ga.Quality,
			BrandPower:    ga.BrandPower,
			Budget:        ga.Budget,
		})
	}

	return out, nil
}
