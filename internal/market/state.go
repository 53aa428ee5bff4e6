package market

// Impact classifies a market event's effect on the simulated region.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// ValidImpact reports whether im is one of the known impact values.
func ValidImpact(im Impact) bool {
	switch im {
	case ImpactPositive, ImpactNegative, ImpactNeutral:
		return true
	}
	return false
}

// Event is a notable occurrence in the market, immutable once appended.
type Event struct {
	Tick        int    `json:"tick"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
}

// State is the aggregate simulated world at one point in time. Tick is the
// current month index (0-based); the simulation terminates at Tick ==
// MaxTicks. Agent count is fixed for the lifetime of the simulation.
type State struct {
	Region          string  `json:"region"`
	PopulationScale float64 `json:"populationScale"` // addressable population
	VisitsPerMonth  float64 `json:"visitsPerMonth"`  // transactions per capita per month
	MarketSentiment float64 `json:"marketSentiment"` // 0–1
	Volatility      float64 `json:"volatility"`
	Tick            int     `json:"tick"`
	MaxTicks        int     `json:"maxTicks"`
	Agents          []Agent `json:"agents"`
	Events          []Event `json:"events"`
}

// NewState assembles the initial market state at tick zero. Agents should
// already have been run through PrepareAgents.
func NewState(region string, agents []Agent, population, sentiment, visitsPerMonth, volatility float64, maxTicks int) *State {
	return &State{
		Region:          region,
		PopulationScale: population,
		VisitsPerMonth:  visitsPerMonth,
		MarketSentiment: clamp(sentiment, 0, 1),
		Volatility:      volatility,
		MaxTicks:        maxTicks,
		Agents:          agents,
		Events:          []Event{},
	}
}

// ShareSum returns the total market share across all agents. It should equal
// 1 within floating-point tolerance after every tick.
func (s *State) ShareSum() float64 {
	var sum float64
	for i := range s.Agents {
		sum += s.Agents[i].MarketShare
	}
	return sum
}

// AppendEvent records an event at the given tick.
func (s *State) AppendEvent(e Event) {
	s.Events = append(s.Events, e)
}
