package sim

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
)

// fakeAdvisor scripts the three advisory calls. Nil function fields fail
// the corresponding call with a generic error.
type fakeAdvisor struct {
	generate    func() (*advisory.GeneratedMarket, error)
	checkpoint  func(state *market.State) (*advisory.CheckpointResult, error)
	report      func() (*advisory.Report, error)
	checkpoints int
}

func (f *fakeAdvisor) GenerateAgents(ctx context.Context, idea, region string, population float64) (*advisory.GeneratedMarket, error) {
	if f.generate == nil {
		return nil, errors.New("generation down")
	}
	return f.generate()
}

func (f *fakeAdvisor) StrategyCheckpoint(ctx context.Context, state *market.State) (*advisory.CheckpointResult, error) {
	f.checkpoints++
	if f.checkpoint == nil {
		return nil, errors.New("checkpoint down")
	}
	return f.checkpoint(state)
}

func (f *fakeAdvisor) FinalReport(ctx context.Context, state *market.State) (*advisory.Report, error) {
	if f.report == nil {
		return nil, errors.New("report down")
	}
	return f.report()
}

func testParams(duration int) Params {
	return Params{
		Idea:       "Mobile espresso cart",
		Region:     "Portland",
		Population: 20_000,
		Sentiment:  0.65,
		Duration:   duration,
	}
}

func testEngine(t *testing.T, duration int, advisor Advisor) *Engine {
	t.Helper()
	cfg := Config{CheckpointInterval: 6, VisitsPerMonth: 2.5, Volatility: 0, Seed: 1}
	return New(testParams(duration), cfg, advisor, rand.New(rand.NewSource(1)))
}

func TestRun_AllAdvisoryCallsFail(t *testing.T) {
	advisor := &fakeAdvisor{} // every call errors
	eng := testEngine(t, 12, advisor)

	result, err := eng.Run(context.Background(), func(int) {})
	require.NoError(t, err, "advisory failures must not fail the run")

	// Fallback agents, untouched by startup synthesis.
	require.Len(t, result.State.Agents, 4)
	names := make([]string, 0, 4)
	for _, a := range result.State.Agents {
		names = append(names, a.Name)
		assert.NotEqual(t, market.RoleStartup, a.Role)
	}
	assert.Equal(t, []string{"Market Leader Inc", "Budget Solutions Co", "Innovation Labs", "Value Experts"}, names)

	// Fallback report.
	require.NotNil(t, result.Report)
	assert.Equal(t, 7.0, result.Report.FeasibilityScore)
	assert.Equal(t, "Review", result.Report.Verdict)

	assert.Equal(t, 12, result.State.Tick)
}

func TestRun_CheckpointFiring(t *testing.T) {
	cases := []struct {
		duration int
		want     int
	}{
		{6, 0},
		{12, 1},
		{24, 3},
	}
	for _, tc := range cases {
		advisor := &fakeAdvisor{}
		eng := testEngine(t, tc.duration, advisor)

		_, err := eng.Run(context.Background(), func(int) {})
		require.NoError(t, err)
		assert.Equal(t, tc.want, advisor.checkpoints, "duration %d", tc.duration)
	}
}

func TestRun_StartupAgentSynthesized(t *testing.T) {
	advisor := &fakeAdvisor{
		generate: func() (*advisory.GeneratedMarket, error) {
			return &advisory.GeneratedMarket{
				Agents: []market.Agent{
					{Name: "Grind House", Role: market.RoleIncumbent, BasePricing: 100, Quality: 0.9, BrandPower: 0.8, Budget: 50_000},
					{Name: "Cup & Go", Role: market.RoleCompetitor, BasePricing: 50, Quality: 0.5, BrandPower: 0.6, Budget: 30_000},
				},
				VisitsPerMonth: 3,
				Sentiment:      0.7,
			}, nil
		},
	}
	eng := testEngine(t, 6, advisor)

	result, err := eng.Run(context.Background(), func(int) {})
	require.NoError(t, err)
	require.Len(t, result.State.Agents, 3)

	var startup *market.Agent
	for i := range result.State.Agents {
		if result.State.Agents[i].Role == market.RoleStartup {
			startup = &result.State.Agents[i]
		}
	}
	require.NotNil(t, startup, "generated path synthesizes a startup agent")
	assert.Equal(t, "Your Venture (Mobile espresso cart)", startup.Name)
	assert.InDelta(t, 75.0, startup.BasePricing, 1e-9, "median pricing of the field")

	assert.Equal(t, 3.0, result.State.VisitsPerMonth)
}

func TestStartupNameTruncation(t *testing.T) {
	long := strings.Repeat("a", 60)
	got := startupName(long)
	assert.Equal(t, "Your Venture ("+strings.Repeat("a", 40)+")", got)

	// A multibyte rune straddling the cut must not be split.
	multibyte := strings.Repeat("a", 39) + "日本語"
	got = startupName(multibyte)
	assert.True(t, utf8.ValidString(got), "truncated name must stay valid UTF-8")
	assert.Equal(t, "Your Venture ("+strings.Repeat("a", 39)+")", got)

	assert.Equal(t, "Your Venture (short)", startupName("short"))
}

func TestRun_ProgressMonotonicAndComplete(t *testing.T) {
	advisor := &fakeAdvisor{}
	eng := testEngine(t, 24, advisor)

	var seen []int
	_, err := eng.Run(context.Background(), func(p int) { seen = append(seen, p) })
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, 5, seen[0])
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1], "progress at step %d", i)
	}
	for _, p := range seen {
		assert.GreaterOrEqual(t, p, 0)
		assert.LessOrEqual(t, p, 100)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	advisor := &fakeAdvisor{}
	eng := testEngine(t, 12, advisor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, func(int) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
