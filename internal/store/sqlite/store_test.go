package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/echelon/internal/advisory"
	"github.com/talgya/echelon/internal/market"
	"github.com/talgya/echelon/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Create(&store.Record{
		ID:        "job-1",
		Status:    store.StatusPending,
		Idea:      "Mobile espresso cart",
		Region:    "Portland",
		CreatedAt: created,
	}))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", got.ID)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, "Mobile espresso cart", got.Idea)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.MarketState)
	assert.Nil(t, got.Report)
}

func TestCreateDuplicate(t *testing.T) {
	s := openTestStore(t)
	rec := &store.Record{ID: "job-1", Status: store.StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Create(rec))
	assert.ErrorIs(t, s.Create(rec), store.ErrDuplicateID)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateCompletedJob(t *testing.T) {
	s := openTestStore(t)

	rec := &store.Record{ID: "job-1", Status: store.StatusRunning, Progress: 50, CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Create(rec))

	agents, err := market.PrepareAgents(market.FallbackAgents())
	require.NoError(t, err)
	state := market.NewState("Portland", agents, 20_000, 0.65, 2.5, 0, 12)
	done := time.Now().UTC()

	rec.Status = store.StatusCompleted
	rec.Progress = 100
	rec.CompletedAt = &done
	rec.MarketState = state
	rec.Report = advisory.FallbackReport()
	require.NoError(t, s.Update(rec))

	got, err := s.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.MarketState)
	assert.Len(t, got.MarketState.Agents, 4)
	assert.Equal(t, "Portland", got.MarketState.Region)
	require.NotNil(t, got.Report)
	assert.Equal(t, "Review", got.Report.Verdict)
}

func TestUpdateMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.Update(&store.Record{ID: "ghost", Status: store.StatusFailed, CreatedAt: time.Now().UTC()})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "persist.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Create(&store.Record{
		ID:        "job-1",
		Status:    store.StatusCompleted,
		Progress:  100,
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}
