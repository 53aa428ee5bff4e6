// Package jobs owns the asynchronous simulation job lifecycle: validation,
// record creation, background execution, and status reads.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/talgya/echelon/internal/config"
	"github.com/talgya/echelon/internal/sim"
	"github.com/talgya/echelon/internal/store"
)

// ValidationError rejects a creation request before any record is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CreateRequest is the raw job-creation payload. Pointer fields distinguish
// "absent, use the default" from an explicit zero.
type CreateRequest struct {
	Idea       string   `json:"idea"`
	Region     string   `json:"region"`
	Population *float64 `json:"population,omitempty"`
	Sentiment  *float64 `json:"sentiment,omitempty"`
	Duration   *int     `json:"duration,omitempty"`
}

// Manager creates and runs simulation jobs. Each job executes on its own
// goroutine, gated by a weighted semaphore so a burst of creations cannot
// saturate the process.
type Manager struct {
	records store.RecordStore
	advisor sim.Advisor
	simCfg  config.Sim
	limits  config.Limits
	sem     *semaphore.Weighted

	mu      sync.Mutex
	workers map[string]*worker
}

// worker tracks one running job so callers can wait on it or cancel it.
type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager wires the manager. The store and advisor are shared across all
// jobs.
func NewManager(records store.RecordStore, advisor sim.Advisor, simCfg config.Sim, limits config.Limits) *Manager {
	if simCfg.MaxConcurrentJobs < 1 {
		simCfg.MaxConcurrentJobs = 1
	}
	return &Manager{
		records: records,
		advisor: advisor,
		simCfg:  simCfg,
		limits:  limits,
		sem:     semaphore.NewWeighted(simCfg.MaxConcurrentJobs),
		workers: make(map[string]*worker),
	}
}

// Create validates the request, persists a PENDING record, and starts the
// simulation in the background. It returns the new record immediately.
func (m *Manager) Create(req CreateRequest) (*store.Record, error) {
	params, err := m.validate(req)
	if err != nil {
		return nil, err
	}

	rec := &store.Record{
		ID:        uuid.NewString(),
		Status:    store.StatusPending,
		Progress:  0,
		Idea:      params.Idea,
		Region:    params.Region,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.records.Create(rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{cancel: cancel, done: make(chan struct{})}
	m.mu.Lock()
	m.workers[rec.ID] = w
	m.mu.Unlock()

	go m.run(ctx, rec.ID, params, w)

	slog.Info("job created", "id", rec.ID, "region", params.Region, "months", params.Duration)
	return rec, nil
}

// validate trims, bounds-checks, and fills defaults. Required fields reject;
// optional fields clamp silently into range.
func (m *Manager) validate(req CreateRequest) (sim.Params, error) {
	idea := strings.TrimSpace(req.Idea)
	if idea == "" {
		return sim.Params{}, &ValidationError{Field: "idea", Reason: "must not be empty"}
	}
	if len(idea) > m.limits.IdeaMaxLen {
		return sim.Params{}, &ValidationError{Field: "idea", Reason: fmt.Sprintf("exceeds %d characters", m.limits.IdeaMaxLen)}
	}

	region := strings.TrimSpace(req.Region)
	if region == "" {
		return sim.Params{}, &ValidationError{Field: "region", Reason: "must not be empty"}
	}
	if len(region) > m.limits.RegionMaxLen {
		return sim.Params{}, &ValidationError{Field: "region", Reason: fmt.Sprintf("exceeds %d characters", m.limits.RegionMaxLen)}
	}

	population := m.limits.PopulationDefault
	if req.Population != nil && !math.IsNaN(*req.Population) && !math.IsInf(*req.Population, 0) {
		population = clampFloat(*req.Population, m.limits.PopulationMin, m.limits.PopulationMax)
	}

	sentiment := m.limits.SentimentDefault
	if req.Sentiment != nil && !math.IsNaN(*req.Sentiment) && !math.IsInf(*req.Sentiment, 0) {
		sentiment = clampFloat(*req.Sentiment, 0, 1)
	}

	duration := m.limits.DurationDefault
	if req.Duration != nil {
		duration = clampInt(*req.Duration, m.limits.DurationMin, m.limits.DurationMax)
	}

	return sim.Params{
		Idea:       idea,
		Region:     region,
		Population: population,
		Sentiment:  sentiment,
		Duration:   duration,
	}, nil
}

// run executes one job to a terminal state. A panicking engine marks the
// job FAILED instead of crashing the process.
func (m *Manager) run(ctx context.Context, id string, params sim.Params, w *worker) {
	defer close(w.done)
	defer func() {
		m.mu.Lock()
		delete(m.workers, id)
		m.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("job panicked", "id", id, "panic", r)
			m.fail(id, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.fail(id, "cancelled before start")
		return
	}
	defer m.sem.Release(1)

	m.transition(id, store.StatusRunning)

	seed := time.Now().UnixNano()
	engine := sim.New(params, sim.Config{
		CheckpointInterval: m.simCfg.CheckpointInterval,
		VisitsPerMonth:     m.simCfg.VisitsPerMonth,
		Volatility:         m.simCfg.Volatility,
		Seed:               seed,
	}, m.advisor, rand.New(rand.NewSource(seed)))

	result, err := engine.Run(ctx, func(p int) { m.setProgress(id, p) })
	if err != nil {
		slog.Warn("job failed", "id", id, "error", err)
		m.fail(id, err.Error())
		return
	}

	m.complete(id, result)
}

// Get returns the record for id.
func (m *Manager) Get(id string) (*store.Record, error) {
	return m.records.Get(id)
}

// Cancel stops a running job. It is a no-op for ids with no active worker.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	w, ok := m.workers[id]
	m.mu.Unlock()
	if ok {
		w.cancel()
	}
}

// Wait blocks until the job's worker goroutine exits. Records for unknown
// or already finished ids return immediately.
func (m *Manager) Wait(id string) {
	m.mu.Lock()
	w, ok := m.workers[id]
	m.mu.Unlock()
	if ok {
		<-w.done
	}
}

// Shutdown cancels all running jobs and waits for their workers to exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	active := make([]*worker, 0, len(m.workers))
	for _, w := range m.workers {
		w.cancel()
		active = append(active, w)
	}
	m.mu.Unlock()

	for _, w := range active {
		<-w.done
	}
}

// setProgress advances the progress counter. Progress never moves backwards
// and never reaches 100 through a callback; only the COMPLETED transition
// writes 100, so pollers can treat full progress as finished.
func (m *Manager) setProgress(id string, p int) {
	if p > 99 {
		p = 99
	}
	rec, err := m.records.Get(id)
	if err != nil {
		return
	}
	if rec.Status.Terminal() || p <= rec.Progress {
		return
	}
	rec.Progress = p
	if err := m.records.Update(rec); err != nil {
		slog.Warn("progress update failed", "id", id, "error", err)
	}
}

func (m *Manager) transition(id string, status store.Status) {
	rec, err := m.records.Get(id)
	if err != nil {
		return
	}
	rec.Status = status
	if err := m.records.Update(rec); err != nil {
		slog.Warn("status update failed", "id", id, "error", err)
	}
}

func (m *Manager) complete(id string, result *sim.Result) {
	rec, err := m.records.Get(id)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	rec.Status = store.StatusCompleted
	rec.Progress = 100
	rec.CompletedAt = &now
	rec.MarketState = result.State
	rec.Report = result.Report
	if err := m.records.Update(rec); err != nil {
		slog.Error("completion update failed", "id", id, "error", err)
		return
	}
	slog.Info("job completed", "id", id, "ticks", result.State.Tick)
}

// fail marks the job FAILED. Progress is capped at 99 so a failed job can
// never read as finished.
func (m *Manager) fail(id string, msg string) {
	rec, err := m.records.Get(id)
	if err != nil {
		return
	}
	now := time.Now().UTC()
	rec.Status = store.StatusFailed
	rec.CompletedAt = &now
	rec.Error = msg
	if rec.Progress > 99 {
		rec.Progress = 99
	}
	if err := m.records.Update(rec); err != nil {
		slog.Error("failure update failed", "id", id, "error", err)
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
