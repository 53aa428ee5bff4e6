package advisory

import (
	"log/slog"
	"sync"
	"time"
)

type breakerState uint8

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a consecutive-failure circuit breaker. After threshold failures
// in a row the circuit opens and calls fail fast with ErrUnavailable for the
// cool-down period; it then half-opens and the next success closes it again.
type Breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and stays open for cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Allow reports whether a call may proceed. While the circuit is open it
// returns ErrUnavailable; once the cool-down elapses the breaker half-opens
// and lets calls through again.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerOpen {
		if time.Since(b.openedAt) < b.cooldown {
			return ErrUnavailable
		}
		b.state = breakerHalfOpen
		slog.Debug("circuit breaker half-open")
	}
	return nil
}

// RecordSuccess resets the failure count and closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != breakerClosed {
		slog.Info("circuit breaker closed")
	}
	b.state = breakerClosed
	b.failures = 0
}

// RecordFailure counts a failure and opens the circuit at the threshold. A
// failure while half-open reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == breakerHalfOpen || b.failures >= b.threshold {
		if b.state != breakerOpen {
			slog.Warn("circuit breaker open", "failures", b.failures, "cooldown", b.cooldown)
		}
		b.state = breakerOpen
		b.openedAt = time.Now()
	}
}
