package advisory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// Caller abstracts the raw advisory client so tests can substitute a fake.
type Caller interface {
	Complete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
}

// GatewayConfig tunes the resilience stack.
type GatewayConfig struct {
	RPM              int
	MaxRetries       int
	RetryBase        time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// DefaultGatewayConfig matches the production tuning: ~12 requests/minute,
// three retries, breaker at five consecutive failures.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RPM:              12,
		MaxRetries:       3,
		RetryBase:        2 * time.Second,
		BreakerThreshold: 5,
		BreakerCooldown:  30 * time.Second,
	}
}

// Gateway mediates every advisory call with the combined rate limiter,
// retry/backoff, and circuit breaker policies. One Gateway is shared by all
// concurrently running jobs — that sharing is the point: rate limiting must
// be centralized, not per-job.
type Gateway struct {
	client     Caller
	limiter    *TokenBucket
	breaker    *Breaker
	maxRetries int
	retryBase  time.Duration
	jitter     func(max time.Duration) time.Duration
}

// NewGateway wraps client with the resilience stack.
func NewGateway(client Caller, cfg GatewayConfig) *Gateway {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Gateway{
		client:     client,
		limiter:    NewTokenBucket(cfg.RPM),
		breaker:    NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
		jitter: func(max time.Duration) time.Duration {
			if max <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(max)))
		},
	}
}

// Call issues one prompt through the stack and returns the raw response
// text. Rate-limit failures are retried with exponential backoff plus
// jitter; client-class errors are not retried; everything else retries until
// attempts are exhausted. While the circuit is open it fails fast with
// ErrUnavailable.
func (g *Gateway) Call(ctx context.Context, system, prompt string, maxTokens, priority int) (string, error) {
	if err := g.breaker.Allow(); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			delay := g.retryBase*time.Duration(1<<(attempt-1)) + g.jitter(g.retryBase/2)
			slog.Debug("advisory retry", "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := g.limiter.Acquire(ctx, priority); err != nil {
			return "", fmt.Errorf("acquire token: %w", err)
		}

		text, err := g.client.Complete(ctx, system, prompt, maxTokens)
		if err == nil {
			g.breaker.RecordSuccess()
			return text, nil
		}
		lastErr = err

		// Malformed-request class failures won't improve on retry.
		var ce *ClientError
		if errors.As(err, &ce) {
			g.breaker.RecordFailure()
			return "", err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		if !errors.Is(err, ErrRateLimited) {
			slog.Debug("advisory call failed", "attempt", attempt, "error", err)
		}
	}

	g.breaker.RecordFailure()
	return "", fmt.Errorf("advisory call after %d attempts: %w", g.maxRetries+1, lastErr)
}
