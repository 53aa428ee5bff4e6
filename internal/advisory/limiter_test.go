package advisory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenBucket_Capacity(t *testing.T) {
	assert.Equal(t, 2, NewTokenBucket(12).Capacity())
	assert.Equal(t, 1, NewTokenBucket(10).Capacity())
	// Tiny rates still get a one-token burst.
	assert.Equal(t, 1, NewTokenBucket(3).Capacity())
	assert.Equal(t, 1, NewTokenBucket(0).Capacity())
}

func TestTokenBucket_ImmediateAcquire(t *testing.T) {
	b := newTokenBucket(2, 100, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, b.Acquire(ctx, PriorityGeneration))
	require.NoError(t, b.Acquire(ctx, PriorityGeneration))
}

func TestTokenBucket_PriorityOrdering(t *testing.T) {
	// One token, very slow refill: the first acquire drains the bucket and
	// the rest queue. The high-priority waiter must be granted first.
	b := newTokenBucket(1, 20, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, b.Acquire(ctx, PriorityCheckpoint))

	var mu sync.Mutex
	var order []string

	var wg sync.WaitGroup
	start := func(name string, priority int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Acquire(ctx, priority); err != nil {
				t.Errorf("%s: %v", name, err)
				return
			}
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}()
	}

	start("low", PriorityCheckpoint)
	time.Sleep(20 * time.Millisecond) // make sure "low" is queued first
	start("high", PriorityReport)
	time.Sleep(20 * time.Millisecond)

	wg.Wait()

	require.Len(t, order, 2)
	assert.Equal(t, "high", order[0], "higher priority should be granted first")
}

func TestTokenBucket_GrantSpacing(t *testing.T) {
	spacing := 30 * time.Millisecond
	b := newTokenBucket(3, 1000, spacing)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, b.Acquire(ctx, PriorityGeneration))

	// Subsequent grants go through the queue and must respect spacing.
	begin := time.Now()
	require.NoError(t, b.Acquire(ctx, PriorityGeneration))
	require.NoError(t, b.Acquire(ctx, PriorityGeneration))
	elapsed := time.Since(begin)

	assert.GreaterOrEqual(t, elapsed, spacing,
		"two queued grants should take at least one spacing window")
}

func TestTokenBucket_AcquireCancellation(t *testing.T) {
	b := newTokenBucket(1, 0.001, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Acquire(ctx, PriorityGeneration))

	shortCtx, shortCancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer shortCancel()

	err := b.Acquire(shortCtx, PriorityGeneration)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
