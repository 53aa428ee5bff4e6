package advisory

import (
	"container/heap"
	"context"
	"math"
	"sync"
	"time"
)

// Acquisition priorities. Higher values are served first when callers queue
// for a token; ties break FIFO.
const (
	PriorityCheckpoint = 1
	PriorityGeneration = 2
	PriorityReport     = 3
)

// TokenBucket is the process-wide rate limiter shared by every running job.
// Tokens refill continuously; when none is available, Acquire parks the
// caller in a priority-ordered queue. Grants are additionally spaced so a
// full bucket cannot be drained in a single instant.
type TokenBucket struct {
	mu           sync.Mutex
	tokens       float64
	capacity     float64
	refillPerSec float64
	lastRefill   time.Time
	minSpacing   time.Duration
	lastGrant    time.Time
	waiters      waiterHeap
	seq          uint64
	timer        *time.Timer
}

// NewTokenBucket creates a limiter for roughly rpm requests per minute:
// burst capacity max(1, rpm/6), refill rpm/60 tokens per second.
func NewTokenBucket(rpm int) *TokenBucket {
	if rpm < 1 {
		rpm = 1
	}
	capacity := rpm / 6
	if capacity < 1 {
		capacity = 1
	}
	return newTokenBucket(float64(capacity), float64(rpm)/60.0, time.Minute/time.Duration(rpm*2))
}

func newTokenBucket(capacity, refillPerSec float64, minSpacing time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:       capacity,
		capacity:     capacity,
		refillPerSec: refillPerSec,
		lastRefill:   time.Now(),
		minSpacing:   minSpacing,
	}
}

// Capacity returns the burst capacity of the bucket.
func (b *TokenBucket) Capacity() int {
	return int(b.capacity)
}

// Acquire blocks until a token is granted or ctx is done. Queued waiters are
// served by descending priority as tokens refill.
func (b *TokenBucket) Acquire(ctx context.Context, priority int) error {
	b.mu.Lock()
	now := time.Now()
	b.refillLocked(now)
	if len(b.waiters) == 0 && b.tokens >= 1 && b.spacingOKLocked(now) {
		b.grantLocked(now)
		b.mu.Unlock()
		return nil
	}

	w := &waiter{priority: priority, seq: b.seq, ready: make(chan struct{})}
	b.seq++
	heap.Push(&b.waiters, w)
	b.scheduleLocked()
	b.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		b.mu.Lock()
		defer b.mu.Unlock()
		select {
		case <-w.ready:
			// Granted while we were cancelling; keep the token.
			return nil
		default:
		}
		if w.index >= 0 {
			heap.Remove(&b.waiters, w.index)
		}
		return ctx.Err()
	}
}

func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillPerSec)
	b.lastRefill = now
}

func (b *TokenBucket) spacingOKLocked(now time.Time) bool {
	return b.lastGrant.IsZero() || now.Sub(b.lastGrant) >= b.minSpacing
}

func (b *TokenBucket) grantLocked(now time.Time) {
	b.tokens--
	b.lastGrant = now
}

// scheduleLocked arms the dispatch timer for the earliest moment the next
// grant could happen (token refill or spacing window, whichever is later).
func (b *TokenBucket) scheduleLocked() {
	if len(b.waiters) == 0 {
		return
	}
	now := time.Now()
	var wait time.Duration
	if b.tokens < 1 {
		need := (1 - b.tokens) / b.refillPerSec
		wait = time.Duration(need * float64(time.Second))
	}
	if !b.lastGrant.IsZero() {
		if sp := b.minSpacing - now.Sub(b.lastGrant); sp > wait {
			wait = sp
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(wait, b.dispatch)
}

func (b *TokenBucket) dispatch() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.refillLocked(now)
	// With a non-zero spacing this grants at most once per wake; the
	// rescheduled timer picks up the remaining waiters.
	for len(b.waiters) > 0 && b.tokens >= 1 && b.spacingOKLocked(now) {
		w := heap.Pop(&b.waiters).(*waiter)
		b.grantLocked(now)
		close(w.ready)
	}
	b.scheduleLocked()
}

type waiter struct {
	priority int
	seq      uint64
	index    int
	ready    chan struct{}
}

// waiterHeap orders waiters by descending priority, FIFO within a priority.
type waiterHeap []*waiter

func (h waiterHeap) Len() int { return len(h) }

func (h waiterHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h waiterHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waiterHeap) Push(x any) {
	w := x.(*waiter)
	w.index = len(*h)
	*h = append(*h, w)
}

func (h *waiterHeap) Pop() any {
	old := *h
	n := len(old)
	w := old[n-1]
	w.index = -1
	old[n-1] = nil
	*h = old[:n-1]
	return w
}
