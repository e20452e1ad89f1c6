package ingest

import (
	"context"
	"sync/atomic"
	"time"
)

// DefaultMaxConcurrent is the default number of ingestions held in memory
// at once.
const DefaultMaxConcurrent = 5

// DefaultMaxWait is how long a caller waits for a free slot before the
// ingestion is rejected as busy.
const DefaultMaxWait = 30 * time.Second

// Limiter bounds concurrent ingestions. Every ingestion holds a whole file
// in memory, so the slot count caps peak memory use.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter returns a limiter with maxConcurrent slots. Non-positive
// arguments select the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits up to the limiter's max wait for a slot. It returns a Busy
// error when the wait expires and ctx.Err() when ctx ends first. A nil
// return must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return newError(KindBusy, nil, "no ingestion slot free after %s", l.maxWait)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of ingestions holding a slot.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Capacity returns the total number of slots.
func (l *Limiter) Capacity() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no ingestion holds a slot or ctx ends.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
