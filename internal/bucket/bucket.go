// Package bucket implements the per-client token bucket admission primitive.
//
// The bucket is fixed-window: tokens reset to full capacity once the refill
// interval has elapsed, rather than trickling in proportionally. A client
// that drains its budget early in a window waits for the boundary, then
// immediately receives the full capacity again. This admits bursts of up to
// twice the capacity across a window boundary, an accepted trade-off for a
// lock-free implementation.
package bucket

import (
	"sync/atomic"
	"time"
)

// Bucket holds the admission state for a single client under one policy
// class. All mutable fields are manipulated with atomic operations only;
// a Bucket is safe for concurrent use without external locking.
type Bucket struct {
	tokens     int64 // remaining tokens in the current window
	lastRefill int64 // unix nanos of the current window start
	lastAccess int64 // unix nanos of the last consume attempt

	capacity int64
	interval time.Duration
	now      func() time.Time
}

// New creates a full bucket granting capacity tokens per interval.
func New(capacity int64, interval time.Duration) *Bucket {
	return NewWithClock(capacity, interval, nil)
}

// NewWithClock is New with an injectable time source. A nil clock means
// time.Now.
func NewWithClock(capacity int64, interval time.Duration, clock func() time.Time) *Bucket {
	if clock == nil {
		clock = time.Now
	}
	now := clock().UnixNano()
	return &Bucket{
		tokens:     capacity,
		lastRefill: now,
		lastAccess: now,
		capacity:   capacity,
		interval:   interval,
		now:        clock,
	}
}

// TryConsume admits or rejects one request. It refreshes the window if the
// refill interval has elapsed, then attempts to take a single token. Under
// concurrent callers at most one succeeds per remaining token; the counter
// never goes negative.
func (b *Bucket) TryConsume() bool {
	b.refillIfNeeded()
	atomic.StoreInt64(&b.lastAccess, b.now().UnixNano())

	for {
		remaining := atomic.LoadInt64(&b.tokens)
		if remaining <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.tokens, remaining, remaining-1) {
			return true
		}
	}
}

// refillIfNeeded resets the bucket to full capacity when the current window
// has expired. The CAS on the refill timestamp elects a single winner at the
// boundary; losers observe the advanced timestamp and consume against the
// fresh window.
func (b *Bucket) refillIfNeeded() {
	now := b.now().UnixNano()
	last := atomic.LoadInt64(&b.lastRefill)
	if now-last < int64(b.interval) {
		return
	}
	if atomic.CompareAndSwapInt64(&b.lastRefill, last, now) {
		atomic.StoreInt64(&b.tokens, b.capacity)
	}
}

// Remaining reports the tokens left in the current window. The value is a
// snapshot and may change immediately under concurrent consumers.
func (b *Bucket) Remaining() int64 {
	b.refillIfNeeded()
	return atomic.LoadInt64(&b.tokens)
}

// Capacity returns the maximum tokens grantable per window.
func (b *Bucket) Capacity() int64 {
	return b.capacity
}

// Idle reports whether the bucket has seen no consume attempt within ttl.
func (b *Bucket) Idle(ttl time.Duration) bool {
	return b.now().UnixNano()-atomic.LoadInt64(&b.lastAccess) > int64(ttl)
}
