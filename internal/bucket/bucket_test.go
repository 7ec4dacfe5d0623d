// Package bucket_test contains unit tests for the token bucket admission
// primitive.
package bucket_test

import (
	"sync"
	"testing"
	"time"

	"admission.ratelimiter/internal/bucket"
)

// fakeClock is a manually advanced time source shared between a test and
// the bucket under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// TestCapacityBound verifies that exactly capacity requests are admitted
// within one window and the next one is denied.
func TestCapacityBound(t *testing.T) {
	b := bucket.New(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !b.TryConsume() {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if b.TryConsume() {
		t.Error("request 6 should be denied")
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("expected 0 tokens remaining, got %d", got)
	}
}

// TestWindowReset verifies the full reset at the window boundary: after a
// denial, once the interval has elapsed, the next request is admitted and
// the bucket holds capacity-1 tokens.
func TestWindowReset(t *testing.T) {
	clock := newFakeClock()
	b := bucket.NewWithClock(3, time.Minute, clock.Now)

	for i := 0; i < 3; i++ {
		if !b.TryConsume() {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if b.TryConsume() {
		t.Fatal("request past capacity should be denied")
	}

	// Still inside the window: no tokens come back early.
	clock.Advance(59 * time.Second)
	if b.TryConsume() {
		t.Error("request before the window boundary should be denied")
	}

	clock.Advance(2 * time.Second)
	if !b.TryConsume() {
		t.Error("request after the window boundary should be admitted")
	}
	if got := b.Remaining(); got != 2 {
		t.Errorf("expected capacity-1 = 2 tokens after the reset, got %d", got)
	}
}

// TestTokensNeverNegative verifies that repeated denials do not drive the
// counter below zero.
func TestTokensNeverNegative(t *testing.T) {
	b := bucket.New(1, time.Minute)
	b.TryConsume()
	for i := 0; i < 10; i++ {
		if b.TryConsume() {
			t.Fatal("exhausted bucket should deny")
		}
	}
	if got := b.Remaining(); got != 0 {
		t.Errorf("expected 0 tokens, got %d", got)
	}
}

// TestNoDoubleSpend verifies that with a single token, concurrent callers
// never both succeed.
func TestNoDoubleSpend(t *testing.T) {
	const callers = 32
	b := bucket.New(1, time.Minute)

	start := make(chan struct{})
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- b.TryConsume()
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != 1 {
		t.Errorf("expected exactly 1 admission, got %d", admitted)
	}
}

// TestConcurrentCapacityBound verifies the capacity bound holds when many
// callers race on the same bucket.
func TestConcurrentCapacityBound(t *testing.T) {
	const capacity = 50
	const callers = 200
	b := bucket.New(capacity, time.Minute)

	start := make(chan struct{})
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- b.TryConsume()
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != capacity {
		t.Errorf("expected exactly %d admissions, got %d", capacity, admitted)
	}
}

// TestRefillSingleWinner verifies that concurrent requests arriving at the
// window boundary see exactly one reset: admissions in the new window never
// exceed capacity.
func TestRefillSingleWinner(t *testing.T) {
	const capacity = 10
	const callers = 100
	clock := newFakeClock()
	b := bucket.NewWithClock(capacity, time.Minute, clock.Now)

	for i := 0; i < capacity; i++ {
		b.TryConsume()
	}
	clock.Advance(time.Minute + time.Second)

	start := make(chan struct{})
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- b.TryConsume()
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	admitted := 0
	for ok := range results {
		if ok {
			admitted++
		}
	}
	if admitted != capacity {
		t.Errorf("expected exactly %d admissions in the fresh window, got %d", capacity, admitted)
	}
}

// TestIdle verifies the staleness predicate used by the registry sweep.
func TestIdle(t *testing.T) {
	clock := newFakeClock()
	b := bucket.NewWithClock(5, time.Minute, clock.Now)

	if b.Idle(time.Minute) {
		t.Error("fresh bucket should not be idle")
	}

	clock.Advance(2 * time.Minute)
	if !b.Idle(time.Minute) {
		t.Error("untouched bucket past the TTL should be idle")
	}

	b.TryConsume()
	if b.Idle(time.Minute) {
		t.Error("a consume attempt should refresh the idle clock")
	}
}
