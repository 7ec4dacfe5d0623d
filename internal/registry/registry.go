// Package registry owns the population of token buckets, keyed by policy
// class and client identity.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"admission.ratelimiter/internal/bucket"
	"admission.ratelimiter/internal/policy"
)

// Default sweep tuning, matching the construction-time configuration
// surface: buckets idle past TTL are removed, but only once the registry
// has grown past SweepThreshold entries, and only every SweepEvery lookups.
const (
	DefaultTTL            = 5 * time.Minute
	DefaultSweepThreshold = 1000
	DefaultSweepEvery     = 64
)

// Config tunes a Registry. Zero values fall back to the defaults above.
type Config struct {
	// TTL is how long a bucket may go untouched before a sweep removes it.
	TTL time.Duration
	// SweepThreshold is the registry size below which sweeps never run.
	SweepThreshold int
	// SweepEvery is the lookup-count modulus gating opportunistic sweeps.
	SweepEvery uint64
	// Clock overrides the time source for the registry's buckets.
	Clock func() time.Time
	// OnSweep, if set, is invoked with the number of buckets each sweep
	// removed (only for sweeps that removed at least one).
	OnSweep func(removed int)
}

// Registry maps (policy class, client key) to a bucket. Lookups and inserts
// are lock-free on the hot path; eviction runs opportunistically and never
// per request.
type Registry struct {
	buckets  sync.Map // string -> *bucket.Bucket
	size     int64
	ops      uint64
	sweeping int32

	cfg Config
}

// New creates an empty Registry.
func New(cfg Config) *Registry {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepThreshold <= 0 {
		cfg.SweepThreshold = DefaultSweepThreshold
	}
	if cfg.SweepEvery == 0 {
		cfg.SweepEvery = DefaultSweepEvery
	}
	return &Registry{cfg: cfg}
}

// GetOrCreate returns the bucket for the given client under the given
// policy class, creating a full one on first sight. Racing first requests
// for the same key converge on a single bucket: the insert is a LoadOrStore,
// so losers adopt the winner's instance and the extra allocation is
// discarded.
func (r *Registry) GetOrCreate(clientKey string, class policy.Class) *bucket.Bucket {
	key := class.Name + ":" + clientKey

	if v, ok := r.buckets.Load(key); ok {
		r.maybeSweep()
		return v.(*bucket.Bucket)
	}

	fresh := bucket.NewWithClock(class.Capacity, class.Interval, r.cfg.Clock)
	v, loaded := r.buckets.LoadOrStore(key, fresh)
	if !loaded {
		atomic.AddInt64(&r.size, 1)
		log.Debug().
			Str("client_key", clientKey).
			Str("policy", class.Name).
			Int64("capacity", class.Capacity).
			Msg("Registry: created bucket")
	}
	r.maybeSweep()
	return v.(*bucket.Bucket)
}

// Len reports the number of live buckets.
func (r *Registry) Len() int {
	return int(atomic.LoadInt64(&r.size))
}

// maybeSweep triggers an eviction pass on a coarse lookup-count modulus,
// and only once the registry has outgrown its threshold. Ordinary requests
// therefore never pay O(registry size).
func (r *Registry) maybeSweep() {
	if atomic.AddUint64(&r.ops, 1)%r.cfg.SweepEvery != 0 {
		return
	}
	if atomic.LoadInt64(&r.size) <= int64(r.cfg.SweepThreshold) {
		return
	}
	r.Sweep()
}

// Sweep removes every bucket idle past the TTL and returns how many were
// removed. At most one sweep runs at a time; concurrent GetOrCreate and
// TryConsume traffic is unaffected — an in-flight caller's bucket reference
// stays valid even if swept, and the client's next request simply creates a
// fresh bucket.
func (r *Registry) Sweep() int {
	if !atomic.CompareAndSwapInt32(&r.sweeping, 0, 1) {
		return 0
	}
	defer atomic.StoreInt32(&r.sweeping, 0)

	removed := 0
	r.buckets.Range(func(key, v interface{}) bool {
		if v.(*bucket.Bucket).Idle(r.cfg.TTL) {
			r.buckets.Delete(key)
			atomic.AddInt64(&r.size, -1)
			removed++
		}
		return true
	})
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("live", r.Len()).Msg("Registry: swept stale buckets")
		if r.cfg.OnSweep != nil {
			r.cfg.OnSweep(removed)
		}
	}
	return removed
}
