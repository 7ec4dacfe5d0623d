// Package api assembles the request-admission gate from its parts: client
// identification, path classification, and the bucket registry.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"admission.ratelimiter/config"
	"admission.ratelimiter/internal/identity"
	"admission.ratelimiter/internal/policy"
	"admission.ratelimiter/internal/registry"
	"admission.ratelimiter/metrics"
)

// Gate is the admission check invoked once per inbound request. It owns its
// registry and configuration; independent gates never share state, so tests
// and multi-tenant setups construct one each.
type Gate struct {
	resolver   identity.Resolver
	classifier *policy.Classifier
	registry   *registry.Registry
	metrics    *metrics.AdmissionMetrics
}

// NewGate builds a Gate from configuration, registering its collectors
// with promReg.
func NewGate(cfg config.Config, promReg prometheus.Registerer) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid gate configuration: %w", err)
	}

	resolver, err := identity.FromName(cfg.Identity.Strategy)
	if err != nil {
		return nil, err
	}

	bindings := make(map[string]policy.Class)
	for _, cc := range cfg.Classes {
		class := toClass(cc)
		for _, prefix := range cc.PathPrefixes {
			bindings[prefix] = class
		}
		log.Info().
			Str("policy", class.Name).
			Int64("capacity", class.Capacity).
			Dur("interval", class.Interval).
			Strs("path_prefixes", cc.PathPrefixes).
			Msg("Gate: policy class configured")
	}
	classifier := policy.NewClassifier(bindings, toClass(cfg.General))

	var m *metrics.AdmissionMetrics
	reg := registry.New(registry.Config{
		TTL:            time.Duration(cfg.Registry.TTLSeconds) * time.Second,
		SweepThreshold: cfg.Registry.SweepThreshold,
		SweepEvery:     uint64(cfg.Registry.SweepEvery),
		OnSweep:        func(removed int) { m.RecordSwept(removed) },
	})
	m = metrics.New(promReg, func() float64 { return float64(reg.Len()) })

	return &Gate{
		resolver:   resolver,
		classifier: classifier,
		registry:   reg,
		metrics:    m,
	}, nil
}

// NewGateFromConfigPath loads a YAML config file and builds a Gate on the
// default Prometheus registry.
func NewGateFromConfigPath(path string) (*Gate, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	return NewGate(*cfg, prometheus.DefaultRegisterer)
}

// Admit decides whether the request may proceed. It never fails: an
// unidentifiable client degrades to a shared fallback key and remains
// subject to a bucket.
func (g *Gate) Admit(r *http.Request) bool {
	clientKey := g.resolver.ClientKey(r)
	class := g.classifier.Classify(r.URL.Path)

	allowed := g.registry.GetOrCreate(clientKey, class).TryConsume()
	g.metrics.RecordRequest(class.Name, allowed)
	if !allowed {
		log.Warn().
			Str("client_key", clientKey).
			Str("policy", class.Name).
			Str("path", r.URL.Path).
			Msg("Gate: rate limit exceeded")
	}
	return allowed
}

func toClass(cc config.ClassConfig) policy.Class {
	return policy.Class{
		Name:     cc.Name,
		Capacity: cc.Capacity,
		Interval: time.Duration(cc.IntervalSeconds) * time.Second,
	}
}
