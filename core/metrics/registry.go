// File: core/metrics/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registry owns all registered metrics and renders the full exposition
// page. Metrics are never removed, so the references it hands out stay
// valid for the registry's lifetime.

package metrics

import (
	"sync"

	"github.com/momentics/taskring/api"
)

// Ensure compile-time interface compliance.
var (
	_ api.Metric = (*Counter)(nil)
	_ api.Metric = (*Gauge)(nil)
	_ api.Metric = (*Histogram)(nil)
)

// Registry owns Counters, Gauges and Histograms by strong reference and
// serializes them in registration order, counters first, then gauges,
// then histograms.
type Registry struct {
	mu         sync.Mutex
	counters   []*Counter
	gauges     []*Gauge
	histograms []*Histogram
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewCounter registers and returns a counter.
func (r *Registry) NewCounter(name, help string) *Counter {
	c := NewCounter(name, help)
	r.mu.Lock()
	r.counters = append(r.counters, c)
	r.mu.Unlock()
	return c
}

// NewGauge registers and returns a gauge.
func (r *Registry) NewGauge(name, help string) *Gauge {
	g := NewGauge(name, help)
	r.mu.Lock()
	r.gauges = append(r.gauges, g)
	r.mu.Unlock()
	return g
}

// NewHistogram registers and returns a histogram. Nil buckets selects
// DefaultBuckets.
func (r *Registry) NewHistogram(name, help string, buckets []float64) *Histogram {
	h := NewHistogram(name, help, buckets)
	r.mu.Lock()
	r.histograms = append(r.histograms, h)
	r.mu.Unlock()
	return h
}

// Serialize renders every registered metric in Prometheus text format.
// This is the exact body the HTTP /metrics endpoint returns.
func (r *Registry) Serialize() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb []byte
	for _, c := range r.counters {
		sb = append(sb, c.Serialize()...)
		sb = append(sb, '\n')
	}
	for _, g := range r.gauges {
		sb = append(sb, g.Serialize()...)
		sb = append(sb, '\n')
	}
	for _, h := range r.histograms {
		sb = append(sb, h.Serialize()...)
		sb = append(sb, '\n')
	}
	return string(sb)
}
