// File: core/metrics/gauge.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Gauge is a signed value that can go up and down: queue depth,
// active connections. Last write wins, which is fine for monitoring.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// NewGauge constructs an unregistered gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

// Set stores v.
func (g *Gauge) Set(v int64) { g.value.Store(v) }

// Inc increments the gauge by one.
func (g *Gauge) Inc() { g.value.Add(1) }

// Dec decrements the gauge by one.
func (g *Gauge) Dec() { g.value.Add(-1) }

// Get returns the current value.
func (g *Gauge) Get() int64 { return g.value.Load() }

// Name returns the metric family name.
func (g *Gauge) Name() string { return g.name }

// Serialize renders the gauge in Prometheus text format.
func (g *Gauge) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
	fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
	fmt.Fprintf(&sb, "%s %d\n", g.name, g.Get())
	return sb.String()
}
