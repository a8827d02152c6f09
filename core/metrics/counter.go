// File: core/metrics/counter.go
// Package metrics implements Prometheus-compatible metric primitives.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Counter is a monotonically increasing uint64.
// Relaxed atomic increments are sufficient for monitoring.
type Counter struct {
	name  string
	help  string
	value atomic.Uint64
}

// NewCounter constructs an unregistered counter. Most callers register
// through Registry.NewCounter instead.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// Inc increments the counter by one.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by delta.
func (c *Counter) Add(delta uint64) { c.value.Add(delta) }

// Get returns the current value.
func (c *Counter) Get() uint64 { return c.value.Load() }

// Name returns the metric family name.
func (c *Counter) Name() string { return c.name }

// Serialize renders the counter in Prometheus text format.
func (c *Counter) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", c.name, c.help)
	fmt.Fprintf(&sb, "# TYPE %s counter\n", c.name)
	fmt.Fprintf(&sb, "%s %d\n", c.name, c.Get())
	return sb.String()
}
