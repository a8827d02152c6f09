// File: core/metrics/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package metrics provides Counter, Gauge and Histogram primitives and a
// Registry that renders them in the Prometheus text exposition format.
// Writes are lock-free atomic operations; only the histogram sum and the registry
// itself take a mutex, and neither sits on an execution hot path.
package metrics
