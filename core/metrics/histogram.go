// File: core/metrics/histogram.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Histogram tracks a latency distribution over fixed upper bucket bounds.
// Bucket counts are cumulative, Prometheus style: an observation increments
// every bucket whose bound covers it plus the implicit +Inf bucket.

package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets returns the default upper bounds in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}
}

// Histogram is a fixed-bucket latency histogram.
//
// Bucket counts and the total count are relaxed atomics. The sum is a
// float64 guarded by a mutex: floating-point fetch-add is not available
// as an atomic primitive.
type Histogram struct {
	name    string
	help    string
	buckets []float64

	counts []atomic.Uint64 // one per bucket, last is +Inf
	count  atomic.Uint64

	sumMu sync.Mutex
	sum   float64
}

// NewHistogram constructs an unregistered histogram. Bounds are sorted;
// nil buckets selects DefaultBuckets.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if buckets == nil {
		buckets = DefaultBuckets()
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	return &Histogram{
		name:    name,
		help:    help,
		buckets: bounds,
		counts:  make([]atomic.Uint64, len(bounds)+1),
	}
}

// Observe records a value in seconds.
func (h *Histogram) Observe(seconds float64) {
	for i, bound := range h.buckets {
		if seconds <= bound {
			h.counts[i].Add(1)
		}
	}
	h.counts[len(h.counts)-1].Add(1) // +Inf

	h.sumMu.Lock()
	h.sum += seconds
	h.sumMu.Unlock()

	h.count.Add(1)
}

// ObserveSince records the elapsed wall-clock time since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 { return h.count.Load() }

// Sum returns the sum of observed values.
func (h *Histogram) Sum() float64 {
	h.sumMu.Lock()
	defer h.sumMu.Unlock()
	return h.sum
}

// Name returns the metric family name.
func (h *Histogram) Name() string { return h.name }

// Serialize renders the histogram in Prometheus text format: one
// _bucket line per bound including +Inf, then _sum and _count.
func (h *Histogram) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
	fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
	for i, bound := range h.buckets {
		fmt.Fprintf(&sb, "%s_bucket{le=%q} %d\n",
			h.name, formatFloat(bound), h.counts[i].Load())
	}
	fmt.Fprintf(&sb, "%s_bucket{le=\"+Inf\"} %d\n",
		h.name, h.counts[len(h.counts)-1].Load())
	fmt.Fprintf(&sb, "%s_sum %s\n", h.name, formatFloat(h.Sum()))
	fmt.Fprintf(&sb, "%s_count %d\n", h.name, h.count.Load())
	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
