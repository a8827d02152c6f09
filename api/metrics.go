// Package api
// Author: momentics@gmail.com
//
// Minimal metric exposition contract. The registry serializes each
// registered metric into the Prometheus text format.

package api

// Metric is any named value family that can render itself as
// Prometheus text exposition lines.
type Metric interface {
	// Name returns the metric family name.
	Name() string
	// Serialize renders HELP, TYPE and value lines, LF-terminated.
	Serialize() string
}
