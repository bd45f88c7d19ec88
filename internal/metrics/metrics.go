package metrics

import (
	"sync"
	"time"
)

// Package metrics provides a small instrumentation interface with a no-op
// default and an optional Prometheus-backed implementation.

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncDBOpTotal(op string, success bool)
	ObserveDBOpSeconds(op string, success bool, seconds float64)
	IncToolTotal(tool string, success bool)
	ObserveToolSeconds(tool string, success bool, seconds float64)
	IncStmtCacheHit(kind string)
	IncStmtCacheMiss(kind string)
	ObservePoolStats(inUse, idle int)
	// ObserveComparison counts computed similarity results by confidence tier.
	ObserveComparison(tier string)
	ObserveMatchCandidates(n int)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncDBOpTotal(string, bool)                {}
func (n *noopRecorder) ObserveDBOpSeconds(string, bool, float64) {}
func (n *noopRecorder) IncToolTotal(string, bool)                {}
func (n *noopRecorder) ObserveToolSeconds(string, bool, float64) {}
func (n *noopRecorder) IncStmtCacheHit(string)                   {}
func (n *noopRecorder) IncStmtCacheMiss(string)                  {}
func (n *noopRecorder) ObservePoolStats(int, int)                {}
func (n *noopRecorder) ObserveComparison(string)                 {}
func (n *noopRecorder) ObserveMatchCandidates(int)               {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation. A nil recorder
// restores the no-op default.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeOp is a helper to time DB operations.
func TimeOp(op string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncDBOpTotal(op, success)
		Default().ObserveDBOpSeconds(op, success, dur)
	}
}

// TimeTool is a helper to time tool handler operations.
func TimeTool(tool string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncToolTotal(tool, success)
		Default().ObserveToolSeconds(tool, success, dur)
	}
}

// Init installs the Prometheus recorder and serves /metrics and /healthz on
// addr when enabled. Failures leave the no-op recorder in place.
func Init(enabled bool, addr string) error {
	if !enabled {
		return nil
	}
	if addr == "" {
		addr = ":9090"
	}
	return enablePrometheus(addr)
}

// enablePrometheus is provided by build-tagged files.
