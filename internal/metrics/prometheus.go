//go:build !noprom

package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	dbTotal     *prom.CounterVec
	dbSeconds   *prom.HistogramVec
	toolTotal   *prom.CounterVec
	toolSeconds *prom.HistogramVec
	stmtCache   *prom.CounterVec
	poolConns   *prom.GaugeVec
	comparisons *prom.CounterVec
	candidates  prom.Histogram
}

func (p *promRecorder) IncDBOpTotal(op string, success bool) {
	p.dbTotal.WithLabelValues(op, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveDBOpSeconds(op string, success bool, seconds float64) {
	p.dbSeconds.WithLabelValues(op, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncStmtCacheHit(kind string) {
	p.stmtCache.WithLabelValues(kind, "hit").Inc()
}

func (p *promRecorder) IncStmtCacheMiss(kind string) {
	p.stmtCache.WithLabelValues(kind, "miss").Inc()
}

func (p *promRecorder) ObservePoolStats(inUse, idle int) {
	p.poolConns.WithLabelValues("in_use").Set(float64(inUse))
	p.poolConns.WithLabelValues("idle").Set(float64(idle))
}

func (p *promRecorder) ObserveComparison(tier string) {
	p.comparisons.WithLabelValues(tier).Inc()
}

func (p *promRecorder) ObserveMatchCandidates(n int) {
	p.candidates.Observe(float64(n))
}

func newPromRecorder(registry prom.Registerer) *promRecorder {
	p := &promRecorder{
		dbTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "db_ops_total",
			Help: "Total number of DB operations",
		}, []string{"op", "success"}),
		dbSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "db_op_seconds",
			Help:    "DB operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total number of tool handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		stmtCache: prom.NewCounterVec(prom.CounterOpts{
			Name: "stmt_cache_total",
			Help: "Prepared statement cache lookups",
		}, []string{"kind", "result"}),
		poolConns: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Database pool connections by state",
		}, []string{"state"}),
		comparisons: prom.NewCounterVec(prom.CounterOpts{
			Name: "similarity_comparisons_total",
			Help: "Profile comparisons by confidence tier",
		}, []string{"confidence"}),
		candidates: prom.NewHistogram(prom.HistogramOpts{
			Name:    "match_candidates",
			Help:    "Candidates compared per matching run",
			Buckets: prom.ExponentialBuckets(1, 2, 10),
		}),
	}
	registry.MustRegister(p.dbTotal, p.dbSeconds, p.toolTotal, p.toolSeconds,
		p.stmtCache, p.poolConns, p.comparisons, p.candidates)
	return p
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	SetRecorder(newPromRecorder(registry))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
