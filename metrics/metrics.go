// Package metrics exposes Prometheus instrumentation for the trie store.
// It is deliberately thin: a full node diagnostics and metrics reporting
// pipeline that aggregates, ships, and dashboards these numbers is a
// separate collaborator, out of scope for this module. This package only
// registers the counters and histograms a surrounding process would scrape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ops counts and times the trie store's externally visible operations.
var Ops = struct {
	Lookups         prometheus.Counter
	Inserts         prometheus.Counter
	InsertConflicts prometheus.Counter // ErrUnhandledUpdate: key reinsert with new value
	StoreErrors     prometheus.Counter
	InsertDuration  prometheus.Histogram
	LookupDuration  prometheus.Histogram
	NodesWritten    prometheus.Counter
}{
	Lookups: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "lookups_total",
		Help:      "Total number of Lookup calls.",
	}),
	Inserts: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "inserts_total",
		Help:      "Total number of Insert calls that reached the working-root cell.",
	}),
	InsertConflicts: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "insert_conflicts_total",
		Help:      "Inserts rejected because the key already exists with a different value.",
	}),
	StoreErrors: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "store_errors_total",
		Help:      "Backing-store I/O errors surfaced to callers.",
	}),
	InsertDuration: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "insert_duration_seconds",
		Help:      "Time spent holding the working-root cell during Insert.",
		Buckets:   prometheus.DefBuckets,
	}),
	LookupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "lookup_duration_seconds",
		Help:      "Time spent in Lookup, including the read transaction.",
		Buckets:   prometheus.DefBuckets,
	}),
	NodesWritten: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rchain",
		Subsystem: "trie",
		Name:      "nodes_written_total",
		Help:      "Total number of (possibly-redundant) node writes across all rehash chains.",
	}),
}

// Timer records the duration between its creation and the call to
// ObserveDuration on the supplied histogram.
type Timer struct {
	start time.Time
	hist  prometheus.Histogram
}

// NewTimer starts timing against hist.
func NewTimer(hist prometheus.Histogram) *Timer {
	return &Timer{start: time.Now(), hist: hist}
}

// ObserveDuration records the elapsed time since NewTimer.
func (t *Timer) ObserveDuration() {
	t.hist.Observe(time.Since(t.start).Seconds())
}
