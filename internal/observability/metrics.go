package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutationsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard",
		Subsystem: "ledger",
		Name:      "mutations_total",
		Help:      "Ledger mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	persistDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leaderboard",
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Latency of ledger load and save calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	rosterGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard",
		Subsystem: "ledger",
		Name:      "members",
		Help:      "Members on the roster after the last successful save.",
	})

	lastSyncGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard",
		Subsystem: "worker",
		Name:      "last_sync_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful standings export.",
	})

	syncCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard",
		Subsystem: "worker",
		Name:      "syncs_total",
		Help:      "Standings exports by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(mutationsCounter, persistDuration, rosterGauge, lastSyncGauge, syncCounter, httpRequests)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordMutation counts a ledger mutation attempt.
func RecordMutation(operation string, err error) {
	mutationsCounter.WithLabelValues(operation, outcome(err)).Inc()
}

// ObservePersistence records how long a load or save took.
func ObservePersistence(operation string, started time.Time) {
	persistDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// SetRosterSize updates the roster gauge.
func SetRosterSize(n int) {
	rosterGauge.Set(float64(n))
}

// RecordSync counts a standings export and advances the watermark on success.
func RecordSync(trigger string, err error, ts time.Time) {
	syncCounter.WithLabelValues(trigger, outcome(err)).Inc()
	if err == nil && !ts.IsZero() {
		lastSyncGauge.Set(float64(ts.Unix()))
	}
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
