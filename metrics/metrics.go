package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ledger metrics
	JoinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_joins_total",
			Help: "Join attempts by outcome",
		},
		[]string{"outcome"},
	)

	ProgressSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_progress_submissions_total",
			Help: "Progress submissions by outcome",
		},
		[]string{"outcome"},
	)

	RepsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_reps_submitted_total",
			Help: "Reps accepted by the ledger by exercise type",
		},
		[]string{"exercise"},
	)

	CompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_completions_total",
			Help: "First-time challenge completions by exercise type",
		},
		[]string{"exercise"},
	)

	LedgerTxDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "challenge_ledger_tx_duration_seconds",
			Help:    "Ledger transaction duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Realtime metrics
	ChannelsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_channels_connected",
			Help: "Currently registered push channels",
		},
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_broadcasts_total",
			Help: "Broadcast events by action",
		},
		[]string{"action"},
	)

	ChannelsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_channels_dropped_total",
			Help: "Channels removed after a failed send",
		},
	)

	// Scheduler metrics
	ChallengesClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenges_closed_total",
			Help: "Challenges moved out of active by final status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(JoinsTotal)
	prometheus.MustRegister(ProgressSubmissionsTotal)
	prometheus.MustRegister(RepsSubmittedTotal)
	prometheus.MustRegister(CompletionsTotal)
	prometheus.MustRegister(LedgerTxDuration)
	prometheus.MustRegister(ChannelsConnected)
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(ChannelsDroppedTotal)
	prometheus.MustRegister(ChallengesClosedTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures one operation into a histogram vector
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(h *prometheus.HistogramVec, label string) time.Duration {
	d := time.Since(t.start)
	h.WithLabelValues(label).Observe(d.Seconds())
	return d
}
