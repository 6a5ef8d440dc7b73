package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llm-crypto-trader/internal/execution"
)

// Metrics holds the Prometheus collectors for the trader. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	DecisionsTotal    *prometheus.CounterVec // labels: decision
	ExitsTotal        *prometheus.CounterVec // labels: policy, kind
	MarketFillsTotal  *prometheus.CounterVec // labels: policy, side
	BacktestRunsTotal *prometheus.CounterVec // labels: policy
	HiddenStopsTotal  prometheus.Counter
	StepDuration      prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_decisions_total",
			Help: "Scored or decided trading verdicts by label",
		}, []string{"decision"}),
		ExitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_exits_total",
			Help: "Simulated stop/target exits by execution policy",
		}, []string{"policy", "kind"}),
		MarketFillsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_market_fills_total",
			Help: "Simulated market order fills",
		}, []string{"policy", "side"}),
		BacktestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_backtest_runs_total",
			Help: "Completed backtest runs by execution policy",
		}, []string{"policy"}),
		HiddenStopsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_hidden_stops_total",
			Help: "Stops pierced intrabar that a close-only model would have missed",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_step_duration_seconds",
			Help:    "Duration of one live decision step",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.DecisionsTotal,
		m.ExitsTotal,
		m.MarketFillsTotal,
		m.BacktestRunsTotal,
		m.HiddenStopsTotal,
		m.StepDuration,
	)
	return m
}

func (m *Metrics) ObserveDecision(label string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveExit(policy, kind string) {
	if m == nil {
		return
	}
	m.ExitsTotal.WithLabelValues(policy, kind).Inc()
}

func (m *Metrics) ObserveMarketFill(policy, side string) {
	if m == nil {
		return
	}
	m.MarketFillsTotal.WithLabelValues(policy, side).Inc()
}

// ObserveBacktest counts a finished run. Hidden stops are only added for
// close-only runs, since those are the stops that policy failed to act on.
func (m *Metrics) ObserveBacktest(policy string, hiddenStops int) {
	if m == nil {
		return
	}
	m.BacktestRunsTotal.WithLabelValues(policy).Inc()
	if policy == execution.PolicyCloseOnly {
		m.HiddenStopsTotal.Add(float64(hiddenStops))
	}
}

func (m *Metrics) ObserveStep(d time.Duration) {
	if m == nil {
		return
	}
	m.StepDuration.Observe(d.Seconds())
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
