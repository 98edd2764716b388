package breaker

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a point-in-time snapshot of one breaker's observable state,
// the Go equivalent of the teacher's Metrics() method in
// internal/breaker/metrics.go, adapted from the three-state/Counts shape
// to the two-state/Snapshot shape this library uses.
type Metrics struct {
	Name                 string
	State                State
	Success               uint64
	Failure                uint64
	Total                  uint64
	FailureRatio           float64
	SecondsUntilRecovery  int64
}

// Metrics returns a snapshot of the strategy's current observable state.
func (s *Strategy) Metrics(ctx context.Context) Metrics {
	snap := s.Snapshot(ctx)
	return Metrics{
		Name:                 s.Name(),
		State:                s.State(),
		Success:              snap.Success,
		Failure:              snap.Failure,
		Total:                snap.Total,
		FailureRatio:         snap.FailureRatio(),
		SecondsUntilRecovery: s.SecondsUntilRecovery(),
	}
}

// Collector implements prometheus.Collector over every breaker registered
// in a Registry, directly adapted from the teacher's
// examples/prometheus/main.go CircuitBreakerCollector: generalized from
// one breaker with fixed label-less descriptors to a registry-wide
// collector that labels every series by breaker name, since a fleet runs
// many named breakers per process rather than one.
type Collector struct {
	registry *Registry

	stateDesc        *prometheus.Desc
	totalDesc        *prometheus.Desc
	successDesc      *prometheus.Desc
	failureDesc      *prometheus.Desc
	failureRatioDesc *prometheus.Desc
	recoveryDesc     *prometheus.Desc
}

// NewCollector returns a Collector exporting metrics for every breaker
// currently (and subsequently) registered in registry.
func NewCollector(registry *Registry) *Collector {
	return &Collector{
		registry: registry,
		stateDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_state",
			"Current circuit breaker state (0=closed, 1=open)",
			[]string{"name"}, nil,
		),
		totalDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_window_requests",
			"Aggregated requests observed in the current rolling window",
			[]string{"name"}, nil,
		),
		successDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_window_successes",
			"Aggregated successes observed in the current rolling window",
			[]string{"name"}, nil,
		),
		failureDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_window_failures",
			"Aggregated failures observed in the current rolling window",
			[]string{"name"}, nil,
		),
		failureRatioDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_failure_ratio",
			"Aggregated failure ratio in the current rolling window",
			[]string{"name"}, nil,
		),
		recoveryDesc: prometheus.NewDesc(
			"distributed_circuit_breaker_seconds_until_recovery",
			"Seconds remaining until the recovery timer fires, 0 if not open",
			[]string{"name"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
	ch <- c.totalDesc
	ch <- c.successDesc
	ch <- c.failureDesc
	ch <- c.failureRatioDesc
	ch <- c.recoveryDesc
}

// Collect implements prometheus.Collector. It reads each breaker's cached
// snapshot via Metrics, which refreshes from the shared store only when
// the snapshot is older than the breaker's ReadDelaySeconds, so a scrape
// adds at most one refresh per breaker per ReadDelaySeconds.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, strat := range c.registry.All() {
		m := strat.Metrics(context.Background())

		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, float64(m.State), m.Name)
		ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(m.Total), m.Name)
		ch <- prometheus.MustNewConstMetric(c.successDesc, prometheus.GaugeValue, float64(m.Success), m.Name)
		ch <- prometheus.MustNewConstMetric(c.failureDesc, prometheus.GaugeValue, float64(m.Failure), m.Name)
		ch <- prometheus.MustNewConstMetric(c.failureRatioDesc, prometheus.GaugeValue, m.FailureRatio, m.Name)
		ch <- prometheus.MustNewConstMetric(c.recoveryDesc, prometheus.GaugeValue, float64(m.SecondsUntilRecovery), m.Name)
	}
}
