package breaker

import "context"

// Diagnostics extends Metrics with forward-looking detail, adapted from
// the teacher's Diagnostics() method in internal/breaker/diagnostics.go:
// generalized from "would the next failure trip a 3-state breaker's
// ConsecutiveFailures counter" to "would the next failure push the
// aggregated window over OpenThreshold", since this library trips on a
// windowed ratio rather than a consecutive-failure streak.
type Diagnostics struct {
	Metrics
	Settings      Settings
	WillTripNext  bool
}

// Diagnostics returns a detailed snapshot of the strategy's current state,
// including a simulation of whether one more failure would trip it.
func (s *Strategy) Diagnostics(ctx context.Context) Diagnostics {
	m := s.Metrics(ctx)
	settings := s.Settings()
	return Diagnostics{
		Metrics:      m,
		Settings:     settings,
		WillTripNext: wouldTripOnNextFailure(settings, m),
	}
}

// wouldTripOnNextFailure simulates recording one additional failure
// against the current metrics and reports whether that would cross
// OpenThreshold, the same "simulate one more failure" approach the
// teacher's wouldTripOnNextFailure helper takes against readyToTrip.
func wouldTripOnNextFailure(settings Settings, m Metrics) bool {
	if m.State != StateClosed {
		return false
	}
	total := m.Total + 1
	failure := m.Failure + 1
	if total < uint64(settings.MinRequests) {
		return false
	}
	return float64(failure)/float64(total) >= settings.OpenThreshold
}
