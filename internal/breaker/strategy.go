package breaker

import (
	"context"
	"sync"
	"sync/atomic"
)

// Strategy is the breaker strategy (component C5): it owns one breaker's
// Settings, local buffer, aggregator and state machine, and exposes the
// admission decision plus outcome recording that the call wrapper (C7)
// drives. Named "Strategy" after the original's BreakerBaseStrategy /
// DistributedPods split, collapsed here into a single concrete type since
// Go's single SharedStore interface already covers the one axis (C2) that
// varied between the original's strategy implementations.
type Strategy struct {
	mu         sync.RWMutex
	settings   Settings
	buffer     *LocalBuffer
	aggregator *Aggregator
	machine    *StateMachine
	enabled    atomic.Bool
}

// NewStrategy constructs a Strategy for settings, wired to store and
// clock, with onStateChange invoked (panic-safely) on every transition.
func NewStrategy(settings Settings, store SharedStore, clock Clock, onStateChange func(name string, from, to State)) *Strategy {
	settings = settings.applyDefaults()
	buffer := &LocalBuffer{}
	s := &Strategy{
		settings:   settings,
		buffer:     buffer,
		aggregator: NewAggregator(settings, buffer, store, clock),
		machine:    NewStateMachine(settings.Name, clock, onStateChange),
	}
	s.enabled.Store(true)
	return s
}

// Enabled reports whether the breaker is currently active. A disabled
// breaker admits every call and does not record outcomes, the Go
// equivalent of the original's feature_flag_enabled kill switch.
func (s *Strategy) Enabled() bool {
	return s.enabled.Load()
}

// SetEnabled toggles whether the breaker is active, intended to be driven
// by a hot-reloaded feature flag (see internal/breakerconfig).
func (s *Strategy) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Name returns the breaker's configured name.
func (s *Strategy) Name() string { return s.Settings().Name }

// Settings returns the strategy's current settings.
func (s *Strategy) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Allow reports whether a call should be admitted, reading (and lazily
// transitioning, per StateMachine.Current) the breaker's state.
func (s *Strategy) Allow() bool {
	return s.machine.Current(s.Settings()) == StateClosed
}

// State returns the breaker's current state.
func (s *Strategy) State() State {
	return s.machine.Current(s.Settings())
}

// RecordSuccess records a successful call outcome: it buffers the count
// locally and re-evaluates the state machine against a refreshed snapshot,
// same as RecordFailure. This runs even while CLOSED, since a success
// lowers the aggregated ratio and a CLOSED breaker must still notice a
// cross-replica ratio that has already crossed OpenThreshold from other
// replicas' failures.
func (s *Strategy) RecordSuccess(ctx context.Context) {
	s.buffer.RecordSuccess()
	settings := s.Settings()
	snap := s.aggregator.View(ctx)
	s.machine.Evaluate(settings, snap)
}

// RecordFailure records a failed call outcome and re-evaluates the
// aggregated ratio, tripping the breaker if it is now eligible. The
// aggregator applies its own ReadDelaySeconds staleness check, so this
// does not force a shared-store round trip on every failure -- only when
// the cached snapshot has actually gone stale.
func (s *Strategy) RecordFailure(ctx context.Context, err error) {
	s.buffer.RecordFailure()
	s.machine.RecordLastFailure(err)
	settings := s.Settings()
	snap := s.aggregator.View(ctx)
	s.machine.Evaluate(settings, snap)
}

// Snapshot returns the current aggregated window view, refreshing it if
// stale.
func (s *Strategy) Snapshot(ctx context.Context) Snapshot {
	return s.aggregator.View(ctx)
}

// SecondsUntilRecovery delegates to the state machine.
func (s *Strategy) SecondsUntilRecovery() int64 {
	return s.machine.SecondsUntilRecovery(s.Settings())
}

// LastFailure delegates to the state machine.
func (s *Strategy) LastFailure() error {
	return s.machine.LastFailure()
}

// ShouldClassifyAsFailure applies the strategy's configured
// FailureClassifier.
func (s *Strategy) ShouldClassifyAsFailure(err error) bool {
	return s.Settings().FailureClassifier(err)
}

// setSettings replaces the strategy's live Settings. Called by
// UpdateSettings after validating the merged result.
func (s *Strategy) setSettings(settings Settings) {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}
