// Package distributedbreaker provides a circuit breaker for service clients
// running across a horizontally replicated fleet.
//
// # Overview
//
// A classic in-process circuit breaker only sees the failures its own
// replica observes. In a fleet of N replicas behind a load balancer, a
// dependency failing for every request still only trips each replica's
// breaker at 1/N of the actual traffic -- by the time any single replica's
// local counters cross the threshold, the dependency has already been
// hammered by the other N-1 replicas for the same outage.
//
// distributedbreaker closes that gap: every replica buffers outcomes
// in-process for lock-free, <100ns-overhead admission checks, then
// periodically flushes those buffers into a shared, Redis-backed bucket
// history that every replica reads from. The trip decision is made
// against the blended fleet-wide failure ratio, not just the local one.
//
// # Quick Start
//
//	store := distributedbreaker.NewRedisStore(redisClient, 60)
//	registry := distributedbreaker.NewRegistry(store, nil)
//
//	cb := registry.GetOrCreate(distributedbreaker.Settings{
//	    Name:          "payments-api",
//	    WindowSeconds: 60,
//	    MinRequests:   30,
//	    OpenThreshold: 0.5,
//	})
//
//	result, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
//	    return paymentsClient.Charge(ctx, req)
//	})
//	var openErr *distributedbreaker.OpenCircuitError
//	if errors.As(err, &openErr) {
//	    // circuit is open fleet-wide, fail fast
//	}
//
// # Circuit States
//
// Unlike a three-state breaker, there is no half-open probing state:
//
//   - Closed: calls are admitted; outcomes feed the rolling-window ratio
//   - Open: calls fail fast (or run Settings.Fallback), until the
//     recovery timer elapses or the fleet-wide ratio recovers below
//     CloseThreshold
//
// OpenThreshold and CloseThreshold provide hysteresis: a breaker that just
// tripped at OpenThreshold cannot immediately untrip on the same snapshot
// unless CloseThreshold is reached, which damps flapping around the
// boundary.
//
// # Observability
//
//	m := cb.Metrics(ctx)
//	log.Info("breaker", "state", m.State, "failureRatio", m.FailureRatio)
//
//	diag := cb.Diagnostics(ctx)
//	if diag.WillTripNext {
//	    log.Warn("breaker about to trip")
//	}
//
// A Registry-wide Prometheus collector is available via NewCollector.
//
// # Runtime Configuration
//
//	err := cb.UpdateSettings(distributedbreaker.SettingsUpdate{
//	    OpenThreshold: distributedbreaker.Float64Ptr(0.6),
//	})
//
// Settings can also be hot-reloaded from a YAML file; see WatchConfig.
//
// # Thread Safety
//
// Every exported method on CircuitBreaker, Registry and Guard is safe for
// concurrent use.
package distributedbreaker

import (
	"context"

	"github.com/vnykmshr/distributedbreaker/internal/breaker"
)

// Core Types

// State represents a circuit breaker's current state.
type State = breaker.State

// Settings configures a circuit breaker. See internal/breaker.Settings for
// detailed field documentation.
type Settings = breaker.Settings

// SettingsUpdate specifies a partial runtime update to a circuit
// breaker's Settings. Fields left nil are not changed.
type SettingsUpdate = breaker.SettingsUpdate

// Metrics is a point-in-time snapshot of a breaker's observable state.
type Metrics = breaker.Metrics

// Diagnostics extends Metrics with forward-looking detail, including
// whether the next failure would trip the breaker.
type Diagnostics = breaker.Diagnostics

// Snapshot is the aggregated rolling-window view blended from the local
// buffer and the shared store.
type Snapshot = breaker.Snapshot

// OpenCircuitError is returned by Execute/Use when a call is rejected
// because the breaker is open and no Fallback is configured.
type OpenCircuitError = breaker.OpenCircuitError

// SharedStore is the interface a breaker's shared, fleet-wide bucket
// history must satisfy. RedisStore is the production implementation;
// MemoryStore is suitable for tests and single-process deployments.
type SharedStore = breaker.SharedStore

// Guard is a scoped admission handle returned by CircuitBreaker.Use, for
// callers that cannot express their protected work as a single function
// value. Guard.Done must be called exactly once.
type Guard = breaker.Guard

// SeqResult is what a lazy-sequence-producing function passed to
// CircuitBreaker.WrapSeq returns.
type SeqResult = breaker.SeqResult

// State Constants

const (
	// StateClosed: calls are admitted and outcomes are evaluated against
	// the rolling-window failure ratio.
	StateClosed = breaker.StateClosed

	// StateOpen: calls fail fast until the recovery timer elapses or the
	// ratio recovers below CloseThreshold.
	StateOpen = breaker.StateOpen
)

// Errors

var (
	// ErrEmptyName is a construction-time validation error for a missing
	// breaker name.
	ErrEmptyName = breaker.ErrEmptyName

	// ErrInvalidThresholds is a construction-time validation error for
	// CloseThreshold > OpenThreshold.
	ErrInvalidThresholds = breaker.ErrInvalidThresholds
)

// Settings Defaults

const (
	DefaultWindowSeconds          = breaker.DefaultWindowSeconds
	DefaultMinRequests            = breaker.DefaultMinRequests
	DefaultOpenThreshold          = breaker.DefaultOpenThreshold
	DefaultCloseThreshold         = breaker.DefaultCloseThreshold
	DefaultRecoveryTimeoutSeconds = breaker.DefaultRecoveryTimeoutSeconds
	DefaultReadDelaySeconds       = breaker.DefaultReadDelaySeconds
)

// Pointer Helpers
//
// SettingsUpdate fields are pointers so a zero value is distinguishable
// from "don't change this field". These helpers make call sites readable
// without a local variable for every literal.

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// DefaultFailureClassifier treats every non-nil error as a failure. It is
// the FailureClassifier used when Settings.FailureClassifier is left nil.
func DefaultFailureClassifier(err error) bool {
	return breaker.DefaultFailureClassifier(err)
}

// CircuitBreaker wraps one registered breaker's admission decision and
// outcome recording behind a small, call-site-friendly API. Obtain one via
// Registry.GetOrCreate.
type CircuitBreaker struct {
	strategy *breaker.Strategy
	wrapper  *breaker.Wrapper
}

func newCircuitBreaker(strategy *breaker.Strategy) *CircuitBreaker {
	return &CircuitBreaker{strategy: strategy, wrapper: breaker.NewWrapper(strategy)}
}

// Name returns the breaker's configured name.
func (cb *CircuitBreaker) Name() string { return cb.strategy.Name() }

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() State { return cb.strategy.State() }

// Execute runs fn if the breaker admits the call. If the breaker is open,
// fn does not run: Execute returns the configured Fallback's result, or an
// *OpenCircuitError if no Fallback is set.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return cb.wrapper.Execute(ctx, fn)
}

// Use returns a Guard if the breaker admits the call, for callers whose
// protected work cannot be expressed as a single function value. Done
// must be called exactly once on the returned Guard.
func (cb *CircuitBreaker) Use(ctx context.Context) (*Guard, interface{}, error) {
	return cb.wrapper.Use(ctx)
}

// WrapSeq wraps fn, a function producing a lazy sequence, so admission is
// checked once before the first element is demanded rather than once per
// element. The breaker records exactly one outcome for the whole
// sequence: success once it runs to completion, or the single error that
// ended it early. A rejected sequence returns an *OpenCircuitError
// directly; Fallback is not consulted since there is no single value to
// substitute for a sequence.
func (cb *CircuitBreaker) WrapSeq(ctx context.Context, fn func(ctx context.Context) (SeqResult, error)) (SeqResult, error) {
	return cb.wrapper.WrapSeq(ctx, fn)
}

// Metrics returns a point-in-time snapshot of the breaker's state.
func (cb *CircuitBreaker) Metrics(ctx context.Context) Metrics {
	return cb.strategy.Metrics(ctx)
}

// Diagnostics returns a detailed, forward-looking snapshot of the
// breaker's state.
func (cb *CircuitBreaker) Diagnostics(ctx context.Context) Diagnostics {
	return cb.strategy.Diagnostics(ctx)
}

// UpdateSettings applies a partial settings update at runtime, validating
// the merged result before committing it.
func (cb *CircuitBreaker) UpdateSettings(upd SettingsUpdate) error {
	return cb.strategy.UpdateSettings(upd)
}

// Settings returns the breaker's current settings.
func (cb *CircuitBreaker) Settings() Settings {
	return cb.strategy.Settings()
}

// Enabled reports whether the breaker is currently active.
func (cb *CircuitBreaker) Enabled() bool { return cb.strategy.Enabled() }

// SetEnabled toggles whether the breaker is active. A disabled breaker
// admits every call and records no outcomes, functioning as a kill switch.
func (cb *CircuitBreaker) SetEnabled(enabled bool) { cb.strategy.SetEnabled(enabled) }
