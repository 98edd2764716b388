package breaker

import (
	"sync/atomic"
	"time"
)

// StateMachine is the breaker state machine (component C4): a two-state,
// hysteresis-gated admission gate. Transitions are CompareAndSwap-guarded,
// following the teacher's lock-free convention in internal/breaker/state.go,
// generalized from three states down to two and from interval/half-open
// request limiting down to a single recovery timer plus an opportunistic
// ratio-based untrip.
type StateMachine struct {
	state         atomic.Int32 // State
	openedAt      atomic.Pointer[time.Time] // nil unless state == StateOpen
	lastFailure   atomic.Value // error
	onStateChange func(name string, from, to State)
	name          string
	clock         Clock
}

// NewStateMachine constructs a StateMachine starting in StateClosed.
func NewStateMachine(name string, clock Clock, onStateChange func(name string, from, to State)) *StateMachine {
	return &StateMachine{name: name, clock: clock, onStateChange: onStateChange}
}

// Current returns the breaker's current state, applying the lazy
// open-to-closed recovery-timer check first: an open breaker whose
// recovery timeout has elapsed transitions to closed at read time, the
// same lazy-transition-on-read shape as the original's `state` property.
func (sm *StateMachine) Current(settings Settings) State {
	if State(sm.state.Load()) == StateOpen && sm.recoveryTimerExpired(settings) {
		sm.transitionToClosed()
	}
	return State(sm.state.Load())
}

func (sm *StateMachine) recoveryTimerExpired(settings Settings) bool {
	openedAt := sm.openedAt.Load()
	if openedAt == nil {
		return false
	}
	elapsed := sm.clock.Now().Sub(*openedAt)
	return elapsed >= settings.recoveryTimeoutDuration()
}

// SecondsUntilRecovery returns how many whole seconds remain before the
// recovery timer fires, or 0 if the breaker is not open or the timer has
// already elapsed.
func (sm *StateMachine) SecondsUntilRecovery(settings Settings) int64 {
	if State(sm.state.Load()) != StateOpen {
		return 0
	}
	openedAt := sm.openedAt.Load()
	if openedAt == nil {
		return 0
	}
	remaining := settings.recoveryTimeoutDuration() - sm.clock.Now().Sub(*openedAt)
	if remaining <= 0 {
		return 0
	}
	// Round up: a 1ns remainder still means "not recovered yet".
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// Evaluate applies a freshly observed Snapshot to the state machine: in
// StateClosed, trips if the window is eligible (Total >= MinRequests) and
// FailureRatio >= OpenThreshold; in StateOpen, untrips early if the window
// has any events at all and FailureRatio <= CloseThreshold, rather than
// waiting for the recovery timer. The Total > 0 guard matters because an
// empty window (all buckets aged out) reports a FailureRatio of 0, which
// must not be read as "recovered" -- an open breaker with no evidence
// either way stays open until the recovery timer fires. This is also the
// hysteresis gate: with CloseThreshold < OpenThreshold, a breaker that
// just tripped cannot immediately untrip on the same snapshot; with equal
// thresholds, a ratio exactly at the threshold both trips and untrips.
func (sm *StateMachine) Evaluate(settings Settings, snap Snapshot) {
	switch State(sm.state.Load()) {
	case StateClosed:
		if snap.Total >= uint64(settings.MinRequests) && snap.FailureRatio() >= settings.OpenThreshold {
			sm.transitionToOpen()
		}
	case StateOpen:
		if snap.Total > 0 && snap.FailureRatio() <= settings.CloseThreshold {
			sm.transitionToClosed()
		}
	}
}

func (sm *StateMachine) transitionToOpen() {
	if !sm.state.CompareAndSwap(int32(StateClosed), int32(StateOpen)) {
		return
	}
	now := sm.clock.Now()
	sm.openedAt.Store(&now)
	sm.notify(StateClosed, StateOpen)
}

func (sm *StateMachine) transitionToClosed() {
	if !sm.state.CompareAndSwap(int32(StateOpen), int32(StateClosed)) {
		return
	}
	sm.openedAt.Store(nil)
	sm.notify(StateOpen, StateClosed)
}

func (sm *StateMachine) notify(from, to State) {
	if sm.onStateChange != nil {
		safeCallOnStateChange(sm.onStateChange, sm.name, from, to)
	}
}

// RecordLastFailure stashes the most recently classified failure for
// diagnostic / OpenCircuitError reporting.
func (sm *StateMachine) RecordLastFailure(err error) {
	if err != nil {
		sm.lastFailure.Store(err)
	}
}

// LastFailure returns the most recently classified failure, or nil.
func (sm *StateMachine) LastFailure() error {
	v := sm.lastFailure.Load()
	if v == nil {
		return nil
	}
	err, _ := v.(error)
	return err
}
