package distributedbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEndToEndClosedWithAllSuccesses(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := NewRegistry(store, nil)
	cb := reg.GetOrCreate(Settings{Name: "svc", MinRequests: 5})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return "ok", nil
		})
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
	}

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want Closed", cb.State())
	}
}

func TestEndToEndTripsOnSustainedFailures(t *testing.T) {
	clock := NewFakeClockForTest()
	store := NewMemoryStore(time.Minute)
	reg := newTestRegistry(store, clock)
	cb := reg.GetOrCreate(Settings{Name: "svc", MinRequests: 5, OpenThreshold: 0.5, ReadDelaySeconds: 1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("dependency down")
		})
		// Force every call to observe a freshly aggregated snapshot
		// instead of one cached from before this iteration's failure.
		clock.Advance(2 * time.Second)
	}

	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want Open after sustained failures", cb.State())
	}

	_, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		t.Fatal("call should have been rejected by an open circuit")
		return nil, nil
	})
	var openErr *OpenCircuitError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *OpenCircuitError, got %v", err)
	}
}

func TestEndToEndRecoversAfterTimeout(t *testing.T) {
	clock := NewFakeClockForTest()
	store := NewMemoryStore(time.Minute)
	reg := newTestRegistry(store, clock)
	cb := reg.GetOrCreate(Settings{
		Name:                   "svc",
		MinRequests:            1,
		RecoveryTimeoutSeconds: 10,
	})
	ctx := context.Background()

	cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	if cb.State() != StateOpen {
		t.Fatalf("expected breaker to trip, got %v", cb.State())
	}

	clock.Advance(11 * time.Second)

	if cb.State() != StateClosed {
		t.Errorf("state = %v, want Closed after recovery timeout", cb.State())
	}
}

func TestEndToEndParameterOverrideAtRuntime(t *testing.T) {
	clock := NewFakeClockForTest()
	store := NewMemoryStore(time.Minute)
	reg := newTestRegistry(store, clock)
	cb := reg.GetOrCreate(Settings{Name: "svc", MinRequests: 100, OpenThreshold: 0.5, ReadDelaySeconds: 1})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		})
		clock.Advance(2 * time.Second)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected breaker to stay closed below MinRequests, got %v", cb.State())
	}

	lowerMin := 5
	if err := cb.UpdateSettings(SettingsUpdate{MinRequests: &lowerMin}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})
	if cb.State() != StateOpen {
		t.Errorf("state = %v, want Open after lowering MinRequests", cb.State())
	}
}

func TestEndToEndFeatureFlagDisabledBypassesBreaker(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	reg := NewRegistry(store, nil)
	cb := reg.GetOrCreate(Settings{Name: "svc", MinRequests: 1})
	cb.SetEnabled(false)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		})
		if err == nil {
			t.Fatal("expected the wrapped error to pass through unchanged")
		}
		var openErr *OpenCircuitError
		if errors.As(err, &openErr) {
			t.Fatal("disabled breaker must never reject a call")
		}
	}
}

func TestEndToEndCrossReplicaTrip(t *testing.T) {
	// Two replicas share one store, simulating a two-pod fleet: neither
	// replica alone sees enough failures to trip locally, but the
	// fleet-wide aggregate does. ReadDelaySeconds is kept at its minimum
	// and the clock advanced after every call, so every RecordFailure
	// forces a fresh shared-store read instead of serving a cached
	// snapshot from before the other replica's writes landed.
	store := NewMemoryStore(time.Minute)
	clock := NewFakeClockForTest()
	settings := Settings{Name: "svc", MinRequests: 5, OpenThreshold: 0.5, ReadDelaySeconds: 1}

	replicaA := newTestRegistry(store, clock).GetOrCreate(settings)
	replicaB := newTestRegistry(store, clock).GetOrCreate(settings)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		replicaA.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		})
		clock.Advance(2 * time.Second)
	}
	if replicaA.State() != StateClosed {
		t.Fatalf("replicaA state = %v, want Closed before fleet-wide failures cross the threshold", replicaA.State())
	}

	for i := 0; i < 3; i++ {
		replicaB.Execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, errors.New("boom")
		})
		clock.Advance(2 * time.Second)
	}

	// A breaker only re-evaluates its trip decision when it next records
	// an outcome, so replicaA needs one more call to observe replicaB's
	// writes.
	replicaA.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	if replicaA.State() != StateOpen {
		t.Errorf("replicaA state = %v, want Open once fleet-wide failures cross the threshold", replicaA.State())
	}
}
