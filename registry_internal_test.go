package distributedbreaker

import (
	"time"

	"github.com/vnykmshr/distributedbreaker/internal/breaker"
)

// newTestRegistry and NewFakeClockForTest give the end-to-end test suite
// access to a deterministic Clock without exporting FakeClock from the
// public API: time control is a test concern, not something a production
// caller of this library should ever reach for.

func NewFakeClockForTest() *breaker.FakeClock {
	return breaker.NewFakeClock(time.Unix(1_700_000_000, 0))
}

func newTestRegistry(store SharedStore, clock *breaker.FakeClock) *Registry {
	return &Registry{inner: breaker.NewRegistry(store, breaker.WithRegistryClock(clock))}
}
