package distributedbreaker

import (
	"github.com/vnykmshr/distributedbreaker/internal/breaker"
	"go.uber.org/zap"
)

// Registry is a name-keyed table of breakers sharing one SharedStore. Build
// one per process (or per logical group of dependencies); it replaces what
// would otherwise be ad hoc package-level breaker singletons.
type Registry struct {
	inner *breaker.Registry
}

// NewRegistry constructs a Registry backed by store. log, if non-nil, is
// used for registry-wide structured logging (breaker creation, state
// transitions).
func NewRegistry(store SharedStore, log *zap.Logger) *Registry {
	opts := []breaker.RegistryOption{}
	if log != nil {
		opts = append(opts, breaker.WithRegistryLogger(log))
	}
	return &Registry{inner: breaker.NewRegistry(store, opts...)}
}

// GetOrCreate returns the CircuitBreaker registered under settings.Name,
// creating it (with settings fixed at creation time) if it does not exist
// yet.
func (r *Registry) GetOrCreate(settings Settings) *CircuitBreaker {
	return newCircuitBreaker(r.inner.GetOrCreate(settings))
}

// Get returns the CircuitBreaker registered under name, if any.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	s, ok := r.inner.Get(name)
	if !ok {
		return nil, false
	}
	return newCircuitBreaker(s), true
}

// AllClosed reports whether every registered breaker is currently closed.
// Useful as a liveness signal: if this is false, at least one dependency
// is considered unhealthy fleet-wide.
func (r *Registry) AllClosed() bool {
	return r.inner.AllClosed()
}

// OpenBreakers returns every registered breaker currently open, for
// surfacing which dependencies are presently considered unhealthy.
func (r *Registry) OpenBreakers() []*CircuitBreaker {
	return wrapStrategies(r.inner.OpenBreakers())
}

// ClosedBreakers returns every registered breaker currently closed.
func (r *Registry) ClosedBreakers() []*CircuitBreaker {
	return wrapStrategies(r.inner.ClosedBreakers())
}

func wrapStrategies(strategies []*breaker.Strategy) []*CircuitBreaker {
	out := make([]*CircuitBreaker, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, newCircuitBreaker(s))
	}
	return out
}

// NewCollector returns a Prometheus collector exporting metrics for every
// breaker in the registry.
func (r *Registry) NewCollector() *breaker.Collector {
	return breaker.NewCollector(r.inner)
}
