package breaker

import "go.uber.org/zap"

// logger is the package-wide fallback logger used where a call site has no
// Strategy/Registry-scoped *zap.Logger in hand (e.g. panic recovery, which
// must not itself depend on caller-supplied state that could be the thing
// panicking). Callers that want structured, per-breaker fields should
// prefer threading a *zap.Logger through Registry/Strategy instead.
var logger = zap.NewNop()

// SetLogger replaces the package-wide fallback logger. Intended to be
// called once at process startup by the root package facade.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
