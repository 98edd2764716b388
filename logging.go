package distributedbreaker

import (
	"go.uber.org/zap"

	"github.com/vnykmshr/distributedbreaker/internal/breaker"
)

// SetLogger sets the package-wide fallback logger used for panic recovery
// and other events that have no caller-scoped logger available. Call once
// at process startup.
func SetLogger(log *zap.Logger) {
	breaker.SetLogger(log)
}
