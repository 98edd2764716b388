package distributedbreaker

import "github.com/google/uuid"

// InstanceID identifies this process among the fleet's replicas, for
// correlating a breaker's local-only diagnostics (e.g. log lines, Guard
// panics) back to a specific pod/instance during an incident. It is
// generated once per process.
var InstanceID = uuid.NewString()
