package metrics

// Prometheus metric namespaces
const (
	namespaceNode = "shardchain"
)

// Storage subsystems represent the various components of the storage layer.
const (
	subsystemCache = "cache"
	subsystemGC    = "gc"
)
