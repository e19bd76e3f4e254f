/*
Package memory configures process memory limits and sizes the frame cache.

# GOMEMLIMIT

ConfigureFromEnv sets the Go soft memory limit from a container limit:

	MEMORY_LIMIT=8GiB MEMORY_RATIO=0.85 frame-viewer play shot.0001.exr

An explicit GOMEMLIMIT always wins. MEMORY_LIMIT accepts raw bytes (as exported
by the Kubernetes Downward API), a human-readable size, or "auto" to read the
cgroup limit (memory.max on v2, memory.limit_in_bytes on v1).

# Cache Budgets

Budgets are configured as human-readable sizes ("3000MiB", "2GB") and parsed
with ParseBytes. FitCacheBudget caps the frame cache at MaxCacheShare of the
Go memory limit so rendered frames cannot push the process into constant
garbage collection.
*/
package memory
