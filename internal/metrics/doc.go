// Package metrics holds the process-wide atomic counter struct exposed by
// GET /api/metrics: uptime, upstream liveness, message throughput,
// per-schema validation tallies, and error counters. All counters are
// monotonic for the lifetime of the process.
package metrics
