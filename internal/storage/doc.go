// Package storage is the persistence layer: idempotent, indexed
// writes across the service's ~13 relations, a bounded worker pool that
// keeps store latency off the router's hot path, and a sweeper goroutine
// that emulates the document store's TTL indexes since Postgres has no
// native equivalent.
//
// Each "collection" from the data model becomes a table; document-shaped
// fields with no fixed relational shape (quality flags, phase history,
// verification reports, validation summaries) are stored as JSONB.
package storage
