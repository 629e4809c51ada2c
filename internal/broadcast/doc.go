// Package broadcast is the downstream fan-out: it keeps a bounded,
// per-subscriber send buffer and evicts slow consumers rather than
// blocking the publisher. Each subscriber gets its own reader goroutine
// and write loop so one stalled connection never backs up another.
package broadcast
