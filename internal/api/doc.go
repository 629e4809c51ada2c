// Package api is the REST and WebSocket transport surface: health,
// readiness, metrics, schema descriptors, game/OHLC/god-candle/PRNG
// reads, the sole mutating route (POST /api/prng/verify/{id}), and the
// downstream WebSocket upgrade at /api/ws/stream. Every route lives
// under /api and is read-only except the PRNG verify endpoint.
package api
