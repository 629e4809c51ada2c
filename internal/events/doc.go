// Package events is the router and normalizer: it maps inbound event
// names to schema keys, validates payloads (warn-only), dispatches
// persistence jobs, drives the game state tracker, and publishes the
// normalized outbound envelope to the broadcaster.
package events
