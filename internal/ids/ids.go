// Package ids mints the opaque identifiers the service assigns itself
// (never store-generated), keeping REST responses flat per the data model's
// invariant that primary keys are plain strings.
package ids

import "github.com/google/uuid"

// New returns a new opaque identifier.
func New() string {
	return uuid.New().String()
}

// NewPrefixed returns a new opaque identifier with a readable prefix,
// useful for distinguishing record kinds in logs (e.g. "game_", "trade_").
func NewPrefixed(prefix string) string {
	return prefix + uuid.New().String()
}
