// Package util provides shared utility functions.
package util

import "github.com/google/uuid"

// DefaultShortIDLength is the default number of characters for short IDs.
const DefaultShortIDLength = 8

// NewID mints an ID of the form "<prefix>-<8 hex chars>" backed by a random
// UUID, e.g. "run-3fa4c2d1" or "claim-9b01ee7a".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// NewRunID mints a run identifier.
func NewRunID() string { return NewID("run") }

// NewClaimID mints a claim identifier.
func NewClaimID() string { return NewID("claim") }

// ShortID returns a shortened version of an ID for display.
// If n is 0 or negative, DefaultShortIDLength (8) is used.
func ShortID(id string, n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	if len(id) <= n {
		return id
	}
	return id[:n]
}
