// Package id generates entity identifiers.
//
// Identifiers are ULIDs: 26-character, lexicographically sortable by
// creation time, safe for use in URLs and database keys.
package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string for use as an entity identifier.
func New() string {
	return ulid.Make().String()
}

// NewAt generates a ULID with an explicit timestamp, used by seeders and
// tests that need deterministic ordering.
func NewAt(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t.UTC()), rand.Reader).String()
}

// Valid reports whether value parses as a ULID.
func Valid(value string) bool {
	_, err := ulid.ParseStrict(value)
	return err == nil
}
