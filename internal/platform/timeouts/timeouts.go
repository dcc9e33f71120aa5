// Package timeouts defines shared timeout constants used across services.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Write limits how long a handler may take to write a response.
const Write = 30 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 10 * time.Second

// SearchIndex bounds a single best-effort search index operation.
const SearchIndex = 5 * time.Second

// ViewFlush bounds one view-counter flush cycle against storage.
const ViewFlush = 10 * time.Second
