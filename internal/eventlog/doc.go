// Package eventlog implements the in-memory replay log backing each event
// stream.
//
// # Overview
//
// The log is an ordered mapping from event timestamp (unix milliseconds) to
// the bucket of events recorded at that exact timestamp, bounded by a
// maximum bucket count (default 100,000). The mapping lives in a balanced
// B-tree so append, min lookup, and eviction are all O(log n).
//
// The log is deliberately volatile: nothing is persisted and eviction is the
// only way entries leave it. When the bucket count is at capacity, appending
// an event with a previously unseen timestamp first evicts the single oldest
// timestamp bucket.
//
// API surface (internal)
//
//	l := eventlog.NewLog(100_000)
//	l.Append(eventlog.Event{Name: "link-down", TimeMs: now, Payload: body})
//
//	// Range query: closed [start, stop], or [start, +inf) when StopMs is 0.
//	events := l.Query(eventlog.QueryOptions{StartMs: start, StopMs: stop})
//
//	// Oldest retained timestamp (absent when the log is empty)
//	ts, ok := l.OldestRetainedMs()
//
// Queries return events in ascending timestamp order and preserve insertion
// order within a bucket; the returned slice is a snapshot unaffected by
// later appends or evictions.
//
// # Concurrency
//
// A single mutex serializes appends and queries. Eviction and insertion are
// coupled inside the same critical section, so no finer-grained locking is
// needed (or wanted: replay correctness depends on a query observing a
// consistent point-in-time state).
package eventlog
