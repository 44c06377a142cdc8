// Package notifysvc implements the event-notification core: named event
// streams, per-client subscriptions with optional historical replay, and
// real-time fan-out of dispatched events.
//
// # Overview
//
// The Service is the router facade. It owns one Stream per configured stream
// name plus the implicit default stream every event is mirrored onto, and it
// enforces the global "at most one active subscription per client" rule.
// Each Stream owns a bounded in-memory replay log (internal/eventlog) and
// the set of live Subscriptions for its name.
//
// A subscription without a start time goes straight to live streaming. A
// subscription with a start time begins in the replaying state: a
// point-in-time snapshot of the log is drained through the subscriber's
// channel by a replay worker while concurrently arriving live events queue
// behind it. When the snapshot (and the replayComplete marker) has been
// sent, the subscription flips to streaming and flushes the queue, so the
// subscriber always observes: replayed events, replayComplete, then live
// events in arrival order. A stop time bounds the subscription; a one-shot
// timer ends it with a notificationComplete marker.
//
// # Collaborators
//
// Transports implement Channel (SSE sessions in internal/server/http).
// Filters are CEL expressions compiled per subscription (celfilter.go).
// Time is injected via Clock so tests control replay windows and stop
// timers.
package notifysvc
