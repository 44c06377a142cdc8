package notifysvc

import (
	"time"

	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/eventlog"
)

// Event is a single notification. It is the event log's record type; the
// service mints IDs and timestamps for events that arrive without them.
type Event = eventlog.Event

// Channel is the transport collaborator a subscription delivers through.
// Implementations are expected to provide fast, non-blocking writes; a
// returned error is treated as the subscriber having gone away.
type Channel interface {
	// SendEvent delivers one notification.
	SendEvent(ev Event) error
	// SendReplayComplete emits the marker ending a replay window.
	SendReplayComplete() error
	// SendNotificationComplete emits the terminal marker: no further
	// notifications will be sent on this subscription.
	SendNotificationComplete() error
	// Close tells the transport the subscription ended server-side and no
	// further sends will follow. Must be idempotent.
	Close()
	// OnClose registers a hook invoked when the transport side closes.
	OnClose(fn func())
}

// EventWaiter is implemented by channels that accept backpressure. The
// replay path prefers it so a slow subscriber slows its own replay down
// instead of failing it; live delivery always uses the non-blocking
// SendEvent.
type EventWaiter interface {
	SendEventWait(ev Event) error
}

// Clock abstracts time for subscription admission and stop timers.
type Clock interface {
	Now() time.Time
	// ScheduleOnce runs fn once at or after the given instant. Best effort;
	// no cancellation is required (fired timers check subscription state).
	ScheduleOnce(at time.Time, fn func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) ScheduleOnce(at time.Time, fn func()) {
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	time.AfterFunc(d, fn)
}

// SubscribeRequest carries a parsed create-subscription request. A zero
// StartMs/StopMs means the field was absent.
type SubscribeRequest struct {
	// Stream names the requested stream; empty selects the default stream.
	Stream string
	// Filter is an optional CEL expression narrowing delivered events.
	Filter string
	// StartMs requests replay of events recorded at or after this time.
	StartMs int64
	// StopMs bounds the subscription; requires StartMs.
	StopMs int64
}

// StreamInfo summarizes one stream for the state-reporting surface.
type StreamInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ReplaySupport bool   `json:"replaySupport"`
	CreatedAtMs   int64  `json:"createdAtMs"`
	// OldestRetainedMs is 0 when the stream's log is empty.
	OldestRetainedMs    int64  `json:"oldestRetainedMs,omitempty"`
	ActiveSubscriptions int    `json:"activeSubscriptions"`
	SentNotifications   uint64 `json:"sentNotifications"`
}
