package notifysvc

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock. Timers fire synchronously from
// Advance, in schedule order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []fakeTimer
}

type fakeTimer struct {
	at time.Time
	fn func()
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) ScheduleOnce(at time.Time, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, fakeTimer{at: at, fn: fn})
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due, rest []fakeTimer
	for _, t := range c.timers {
		if !t.at.After(c.now) {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()
	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// recordedMsg is one channel write observed by a recordingChannel.
type recordedMsg struct {
	kind string // "event", "replayComplete", "notificationComplete"
	ev   Event
}

// recordingChannel captures everything sent through it. Setting fail makes
// every subsequent write error, modeling a subscriber that went away.
type recordingChannel struct {
	mu      sync.Mutex
	msgs    []recordedMsg
	fail    bool
	closed  bool
	onClose func()
}

func newRecordingChannel() *recordingChannel { return &recordingChannel{} }

var errChannelGone = errors.New("channel gone")

func (c *recordingChannel) SendEvent(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errChannelGone
	}
	c.msgs = append(c.msgs, recordedMsg{kind: "event", ev: ev})
	return nil
}

func (c *recordingChannel) SendReplayComplete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errChannelGone
	}
	c.msgs = append(c.msgs, recordedMsg{kind: "replayComplete"})
	return nil
}

func (c *recordingChannel) SendNotificationComplete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errChannelGone
	}
	c.msgs = append(c.msgs, recordedMsg{kind: "notificationComplete"})
	return nil
}

func (c *recordingChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *recordingChannel) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

func (c *recordingChannel) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

func (c *recordingChannel) snapshot() []recordedMsg {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]recordedMsg, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *recordingChannel) kinds() []string {
	msgs := c.snapshot()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.kind
	}
	return out
}

func (c *recordingChannel) names() []string {
	var out []string
	for _, m := range c.snapshot() {
		if m.kind == "event" {
			out = append(out, m.ev.Name)
		} else {
			out = append(out, "<"+m.kind+">")
		}
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes. Replay runs on
// pool workers, so tests that cross a replay boundary synchronize here.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
