package notifysvc

import (
	"sync"
	"sync/atomic"

	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

// SubState is the delivery lifecycle state of a subscription.
type SubState int32

const (
	// SubStateStreaming delivers events to the channel immediately.
	SubStateStreaming SubState = iota
	// SubStateReplaying queues live events behind an in-flight replay.
	SubStateReplaying
	// SubStateClosed is terminal; deliveries are dropped.
	SubStateClosed
)

func (s SubState) String() string {
	switch s {
	case SubStateStreaming:
		return "STREAMING"
	case SubStateReplaying:
		return "REPLAYING"
	case SubStateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// pendingItem is one queued delivery: an event, or the terminal completion
// marker ordered behind the queue.
type pendingItem struct {
	ev         Event
	completion bool
}

// Subscription is one client's live registration on a stream. All state
// mutations happen under mu; channel writes for live delivery and queue
// drain also happen under mu, which is what guarantees the replay-tail /
// live-queue FIFO ordering.
type Subscription struct {
	stream  string
	client  string
	pred    Predicate
	startMs int64
	stopMs  int64
	counter *countingChannel
	logger  logpkg.Logger

	mu      sync.Mutex
	state   SubState
	ch      Channel
	pending []pendingItem
}

func newSubscription(stream, client string, pred Predicate, req SubscribeRequest, ch *countingChannel, logger logpkg.Logger) *Subscription {
	state := SubStateStreaming
	if req.StartMs != 0 {
		state = SubStateReplaying
	}
	return &Subscription{
		stream:  stream,
		client:  client,
		pred:    pred,
		startMs: req.StartMs,
		stopMs:  req.StopMs,
		counter: ch,
		logger:  logger,
		state:   state,
		ch:      ch,
	}
}

// Client returns the owning client identity.
func (s *Subscription) Client() string { return s.client }

// StreamName returns the stream this subscription is registered on.
func (s *Subscription) StreamName() string { return s.stream }

// State returns the current lifecycle state.
func (s *Subscription) State() SubState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SentCount returns the number of notifications written to the channel on
// behalf of this subscription, including replayed events and markers.
func (s *Subscription) SentCount() uint64 { return s.counter.Count() }

// match applies the subscriber's predicate to one event.
func (s *Subscription) match(ev Event) (Event, bool) {
	if s.pred == nil {
		return ev, true
	}
	return s.pred.Match(ev)
}

// deliver hands one live event to the subscription. Streaming sends now,
// replaying queues, closed drops.
func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SubStateClosed:
		return
	case SubStateReplaying:
		// Unbounded by design: capping here would force either drops or
		// reordering, both of which break the delivery contract. The queue
		// depth is logged so operators can spot pathological replays.
		s.pending = append(s.pending, pendingItem{ev: ev})
		s.logger.Debug("notify.queue",
			logpkg.Str("stream", s.stream),
			logpkg.Str("client", s.client),
			logpkg.Int("q_depth", len(s.pending)),
		)
	case SubStateStreaming:
		s.sendLocked(ev)
	}
}

// sendLocked writes one event to the channel. A failed write means the
// subscriber is gone; the subscription becomes inert rather than retrying.
func (s *Subscription) sendLocked(ev Event) {
	if err := s.ch.SendEvent(ev); err != nil {
		s.logger.Warn("notify.send failed, closing subscription",
			logpkg.Str("stream", s.stream),
			logpkg.Str("client", s.client),
			logpkg.Err(err),
		)
		s.closeLocked()
	}
}

// replayFinished flips a replaying subscription to streaming and flushes
// the queued backlog in FIFO order before any new deliver proceeds. It is a
// no-op in any other state, which is how an in-flight replay job tolerates
// a concurrent close.
func (s *Subscription) replayFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SubStateReplaying {
		return
	}
	s.state = SubStateStreaming
	backlog := s.pending
	s.pending = nil
	flushed := 0
	for _, it := range backlog {
		if s.state != SubStateStreaming {
			// A failed send below closed the subscription mid-drain.
			return
		}
		if it.completion {
			s.sendCompletionLocked()
		} else {
			s.sendLocked(it.ev)
		}
		flushed++
	}
	s.logger.Debug("notify.replay_finished",
		logpkg.Str("stream", s.stream),
		logpkg.Str("client", s.client),
		logpkg.Int("flushed", flushed),
	)
}

// sendCompletion emits the terminal notificationComplete marker, or queues
// it behind the pending backlog while a replay is in flight.
func (s *Subscription) sendCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SubStateClosed:
		return
	case SubStateReplaying:
		s.pending = append(s.pending, pendingItem{completion: true})
	case SubStateStreaming:
		s.sendCompletionLocked()
	}
}

func (s *Subscription) sendCompletionLocked() {
	if err := s.ch.SendNotificationComplete(); err != nil {
		s.closeLocked()
	}
}

// close is idempotent and discards any queued events.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *Subscription) closeLocked() {
	if s.state == SubStateClosed {
		return
	}
	s.state = SubStateClosed
	s.pending = nil
	// Release the transport: a server-side end (administrative close,
	// shutdown) must not leave an open connection waiting for frames.
	s.ch.Close()
	s.ch = noopChannel{}
}

// noopChannel replaces the transport reference once a subscription closes.
type noopChannel struct{}

func (noopChannel) SendEvent(Event) error           { return nil }
func (noopChannel) SendReplayComplete() error       { return nil }
func (noopChannel) SendNotificationComplete() error { return nil }
func (noopChannel) Close()                          {}
func (noopChannel) OnClose(func())                  {}

// countingChannel decorates a Channel, counting every successful outbound
// write. It replaces the dynamic-proxy interception the protocol layer used
// for notification accounting.
type countingChannel struct {
	inner Channel
	sent  atomic.Uint64
}

func newCountingChannel(inner Channel) *countingChannel {
	return &countingChannel{inner: inner}
}

func (c *countingChannel) SendEvent(ev Event) error {
	if err := c.inner.SendEvent(ev); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

// SendEventWait forwards to the inner channel's backpressure-tolerant send
// when it has one, falling back to the non-blocking send otherwise.
func (c *countingChannel) SendEventWait(ev Event) error {
	send := c.inner.SendEvent
	if w, ok := c.inner.(EventWaiter); ok {
		send = w.SendEventWait
	}
	if err := send(ev); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

func (c *countingChannel) SendReplayComplete() error {
	if err := c.inner.SendReplayComplete(); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

func (c *countingChannel) SendNotificationComplete() error {
	if err := c.inner.SendNotificationComplete(); err != nil {
		return err
	}
	c.sent.Add(1)
	return nil
}

func (c *countingChannel) Close() { c.inner.Close() }

func (c *countingChannel) OnClose(fn func()) { c.inner.OnClose(fn) }

// Count returns the number of successful outbound writes.
func (c *countingChannel) Count() uint64 { return c.sent.Load() }
