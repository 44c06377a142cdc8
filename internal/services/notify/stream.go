package notifysvc

import (
	"sync"
	"time"

	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/eventlog"
	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/id"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

// Stream owns one replay log and the set of live subscriptions for one
// configured stream name. Streams are created at server start and never
// destroyed while the server runs.
type Stream struct {
	name          string
	description   string
	replaySupport bool
	log           *eventlog.Log
	clock         Clock
	filter        Filter
	pool          *replayPool
	timerIDs      *id.Generator
	logger        logpkg.Logger

	// mu guards subs and orders log appends against subscription admission:
	// a snapshot taken during admission and the broadcasts that follow it
	// partition live traffic exactly, so no event is both replayed and
	// queued.
	mu   sync.Mutex
	subs map[string]*Subscription
}

func newStream(name, description string, replaySupport bool, logCapacity int, clock Clock, filter Filter, pool *replayPool, logger logpkg.Logger) *Stream {
	return &Stream{
		name:          name,
		description:   description,
		replaySupport: replaySupport,
		log:           eventlog.NewLog(logCapacity),
		clock:         clock,
		filter:        filter,
		pool:          pool,
		timerIDs:      id.NewGenerator(),
		logger:        logger.With(logpkg.Str("stream", name)),
		subs:          map[string]*Subscription{},
	}
}

// Name returns the stream's unique name.
func (s *Stream) Name() string { return s.name }

// ReplaySupport reports whether the stream records a replay log.
func (s *Stream) ReplaySupport() bool { return s.replaySupport }

// Info summarizes the stream for the state-reporting surface.
func (s *Stream) Info() StreamInfo {
	info := StreamInfo{
		Name:          s.name,
		Description:   s.description,
		ReplaySupport: s.replaySupport,
		CreatedAtMs:   s.log.CreatedAtMs(),
	}
	if oldest, ok := s.log.OldestRetainedMs(); ok {
		info.OldestRetainedMs = oldest
	}
	s.mu.Lock()
	for _, sub := range s.subs {
		if sub.State() != SubStateClosed {
			info.ActiveSubscriptions++
		}
		info.SentNotifications += sub.SentCount()
	}
	s.mu.Unlock()
	return info
}

// createSubscription validates and admits one subscription request. On
// success the subscription is registered and acknowledged immediately;
// replay (if requested) proceeds asynchronously.
func (s *Stream) createSubscription(client string, req SubscribeRequest, ch Channel) (*Subscription, error) {
	nowMs := s.clock.Now().UnixMilli()
	if req.StartMs == 0 && req.StopMs != 0 {
		return nil, errMissingStartTime()
	}
	if (req.StartMs != 0 || req.StopMs != 0) && !s.replaySupport {
		return nil, errReplayUnsupported(s.name)
	}
	if req.StopMs != 0 && req.StopMs < req.StartMs {
		return nil, errStopBeforeStart()
	}
	if req.StartMs != 0 && req.StartMs > nowMs {
		return nil, errStartAfterNow()
	}
	pred, err := s.filter.Compile(req.Filter)
	if err != nil {
		return nil, errBadFilter(err)
	}

	sub := newSubscription(s.name, client, pred, req, newCountingChannel(ch), s.logger)

	var snapshot []Event
	s.mu.Lock()
	s.subs[client] = sub
	if req.StartMs != 0 {
		snapshot = s.log.Query(eventlog.QueryOptions{StartMs: req.StartMs, StopMs: req.StopMs})
	}
	s.mu.Unlock()

	ch.OnClose(func() { s.removeSubscription(client, sub) })

	if req.StartMs != 0 {
		job := &replayJob{sub: sub, ch: sub.ch, events: snapshot, logger: s.logger}
		if req.StopMs != 0 && req.StopMs <= nowMs {
			// The stop instant already passed: the requested window is
			// replayed in full, then the subscription ends through the same
			// path the stop timer uses.
			job.onDone = func() { s.stopSubscription(client, true) }
		}
		s.pool.submit(job)
		if req.StopMs > nowMs {
			s.armStopTimer(client, sub, req.StopMs)
		}
	}

	s.logger.Info("notify.subscribe",
		logpkg.Str("client", client),
		logpkg.Str("state", sub.State().String()),
		logpkg.Int64("start_ms", req.StartMs),
		logpkg.Int64("stop_ms", req.StopMs),
	)
	return sub, nil
}

// armStopTimer schedules the one-shot forced end of a replay-bounded
// subscription. The timer self-cancels by identity check: if the client's
// current subscription is no longer the one the timer was armed for (closed,
// replaced, or removed), firing is a no-op.
func (s *Stream) armStopTimer(client string, sub *Subscription, stopMs int64) {
	timerID := s.timerIDs.Next()
	at := time.UnixMilli(stopMs)
	s.clock.ScheduleOnce(at, func() {
		s.mu.Lock()
		cur := s.subs[client]
		s.mu.Unlock()
		if cur != sub || sub.State() == SubStateClosed {
			s.logger.Debug("notify.stop_timer expired stale",
				logpkg.Str("client", client),
				logpkg.Str("timer_id", timerID.String()),
			)
			return
		}
		s.stopSubscription(client, true)
	})
	s.logger.Debug("notify.stop_timer armed",
		logpkg.Str("client", client),
		logpkg.Str("timer_id", timerID.String()),
		logpkg.Int64("stop_ms", stopMs),
	)
}

// dispatch records the event in the replay log (when the stream logs) and
// broadcasts it to every matching subscription.
func (s *Stream) dispatch(ev Event) {
	s.mu.Lock()
	if s.replaySupport {
		s.log.Append(ev)
	}
	targets := make([]*Subscription, 0, len(s.subs))
	for client, sub := range s.subs {
		if sub.State() == SubStateClosed {
			// Lazy cleanup of subscriptions that went inert on a failed
			// send.
			delete(s.subs, client)
			continue
		}
		targets = append(targets, sub)
	}
	s.mu.Unlock()

	for _, sub := range targets {
		if matched, ok := sub.match(ev); ok {
			sub.deliver(matched)
		}
	}
}

// stopSubscription removes the client's subscription. When sendCompletion
// is set (stop-timer and stop-window paths), the terminal marker is emitted
// first; an administrative close does not send one.
func (s *Stream) stopSubscription(client string, sendCompletion bool) bool {
	s.mu.Lock()
	sub, ok := s.subs[client]
	if ok {
		delete(s.subs, client)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	if sendCompletion {
		sub.sendCompletion()
	}
	sub.close()
	s.logger.Info("notify.unsubscribe",
		logpkg.Str("client", client),
		logpkg.Bool("completion", sendCompletion),
		logpkg.Uint64("sent", sub.SentCount()),
	)
	return true
}

// removeSubscription is the transport-closure cleanup hook; it only acts if
// the registered subscription is still the one the hook was created for.
func (s *Stream) removeSubscription(client string, sub *Subscription) {
	s.mu.Lock()
	if cur, ok := s.subs[client]; !ok || cur != sub {
		s.mu.Unlock()
		return
	}
	delete(s.subs, client)
	s.mu.Unlock()
	sub.close()
}

// hasActive reports whether the client holds a non-closed subscription on
// this stream.
func (s *Stream) hasActive(client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[client]
	return ok && sub.State() != SubStateClosed
}

// closeAll force-closes every subscription without completion markers.
// Used on server shutdown.
func (s *Stream) closeAll() {
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for client, sub := range s.subs {
		subs = append(subs, sub)
		delete(s.subs, client)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}
