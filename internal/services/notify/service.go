package notifysvc

import (
	"sort"
	"sync"

	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/config"
	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/id"
	logpkg "github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/log"
)

// Options carries the injectable collaborators of a Service. Zero values
// select production defaults.
type Options struct {
	Logger logpkg.Logger
	Clock  Clock
	Filter Filter
}

// Service is the event-notification front door: it owns the stream table,
// mints event identifiers, routes dispatches, and enforces that a client
// holds at most one active subscription across all streams.
type Service struct {
	logger logpkg.Logger
	clock  Clock
	ids    *id.Generator
	pool   *replayPool

	// streams is immutable after construction; the table itself needs no
	// lock, only the Streams behind it synchronize.
	streams       map[string]*Stream
	defaultStream *Stream

	// mu serializes subscription admission so the one-active-per-client
	// check and the registration it guards are a single step.
	mu sync.Mutex

	closeOnce sync.Once
}

// New builds a Service from configuration with production collaborators.
func New(cfg config.Config) *Service {
	return NewWithOptions(cfg, Options{})
}

// NewWithLogger builds a Service that logs through the given logger.
func NewWithLogger(cfg config.Config, logger logpkg.Logger) *Service {
	return NewWithOptions(cfg, Options{Logger: logger})
}

// NewWithOptions builds a Service with explicit collaborators, primarily
// for tests that need a deterministic clock or a canned filter.
func NewWithOptions(cfg config.Config, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.With(logpkg.Component("notify"))
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	filter := opts.Filter
	if filter == nil {
		filter = NewCELFilter()
	}

	svc := &Service{
		logger:  logger,
		clock:   clock,
		ids:     id.NewGenerator(),
		pool:    newReplayPool(cfg.ReplayWorkers),
		streams: map[string]*Stream{},
	}

	defName := cfg.DefaultStreamName
	if defName == "" {
		defName = config.Default().DefaultStreamName
	}
	svc.defaultStream = newStream(defName, "default stream carrying all events", cfg.DefaultStreamReplay, cfg.ReplayLogCapacity, clock, filter, svc.pool, logger)
	svc.streams[defName] = svc.defaultStream

	for _, def := range cfg.Streams {
		if def.Name == defName {
			continue
		}
		svc.streams[def.Name] = newStream(def.Name, def.Description, def.ReplaySupport, cfg.ReplayLogCapacity, clock, filter, svc.pool, logger)
	}

	logger.Info("notify.service started",
		logpkg.Str("default_stream", defName),
		logpkg.Int("streams", len(svc.streams)),
	)
	return svc
}

// Dispatch stamps the event with a fresh identifier and current time, then
// routes it to the named stream and, always, to the default stream. Events
// naming an unknown stream still reach the default stream.
func (svc *Service) Dispatch(stream string, name string, payload []byte) Event {
	eid := svc.ids.Next()
	ev := Event{
		ID:      eid,
		Name:    name,
		TimeMs:  svc.clock.Now().UnixMilli(),
		Payload: payload,
	}

	target, ok := svc.streams[stream]
	if !ok && stream != "" {
		svc.logger.Warn("notify.dispatch unknown stream",
			logpkg.Str("stream", stream),
			logpkg.Str("event", name),
		)
	}
	if ok && target != svc.defaultStream {
		target.dispatch(ev)
	}
	svc.defaultStream.dispatch(ev)
	return ev
}

// CreateSubscription admits one subscription for the client on the named
// stream. A client with a live subscription anywhere is refused until that
// subscription ends.
func (svc *Service) CreateSubscription(client string, req SubscribeRequest, ch Channel) (*Subscription, error) {
	stream, err := svc.lookupStream(req.Stream)
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, s := range svc.streams {
		if s.hasActive(client) {
			return nil, errAlreadySubscribed(client)
		}
	}
	return stream.createSubscription(client, req, ch)
}

// lookupStream resolves a requested stream name; empty names the default
// stream.
func (svc *Service) lookupStream(name string) (*Stream, error) {
	if name == "" {
		return svc.defaultStream, nil
	}
	stream, ok := svc.streams[name]
	if !ok {
		return nil, errStreamNotFound(name)
	}
	return stream, nil
}

// IsActiveSubscription reports whether the client currently holds a live
// subscription on any stream.
func (svc *Service) IsActiveSubscription(client string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, s := range svc.streams {
		if s.hasActive(client) {
			return true
		}
	}
	return false
}

// CloseSubscription administratively ends the client's subscription, with
// no completion marker. It reports whether a subscription was found.
func (svc *Service) CloseSubscription(client string) bool {
	for _, s := range svc.streams {
		if s.stopSubscription(client, false) {
			return true
		}
	}
	return false
}

// Resubscribe closes any live subscription the client holds and admits a
// new one in a single admission-lock hold, so no competing client can slip
// in between.
func (svc *Service) Resubscribe(client string, req SubscribeRequest, ch Channel) (*Subscription, error) {
	stream, err := svc.lookupStream(req.Stream)
	if err != nil {
		return nil, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, s := range svc.streams {
		s.stopSubscription(client, false)
	}
	return stream.createSubscription(client, req, ch)
}

// Streams returns summaries of every stream, sorted by name.
func (svc *Service) Streams() []StreamInfo {
	infos := make([]StreamInfo, 0, len(svc.streams))
	for _, s := range svc.streams {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// StreamInfo returns the summary of one stream.
func (svc *Service) StreamInfo(name string) (StreamInfo, bool) {
	s, ok := svc.streams[name]
	if !ok {
		return StreamInfo{}, false
	}
	return s.Info(), true
}

// Close stops the replay workers and force-closes every subscription.
func (svc *Service) Close() {
	svc.closeOnce.Do(func() {
		for _, s := range svc.streams {
			s.closeAll()
		}
		svc.pool.close()
		svc.logger.Info("notify.service stopped")
	})
}
