package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	notifysvc "github.com/BroadbandForum/obbaa-netconf-stack-sub017/internal/services/notify"
)

var (
	errStreamEnded  = errors.New("sse: stream ended")
	errSlowConsumer = errors.New("sse: subscriber not reading, buffer full")
)

// sseBufLen is the per-subscriber frame buffer decoupling delivery from
// socket writes.
const sseBufLen = 1024

// sseFrame is one wire frame; last marks the frame that ends the stream.
type sseFrame struct {
	event string
	data  []byte
	last  bool
}

// sseChannel adapts an HTTP response into a notification channel using
// Server-Sent Events. Sends enqueue frames; a per-subscriber writer pump
// owns the ResponseWriter so a slow socket never blocks delivery. Live
// sends fail with errSlowConsumer when the buffer is full (the core then
// drops the laggard); replay sends block via SendEventWait so backpressure
// lands on the replay worker instead.
//
// Notifications are sent as "notification" events; the replayComplete and
// notificationComplete markers are their own event types with no data.
type sseChannel struct {
	w http.ResponseWriter
	r *http.Request

	frames chan sseFrame
	stop   chan struct{} // server-side terminate request
	done   chan struct{} // writer pump exited

	stopOnce sync.Once
}

func newSSEChannel(w http.ResponseWriter, r *http.Request) *sseChannel {
	return &sseChannel{
		w:      w,
		r:      r,
		frames: make(chan sseFrame, sseBufLen),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// start launches the writer pump. Called once the subscription is
// admitted; frames enqueued before then (an early replay) wait in the
// buffer.
func (c *sseChannel) start() {
	go c.writeLoop()
}

func (c *sseChannel) writeLoop() {
	defer close(c.done)
	// Commit status and headers before the first frame.
	c.flushNow()
	for {
		select {
		case f := <-c.frames:
			if err := c.writeFrame(f); err != nil {
				return
			}
			if f.last {
				return
			}
		case <-c.stop:
			// Flush frames accepted before the stop so a terminal
			// marker enqueued just ahead of it still hits the wire.
			c.drain()
			return
		case <-c.r.Context().Done():
			return
		}
	}
}

func (c *sseChannel) drain() {
	for {
		select {
		case f := <-c.frames:
			if err := c.writeFrame(f); err != nil {
				return
			}
			if f.last {
				return
			}
		default:
			return
		}
	}
}

func (c *sseChannel) writeFrame(f sseFrame) error {
	if _, err := c.w.Write([]byte("event: " + f.event + "\n")); err != nil {
		return err
	}
	if _, err := c.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if len(f.data) > 0 {
		if _, err := c.w.Write(f.data); err != nil {
			return err
		}
	}
	if _, err := c.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	c.flushNow()
	return nil
}

func (c *sseChannel) flushNow() {
	if f, ok := c.w.(http.Flusher); ok {
		f.Flush()
	}
}

// enqueue hands a frame to the pump without blocking.
func (c *sseChannel) enqueue(f sseFrame) error {
	if err := c.ended(); err != nil {
		return err
	}
	select {
	case c.frames <- f:
		return nil
	default:
		return errSlowConsumer
	}
}

// enqueueWait hands a frame to the pump, waiting for buffer space.
func (c *sseChannel) enqueueWait(f sseFrame) error {
	if err := c.ended(); err != nil {
		return err
	}
	select {
	case c.frames <- f:
		return nil
	case <-c.stop:
		return errStreamEnded
	case <-c.done:
		return errStreamEnded
	case <-c.r.Context().Done():
		return c.r.Context().Err()
	}
}

func (c *sseChannel) ended() error {
	select {
	case <-c.stop:
		return errStreamEnded
	case <-c.done:
		return errStreamEnded
	case <-c.r.Context().Done():
		return c.r.Context().Err()
	default:
		return nil
	}
}

type sseEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	EventTime int64  `json:"eventTime"`
	Payload   []byte `json:"payload,omitempty"`
}

func marshalEvent(ev notifysvc.Event) ([]byte, error) {
	return json.Marshal(sseEvent{
		ID:        ev.ID.String(),
		Name:      ev.Name,
		EventTime: ev.TimeMs,
		Payload:   ev.Payload,
	})
}

func (c *sseChannel) SendEvent(ev notifysvc.Event) error {
	b, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return c.enqueue(sseFrame{event: "notification", data: b})
}

// SendEventWait is the replay-path send: it applies backpressure instead
// of failing when the buffer is full.
func (c *sseChannel) SendEventWait(ev notifysvc.Event) error {
	b, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	return c.enqueueWait(sseFrame{event: "notification", data: b})
}

func (c *sseChannel) SendReplayComplete() error {
	return c.enqueueWait(sseFrame{event: "replayComplete"})
}

// SendNotificationComplete emits the terminal marker; the pump ends the
// stream after writing it, releasing the handler goroutine.
func (c *sseChannel) SendNotificationComplete() error {
	err := c.enqueue(sseFrame{event: "notificationComplete", last: true})
	if err != nil {
		c.Close()
	}
	return err
}

// Close ends the stream server-side. The pump flushes frames accepted
// before the close, then exits and the handler returns.
func (c *sseChannel) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// OnClose watches for the client disconnecting.
func (c *sseChannel) OnClose(fn func()) {
	go func() {
		select {
		case <-c.r.Context().Done():
			fn()
		case <-c.done:
		}
	}()
}
