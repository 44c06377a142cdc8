package eventlog

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/BroadbandForum/obbaa-netconf-stack-sub017/pkg/id"
)

// DefaultCapacity is the bucket bound used when NewLog is given a
// non-positive capacity.
const DefaultCapacity = 100_000

// Event is a single notification recorded against a stream.
type Event struct {
	// ID orders events that share a timestamp bucket.
	ID id.ID
	// Name is the notification type, e.g. "netconf-config-change".
	Name string
	// TimeMs is the event time in unix milliseconds.
	TimeMs int64
	// Payload is the notification body (JSON). Treated as immutable once
	// appended.
	Payload []byte
}

// bucket holds every event recorded at one exact timestamp, in insertion
// order.
type bucket struct {
	tsMs   int64
	events []Event
}

// QueryOptions selects a time range. StartMs is inclusive; StopMs is
// inclusive when positive and means "no upper bound" when 0.
type QueryOptions struct {
	StartMs int64
	StopMs  int64
}

// Log is a bounded, append-only, time-indexed store of events for one
// stream.
type Log struct {
	mu        sync.Mutex
	capacity  int
	tree      *btree.BTreeG[*bucket]
	createdMs int64
}

// NewLog returns an empty log retaining at most capacity timestamp buckets.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity:  capacity,
		tree:      btree.NewG(16, func(a, b *bucket) bool { return a.tsMs < b.tsMs }),
		createdMs: time.Now().UnixMilli(),
	}
}

// Append records ev under its timestamp bucket, creating the bucket if
// absent. When creating a bucket would exceed capacity, the single oldest
// bucket is evicted first.
func (l *Log) Append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := &bucket{tsMs: ev.TimeMs}
	b, ok := l.tree.Get(key)
	if !ok {
		if l.tree.Len() >= l.capacity {
			l.tree.DeleteMin()
		}
		b = key
		l.tree.ReplaceOrInsert(b)
	}
	b.events = append(b.events, ev)
}

// Query returns a snapshot of every event whose bucket timestamp falls in
// the requested range, ascending by timestamp, insertion order within a
// bucket. Retention state is not touched.
func (l *Log) Query(opts QueryOptions) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	collect := func(b *bucket) bool {
		out = append(out, b.events...)
		return true
	}
	from := &bucket{tsMs: opts.StartMs}
	if opts.StopMs > 0 {
		l.tree.AscendRange(from, &bucket{tsMs: opts.StopMs + 1}, collect)
	} else {
		l.tree.AscendGreaterOrEqual(from, collect)
	}
	return out
}

// OldestRetainedMs returns the lowest timestamp currently present, or false
// when the log is empty.
func (l *Log) OldestRetainedMs() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.tree.Min()
	if !ok {
		return 0, false
	}
	return b.tsMs, true
}

// CreatedAtMs is the log creation timestamp in unix milliseconds.
func (l *Log) CreatedAtMs() int64 { return l.createdMs }

// Len returns the number of retained timestamp buckets.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tree.Len()
}

// Capacity returns the configured bucket bound.
func (l *Log) Capacity() int { return l.capacity }
