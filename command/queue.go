package command

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Sender is the raw send primitive a flush writes to.
type Sender interface {
	Send([]byte) error
}

// Lane separates commands the server rate-limits from those it does not.
type Lane uint8

const (
	LaneLimited Lane = iota
	LaneUnlimited
)

func (l Lane) String() string {
	if l == LaneUnlimited {
		return "unlimited"
	}
	return "limited"
}

// LaneOf classifies a command.
func LaneOf(c Command) Lane {
	if c.Kind.Unlimited() {
		return LaneUnlimited
	}
	return LaneLimited
}

// Stats are running totals since the queue was created.
type Stats struct {
	Enqueued uint64 `json:"enqueued"`
	Rejected uint64 `json:"rejected"`
	Sent     uint64 `json:"sent"`
	Dropped  uint64 `json:"dropped"`
	Flushes  uint64 `json:"flushes"`
}

// Queue buffers commands between flushes. Flush is expected once per
// simulation cycle.
type Queue struct {
	mu        sync.Mutex
	limits    Limits
	unlimited []Command
	limited   []Command
	say       *rate.Limiter // nil: say is not throttled

	enqueued atomic.Uint64
	rejected atomic.Uint64
	sent     atomic.Uint64
	dropped  atomic.Uint64
	flushes  atomic.Uint64
}

type Option func(*Queue)

// WithSayLimit throttles the unlimited lane. Messages over the limit are
// dropped at flush time and counted in Stats.Dropped.
func WithSayLimit(r rate.Limit, burst int) Option {
	return func(q *Queue) { q.say = rate.NewLimiter(r, burst) }
}

func NewQueue(limits Limits, opts ...Option) *Queue {
	q := &Queue{limits: limits}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// SetLimits replaces the validation limits, typically once the server has
// sent its parameters.
func (q *Queue) SetLimits(l Limits) {
	q.mu.Lock()
	q.limits = l
	q.mu.Unlock()
}

// Enqueue validates c and appends it to its lane.
func (q *Queue) Enqueue(c Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.limits.Validate(c); err != nil {
		q.rejected.Add(1)
		return err
	}
	if LaneOf(c) == LaneUnlimited {
		q.unlimited = append(q.unlimited, c)
	} else {
		q.limited = append(q.limited, c)
	}
	q.enqueued.Add(1)
	return nil
}

// Pending returns copies of both lanes.
func (q *Queue) Pending() (unlimited, limited []Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Command(nil), q.unlimited...), append([]Command(nil), q.limited...)
}

// Len is the number of queued commands in both lanes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.unlimited) + len(q.limited)
}

// Flush sends the unlimited lane and then the limited lane, in FIFO order,
// and empties both. Both lanes are cleared even when a send fails; the
// error reports how far the flush got.
func (q *Queue) Flush(s Sender) (int, error) {
	q.mu.Lock()
	batch := make([]Command, 0, len(q.unlimited)+len(q.limited))
	for _, c := range q.unlimited {
		if q.say != nil && !q.say.Allow() {
			q.dropped.Add(1)
			continue
		}
		batch = append(batch, c)
	}
	batch = append(batch, q.limited...)
	q.unlimited = q.unlimited[:0]
	q.limited = q.limited[:0]
	q.mu.Unlock()

	q.flushes.Add(1)
	for i, c := range batch {
		if err := s.Send(c.Bytes()); err != nil {
			return i, fmt.Errorf("send %s: %w", c.Kind, err)
		}
		q.sent.Add(1)
	}
	return len(batch), nil
}

func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued: q.enqueued.Load(),
		Rejected: q.rejected.Load(),
		Sent:     q.sent.Load(),
		Dropped:  q.dropped.Load(),
		Flushes:  q.flushes.Load(),
	}
}
