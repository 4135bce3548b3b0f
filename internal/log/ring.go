package log

import (
	"fmt"
	"sync"
	"time"
)

// Logger receives diagnostics from the scanner and the merge preview analyzer.
type Logger interface {
	Printf(format string, args ...any)
}

// Discard is a Logger that drops everything.
var Discard Logger = discard{}

type discard struct{}

func (discard) Printf(string, ...any) {}

// Entry is a single diagnostics message.
type Entry struct {
	Time    time.Time
	Message string
}

// DefaultRingCapacity is used when a ring is created with a non-positive capacity.
const DefaultRingCapacity = 200

// Ring keeps the most recent diagnostics in a fixed-size buffer.
// It is safe for concurrent use.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	seen    map[string]struct{}
	forward func(format string, args ...any)
	now     func() time.Time
}

// RingOption configures a Ring.
type RingOption func(*Ring)

// WithForward also sends every message to fn, typically the debug log Printf.
func WithForward(fn func(format string, args ...any)) RingOption {
	return func(r *Ring) {
		r.forward = fn
	}
}

// NewRing creates a ring holding at most capacity entries.
func NewRing(capacity int, opts ...RingOption) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	r := &Ring{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Printf records a formatted message, evicting the oldest one when full.
func (r *Ring) Printf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	r.mu.Lock()
	r.entries[r.next] = Entry{Time: r.now(), Message: msg}
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	forward := r.forward
	r.mu.Unlock()

	if forward != nil {
		forward("%s", msg)
	}
}

// PrintOnce records a message only the first time key is seen since the last Reset.
func (r *Ring) PrintOnce(key, format string, args ...any) {
	r.mu.Lock()
	if _, ok := r.seen[key]; ok {
		r.mu.Unlock()
		return
	}
	if r.seen == nil {
		r.seen = map[string]struct{}{}
	}
	r.seen[key] = struct{}{}
	r.mu.Unlock()

	r.Printf(format, args...)
}

// Entries returns the buffered messages, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]Entry(nil), r.entries[:r.next]...)
	}
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.next:]...)
	return append(out, r.entries[:r.next]...)
}

// Len returns the number of buffered messages.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.entries)
	}
	return r.next
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.entries)
}

// Reset drops every buffered message.
func (r *Ring) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	clear(r.seen)
	r.next = 0
	r.full = false
}
