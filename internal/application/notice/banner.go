// Package notice holds a short-lived status message that clears itself.
package notice

import (
	"sync"
	"time"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 3 * time.Second

// Kind classifies a notice.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notice is one status message.
type Notice struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	ShownAt time.Time `json:"shown_at"`
}

// Banner holds at most one Notice.  Showing a new notice cancels the pending
// clear of the previous one.  The zero value is not usable; use NewBanner.
type Banner struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Notice
	timer   *time.Timer
	gen     uint64
	onClear func(Notice)
}

// NewBanner returns a Banner that clears notices after ttl.  A ttl <= 0
// selects DefaultTTL.  onClear, if set, runs after a notice expires.
func NewBanner(ttl time.Duration, onClear func(Notice)) *Banner {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Banner{ttl: ttl, onClear: onClear}
}

// Show replaces the current notice and restarts the clear timer.
func (b *Banner) Show(kind Kind, message string) Notice {
	n := Notice{Kind: kind, Message: message, ShownAt: time.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.gen++
	gen := b.gen
	b.current = &n
	b.timer = time.AfterFunc(b.ttl, func() { b.expire(gen) })
	return n
}

func (b *Banner) expire(gen uint64) {
	b.mu.Lock()
	// A Show after this timer fired but before we took the lock wins.
	if gen != b.gen || b.current == nil {
		b.mu.Unlock()
		return
	}
	cleared := *b.current
	b.current = nil
	b.timer = nil
	onClear := b.onClear
	b.mu.Unlock()

	if onClear != nil {
		onClear(cleared)
	}
}

// Current returns the visible notice, if any.
func (b *Banner) Current() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Notice{}, false
	}
	return *b.current, true
}

// Clear removes the notice immediately without calling onClear.
func (b *Banner) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
	b.current = nil
}

// TTL returns the display duration.
func (b *Banner) TTL() time.Duration { return b.ttl }
