package bus

import "sync"

// Sender is a cross-thread adapter that funnels background-task completions
// into the Bus. Workers (the Directory Client, Ping/Query Client, Auth
// Manager's login call, mod-update polling) post through a Sender; the
// owning thread drains it and republishes on the Bus (spec.md §4.13, §5
// "Workers communicate with the UI thread exclusively by posting events to
// a cross-thread sender that funnels into the bus").
type Sender struct {
	mu      sync.Mutex
	pending []func(*Bus)
}

// NewSender creates a Sender bound to no particular Bus; the Bus is supplied
// at Flush time so a Sender can be constructed before its Bus exists.
func NewSender() *Sender {
	return &Sender{}
}

// Post enqueues fn to run against the Bus on the next Flush. Safe to call
// from any goroutine.
func (s *Sender) Post(fn func(*Bus)) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// PostEvent is a convenience wrapper around Post that publishes e.
func PostEvent[E any](s *Sender, e E) {
	s.Post(func(b *Bus) { Publish(b, e) })
}

// Flush runs every pending posted function against b, in FIFO order, then
// calls b.Drain(). Must be called from the Bus's owning thread.
func (s *Sender) Flush(b *Bus) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn(b)
	}
	if len(pending) == 0 {
		b.Drain()
	}
}
