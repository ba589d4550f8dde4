// Package progress converts the discrete (processed, total) counts pushed by
// a running sync into a bounded display value and fans it out to subscribed
// listeners over channels.
package progress

import "sync"

// Update is one raw progress report from the index updater.
type Update struct {
	Processed int
	Total     int
}

// Display is the derived, presentation-safe progress state. Max is never
// zero and Value never exceeds Max, so a ratio is always well defined.
// Indeterminate is true until the first report arrives.
type Display struct {
	Value         int
	Max           int
	Indeterminate bool
}

// Percent returns the completion ratio in [0, 1].
func (d Display) Percent() float64 {
	return float64(d.Value) / float64(d.Max)
}

// Tracker receives progress updates for one sync invocation and broadcasts
// the derived display to subscribers. The controller closes it on every exit
// path of the invocation, which closes all subscriber channels.
type Tracker struct {
	mu      sync.Mutex
	display Display
	closed  bool
	subs    map[chan Display]struct{}
}

// NewTracker returns a tracker in the indeterminate "preparing" state.
func NewTracker() *Tracker {
	return &Tracker{
		display: Display{Value: 0, Max: 1, Indeterminate: true},
		subs:    make(map[chan Display]struct{}),
	}
}

// Report pushes one raw update. Out-of-range counts are clamped rather than
// trusted: Max is at least 1 and Value is capped at Max. Reports after Close
// are dropped.
func (t *Tracker) Report(u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	maxVal := u.Total
	if maxVal < 1 {
		maxVal = 1
	}
	value := u.Processed
	if value < 0 {
		value = 0
	}
	if value > maxVal {
		value = maxVal
	}
	t.display = Display{Value: value, Max: maxVal}

	for ch := range t.subs {
		send(ch, t.display)
	}
}

// Display returns the current derived display state.
func (t *Tracker) Display() Display {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.display
}

// Subscribe registers a listener. The channel is buffered and carries the
// latest display only; it is closed by Close. Callers that finish early must
// call Unsubscribe to release it.
func (t *Tracker) Subscribe() chan Display {
	ch := make(chan Display, 1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		close(ch)
		return ch
	}
	t.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes a listener channel. Safe to call after
// Close, which already closed it.
func (t *Tracker) Unsubscribe(ch chan Display) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[ch]; !ok {
		return
	}
	delete(t.subs, ch)
	close(ch)
}

// Close tears down the tracker and closes every subscriber channel. It is
// idempotent; the owning controller defers it so teardown runs on every
// exit path of the sync invocation, including failures.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	for ch := range t.subs {
		delete(t.subs, ch)
		close(ch)
	}
}

// send delivers the latest display without blocking: a stale buffered value
// is dropped so the subscriber always sees the newest state next.
func send(ch chan Display, d Display) {
	for {
		select {
		case ch <- d:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
