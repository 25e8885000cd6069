package mediator

import (
	"strings"
	"sync"
	"time"

	"github.com/jongik-sv/kirosync/internal/changeset"
)

type debouncedChange struct {
	event     changeset.ChangeEvent
	sessionID string
}

// debouncer coalesces rapid-fire changes to the same element into a single
// call to fire, delayed by interval after the last submission — the
// standard last-write-wins debounce, used here to fold a drag's stream of
// position updates into one broadcast instead of one per mouse-move tick.
type debouncer struct {
	interval time.Duration
	fire     func(debouncedChange)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(interval time.Duration, fire func(debouncedChange)) *debouncer {
	return &debouncer{
		interval: interval,
		fire:     fire,
		timers:   make(map[string]*time.Timer),
	}
}

// timerKey keys a pending timer by element id and change kind: position and
// property edits on the same element debounce independently so a rapid drag
// (position) doesn't swallow a concurrent rename (property), or vice versa.
func timerKey(elementID string, kind changeset.Kind) string {
	return string(kind) + "\x00" + elementID
}

// Submit (re)starts the debounce timer for (ev.ElementID, ev.Kind). Only the
// most recent submission for that pair within the debounce window is fired.
func (d *debouncer) Submit(ev changeset.ChangeEvent, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := timerKey(ev.ElementID, ev.Kind)
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	pending := debouncedChange{event: ev, sessionID: sessionID}
	d.timers[key] = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		d.fire(pending)
	})
}

// Flush cancels every pending timer for elementID, regardless of kind,
// without firing them. Used when an element is removed before its debounce
// window elapses.
func (d *debouncer) Flush(elementID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	suffix := "\x00" + elementID
	for key, t := range d.timers {
		if strings.HasSuffix(key, suffix) {
			t.Stop()
			delete(d.timers, key)
		}
	}
}
