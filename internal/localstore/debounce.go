package localstore

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Debounced coalesces a burst of triggers into a single save after a quiet
// window. Mutations arriving faster than the window keep pushing the write
// out; an abrupt shutdown can lose at most one window of changes, which is
// acceptable because the in-memory log that triggered the write re-derives
// the same state.
type Debounced struct {
	delay time.Duration
	save  func() error
	log   zerolog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// NewDebounced wraps save in a debouncer with the given quiet window.
func NewDebounced(delay time.Duration, save func() error, log zerolog.Logger) *Debounced {
	return &Debounced{delay: delay, save: save, log: log}
}

// Trigger schedules a save after the quiet window, restarting the window if
// one is already pending.
func (d *Debounced) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		if err := d.save(); err != nil {
			d.log.Error().Err(err).Msg("debounced save failed")
		}
	})
}

// Flush cancels any pending timer and saves immediately.
func (d *Debounced) Flush() error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.save()
}

// Close stops the debouncer and performs a final save.
func (d *Debounced) Close() error {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	return d.save()
}
