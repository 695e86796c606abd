package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid changes to the watched file into one event.
// Changes within the window are merged:
//   - CREATE + MODIFY = CREATE (file is still new)
//   - CREATE + DELETE = nothing (file never really existed)
//   - MODIFY + DELETE = DELETE (file is gone)
//   - DELETE + CREATE = MODIFY (file was replaced)
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending *FileEvent
	firstOp Operation
	timer   *time.Timer
	output  chan FileEvent
	stopped bool
}

// NewDebouncer creates a debouncer that emits after window of quiet.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		output: make(chan FileEvent, 1),
	}
}

// Add records a change and restarts the quiet window.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.pending == nil {
		ev := event
		d.pending = &ev
		d.firstOp = event.Operation
	} else {
		d.pending = coalesce(d.firstOp, *d.pending, event)
		if d.pending == nil {
			if d.timer != nil {
				d.timer.Stop()
			}
			return
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// coalesce merges next into existing. Returns nil if they cancel out.
func coalesce(firstOp Operation, existing, next FileEvent) *FileEvent {
	switch firstOp {
	case OpCreate:
		switch next.Operation {
		case OpModify:
			existing.Timestamp = next.Timestamp
			return &existing
		case OpDelete:
			return nil
		}
	case OpDelete:
		if next.Operation == OpCreate {
			next.Operation = OpModify
			return &next
		}
	}
	return &next
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || d.pending == nil {
		return
	}

	event := *d.pending
	d.pending = nil

	// The handler re-reads the file, so a queued event already covers this one.
	select {
	case d.output <- event:
	default:
		slog.Debug("reload_already_queued", slog.String("path", event.Path))
	}
}

// Output returns the channel of debounced events.
func (d *Debouncer) Output() <-chan FileEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel.
// Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
