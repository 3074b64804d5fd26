// Package debounce coalesces bursts of triggers into one delayed action and
// lets callers force that action synchronously.
//
// The Debouncer is a small state machine:
//
//	idle      --Schedule-->  pending
//	pending   --Schedule-->  pending (timer reset)
//	pending   --timer----->  in-flight
//	pending   --Flush----->  in-flight (immediately)
//	in-flight --done------>  idle
//
// A Schedule during in-flight moves to pending again; the next run waits for
// the current one to finish, so runs never overlap. Flush awaits the latest
// run, which covers every trigger issued before the Flush call.
package debounce

import (
	"context"
	"sync"
	"time"
)

// State is the observable phase of a Debouncer.
type State int

const (
	Idle State = iota
	Pending
	InFlight
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case InFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// Func is the debounced action.
type Func func(ctx context.Context) error

// run is one execution of the action.
type run struct {
	done chan struct{}
	err  error
}

// Debouncer delays Func until Wait has elapsed without a new Schedule.
type Debouncer struct {
	wait time.Duration
	fn   Func

	mu       sync.Mutex
	pending  bool
	gen      uint64
	timer    *time.Timer
	inflight *run
	runs     int
}

// New returns an idle Debouncer.
func New(wait time.Duration, fn Func) *Debouncer {
	return &Debouncer{wait: wait, fn: fn}
}

// Schedule arms or re-arms the timer.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// fire runs the action if the timer generation is still current.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending || gen != d.gen {
		return
	}
	d.pending = false
	d.timer = nil
	d.startLocked()
}

// startLocked launches a run chained behind any in-flight run.
// The caller must hold d.mu.
func (d *Debouncer) startLocked() *run {
	r := &run{done: make(chan struct{})}
	prev := d.inflight
	d.inflight = r
	d.runs++

	go func() {
		if prev != nil {
			<-prev.done
		}
		r.err = d.fn(context.Background())
		close(r.done)

		d.mu.Lock()
		if d.inflight == r {
			d.inflight = nil
		}
		d.mu.Unlock()
	}()
	return r
}

// Flush cancels the timer, runs the action now if a trigger was pending, and
// waits for the latest run. It reports whether a run was awaited and that
// run's error. A done ctx stops the wait, not the run.
func (d *Debouncer) Flush(ctx context.Context) (bool, error) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	var r *run
	if d.pending {
		d.pending = false
		d.gen++
		r = d.startLocked()
	} else {
		r = d.inflight
	}
	d.mu.Unlock()

	if r == nil {
		return false, nil
	}
	select {
	case <-r.done:
		return true, r.err
	case <-ctx.Done():
		return true, ctx.Err()
	}
}

// Stop cancels a pending timer without running the action.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
}

// State returns the current phase.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.pending:
		return Pending
	case d.inflight != nil:
		return InFlight
	default:
		return Idle
	}
}

// Runs returns how many times the action has been started.
func (d *Debouncer) Runs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.runs
}
