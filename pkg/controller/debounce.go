package controller

import (
	"time"

	"github.com/hyperion-energy/hyperion/pkg/types"
)

// Debouncer collapses bursts of input changes into a single recompute. It is
// owned by the session loop; only the timer callback runs elsewhere and it
// just hands the timer's sequence number to notify.
type Debouncer struct {
	delay  time.Duration
	notify func(seq uint64)

	timer   *time.Timer
	seq     uint64
	armed   bool
	pending types.Inputs
}

// NewDebouncer creates a Debouncer that calls notify, from the timer's
// goroutine, when the quiet period after the last Arm has elapsed.
func NewDebouncer(delay time.Duration, notify func(seq uint64)) *Debouncer {
	return &Debouncer{
		delay:  delay,
		notify: notify,
	}
}

// Arm (re)starts the quiet period with in as the value to emit. A previously
// armed timer is cancelled and its value dropped.
func (d *Debouncer) Arm(in types.Inputs) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	d.armed = true
	d.pending = in

	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		d.notify(seq)
	})
}

// Expire is called on the owning loop once notify fired for seq. It returns
// the latest armed value and true exactly once per quiet period. A timer that
// fired just before being superseded by Arm or Stop reports false.
func (d *Debouncer) Expire(seq uint64) (types.Inputs, bool) {
	if !d.armed || seq != d.seq {
		return types.Inputs{}, false
	}
	d.armed = false
	d.timer = nil
	return d.pending, true
}

// Armed reports whether a quiet period is running.
func (d *Debouncer) Armed() bool {
	return d.armed
}

// Stop cancels the live timer without emitting.
func (d *Debouncer) Stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	// invalidate a notify that is already on its way
	d.seq++
	d.armed = false
}
