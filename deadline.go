package waiton

import "time"

// runDeadline races the aggregator's completion against a single global
// timer. A zero duration means no deadline: fired never signals.
type runDeadline struct {
	timer *time.Timer
	c     <-chan time.Time
}

func newRunDeadline(d time.Duration) *runDeadline {
	if d <= 0 {
		return &runDeadline{}
	}
	t := time.NewTimer(d)
	return &runDeadline{timer: t, c: t.C}
}

// fired signals once the deadline elapses. On a zero-duration deadline this
// channel is nil and never selects.
func (d *runDeadline) fired() <-chan time.Time {
	return d.c
}

// stop cancels the timer; safe to call on a zero-duration deadline.
func (d *runDeadline) stop() {
	if d.timer != nil {
		d.timer.Stop()
	}
}
