// Package clock turns a stream of buffer timestamps into elapsed seconds
// since the first buffer of a render session.
package clock

import "time"

// Clock measures elapsed time against the first timestamp it observes.
//
// glvis keeps two clocks per session: one fed from audio buffer timestamps,
// which drive timeline decisions, and one fed from video frame timestamps,
// used only to log drift.
type Clock struct {
	epoch    time.Duration
	captured bool
	last     float64
}

// Elapsed returns the seconds between ts and the session epoch. The first
// call captures ts as the epoch and returns 0. Timestamps earlier than the
// epoch report 0. A negative ts means the buffer carried no timestamp; the
// previous value is returned.
func (c *Clock) Elapsed(ts time.Duration) float64 {
	if ts < 0 {
		return c.last
	}
	if !c.captured {
		c.epoch = ts
		c.captured = true
		c.last = 0
		return 0
	}
	d := ts - c.epoch
	if d < 0 {
		d = 0
	}
	c.last = d.Seconds()
	return c.last
}

// Captured reports whether the epoch has been taken.
func (c *Clock) Captured() bool { return c.captured }

// Last returns the most recent value returned by Elapsed.
func (c *Clock) Last() float64 { return c.last }

// Reset forgets the epoch so the next Elapsed call starts a new session.
func (c *Clock) Reset() {
	*c = Clock{}
}
