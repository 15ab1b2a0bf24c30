package core

import "runtime"

// OverflowTimer is the hardware timer that drives the TimeBase.
type OverflowTimer interface {
	// Start programs the divider and TOP from the plan, routes the overflow
	// interrupt to handler and enables it.
	Start(plan Plan, handler func()) error

	// MaskOverflow disables only the overflow interrupt source and reports
	// whether it was enabled. An overflow occurring while masked stays latched.
	MaskOverflow() bool

	// UnmaskOverflow restores the state returned by MaskOverflow. A latched
	// overflow is serviced as soon as the source is enabled again.
	UnmaskOverflow(wasEnabled bool)
}

// CounterReader is implemented by timers whose running counter can be read,
// giving the clock sub-millisecond resolution.
type CounterReader interface {
	Counter() uint16
	OverflowPending() bool
}

// ClockSnapshot is one consistent copy of the clock state.
type ClockSnapshot struct {
	Millis    uint32
	Micros    uint32
	Overflows uint32
}

// Clock is the query surface over a TimeBase. Reads copy the counters with
// the overflow interrupt masked, so a value is never a mix of pre- and
// post-overflow state.
type Clock struct {
	plan    Plan
	tb      *TimeBase
	hw      OverflowTimer
	counter CounterReader // nil when the timer cannot be read
	tickNs  uint64
	started bool
}

// NewClock creates a clock for the plan on the given hardware timer.
func NewClock(plan Plan, hw OverflowTimer) *Clock {
	c := &Clock{
		plan:   plan,
		tb:     NewTimeBaseForPlan(plan),
		hw:     hw,
		tickNs: plan.TickNanos(),
	}
	if cr, ok := hw.(CounterReader); ok {
		c.counter = cr
	}
	return c
}

// Start clears the TimeBase and arms the overflow interrupt.
func (c *Clock) Start() error {
	if c.started {
		return ErrClockRunning
	}
	c.tb.Reset()
	if err := c.hw.Start(c.plan, c.tb.HandleOverflow); err != nil {
		return err
	}
	c.started = true
	RecordEvent(EvtClockStart, uint8(c.plan.Class), 0, uint32(c.plan.Divider))
	DebugPrintln("[CLOCK] started class=" + c.plan.Class.String() +
		" cpu=" + utoa(c.plan.CPUFrequency) +
		" div=" + utoa(uint32(c.plan.Divider)) +
		" top=" + utoa(uint32(c.plan.OverflowPeriod)))
	return nil
}

// Plan returns the timer plan backing the clock.
func (c *Clock) Plan() Plan { return c.plan }

// TimeBase returns the accumulator driven by the overflow interrupt.
func (c *Clock) TimeBase() *TimeBase { return c.tb }

// HasMicros reports whether Micros has sub-millisecond resolution.
func (c *Clock) HasMicros() bool { return c.counter != nil }

// Millis returns the milliseconds elapsed since Start, wrapping at 2^32.
func (c *Clock) Millis() uint32 {
	was := c.hw.MaskOverflow()
	m := c.tb.millis
	c.hw.UnmaskOverflow(was)
	return m
}

// Micros returns the microseconds elapsed since Start, wrapping at 2^32.
// Without a readable counter the resolution falls back to one millisecond.
func (c *Clock) Micros() uint32 {
	if c.counter == nil {
		return c.Millis() * 1000
	}
	was := c.hw.MaskOverflow()
	us := c.microsMasked()
	c.hw.UnmaskOverflow(was)
	return us
}

// Snapshot copies millis, micros and the overflow count in one masked window.
func (c *Clock) Snapshot() ClockSnapshot {
	was := c.hw.MaskOverflow()
	s := ClockSnapshot{Millis: c.tb.millis, Overflows: c.tb.overflows}
	if c.counter != nil {
		s.Micros = c.microsMasked()
	} else {
		s.Micros = s.Millis * 1000
	}
	c.hw.UnmaskOverflow(was)
	return s
}

// microsMasked must run with the overflow interrupt masked.
func (c *Clock) microsMasked() uint32 {
	us := c.tb.micros
	// Counter first, then the flag: a wrapped counter with the flag set means
	// an overflow happened that the handler has not accounted for yet.
	cnt := c.counter.Counter()
	if c.counter.OverflowPending() && cnt < c.plan.OverflowPeriod {
		us += c.tb.wholeUs
	}
	return us + uint32(uint64(cnt)*c.tickNs/nanosPerMicro)
}

// Delay busy-waits for at least ms milliseconds.
func (c *Clock) Delay(ms uint32) {
	start := c.Millis()
	for c.Millis()-start < ms {
		runtime.Gosched()
	}
}

// DelayMicroseconds busy-waits for at least us microseconds.
func (c *Clock) DelayMicroseconds(us uint32) {
	start := c.Micros()
	for c.Micros()-start < us {
		runtime.Gosched()
	}
}
