package core

// TimeBase accumulates elapsed time from timer overflow events whose period
// is not a whole number of milliseconds.
//
// Each overflow adds a whole-millisecond increment plus a fixed fraction
// fracInc/fracDen. The fraction is kept in fract, and every time it reaches
// fracDen one extra millisecond is emitted. The long-run rate is therefore
// exact and the error never exceeds one millisecond. Microseconds use the
// same carry with a denominator of 1000 nanoseconds.
//
// All fields are written only by HandleOverflow. Readers must mask the
// overflow interrupt while copying them (see Clock).
type TimeBase struct {
	wholeMs uint32
	fracInc uint32
	fracDen uint32

	wholeUs uint32
	nsInc   uint32

	millis    uint32
	fract     uint32 // invariant: fract < fracDen
	micros    uint32
	nsFract   uint32 // invariant: nsFract < 1000
	overflows uint32
}

// NewTimeBase returns a TimeBase advancing wholeMs + fracInc/fracDen
// milliseconds per overflow. Microsecond tracking is derived from the same
// rate when it is exact to the nanosecond.
func NewTimeBase(wholeMs, fracInc, fracDen uint32) *TimeBase {
	if fracDen == 0 || fracInc >= fracDen {
		panic("timebase: fraction must satisfy inc < den")
	}
	tb := &TimeBase{wholeMs: wholeMs, fracInc: fracInc, fracDen: fracDen}
	if nanosPerMilli%fracDen == 0 {
		ns := uint64(wholeMs)*nanosPerMilli + uint64(fracInc)*(nanosPerMilli/uint64(fracDen))
		tb.setMicroRate(ns)
	}
	return tb
}

// NewTimeBaseForPlan derives the increments from the plan's exact overflow
// duration.
func NewTimeBaseForPlan(p Plan) *TimeBase {
	ns := p.NanosPerOverflow()
	frac := uint32(ns % nanosPerMilli)
	den := uint32(nanosPerMilli)
	if frac == 0 {
		den = 1
	} else {
		g := gcd(frac, den)
		frac /= g
		den /= g
	}
	tb := &TimeBase{wholeMs: uint32(ns / nanosPerMilli), fracInc: frac, fracDen: den}
	tb.setMicroRate(ns)
	return tb
}

func (tb *TimeBase) setMicroRate(nsPerOverflow uint64) {
	tb.wholeUs = uint32(nsPerOverflow / nanosPerMicro)
	tb.nsInc = uint32(nsPerOverflow % nanosPerMicro)
}

// Reset clears all accumulated time. Call before the overflow interrupt is
// enabled.
func (tb *TimeBase) Reset() {
	tb.millis = 0
	tb.fract = 0
	tb.micros = 0
	tb.nsFract = 0
	tb.overflows = 0
}

// HandleOverflow is the overflow interrupt handler. It must not be
// re-entered and runs in constant time.
func (tb *TimeBase) HandleOverflow() {
	m := tb.millis + tb.wholeMs
	f := tb.fract + tb.fracInc
	if f >= tb.fracDen {
		f -= tb.fracDen
		m++
	}
	tb.millis = m
	tb.fract = f

	us := tb.micros + tb.wholeUs
	ns := tb.nsFract + tb.nsInc
	if ns >= nanosPerMicro {
		ns -= nanosPerMicro
		us++
	}
	tb.micros = us
	tb.nsFract = ns

	tb.overflows++
}

// Increments returns the per-overflow whole milliseconds and fraction.
func (tb *TimeBase) Increments() (wholeMs, fracInc, fracDen uint32) {
	return tb.wholeMs, tb.fracInc, tb.fracDen
}

// MicrosPerOverflow returns the whole microseconds added per overflow.
func (tb *TimeBase) MicrosPerOverflow() uint32 {
	return tb.wholeUs
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
