package core

// TimerClass identifies the kind of hardware timer backing the system clock.
type TimerClass uint8

const (
	TimerClassA  TimerClass = iota // 8-bit counter, synchronous prescaler
	TimerClassB                    // 8-bit counter, asynchronous prescaler
	TimerClassD                    // 10-bit high speed counter with its own clock network
	TimerClass16                   // 16-bit counter, not usable as the clock source
)

func (c TimerClass) String() string {
	switch c {
	case TimerClassA:
		return "A"
	case TimerClassB:
		return "B"
	case TimerClassD:
		return "D"
	case TimerClass16:
		return "16"
	}
	return "?" + utoa(uint32(c))
}

const (
	nanosPerSecond = 1000000000
	nanosPerMilli  = 1000000
	nanosPerMicro  = 1000
)

// timerClassInfo describes what one class of timer hardware can do.
type timerClassInfo struct {
	top      uint16   // counter TOP; one overflow is top+1 ticks
	dividers []uint16 // available prescalers, ascending
	brackets []uint32 // supported CPU frequencies in Hz
}

var timerClasses = [...]timerClassInfo{
	TimerClassA: {
		top:      0xFF,
		dividers: []uint16{1, 8, 64, 256, 1024},
		brackets: []uint32{1000000, 4000000, 8000000, 16000000, 20000000},
	},
	TimerClassB: {
		top:      0xFF,
		dividers: []uint16{1, 8, 32, 64, 128, 256, 1024},
		brackets: []uint32{1000000, 4000000, 8000000, 16000000, 20000000},
	},
	TimerClassD: {
		top: 0x1FD,
		dividers: []uint16{1, 2, 4, 8, 16, 32, 64, 128, 256, 512,
			1024, 2048, 4096, 8192, 16384},
		brackets: []uint32{1000000, 4000000, 8000000, 12000000, 16000000, 20000000},
	},
	// TimerClass16 has no entry and is rejected.
}

// Plan is the immutable timer configuration backing the clock.
type Plan struct {
	Class          TimerClass
	OverflowPeriod uint16 // TOP register value
	Divider        uint16
	CPUFrequency   uint32
}

// OverflowTicks returns the number of counter ticks per overflow.
func (p Plan) OverflowTicks() uint32 {
	return uint32(p.OverflowPeriod) + 1
}

// NanosPerOverflow returns the real duration of one overflow.
func (p Plan) NanosPerOverflow() uint64 {
	return uint64(p.OverflowTicks()) * uint64(p.Divider) * nanosPerSecond / uint64(p.CPUFrequency)
}

// TickNanos returns the duration of one counter tick, truncated.
func (p Plan) TickNanos() uint64 {
	return uint64(p.Divider) * nanosPerSecond / uint64(p.CPUFrequency)
}

// SelectPlan picks the overflow period and divider for a timer class at the
// given CPU frequency so one overflow is as close to 1ms as the hardware's
// prescalers allow.
func SelectPlan(class TimerClass, cpuHz uint32) (Plan, error) {
	if int(class) >= len(timerClasses) || timerClasses[class].dividers == nil {
		return Plan{}, &PlanError{Class: class, CPUFrequency: cpuHz, Err: ErrUnsupportedTimerClass}
	}
	info := &timerClasses[class]
	if !containsFreq(info.brackets, cpuHz) {
		return Plan{}, &PlanError{Class: class, CPUFrequency: cpuHz, Err: ErrUnsupportedFrequency}
	}

	ticks := uint64(info.top) + 1
	var best Plan
	var bestDiff uint64
	found := false
	for _, div := range info.dividers {
		num := ticks * uint64(div) * nanosPerSecond
		// Only exact nanosecond periods keep the millisecond carry drift-free.
		if num%uint64(cpuHz) != 0 {
			continue
		}
		ns := num / uint64(cpuHz)
		diff := absDiff(ns, nanosPerMilli)
		// Ties go to the larger divider.
		if !found || diff <= bestDiff {
			best = Plan{Class: class, OverflowPeriod: info.top, Divider: div, CPUFrequency: cpuHz}
			bestDiff = diff
			found = true
		}
	}
	if !found {
		return Plan{}, &PlanError{Class: class, CPUFrequency: cpuHz, Err: ErrUnsupportedFrequency}
	}
	return best, nil
}

// MustSelectPlan is SelectPlan for package-level plan selection in targets.
// An unsupported combination stops the firmware before anything starts.
func MustSelectPlan(class TimerClass, cpuHz uint32) Plan {
	p, err := SelectPlan(class, cpuHz)
	if err != nil {
		RecordEvent(EvtPlanRejected, uint8(class), 0, cpuHz)
		panic(err.Error())
	}
	return p
}

func containsFreq(brackets []uint32, hz uint32) bool {
	for _, b := range brackets {
		if b == hz {
			return true
		}
	}
	return false
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
