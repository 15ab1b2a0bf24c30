package sim

import (
	"sync/atomic"

	"tinycore/core"
)

const (
	pendingBit = 1 << 16
	sampledBit = 1 << 17
	counterMax = 0xFFFF
)

// Timer models an up-counting timer that wraps after TOP and latches an
// overflow flag. It implements core.OverflowTimer and core.CounterReader.
//
// On the hardware a counter read and the flag read right after it land
// within one timer tick. The model keeps that property by answering
// OverflowPending from the state sampled by the preceding Counter call, so
// a reader on another goroutine cannot pair a counter from before a wrap
// with the flag set by it.
type Timer struct {
	cpu *CPU

	// guarded by cpu.mu
	top     uint16
	handler func()
	enabled bool
	started bool

	state     atomic.Uint32 // counter | pendingBit
	sampled   atomic.Uint32 // state | sampledBit, consumed by OverflowPending
	overflows atomic.Uint32
	lost      atomic.Uint32
}

// NewTimer creates a stopped timer on cpu.
func NewTimer(cpu *CPU) *Timer {
	return &Timer{cpu: cpu}
}

// Start loads TOP from the plan, clears the counter and enables the
// overflow interrupt.
func (t *Timer) Start(plan core.Plan, handler func()) error {
	t.cpu.mu.Lock()
	defer t.cpu.mu.Unlock()

	t.top = plan.OverflowPeriod
	t.handler = handler
	t.state.Store(0)
	t.enabled = true
	t.started = true
	return nil
}

func (t *Timer) MaskOverflow() bool {
	t.cpu.mu.Lock()
	defer t.cpu.mu.Unlock()

	was := t.enabled
	t.enabled = false
	return was
}

func (t *Timer) UnmaskOverflow(wasEnabled bool) {
	t.cpu.mu.Lock()
	defer t.cpu.mu.Unlock()

	t.enabled = wasEnabled
	t.service()
}

func (t *Timer) Counter() uint16 {
	s := t.state.Load()
	t.sampled.Store(s | sampledBit)
	return uint16(s & counterMax)
}

func (t *Timer) OverflowPending() bool {
	s := t.sampled.Swap(0)
	if s&sampledBit == 0 {
		s = t.state.Load()
	}
	return s&pendingBit != 0
}

// Tick advances the counter by n timer ticks, raising the overflow
// interrupt at every wrap. A wrap while the flag is still latched is lost,
// as on the hardware.
func (t *Timer) Tick(n uint32) {
	for n > 0 {
		n = t.step(n)
	}
}

// step advances up to and including the next wrap and returns the ticks
// left over.
func (t *Timer) step(n uint32) uint32 {
	t.cpu.mu.Lock()
	defer t.cpu.mu.Unlock()

	if !t.started {
		return 0
	}
	s := t.state.Load()
	cnt := s & counterMax
	room := uint32(t.top) + 1 - cnt
	if n < room {
		t.state.Store(s&pendingBit | (cnt + n))
		return 0
	}

	t.overflows.Add(1)
	if s&pendingBit != 0 {
		t.lost.Add(1)
	}
	t.state.Store(pendingBit)
	t.service()
	return n - room
}

// service runs the handler if an overflow is latched and enabled.
// Caller holds cpu.mu.
func (t *Timer) service() {
	s := t.state.Load()
	if t.enabled && s&pendingBit != 0 {
		t.state.Store(s &^ pendingBit)
		t.handler()
	}
}

// Overflows returns how many times the counter wrapped.
func (t *Timer) Overflows() uint32 {
	return t.overflows.Load()
}

// Lost returns how many wraps happened with the flag already latched.
func (t *Timer) Lost() uint32 {
	return t.lost.Load()
}
