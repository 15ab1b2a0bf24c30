package sim

import (
	"sync/atomic"

	"tinycore/core"
)

// Port models one 8-pin port group with per-bit edge select, latched flags
// and a single shared interrupt vector. It implements core.PortHardware.
type Port struct {
	cpu *CPU

	pending atomic.Uint32
	enabled atomic.Uint32

	// guarded by cpu.mu
	edges  [core.GroupSize]core.Edge
	levels uint8
	vector func()
}

// NewPort creates a port with all pins low and every source disabled.
func NewPort(cpu *CPU) *Port {
	return &Port{cpu: cpu}
}

// SetVector installs the group's interrupt handler, normally the
// PortGroup's Dispatch.
func (p *Port) SetVector(isr func()) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	p.vector = isr
}

func (p *Port) Pending() uint8 {
	return uint8(p.pending.Load())
}

func (p *Port) ClearPending(mask uint8) {
	p.pending.And(^uint32(mask))
}

func (p *Port) Enabled() uint8 {
	return uint8(p.enabled.Load())
}

// EnableBit enables one source. A flag already latched for an enabled bit
// raises the vector immediately.
func (p *Port) EnableBit(bit uint8) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	p.enabled.Or(1 << bit)
	p.raise()
}

// DisableBit disables one source. When it returns no handler is running.
func (p *Port) DisableBit(bit uint8) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	p.enabled.And(^uint32(1 << bit))
}

func (p *Port) SetEdge(bit uint8, e core.Edge) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	p.edges[bit] = e
}

// Drive sets the input level of a pin. A transition matching the bit's
// edge select latches its flag, whether or not the bit is enabled.
func (p *Port) Drive(bit uint8, high bool) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()

	m := uint8(1) << bit
	was := p.levels&m != 0
	if was == high {
		return
	}
	if high {
		p.levels |= m
	} else {
		p.levels &^= m
	}

	var match bool
	switch p.edges[bit] {
	case core.EdgeRising:
		match = high
	case core.EdgeFalling:
		match = !high
	case core.EdgeBoth:
		match = true
	}
	if match {
		p.pending.Or(uint32(m))
		p.raise()
	}
}

// Toggle drives the pin to the opposite level.
func (p *Port) Toggle(bit uint8) {
	p.Drive(bit, !p.Level(bit))
}

// Level returns the current input level of a pin.
func (p *Port) Level(bit uint8) bool {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	return p.levels&(1<<bit) != 0
}

// Latch sets a bit's flag directly, as a glitch or a stale edge would.
func (p *Port) Latch(bit uint8) {
	p.cpu.mu.Lock()
	defer p.cpu.mu.Unlock()
	p.pending.Or(1 << bit)
	p.raise()
}

// raise calls the vector if any enabled bit is pending. Caller holds cpu.mu.
func (p *Port) raise() {
	if p.vector != nil && p.pending.Load()&p.enabled.Load() != 0 {
		p.vector()
	}
}
