//go:build atmega328p

package main

import (
	"device/avr"
	"runtime/interrupt"
	"runtime/volatile"

	"tinycore/core"
)

// pcintPort is one pin-change interrupt group. The hardware has a single
// flag per group (PCIFR) and no edge select, so per-pin pending flags and
// edge filtering are kept in software: the vector compares PINx with the
// last sampled levels and latches the transitions that match.
type pcintPort struct {
	pins *volatile.Register8 // PINx
	mask *volatile.Register8 // PCMSKx
	pcie uint8               // group enable in PCICR

	last    uint8 // levels seen by the previous vector
	pending uint8
	rising  uint8
	falling uint8
}

var (
	portB = &pcintPort{pins: avr.PINB, mask: avr.PCMSK0, pcie: avr.PCICR_PCIE0}
	portC = &pcintPort{pins: avr.PINC, mask: avr.PCMSK1, pcie: avr.PCICR_PCIE1}
	portD = &pcintPort{pins: avr.PIND, mask: avr.PCMSK2, pcie: avr.PCICR_PCIE2}

	groupB = core.NewPortGroup(0, portB)
	groupC = core.NewPortGroup(1, portC)
	groupD = core.NewPortGroup(2, portD)
)

// Arduino Uno numbering: D0-D7 on PORTD, D8-D13 on PORTB, A0-A5 (D14-D19)
// on PORTC.
var unoPins = core.TableResolver{
	{Group: 2, Bit: 0}, {Group: 2, Bit: 1}, {Group: 2, Bit: 2}, {Group: 2, Bit: 3},
	{Group: 2, Bit: 4}, {Group: 2, Bit: 5}, {Group: 2, Bit: 6}, {Group: 2, Bit: 7},
	{Group: 0, Bit: 0}, {Group: 0, Bit: 1}, {Group: 0, Bit: 2}, {Group: 0, Bit: 3},
	{Group: 0, Bit: 4}, {Group: 0, Bit: 5},
	{Group: 1, Bit: 0}, {Group: 1, Bit: 1}, {Group: 1, Bit: 2}, {Group: 1, Bit: 3},
	{Group: 1, Bit: 4}, {Group: 1, Bit: 5},
}

func pcint0(interrupt.Interrupt) { portB.sample(); groupB.Dispatch() }
func pcint1(interrupt.Interrupt) { portC.sample(); groupC.Dispatch() }
func pcint2(interrupt.Interrupt) { portD.sample(); groupD.Dispatch() }

// initPinInterrupts installs the three vectors and registers the groups
// with core.
func initPinInterrupts() *core.Interrupts {
	interrupt.New(avr.IRQ_PCINT0, pcint0)
	interrupt.New(avr.IRQ_PCINT1, pcint1)
	interrupt.New(avr.IRQ_PCINT2, pcint2)

	for _, p := range []*pcintPort{portB, portC, portD} {
		p.mask.Set(0)
		p.last = p.pins.Get()
		avr.PCICR.SetBits(p.pcie)
	}
	avr.PCIFR.Set(avr.PCIFR_PCIF0 | avr.PCIFR_PCIF1 | avr.PCIFR_PCIF2)

	in := core.NewInterrupts(unoPins, groupB, groupC, groupD)
	core.SetInterrupts(in)
	return in
}

// sample runs in the vector. Transitions on bits without an edge select
// are dropped.
func (p *pcintPort) sample() {
	now := p.pins.Get()
	changed := now ^ p.last
	p.last = now
	p.pending |= changed&now&p.rising | changed&^now&p.falling
}

func (p *pcintPort) Pending() uint8 {
	return p.pending
}

// ClearPending runs in the vector and, from Attach, in the foreground; the
// read-modify-write is shielded from the vector.
func (p *pcintPort) ClearPending(mask uint8) {
	state := interrupt.Disable()
	p.pending &^= mask
	interrupt.Restore(state)
}

func (p *pcintPort) Enabled() uint8 {
	return p.mask.Get()
}

func (p *pcintPort) EnableBit(bit uint8) {
	p.mask.SetBits(1 << bit)
}

func (p *pcintPort) DisableBit(bit uint8) {
	p.mask.ClearBits(1 << bit)
}

// SetEdge is only called with the bit disabled. The bit's last level is
// refreshed so the transition that happened while it was off is not
// reported.
func (p *pcintPort) SetEdge(bit uint8, e core.Edge) {
	m := uint8(1) << bit
	state := interrupt.Disable()
	p.rising &^= m
	p.falling &^= m
	if e == core.EdgeRising || e == core.EdgeBoth {
		p.rising |= m
	}
	if e == core.EdgeFalling || e == core.EdgeBoth {
		p.falling |= m
	}
	p.last = p.last&^m | p.pins.Get()&m
	interrupt.Restore(state)
}
