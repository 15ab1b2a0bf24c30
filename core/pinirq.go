package core

import "sync/atomic"

// Edge selects which transitions of a pin raise its interrupt.
type Edge uint8

const (
	EdgeNone    Edge = iota // unconfigured; never accepted by Attach
	EdgeRising              // low to high
	EdgeFalling             // high to low
	EdgeBoth                // either transition
)

// Valid reports whether e is a trigger mode Attach accepts.
func (e Edge) Valid() bool {
	return e == EdgeRising || e == EdgeFalling || e == EdgeBoth
}

func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	}
	return "edge(" + utoa(uint32(e)) + ")"
}

// Callback is a user interrupt handler. It runs in interrupt context.
type Callback func()

// GroupSize is the number of pins sharing one port group vector.
const GroupSize = 8

// PortHardware is the register interface of one 8-pin port group.
// Every method addresses single bits; none may disturb other bits.
type PortHardware interface {
	Pending() uint8          // latched per-bit interrupt flags
	ClearPending(mask uint8) // clear only the flags in mask
	Enabled() uint8          // per-bit interrupt enables
	EnableBit(bit uint8)
	DisableBit(bit uint8)
	SetEdge(bit uint8, e Edge)
}

// PortGroup holds the callbacks for one port group and routes its shared
// interrupt vector to them (see Dispatch).
//
// The callback table is written only by Attach/Detach and only while the
// bit's interrupt enable is off; Dispatch reads a slot only when the bit is
// enabled. That ordering is the whole synchronization scheme.
type PortGroup struct {
	id     uint8
	hw     PortHardware
	slots  *[GroupSize]Callback // allocated on first Attach
	strays atomic.Uint32
}

// NewPortGroup creates the registry for one port group.
func NewPortGroup(id uint8, hw PortHardware) *PortGroup {
	return &PortGroup{id: id, hw: hw}
}

// ID returns the port group number.
func (g *PortGroup) ID() uint8 { return g.id }

// Hardware returns the group's register interface.
func (g *PortGroup) Hardware() PortHardware { return g.hw }

// Attach installs cb for bit and enables its interrupt on the given edge.
// Invalid arguments leave the group untouched.
func (g *PortGroup) Attach(bit uint8, cb Callback, edge Edge) error {
	if bit >= GroupSize {
		return ErrInvalidPin
	}
	if !edge.Valid() {
		RecordEvent(EvtAttachRejected, g.id, bit, uint32(edge))
		return ErrInvalidMode
	}
	if cb == nil {
		RecordEvent(EvtAttachRejected, g.id, bit, uint32(edge))
		return ErrNilCallback
	}

	slots := g.table()
	m := uint8(1) << bit

	g.hw.DisableBit(bit)
	slots[bit] = cb
	g.hw.SetEdge(bit, edge)
	// A flag latched under an earlier configuration must not fire cb.
	g.hw.ClearPending(m)
	g.hw.EnableBit(bit)

	RecordEvent(EvtAttach, g.id, bit, uint32(edge))
	DebugPrintln("[IRQ] attach group=" + itoa(int(g.id)) + " mask=" + hex8(m) + " edge=" + edge.String())
	return nil
}

// Detach disables bit's interrupt and drops its callback. A flag that is
// already latched is left for Dispatch to clear.
func (g *PortGroup) Detach(bit uint8) {
	if bit >= GroupSize {
		return
	}
	g.hw.DisableBit(bit)
	if g.slots != nil {
		g.slots[bit] = nil
	}
	RecordEvent(EvtDetach, g.id, bit, 0)
}

// Attached reports whether bit currently has an enabled callback.
// Foreground use only.
func (g *PortGroup) Attached(bit uint8) bool {
	if bit >= GroupSize || g.slots == nil {
		return false
	}
	return g.hw.Enabled()&(1<<bit) != 0 && g.slots[bit] != nil
}

// Strays returns how many pending flags were cleared with no callback to run.
func (g *PortGroup) Strays() uint32 {
	return g.strays.Load()
}

// table returns the callback table, allocating it at most once.
func (g *PortGroup) table() *[GroupSize]Callback {
	if g.slots != nil {
		return g.slots
	}
	state := disableInterrupts()
	allocated := false
	if g.slots == nil {
		g.slots = new([GroupSize]Callback)
		allocated = true
	}
	restoreInterrupts(state)
	if allocated {
		RecordEvent(EvtTableAlloc, g.id, 0, 0)
	}
	return g.slots
}
