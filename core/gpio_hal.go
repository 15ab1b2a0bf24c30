package core

// Pin identifies a board pin as numbered by the application.
type Pin uint8

// NoPin is the resolver's "no such pin" value.
const NoPin Pin = 0xFF

// PortBit locates a pin inside the port groups.
type PortBit struct {
	Group uint8
	Bit   uint8
}

// PinResolver maps application pin numbers to (port group, bit).
// The mapping tables are per board variant and live with the target.
type PinResolver interface {
	Resolve(pin Pin) (group, bit uint8, ok bool)
}

// LinearResolver numbers pins consecutively: pin/8 is the group, pin%8 the bit.
type LinearResolver struct {
	Groups uint8
}

func (r LinearResolver) Resolve(pin Pin) (uint8, uint8, bool) {
	if pin == NoPin || uint8(pin)/GroupSize >= r.Groups {
		return 0, 0, false
	}
	return uint8(pin) / GroupSize, uint8(pin) % GroupSize, true
}

// TableResolver maps pins through a static table indexed by pin number.
// Entries with Bit >= GroupSize mark pins without interrupt support.
type TableResolver []PortBit

// NoPortBit fills table gaps.
var NoPortBit = PortBit{Group: 0xFF, Bit: 0xFF}

func (t TableResolver) Resolve(pin Pin) (uint8, uint8, bool) {
	if pin == NoPin || int(pin) >= len(t) {
		return 0, 0, false
	}
	pb := t[pin]
	if pb.Bit >= GroupSize {
		return 0, 0, false
	}
	return pb.Group, pb.Bit, true
}

// Interrupts is the application-facing pin interrupt API over a set of port
// groups.
type Interrupts struct {
	resolver PinResolver
	groups   []*PortGroup // indexed by group id; nil where absent
}

// NewInterrupts builds the API from a resolver and the available groups.
func NewInterrupts(resolver PinResolver, groups ...*PortGroup) *Interrupts {
	in := &Interrupts{resolver: resolver}
	for _, g := range groups {
		for int(g.ID()) >= len(in.groups) {
			in.groups = append(in.groups, nil)
		}
		in.groups[g.ID()] = g
	}
	return in
}

// Group returns the port group with the given id, or nil.
func (in *Interrupts) Group(id uint8) *PortGroup {
	if int(id) >= len(in.groups) {
		return nil
	}
	return in.groups[id]
}

func (in *Interrupts) lookup(pin Pin) (*PortGroup, uint8, bool) {
	group, bit, ok := in.resolver.Resolve(pin)
	if !ok {
		return nil, 0, false
	}
	g := in.Group(group)
	if g == nil {
		return nil, 0, false
	}
	return g, bit, true
}

// AttachInterrupt calls cb whenever pin sees the selected edge.
// An invalid pin or mode changes nothing and is reported as an error.
func (in *Interrupts) AttachInterrupt(pin Pin, cb Callback, edge Edge) error {
	g, bit, ok := in.lookup(pin)
	if !ok {
		return ErrInvalidPin
	}
	return g.Attach(bit, cb, edge)
}

// DetachInterrupt removes pin's callback. Invalid pins are ignored.
func (in *Interrupts) DetachInterrupt(pin Pin) {
	g, bit, ok := in.lookup(pin)
	if !ok {
		return
	}
	g.Detach(bit)
}

// Global singleton used by the package-level helpers.
var pinInterrupts *Interrupts

// SetInterrupts is called by target-specific code to register its port groups.
func SetInterrupts(in *Interrupts) {
	pinInterrupts = in
}

// MustInterrupts returns the configured interrupts or panics if missing.
func MustInterrupts() *Interrupts {
	if pinInterrupts == nil {
		panic("pin interrupts not configured")
	}
	return pinInterrupts
}

// AttachInterrupt attaches through the registered Interrupts.
func AttachInterrupt(pin Pin, cb Callback, edge Edge) error {
	return MustInterrupts().AttachInterrupt(pin, cb, edge)
}

// DetachInterrupt detaches through the registered Interrupts.
func DetachInterrupt(pin Pin) {
	MustInterrupts().DetachInterrupt(pin)
}
