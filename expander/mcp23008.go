// Package expander drives an MCP23008 I2C GPIO expander as a port group.
//
// The expander raises one INT line for all eight pins, which makes it the
// same shape as an on-chip pin-change group: Device implements
// core.PortHardware, so a core.PortGroup attaches callbacks to expander pins
// exactly as it does to MCU pins.
//
// I2C transfers cannot run in interrupt context. The application watches the
// INT line (level or an MCU pin interrupt that sets a flag) and calls
// ServiceGroup from the foreground, which latches the captured edges and
// routes them through the group's Dispatch.
//
// The MCP23008 only interrupts on change. Rising/falling selection is done in
// software from the captured pin levels.
package expander

import (
	"errors"

	"tinycore/core"
	"tinygo.org/x/drivers"
)

// Address is the default 7-bit bus address (A2..A0 low).
const Address = 0x20

// Registers (IOCON.BANK = 0)
const (
	regIODIR   = 0x00
	regIPOL    = 0x01
	regGPINTEN = 0x02
	regDEFVAL  = 0x03
	regINTCON  = 0x04
	regIOCON   = 0x05
	regGPPU    = 0x06
	regINTF    = 0x07
	regINTCAP  = 0x08
	regGPIO    = 0x09
	regOLAT    = 0x0A
)

// IOCON bits
const (
	ioconINTPOL = 1 << 1
	ioconODR    = 1 << 2
	ioconSEQOP  = 1 << 5
)

var ErrNotConfigured = errors.New("mcp23008: not configured")

// Config selects the pin directions and INT line behaviour.
type Config struct {
	// Address defaults to 0x20 if zero.
	Address uint16
	// Outputs has a bit set for each pin driven by the expander. Pins not
	// listed are inputs.
	Outputs uint8
	// PullUps enables the 100k pull-up on each listed input.
	PullUps uint8
	// OpenDrain makes INT open-drain so several expanders can share one
	// MCU pin. Otherwise INT is push-pull, active low.
	OpenDrain bool
}

// Device is one MCP23008 on an I2C bus.
type Device struct {
	bus     drivers.I2C
	Address uint16

	configured bool
	gpinten    uint8 // cached GPINTEN
	olat       uint8 // cached OLAT
	pending    uint8 // edges captured and accepted, not yet dispatched
	edges      [core.GroupSize]core.Edge

	err error
	buf [2]byte
}

// New creates a Device on an already configured bus. It does not touch the
// hardware.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, Address: Address}
}

// Configure programs pin directions and pull-ups, puts the INT logic in
// compare-to-previous mode with every source disabled, and clears any
// captured interrupt.
func (d *Device) Configure(cfg Config) error {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}

	iocon := uint8(ioconSEQOP)
	if cfg.OpenDrain {
		iocon |= ioconODR
	}
	writes := [...][2]uint8{
		{regIOCON, iocon},
		{regGPINTEN, 0},
		{regINTCON, 0},
		{regIPOL, 0},
		{regIODIR, ^cfg.Outputs},
		{regGPPU, cfg.PullUps &^ cfg.Outputs},
		{regOLAT, 0},
	}
	for _, w := range writes {
		if err := d.writeReg(w[0], w[1]); err != nil {
			return err
		}
	}
	if _, err := d.readReg(regINTCAP); err != nil {
		return err
	}

	d.gpinten = 0
	d.olat = 0
	d.pending = 0
	d.err = nil
	d.configured = true
	return nil
}

// Err returns the first register access error seen by a PortHardware method,
// which cannot return it directly.
func (d *Device) Err() error {
	return d.err
}

// ReadPins returns the current input levels.
func (d *Device) ReadPins() (uint8, error) {
	if !d.configured {
		return 0, ErrNotConfigured
	}
	return d.readReg(regGPIO)
}

// Set drives an output pin.
func (d *Device) Set(bit uint8, high bool) error {
	if !d.configured {
		return ErrNotConfigured
	}
	if bit >= core.GroupSize {
		return core.ErrInvalidPin
	}
	olat := d.olat &^ (1 << bit)
	if high {
		olat |= 1 << bit
	}
	if err := d.writeReg(regOLAT, olat); err != nil {
		return err
	}
	d.olat = olat
	return nil
}

// Service reads the interrupt flags and captured levels, and latches the
// bits whose transition matches their edge select. Reading INTCAP releases
// the INT line. Returns the newly latched bits.
func (d *Device) Service() (uint8, error) {
	if !d.configured {
		return 0, ErrNotConfigured
	}
	intf, err := d.readReg(regINTF)
	if err != nil {
		return 0, err
	}
	if intf == 0 {
		return 0, nil
	}
	capt, err := d.readReg(regINTCAP)
	if err != nil {
		return 0, err
	}

	var latched uint8
	for bit := uint8(0); bit < core.GroupSize; bit++ {
		m := uint8(1) << bit
		if intf&m == 0 {
			continue
		}
		high := capt&m != 0
		switch d.edges[bit] {
		case core.EdgeRising:
			if high {
				latched |= m
			}
		case core.EdgeFalling:
			if !high {
				latched |= m
			}
		case core.EdgeBoth:
			latched |= m
		}
	}
	d.pending |= latched
	return latched, nil
}

// ServiceGroup services the expander and dispatches g when anything latched.
// g must be the group built on d.
func (d *Device) ServiceGroup(g *core.PortGroup) error {
	if _, err := d.Service(); err != nil {
		return err
	}
	if d.pending != 0 {
		g.Dispatch()
	}
	return nil
}

// PortHardware

func (d *Device) Pending() uint8 {
	return d.pending
}

func (d *Device) ClearPending(mask uint8) {
	d.pending &^= mask
}

func (d *Device) Enabled() uint8 {
	return d.gpinten
}

func (d *Device) EnableBit(bit uint8) {
	d.setGPINTEN(d.gpinten | 1<<bit)
}

func (d *Device) DisableBit(bit uint8) {
	d.setGPINTEN(d.gpinten &^ (1 << bit))
}

func (d *Device) SetEdge(bit uint8, e core.Edge) {
	d.edges[bit] = e
}

func (d *Device) setGPINTEN(v uint8) {
	if err := d.writeReg(regGPINTEN, v); err != nil {
		d.record(err)
		// A failed disable still drops the bit so Dispatch ignores it.
		if v < d.gpinten {
			d.gpinten = v
		}
		return
	}
	d.gpinten = v
}

func (d *Device) record(err error) {
	if d.err == nil {
		d.err = err
	}
	core.DebugAsync("[MCP23008] register write failed: " + err.Error())
}

func (d *Device) writeReg(reg, val uint8) error {
	d.buf[0] = reg
	d.buf[1] = val
	return d.bus.Tx(d.Address, d.buf[:2], nil)
}

func (d *Device) readReg(reg uint8) (uint8, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.Address, d.buf[:1], d.buf[1:2]); err != nil {
		return 0, err
	}
	return d.buf[1], nil
}
