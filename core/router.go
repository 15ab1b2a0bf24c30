package core

// Dispatch is the shared interrupt entry point of the port group. The
// platform's vector for the group calls it.
//
// The pending register is read once. Each latched bit, in order 0 to 7, has
// its flag cleared and then its callback run if the bit is enabled and has
// one. Bits that latch while Dispatch runs are left for the next vector.
// A flag with nobody to handle it (detach racing a latched edge, or a flag
// set while disabled) is still cleared, so the vector cannot storm.
func (g *PortGroup) Dispatch() {
	pending := g.hw.Pending()
	if pending == 0 {
		return
	}
	enabled := g.hw.Enabled()
	for bit := uint8(0); bit < GroupSize; bit++ {
		m := uint8(1) << bit
		if pending&m == 0 {
			continue
		}
		// Clear before running the callback so an edge arriving during the
		// callback latches again instead of being wiped.
		g.hw.ClearPending(m)

		var cb Callback
		if enabled&m != 0 {
			if slots := g.slots; slots != nil {
				cb = slots[bit]
			}
		}
		if cb == nil {
			g.strays.Add(1)
			continue
		}
		cb()
	}
}
