// Package sim models the timer and pin-change hardware on the host so the
// runtime can run, and be tested, without a board.
//
// A single-core MCU never runs an interrupt handler in parallel with the
// code it interrupted. CPU reproduces that: every simulated interrupt runs
// holding its lock, and every masking operation takes the same lock, so an
// in-flight handler has finished by the time a mask call returns.
//
// Handlers run with the lock held. Code called from a handler must not mask
// or unmask a source of the same CPU; that includes the clock readers and
// Attach/Detach on a sim Port.
package sim

import "sync"

// CPU serializes simulated interrupt handlers.
type CPU struct {
	mu sync.Mutex
}

// NewCPU creates a CPU.
func NewCPU() *CPU {
	return &CPU{}
}

// Interrupt runs isr as an interrupt handler.
func (c *CPU) Interrupt(isr func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	isr()
}
