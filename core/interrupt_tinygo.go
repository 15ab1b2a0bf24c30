//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts globally disables interrupts and returns the previous
// state. Only used for one-time setup; steady-state paths mask single sources.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
