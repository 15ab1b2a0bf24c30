//go:build atmega328p

package main

import (
	"device/avr"
	"runtime/interrupt"

	"tinycore/core"
)

// timer2 backs the system clock with Timer2 in normal mode: an 8-bit counter
// with an asynchronous-capable prescaler (core.TimerClassB). Timer0 and
// Timer1 stay free for the TinyGo runtime and PWM.
type timer2 struct{}

var timer2Handler func()

func timer2Overflow(interrupt.Interrupt) {
	timer2Handler()
}

// Clock select values for TCCR2B, indexed by prescaler
func timer2ClockSelect(divider uint16) (uint8, bool) {
	switch divider {
	case 1:
		return avr.TCCR2B_CS20, true
	case 8:
		return avr.TCCR2B_CS21, true
	case 32:
		return avr.TCCR2B_CS21 | avr.TCCR2B_CS20, true
	case 64:
		return avr.TCCR2B_CS22, true
	case 128:
		return avr.TCCR2B_CS22 | avr.TCCR2B_CS20, true
	case 256:
		return avr.TCCR2B_CS22 | avr.TCCR2B_CS21, true
	case 1024:
		return avr.TCCR2B_CS22 | avr.TCCR2B_CS21 | avr.TCCR2B_CS20, true
	}
	return 0, false
}

func (timer2) Start(plan core.Plan, handler func()) error {
	cs, ok := timer2ClockSelect(plan.Divider)
	if !ok {
		return core.ErrUnsupportedDivider
	}
	if plan.OverflowPeriod != 0xFF {
		return core.ErrUnsupportedTimerClass
	}

	timer2Handler = handler
	interrupt.New(avr.IRQ_TIMER2_OVF, timer2Overflow)

	avr.TIMSK2.Set(0)
	avr.ASSR.Set(0) // I/O clock, not the 32 kHz crystal
	avr.TCCR2A.Set(0)
	avr.TCNT2.Set(0)
	avr.TIFR2.Set(avr.TIFR2_TOV2) // write one to clear
	avr.TCCR2B.Set(cs)
	avr.TIMSK2.Set(avr.TIMSK2_TOIE2)
	return nil
}

func (timer2) MaskOverflow() bool {
	was := avr.TIMSK2.HasBits(avr.TIMSK2_TOIE2)
	avr.TIMSK2.ClearBits(avr.TIMSK2_TOIE2)
	return was
}

// UnmaskOverflow re-enables TOIE2; a TOV2 latched meanwhile fires right away.
func (timer2) UnmaskOverflow(wasEnabled bool) {
	if wasEnabled {
		avr.TIMSK2.SetBits(avr.TIMSK2_TOIE2)
	}
}

func (timer2) Counter() uint16 {
	return uint16(avr.TCNT2.Get())
}

func (timer2) OverflowPending() bool {
	return avr.TIFR2.HasBits(avr.TIFR2_TOV2)
}
