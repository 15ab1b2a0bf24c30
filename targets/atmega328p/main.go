//go:build atmega328p

package main

import (
	"device/avr"
	"machine"

	"tinycore/core"
)

const cpuHz = 16000000

// Chosen at package initialization; an unsupported combination stops here.
var timerPlan = core.MustSelectPlan(core.TimerClassB, cpuHz)

const (
	buttonPin core.Pin = 2 // D2, active low
	reportMs           = 250
	blinkMs            = 500
)

var (
	reporter *core.Reporter
	led      = machine.LED
	ledOn    bool
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})

	// The UART carries telemetry frames; text output stays off unless a
	// debug build turns it on.
	core.SetDebugWriter(func(s string) {
		machine.Serial.Write([]byte(s))
		machine.Serial.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(false)

	clock := core.NewClock(timerPlan, timer2{})
	if err := clock.Start(); err != nil {
		halt()
	}
	core.SetClock(clock)

	initPinInterrupts()

	reporter = core.NewReporter(clock, writeFrame, reportMs)
	reporter.WatchGroups(groupB, groupC, groupD)

	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	machine.D2.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	if err := core.AttachInterrupt(buttonPin, onButton, core.EdgeFalling); err != nil {
		halt()
	}

	reporter.Start()
	core.ScheduleTimer(&core.Timer{WakeTime: core.Millis() + blinkMs, Handler: blink})

	for {
		core.ProcessTimers()
		reporter.Poll()
	}
}

// onButton runs in the PCINT2 vector.
func onButton() {
	reporter.NotePinEvent(buttonPin)
}

func blink(t *core.Timer) uint8 {
	ledOn = !ledOn
	led.Set(ledOn)
	t.WakeTime += blinkMs
	return core.SF_RESCHEDULE
}

func writeFrame(b []byte) {
	machine.Serial.Write(b)
}

// halt blinks the LED fast forever. Used when the clock or pin setup fails.
func halt() {
	core.DumpEventRing()
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		busyWait(100000)
		led.Low()
		busyWait(100000)
	}
}

func busyWait(n uint32) {
	for i := uint32(0); i < n; i++ {
		avr.Asm("nop")
	}
}
