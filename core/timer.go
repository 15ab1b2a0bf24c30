package core

// Global clock used by the package-level helpers below.
var systemClock *Clock

// TimerInit selects the plan, creates the system clock on hw and starts it.
// Configuration errors leave no clock installed.
func TimerInit(class TimerClass, cpuHz uint32, hw OverflowTimer) (*Clock, error) {
	plan, err := SelectPlan(class, cpuHz)
	if err != nil {
		RecordEvent(EvtPlanRejected, uint8(class), 0, cpuHz)
		return nil, err
	}
	c := NewClock(plan, hw)
	if err := c.Start(); err != nil {
		return nil, err
	}
	SetClock(c)
	return c, nil
}

// SetClock is called by target-specific code to register the system clock.
func SetClock(c *Clock) {
	systemClock = c
}

// MustClock returns the configured clock or panics if missing.
func MustClock() *Clock {
	if systemClock == nil {
		panic("system clock not configured")
	}
	return systemClock
}

// Millis returns the system clock's elapsed milliseconds.
func Millis() uint32 {
	return MustClock().Millis()
}

// Micros returns the system clock's elapsed microseconds.
func Micros() uint32 {
	return MustClock().Micros()
}

// Delay busy-waits on the system clock.
func Delay(ms uint32) {
	MustClock().Delay(ms)
}

// ProcessTimers runs due scheduler timers against the system clock.
// Call it from the main loop.
func ProcessTimers() {
	TimerDispatch(Millis())
}
