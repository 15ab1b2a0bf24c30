package core

import "errors"

// Configuration errors. These are fatal: a clock with an unresolvable plan
// must never start.
var (
	ErrUnsupportedTimerClass = errors.New("timer class cannot back the system clock")
	ErrUnsupportedFrequency  = errors.New("cpu frequency outside supported brackets")
	ErrUnsupportedDivider    = errors.New("divider not available on this timer")
	ErrClockRunning          = errors.New("clock already started")
)

// Argument errors. Returned without any state change.
var (
	ErrInvalidPin  = errors.New("invalid pin")
	ErrInvalidMode = errors.New("invalid trigger mode")
	ErrNilCallback = errors.New("nil interrupt callback")
)

// PlanError records which timer/frequency combination was rejected.
type PlanError struct {
	Class        TimerClass
	CPUFrequency uint32
	Err          error
}

func (e *PlanError) Error() string {
	return "timer plan " + e.Class.String() + " @ " + utoa(e.CPUFrequency) + "Hz: " + e.Err.Error()
}

func (e *PlanError) Unwrap() error { return e.Err }
