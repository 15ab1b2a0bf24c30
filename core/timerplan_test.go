package core

import (
	"errors"
	"testing"
)

func TestSelectPlan(t *testing.T) {
	tests := []struct {
		class   TimerClass
		cpuHz   uint32
		divider uint16
		top     uint16
		ns      uint64
	}{
		{TimerClassA, 1000000, 1, 0xFF, 256000},
		{TimerClassA, 4000000, 8, 0xFF, 512000},
		{TimerClassA, 8000000, 8, 0xFF, 256000},
		{TimerClassA, 16000000, 64, 0xFF, 1024000},
		{TimerClassA, 20000000, 64, 0xFF, 819200},
		{TimerClassB, 1000000, 1, 0xFF, 256000},
		{TimerClassB, 4000000, 8, 0xFF, 512000},
		{TimerClassB, 8000000, 32, 0xFF, 1024000},
		{TimerClassB, 16000000, 64, 0xFF, 1024000},
		{TimerClassB, 20000000, 64, 0xFF, 819200},
		{TimerClassD, 1000000, 2, 0x1FD, 1020000},
		{TimerClassD, 4000000, 8, 0x1FD, 1020000},
		{TimerClassD, 8000000, 16, 0x1FD, 1020000},
		{TimerClassD, 12000000, 16, 0x1FD, 680000},
		{TimerClassD, 16000000, 32, 0x1FD, 1020000},
		{TimerClassD, 20000000, 32, 0x1FD, 816000},
	}

	for _, tt := range tests {
		p, err := SelectPlan(tt.class, tt.cpuHz)
		if err != nil {
			t.Errorf("class %s @ %d: unexpected error %v", tt.class, tt.cpuHz, err)
			continue
		}
		if p.Divider != tt.divider {
			t.Errorf("class %s @ %d: expected divider %d, got %d", tt.class, tt.cpuHz, tt.divider, p.Divider)
		}
		if p.OverflowPeriod != tt.top {
			t.Errorf("class %s @ %d: expected TOP 0x%X, got 0x%X", tt.class, tt.cpuHz, tt.top, p.OverflowPeriod)
		}
		if p.NanosPerOverflow() != tt.ns {
			t.Errorf("class %s @ %d: expected %d ns per overflow, got %d", tt.class, tt.cpuHz, tt.ns, p.NanosPerOverflow())
		}
		if p.Class != tt.class || p.CPUFrequency != tt.cpuHz {
			t.Errorf("class %s @ %d: plan carries wrong identity %+v", tt.class, tt.cpuHz, p)
		}
	}
}

func TestSelectPlanErrors(t *testing.T) {
	tests := []struct {
		class TimerClass
		cpuHz uint32
		want  error
	}{
		{TimerClass16, 16000000, ErrUnsupportedTimerClass},
		{TimerClass(9), 16000000, ErrUnsupportedTimerClass},
		{TimerClassA, 12000000, ErrUnsupportedFrequency},
		{TimerClassB, 12000000, ErrUnsupportedFrequency},
		{TimerClassA, 7372800, ErrUnsupportedFrequency},
		{TimerClassD, 0, ErrUnsupportedFrequency},
	}

	for _, tt := range tests {
		_, err := SelectPlan(tt.class, tt.cpuHz)
		if !errors.Is(err, tt.want) {
			t.Errorf("class %s @ %d: expected %v, got %v", tt.class, tt.cpuHz, tt.want, err)
			continue
		}
		var pe *PlanError
		if !errors.As(err, &pe) {
			t.Errorf("class %s @ %d: expected *PlanError, got %T", tt.class, tt.cpuHz, err)
			continue
		}
		if pe.Class != tt.class || pe.CPUFrequency != tt.cpuHz {
			t.Errorf("PlanError context mismatch: %+v", pe)
		}
	}
}

func TestPlanErrorMessage(t *testing.T) {
	_, err := SelectPlan(TimerClassA, 12000000)
	expected := "timer plan A @ 12000000Hz: cpu frequency outside supported brackets"
	if err == nil || err.Error() != expected {
		t.Errorf("Expected %q, got %v", expected, err)
	}
}

func TestMustSelectPlanPanics(t *testing.T) {
	ClearEventRing()
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for unsupported frequency")
		}
		events := EventRing()
		if len(events) != 1 || events[0].EventType != EvtPlanRejected || events[0].Value != 12000000 {
			t.Errorf("Expected one PLAN_REJECTED event, got %+v", events)
		}
	}()
	MustSelectPlan(TimerClassA, 12000000)
}

func TestPlanDerived(t *testing.T) {
	p := MustSelectPlan(TimerClassA, 16000000)
	if p.OverflowTicks() != 256 {
		t.Errorf("Expected 256 ticks per overflow, got %d", p.OverflowTicks())
	}
	if p.TickNanos() != 4000 {
		t.Errorf("Expected 4000 ns per tick, got %d", p.TickNanos())
	}
}

func TestTimerClassString(t *testing.T) {
	if TimerClassD.String() != "D" || TimerClass16.String() != "16" || TimerClass(7).String() != "?7" {
		t.Errorf("Unexpected names: %s %s %s", TimerClassD, TimerClass16, TimerClass(7))
	}
}
