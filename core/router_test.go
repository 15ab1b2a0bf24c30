package core

import (
	"strings"
	"testing"
)

func TestDispatchCallsAndClears(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	calls := 0
	g.Attach(3, func() { calls++ }, EdgeRising)
	hw.ops = nil

	hw.pending = 0x08
	g.Dispatch()
	if calls != 1 {
		t.Errorf("Expected callback once, got %d", calls)
	}
	if hw.pending != 0 {
		t.Errorf("Expected flag cleared, got 0x%02X", hw.pending)
	}
	if g.Strays() != 0 {
		t.Errorf("Expected no strays, got %d", g.Strays())
	}
}

func TestDispatchClearsBeforeCallback(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	g.Attach(2, func() {
		// Edge arriving while the callback runs
		hw.pending |= 0x04
	}, EdgeBoth)

	hw.pending = 0x04
	g.Dispatch()
	if hw.pending != 0x04 {
		t.Errorf("Edge during callback must stay latched, got 0x%02X", hw.pending)
	}
}

func TestDispatchAfterDetach(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	calls := 0
	g.Attach(5, func() { calls++ }, EdgeFalling)
	g.Detach(5)

	hw.pending = 0x20
	g.Dispatch()
	if calls != 0 {
		t.Errorf("Detached callback ran %d times", calls)
	}
	if hw.pending != 0 {
		t.Errorf("Expected flag cleared, got 0x%02X", hw.pending)
	}
	if g.Strays() != 1 {
		t.Errorf("Expected 1 stray, got %d", g.Strays())
	}
}

func TestDispatchWithoutTable(t *testing.T) {
	hw := &fakePort{pending: 0x81}
	g := NewPortGroup(0, hw)

	g.Dispatch()
	if hw.pending != 0 {
		t.Errorf("Expected all flags cleared with no table, got 0x%02X", hw.pending)
	}
	if g.Strays() != 2 {
		t.Errorf("Expected 2 strays, got %d", g.Strays())
	}
	if g.slots != nil {
		t.Error("Dispatch must not allocate the table")
	}
}

func TestDispatchDisabledBitNotCalled(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	calls := 0
	g.Attach(1, func() { calls++ }, EdgeRising)
	hw.enabled = 0 // flag latched while the source was off

	hw.pending = 0x02
	g.Dispatch()
	if calls != 0 {
		t.Error("Callback ran for a disabled bit")
	}
	if hw.pending != 0 || g.Strays() != 1 {
		t.Errorf("Expected flag cleared as a stray, pending=0x%02X strays=%d", hw.pending, g.Strays())
	}
}

func TestDispatchOrder(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	var order []string
	for _, bit := range []uint8{6, 0, 3} {
		b := bit
		g.Attach(b, func() { order = append(order, "cb "+itoa(int(b))) }, EdgeBoth)
	}
	hw.ops = nil

	hw.pending = 0x49
	g.Dispatch()

	var trace []string
	ci := 0
	for _, op := range hw.ops {
		trace = append(trace, op)
		if strings.HasPrefix(op, "clear") && ci < len(order) {
			trace = append(trace, order[ci])
			ci++
		}
	}
	expected := "clear 0x01,cb 0,clear 0x08,cb 3,clear 0x40,cb 6"
	if got := strings.Join(trace, ","); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestDispatchReadsPendingOnce(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	calls := [GroupSize]int{}
	g.Attach(1, func() {
		calls[1]++
		hw.pending |= 0x80 // latches during dispatch
	}, EdgeRising)
	g.Attach(7, func() { calls[7]++ }, EdgeRising)

	hw.pending = 0x02
	g.Dispatch()
	if calls[1] != 1 || calls[7] != 0 {
		t.Errorf("Expected only bit 1 serviced, got %v", calls)
	}
	if hw.pending != 0x80 {
		t.Errorf("Late flag must be left for the next vector, got 0x%02X", hw.pending)
	}

	g.Dispatch()
	if calls[7] != 1 {
		t.Errorf("Expected bit 7 serviced on next vector, got %d", calls[7])
	}
}

func TestDispatchNothingPending(t *testing.T) {
	hw := &fakePort{}
	g := NewPortGroup(0, hw)
	g.Dispatch()
	if len(hw.ops) != 0 || g.Strays() != 0 {
		t.Errorf("Spurious vector must do nothing, ops=%v strays=%d", hw.ops, g.Strays())
	}
}
