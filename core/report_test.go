package core

import (
	"testing"

	"tinycore/protocol"
)

// frameLog collects the messages a Reporter writes.
type frameLog struct {
	t    *testing.T
	dec  *protocol.FrameDecoder
	seqs []uint8
	msgs []protocol.Message
}

func newFrameLog(t *testing.T) *frameLog {
	return &frameLog{t: t, dec: protocol.NewFrameDecoder(1024)}
}

func (l *frameLog) write(b []byte) {
	if n := l.dec.Write(b); n != len(b) {
		l.t.Fatalf("Frame log full")
	}
	for {
		seq, payload, ok := l.dec.Next()
		if !ok {
			return
		}
		m, err := protocol.Decode(payload)
		if err != nil {
			l.t.Fatalf("Decode failed: %v", err)
		}
		l.seqs = append(l.seqs, seq)
		l.msgs = append(l.msgs, m)
	}
}

func TestReporterStart(t *testing.T) {
	timerList = nil
	defer func() { timerList = nil }()

	hw := &fakeTimer{}
	c := newTestClock(t, hw)
	log := newFrameLog(t)
	r := NewReporter(c, log.write, 100)
	r.Start()

	if len(log.msgs) != 1 {
		t.Fatalf("Expected Identify on start, got %d messages", len(log.msgs))
	}
	id, ok := log.msgs[0].(protocol.Identify)
	if !ok {
		t.Fatalf("Expected Identify, got %T", log.msgs[0])
	}
	if id.Class != uint8(TimerClassA) || id.CPUFrequency != 16000000 || id.Divider != 64 ||
		id.OverflowPeriod != 0xFF || id.Version != protocol.Version {
		t.Errorf("Unexpected Identify %+v", id)
	}
	if timerList != &r.timer || r.timer.WakeTime != 100 {
		t.Errorf("Expected clock report scheduled at 100 ms")
	}

	r.Stop()
	if timerList != nil {
		t.Error("Stop must cancel the clock report")
	}
}

func TestReporterClockReports(t *testing.T) {
	timerList = nil
	defer func() { timerList = nil }()

	hw := &fakeTimer{}
	c := newTestClock(t, hw)
	log := newFrameLog(t)
	r := NewReporter(c, log.write, 10)

	portHW := &fakePort{pending: 0x01}
	g := NewPortGroup(0, portHW)
	g.Dispatch() // one stray
	r.WatchGroups(g)
	r.Start()

	// 1.024 ms per overflow
	for i := 0; i < 50; i++ {
		hw.overflow()
		TimerDispatch(c.Millis())
	}

	var reports []protocol.ClockReport
	for _, m := range log.msgs {
		if cr, ok := m.(protocol.ClockReport); ok {
			reports = append(reports, cr)
		}
	}
	// Due at 10, 20, 30, 40, 50 ms; 50 overflows is 51 ms
	if len(reports) != 5 {
		t.Fatalf("Expected 5 clock reports, got %d", len(reports))
	}
	first := reports[0]
	if first.Millis != 10 || first.Overflows != 10 || first.Strays != 1 || first.Micros != 10000 {
		t.Errorf("Unexpected first report %+v", first)
	}

	for i, seq := range log.seqs {
		if seq != uint8(i)&protocol.MessageSeqMask {
			t.Errorf("Frame %d: expected seq %d, got %d", i, uint8(i)&protocol.MessageSeqMask, seq)
		}
	}
}

func TestReporterSkipsMissedReports(t *testing.T) {
	timerList = nil
	defer func() { timerList = nil }()

	hw := &fakeTimer{}
	c := newTestClock(t, hw)
	log := newFrameLog(t)
	r := NewReporter(c, log.write, 10)
	r.Start()

	for i := 0; i < 100; i++ {
		hw.overflow()
	}
	TimerDispatch(c.Millis())
	if len(log.msgs) != 2 {
		t.Errorf("Expected one catch-up report, got %d messages", len(log.msgs)-1)
	}
	if r.timer.WakeTime != c.Millis()+10 {
		t.Errorf("Expected next report at %d, got %d", c.Millis()+10, r.timer.WakeTime)
	}
}

func TestReporterPinEvents(t *testing.T) {
	hw := &fakeTimer{}
	c := newTestClock(t, hw)
	log := newFrameLog(t)
	r := NewReporter(c, log.write, 10)

	hw.overflow()
	r.NotePinEvent(13)
	r.NotePinEvent(2)
	if n := r.Poll(); n != 2 {
		t.Fatalf("Expected 2 events drained, got %d", n)
	}
	if r.Poll() != 0 {
		t.Error("Expected empty queue after Poll")
	}

	want := []protocol.PinEvent{{Pin: 13, Seq: 0, Millis: 1}, {Pin: 2, Seq: 1, Millis: 1}}
	for i, w := range want {
		if got, ok := log.msgs[i].(protocol.PinEvent); !ok || got != w {
			t.Errorf("Event %d: expected %+v, got %+v", i, w, log.msgs[i])
		}
	}
}

func TestReporterDropsWhenFull(t *testing.T) {
	hw := &fakeTimer{}
	c := newTestClock(t, hw)
	log := newFrameLog(t)
	r := NewReporter(c, log.write, 10)

	for i := 0; i < pinEventRingSize+3; i++ {
		r.NotePinEvent(Pin(i))
	}
	if r.Drops() != 3 {
		t.Errorf("Expected 3 drops, got %d", r.Drops())
	}
	if n := r.Poll(); n != pinEventRingSize {
		t.Errorf("Expected %d events, got %d", pinEventRingSize, n)
	}

	r.SendClock()
	cr, ok := log.msgs[len(log.msgs)-1].(protocol.ClockReport)
	if !ok || cr.Drops != 3 {
		t.Errorf("Expected clock report with 3 drops, got %+v", log.msgs[len(log.msgs)-1])
	}
}
