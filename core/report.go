package core

import (
	"sync/atomic"

	"tinycore/protocol"
)

// pinEventRingSize must be a power of two.
const pinEventRingSize = 16

// Reporter turns clock state and pin events into telemetry frames. Start,
// Poll and the scheduled clock report run in the foreground; NotePinEvent
// is the only method safe to call from an interrupt handler.
type Reporter struct {
	clock    *Clock
	write    func([]byte)
	interval uint32
	groups   []*PortGroup

	out   protocol.ScratchOutput
	seq   uint8
	timer Timer

	// Single-producer ring filled by interrupt handlers
	ring  [pinEventRingSize]uint8
	head  atomic.Uint32
	tail  atomic.Uint32
	drops atomic.Uint32

	pinSeq uint32
	failed uint32
}

// NewReporter creates a reporter sending frames through write every
// intervalMs milliseconds. The slice passed to write is reused afterwards.
func NewReporter(clock *Clock, write func([]byte), intervalMs uint32) *Reporter {
	if intervalMs == 0 {
		intervalMs = 1
	}
	r := &Reporter{
		clock:    clock,
		write:    write,
		interval: intervalMs,
	}
	r.timer.Handler = r.clockEvent
	return r
}

// WatchGroups adds port groups whose stray counts go into clock reports.
func (r *Reporter) WatchGroups(groups ...*PortGroup) {
	r.groups = append(r.groups, groups...)
}

// Start sends Identify and schedules the periodic clock report.
func (r *Reporter) Start() {
	p := r.clock.Plan()
	r.send(protocol.Identify{
		Class:          uint8(p.Class),
		CPUFrequency:   p.CPUFrequency,
		Divider:        p.Divider,
		OverflowPeriod: p.OverflowPeriod,
		Version:        protocol.Version,
	})
	r.timer.WakeTime = r.clock.Millis() + r.interval
	ScheduleTimer(&r.timer)
}

// Stop cancels the periodic clock report.
func (r *Reporter) Stop() {
	CancelTimer(&r.timer)
}

// NotePinEvent queues a pin event. When the queue is full the event is
// counted as dropped.
func (r *Reporter) NotePinEvent(pin Pin) {
	head := r.head.Load()
	if head-r.tail.Load() >= pinEventRingSize {
		r.drops.Add(1)
		return
	}
	r.ring[head&(pinEventRingSize-1)] = uint8(pin)
	r.head.Store(head + 1)
}

// Poll sends one frame per queued pin event and returns how many were sent.
// Events are stamped with the time they are drained.
func (r *Reporter) Poll() int {
	n := 0
	tail := r.tail.Load()
	for tail != r.head.Load() {
		pin := r.ring[tail&(pinEventRingSize-1)]
		tail++
		r.tail.Store(tail)

		r.send(protocol.PinEvent{Pin: pin, Seq: r.pinSeq, Millis: r.clock.Millis()})
		r.pinSeq++
		n++
	}
	return n
}

// Drops returns how many pin events were lost to a full queue.
func (r *Reporter) Drops() uint32 {
	return r.drops.Load()
}

// Failed returns how many frames could not be encoded.
func (r *Reporter) Failed() uint32 {
	return r.failed
}

// SendClock sends one clock report immediately.
func (r *Reporter) SendClock() {
	s := r.clock.Snapshot()
	var strays uint32
	for _, g := range r.groups {
		strays += g.Strays()
	}
	r.send(protocol.ClockReport{
		Millis:    s.Millis,
		Micros:    s.Micros,
		Overflows: s.Overflows,
		Strays:    strays,
		Drops:     r.drops.Load(),
	})
}

func (r *Reporter) clockEvent(t *Timer) uint8 {
	r.SendClock()

	t.WakeTime += r.interval
	now := r.clock.Millis()
	if timeBefore(t.WakeTime, now) {
		// Fell behind; skip the missed reports
		t.WakeTime = now + r.interval
	}
	return SF_RESCHEDULE
}

type encoder interface {
	Encode(out protocol.OutputBuffer)
}

func (r *Reporter) send(m encoder) {
	r.out.Reset()
	if err := protocol.EncodeFrame(&r.out, r.seq, m.Encode); err != nil {
		r.failed++
		DebugPrintln("[REPORT] encode failed: " + err.Error())
		return
	}
	r.seq = (r.seq + 1) & protocol.MessageSeqMask
	r.write(r.out.Result())
}
