package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tinycore/core"
	"tinycore/sim"
)

// Loopback runs a simulated board in-process: a sim timer drives the clock
// in real time, a sim port toggles one pin, and a core.Reporter writes the
// resulting telemetry into a pipe the monitor reads.
type Loopback struct {
	cfg  SimConfig
	plan core.Plan

	timer    *sim.Timer
	port     *sim.Port
	clock    *core.Clock
	group    *core.PortGroup
	reporter *core.Reporter

	pr   *io.PipeReader
	pw   *io.PipeWriter
	werr error
}

// NewLoopback builds the simulated board. Nothing runs until Run.
func NewLoopback(cfg SimConfig) (*Loopback, error) {
	class, err := ParseTimerClass(cfg.TimerClass)
	if err != nil {
		return nil, err
	}
	plan, err := core.SelectPlan(class, cfg.CPUFrequency)
	if err != nil {
		return nil, err
	}
	if cfg.Pin >= core.GroupSize {
		return nil, fmt.Errorf("sim pin %d: %w", cfg.Pin, core.ErrInvalidPin)
	}

	cpu := sim.NewCPU()
	l := &Loopback{
		cfg:   cfg,
		plan:  plan,
		timer: sim.NewTimer(cpu),
		port:  sim.NewPort(cpu),
	}
	l.clock = core.NewClock(plan, l.timer)
	l.group = core.NewPortGroup(0, l.port)
	l.port.SetVector(l.group.Dispatch)
	l.reporter = core.NewReporter(l.clock, l.write, cfg.ReportIntervalMs)
	l.reporter.WatchGroups(l.group)
	l.pr, l.pw = io.Pipe()
	return l, nil
}

// Reader returns the telemetry stream.
func (l *Loopback) Reader() io.Reader {
	return l.pr
}

// Close stops the stream from the reading side.
func (l *Loopback) Close() error {
	return l.pr.Close()
}

// Plan returns the timer plan of the simulated board.
func (l *Loopback) Plan() core.Plan {
	return l.plan
}

func (l *Loopback) write(b []byte) {
	if l.werr != nil {
		return
	}
	if _, err := l.pw.Write(b); err != nil {
		l.werr = err
	}
}

// Run drives the board until ctx is done or the reader goes away, then
// closes the stream.
func (l *Loopback) Run(ctx context.Context) error {
	defer l.pw.Close()

	if err := l.clock.Start(); err != nil {
		return err
	}
	pin := core.Pin(l.cfg.Pin)
	if err := l.group.Attach(l.cfg.Pin, func() { l.reporter.NotePinEvent(pin) }, core.EdgeRising); err != nil {
		return err
	}
	l.reporter.Start()
	defer l.reporter.Stop()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	ticksPerSecond := uint64(l.plan.CPUFrequency) / uint64(l.plan.Divider)
	var issued uint64
	var lastToggle uint32

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			us := uint64(now.Sub(start).Microseconds())
			want := us * ticksPerSecond / 1000000
			l.timer.Tick(uint32(want - issued))
			issued = want

			ms := l.clock.Millis()
			if ms-lastToggle >= l.cfg.ToggleIntervalMs {
				l.port.Toggle(l.cfg.Pin)
				lastToggle = ms
			}
			core.TimerDispatch(ms)
			l.reporter.Poll()

			if l.werr != nil {
				if errors.Is(l.werr, io.ErrClosedPipe) {
					return nil
				}
				return fmt.Errorf("write telemetry: %w", l.werr)
			}
		}
	}
}
