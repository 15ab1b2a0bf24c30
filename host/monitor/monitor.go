// Package monitor decodes a board's telemetry stream and checks the clock
// it reports.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tinycore/protocol"
)

// Stats summarizes a monitoring session.
type Stats struct {
	Frames       uint64
	FrameErrors  uint32 // rejected by the frame decoder
	DecodeErrors uint64 // valid frame, unparseable payload
	SeqGaps      uint64

	Identified bool
	Identify   protocol.Identify

	Clocks    uint64
	PinEvents uint64
	LastClock protocol.ClockReport

	// Monotonicity of the device clock, modulo 2^32
	MillisBackwards uint64
	MicrosBackwards uint64
	MillisWraps     uint64
	MicrosWraps     uint64

	// Device elapsed time minus host elapsed time since the first clock
	// report, in milliseconds
	DriftMs    int64
	MaxDriftMs int64
}

// Monitor reads frames from a board and tracks Stats.
type Monitor struct {
	src io.Reader
	dec *protocol.FrameDecoder
	cfg *Config
	out io.Writer
	now func() time.Time

	stats Stats

	haveSeq bool
	lastSeq uint8

	haveClock   bool
	prevMillis  uint32
	prevMicros  uint32
	devElapsed  uint64 // ms, accumulated across wraps
	hostStarted time.Time
}

// New creates a monitor reading from src. Verbose output goes to out when
// cfg.Verbose is set.
func New(src io.Reader, cfg *Config, out io.Writer) *Monitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if out == nil {
		out = io.Discard
	}
	return &Monitor{
		src: src,
		dec: protocol.NewFrameDecoder(512),
		cfg: cfg,
		out: out,
		now: time.Now,
	}
}

// Stats returns a copy of the current statistics.
func (m *Monitor) Stats() Stats {
	s := m.stats
	s.FrameErrors = m.dec.Errors()
	return s
}

// Run reads until ctx is done or the source fails. A source reaching EOF
// ends the session without error.
func (m *Monitor) Run(ctx context.Context) error {
	type chunk struct {
		data []byte
		err  error
	}
	chunks := make(chan chunk)
	go func() {
		for {
			buf := make([]byte, 256)
			n, err := m.src.Read(buf)
			select {
			case chunks <- chunk{buf[:n], err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-chunks:
			m.Feed(c.data)
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("read telemetry: %w", c.err)
			}
		}
	}
}

// Feed processes received bytes.
func (m *Monitor) Feed(p []byte) {
	for len(p) > 0 {
		n := m.dec.Write(p)
		p = p[n:]
		m.drain()
		if n == 0 && m.dec.Free() == 0 {
			// no progress possible
			return
		}
	}
}

func (m *Monitor) drain() {
	for {
		seq, payload, ok := m.dec.Next()
		if !ok {
			return
		}
		m.stats.Frames++
		m.checkSeq(seq)

		msg, err := protocol.Decode(payload)
		if err != nil {
			m.stats.DecodeErrors++
			m.logf("decode error: %v", err)
			continue
		}
		m.handle(msg)
	}
}

func (m *Monitor) checkSeq(seq uint8) {
	if m.haveSeq && seq != (m.lastSeq+1)&protocol.MessageSeqMask {
		m.stats.SeqGaps++
		m.logf("sequence gap: %d -> %d", m.lastSeq, seq)
	}
	m.haveSeq = true
	m.lastSeq = seq
}

func (m *Monitor) handle(msg protocol.Message) {
	switch v := msg.(type) {
	case protocol.Identify:
		m.stats.Identified = true
		m.stats.Identify = v
		m.logf("identify: class=%d cpu=%dHz divider=%d top=0x%X version=%d",
			v.Class, v.CPUFrequency, v.Divider, v.OverflowPeriod, v.Version)
	case protocol.ClockReport:
		m.clock(v)
	case protocol.PinEvent:
		m.stats.PinEvents++
		m.logf("pin %d event #%d at %d ms", v.Pin, v.Seq, v.Millis)
	}
}

func (m *Monitor) clock(r protocol.ClockReport) {
	m.stats.Clocks++
	m.stats.LastClock = r
	now := m.now()

	if !m.haveClock {
		m.haveClock = true
		m.hostStarted = now
		m.prevMillis = r.Millis
		m.prevMicros = r.Micros
		m.logf("clock: millis=%d micros=%d overflows=%d", r.Millis, r.Micros, r.Overflows)
		return
	}

	if d := int32(r.Millis - m.prevMillis); d < 0 {
		m.stats.MillisBackwards++
		m.logf("millis went backwards: %d -> %d", m.prevMillis, r.Millis)
	} else {
		if r.Millis < m.prevMillis {
			m.stats.MillisWraps++
		}
		m.devElapsed += uint64(d)
	}
	if d := int32(r.Micros - m.prevMicros); d < 0 {
		m.stats.MicrosBackwards++
		m.logf("micros went backwards: %d -> %d", m.prevMicros, r.Micros)
	} else if r.Micros < m.prevMicros {
		m.stats.MicrosWraps++
	}
	m.prevMillis = r.Millis
	m.prevMicros = r.Micros

	host := now.Sub(m.hostStarted).Milliseconds()
	drift := int64(m.devElapsed) - host
	m.stats.DriftMs = drift
	if abs64(drift) > abs64(m.stats.MaxDriftMs) {
		m.stats.MaxDriftMs = drift
	}
	if m.cfg.DriftToleranceMs > 0 && abs64(drift) > m.cfg.DriftToleranceMs {
		m.logf("drift %d ms exceeds tolerance %d ms", drift, m.cfg.DriftToleranceMs)
	}
	m.logf("clock: millis=%d micros=%d overflows=%d strays=%d drops=%d drift=%dms",
		r.Millis, r.Micros, r.Overflows, r.Strays, r.Drops, drift)
}

func (m *Monitor) logf(format string, args ...any) {
	if m.cfg.Verbose {
		fmt.Fprintf(m.out, format+"\n", args...)
	}
}

// Print writes a human readable summary.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Telemetry summary ===")
	if s.Identified {
		fmt.Fprintf(w, "Timer: class %d, %d Hz, divider %d, TOP 0x%X\n",
			s.Identify.Class, s.Identify.CPUFrequency, s.Identify.Divider, s.Identify.OverflowPeriod)
	} else {
		fmt.Fprintln(w, "Timer: not identified")
	}
	fmt.Fprintf(w, "Frames: %d (%d rejected, %d undecodable, %d sequence gaps)\n",
		s.Frames, s.FrameErrors, s.DecodeErrors, s.SeqGaps)
	fmt.Fprintf(w, "Clock reports: %d, last millis=%d micros=%d overflows=%d\n",
		s.Clocks, s.LastClock.Millis, s.LastClock.Micros, s.LastClock.Overflows)
	fmt.Fprintf(w, "Monotonicity: %d millis / %d micros violations, %d / %d wraps\n",
		s.MillisBackwards, s.MicrosBackwards, s.MillisWraps, s.MicrosWraps)
	fmt.Fprintf(w, "Drift: %d ms (max %d ms)\n", s.DriftMs, s.MaxDriftMs)
	fmt.Fprintf(w, "Pin events: %d, strays %d, drops %d\n", s.PinEvents, s.LastClock.Strays, s.LastClock.Drops)
}

// Healthy reports whether the session saw no clock violations.
func (s Stats) Healthy() bool {
	return s.MillisBackwards == 0 && s.MicrosBackwards == 0
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
