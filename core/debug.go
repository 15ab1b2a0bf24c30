package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// RuntimeEvent captures a configuration-path event for post-mortem analysis.
// Only foreground code records events; interrupt handlers keep counters instead.
type RuntimeEvent struct {
	EventType uint8  // Event type code
	Group     uint8  // Port group or timer class
	Bit       uint8  // Bit position within the group
	Value     uint32 // Context-dependent value
}

// Event type codes
const (
	EvtClockStart     = 1 // Clock started; Value = divider
	EvtAttach         = 2 // Callback attached; Value = edge
	EvtDetach         = 3 // Callback detached
	EvtAttachRejected = 4 // Attach refused; Value = edge
	EvtPlanRejected   = 5 // Timer plan refused; Value = CPU frequency
	EvtTableAlloc     = 6 // Callback table materialized for a group
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether DebugPrintln output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]RuntimeEvent
	eventRingHead uint8
	eventsEnabled bool = true

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker()
}

func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output.
// Drops the message when the queue is full or async output was never started.
func DebugAsync(msg string) {
	if debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(eventType, group, bit uint8, value uint32) {
	if !eventsEnabled {
		return
	}
	idx := eventRingHead
	eventRing[idx] = RuntimeEvent{
		EventType: eventType,
		Group:     group,
		Bit:       bit,
		Value:     value,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// EventRing returns the recorded events, oldest first.
func EventRing() []RuntimeEvent {
	out := make([]RuntimeEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

// DumpEventRing outputs the event ring through the debug writer
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range EventRing() {
		var name string
		switch evt.EventType {
		case EvtClockStart:
			name = "CLOCK_START"
		case EvtAttach:
			name = "ATTACH"
		case EvtDetach:
			name = "DETACH"
		case EvtAttachRejected:
			name = "ATTACH_REJECTED!"
		case EvtPlanRejected:
			name = "PLAN_REJECTED!"
		case EvtTableAlloc:
			name = "TABLE_ALLOC"
		default:
			name = "UNKNOWN"
		}

		debugPrintln("[EVENTS] " + name +
			" group=" + itoa(int(evt.Group)) +
			" bit=" + itoa(int(evt.Bit)) +
			" v=" + utoa(evt.Value))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = RuntimeEvent{}
	}
	eventRingHead = 0
}
