package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures an RTC event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Clock     uint32 // Counter value at the event (0 if not read)
	Value1    uint32 // Context-dependent value
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtArm           = 1 // Alarm armed: v1=target v2=previous target
	EvtFireObserved  = 2 // Main context saw AlarmFlag: v1=target
	EvtFireDiscarded = 3 // Re-armed over an unobserved fire: v1=old target
	EvtCalibrate     = 4 // LSI calibration ran: v1=run count
	EvtSeed          = 5 // Calendar seeded: v1=days v2=counter
	EvtFault         = 6 // Fatal fault raised
	EvtTimerDispatch = 7 // Timer service ran handlers: v1=count v2=next wake
	EvtArmRejected   = 8 // Arm refused: v1=target v2=distance
	EvtRearmFailed   = 9 // Timer head could not be armed: v1=wake v2=head
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (set by platform code)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln
	debugEnabled bool = false

	// Timing capture ring buffer. Main context only: the RTC IRQ handler
	// never records, it only sets AlarmFlag.
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8
	timingEnabled  bool = true
)

// SetDebugWriter sets the platform-specific debug output function
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

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures an event in the ring buffer
func RecordTiming(eventType uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue
		}
		events = append(events, evt)
	}
	return events
}

// timingEventName maps an event code to its dump label
func timingEventName(eventType uint8) string {
	switch eventType {
	case EvtArm:
		return "ARM"
	case EvtFireObserved:
		return "FIRE"
	case EvtFireDiscarded:
		return "FIRE_DISCARDED!"
	case EvtCalibrate:
		return "CALIBRATE"
	case EvtSeed:
		return "SEED"
	case EvtFault:
		return "FAULT!"
	case EvtTimerDispatch:
		return "TIMER_DISPATCH"
	case EvtArmRejected:
		return "ARM_REJECTED"
	case EvtRearmFailed:
		return "REARM_FAILED!"
	default:
		return "UNKNOWN"
	}
}

// DumpTimingRing outputs the timing ring buffer (call on fault)
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[RTC] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[RTC] " + timingEventName(evt.EventType) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[RTC] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
