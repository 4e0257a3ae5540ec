package core

// RTC flag register bits
const (
	RTCFlagTmrClr  = 0x10 // Write 1: clear the periodic timer latch
	RTCFlagTrigClr = 0x20 // Write 1: clear the trigger match latch
	RTCFlagTmr     = 0x40 // Periodic timer latch (read-only)
	RTCFlagTrig    = 0x80 // Trigger match latch (read-only)
)

// RTC mode register bits
const (
	RTCModeTrigEn = 0x10 // Enable the trigger (compare) interrupt
	RTCModeLoadHi = 0x40 // Load trigger value into the day counter
	RTCModeLoadLo = 0x80 // Load trigger value into the 2s/32k counters
)

// 32 kHz oscillator config register bits
const (
	Osc32kXT32kPon  = 0x01 // External crystal power on
	Osc32kInt32kPon = 0x02 // Internal RC power on
	Osc32kSelectXT  = 0x04 // Clock the RTC from the external crystal
	Osc32kClockPin  = 0x80 // Current level of the 32 kHz clock (read-only)
)

// RTCRegisters is the abstract register interface the RTC core uses.
// Platform-specific implementations map these onto the memory-mapped
// registers; tests use SimRegisters.
type RTCRegisters interface {
	// Unlock opens the protected-write window
	Unlock()

	// Lock closes the protected-write window
	Lock()

	// ReadCounter returns one raw read of the free-running 32 kHz counter.
	// The value may be torn when it races the slow clock domain.
	ReadCounter() uint32

	// ReadDays returns the calendar day counter
	ReadDays() uint32

	// WriteTrigger writes the compare register (protected)
	WriteTrigger(value uint32)

	// SetModeBits ORs bits into the mode register (protected)
	SetModeBits(bits uint8)

	// ClearFlags writes 1-to-clear bits into the flag register
	ClearFlags(bits uint8)

	// ReadOscConfig returns the 32 kHz oscillator config register
	ReadOscConfig() uint8

	// WriteOscConfig writes the 32 kHz oscillator config register (protected)
	WriteOscConfig(value uint8)
}

// Global singleton used by core code.
var rtcRegisters RTCRegisters

// SetRTCDriver is called by target-specific code to register its registers.
func SetRTCDriver(r RTCRegisters) {
	rtcRegisters = r
}

// MustRTCDriver returns the configured registers or panics if missing.
func MustRTCDriver() RTCRegisters {
	if rtcRegisters == nil {
		panic("RTC registers not configured")
	}
	return rtcRegisters
}
