package core

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrHardwareInconsistency is raised when the counter never settles
	// on two identical consecutive reads.
	ErrHardwareInconsistency = errors.New("rtc: counter reads never converged")

	// ErrClockPinStuck is raised when the 32 kHz clock pin never goes high
	// while waiting to load the calendar.
	ErrClockPinStuck = errors.New("rtc: 32k clock pin stuck low")
)

// FaultHandler is the platform fatal-fault path (watchdog reset, halt).
// It is not expected to return on hardware.
type FaultHandler func(reason error)

var (
	isShutdown   uint32 // atomic bool
	faultReason  error
	faultHandler FaultHandler
)

// SetFaultHandler sets the platform fatal-fault handler
func SetFaultHandler(handler FaultHandler) {
	faultHandler = handler
}

// Fault escalates an unrecoverable hardware fault. It latches the
// shutdown flag, dumps the timing ring and hands over to the platform
// handler. Without a handler it panics; a fault is never swallowed.
func Fault(reason error) {
	atomic.StoreUint32(&isShutdown, 1)
	faultReason = reason
	RecordTiming(EvtFault, 0, 0, 0)
	DebugPrintln("[RTC] fault: " + reason.Error())
	DumpTimingRing()

	if faultHandler == nil {
		panic(reason.Error())
	}
	faultHandler(reason)
}

// IsShutdown returns true once a fault has been raised
func IsShutdown() bool {
	return atomic.LoadUint32(&isShutdown) != 0
}

// FaultReason returns the error passed to the last Fault call
func FaultReason() error {
	if !IsShutdown() {
		return nil
	}
	return faultReason
}

// ResetFaultState clears the shutdown flag (host reset, tests)
func ResetFaultState() {
	atomic.StoreUint32(&isShutdown, 0)
	faultReason = nil
}
