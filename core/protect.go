package core

import "sync/atomic"

// protectedOpen is set while a protected-write window is open
var protectedOpen uint32 // atomic bool

// WithProtectedAccess opens the protected-write window, runs body and
// closes the window again on every exit path, including a panic in body.
//
// Interrupts stay masked for the whole bracket so the RTC IRQ can never
// preempt an open window. The guard is not reentrant; nesting panics.
func WithProtectedAccess(regs RTCRegisters, body func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if !atomic.CompareAndSwapUint32(&protectedOpen, 0, 1) {
		panic("protected register access is not reentrant")
	}
	defer atomic.StoreUint32(&protectedOpen, 0)

	regs.Unlock()
	defer regs.Lock()

	body()
}
