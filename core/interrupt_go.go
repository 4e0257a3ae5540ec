//go:build !tinygo

package core

import "sync/atomic"

// State is the saved interrupt mask on regular Go
type State uintptr

// maskDepth counts nested disableInterrupts calls so hosted builds
// (tests, the loopback emulator) can tell when an IRQ must be held back.
var maskDepth int32

// disableInterrupts marks interrupts as masked on regular Go
func disableInterrupts() State {
	return State(atomic.AddInt32(&maskDepth, 1) - 1)
}

// restoreInterrupts returns to the mask depth saved in state
func restoreInterrupts(state State) {
	atomic.StoreInt32(&maskDepth, int32(state))
}

// interruptsMasked reports whether a guarded section is in progress
func interruptsMasked() bool {
	return atomic.LoadInt32(&maskDepth) > 0
}
