//go:build ch592

package main

import "runtime/interrupt"

const rtcIRQn = 28

// enableRTCInterrupt installs the RTC handler. It only clears the latch
// and sets the alarm flag.
func enableRTCInterrupt() {
	intr := interrupt.New(rtcIRQn, func(interrupt.Interrupt) {
		rtc.HandleInterrupt()
	})
	intr.SetPriority(0x80)
	intr.Enable()
}
