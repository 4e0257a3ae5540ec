//go:build ch592 && rtcdebug

package main

import "pdflogger/core"

// initDebug sends debug lines and the timing dump raw over UART1. Only
// for bench debugging: the text interleaves with protocol frames.
func initDebug() {
	core.SetDebugWriter(func(line string) {
		uartWrite([]byte(line))
		uartWrite([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)
}
