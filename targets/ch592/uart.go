//go:build ch592

package main

import (
	"runtime/volatile"
	"unsafe"
)

const (
	sysClockHz = 60000000
	uartBaud   = 250000

	uart1Base = 0x40003400
	gpioABase = 0x400010A0

	uartFIFOSize = 8

	fcrFIFOEn    = 0x01
	fcrRxFIFOClr = 0x02
	fcrTxFIFOClr = 0x04
	fcrTrigger4  = 0x80
	lcrWord8     = 0x03
	ierTxdEn     = 0x40
	lsrDataReady = 0x01

	pinRXD1 = 1 << 8 // PA8
	pinTXD1 = 1 << 9 // PA9
)

type uartRegs struct {
	MCR volatile.Register8
	IER volatile.Register8
	FCR volatile.Register8
	IIR volatile.Register8
	LCR volatile.Register8
	LSR volatile.Register8
	_   [2]byte
	RBR volatile.Register8 // THR on write
	_   byte
	RFC volatile.Register8
	TFC volatile.Register8
	DL  volatile.Register16
	DIV volatile.Register8
}

type gpioRegs struct {
	DIR  volatile.Register32
	PIN  volatile.Register32
	OUT  volatile.Register32
	CLR  volatile.Register32
	PU   volatile.Register32
	PDDR volatile.Register32
}

var (
	uart1 = (*uartRegs)(unsafe.Pointer(uintptr(uart1Base)))
	gpioA = (*gpioRegs)(unsafe.Pointer(uintptr(gpioABase)))
)

// initUART configures UART1 on PA8/PA9, 8N1
func initUART() {
	gpioA.OUT.SetBits(pinTXD1)
	gpioA.DIR.SetBits(pinTXD1)
	gpioA.DIR.ClearBits(pinRXD1)
	gpioA.PU.SetBits(pinRXD1)

	div := (10*sysClockHz/8/uartBaud + 5) / 10
	uart1.DIV.Set(1)
	uart1.DL.Set(uint16(div))
	uart1.FCR.Set(fcrTrigger4 | fcrTxFIFOClr | fcrRxFIFOClr | fcrFIFOEn)
	uart1.LCR.Set(lcrWord8)
	uart1.IER.Set(ierTxdEn)
}

// uartPoll moves received bytes into the input FIFO
func uartPoll() int {
	n := 0
	for uart1.LSR.Get()&lsrDataReady != 0 {
		b := uart1.RBR.Get()
		if inputBuffer.Write([]byte{b}) == 0 {
			rxOverruns++
		}
		n++
	}
	return n
}

// uartWrite blocks until data is in the transmit FIFO
func uartWrite(data []byte) {
	for _, b := range data {
		for uart1.TFC.Get() >= uartFIFOSize {
		}
		uart1.RBR.Set(b)
	}
}
