//go:build ch592

package main

import (
	"runtime/volatile"
	"unsafe"

	"pdflogger/core"
)

// CH592 system control block (RTC and 32 kHz clock live here)
const (
	sysBase = 0x40001000

	regCK32KConfig   = sysBase + 0x2F
	regRTCFlagCtrl   = sysBase + 0x30
	regRTCModeCtrl   = sysBase + 0x31
	regRTCTrig       = sysBase + 0x34
	regRTCCnt32K     = sysBase + 0x38 // [31:16] 2 s periods, [15:0] 32k ticks
	regRTCCntDay     = sysBase + 0x3C
	regSafeAccessSig = sysBase + 0x40
	regRstWdogCtrl   = sysBase + 0x46

	safeAccessSig1 = 0x57
	safeAccessSig2 = 0xA8

	rstSoftwareReset = 0x01
)

var (
	ck32kConfig   = (*volatile.Register8)(unsafe.Pointer(uintptr(regCK32KConfig)))
	rtcFlagCtrl   = (*volatile.Register8)(unsafe.Pointer(uintptr(regRTCFlagCtrl)))
	rtcModeCtrl   = (*volatile.Register8)(unsafe.Pointer(uintptr(regRTCModeCtrl)))
	rtcTrig       = (*volatile.Register32)(unsafe.Pointer(uintptr(regRTCTrig)))
	rtcCnt32K     = (*volatile.Register32)(unsafe.Pointer(uintptr(regRTCCnt32K)))
	rtcCntDay     = (*volatile.Register32)(unsafe.Pointer(uintptr(regRTCCntDay)))
	safeAccessSig = (*volatile.Register8)(unsafe.Pointer(uintptr(regSafeAccessSig)))
	rstWdogCtrl   = (*volatile.Register8)(unsafe.Pointer(uintptr(regRstWdogCtrl)))
)

// ch592RTC maps core.RTCRegisters onto the CH592 system block
type ch592RTC struct{}

func (ch592RTC) Unlock() {
	safeAccessSig.Set(safeAccessSig1)
	safeAccessSig.Set(safeAccessSig2)
}

func (ch592RTC) Lock() {
	safeAccessSig.Set(0)
}

func (ch592RTC) ReadCounter() uint32        { return rtcCnt32K.Get() }
func (ch592RTC) ReadDays() uint32           { return rtcCntDay.Get() }
func (ch592RTC) WriteTrigger(value uint32)  { rtcTrig.Set(value) }
func (ch592RTC) SetModeBits(bits uint8)     { rtcModeCtrl.SetBits(bits) }
func (ch592RTC) ClearFlags(bits uint8)      { rtcFlagCtrl.Set(bits) }
func (ch592RTC) ReadOscConfig() uint8       { return ck32kConfig.Get() }
func (ch592RTC) WriteOscConfig(value uint8) { ck32kConfig.Set(value) }

// softReset resets the chip through the protected reset control register
func softReset() {
	core.WithProtectedAccess(ch592RTC{}, func() {
		rstWdogCtrl.SetBits(rstSoftwareReset)
	})
	for {
	}
}
