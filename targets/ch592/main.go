//go:build ch592

package main

import (
	"tinygo.org/x/drivers"

	"pdflogger/config"
	"pdflogger/core"
	"pdflogger/protocol"
	"pdflogger/seed"
)

const externalRTCBusHz = 100000

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	rtc    *core.RTC
	timers *core.TimerService

	rxOverruns uint32
)

func main() {
	initUART()
	initDebug()

	// A fault dumps the timing ring, then the chip restarts
	core.SetFaultHandler(func(reason error) {
		flushOutput()
		softReset()
	})

	core.SetRTCDriver(ch592RTC{})
	core.SetI2CDriver(ch592I2C{})

	info := loadDeviceConfig()
	bootSeed, err := seed.ForDevice(info, externalRTCBus(info))
	if err != nil {
		bootSeed = config.DefaultDeviceConfig().Seed()
	}

	rtc = core.NewRTC(core.MustRTCDriver(), core.RTCMaxCount, core.CalibratorFunc(calibrateLSI))
	desc, err := rtc.Boot(core.BootConfig{Source: oscSource, Seed: bootSeed})
	if err != nil {
		core.Fault(err)
	}
	timers = core.NewTimerService(desc, rtc.Alarm())
	if err := rtc.StartCalibration(timers, info.CalibrationPeriod()); err != nil {
		core.DebugPrintln("[RTC] calibration timer: " + err.Error())
	}
	enableRTCInterrupt()

	core.InitRTCCommands()
	core.SetActiveRTC(rtc, timers)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	transport = protocol.NewTransport(outputBuffer, core.HandleCommand)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	transport.SetFlushCallback(flushOutput)
	core.SetGlobalTransport(transport)

	for {
		uartPoll()
		if inputBuffer.Available() > 0 {
			transport.Receive(inputBuffer)
		}
		flushOutput()
		timers.Dispatch()
	}
}

// externalRTCBus returns the I2C bus of the DS3231, or nil when the
// configuration does not use one or the bus fails to come up.
func externalRTCBus(info *config.DeviceInfo) drivers.I2C {
	if !info.ExternalRTC {
		return nil
	}
	if err := core.MustI2C().ConfigureBus(0, externalRTCBusHz); err != nil {
		return nil
	}
	return core.I2CBus{Driver: core.MustI2C(), Bus: 0}
}

// flushOutput writes pending frames to UART1
func flushOutput() {
	if outputBuffer == nil {
		return
	}
	if data := outputBuffer.Result(); len(data) > 0 {
		uartWrite(data)
		outputBuffer.Reset()
	}
}
