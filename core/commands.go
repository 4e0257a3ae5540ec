package core

import (
	"errors"

	"pdflogger/protocol"
)

var (
	activeRTC    *RTC
	activeTimers *TimerService
)

// SetActiveRTC sets the RTC the commands operate on. timers may be nil;
// when set it is re-armed after a calendar load.
func SetActiveRTC(rtc *RTC, timers *TimerService) {
	activeRTC = rtc
	activeTimers = timers
}

// InitRTCCommands registers the RTC commands and responses. Ids follow
// registration order and must match the protocol constants.
func InitRTCCommands() {
	mustRegister(protocol.CmdClock, RegisterResponse("clock", "clock=%u"))
	mustRegister(protocol.CmdGetClock, RegisterCommand("get_clock", "", handleGetClock))
	mustRegister(protocol.CmdRTCConfig, RegisterResponse("rtc_config", "freq=%u accuracy=%hu max_count=%u internal=%c"))
	mustRegister(protocol.CmdGetRTCConfig, RegisterCommand("get_rtc_config", "", handleGetRTCConfig))
	mustRegister(protocol.CmdRTCArm, RegisterCommand("rtc_arm", "target=%u", handleRTCArm))
	mustRegister(protocol.CmdRTCArmIn, RegisterCommand("rtc_arm_in", "ticks=%u", handleRTCArmIn))
	mustRegister(protocol.CmdRTCStatus, RegisterResponse("rtc_status", "fired=%c state=%c target=%u fires=%u discarded=%u"))
	mustRegister(protocol.CmdGetRTCStatus, RegisterCommand("get_rtc_status", "", handleGetRTCStatus))
	mustRegister(protocol.CmdRTCCalendar, RegisterResponse("rtc_calendar", calendarFormat))
	mustRegister(protocol.CmdGetCalendar, RegisterCommand("get_calendar", "", handleGetCalendar))
	mustRegister(protocol.CmdSetCalendar, RegisterCommand("set_calendar", calendarFormat, handleSetCalendar))
	mustRegister(protocol.CmdRTCError, RegisterResponse("rtc_error", "code=%c"))
	mustRegister(protocol.CmdFaultState, RegisterResponse("fault_state", "is_shutdown=%c"))
	mustRegister(protocol.CmdGetFaultState, RegisterCommand("get_fault_state", "", handleGetFaultState))
}

const calendarFormat = "year=%hu month=%c day=%c hour=%c minute=%c second=%c"

func mustRegister(want, got uint16) {
	if want != got {
		panic("command id " + itoa(int(got)) + " registered out of order, want " + itoa(int(want)))
	}
}

func handleGetClock(data *[]byte) error {
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	clock := activeRTC.Read()
	SendResponse("clock", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, clock)
	})
	return nil
}

func handleGetRTCConfig(data *[]byte) error {
	if activeRTC == nil || !activeRTC.Descriptor().Valid() {
		return sendError(protocol.ErrCodeNotReady)
	}
	desc := activeRTC.Descriptor()
	SendResponse("rtc_config", func(output protocol.OutputBuffer) {
		protocol.EncodeArgs(output,
			desc.Frequency(),
			uint32(desc.Accuracy()),
			desc.MaxCount(),
			boolArg(activeRTC.Oscillator().UseInternal()))
	})
	return nil
}

func handleRTCArm(data *[]byte) error {
	target, err := protocol.DecodeVLQUint(data)
	if err != nil {
		_ = sendError(protocol.ErrCodeBadArguments)
		return err
	}
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	if err := activeRTC.Alarm().Arm(target); err != nil {
		return sendError(errorCode(err))
	}
	sendStatus()
	return nil
}

func handleRTCArmIn(data *[]byte) error {
	ticks, err := protocol.DecodeVLQUint(data)
	if err != nil {
		_ = sendError(protocol.ErrCodeBadArguments)
		return err
	}
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	if err := activeRTC.Alarm().ArmIn(ticks); err != nil {
		return sendError(errorCode(err))
	}
	sendStatus()
	return nil
}

func handleGetRTCStatus(data *[]byte) error {
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	sendStatus()
	return nil
}

func sendStatus() {
	alarm := activeRTC.Alarm()
	target, _ := alarm.Target()
	stats := alarm.Stats()
	SendResponse("rtc_status", func(output protocol.OutputBuffer) {
		protocol.EncodeArgs(output,
			boolArg(alarm.Fired()),
			uint32(alarm.State()),
			target,
			stats.Fires,
			stats.Discarded)
	})
}

func handleGetCalendar(data *[]byte) error {
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	sendCalendar(activeRTC.Calendar())
	return nil
}

func handleSetCalendar(data *[]byte) error {
	var year, month, day, hour, minute, second uint32
	if err := protocol.DecodeArgs(data, &year, &month, &day, &hour, &minute, &second); err != nil {
		_ = sendError(protocol.ErrCodeBadArguments)
		return err
	}
	if activeRTC == nil {
		return sendError(protocol.ErrCodeNotReady)
	}
	if year > 0xFFFF || month > 0xFF || day > 0xFF || hour > 0xFF || minute > 0xFF || second > 0xFF {
		return sendError(protocol.ErrCodeInvalidSeed)
	}

	seed := CalendarSeed{
		Year:   uint16(year),
		Month:  uint8(month),
		Day:    uint8(day),
		Hour:   uint8(hour),
		Minute: uint8(minute),
		Second: uint8(second),
	}
	if err := activeRTC.SeedCalendar(seed); err != nil {
		return sendError(errorCode(err))
	}
	if activeTimers != nil {
		if err := activeTimers.Rearm(); err != nil {
			return sendError(errorCode(err))
		}
	}
	sendCalendar(activeRTC.Calendar())
	return nil
}

func sendCalendar(c CalendarSeed) {
	SendResponse("rtc_calendar", func(output protocol.OutputBuffer) {
		protocol.EncodeArgs(output,
			uint32(c.Year), uint32(c.Month), uint32(c.Day),
			uint32(c.Hour), uint32(c.Minute), uint32(c.Second))
	})
}

func handleGetFaultState(data *[]byte) error {
	SendResponse("fault_state", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, boolArg(IsShutdown()))
	})
	return nil
}

// sendError reports a failed command to the host. The command itself is
// considered handled, so it returns nil.
func sendError(code uint8) error {
	SendResponse("rtc_error", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(code))
	})
	return nil
}

// errorCode maps RTC errors onto rtc_error codes
func errorCode(err error) uint8 {
	switch {
	case errors.Is(err, ErrMisconfiguredAlarm):
		return protocol.ErrCodeMisconfiguredAlarm
	case errors.Is(err, ErrInvalidSeed):
		return protocol.ErrCodeInvalidSeed
	case errors.Is(err, ErrClockPinStuck):
		return protocol.ErrCodeClockPinStuck
	case errors.Is(err, ErrClockNotReady):
		return protocol.ErrCodeNotReady
	default:
		return protocol.ErrCodeInternal
	}
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Global transport for sending responses (set by main)
var globalTransport *protocol.Transport

// SetGlobalTransport sets the transport responses go out on
func SetGlobalTransport(transport *protocol.Transport) {
	globalTransport = transport
}

// SendResponse sends a registered response on the global transport
func SendResponse(responseName string, args func(output protocol.OutputBuffer)) {
	if globalTransport == nil {
		return
	}
	cmd, ok := globalRegistry.GetCommandByName(responseName)
	if !ok {
		// All responses are registered at init
		panic("Response not registered: " + responseName)
	}
	globalTransport.SendCommand(cmd.ID, args)
}

// HandleCommand is the transport command handler for the global registry
func HandleCommand(cmdID uint16, data *[]byte) error {
	return DispatchCommand(cmdID, data)
}
