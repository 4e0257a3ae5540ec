// Package protocol implements the framed command protocol spoken between
// the logger firmware and the host tools
package protocol

// Version is the protocol revision reported by the host tools
const Version = "0.1.0"

const (
	MessageMax     = 256 // Scratch output size, room for a few frames
	MessageHeader  = 2   // [len][seq]
	MessageTrailer = 3   // [crc hi][crc lo][sync]

	MessageSeqMask = 0x0F
)

// Command and response ids. The firmware registers them in this order, so
// the host can use the constants without fetching a dictionary.
const (
	CmdClock uint16 = iota
	CmdGetClock
	CmdRTCConfig
	CmdGetRTCConfig
	CmdRTCArm
	CmdRTCArmIn
	CmdRTCStatus
	CmdGetRTCStatus
	CmdRTCCalendar
	CmdGetCalendar
	CmdSetCalendar
	CmdRTCError
	CmdFaultState
	CmdGetFaultState
)

// Error codes carried by rtc_error
const (
	ErrCodeNone uint8 = iota
	ErrCodeMisconfiguredAlarm
	ErrCodeInvalidSeed
	ErrCodeClockPinStuck
	ErrCodeNotReady
	ErrCodeBadArguments
	ErrCodeInternal
)

// ErrCodeName returns a short name for an rtc_error code
func ErrCodeName(code uint8) string {
	switch code {
	case ErrCodeNone:
		return "none"
	case ErrCodeMisconfiguredAlarm:
		return "misconfigured_alarm"
	case ErrCodeInvalidSeed:
		return "invalid_seed"
	case ErrCodeClockPinStuck:
		return "clock_pin_stuck"
	case ErrCodeNotReady:
		return "not_ready"
	case ErrCodeBadArguments:
		return "bad_arguments"
	default:
		return "internal"
	}
}
