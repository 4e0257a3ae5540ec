package core

import (
	"testing"

	"pdflogger/protocol"
)

// device is an RTC behind the command registry and a device transport
type device struct {
	rtc    *RTC
	regs   *SimRegisters
	timers *TimerService
	tr     *protocol.Transport
	out    *protocol.ScratchOutput
	seq    uint8
}

type response struct {
	id   uint16
	args []uint32
}

func newDevice(t *testing.T) *device {
	t.Helper()
	rtc, regs, desc := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	timers := NewTimerService(desc, rtc.Alarm())

	globalRegistry.Reset()
	InitRTCCommands()
	SetActiveRTC(rtc, timers)

	out := protocol.NewScratchOutput()
	tr := protocol.NewTransport(out, HandleCommand)
	SetGlobalTransport(tr)
	t.Cleanup(func() {
		SetGlobalTransport(nil)
		SetActiveRTC(nil, nil)
	})

	return &device{rtc: rtc, regs: regs, timers: timers, tr: tr, out: out, seq: protocol.MessageDest}
}

// send delivers one command frame and returns the responses, ACKs dropped
func (d *device) send(t *testing.T, cmdID uint16, args ...uint32) []response {
	t.Helper()

	body := protocol.NewScratchOutput()
	body.Output([]byte{0, d.seq})
	protocol.EncodeVLQUint(body, uint32(cmdID))
	protocol.EncodeArgs(body, args...)
	frame := append([]byte(nil), body.Result()...)
	frame[0] = uint8(len(frame) + protocol.MessageTrailer)
	crc := protocol.CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc), protocol.MessageValueSync)
	d.seq = (d.seq+1)&protocol.MessageSeqMask | protocol.MessageDest

	d.out.Reset()
	d.tr.Receive(protocol.NewSliceInputBuffer(frame))

	var resps []response
	data := d.out.Result()
	for len(data) > 0 {
		n := int(data[0])
		payload := data[protocol.MessageHeader : n-protocol.MessageTrailer]
		data = data[n:]
		if len(payload) == 0 {
			continue
		}
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			t.Fatalf("Bad response id: %v", err)
		}
		r := response{id: uint16(id)}
		for len(payload) > 0 {
			v, err := protocol.DecodeVLQUint(&payload)
			if err != nil {
				t.Fatalf("Bad response args: %v", err)
			}
			r.args = append(r.args, v)
		}
		resps = append(resps, r)
	}
	return resps
}

func (d *device) expect(t *testing.T, resps []response, id uint16, nargs int) []uint32 {
	t.Helper()
	if len(resps) != 1 || resps[0].id != id || len(resps[0].args) != nargs {
		t.Fatalf("Responses = %+v, want one id %d with %d args", resps, id, nargs)
	}
	return resps[0].args
}

func TestCommandIDsMatchProtocol(t *testing.T) {
	newDevice(t)

	for name, want := range map[string]uint16{
		"clock":           protocol.CmdClock,
		"get_clock":       protocol.CmdGetClock,
		"rtc_arm_in":      protocol.CmdRTCArmIn,
		"set_calendar":    protocol.CmdSetCalendar,
		"get_fault_state": protocol.CmdGetFaultState,
	} {
		cmd, ok := GetGlobalRegistry().GetCommandByName(name)
		if !ok || cmd.ID != want {
			t.Errorf("%s registered as %+v, want id %d", name, cmd, want)
		}
	}
}

func TestCommandGetClock(t *testing.T) {
	d := newDevice(t)
	d.regs.Tick(4242)

	args := d.expect(t, d.send(t, protocol.CmdGetClock), protocol.CmdClock, 1)
	if args[0] != 4242 {
		t.Errorf("clock = %d, want 4242", args[0])
	}
}

func TestCommandGetConfig(t *testing.T) {
	d := newDevice(t)

	args := d.expect(t, d.send(t, protocol.CmdGetRTCConfig), protocol.CmdRTCConfig, 4)
	if args[0] != 32768 || args[1] != ExternalAccuracyPPM || args[2] != RTCMaxCount || args[3] != 0 {
		t.Errorf("rtc_config = %v", args)
	}
}

func TestCommandArm(t *testing.T) {
	d := newDevice(t)

	args := d.expect(t, d.send(t, protocol.CmdRTCArmIn, 100), protocol.CmdRTCStatus, 5)
	if args[0] != 0 || AlarmMode(args[1]) != AlarmArmed || args[2] != 100 {
		t.Errorf("rtc_status = %v", args)
	}

	d.regs.Tick(100)
	d.timers.Dispatch()
	args = d.expect(t, d.send(t, protocol.CmdGetRTCStatus), protocol.CmdRTCStatus, 5)
	if args[0] != 1 || AlarmMode(args[1]) != AlarmFired || args[3] != 1 {
		t.Errorf("rtc_status after fire = %v", args)
	}

	args = d.expect(t, d.send(t, protocol.CmdRTCArm, 1000), protocol.CmdRTCStatus, 5)
	if AlarmMode(args[1]) != AlarmArmed || args[2] != 1000 {
		t.Errorf("rtc_status after re-arm = %v", args)
	}
}

func TestCommandArmRejected(t *testing.T) {
	d := newDevice(t)

	args := d.expect(t, d.send(t, protocol.CmdRTCArmIn, 0), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeMisconfiguredAlarm) {
		t.Errorf("rtc_error code = %d", args[0])
	}
	args = d.expect(t, d.send(t, protocol.CmdRTCArm, RTCMaxCount/2+5), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeMisconfiguredAlarm) {
		t.Errorf("rtc_error code = %d", args[0])
	}
}

func TestCommandCalendar(t *testing.T) {
	d := newDevice(t)

	args := d.expect(t, d.send(t, protocol.CmdSetCalendar, 2024, 2, 29, 13, 45, 7), protocol.CmdRTCCalendar, 6)
	want := []uint32{2024, 2, 29, 13, 45, 7}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("rtc_calendar = %v, want %v", args, want)
		}
	}

	d.regs.Tick(3 * 32768)
	args = d.expect(t, d.send(t, protocol.CmdGetCalendar), protocol.CmdRTCCalendar, 6)
	if args[5] != 10 {
		t.Errorf("second = %d, want 10", args[5])
	}

	args = d.expect(t, d.send(t, protocol.CmdSetCalendar, 2024, 2, 30, 0, 0, 0), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeInvalidSeed) {
		t.Errorf("rtc_error code = %d", args[0])
	}
	args = d.expect(t, d.send(t, protocol.CmdSetCalendar, 2024, 300, 1, 0, 0, 0), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeInvalidSeed) {
		t.Errorf("rtc_error code = %d", args[0])
	}
}

func TestCommandCalendarRearmsTimers(t *testing.T) {
	d := newDevice(t)

	timer := &Timer{Handler: func(*Timer) uint8 { return SF_DONE }}
	if err := d.timers.ScheduleIn(timer, 500); err != nil {
		t.Fatalf("ScheduleIn failed: %v", err)
	}
	d.send(t, protocol.CmdSetCalendar, 2020, 1, 1, 0, 0, 0)

	if target, pending := d.rtc.Alarm().Target(); !pending || target != timer.WakeTime {
		t.Errorf("Target = %d pending=%v, want %d", target, pending, timer.WakeTime)
	}
}

func TestCommandTruncatedArguments(t *testing.T) {
	d := newDevice(t)

	// rtc_arm without its target: the decoder runs out of bytes
	args := d.expect(t, d.send(t, protocol.CmdRTCArm), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeBadArguments) {
		t.Errorf("rtc_error code = %d", args[0])
	}
}

func TestCommandNotReady(t *testing.T) {
	d := newDevice(t)
	SetActiveRTC(nil, nil)

	args := d.expect(t, d.send(t, protocol.CmdGetClock), protocol.CmdRTCError, 1)
	if args[0] != uint32(protocol.ErrCodeNotReady) {
		t.Errorf("rtc_error code = %d", args[0])
	}
}

func TestCommandFaultState(t *testing.T) {
	d := newDevice(t)

	args := d.expect(t, d.send(t, protocol.CmdGetFaultState), protocol.CmdFaultState, 1)
	if args[0] != 0 {
		t.Errorf("is_shutdown = %d", args[0])
	}

	SetFaultHandler(func(error) {})
	defer SetFaultHandler(nil)
	defer ResetFaultState()
	Fault(ErrHardwareInconsistency)

	args = d.expect(t, d.send(t, protocol.CmdGetFaultState), protocol.CmdFaultState, 1)
	if args[0] != 1 {
		t.Errorf("is_shutdown = %d after fault", args[0])
	}
}
