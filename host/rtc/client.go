// Package rtc talks to the logger's RTC over the serial protocol
package rtc

import (
	"context"
	"fmt"
	"io"
	"time"

	"pdflogger/core"
	"pdflogger/protocol"
)

// DeviceError is an rtc_error response
type DeviceError struct {
	Code uint8
}

func (e *DeviceError) Error() string {
	return "device error: " + protocol.ErrCodeName(e.Code)
}

// ClockConfig is the device clock descriptor
type ClockConfig struct {
	Frequency   uint32
	AccuracyPPM uint16
	MaxCount    uint32
	Internal    bool
}

// Space returns the tick space of the device counter
func (c ClockConfig) Space() core.TickSpace {
	return core.NewTickSpace(c.MaxCount)
}

// Status is the device alarm state
type Status struct {
	Fired     bool
	State     core.AlarmMode
	Target    uint32
	Fires     uint32
	Discarded uint32
}

// Client issues RTC commands. Calls are serialized.
type Client struct {
	tr      *protocol.HostTransport
	timeout time.Duration
}

// NewClient starts a client on port. timeout bounds each round trip on
// top of any deadline in the caller's context.
func NewClient(port io.ReadWriteCloser, timeout time.Duration) *Client {
	return &Client{
		tr:      protocol.NewHostTransport(port),
		timeout: timeout,
	}
}

// Close stops the client and closes the port
func (c *Client) Close() error {
	return c.tr.Close()
}

// Clock reads the raw tick counter
func (c *Client) Clock(ctx context.Context) (uint32, error) {
	args, err := c.call(ctx, protocol.CmdGetClock, nil, protocol.CmdClock, 1)
	if err != nil {
		return 0, err
	}
	return args[0], nil
}

// Config reads the clock descriptor
func (c *Client) Config(ctx context.Context) (ClockConfig, error) {
	args, err := c.call(ctx, protocol.CmdGetRTCConfig, nil, protocol.CmdRTCConfig, 4)
	if err != nil {
		return ClockConfig{}, err
	}
	return ClockConfig{
		Frequency:   args[0],
		AccuracyPPM: uint16(args[1]),
		MaxCount:    args[2],
		Internal:    args[3] != 0,
	}, nil
}

// Status reads the alarm state
func (c *Client) Status(ctx context.Context) (Status, error) {
	args, err := c.call(ctx, protocol.CmdGetRTCStatus, nil, protocol.CmdRTCStatus, 5)
	if err != nil {
		return Status{}, err
	}
	return decodeStatus(args), nil
}

// Arm arms the device alarm at an absolute tick
func (c *Client) Arm(ctx context.Context, target uint32) (Status, error) {
	return c.arm(ctx, protocol.CmdRTCArm, target)
}

// ArmIn arms the device alarm ticks from its current count
func (c *Client) ArmIn(ctx context.Context, ticks uint32) (Status, error) {
	return c.arm(ctx, protocol.CmdRTCArmIn, ticks)
}

func (c *Client) arm(ctx context.Context, cmd uint16, v uint32) (Status, error) {
	args, err := c.call(ctx, cmd, []uint32{v}, protocol.CmdRTCStatus, 5)
	if err != nil {
		return Status{}, err
	}
	return decodeStatus(args), nil
}

// Calendar reads the device date and time
func (c *Client) Calendar(ctx context.Context) (time.Time, error) {
	args, err := c.call(ctx, protocol.CmdGetCalendar, nil, protocol.CmdRTCCalendar, 6)
	if err != nil {
		return time.Time{}, err
	}
	return decodeCalendar(args), nil
}

// SetCalendar loads a new date and time (UTC, seconds resolution) and
// returns what the device reads back. A pending alarm is lost.
func (c *Client) SetCalendar(ctx context.Context, t time.Time) (time.Time, error) {
	s := core.SeedFromTime(t)
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	req := []uint32{
		uint32(s.Year), uint32(s.Month), uint32(s.Day),
		uint32(s.Hour), uint32(s.Minute), uint32(s.Second),
	}
	args, err := c.call(ctx, protocol.CmdSetCalendar, req, protocol.CmdRTCCalendar, 6)
	if err != nil {
		return time.Time{}, err
	}
	return decodeCalendar(args), nil
}

// FaultState reports whether the device latched a fatal fault
func (c *Client) FaultState(ctx context.Context) (bool, error) {
	args, err := c.call(ctx, protocol.CmdGetFaultState, nil, protocol.CmdFaultState, 1)
	if err != nil {
		return false, err
	}
	return args[0] != 0, nil
}

// call sends cmd and decodes nargs integers from the want response
func (c *Client) call(ctx context.Context, cmd uint16, req []uint32, want uint16, nargs int) ([]uint32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.tr.Request(ctx, cmd, func(out protocol.OutputBuffer) {
		protocol.EncodeArgs(out, req...)
	}, want, protocol.CmdRTCError)
	if err != nil {
		return nil, err
	}

	data := resp.Args
	if resp.ID == protocol.CmdRTCError {
		code, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return nil, fmt.Errorf("decode rtc_error: %w", err)
		}
		return nil, &DeviceError{Code: uint8(code)}
	}

	args := make([]uint32, nargs)
	ptrs := make([]*uint32, nargs)
	for i := range args {
		ptrs[i] = &args[i]
	}
	if err := protocol.DecodeArgs(&data, ptrs...); err != nil {
		return nil, fmt.Errorf("decode response %d: %w", resp.ID, err)
	}
	return args, nil
}

func decodeStatus(args []uint32) Status {
	return Status{
		Fired:     args[0] != 0,
		State:     core.AlarmMode(args[1]),
		Target:    args[2],
		Fires:     args[3],
		Discarded: args[4],
	}
}

func decodeCalendar(args []uint32) time.Time {
	return core.CalendarSeed{
		Year:   uint16(args[0]),
		Month:  uint8(args[1]),
		Day:    uint8(args[2]),
		Hour:   uint8(args[3]),
		Minute: uint8(args[4]),
		Second: uint8(args[5]),
	}.Time()
}
