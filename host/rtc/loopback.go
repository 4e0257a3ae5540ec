package rtc

import (
	"bytes"
	"io"
	"sync"
	"time"

	"pdflogger/core"
	"pdflogger/protocol"
)

// LoopbackOptions configures the emulated device
type LoopbackOptions struct {
	Source core.OscSource
	// MaxCount defaults to core.RTCMaxCount
	MaxCount uint32
	// Seed defaults to 2020-01-01 00:00:00
	Seed core.CalendarSeed
	// CalibrationPeriodMS schedules internal RC recalibration; 0 disables
	CalibrationPeriodMS uint32
	// SkewPPM makes the emulated oscillator run fast (positive) or slow
	SkewPPM float64
	// Now is the wall clock the emulated counter follows
	Now func() time.Time
}

// Loopback is an in-process device: the RTC core on simulated registers
// behind the device transport, as an io.ReadWriteCloser. Its counter
// follows the wall clock. The core keeps its command state in package
// globals, so only one Loopback may be open at a time.
type Loopback struct {
	mu        sync.Mutex
	regs      *core.SimRegisters
	rtc       *core.RTC
	timers    *core.TimerService
	transport *protocol.Transport
	in        *protocol.FifoBuffer
	out       *protocol.ScratchOutput
	rx        bytes.Buffer

	now      func() time.Time
	last     time.Time
	rate     float64 // Ticks per nanosecond
	fraction float64 // Sub-tick carry

	ready     chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// NewLoopback boots an emulated device
func NewLoopback(opts LoopbackOptions) (*Loopback, error) {
	if opts.MaxCount == 0 {
		opts.MaxCount = core.RTCMaxCount
	}
	if opts.Seed == (core.CalendarSeed{}) {
		opts.Seed = core.CalendarSeed{Year: core.CalendarEpochYear, Month: 1, Day: 1}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	core.ResetFaultState()
	regs := core.NewSimRegisters(opts.MaxCount)
	rtc := core.NewRTC(regs, opts.MaxCount, core.CalibratorFunc(func() {}))
	regs.SetIRQHandler(rtc.HandleInterrupt)

	desc, err := rtc.Boot(core.BootConfig{Source: opts.Source, Seed: opts.Seed})
	if err != nil {
		return nil, err
	}
	timers := core.NewTimerService(desc, rtc.Alarm())
	if err := rtc.StartCalibration(timers, opts.CalibrationPeriodMS); err != nil {
		return nil, err
	}

	l := &Loopback{
		regs:   regs,
		rtc:    rtc,
		timers: timers,
		in:     protocol.NewFifoBuffer(512),
		out:    protocol.NewScratchOutput(),
		now:    opts.Now,
		last:   opts.Now(),
		rate:   float64(desc.Frequency()) * (1 + opts.SkewPPM/1e6) / 1e9,
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}

	registry := core.GetGlobalRegistry()
	registry.Reset()
	core.InitRTCCommands()
	core.SetActiveRTC(rtc, timers)
	l.transport = protocol.NewTransport(l.out, core.HandleCommand)
	core.SetGlobalTransport(l.transport)
	return l, nil
}

// Write feeds host bytes to the device
func (l *Loopback) Write(b []byte) (int, error) {
	select {
	case <-l.closed:
		return 0, io.ErrClosedPipe
	default:
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sync()
	l.in.Write(b)
	l.transport.Receive(l.in)
	if data := l.out.Result(); len(data) > 0 {
		l.rx.Write(data)
		l.out.Reset()
		select {
		case l.ready <- struct{}{}:
		default:
		}
	}
	return len(b), nil
}

// Read returns device bytes, blocking until some arrive or Close
func (l *Loopback) Read(b []byte) (int, error) {
	for {
		l.mu.Lock()
		if l.rx.Len() > 0 {
			n, err := l.rx.Read(b)
			l.mu.Unlock()
			return n, err
		}
		l.mu.Unlock()

		select {
		case <-l.ready:
		case <-l.closed:
			return 0, io.EOF
		}
	}
}

// Close detaches the emulated device from the core globals
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.mu.Lock()
		defer l.mu.Unlock()
		core.SetGlobalTransport(nil)
		core.SetActiveRTC(nil, nil)
	})
	return nil
}

// Advance moves the emulated counter forward by ticks and runs due timers
func (l *Loopback) Advance(ticks uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance(ticks)
}

// RTC returns the emulated device RTC
func (l *Loopback) RTC() *core.RTC {
	return l.rtc
}

// Registers returns the simulated register block
func (l *Loopback) Registers() *core.SimRegisters {
	return l.regs
}

// sync catches the counter up with the wall clock
func (l *Loopback) sync() {
	now := l.now()
	elapsed := now.Sub(l.last)
	l.last = now
	if elapsed <= 0 {
		return
	}

	exact := float64(elapsed)*l.rate + l.fraction
	whole := uint64(exact)
	l.fraction = exact - float64(whole)

	for whole > 0 {
		step := uint32(min(whole, uint64(l.rtc.Space().Horizon()-1)))
		l.advance(step)
		whole -= uint64(step)
	}
}

func (l *Loopback) advance(ticks uint32) {
	l.regs.Tick(ticks)
	l.timers.Dispatch()
}
