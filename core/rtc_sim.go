package core

// SimRegisters is a software model of the RTC register block. It backs
// the core tests and the host-side loopback emulator.
//
// The model follows the hardware closely enough to catch discipline bugs:
// protected writes are dropped (and counted) while locked, the trigger
// latch raises an IRQ that is held back while interrupts are masked, and
// a handler that leaves the latch set gets the IRQ again.
type SimRegisters struct {
	space TickSpace

	counter uint32
	days    uint32
	trigger uint32
	mode    uint8
	flags   uint8
	osc     uint8

	unlocked   bool
	script     []uint32
	dayScript  []uint32
	irq        func()
	irqPending bool

	// Accounting for tests
	CounterReads int // ReadCounter calls
	LockedWrites int // Protected writes attempted while locked
	LatchClears  int // Trigger latch actually cleared
	Unlocks      int // Unlock calls
	Reasserts    int // IRQ raised again because the handler left the latch set
}

// NewSimRegisters returns registers for a counter wrapping at maxCount.
// The 32 kHz clock pin reads high.
func NewSimRegisters(maxCount uint32) *SimRegisters {
	return &SimRegisters{
		space: NewTickSpace(maxCount),
		osc:   Osc32kClockPin,
	}
}

func (s *SimRegisters) Unlock() {
	s.unlocked = true
	s.Unlocks++
}

func (s *SimRegisters) Lock() {
	s.unlocked = false
}

// ReadCounter returns the next scripted value if any, else the counter
func (s *SimRegisters) ReadCounter() uint32 {
	s.CounterReads++
	if len(s.script) > 0 {
		v := s.script[0]
		s.script = s.script[1:]
		return v
	}
	return s.counter
}

// ReadDays returns the next scripted day value if any, else the day counter
func (s *SimRegisters) ReadDays() uint32 {
	if len(s.dayScript) > 0 {
		v := s.dayScript[0]
		s.dayScript = s.dayScript[1:]
		return v
	}
	return s.days
}

func (s *SimRegisters) WriteTrigger(value uint32) {
	if !s.unlocked {
		s.LockedWrites++
		return
	}
	s.trigger = value
}

func (s *SimRegisters) SetModeBits(bits uint8) {
	if !s.unlocked {
		s.LockedWrites++
		return
	}
	if bits&RTCModeLoadHi != 0 {
		s.days = s.trigger
	}
	if bits&RTCModeLoadLo != 0 {
		s.counter = s.trigger % s.space.Max
	}
	s.mode |= bits &^ (RTCModeLoadHi | RTCModeLoadLo)
}

func (s *SimRegisters) ClearFlags(bits uint8) {
	if bits&RTCFlagTrigClr != 0 && s.flags&RTCFlagTrig != 0 {
		s.flags &^= RTCFlagTrig
		s.LatchClears++
	}
	if bits&RTCFlagTmrClr != 0 {
		s.flags &^= RTCFlagTmr
	}
}

func (s *SimRegisters) ReadOscConfig() uint8 {
	return s.osc
}

func (s *SimRegisters) WriteOscConfig(value uint8) {
	if !s.unlocked {
		s.LockedWrites++
		return
	}
	s.osc = value&^Osc32kClockPin | s.osc&Osc32kClockPin
}

// QueueReads scripts the next raw counter reads
func (s *SimRegisters) QueueReads(values ...uint32) {
	s.script = append(s.script, values...)
}

// QueueDayReads scripts the next day counter reads
func (s *SimRegisters) QueueDayReads(values ...uint32) {
	s.dayScript = append(s.dayScript, values...)
}

// SetIRQHandler installs the function run when the trigger IRQ is taken
func (s *SimRegisters) SetIRQHandler(fn func()) {
	s.irq = fn
}

// SetClockPin drives the 32 kHz clock pin level
func (s *SimRegisters) SetClockPin(high bool) {
	if high {
		s.osc |= Osc32kClockPin
	} else {
		s.osc &^= Osc32kClockPin
	}
}

// SetCounter forces the counter value (power-on state, tests)
func (s *SimRegisters) SetCounter(v uint32) {
	s.counter = v % s.space.Max
}

func (s *SimRegisters) Counter() uint32 { return s.counter }
func (s *SimRegisters) Trigger() uint32 { return s.trigger }
func (s *SimRegisters) Mode() uint8     { return s.mode }
func (s *SimRegisters) Flags() uint8    { return s.flags }
func (s *SimRegisters) Locked() bool    { return !s.unlocked }

// PendingIRQ reports an IRQ that is latched but not yet taken
func (s *SimRegisters) PendingIRQ() bool {
	return s.irqPending
}

// Tick advances the counter by n ticks, latching and delivering the
// trigger IRQ on every compare match along the way.
func (s *SimRegisters) Tick(n uint32) {
	for n > 0 {
		step := n
		if s.mode&RTCModeTrigEn != 0 {
			d := s.space.Distance(s.counter, s.trigger)
			if d == 0 {
				d = s.space.Max
			}
			if d <= step {
				step = d
			}
		}

		total := uint64(s.counter) + uint64(step)
		s.days += uint32(total / uint64(s.space.Max))
		s.counter = uint32(total % uint64(s.space.Max))
		n -= step

		if s.mode&RTCModeTrigEn != 0 && s.counter == s.trigger {
			s.flags |= RTCFlagTrig
			s.irqPending = true
		}
		s.Deliver()
	}
}

// Deliver runs a pending IRQ unless interrupts are masked. A latch that
// was cleared in the meantime cancels the IRQ.
func (s *SimRegisters) Deliver() {
	if !s.irqPending || interruptsMasked() {
		return
	}
	s.irqPending = false
	if s.flags&RTCFlagTrig == 0 || s.irq == nil {
		return
	}
	s.irq()
	if s.flags&RTCFlagTrig != 0 {
		// Still latched: hardware raises it again.
		s.irqPending = true
		s.Reasserts++
	}
}
