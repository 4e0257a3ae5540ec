package core

// BootConfig is what the platform decides before the RTC starts
type BootConfig struct {
	Source OscSource    // Fixed per build
	Seed   CalendarSeed // From persisted config or an external RTC
}

// RTC ties the register block to the counter reader, alarm, oscillator
// and descriptor of one real-time clock.
type RTC struct {
	regs    RTCRegisters
	space   TickSpace
	counter *StableCounter
	alarm   *Alarm
	osc     *Oscillator
	desc    ClockDescriptor
}

// NewRTC creates an RTC over regs whose counter wraps at maxCount
func NewRTC(regs RTCRegisters, maxCount uint32, calibrator Calibrator) *RTC {
	space := NewTickSpace(maxCount)
	counter := NewStableCounter(regs)
	return &RTC{
		regs:    regs,
		space:   space,
		counter: counter,
		alarm:   NewAlarm(regs, counter, space),
		osc:     NewOscillator(regs, calibrator),
	}
}

// Boot runs the start-up sequence: oscillator selection (and calibration),
// calendar seeding, trigger interrupt enable, descriptor build. The
// returned descriptor is the one to hand to the timer service.
func (r *RTC) Boot(cfg BootConfig) (ClockDescriptor, error) {
	if err := r.osc.InitClockSource(cfg.Source); err != nil {
		return ClockDescriptor{}, err
	}
	if err := r.SeedCalendar(cfg.Seed); err != nil {
		return ClockDescriptor{}, err
	}
	WithProtectedAccess(r.regs, func() {
		r.regs.SetModeBits(RTCModeTrigEn)
	})
	return r.BuildDescriptor()
}

// BuildDescriptor builds the clock descriptor. It succeeds once.
func (r *RTC) BuildDescriptor() (ClockDescriptor, error) {
	if r.desc.Valid() {
		return ClockDescriptor{}, ErrDescriptorBuilt
	}
	desc, err := BuildDescriptor(r.osc, r.counter, r.space.Max)
	if err != nil {
		return ClockDescriptor{}, err
	}
	r.desc = desc
	return desc, nil
}

// SeedCalendar loads a new epoch. Any pending alarm target is lost
// because the load reuses the compare register; re-arm afterwards.
func (r *RTC) SeedCalendar(seed CalendarSeed) error {
	if err := SeedCalendar(r.regs, seed); err != nil {
		return err
	}
	r.alarm.forget()
	return nil
}

// StartCalibration schedules periodic recalibration of the internal RC.
// It does nothing for the crystal or a zero period.
func (r *RTC) StartCalibration(timers *TimerService, periodMS uint32) error {
	if !r.osc.UseInternal() || periodMS == 0 {
		return nil
	}
	period := timers.TicksFromMS(periodMS)
	t := &Timer{
		Handler: func(t *Timer) uint8 {
			r.osc.Recalibrate()
			t.WakeTime = r.space.Add(t.WakeTime, period)
			return SF_RESCHEDULE
		},
	}
	return timers.ScheduleIn(t, periodMS)
}

// HandleInterrupt is the body of the RTC IRQ handler
func (r *RTC) HandleInterrupt() {
	r.alarm.OnFire()
}

// Read returns the current tick count
func (r *RTC) Read() uint32 {
	return r.counter.Read()
}

// Calendar reads the current date and time
func (r *RTC) Calendar() CalendarSeed {
	return ReadCalendar(r.regs, r.counter)
}

func (r *RTC) Alarm() *Alarm               { return r.alarm }
func (r *RTC) Oscillator() *Oscillator     { return r.osc }
func (r *RTC) Counter() *StableCounter     { return r.counter }
func (r *RTC) Space() TickSpace            { return r.space }
func (r *RTC) Descriptor() ClockDescriptor { return r.desc }
