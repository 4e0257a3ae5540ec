package core

import (
	"errors"
	"time"
)

// ErrInvalidSeed is returned for a seed that is not a real date and time
// inside the range of the hardware day counter.
var ErrInvalidSeed = errors.New("rtc: invalid calendar seed")

const (
	// CalendarEpochYear is the year of day 0 of the hardware day counter
	CalendarEpochYear = 2020

	calendarDayMask = 0x3FFF
	// t32k value for the odd second of a two-second period
	halfPeriodTicks = 0x8000

	// MaxClockPinPolls bounds the wait for the 32 kHz clock pin
	MaxClockPinPolls = 1024
)

var calendarEpoch = time.Date(CalendarEpochYear, time.January, 1, 0, 0, 0, 0, time.UTC)

// CalendarSeed is an absolute date and time, seconds resolution
type CalendarSeed struct {
	Year   uint16
	Month  uint8
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
}

// SeedFromTime converts a time (taken in UTC) to a seed
func SeedFromTime(t time.Time) CalendarSeed {
	t = t.UTC()
	return CalendarSeed{
		Year:   uint16(t.Year()),
		Month:  uint8(t.Month()),
		Day:    uint8(t.Day()),
		Hour:   uint8(t.Hour()),
		Minute: uint8(t.Minute()),
		Second: uint8(t.Second()),
	}
}

// Time returns the seed as a UTC time
func (s CalendarSeed) Time() time.Time {
	return time.Date(int(s.Year), time.Month(s.Month), int(s.Day),
		int(s.Hour), int(s.Minute), int(s.Second), 0, time.UTC)
}

// Validate checks the seed is a real date the day counter can hold
func (s CalendarSeed) Validate() error {
	if s.Year < CalendarEpochYear || s.Month < 1 || s.Month > 12 || s.Day < 1 ||
		s.Hour > 23 || s.Minute > 59 || s.Second > 59 {
		return ErrInvalidSeed
	}
	// time.Date normalizes Feb 30 into March; a real date survives as is.
	if SeedFromTime(s.Time()) != s {
		return ErrInvalidSeed
	}
	if s.days() > calendarDayMask {
		return ErrInvalidSeed
	}
	return nil
}

// days returns whole days since the calendar epoch
func (s CalendarSeed) days() uint32 {
	midnight := time.Date(int(s.Year), time.Month(s.Month), int(s.Day), 0, 0, 0, 0, time.UTC)
	return uint32(midnight.Sub(calendarEpoch) / (24 * time.Hour))
}

// counter returns the raw counter value for the time of day:
// two-second periods in the high half, 32k ticks in the low half.
func (s CalendarSeed) counter() uint32 {
	sec2 := uint32(s.Hour)*1800 + uint32(s.Minute)*30 + uint32(s.Second)/2
	var t32k uint32
	if s.Second&1 != 0 {
		t32k = halfPeriodTicks
	}
	return sec2<<16 | t32k
}

// SeedCalendar loads the seed into the hardware day and tick counters.
// The load goes through the compare register, so any armed alarm target
// is lost; RTC.SeedCalendar takes care of that.
func SeedCalendar(regs RTCRegisters, seed CalendarSeed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	if err := waitClockPinHigh(regs); err != nil {
		return err
	}

	days := seed.days()
	counter := seed.counter()
	WithProtectedAccess(regs, func() {
		regs.WriteTrigger(days)
		regs.SetModeBits(RTCModeLoadHi)
	})
	WithProtectedAccess(regs, func() {
		regs.WriteTrigger(counter)
		regs.SetModeBits(RTCModeLoadLo)
	})
	RecordTiming(EvtSeed, counter, days, counter)
	return nil
}

// waitClockPinHigh waits for a settled high level on the 32 kHz clock so
// the load lands right after an edge.
func waitClockPinHigh(regs RTCRegisters) error {
	for i := 0; i < MaxClockPinPolls; i++ {
		pin := regs.ReadOscConfig() & Osc32kClockPin
		if pin != 0 && pin == regs.ReadOscConfig()&Osc32kClockPin {
			return nil
		}
	}
	return ErrClockPinStuck
}

// ReadCalendar reads the current date and time back from the hardware
func ReadCalendar(regs RTCRegisters, counter *StableCounter) CalendarSeed {
	days, ticks, err := readDaysAndTicks(regs, counter)
	if err != nil {
		Fault(err)
	}

	secs := (ticks>>16)*2 + (ticks&0xFFFF)/halfPeriodTicks
	t := calendarEpoch.
		Add(time.Duration(days&calendarDayMask) * 24 * time.Hour).
		Add(time.Duration(secs) * time.Second)
	return SeedFromTime(t)
}

// readDaysAndTicks reads the day and tick counters as one value. A day
// rollover between the two reads is retried; a day counter that keeps
// changing is a hardware fault.
func readDaysAndTicks(regs RTCRegisters, counter *StableCounter) (uint32, uint32, error) {
	var days, ticks uint32
	for i := 0; i < MaxStableReadAttempts; i++ {
		days = regs.ReadDays()
		ticks = counter.Read()
		if regs.ReadDays() == days {
			return days, ticks, nil
		}
	}
	return days, ticks, ErrHardwareInconsistency
}
