package core

import "errors"

// ErrTimerHorizon is returned for a wake time that is not ahead of the
// counter by less than half its range.
var ErrTimerHorizon = errors.New("rtc: timer wake time beyond the counter horizon")

// rearmSlackTicks is how far ahead a due-now alarm is armed
const rearmSlackTicks = 2

// TimerService is a small tick-based scheduler driven by the RTC alarm.
// It only knows the clock through its descriptor: frequency for unit
// conversion, max count for wraparound and the reader for "now".
type TimerService struct {
	desc  ClockDescriptor
	alarm *Alarm
	space TickSpace
	list  *Timer
}

// NewTimerService registers a clock descriptor with a new timer service
func NewTimerService(desc ClockDescriptor, alarm *Alarm) *TimerService {
	if !desc.Valid() {
		panic("timer service needs a built clock descriptor")
	}
	return &TimerService{
		desc:  desc,
		alarm: alarm,
		space: NewTickSpace(desc.MaxCount()),
	}
}

// Now returns the current time in ticks
func (s *TimerService) Now() uint32 {
	return s.desc.Read()
}

// TicksFromMS converts milliseconds to ticks
func (s *TimerService) TicksFromMS(ms uint32) uint32 {
	return uint32(uint64(ms) * uint64(s.desc.Frequency()) / 1000)
}

// MSFromTicks converts ticks to milliseconds
func (s *TimerService) MSFromTicks(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000 / uint64(s.desc.Frequency()))
}

// Descriptor returns the registered clock descriptor
func (s *TimerService) Descriptor() ClockDescriptor {
	return s.desc
}

// Schedule adds a timer at its absolute WakeTime. An error from arming
// the alarm is returned with the timer already queued.
func (s *TimerService) Schedule(t *Timer) error {
	now := s.Now()
	if !s.space.Valid(t.WakeTime) || s.space.Distance(now, t.WakeTime) >= s.space.Horizon() {
		return ErrTimerHorizon
	}
	s.insertTimer(t)
	return s.Rearm()
}

// ScheduleIn adds a timer ms milliseconds from now
func (s *TimerService) ScheduleIn(t *Timer, ms uint32) error {
	ticks := s.TicksFromMS(ms)
	if ticks >= s.space.Horizon() {
		return ErrTimerHorizon
	}
	t.WakeTime = s.space.Add(s.Now(), ticks)
	return s.Schedule(t)
}
