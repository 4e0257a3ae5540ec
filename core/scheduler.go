package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// insertTimer inserts a timer in wake order. Wake times are compared
// modulo the counter range, so the list stays sorted across a wrap as
// long as every timer is within half a range of the others.
func (s *TimerService) insertTimer(t *Timer) {
	if s.list == nil || s.space.Before(t.WakeTime, s.list.WakeTime) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !s.space.Before(t.WakeTime, current.Next.WakeTime) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every due timer and re-arms the alarm for the next one.
// Main context only. Returns the number of handlers run.
func (s *TimerService) Dispatch() int {
	s.alarm.Observe()

	now := s.Now()
	var again *Timer
	ran := 0
	for s.list != nil && s.space.Reached(now, s.list.WakeTime) {
		timer := s.list
		s.list = timer.Next
		timer.Next = nil
		ran++

		if timer.Handler(timer) == SF_RESCHEDULE {
			// Held back until the loop ends so a handler that reschedules
			// into the past cannot spin here.
			timer.Next = again
			again = timer
		}
	}
	for again != nil {
		timer := again
		again = timer.Next
		s.insertTimer(timer)
	}

	// A failed re-arm is in the timing ring; the timers stay queued for
	// the next Dispatch.
	_ = s.Rearm()
	if ran > 0 {
		next, _ := s.Next()
		RecordTiming(EvtTimerDispatch, now, uint32(ran), next)
	}
	return ran
}

// Rearm points the alarm at the head of the list. Needed after anything
// else reused the compare register (calendar seed). The error is the one
// from the last arm attempt; the list is left as is.
func (s *TimerService) Rearm() error {
	if s.list == nil {
		return nil
	}
	wake := s.list.WakeTime
	if target, pending := s.alarm.Target(); pending && target == wake {
		return nil
	}

	now := s.Now()
	if s.space.Reached(now, wake) {
		// Already due: fire as soon as possible so Dispatch runs again.
		wake = s.space.Add(now, rearmSlackTicks)
	}
	if err := s.alarm.Arm(wake); err != nil {
		// The counter moved past wake between the two reads.
		if err := s.alarm.ArmIn(rearmSlackTicks); err != nil {
			RecordTiming(EvtRearmFailed, now, wake, s.list.WakeTime)
			return err
		}
	}
	return nil
}

// Next returns the wake time of the earliest timer
func (s *TimerService) Next() (uint32, bool) {
	if s.list == nil {
		return 0, false
	}
	return s.list.WakeTime, true
}

// Pending returns the number of scheduled timers
func (s *TimerService) Pending() int {
	n := 0
	for t := s.list; t != nil; t = t.Next {
		n++
	}
	return n
}
