package core

import (
	"errors"
	"testing"
	"time"
)

func TestCalendarSeedRoundTrip(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	counter := NewStableCounter(regs)
	seed := CalendarSeed{Year: 2024, Month: 2, Day: 29, Hour: 13, Minute: 45, Second: 7}

	if err := SeedCalendar(regs, seed); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}

	// 2020-01-01 to 2024-02-29: 1461 + 31 + 28 days
	if regs.ReadDays() != 1520 {
		t.Errorf("Days = %d, want 1520", regs.ReadDays())
	}
	wantCounter := uint32(13*1800+45*30+3)<<16 | 0x8000
	if regs.Counter() != wantCounter {
		t.Errorf("Counter = %#x, want %#x", regs.Counter(), wantCounter)
	}
	if got := ReadCalendar(regs, counter); got != seed {
		t.Errorf("ReadCalendar = %+v, want %+v", got, seed)
	}
	if regs.LockedWrites != 0 || !regs.Locked() {
		t.Errorf("%d locked writes, locked=%v", regs.LockedWrites, regs.Locked())
	}
}

func TestCalendarAdvances(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	counter := NewStableCounter(regs)

	seed := CalendarSeed{Year: 2023, Month: 7, Day: 4, Hour: 12}
	if err := SeedCalendar(regs, seed); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}

	regs.Tick(0x8000)
	if got := ReadCalendar(regs, counter).Second; got != 1 {
		t.Errorf("Second after half a period = %d, want 1", got)
	}
	regs.Tick(0x8000 * 59)
	got := ReadCalendar(regs, counter)
	if got.Minute != 1 || got.Second != 0 {
		t.Errorf("After 60 s = %02d:%02d", got.Minute, got.Second)
	}
}

func TestCalendarDayRollover(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	counter := NewStableCounter(regs)

	seed := CalendarSeed{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 59, Second: 59}
	if err := SeedCalendar(regs, seed); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}
	regs.Tick(0x8000)

	if regs.Counter() != 0 {
		t.Errorf("Counter after midnight = %#x, want 0", regs.Counter())
	}
	want := CalendarSeed{Year: 2024, Month: 3, Day: 1}
	if got := ReadCalendar(regs, counter); got != want {
		t.Errorf("ReadCalendar = %+v, want %+v", got, want)
	}
}

func TestCalendarSeedValidate(t *testing.T) {
	valid := []CalendarSeed{
		{Year: 2020, Month: 1, Day: 1},
		{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 59, Second: 59},
		{Year: 2064, Month: 11, Day: 8},
	}
	for _, s := range valid {
		if err := s.Validate(); err != nil {
			t.Errorf("%+v: %v", s, err)
		}
	}

	invalid := []CalendarSeed{
		{},
		{Year: 2019, Month: 12, Day: 31},
		{Year: 2023, Month: 2, Day: 29},
		{Year: 2024, Month: 2, Day: 30},
		{Year: 2024, Month: 13, Day: 1},
		{Year: 2024, Month: 4, Day: 31},
		{Year: 2024, Month: 1, Day: 0},
		{Year: 2024, Month: 1, Day: 1, Hour: 24},
		{Year: 2024, Month: 1, Day: 1, Minute: 60},
		{Year: 2024, Month: 1, Day: 1, Second: 60},
		{Year: 2070, Month: 1, Day: 1},
	}
	for _, s := range invalid {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("%+v: err = %v", s, err)
		}
	}
}

func TestCalendarInvalidSeedWritesNothing(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	regs.SetCounter(777)

	err := SeedCalendar(regs, CalendarSeed{Year: 2024, Month: 2, Day: 30})
	if !errors.Is(err, ErrInvalidSeed) {
		t.Fatalf("err = %v", err)
	}
	if regs.Unlocks != 0 || regs.Counter() != 777 {
		t.Errorf("Registers touched: %d unlocks, counter %d", regs.Unlocks, regs.Counter())
	}
}

func TestCalendarClockPinStuck(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	regs.SetClockPin(false)

	err := SeedCalendar(regs, CalendarSeed{Year: 2024, Month: 1, Day: 1})
	if !errors.Is(err, ErrClockPinStuck) {
		t.Fatalf("err = %v", err)
	}
	if regs.Unlocks != 0 {
		t.Errorf("%d unlocks with a stuck pin", regs.Unlocks)
	}
}

func TestSeedFromTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	got := SeedFromTime(time.Date(2024, time.March, 1, 1, 30, 15, 999, loc))
	want := CalendarSeed{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 30, Second: 15}
	if got != want {
		t.Errorf("SeedFromTime = %+v, want %+v", got, want)
	}
	if !want.Time().Equal(time.Date(2024, time.February, 29, 23, 30, 15, 0, time.UTC)) {
		t.Errorf("Time = %v", want.Time())
	}
}

func TestRTCSeedForgetsAlarm(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)

	if err := rtc.Alarm().ArmIn(1000); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}
	if err := rtc.SeedCalendar(CalendarSeed{Year: 2025, Month: 5, Day: 5, Hour: 5}); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}

	if _, pending := rtc.Alarm().Target(); pending {
		t.Error("Alarm target still pending after the seed reused the compare register")
	}
	if rtc.Alarm().State() != AlarmIdle {
		t.Errorf("State = %d, want idle", rtc.Alarm().State())
	}
	if regs.Trigger() == 1000 {
		t.Error("Compare register still holds the old target")
	}
}

func TestRTCSeedLeftoverMatchIsNotAFire(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)

	if err := rtc.SeedCalendar(CalendarSeed{Year: 2025, Month: 5, Day: 5, Hour: 5}); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}

	// The compare register still holds the loaded counter value and
	// matches again one full counter period later.
	regs.Tick(RTCMaxCount)
	if rtc.Alarm().Fired() {
		t.Error("Calendar load value fired the alarm")
	}
	if rtc.Alarm().State() != AlarmIdle {
		t.Errorf("State = %d, want idle", rtc.Alarm().State())
	}
	if rtc.Alarm().Stats().Spurious != 1 {
		t.Errorf("Spurious = %d, want 1", rtc.Alarm().Stats().Spurious)
	}
	if regs.LatchClears != 1 || regs.PendingIRQ() {
		t.Errorf("LatchClears = %d pending=%v", regs.LatchClears, regs.PendingIRQ())
	}

	// A real target still fires
	if err := rtc.Alarm().ArmIn(10); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}
	regs.Tick(10)
	if !rtc.Alarm().Fired() {
		t.Error("Armed target did not fire after a spurious match")
	}
}

func TestReadCalendarRetriesDayRollover(t *testing.T) {
	regs := NewSimRegisters(RTCMaxCount)
	counter := NewStableCounter(regs)
	if err := SeedCalendar(regs, CalendarSeed{Year: 2024, Month: 3, Day: 1}); err != nil {
		t.Fatalf("SeedCalendar failed: %v", err)
	}

	// Rolled over between the first pair of reads
	regs.QueueDayReads(1520, 1521)
	got := ReadCalendar(regs, counter)
	if got.Month != 3 || got.Day != 1 {
		t.Errorf("ReadCalendar = %+v", got)
	}
}

func TestReadCalendarDayCounterNeverSettles(t *testing.T) {
	ResetFaultState()
	defer ResetFaultState()

	var reason error
	SetFaultHandler(func(err error) { reason = err })
	defer SetFaultHandler(nil)

	regs := NewSimRegisters(RTCMaxCount)
	counter := NewStableCounter(regs)
	for i := uint32(0); i < 2*MaxStableReadAttempts; i++ {
		regs.QueueDayReads(i)
	}

	ReadCalendar(regs, counter)
	if !errors.Is(reason, ErrHardwareInconsistency) {
		t.Errorf("Fault handler got %v", reason)
	}
	if !IsShutdown() {
		t.Error("Shutdown flag not latched")
	}
}
