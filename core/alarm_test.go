package core

import (
	"errors"
	"testing"
)

func TestAlarmFiresOnce(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()

	if err := alarm.ArmIn(100); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}
	if target, pending := alarm.Target(); !pending || target != 100 {
		t.Errorf("Target = %d pending=%v", target, pending)
	}

	regs.Tick(99)
	if alarm.Fired() {
		t.Fatal("Fired early")
	}
	regs.Tick(1)
	if !alarm.Fired() || alarm.State() != AlarmFired {
		t.Fatal("Did not fire at target")
	}
	if regs.LatchClears != 1 || regs.Reasserts != 0 {
		t.Errorf("Latch cleared %d times, reasserted %d times", regs.LatchClears, regs.Reasserts)
	}

	if !alarm.Observe() {
		t.Error("First Observe should report the fire")
	}
	if alarm.Observe() {
		t.Error("Second Observe reported the same fire")
	}
	if alarm.Stats().Fires != 1 {
		t.Errorf("Fires = %d", alarm.Stats().Fires)
	}

	// No further fire until re-armed
	regs.Tick(RTCMaxCount / 4)
	if regs.LatchClears != 1 {
		t.Errorf("Unexpected extra fire, %d latch clears", regs.LatchClears)
	}
	if regs.LockedWrites != 0 {
		t.Errorf("%d protected writes while locked", regs.LockedWrites)
	}
}

func TestAlarmLastArmWins(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()

	if err := alarm.Arm(100); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if err := alarm.Arm(200); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	regs.Tick(150)
	if alarm.Fired() {
		t.Fatal("Fired at the replaced target")
	}
	regs.Tick(50)
	if !alarm.Fired() {
		t.Fatal("Did not fire at the last target")
	}
	if alarm.Stats().Discarded != 0 {
		t.Errorf("Discarded = %d", alarm.Stats().Discarded)
	}
}

func TestAlarmEarlierTargetReplacesLater(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()
	now := rtc.Read()

	if err := alarm.Arm(now + 1000); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	if err := alarm.Arm(now + 50); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}

	regs.Tick(49)
	if alarm.Fired() {
		t.Fatal("Fired early")
	}
	regs.Tick(1)
	if !alarm.Fired() {
		t.Fatal("Did not fire at the earlier target")
	}
	if regs.LatchClears != 1 {
		t.Errorf("LatchClears = %d, want 1", regs.LatchClears)
	}

	// The replaced target is gone
	regs.Tick(2000)
	if regs.LatchClears != 1 {
		t.Errorf("Replaced target fired, %d latch clears", regs.LatchClears)
	}
}

func TestAlarmFullRangeCounter(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscInternal32000, 0xFFFFFFFF)
	alarm := rtc.Alarm()

	target := alarm.Space().Add(rtc.Read(), 100)
	if err := alarm.Arm(target); err != nil {
		t.Fatalf("Arm failed: %v", err)
	}
	regs.Tick(100)
	if !alarm.Fired() {
		t.Fatal("Did not fire")
	}
	if rtc.Read() != target {
		t.Errorf("Counter = %d, want %d", rtc.Read(), target)
	}

	// Across the wrap at 0xFFFFFFFF
	regs.SetCounter(0xFFFFFFFF - 40)
	target = alarm.Space().Add(rtc.Read(), 100)
	if target != 60 {
		t.Fatalf("Target = %d, want 60", target)
	}
	if err := alarm.Arm(target); err != nil {
		t.Fatalf("Arm across wrap failed: %v", err)
	}
	regs.Tick(99)
	if alarm.Fired() {
		t.Fatal("Fired early")
	}
	regs.Tick(1)
	if !alarm.Fired() {
		t.Fatal("Did not fire after the wrap")
	}
	if rtc.Read() != 60 {
		t.Errorf("Counter = %d, want 60", rtc.Read())
	}
}

func TestAlarmDiscardsUnobservedFire(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()

	if err := alarm.ArmIn(10); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}
	regs.Tick(10)
	if !alarm.Fired() {
		t.Fatal("Did not fire")
	}

	if err := alarm.ArmIn(50); err != nil {
		t.Fatalf("Re-arm failed: %v", err)
	}
	if alarm.Fired() {
		t.Error("Arm must clear the alarm flag")
	}
	if alarm.Stats().Discarded != 1 || alarm.Stats().Fires != 0 {
		t.Errorf("Stats = %+v", alarm.Stats())
	}

	// An observed fire is not a discard
	regs.Tick(50)
	alarm.Observe()
	if err := alarm.ArmIn(50); err != nil {
		t.Fatalf("Re-arm failed: %v", err)
	}
	if alarm.Stats().Discarded != 1 || alarm.Stats().Fires != 1 {
		t.Errorf("Stats = %+v", alarm.Stats())
	}
}

func TestAlarmStaleLatchDoesNotFireNewTarget(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()

	if err := alarm.ArmIn(10); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}

	// Match while interrupts are masked: latched, IRQ held back
	state := disableInterrupts()
	regs.Tick(10)
	restoreInterrupts(state)
	if !regs.PendingIRQ() || regs.Flags()&RTCFlagTrig == 0 {
		t.Fatal("Expected a held back IRQ")
	}

	if err := alarm.ArmIn(1000); err != nil {
		t.Fatalf("Re-arm failed: %v", err)
	}
	regs.Deliver()
	if alarm.Fired() {
		t.Error("Stale latch fired the new target")
	}

	regs.Tick(1000)
	if !alarm.Fired() {
		t.Error("New target did not fire")
	}
}

func TestAlarmHorizon(t *testing.T) {
	rtc, _, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()
	horizon := alarm.Space().Horizon()

	rejected := []uint32{0, horizon, horizon + 1, RTCMaxCount - 1, RTCMaxCount, 0xFFFFFFFF}
	for _, target := range rejected {
		if err := alarm.Arm(target); !errors.Is(err, ErrMisconfiguredAlarm) {
			t.Errorf("Arm(%#x) err = %v", target, err)
		}
	}
	if alarm.State() != AlarmIdle {
		t.Errorf("Rejected arms changed state to %d", alarm.State())
	}

	if err := alarm.Arm(1); err != nil {
		t.Errorf("Arm(1) failed: %v", err)
	}
	if err := alarm.Arm(horizon - 1); err != nil {
		t.Errorf("Arm(horizon-1) failed: %v", err)
	}
}

func TestAlarmAcrossWrap(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	alarm := rtc.Alarm()
	regs.SetCounter(RTCMaxCount - 10)

	if err := alarm.Arm(5); err != nil {
		t.Fatalf("Arm across wrap failed: %v", err)
	}
	regs.Tick(14)
	if alarm.Fired() {
		t.Fatal("Fired early")
	}
	regs.Tick(1)
	if !alarm.Fired() {
		t.Fatal("Did not fire after the wrap")
	}
	if rtc.Read() != 5 {
		t.Errorf("Counter = %d, want 5", rtc.Read())
	}
}

func TestAlarmHandlerMustClearLatch(t *testing.T) {
	rtc, regs, _ := bootTestRTC(t, OscExternal32768, RTCMaxCount)
	var calls int
	regs.SetIRQHandler(func() { calls++ })

	if err := rtc.Alarm().ArmIn(10); err != nil {
		t.Fatalf("ArmIn failed: %v", err)
	}
	regs.Tick(10)
	if calls != 1 || regs.Reasserts != 1 || !regs.PendingIRQ() {
		t.Errorf("calls=%d reasserts=%d pending=%v", calls, regs.Reasserts, regs.PendingIRQ())
	}

	regs.SetIRQHandler(rtc.HandleInterrupt)
	regs.Deliver()
	if regs.PendingIRQ() || !rtc.Alarm().Fired() {
		t.Error("Real handler did not clear the latch")
	}
}
