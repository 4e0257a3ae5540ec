package core

import (
	"errors"
	"sync/atomic"
)

// ErrMisconfiguredAlarm is returned when an alarm target is not strictly
// ahead of the counter by less than half the counter range.
var ErrMisconfiguredAlarm = errors.New("rtc: alarm target is not within the forward half of the counter range")

// AlarmMode is the externally visible alarm state
type AlarmMode uint8

const (
	AlarmIdle  AlarmMode = iota // Nothing armed since boot or last seed
	AlarmArmed                  // Compare register holds a pending target
	AlarmFired                  // AlarmFlag set, waiting for a re-arm
)

// AlarmState is the only record shared between the RTC interrupt and the
// main context. The interrupt only ever sets fired, the main context only
// ever clears it (by arming), so no lock is needed. pending is set by Arm
// and taken by the interrupt: a compare match without it (the register
// still holding a calendar load value) is not a fire.
type AlarmState struct {
	fired    uint32 // atomic bool, the AlarmFlag
	pending  uint32 // atomic bool, a target is armed and not yet hit
	spurious uint32 // atomic, matches taken with nothing pending
}

// AlarmStats counts fires seen by the main context
type AlarmStats struct {
	Fires     uint32 // Fires observed with Observe
	Discarded uint32 // Fires overwritten by Arm before anyone observed them
	Spurious  uint32 // Compare matches with no armed target
}

// Alarm drives the single-slot hardware trigger
type Alarm struct {
	regs    RTCRegisters
	counter *StableCounter
	space   TickSpace
	state   *AlarmState

	// Main context only
	target   uint32
	armed    bool
	observed bool
	stats    AlarmStats
}

// NewAlarm creates an idle alarm controller
func NewAlarm(regs RTCRegisters, counter *StableCounter, space TickSpace) *Alarm {
	return &Alarm{
		regs:    regs,
		counter: counter,
		space:   space,
		state:   &AlarmState{},
	}
}

// Arm schedules the alarm at an absolute tick, replacing any pending
// target. The target must be 1 to Max/2-1 ticks ahead of the counter.
//
// A fire that happened but was never observed is dropped and counted in
// AlarmStats.Discarded; re-arming is how a consumer moves on.
func (a *Alarm) Arm(target uint32) error {
	if !a.space.Valid(target) {
		RecordTiming(EvtArmRejected, 0, target, 0)
		return ErrMisconfiguredAlarm
	}
	now := a.counter.Read()
	dist := a.space.Distance(now, target)
	if dist == 0 || dist >= a.space.Horizon() {
		RecordTiming(EvtArmRejected, now, target, dist)
		return ErrMisconfiguredAlarm
	}

	prev := a.target
	var wasFired bool
	WithProtectedAccess(a.regs, func() {
		// A latch left over from the previous target must not fire for
		// the new one once interrupts are unmasked.
		a.regs.ClearFlags(RTCFlagTrigClr)
		a.regs.WriteTrigger(target)
		wasFired = atomic.SwapUint32(&a.state.fired, 0) != 0
		atomic.StoreUint32(&a.state.pending, 1)
	})

	if wasFired && !a.observed {
		a.stats.Discarded++
		RecordTiming(EvtFireDiscarded, now, prev, 0)
	}
	a.target = target
	a.armed = true
	a.observed = false
	RecordTiming(EvtArm, now, target, prev)
	return nil
}

// ArmIn arms the alarm delta ticks from now
func (a *Alarm) ArmIn(delta uint32) error {
	return a.Arm(a.space.Add(a.counter.Read(), delta))
}

// OnFire is the RTC interrupt handler body. The hardware latch is cleared
// before anything else; a latch left set re-raises the IRQ forever.
func (a *Alarm) OnFire() {
	a.regs.ClearFlags(RTCFlagTmrClr | RTCFlagTrigClr)
	if !atomic.CompareAndSwapUint32(&a.state.pending, 1, 0) {
		atomic.AddUint32(&a.state.spurious, 1)
		return
	}
	atomic.StoreUint32(&a.state.fired, 1)
}

// Fired reports the AlarmFlag
func (a *Alarm) Fired() bool {
	return atomic.LoadUint32(&a.state.fired) != 0
}

// Observe returns true exactly once per fire. Main context only.
func (a *Alarm) Observe() bool {
	if a.observed || !a.Fired() {
		return false
	}
	a.observed = true
	a.stats.Fires++
	RecordTiming(EvtFireObserved, 0, a.target, 0)
	return true
}

// Target returns the last armed target and whether it is still pending
func (a *Alarm) Target() (uint32, bool) {
	return a.target, a.armed && !a.Fired()
}

// State returns the current alarm mode
func (a *Alarm) State() AlarmMode {
	if a.Fired() {
		return AlarmFired
	}
	if a.armed {
		return AlarmArmed
	}
	return AlarmIdle
}

// Stats returns the main-side fire counters
func (a *Alarm) Stats() AlarmStats {
	stats := a.stats
	stats.Spurious = atomic.LoadUint32(&a.state.spurious)
	return stats
}

// Space returns the tick space the alarm works in
func (a *Alarm) Space() TickSpace {
	return a.space
}

// Now returns a stable counter read
func (a *Alarm) Now() uint32 {
	return a.counter.Read()
}

// forget drops the pending target after the compare register was reused
// (calendar load). A fire already latched in AlarmFlag is kept. The
// loaded counter value stays in the compare register and matches again
// one wrap later; OnFire ignores that match.
func (a *Alarm) forget() {
	atomic.StoreUint32(&a.state.pending, 0)
	a.armed = false
}
