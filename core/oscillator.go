package core

import "errors"

// OscSource selects the 32 kHz reference that clocks the RTC
type OscSource uint8

const (
	OscExternal32768 OscSource = iota // External crystal, 32768 Hz
	OscInternal32000                  // Internal RC, trimmed to 32000 Hz
	OscInternal32768                  // Internal RC, trimmed to 32768 Hz
)

// Nominal accuracy of each reference in ppm
const (
	ExternalAccuracyPPM = 50
	InternalAccuracyPPM = 1000
)

var (
	// ErrOscillatorLocked is returned when the source is changed after init
	ErrOscillatorLocked = errors.New("rtc: oscillator source is fixed once selected")
	// ErrUnknownOscSource is returned for an out-of-range OscSource
	ErrUnknownOscSource = errors.New("rtc: unknown oscillator source")
)

// Calibrator trims the internal RC oscillator against the main crystal.
// The algorithm lives outside this package (vendor library on hardware).
type Calibrator interface {
	Calibrate()
}

// CalibratorFunc adapts a plain function to Calibrator
type CalibratorFunc func()

func (f CalibratorFunc) Calibrate() { f() }

// Oscillator selects and, for the internal RC, calibrates the RTC clock
type Oscillator struct {
	regs       RTCRegisters
	calibrator Calibrator

	source       OscSource
	ready        bool
	calibrations uint32
}

// NewOscillator creates an unselected oscillator. calibrator may be nil
// only if the build uses the external crystal.
func NewOscillator(regs RTCRegisters, calibrator Calibrator) *Oscillator {
	return &Oscillator{regs: regs, calibrator: calibrator}
}

// InitClockSource powers up the selected reference. The internal RC is
// calibrated before the oscillator is marked ready; the crystal never is.
func (o *Oscillator) InitClockSource(src OscSource) error {
	if src > OscInternal32768 {
		return ErrUnknownOscSource
	}
	if o.ready {
		if src != o.source {
			return ErrOscillatorLocked
		}
		return nil
	}

	o.source = src
	if o.UseInternal() {
		WithProtectedAccess(o.regs, func() {
			o.regs.WriteOscConfig(o.regs.ReadOscConfig() &^ (Osc32kSelectXT | Osc32kXT32kPon))
		})
		WithProtectedAccess(o.regs, func() {
			o.regs.WriteOscConfig(o.regs.ReadOscConfig() | Osc32kInt32kPon)
		})
		o.calibrate()
	} else {
		WithProtectedAccess(o.regs, func() {
			o.regs.WriteOscConfig(o.regs.ReadOscConfig() | Osc32kSelectXT | Osc32kInt32kPon | Osc32kXT32kPon)
		})
	}
	o.ready = true
	return nil
}

// Recalibrate re-trims the internal RC (periodic calibration). It does
// nothing for the crystal.
func (o *Oscillator) Recalibrate() {
	if !o.ready || !o.UseInternal() {
		return
	}
	o.calibrate()
}

func (o *Oscillator) calibrate() {
	if o.calibrator == nil {
		panic("internal oscillator selected without a calibrator")
	}
	o.calibrator.Calibrate()
	o.calibrations++
	RecordTiming(EvtCalibrate, 0, o.calibrations, uint32(o.source))
}

// UseInternal reports whether the internal RC is the selected source
func (o *Oscillator) UseInternal() bool {
	return o.source != OscExternal32768
}

// Ready reports whether InitClockSource has completed
func (o *Oscillator) Ready() bool {
	return o.ready
}

// Source returns the selected reference
func (o *Oscillator) Source() OscSource {
	return o.source
}

// Calibrations returns how many times the calibrator has run
func (o *Oscillator) Calibrations() uint32 {
	return o.calibrations
}

// Accuracy returns the nominal accuracy of the selected source in ppm
func (o *Oscillator) Accuracy() uint16 {
	if o.UseInternal() {
		return InternalAccuracyPPM
	}
	return ExternalAccuracyPPM
}

// Frequency returns the nominal tick rate of the selected source in Hz
func (o *Oscillator) Frequency() uint32 {
	if o.source == OscInternal32000 {
		return 32000
	}
	return 32768
}
