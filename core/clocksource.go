package core

import "errors"

var (
	// ErrClockNotReady is returned when the descriptor is requested before
	// the oscillator has been selected (and calibrated, if internal).
	ErrClockNotReady = errors.New("rtc: oscillator not ready")
	// ErrDescriptorBuilt is returned when the descriptor is built twice
	ErrDescriptorBuilt = errors.New("rtc: clock descriptor already built")
)

// ClockDescriptor is what the timer service gets to know about the RTC.
// It has no setters; a built descriptor never changes.
type ClockDescriptor struct {
	accuracy  uint16
	frequency uint32
	maxCount  uint32
	source    ClockSource
}

// BuildDescriptor packages the selected oscillator and the counter reader
func BuildDescriptor(osc *Oscillator, src ClockSource, maxCount uint32) (ClockDescriptor, error) {
	if osc == nil || !osc.Ready() {
		return ClockDescriptor{}, ErrClockNotReady
	}
	return ClockDescriptor{
		accuracy:  osc.Accuracy(),
		frequency: osc.Frequency(),
		maxCount:  maxCount,
		source:    src,
	}, nil
}

// Accuracy is the nominal drift bound in ppm
func (d ClockDescriptor) Accuracy() uint16 { return d.accuracy }

// Frequency is the nominal tick rate in Hz
func (d ClockDescriptor) Frequency() uint32 { return d.frequency }

// MaxCount is the counter range; the counter wraps to 0 after MaxCount-1
func (d ClockDescriptor) MaxCount() uint32 { return d.maxCount }

// Source returns the counter reader
func (d ClockDescriptor) Source() ClockSource { return d.source }

// Read is a shortcut for Source().Read()
func (d ClockDescriptor) Read() uint32 { return d.source.Read() }

// Valid reports whether the descriptor was produced by BuildDescriptor
func (d ClockDescriptor) Valid() bool { return d.source != nil }
