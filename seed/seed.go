// Package seed picks the calendar time the RTC starts from
package seed

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ds3231"

	"pdflogger/config"
	"pdflogger/core"
)

var (
	// ErrNoSeed is returned by First when no source has a usable time
	ErrNoSeed = errors.New("seed: no usable calendar time")

	// ErrTimeInvalid is returned when the external RTC lost its time
	// (oscillator stop flag set)
	ErrTimeInvalid = errors.New("seed: external rtc time invalid")
)

// Source provides a calendar seed
type Source interface {
	Seed() (core.CalendarSeed, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func() (core.CalendarSeed, error)

func (f SourceFunc) Seed() (core.CalendarSeed, error) { return f() }

// FromConfig seeds from the start time persisted in data flash
func FromConfig(info *config.DeviceInfo) Source {
	return SourceFunc(func() (core.CalendarSeed, error) {
		s := info.Seed()
		return s, s.Validate()
	})
}

// DS3231 reads the seed from a battery-backed DS3231 on an I2C bus
type DS3231 struct {
	dev ds3231.Device
}

// NewDS3231 creates a source for a DS3231 at its default address
func NewDS3231(bus drivers.I2C) *DS3231 {
	return &DS3231{dev: ds3231.New(bus)}
}

// Seed returns the DS3231 time, or ErrTimeInvalid after a power loss
func (d *DS3231) Seed() (core.CalendarSeed, error) {
	if !d.dev.IsTimeValid() {
		return core.CalendarSeed{}, ErrTimeInvalid
	}
	t, err := d.dev.ReadTime()
	if err != nil {
		return core.CalendarSeed{}, err
	}
	s := core.SeedFromTime(t)
	return s, s.Validate()
}

// First returns the seed of the first source that has a valid one
func First(sources ...Source) (core.CalendarSeed, error) {
	for _, src := range sources {
		if src == nil {
			continue
		}
		s, err := src.Seed()
		if err == nil {
			return s, nil
		}
		core.DebugPrintln("[RTC] seed source skipped: " + err.Error())
	}
	return core.CalendarSeed{}, ErrNoSeed
}

// ForDevice returns the boot seed: the external RTC first when the
// configuration asks for it, then the persisted start time. bus may be
// nil on boards without the external RTC.
func ForDevice(info *config.DeviceInfo, bus drivers.I2C) (core.CalendarSeed, error) {
	var sources []Source
	if info.ExternalRTC && bus != nil {
		sources = append(sources, NewDS3231(bus))
	}
	sources = append(sources, FromConfig(info))
	return First(sources...)
}
