// Package config holds the logger settings persisted in data flash
package config

import (
	"encoding/json"

	"pdflogger/core"
)

// DefaultCalibrationPeriodMS is the internal RC recalibration period
const DefaultCalibrationPeriodMS = 120000

// StartTime is the calendar time the RTC is seeded with at boot
type StartTime struct {
	Year   uint16 `json:"year"`
	Month  uint8  `json:"month"`
	Day    uint8  `json:"day"`
	Hour   uint8  `json:"hour"`
	Minute uint8  `json:"minute"`
	Second uint8  `json:"second"`
}

// DeviceInfo is the persisted device configuration
type DeviceInfo struct {
	StartTime           StartTime `json:"start_time"`
	CalibrationPeriodMS uint32    `json:"calibration_period_ms"`
	CalibrationDisabled bool      `json:"calibration_disabled,omitempty"`
	// ExternalRTC prefers the battery-backed DS3231 over StartTime
	ExternalRTC bool `json:"external_rtc"`
}

// LoadDeviceConfig parses the JSON blob stored in data flash
func LoadDeviceConfig(jsonData []byte) (*DeviceInfo, error) {
	var info DeviceInfo
	if err := json.Unmarshal(jsonData, &info); err != nil {
		return nil, err
	}
	applyDefaults(&info)
	if err := info.Seed().Validate(); err != nil {
		return nil, err
	}
	return &info, nil
}

// applyDefaults fills in missing values
func applyDefaults(info *DeviceInfo) {
	if info.StartTime == (StartTime{}) {
		info.StartTime = StartTime{Year: core.CalendarEpochYear, Month: 1, Day: 1}
	}
	if info.CalibrationPeriodMS == 0 {
		info.CalibrationPeriodMS = DefaultCalibrationPeriodMS
	}
}

// DefaultDeviceConfig is used when data flash holds no configuration
func DefaultDeviceConfig() *DeviceInfo {
	info := &DeviceInfo{}
	applyDefaults(info)
	return info
}

// CalibrationPeriod returns the recalibration period in ms, 0 when
// calibration is disabled
func (d *DeviceInfo) CalibrationPeriod() uint32 {
	if d.CalibrationDisabled {
		return 0
	}
	return d.CalibrationPeriodMS
}

// Seed converts the start time for the calendar loader
func (d *DeviceInfo) Seed() core.CalendarSeed {
	return core.CalendarSeed{
		Year:   d.StartTime.Year,
		Month:  d.StartTime.Month,
		Day:    d.StartTime.Day,
		Hour:   d.StartTime.Hour,
		Minute: d.StartTime.Minute,
		Second: d.StartTime.Second,
	}
}

// Marshal encodes the configuration for writing back to data flash
func (d *DeviceInfo) Marshal() ([]byte, error) {
	return json.Marshal(d)
}
