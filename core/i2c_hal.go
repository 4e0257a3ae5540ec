package core

import "errors"

// ErrI2CShortRead is returned when a bus read returns fewer bytes than asked
var ErrI2CShortRead = errors.New("i2c: short read")

// I2CBusID identifies a specific I2C bus (e.g., I2C0, I2C1).
type I2CBusID uint8

// I2CAddress is a 7-bit I2C device address.
type I2CAddress uint8

// I2CDriver is the I2C interface the target provides.
type I2CDriver interface {
	// ConfigureBus initializes a bus with the given frequency.
	ConfigureBus(bus I2CBusID, frequencyHz uint32) error

	// Write transmits data to a device.
	Write(bus I2CBusID, addr I2CAddress, data []byte) error

	// Read reads readLen bytes from a device. A non-empty regData is
	// transmitted first with a repeated start before the read.
	Read(bus I2CBusID, addr I2CAddress, regData []byte, readLen uint8) ([]byte, error)
}

// Global singleton used by core code.
var i2cDriver I2CDriver

// SetI2CDriver is called by target-specific code to register its driver.
func SetI2CDriver(d I2CDriver) {
	i2cDriver = d
}

// MustI2C returns the configured driver or panics if missing.
func MustI2C() I2CDriver {
	if i2cDriver == nil {
		panic("I2C driver not configured")
	}
	return i2cDriver
}

// I2CBus presents one bus of an I2CDriver as a drivers.I2C, so TinyGo
// device drivers can sit on top of the target HAL.
type I2CBus struct {
	Driver I2CDriver
	Bus    I2CBusID
}

// Tx writes w and then reads len(r) bytes from addr
func (b I2CBus) Tx(addr uint16, w, r []byte) error {
	if len(r) == 0 {
		return b.Driver.Write(b.Bus, I2CAddress(addr), w)
	}
	if len(r) > 0xFF {
		return ErrI2CShortRead
	}
	data, err := b.Driver.Read(b.Bus, I2CAddress(addr), w, uint8(len(r)))
	if err != nil {
		return err
	}
	if copy(r, data) < len(r) {
		return ErrI2CShortRead
	}
	return nil
}
