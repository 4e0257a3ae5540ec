//go:build ch592

package main

import (
	"errors"
	"runtime/volatile"
	"unsafe"

	"pdflogger/core"
)

var (
	errI2CBus     = errors.New("i2c: no such bus")
	errI2CTimeout = errors.New("i2c: timeout")
	errI2CNack    = errors.New("i2c: no acknowledge")
)

const (
	i2cBase = 0x40004800

	i2cPE    = 0x0001
	i2cStart = 0x0100
	i2cStop  = 0x0200
	i2cAck   = 0x0400

	i2cSB   = 0x0001
	i2cADDR = 0x0002
	i2cBTF  = 0x0004
	i2cRxNE = 0x0040
	i2cTxE  = 0x0080
	i2cAF   = 0x0400

	i2cBusy = 0x0002

	i2cPollLimit = 20000
)

type i2cRegs struct {
	CTRL1  volatile.Register16
	_      [2]byte
	CTRL2  volatile.Register16
	_      [2]byte
	OADDR1 volatile.Register16
	_      [2]byte
	OADDR2 volatile.Register16
	_      [2]byte
	DATAR  volatile.Register16
	_      [2]byte
	STAR1  volatile.Register16
	_      [2]byte
	STAR2  volatile.Register16
	_      [2]byte
	CKCFGR volatile.Register16
	_      [2]byte
	RTR    volatile.Register16
}

var i2c0 = (*i2cRegs)(unsafe.Pointer(uintptr(i2cBase)))

// ch592I2C is a polled master driver for the single I2C block
type ch592I2C struct{}

func (ch592I2C) ConfigureBus(bus core.I2CBusID, frequencyHz uint32) error {
	if bus != 0 {
		return errI2CBus
	}
	mhz := uint16(sysClockHz / 1000000)
	i2c0.CTRL1.ClearBits(i2cPE)
	i2c0.CTRL2.Set(mhz)
	i2c0.CKCFGR.Set(uint16(sysClockHz / (2 * frequencyHz)))
	i2c0.RTR.Set(mhz + 1)
	i2c0.CTRL1.SetBits(i2cPE | i2cAck)
	return nil
}

func (d ch592I2C) Write(bus core.I2CBusID, addr core.I2CAddress, data []byte) error {
	if bus != 0 {
		return errI2CBus
	}
	err := d.startWrite(addr, data)
	i2c0.CTRL1.SetBits(i2cStop)
	return err
}

func (d ch592I2C) Read(bus core.I2CBusID, addr core.I2CAddress, regData []byte, readLen uint8) ([]byte, error) {
	if bus != 0 {
		return nil, errI2CBus
	}
	if len(regData) > 0 {
		if err := d.startWrite(addr, regData); err != nil {
			i2c0.CTRL1.SetBits(i2cStop)
			return nil, err
		}
	}

	out := make([]byte, readLen)
	if err := start(uint8(addr)<<1 | 1); err != nil {
		i2c0.CTRL1.SetBits(i2cStop)
		return nil, err
	}
	i2c0.CTRL1.SetBits(i2cAck)
	for i := range out {
		if i == len(out)-1 {
			// NACK and stop after the last byte
			i2c0.CTRL1.ClearBits(i2cAck)
			i2c0.CTRL1.SetBits(i2cStop)
		}
		if err := waitStatus(i2cRxNE); err != nil {
			return nil, err
		}
		out[i] = uint8(i2c0.DATAR.Get())
	}
	if len(out) == 0 {
		i2c0.CTRL1.SetBits(i2cStop)
	}
	return out, nil
}

func (ch592I2C) startWrite(addr core.I2CAddress, data []byte) error {
	for n := 0; i2c0.STAR2.Get()&i2cBusy != 0; n++ {
		if n > i2cPollLimit {
			return errI2CTimeout
		}
	}
	if err := start(uint8(addr) << 1); err != nil {
		return err
	}
	for _, b := range data {
		if err := waitStatus(i2cTxE); err != nil {
			return err
		}
		i2c0.DATAR.Set(uint16(b))
	}
	return waitStatus(i2cBTF)
}

// start sends a (repeated) start and the address byte
func start(addrByte uint8) error {
	i2c0.CTRL1.SetBits(i2cStart)
	if err := waitStatus(i2cSB); err != nil {
		return err
	}
	i2c0.DATAR.Set(uint16(addrByte))
	if err := waitStatus(i2cADDR); err != nil {
		return err
	}
	// ADDR clears on STAR1 then STAR2 read
	_ = i2c0.STAR2.Get()
	return nil
}

func waitStatus(bits uint16) error {
	for n := 0; n < i2cPollLimit; n++ {
		s := i2c0.STAR1.Get()
		if s&i2cAF != 0 {
			i2c0.STAR1.ClearBits(i2cAF)
			return errI2CNack
		}
		if s&bits != 0 {
			return nil
		}
	}
	return errI2CTimeout
}
