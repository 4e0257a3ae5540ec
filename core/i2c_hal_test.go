package core

import (
	"errors"
	"testing"
)

type recordingI2C struct {
	writes [][]byte
	reply  []byte
	addr   I2CAddress
}

func (d *recordingI2C) ConfigureBus(I2CBusID, uint32) error { return nil }

func (d *recordingI2C) Write(bus I2CBusID, addr I2CAddress, data []byte) error {
	d.addr = addr
	d.writes = append(d.writes, append([]byte(nil), data...))
	return nil
}

func (d *recordingI2C) Read(bus I2CBusID, addr I2CAddress, regData []byte, readLen uint8) ([]byte, error) {
	d.addr = addr
	d.writes = append(d.writes, append([]byte(nil), regData...))
	if int(readLen) > len(d.reply) {
		return d.reply, nil
	}
	return d.reply[:readLen], nil
}

func TestI2CBusTx(t *testing.T) {
	drv := &recordingI2C{reply: []byte{0x11, 0x22, 0x33}}
	bus := I2CBus{Driver: drv, Bus: 1}

	if err := bus.Tx(0x68, []byte{0x0E, 0x1C}, nil); err != nil {
		t.Fatalf("Write Tx failed: %v", err)
	}
	r := make([]byte, 2)
	if err := bus.Tx(0x68, []byte{0x00}, r); err != nil {
		t.Fatalf("Read Tx failed: %v", err)
	}
	if drv.addr != 0x68 || len(drv.writes) != 2 || r[0] != 0x11 || r[1] != 0x22 {
		t.Errorf("addr=%#x writes=%v read=% X", drv.addr, drv.writes, r)
	}

	if err := bus.Tx(0x68, []byte{0x00}, make([]byte, 5)); !errors.Is(err, ErrI2CShortRead) {
		t.Errorf("Short read err = %v", err)
	}
}

func TestMustI2CPanicsWithoutDriver(t *testing.T) {
	prev := i2cDriver
	defer SetI2CDriver(prev)
	SetI2CDriver(nil)

	defer func() {
		if recover() == nil {
			t.Error("Expected panic without a driver")
		}
	}()
	MustI2C()
}
