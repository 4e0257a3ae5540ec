//go:build ch592

package main

/*
#include <stdint.h>
uint32_t EEPROM_READ(uint32_t StartAddr, void *Buffer, uint32_t Length);
*/
import "C"

import (
	"unsafe"

	"pdflogger/config"
)

const (
	// Device configuration block in data flash: JSON, 0xFF or 0x00 padded
	configFlashAddr = 0x0000
	configFlashSize = 256
)

// loadDeviceConfig reads the persisted configuration, falling back to the
// defaults for an erased or unreadable block.
func loadDeviceConfig() *config.DeviceInfo {
	var buf [configFlashSize]byte
	if C.EEPROM_READ(configFlashAddr, unsafe.Pointer(&buf[0]), configFlashSize) != 0 {
		return config.DefaultDeviceConfig()
	}

	n := 0
	for n < len(buf) && buf[n] != 0x00 && buf[n] != 0xFF {
		n++
	}
	if n == 0 {
		return config.DefaultDeviceConfig()
	}
	info, err := config.LoadDeviceConfig(buf[:n])
	if err != nil {
		return config.DefaultDeviceConfig()
	}
	return info
}
