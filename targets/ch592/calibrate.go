//go:build ch592

package main

/*
typedef enum { Level_32 = 3, Level_64, Level_128 } Cali_LevelTypeDef;
void Calibration_LSI(Cali_LevelTypeDef cali_Lv);
*/
import "C"

// calibrateLSI trims the internal RC against the high speed clock
func calibrateLSI() {
	C.Calibration_LSI(C.Level_64)
}

// Lib_Calibration_LSI is the RC calibration callback the vendor BLE
// library expects the application to provide.
//
//export Lib_Calibration_LSI
func Lib_Calibration_LSI() {
	if rtc == nil {
		calibrateLSI()
		return
	}
	rtc.Oscillator().Recalibrate()
}
