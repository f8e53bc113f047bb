package vl53l1x

// Fixed-point timing helpers shared by the timing budget and macro period
// calculations. All of these are bit-exact ports of the sensor's own
// arithmetic; the shift order matters and must not be "simplified".

// decodeTimeout decodes a sequence step timeout in MCLKs from its register
// value, based on VL53L1_decode_timeout(). The encoded format is
// "(LSByte * 2^MSByte) + 1".
func decodeTimeout(regVal uint16) uint32 {
	return (uint32(regVal&0xFF) << (regVal >> 8)) + 1
}

// encodeTimeout encodes a sequence step timeout register value from a
// timeout in MCLKs, based on VL53L1_encode_timeout(). A zero timeout
// encodes to zero, which decodes back to 1.
func encodeTimeout(timeoutMclks uint32) uint16 {
	var lsByte uint32
	var msByte uint16

	if timeoutMclks > 0 {
		lsByte = timeoutMclks - 1

		for lsByte&0xFFFFFF00 > 0 {
			lsByte >>= 1
			msByte++
		}

		return (msByte << 8) | uint16(lsByte&0xFF)
	}

	return 0
}

// timeoutMclksToMicroseconds converts a sequence step timeout from macro
// periods to microseconds with the given macro period in microseconds
// (12.12 format), based on VL53L1_calc_timeout_us(). The intermediate is
// widened to 64 bits so long timeouts cannot overflow.
func timeoutMclksToMicroseconds(timeoutMclks, macroPeriodUs uint32) uint32 {
	return uint32((uint64(timeoutMclks)*uint64(macroPeriodUs) + 0x800) >> 12)
}

// timeoutMicrosecondsToMclks converts a sequence step timeout from
// microseconds to macro periods with the given macro period in
// microseconds (12.12 format), based on VL53L1_calc_timeout_mclks().
func timeoutMicrosecondsToMclks(timeoutUs, macroPeriodUs uint32) uint32 {
	return ((timeoutUs << 12) + (macroPeriodUs >> 1)) / macroPeriodUs
}

// calcMacroPeriod calculates the macro period in microseconds (12.12
// format) for the given VCSEL period register value and fast oscillator
// frequency (4.12 format), based on VL53L1_calc_macro_period_us().
func calcMacroPeriod(vcselPeriod uint8, fastOscFrequency uint16) uint32 {

	// PLL period in 0.24 format
	pllPeriodUs := (uint32(1) << 30) / uint32(fastOscFrequency)

	// from VL53L1_decode_vcsel_period()
	vcselPeriodPclks := (uint32(vcselPeriod) + 1) << 1

	// VL53L1_MACRO_PERIOD_VCSEL_PERIODS = 2304
	macroPeriodUs := 2304 * pllPeriodUs
	macroPeriodUs >>= 6
	macroPeriodUs *= vcselPeriodPclks
	macroPeriodUs >>= 6

	return macroPeriodUs
}
