package vl53l1x

import (
	"fmt"
	"time"
)

// RangeStatus is the semantic status of one measurement, mapped from the
// sensor's internal range status code.
type RangeStatus uint8

const (
	RangeValid                RangeStatus = 0
	SigmaFail                 RangeStatus = 1
	SignalFail                RangeStatus = 2
	RangeValidMinRangeClipped RangeStatus = 3
	OutOfBoundsFail           RangeStatus = 4
	HardwareFail              RangeStatus = 5
	RangeValidNoWrapCheckFail RangeStatus = 6
	WrapTargetFail            RangeStatus = 7
	XtalkSignalFail           RangeStatus = 9
	SynchronizationInt        RangeStatus = 10
	MinRangeFail              RangeStatus = 13
	NoneStatus                RangeStatus = 255
)

// RangingData holds a single range measurement and related rate
// information.
type RangingData struct {
	RangeMM                 uint16
	RangeStatus             RangeStatus
	PeakSignalCountRateMCPS float32
	AmbientCountRateMCPS    float32
}

// String implements the Stringer interface for RangeStatus
func (s RangeStatus) String() string {
	switch s {
	case RangeValid:
		return "range valid"
	case SigmaFail:
		return "sigma fail"
	case SignalFail:
		return "signal fail"
	case RangeValidMinRangeClipped:
		return "range valid, min range clipped"
	case OutOfBoundsFail:
		return "out of bounds fail"
	case HardwareFail:
		return "hardware fail"
	case RangeValidNoWrapCheckFail:
		return "range valid, no wrap check fail"
	case WrapTargetFail:
		return "wrap target fail"
	case XtalkSignalFail:
		return "xtalk signal fail"
	case SynchronizationInt:
		return "synchronization int"
	case MinRangeFail:
		return "min range fail"
	case NoneStatus:
		return "no update"
	default:
		return "unknown status"
	}
}

// StartContinuous begins continuous ranging with the given
// inter-measurement period in milliseconds.
func (v *VL53L1X) StartContinuous(periodMs uint32) error {

	v.log.Debug().Uint32("period_ms", periodMs).Msg("start continuous mode")

	// from VL53L1_set_inter_measurement_period_ms()
	val := periodMs * uint32(v.oscCalibrateVal)

	if err := v.writeReg32Bit(SYSTEM_INTERMEASUREMENT_PERIOD, val); err != nil {
		return err
	}

	// sys_interrupt_clear_range
	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return err
	}

	// mode_range__timed
	return v.writeReg(SYSTEM_MODE_START, 0x40)
}

// StopContinuous stops continuous ranging, restores the VHV configuration
// saved at first calibration and removes the phasecal override. Based on
// VL53L1_stop_range().
func (v *VL53L1X) StopContinuous() error {

	v.log.Debug().Msg("stop continuous mode")

	// mode_range__abort
	if err := v.writeReg(SYSTEM_MODE_START, 0x80); err != nil {
		return err
	}

	// VL53L1_low_power_auto_data_stop_range()
	v.calibrated = false

	// restore vhv configs
	if v.savedVHVInit != 0 {
		if err := v.writeReg(VHV_CONFIG_INIT, v.savedVHVInit); err != nil {
			return err
		}
	}

	if v.savedVHVTimeout != 0 {
		if err := v.writeReg(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND, v.savedVHVTimeout); err != nil {
			return err
		}
	}

	// remove phasecal override
	return v.writeReg(PHASECAL_CONFIG_OVERRIDE, 0x00)
}

// Read returns range data read from the sensor. If blocking is true the
// call waits for a new measurement, bounded by the session timeout; on
// expiry it returns zero data and ErrTimeout, and sets the sticky flag
// consumed by TimeoutOccurred. If blocking is false and no measurement is
// ready, zero data is returned immediately with a nil error.
func (v *VL53L1X) Read(blocking bool) (RangingData, error) {

	if blocking {

		v.startTimeout()

		for {
			ready, err := v.dataReady()

			if err != nil {
				return RangingData{}, err
			}

			if ready {
				break
			}

			if v.checkTimeoutExpired() {
				v.didTimeout = true
				return RangingData{}, fmt.Errorf("data ready: %w", ErrTimeout)
			}

			time.Sleep(1 * time.Millisecond)
		}
	} else {
		ready, err := v.dataReady()

		if err != nil {
			return RangingData{}, err
		}

		if !ready {
			return RangingData{}, nil
		}
	}

	if err := v.readResults(); err != nil {
		return RangingData{}, err
	}

	// first read of a ranging session takes over calibration from the
	// sensor firmware
	if !v.calibrated {
		if err := v.setupManualCalibration(); err != nil {
			return RangingData{}, err
		}

		v.calibrated = true
	}

	if err := v.updateDSS(); err != nil {
		return RangingData{}, err
	}

	rData := v.getRangingData()

	// sys_interrupt_clear_range
	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return RangingData{}, err
	}

	return rData, nil
}

// ReadSingle starts a single-shot range measurement. If blocking is true
// the call waits for the measurement to finish and returns the reading.
// Otherwise zero data is returned immediately and the measurement
// proceeds asynchronously; a later Read picks up whatever measurement is
// pending at that point, with no handle tying it to this particular shot.
func (v *VL53L1X) ReadSingle(blocking bool) (RangingData, error) {

	// sys_interrupt_clear_range
	if err := v.writeReg(SYSTEM_INTERRUPT_CLEAR, 0x01); err != nil {
		return RangingData{}, err
	}

	// mode_range__single_shot
	if err := v.writeReg(SYSTEM_MODE_START, 0x10); err != nil {
		return RangingData{}, err
	}

	if !blocking {
		return RangingData{}, nil
	}

	return v.Read(true)
}

// ReadRangeContinuousMillimeters returns a range reading in millimeters
// when continuous mode is active
func (v *VL53L1X) ReadRangeContinuousMillimeters() (uint16, error) {
	rData, err := v.Read(true)
	return rData.RangeMM, err
}

// ReadRangeSingleMillimeters performs a single-shot range measurement and
// returns the reading in millimeters
func (v *VL53L1X) ReadRangeSingleMillimeters() (uint16, error) {
	rData, err := v.ReadSingle(true)
	return rData.RangeMM, err
}

// dataReady checks if the sensor has a new reading available. It assumes
// the interrupt is active low (GPIO_HV_MUX__CTRL bit 4 is 1).
func (v *VL53L1X) dataReady() (bool, error) {

	status, err := v.readReg(GPIO_TIO_HV_STATUS)

	if err != nil {
		return false, err
	}

	// active low: data ready when bit 0 == 0
	return (status & 0x01) == 0, nil
}

// readResults reads the 17-byte measurement result block into the session
// buffer. The interleaved report status, raw signal, sigma and phase
// bytes are fetched to advance the transaction but discarded.
func (v *VL53L1X) readResults() error {

	buf, err := v.readBytes(RESULT_RANGE_STATUS, 17)

	if err != nil {
		return err
	}

	v.results.rangeStatus = buf[0]

	// report_status (buf[1]) -- not used

	v.results.streamCount = buf[2]
	v.results.dssActualEffectiveSpadsSD0 = uint16(buf[3])<<8 | uint16(buf[4])

	// peak_signal_count_rate_mcps_sd0 (buf[5], buf[6]) -- not used

	v.results.ambientCountRateMCPS_SD0 = uint16(buf[7])<<8 | uint16(buf[8])

	// sigma_sd0 (buf[9], buf[10]) and phase_sd0 (buf[11], buf[12]) -- not used

	v.results.finalCrosstalkCorrectedRangeMM_SD0 = uint16(buf[13])<<8 | uint16(buf[14])
	v.results.peakSignalCountRateCrosstalkCorrectedMCPS_SD0 = uint16(buf[15])<<8 | uint16(buf[16])

	return nil
}

// setupManualCalibration sets up ranges after the first one in low power
// auto mode by turning off FW calibration steps and programming static
// values, based on VL53L1_low_power_auto_setup_manual_calibration(). The
// original VHV registers are snapshotted so StopContinuous can restore
// them.
func (v *VL53L1X) setupManualCalibration() error {

	// save original vhv configs
	initVal, err := v.readReg(VHV_CONFIG_INIT)

	if err != nil {
		return err
	}

	v.savedVHVInit = initVal

	timeoutVal, err := v.readReg(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND)

	if err != nil {
		return err
	}

	v.savedVHVTimeout = timeoutVal

	// disable VHV init
	if err := v.writeReg(VHV_CONFIG_INIT, v.savedVHVInit&0x7F); err != nil {
		return err
	}

	// set loop bound to tuning param default
	// (LOWPOWERAUTO_VHV_LOOP_BOUND_DEFAULT)
	newVal := (v.savedVHVTimeout & 0x03) + (3 << 2)

	if err := v.writeReg(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND, newVal); err != nil {
		return err
	}

	// override phasecal
	if err := v.writeReg(PHASECAL_CONFIG_OVERRIDE, 0x01); err != nil {
		return err
	}

	phStart, err := v.readReg(PHASECAL_RESULT_VCSEL_START)

	if err != nil {
		return err
	}

	return v.writeReg(CAL_CONFIG_VCSEL_START, phStart)
}

// updateDSS performs the dynamic SPAD selection calculation and update,
// based on VL53L1_low_power_auto_update_DSS(). When the effective SPAD
// count is zero or the rate calculation would divide by zero, a mid-point
// SPAD target is programmed instead of failing.
func (v *VL53L1X) updateDSS() error {

	spadCount := v.results.dssActualEffectiveSpadsSD0

	if spadCount != 0 {
		// calc total rate per spad
		totalRatePerSpad := uint32(v.results.peakSignalCountRateCrosstalkCorrectedMCPS_SD0) +
			uint32(v.results.ambientCountRateMCPS_SD0)

		// clip to 16 bits
		if totalRatePerSpad > 0xFFFF {
			totalRatePerSpad = 0xFFFF
		}

		// shift up to take advantage of 32 bits
		totalRatePerSpad <<= 16
		totalRatePerSpad /= uint32(spadCount)

		if totalRatePerSpad != 0 {
			// get the target rate and shift up by 16
			requiredSpads := (uint32(TargetRate) << 16) / totalRatePerSpad

			// clip to 16 bit
			if requiredSpads > 0xFFFF {
				requiredSpads = 0xFFFF
			}

			// override DSS config; DSS_CONFIG_ROI_MODE_CONTROL is already
			// set to REQUESTED_EFFECTIVE_SPADS
			return v.writeReg16Bit(DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT, uint16(requiredSpads))
		}
	}

	// something above would have divided by zero; set a mid-point spad
	// target rather than exiting with an error
	return v.writeReg16Bit(DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT, 0x8000)
}

// getRangingData derives range, status and rates from the results buffer,
// based on VL53L1_GetRangingMeasurementData().
func (v *VL53L1X) getRangingData() RangingData {

	rData := RangingData{}

	rangeVal := v.results.finalCrosstalkCorrectedRangeMM_SD0

	// apply correction gain: the factor of 2011 is a tuning parm default
	// (VL53L1_TUNINGPARM_LITE_RANGING_GAIN_FACTOR_DEFAULT) and scales the
	// result by 2011/2048, about 98%, with 1024 added for rounding
	rData.RangeMM = uint16((uint32(rangeVal)*2011 + 0x0400) / 0x0800)

	// mostly based on ConvertStatusLite()
	switch v.results.rangeStatus {

	case 17, 2, 1, 3:
		// MULTCLIPFAIL, VCSELWATCHDOGTESTFAILURE,
		// VCSELCONTINUITYTESTFAILURE, NOVHVVALUEFOUND
		rData.RangeStatus = HardwareFail
	case 13:
		// USERROICLIP
		rData.RangeStatus = MinRangeFail
	case 18:
		// GPHSTREAMCOUNT0READY
		rData.RangeStatus = SynchronizationInt
	case 5:
		// RANGEPHASECHECK
		rData.RangeStatus = OutOfBoundsFail
	case 4:
		// MSRCNOTARGET
		rData.RangeStatus = SignalFail
	case 6:
		// SIGMATHRESHOLDCHECK
		rData.RangeStatus = SigmaFail
	case 7:
		// PHASECONSISTENCY
		rData.RangeStatus = WrapTargetFail
	case 12:
		// RANGEIGNORETHRESHOLD
		rData.RangeStatus = XtalkSignalFail
	case 8:
		// MINCLIP
		rData.RangeStatus = RangeValidMinRangeClipped
	case 9:
		// RANGECOMPLETE
		if v.results.streamCount == 0 {
			rData.RangeStatus = RangeValidNoWrapCheckFail
		} else {
			rData.RangeStatus = RangeValid
		}
	default:
		rData.RangeStatus = NoneStatus
	}

	// from SetSimpleData()
	rData.PeakSignalCountRateMCPS = countRateFixedToFloat(v.results.peakSignalCountRateCrosstalkCorrectedMCPS_SD0)
	rData.AmbientCountRateMCPS = countRateFixedToFloat(v.results.ambientCountRateMCPS_SD0)

	return rData
}

// countRateFixedToFloat converts a count rate from fixed point 9.7 format
// to float
func countRateFixedToFloat(countRateFixed uint16) float32 {
	return float32(countRateFixed) / float32(1<<7)
}
