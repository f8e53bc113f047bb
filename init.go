package vl53l1x

import (
	"errors"
	"fmt"
	"time"
)

// VoltageMode selects the sensor's I/O voltage rail during Init.
type VoltageMode uint8

const (
	// Voltage1V8 keeps the sensor's default 1V8 I/O mode
	Voltage1V8 VoltageMode = iota
	// Voltage2V8 enables the 2V8 I/O rail, the usual choice on carrier
	// boards powered from 2.8V
	Voltage2V8
)

var (
	// ErrUnexpectedDevice means the model ID register did not contain the
	// VL53L1X value during Init.
	ErrUnexpectedDevice = errors.New("vl53l1x: unexpected model ID")
	// ErrTimeout means a blocking poll exceeded the session timeout. It is
	// also recorded in the sticky flag reported by TimeoutOccurred.
	ErrTimeout = errors.New("vl53l1x: timeout")
)

// Init brings the sensor up using a sequence based on VL53L1_DataInit()
// and VL53L1_StaticInit(), then applies the distance mode and timing
// budget the session was constructed with. Each step is a precondition
// for the next; on error the sensor is left uninitialized and Init may be
// retried after a reset.
func (v *VL53L1X) Init(voltage VoltageMode) error {

	v.log.Debug().Msg("starting init")

	if err := v.dataInit(voltage); err != nil {
		return fmt.Errorf("data init: %w", err)
	}

	if err := v.staticInit(); err != nil {
		return fmt.Errorf("static init: %w", err)
	}

	v.log.Debug().Msg("init complete")
	return nil
}

// dataInit implements VL53L1_DataInit() from the ST API: identity check,
// soft reset, boot poll, voltage mode and oscillator capture.
func (v *VL53L1X) dataInit(voltage VoltageMode) error {

	// check model ID register (value specified in datasheet)
	model, err := v.readReg16Bit(IDENTIFICATION_MODEL_ID)

	if err != nil {
		return err
	}

	if model != 0xEACC {
		return fmt.Errorf("%w: 0x%04X", ErrUnexpectedDevice, model)
	}

	// VL53L1_software_reset()
	if err := v.writeReg(SOFT_RESET, 0x00); err != nil {
		return err
	}

	time.Sleep(100 * time.Microsecond)

	if err := v.writeReg(SOFT_RESET, 0x01); err != nil {
		return err
	}

	// give it some time to boot; otherwise the sensor NACKs during the
	// readReg() call below
	time.Sleep(1 * time.Millisecond)

	// VL53L1_poll_for_boot_completion()
	v.startTimeout()

	for {
		sysStatus, err := v.readReg(FIRMWARE_SYSTEM_STATUS)

		if err != nil {
			return err
		}

		if (sysStatus&0x01) != 0 && v.lastStatus == 0 {
			break
		}

		if v.checkTimeoutExpired() {
			v.didTimeout = true
			return fmt.Errorf("boot completion: %w", ErrTimeout)
		}

		time.Sleep(1 * time.Millisecond)
	}

	// sensor uses 1V8 mode for I/O by default; switch to 2V8 mode if
	// requested
	if voltage == Voltage2V8 {
		val, err := v.readReg(PAD_I2C_HV_EXTSUP_CONFIG)

		if err != nil {
			return err
		}

		if err := v.writeReg(PAD_I2C_HV_EXTSUP_CONFIG, val|0x01); err != nil {
			return err
		}
	}

	// store oscillator info for later use
	fosc, err := v.readReg16Bit(OSC_MEASURED_FAST_OSC_FREQUENCY)

	if err != nil {
		return err
	}

	v.fastOscFrequency = fosc

	oscCal, err := v.readReg16Bit(RESULT_OSC_CALIBRATE_VAL)

	if err != nil {
		return err
	}

	v.oscCalibrateVal = oscCal

	return nil
}

// staticRegDefault is one entry of the fixed tuning block written during
// staticInit. The values are load-bearing constants from the ST API's
// tuning parameter defaults, written verbatim.
type staticRegDefault struct {
	reg   uint16
	value uint16
	wide  bool // 16-bit write when set, 8-bit otherwise
}

var staticRegDefaults = []staticRegDefault{
	// static config
	{DSS_CONFIG_TARGET_TOTAL_RATE_MCPS, uint16(TargetRate), true},
	{GPIO_TIO_HV_STATUS, 0x02, false},
	{SIGMA_EST_EFFECTIVE_PULSE_WIDTH_NS, 8, false},
	{SIGMA_EST_EFFECTIVE_AMBIENT_WIDTH_NS, 16, false},
	{ALGO_CROSSTALK_COMP_VALID_HEIGHT_MM, 0x01, false},
	{ALGO_RANGE_IGNORE_VALID_HEIGHT_MM, 0xFF, false},
	{ALGO_RANGE_MIN_CLIP, 0, false},
	{ALGO_CONSISTENCY_CHECK_TOLERANCE, 2, false},

	// general config
	{SYSTEM_THRESH_RATE_HIGH, 0x0000, true},
	{SYSTEM_THRESH_RATE_LOW, 0x0000, true},
	{DSS_CONFIG_APERTURE_ATTENUATION, 0x38, false},

	// timing config; most of these settings will be superseded by the
	// distance mode and timing budget configuration below
	{RANGE_CONFIG_SIGMA_THRESH, 360, true},
	{RANGE_CONFIG_MIN_COUNT_RATE_RTN_LIMIT_MCPS, 192, true},

	// dynamic config
	{SYSTEM_GROUPED_PARAMETER_HOLD_0, 0x01, false},
	{SYSTEM_GROUPED_PARAMETER_HOLD_1, 0x01, false},
	{SD_CONFIG_QUANTIFIER, 2, false},

	// from VL53L1_preset_mode_timed_ranging_*
	{SYSTEM_GROUPED_PARAMETER_HOLD, 0x00, false},
	{SYSTEM_SEED_CONFIG, 1, false},

	// from VL53L1_config_low_power_auto_mode
	{SYSTEM_SEQUENCE_CONFIG, 0x8B, false}, // VHV, PHASECAL, DSS1, RANGE
	{DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT, 200 << 8, true},
	{DSS_CONFIG_ROI_MODE_CONTROL, 2, false}, // REQUESTED_EFFECTIVE_SPADS
}

// staticInit implements VL53L1_StaticInit() from the ST API code.
//
// Note that the API does not actually apply the configuration settings
// below when VL53L1_StaticInit() is called: it keeps a copy of the
// sensor's register contents in memory and doesn't write them until a
// measurement is started. Writing the configuration here means we don't
// have to keep it all in memory and avoids a lot of redundant writes
// later.
func (v *VL53L1X) staticInit() error {

	for _, d := range staticRegDefaults {
		var err error

		if d.wide {
			err = v.writeReg16Bit(d.reg, d.value)
		} else {
			err = v.writeReg(d.reg, uint8(d.value))
		}

		if err != nil {
			return err
		}
	}

	// apply the configured mode and budget (Long with a 50 ms budget by
	// default, which differs from what the ST API defaults to)
	if err := v.SetDistanceMode(v.distanceMode); err != nil {
		return err
	}

	if err := v.SetMeasurementTimingBudget(v.timingBudgetUs); err != nil {
		return err
	}

	// the API triggers this change in VL53L1_init_and_start_range() once a
	// measurement is started; assumes MM1 and MM2 are disabled
	outerOffset, err := v.readReg16Bit(MM_CONFIG_OUTER_OFFSET_MM)

	if err != nil {
		return err
	}

	return v.writeReg16Bit(ALGO_PART_TO_PART_RANGE_OFFSET_MM, outerOffset*4)
}
