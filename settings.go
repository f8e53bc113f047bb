package vl53l1x

import "fmt"

// DistanceMode represents the selected ranging mode of the sensor
type DistanceMode int

const (
	// Unknown is the zero value before a mode has been applied
	Unknown DistanceMode = iota
	// Short distance mode is limited to 1.3m range in ambient and dark light
	Short
	// Medium distance mode is limited to 2.9m in dark and 76cm in ambient light
	Medium
	// Long distance mode is limited to 3.6m in dark and 73cm in ambient light
	Long
)

// String implements the Stringer interface for DistanceMode
func (m DistanceMode) String() string {
	switch m {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}

// ParseDistanceMode converts a mode name as used in configuration files
// ("short", "medium", "long") into a DistanceMode.
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch s {
	case "short":
		return Short, nil
	case "medium":
		return Medium, nil
	case "long":
		return Long, nil
	default:
		return Unknown, fmt.Errorf("unrecognized distance mode %q", s)
	}
}

// modePreset holds the per-mode VCSEL period, phase validity and window of
// interest register values, from the VL53L1_preset_mode_standard_ranging*
// functions. The initial phase values are tuning parameter defaults.
type modePreset struct {
	vcselPeriodA    uint8
	vcselPeriodB    uint8
	validPhaseHigh  uint8
	woiSD0          uint8
	woiSD1          uint8
	initialPhaseSD0 uint8
	initialPhaseSD1 uint8
}

var modePresets = map[DistanceMode]modePreset{
	Short:  {0x07, 0x05, 0x38, 0x07, 0x05, 6, 6},
	Medium: {0x0B, 0x09, 0x78, 0x0B, 0x09, 10, 10},
	Long:   {0x0F, 0x0D, 0xB8, 0x0F, 0x0D, 14, 14},
}

// GetDistanceMode returns the sensor's current DistanceMode setting
func (v *VL53L1X) GetDistanceMode() DistanceMode {
	return v.distanceMode
}

// SetDistanceMode configures the sensor for Short, Medium, or Long range.
// The active timing budget is preserved across the switch. An unrecognized
// mode is rejected before any register traffic. Based on
// VL53L1_SetDistanceMode().
func (v *VL53L1X) SetDistanceMode(mode DistanceMode) error {

	preset, ok := modePresets[mode]

	if !ok {
		return fmt.Errorf("unrecognized distance mode")
	}

	v.log.Debug().Stringer("mode", mode).Msg("set distance mode")

	// save the existing timing budget
	budgetUs, err := v.GetMeasurementTimingBudget()

	if err != nil {
		return err
	}

	// timing config
	if err := v.writeReg(RANGE_CONFIG_VCSEL_PERIOD_A, preset.vcselPeriodA); err != nil {
		return err
	}

	if err := v.writeReg(RANGE_CONFIG_VCSEL_PERIOD_B, preset.vcselPeriodB); err != nil {
		return err
	}

	if err := v.writeReg(RANGE_CONFIG_VALID_PHASE_HIGH, preset.validPhaseHigh); err != nil {
		return err
	}

	// dynamic config
	if err := v.writeReg(SD_CONFIG_WOI_SD0, preset.woiSD0); err != nil {
		return err
	}

	if err := v.writeReg(SD_CONFIG_WOI_SD1, preset.woiSD1); err != nil {
		return err
	}

	if err := v.writeReg(SD_CONFIG_INITIAL_PHASE_SD0, preset.initialPhaseSD0); err != nil {
		return err
	}

	if err := v.writeReg(SD_CONFIG_INITIAL_PHASE_SD1, preset.initialPhaseSD1); err != nil {
		return err
	}

	// reapply the timing budget against the new VCSEL periods
	if err := v.SetMeasurementTimingBudget(budgetUs); err != nil {
		return err
	}

	v.distanceMode = mode
	return nil
}

// SetMeasurementTimingBudget sets the timing budget in microseconds, which
// is the time allowed for one measurement. A longer budget allows for more
// accurate measurements. Budgets at or below TimingGuard, and budgets
// whose per-channel range timeout exceeds 550000 us, are rejected without
// any register writes. Based on
// VL53L1_SetMeasurementTimingBudgetMicroSeconds(); assumes the preset mode
// is LOWPOWER_AUTONOMOUS.
func (v *VL53L1X) SetMeasurementTimingBudget(budgetUs uint32) error {

	if v.fastOscFrequency == 0 {
		return fmt.Errorf("oscillator frequency not captured, Init required")
	}

	if budgetUs <= TimingGuard {
		return fmt.Errorf("timing budget too small")
	}

	rangeConfigTimeoutUs := (budgetUs - TimingGuard) / 2

	// FDA_MAX_TIMING_BUDGET_US
	if rangeConfigTimeoutUs > 550000 {
		return fmt.Errorf("timing budget too large")
	}

	// VL53L1_calc_timeout_register_values() begin

	// update macro period for Range A VCSEL period
	vcselA, err := v.readReg(RANGE_CONFIG_VCSEL_PERIOD_A)

	if err != nil {
		return err
	}

	macroPeriodUs := calcMacroPeriod(vcselA, v.fastOscFrequency)

	// update phase timeout, uses Timing A. Timeout of 1000 us is the
	// tuning parm default (TIMED_PHASECAL_CONFIG_TIMEOUT_US_DEFAULT).
	phasecalTimeoutMclks := timeoutMicrosecondsToMclks(1000, macroPeriodUs)

	if phasecalTimeoutMclks > 0xFF {
		phasecalTimeoutMclks = 0xFF
	}

	if err := v.writeReg(PHASECAL_CONFIG_TIMEOUT_MACROP, uint8(phasecalTimeoutMclks)); err != nil {
		return err
	}

	// update MM Timing A timeout. Timeout of 1 us is the tuning parm
	// default (LOWPOWERAUTO_MM_CONFIG_TIMEOUT_US_DEFAULT); the MM ("mode
	// mitigation") sequence steps are disabled in low power auto mode
	// anyway.
	mmTimeoutA := timeoutMicrosecondsToMclks(1, macroPeriodUs)

	if err := v.writeReg16Bit(MM_CONFIG_TIMEOUT_MACROP_A, encodeTimeout(mmTimeoutA)); err != nil {
		return err
	}

	// update Range Timing A timeout
	rangeTimeoutA := timeoutMicrosecondsToMclks(rangeConfigTimeoutUs, macroPeriodUs)

	if err := v.writeReg16Bit(RANGE_CONFIG_TIMEOUT_MACROP_A, encodeTimeout(rangeTimeoutA)); err != nil {
		return err
	}

	// update macro period for Range B VCSEL period
	vcselB, err := v.readReg(RANGE_CONFIG_VCSEL_PERIOD_B)

	if err != nil {
		return err
	}

	macroPeriodUs = calcMacroPeriod(vcselB, v.fastOscFrequency)

	// update MM Timing B timeout
	mmTimeoutB := timeoutMicrosecondsToMclks(1, macroPeriodUs)

	if err := v.writeReg16Bit(MM_CONFIG_TIMEOUT_MACROP_B, encodeTimeout(mmTimeoutB)); err != nil {
		return err
	}

	// update Range Timing B timeout
	rangeTimeoutB := timeoutMicrosecondsToMclks(rangeConfigTimeoutUs, macroPeriodUs)

	if err := v.writeReg16Bit(RANGE_CONFIG_TIMEOUT_MACROP_B, encodeTimeout(rangeTimeoutB)); err != nil {
		return err
	}

	// VL53L1_calc_timeout_register_values() end

	return nil
}

// GetMeasurementTimingBudget returns the current timing budget in
// microseconds, derived from the programmed channel A range timeout. It
// exactly inverts SetMeasurementTimingBudget's encoding apart from the
// rounding inherent in the timeout format. Assumes the VHV, PHASECAL,
// DSS1 and RANGE sequence steps are enabled.
func (v *VL53L1X) GetMeasurementTimingBudget() (uint32, error) {

	if v.fastOscFrequency == 0 {
		return 0, fmt.Errorf("oscillator frequency not captured, Init required")
	}

	vcselA, err := v.readReg(RANGE_CONFIG_VCSEL_PERIOD_A)

	if err != nil {
		return 0, err
	}

	macroPeriodUs := calcMacroPeriod(vcselA, v.fastOscFrequency)

	encoded, err := v.readReg16Bit(RANGE_CONFIG_TIMEOUT_MACROP_A)

	if err != nil {
		return 0, err
	}

	rangeConfigTimeoutUs := timeoutMclksToMicroseconds(decodeTimeout(encoded), macroPeriodUs)

	return 2*rangeConfigTimeoutUs + TimingGuard, nil
}
