package vl53l1x

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countWritesTo(bus *simBus, reg uint16) int {
	n := 0
	for _, w := range bus.writes {
		if w.reg == reg {
			n++
		}
	}
	return n
}

func TestStartContinuous(t *testing.T) {
	v, bus := newTestSensor(t)

	require.NoError(t, v.StartContinuous(55))

	// inter-measurement period = 55 ms * osc calibrate value (3000)
	assert.Equal(t, []byte{0x00, 0x02, 0x84, 0x88},
		bus.lastWriteTo(SYSTEM_INTERMEASUREMENT_PERIOD))
	assert.Equal(t, []byte{0x01}, bus.lastWriteTo(SYSTEM_INTERRUPT_CLEAR))
	// mode_range__timed
	assert.Equal(t, []byte{0x40}, bus.lastWriteTo(SYSTEM_MODE_START))
}

func TestReadBlocking(t *testing.T) {
	v, bus := newTestSensor(t)
	bus.setResults(9, 1, 2048, 128, 2000, 1280)

	require.NoError(t, v.StartContinuous(55))

	data, err := v.Read(true)
	require.NoError(t, err)

	// gain correction: (2000*2011 + 1024) / 2048
	assert.Equal(t, uint16(1964), data.RangeMM)
	assert.Equal(t, RangeValid, data.RangeStatus)

	// 9.7 fixed point rates: 1280/128 and 128/128 MCPS
	assert.Equal(t, float32(10.0), data.PeakSignalCountRateMCPS)
	assert.Equal(t, float32(1.0), data.AmbientCountRateMCPS)

	// first read applies manual calibration: VHV init disabled, loop
	// bound set to the tuning default, phasecal overridden from the
	// measured VCSEL start
	assert.True(t, v.calibrated)
	assert.Equal(t, uint8(0x80), v.savedVHVInit)
	assert.Equal(t, uint8(0x0A), v.savedVHVTimeout)
	assert.Equal(t, []byte{0x00}, bus.lastWriteTo(VHV_CONFIG_INIT))
	assert.Equal(t, []byte{(0x0A & 0x03) + (3 << 2)},
		bus.lastWriteTo(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND))
	assert.Equal(t, []byte{0x01}, bus.lastWriteTo(PHASECAL_CONFIG_OVERRIDE))
	assert.Equal(t, []byte{0x0B}, bus.lastWriteTo(CAL_CONFIG_VCSEL_START))

	// DSS update: total rate per spad = ((1280+128)<<16)/2048 = 45056,
	// required spads = (0x0A00<<16)/45056 = 3723
	assert.Equal(t, []byte{0x0E, 0x8B},
		bus.lastWriteTo(DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT))

	// interrupt cleared after decode
	assert.Equal(t, []byte{0x01}, bus.lastWriteTo(SYSTEM_INTERRUPT_CLEAR))
}

func TestReadCalibratesOnce(t *testing.T) {
	v, bus := newTestSensor(t)
	bus.setResults(9, 1, 2048, 128, 2000, 1280)

	require.NoError(t, v.StartContinuous(55))

	// the tuning block already programmed a DSS default during Init
	dssWrites := countWritesTo(bus, DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT)

	_, err := v.Read(true)
	require.NoError(t, err)
	_, err = v.Read(true)
	require.NoError(t, err)

	// the VHV snapshot/override runs on the first read only
	assert.Equal(t, 1, countWritesTo(bus, VHV_CONFIG_INIT))
	assert.Equal(t, 1, countWritesTo(bus, CAL_CONFIG_VCSEL_START))

	// DSS runs on every read
	assert.Equal(t, dssWrites+2, countWritesTo(bus, DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT))
}

func TestStopContinuousRestoresCalibration(t *testing.T) {
	v, bus := newTestSensor(t)
	bus.setResults(9, 1, 2048, 128, 2000, 1280)

	require.NoError(t, v.StartContinuous(55))
	_, err := v.Read(true)
	require.NoError(t, err)

	require.NoError(t, v.StopContinuous())

	assert.False(t, v.calibrated)
	// abort command, then saved VHV registers restored and phasecal
	// override removed
	assert.Equal(t, []byte{0x80}, bus.lastWriteTo(SYSTEM_MODE_START))
	assert.Equal(t, []byte{0x80}, bus.lastWriteTo(VHV_CONFIG_INIT))
	assert.Equal(t, []byte{0x0A}, bus.lastWriteTo(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND))
	assert.Equal(t, []byte{0x00}, bus.lastWriteTo(PHASECAL_CONFIG_OVERRIDE))
}

func TestReadBlockingTimeout(t *testing.T) {
	v, bus := newTestSensor(t)

	// data ready bit never clears
	bus.readHook = func(reg uint16) (uint8, bool) {
		if reg == GPIO_TIO_HV_STATUS {
			return 0x03, true
		}
		return 0, false
	}

	v.SetTimeout(15 * time.Millisecond)

	data, err := v.Read(true)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, RangingData{}, data)

	// sticky flag reads true exactly once
	assert.True(t, v.TimeoutOccurred())
	assert.False(t, v.TimeoutOccurred())
}

func TestReadNonBlockingNoData(t *testing.T) {
	v, bus := newTestSensor(t)
	writes := len(bus.writes)

	bus.readHook = func(reg uint16) (uint8, bool) {
		if reg == GPIO_TIO_HV_STATUS {
			return 0x03, true
		}
		return 0, false
	}

	data, err := v.Read(false)
	require.NoError(t, err)
	assert.Equal(t, RangingData{}, data)

	// nothing beyond the attempted bit check
	assert.Equal(t, writes, len(bus.writes))
	assert.False(t, v.TimeoutOccurred())
}

func TestReadSingleBlocking(t *testing.T) {
	v, bus := newTestSensor(t)
	bus.setResults(9, 1, 2048, 128, 2000, 1280)

	data, err := v.ReadSingle(true)
	require.NoError(t, err)

	assert.Equal(t, uint16(1964), data.RangeMM)
	// mode_range__single_shot issued before the read
	assert.Equal(t, 1, countWritesTo(bus, SYSTEM_MODE_START))
}

func TestReadSingleNonBlocking(t *testing.T) {
	v, bus := newTestSensor(t)
	bus.setResults(9, 1, 2048, 128, 2000, 1280)

	// fire-and-forget: the start command is issued but no data returned
	data, err := v.ReadSingle(false)
	require.NoError(t, err)
	assert.Equal(t, RangingData{}, data)
	assert.Equal(t, []byte{0x10}, bus.lastWriteTo(SYSTEM_MODE_START))

	// there is no handle to that specific shot; a later Read picks up
	// whatever measurement is pending
	data, err = v.Read(true)
	require.NoError(t, err)
	assert.Equal(t, uint16(1964), data.RangeMM)
}

func TestUpdateDSSZeroSpadFallback(t *testing.T) {
	v, bus := newTestSensor(t)

	v.results = resultBuffer{dssActualEffectiveSpadsSD0: 0}

	// degrades to the mid-point target instead of dividing by zero
	require.NoError(t, v.updateDSS())
	assert.Equal(t, []byte{0x80, 0x00},
		bus.lastWriteTo(DSS_CONFIG_MANUAL_EFFECTIVE_SPADS_SELECT))
}

func TestStatusMapping(t *testing.T) {
	v, _ := newTestSensor(t)

	cases := []struct {
		raw         uint8
		streamCount uint8
		want        RangeStatus
	}{
		{1, 1, HardwareFail},
		{2, 1, HardwareFail},
		{3, 1, HardwareFail},
		{17, 1, HardwareFail},
		{13, 1, MinRangeFail},
		{18, 1, SynchronizationInt},
		{5, 1, OutOfBoundsFail},
		{4, 1, SignalFail},
		{6, 1, SigmaFail},
		{7, 1, WrapTargetFail},
		{12, 1, XtalkSignalFail},
		{8, 1, RangeValidMinRangeClipped},
		{9, 0, RangeValidNoWrapCheckFail},
		{9, 1, RangeValid},
		{0, 1, NoneStatus},
		{99, 1, NoneStatus},
	}

	for _, tc := range cases {
		v.results = resultBuffer{
			rangeStatus: tc.raw,
			streamCount: tc.streamCount,
		}
		got := v.getRangingData().RangeStatus
		assert.Equal(t, tc.want, got, "raw status %d (stream %d)", tc.raw, tc.streamCount)
	}
}

func TestRangeStatusString(t *testing.T) {
	assert.Equal(t, "range valid", RangeValid.String())
	assert.Equal(t, "min range fail", MinRangeFail.String())
	assert.Equal(t, "no update", NoneStatus.String())
	assert.Equal(t, "unknown status", RangeStatus(42).String())
}
