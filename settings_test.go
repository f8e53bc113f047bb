package vl53l1x

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetTimingBudgetRoundTrip(t *testing.T) {
	v, _ := newTestSensor(t)

	for _, budgetUs := range []uint32{20000, 50000, 100000, 500000} {
		require.NoError(t, v.SetMeasurementTimingBudget(budgetUs))

		got, err := v.GetMeasurementTimingBudget()
		require.NoError(t, err)

		// the timeout encoding quantizes harder as the exponent grows, so
		// the tolerance scales with the budget
		assert.InDelta(t, budgetUs, got, float64(budgetUs)*0.01, "budget %d us", budgetUs)
	}
}

func TestSetTimingBudgetRejectsTooSmall(t *testing.T) {
	v, bus := newTestSensor(t)
	writes := len(bus.writes)

	assert.Error(t, v.SetMeasurementTimingBudget(TimingGuard))
	assert.Error(t, v.SetMeasurementTimingBudget(TimingGuard-1000))

	// reject path performs no register writes
	assert.Equal(t, writes, len(bus.writes))
}

func TestSetTimingBudgetRejectsTooLarge(t *testing.T) {
	v, bus := newTestSensor(t)
	writes := len(bus.writes)

	// halved range config timeout of 597736 us exceeds the 550000 us
	// per-channel maximum
	assert.Error(t, v.SetMeasurementTimingBudget(1200000))
	assert.Equal(t, writes, len(bus.writes))
}

func TestSetTimingBudgetProgramsBothChannels(t *testing.T) {
	v, bus := newTestSensor(t)

	require.NoError(t, v.SetMeasurementTimingBudget(50000))

	// range config timeout = (50000-4528)/2 = 22736 us against the
	// channel A macro period (144 us) encodes 158 mclks
	assert.Equal(t, []byte{0x00, 0x9D}, bus.lastWriteTo(RANGE_CONFIG_TIMEOUT_MACROP_A))
	assert.True(t, bus.wroteTo(RANGE_CONFIG_TIMEOUT_MACROP_B))
	assert.True(t, bus.wroteTo(MM_CONFIG_TIMEOUT_MACROP_A))
	assert.True(t, bus.wroteTo(MM_CONFIG_TIMEOUT_MACROP_B))
	assert.True(t, bus.wroteTo(PHASECAL_CONFIG_TIMEOUT_MACROP))
}

func TestSetDistanceModePreservesBudget(t *testing.T) {
	v, bus := newTestSensor(t)

	before, err := v.GetMeasurementTimingBudget()
	require.NoError(t, err)

	require.NoError(t, v.SetDistanceMode(Short))
	assert.Equal(t, Short, v.GetDistanceMode())

	// short mode preset applied
	assert.Equal(t, uint8(0x07), bus.mem[RANGE_CONFIG_VCSEL_PERIOD_A])
	assert.Equal(t, uint8(0x05), bus.mem[RANGE_CONFIG_VCSEL_PERIOD_B])
	assert.Equal(t, uint8(0x38), bus.mem[RANGE_CONFIG_VALID_PHASE_HIGH])
	assert.Equal(t, uint8(6), bus.mem[SD_CONFIG_INITIAL_PHASE_SD0])

	// budget survives the mode switch within encoding tolerance
	after, err := v.GetMeasurementTimingBudget()
	require.NoError(t, err)
	assert.InDelta(t, before, after, 200)
}

func TestSetDistanceModeMedium(t *testing.T) {
	v, bus := newTestSensor(t)

	require.NoError(t, v.SetDistanceMode(Medium))
	assert.Equal(t, Medium, v.GetDistanceMode())
	assert.Equal(t, uint8(0x0B), bus.mem[RANGE_CONFIG_VCSEL_PERIOD_A])
	assert.Equal(t, uint8(0x09), bus.mem[RANGE_CONFIG_VCSEL_PERIOD_B])
	assert.Equal(t, uint8(0x78), bus.mem[RANGE_CONFIG_VALID_PHASE_HIGH])
}

func TestSetDistanceModeRejectsUnknown(t *testing.T) {
	v, bus := newTestSensor(t)
	writes := len(bus.writes)

	assert.Error(t, v.SetDistanceMode(Unknown))
	assert.Error(t, v.SetDistanceMode(DistanceMode(99)))

	// no side effects on the reject path
	assert.Equal(t, writes, len(bus.writes))
	assert.Equal(t, Long, v.GetDistanceMode())
}

func TestParseDistanceMode(t *testing.T) {
	for name, want := range map[string]DistanceMode{
		"short": Short, "medium": Medium, "long": Long,
	} {
		got, err := ParseDistanceMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseDistanceMode("extreme")
	assert.Error(t, err)
}

func TestTimingMethodsRequireInit(t *testing.T) {
	v, err := New(newSimBus(), Long, 50000)
	require.NoError(t, err)

	assert.Error(t, v.SetMeasurementTimingBudget(50000))
	_, err = v.GetMeasurementTimingBudget()
	assert.Error(t, err)
}
