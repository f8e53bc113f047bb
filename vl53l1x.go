// Package vl53l1x is an I2C driver for the ST VL53L1X time-of-flight
// ranging sensor.
package vl53l1x

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/swdee/go-i2c"
)

const (
	// Address is the default address of the sensor on the I2C bus
	Address uint8 = 0x29
	// TimingGuard is the fixed overhead per measurement used in timing
	// budget calculations and is given in microseconds
	TimingGuard uint32 = 4528
	// TargetRate is the total rate target used in DSS calculations
	TargetRate uint16 = 0x0A00
)

// Bus is the register transport the driver talks through. A write carries
// the 2-byte big-endian register address followed by the value bytes; a
// read is issued after a 2-byte address-only write. *i2c.Options from
// github.com/swdee/go-i2c satisfies it directly.
type Bus interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
}

// resultBuffer holds raw values read from the sensor's result block
type resultBuffer struct {
	rangeStatus                                   uint8
	streamCount                                   uint8
	dssActualEffectiveSpadsSD0                    uint16
	ambientCountRateMCPS_SD0                      uint16
	finalCrosstalkCorrectedRangeMM_SD0            uint16
	peakSignalCountRateCrosstalkCorrectedMCPS_SD0 uint16
}

// VL53L1X represents a single VL53L1X sensor instance. A session is owned
// by one caller at a time and is not safe for concurrent use.
type VL53L1X struct {
	// bus is the I2C interface
	bus Bus

	ioTimeout    time.Duration
	didTimeout   bool
	timeoutStart time.Time

	// oscillator constants, read once during Init and never re-read
	fastOscFrequency uint16
	oscCalibrateVal  uint16

	calibrated      bool
	savedVHVInit    uint8
	savedVHVTimeout uint8

	distanceMode DistanceMode
	// timing budget in microseconds, applied during Init
	timingBudgetUs uint32

	// outcome of the most recent bus transaction, 0 on success
	lastStatus uint8

	results resultBuffer

	// log is a debug logger, a no-op unless set via NewWithLog
	log zerolog.Logger
}

// New returns a new sensor session on the given bus, configured to apply
// the specified DistanceMode and timing budget in microseconds during
// Init. Mode Unknown defaults to Long and a zero budget defaults to
// 50000 us. No bus traffic occurs until Init is called.
func New(bus Bus, mode DistanceMode, budgetUs uint32) (*VL53L1X, error) {

	v, err := newSensor(bus, mode, budgetUs)

	if err != nil {
		return nil, err
	}

	// create null logger
	v.log = zerolog.Nop()

	return v, nil
}

// NewWithLog creates a sensor session with a logger to be used for
// debugging, configured with the specified DistanceMode and timing budget
// in microseconds.
func NewWithLog(bus Bus, mode DistanceMode, budgetUs uint32,
	log zerolog.Logger) (*VL53L1X, error) {

	v, err := newSensor(bus, mode, budgetUs)

	if err != nil {
		return nil, err
	}

	// set logger
	v.log = log

	return v, nil
}

// newSensor is the common constructor for New and NewWithLog
func newSensor(bus Bus, mode DistanceMode, budgetUs uint32) (*VL53L1X, error) {

	if bus == nil {
		return nil, fmt.Errorf("I2C bus is not initiated")
	}

	if mode == Unknown {
		mode = Long
	}

	if budgetUs == 0 {
		budgetUs = 50000
	}

	v := &VL53L1X{
		bus:            bus,
		ioTimeout:      500 * time.Millisecond,
		calibrated:     false,
		distanceMode:   mode,
		timingBudgetUs: budgetUs,
	}

	return v, nil
}

// SetAddress changes the sensor's bus address and, when the bus is a real
// go-i2c connection, reopens the connection at the new address. Other Bus
// implementations are expected to track the address themselves.
func (v *VL53L1X) SetAddress(newAddr uint8) error {

	if err := v.writeReg(I2C_SLAVE_DEVICE_ADDRESS, newAddr&0x7F); err != nil {
		return err
	}

	opts, ok := v.bus.(*i2c.Options)

	if !ok {
		return nil
	}

	// open new connection
	conn, err := i2c.New(newAddr, opts.GetDev())

	if err != nil {
		return err
	}

	// close existing connection
	opts.Close()

	// replace with new connection
	v.bus = conn
	return nil
}

// LastStatus reports the outcome of the most recent bus transaction,
// 0 for success. It is overwritten on every register access.
func (v *VL53L1X) LastStatus() uint8 {
	return v.lastStatus
}
