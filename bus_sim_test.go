package vl53l1x

// simBus is a simulated VL53L1X register map behind the Bus interface,
// in the spirit of gobot's i2cTestAdaptor. A 2-byte write selects the
// current register; longer writes store value bytes from that register
// onward and are journaled. Reads return memory from the current
// register, byte by byte, unless a readHook overrides a location.
type simBus struct {
	mem     map[uint16]uint8
	lastReg uint16

	// journal of value writes (address-only writes are not recorded)
	writes []simWrite

	// readHook, when set, may override the value served for a register
	readHook func(reg uint16) (uint8, bool)

	wErr error
	rErr error
}

type simWrite struct {
	reg  uint16
	data []byte
}

// newSimBus returns a simulated device in its post-boot state: correct
// model ID, firmware booted, plausible oscillator constants and
// calibration registers.
func newSimBus() *simBus {
	b := &simBus{mem: make(map[uint16]uint8)}

	b.set(IDENTIFICATION_MODEL_ID, 0xEA, 0xCC)
	b.set(FIRMWARE_SYSTEM_STATUS, 0x03)
	// fast oscillator frequency 0x8000 (8 MHz in 4.12 format)
	b.set(OSC_MEASURED_FAST_OSC_FREQUENCY, 0x80, 0x00)
	// oscillator calibration value 3000
	b.set(RESULT_OSC_CALIBRATE_VAL, 0x0B, 0xB8)
	// part-to-part outer offset 16 mm
	b.set(MM_CONFIG_OUTER_OFFSET_MM, 0x00, 0x10)
	// VHV configuration as left by firmware calibration
	b.set(VHV_CONFIG_INIT, 0x80)
	b.set(VHV_CONFIG_TIMEOUT_MACROP_LOOP_BOUND, 0x0A)
	b.set(PHASECAL_RESULT_VCSEL_START, 0x0B)

	return b
}

func (b *simBus) set(reg uint16, vals ...uint8) {
	for i, val := range vals {
		b.mem[reg+uint16(i)] = val
	}
}

func (b *simBus) get16(reg uint16) uint16 {
	return uint16(b.mem[reg])<<8 | uint16(b.mem[reg+1])
}

// setResults loads the 17-byte result block
func (b *simBus) setResults(rangeStatus, streamCount uint8, spads, ambient,
	rangeMM, peak uint16) {

	b.set(RESULT_RANGE_STATUS,
		rangeStatus,
		0, // report_status
		streamCount,
		uint8(spads>>8), uint8(spads),
		0, 0, // raw peak signal rate
		uint8(ambient>>8), uint8(ambient),
		0, 0, // sigma
		0, 0, // phase
		uint8(rangeMM>>8), uint8(rangeMM),
		uint8(peak>>8), uint8(peak),
	)
}

// lastWriteTo returns the most recent value write to reg, or nil
func (b *simBus) lastWriteTo(reg uint16) []byte {
	for i := len(b.writes) - 1; i >= 0; i-- {
		if b.writes[i].reg == reg {
			return b.writes[i].data
		}
	}
	return nil
}

func (b *simBus) wroteTo(reg uint16) bool {
	return b.lastWriteTo(reg) != nil
}

func (b *simBus) WriteBytes(buf []byte) (int, error) {
	if b.wErr != nil {
		return 0, b.wErr
	}

	b.lastReg = uint16(buf[0])<<8 | uint16(buf[1])

	if len(buf) > 2 {
		data := append([]byte(nil), buf[2:]...)
		b.writes = append(b.writes, simWrite{reg: b.lastReg, data: data})
		b.set(b.lastReg, data...)
	}

	return len(buf), nil
}

func (b *simBus) ReadBytes(buf []byte) (int, error) {
	if b.rErr != nil {
		return 0, b.rErr
	}

	for i := range buf {
		reg := b.lastReg + uint16(i)

		if b.readHook != nil {
			if val, ok := b.readHook(reg); ok {
				buf[i] = val
				continue
			}
		}

		buf[i] = b.mem[reg]
	}

	return len(buf), nil
}
