package audio

// Timing constants
// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// ClockRate is the master clock the APU is ticked with.
	ClockRate = 4194304

	// cyclesPerStep is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	cyclesPerStep = 8192

	// mixFrameCycles is how many cycles are accumulated in the resampler
	// before a time frame is closed, one video frame.
	mixFrameCycles = 70224

	// DefaultSampleRate is the output rate used when none is configured.
	DefaultSampleRate = 44100

	MinSampleRate = 8000
	MaxSampleRate = 192000
)

// Channel constants
const (
	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16

	pulseLength = 64
	waveLength  = 256
	noiseLength = 64

	lfsrInitialValue = 0x7FFF
	maxPeriod        = 2047
)

// Register bit positions
const (
	triggerBit      = 7
	lengthEnableBit = 6
	envelopeUpBit   = 3
	sweepNegateBit  = 3
	waveDACBit      = 7
	noiseWidthBit   = 3
	powerBit        = 7
)

// dutyPatterns holds the 8-step waveforms for 12.5%, 25%, 50% and 75% duty.
// Bit 7 is the first step.
var dutyPatterns = [4]uint8{
	0b00000001,
	0b10000001,
	0b10000111,
	0b01111110,
}

// noiseDivisors maps NR43 bits 2-0 to the noise timer base period, in
// master cycles.
var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// waveVolumeShift maps NR32 bits 6-5 to the right shift applied to wave
// samples: mute, 100%, 50%, 25%.
var waveVolumeShift = [4]uint8{4, 0, 1, 2}

// readMasks are ORed into register reads, covering write-only and unused
// bits. Indexed from 0xFF10.
// Reference: https://gbdev.io/pandocs/Audio_Registers.html
var readMasks = [0x20]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
}
