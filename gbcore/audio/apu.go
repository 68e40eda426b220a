// Package audio implements the four channel APU and its stereo mixer.
package audio

import (
	"log/slog"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
)

const (
	ch1 = iota
	ch2
	ch3
	ch4
)

// amplitudeScale maps the 0-480 mixed range (4 channels x 15 x volume 8)
// onto int16 samples.
const amplitudeScale = 64

// APU implements the Game Boy's Audio Processing Unit
// Reference: https://gbdev.io/pandocs/Audio.html
type APU struct {
	enabled   bool       // Master audio enable (NR52 bit 7)
	registers [0x20]byte // Audio registers FF10-FF2F

	// Frame sequencer state
	// Runs at 512 Hz, advances every cyclesPerStep (8192) CPU cycles
	frameStep   int // Next step (0-7) in frame sequence
	frameCycles int // CPU cycles since last frame sequencer tick

	// Channel states (indexed 0-3 for channels 1-4)
	channels [4]ChannelState

	// Channel 1 sweep
	sweepPeriod  uint8
	sweepShift   uint8
	sweepNegate  bool
	sweepTimer   uint8
	sweepEnabled bool
	shadowPeriod uint16

	// Channel 3 specific
	waveRAM [waveRAMSize]uint8

	volLeft, volRight uint8

	mixer  *Mixer
	logger *slog.Logger
}

// Option configures an APU.
type Option func(*APU)

// WithSampleRate sets the output sample rate. Rates outside
// [MinSampleRate, MaxSampleRate] fall back to DefaultSampleRate.
func WithSampleRate(rate int) Option {
	return func(a *APU) { a.mixer = NewMixer(rate) }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *APU) { a.logger = logger }
}

// New creates a powered off APU. Writing NR52 bit 7 powers it on.
func New(opts ...Option) *APU {
	a := &APU{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.mixer == nil {
		a.mixer = NewMixer(DefaultSampleRate)
	}
	return a
}

// Tick advances the APU by the given amount of master cycles.
func (a *APU) Tick(cycles int) {
	if !a.enabled {
		a.mixer.Add(cycles, 0, 0)
		return
	}

	// Frame sequencer (512 Hz)
	a.frameCycles += cycles
	for a.frameCycles >= cyclesPerStep {
		a.frameCycles -= cyclesPerStep
		a.updateFrameSequencer()
	}

	if a.channels[ch1].enabled {
		a.channels[ch1].stepPulse(cycles)
	}
	if a.channels[ch2].enabled {
		a.channels[ch2].stepPulse(cycles)
	}
	if a.channels[ch3].enabled {
		a.channels[ch3].stepWave(cycles)
	}
	if a.channels[ch4].enabled {
		a.channels[ch4].stepNoise(cycles)
	}

	left, right := a.mixChannels()
	a.mixer.Add(cycles, left, right)
}

// updateFrameSequencer runs the current step and advances to the next one.
// The frame sequencer has 8 steps (0-7) and runs at 512 Hz
// Frame sequencer step actions:
//
//	Step   Length  Sweep  Envelope
//	0      Clock   -      -
//	1      -       -      -
//	2      Clock   Clock  -
//	3      -       -      -
//	4      Clock   -      -
//	5      -       -      -
//	6      Clock   Clock  -
//	7      -       -      Clock
//
// Reference: https://gbdev.io/pandocs/Audio_details.html#frame-sequencer
func (a *APU) updateFrameSequencer() {
	switch a.frameStep {
	case 0, 4:
		a.updateLengthCounters() // 256 Hz (every 2 steps)
	case 2, 6:
		a.updateLengthCounters() // 256 Hz
		a.updateSweep()          // 128 Hz (every 4 steps)
	case 7:
		a.updateEnvelopes() // 64 Hz (every 8 steps)
	}
	a.frameStep = (a.frameStep + 1) & 7
}

func (a *APU) updateLengthCounters() {
	for i := range a.channels {
		a.channels[i].clockLength()
	}
}

func (a *APU) updateSweep() {
	if a.sweepTimer > 0 {
		a.sweepTimer--
	}
	if a.sweepTimer != 0 {
		return
	}
	a.reloadSweepTimer()

	if !a.sweepEnabled || a.sweepPeriod == 0 {
		return
	}

	next := a.calculateSweep()
	if next <= maxPeriod && a.sweepShift != 0 {
		a.shadowPeriod = next
		a.channels[ch1].period = next
		// second overflow check with the new value
		a.calculateSweep()
	}
}

func (a *APU) reloadSweepTimer() {
	a.sweepTimer = a.sweepPeriod
	if a.sweepTimer == 0 {
		a.sweepTimer = 8
	}
}

// calculateSweep returns the next sweep period, disabling channel 1 when it
// overflows 11 bits.
func (a *APU) calculateSweep() uint16 {
	delta := a.shadowPeriod >> a.sweepShift
	next := a.shadowPeriod + delta
	if a.sweepNegate {
		next = a.shadowPeriod - delta
	}
	if next > maxPeriod {
		a.channels[ch1].enabled = false
	}
	return next
}

func (a *APU) updateEnvelopes() {
	// Only channels 0, 1, 3 have envelopes (ch1, ch2, ch4)
	for _, i := range []int{ch1, ch2, ch4} {
		a.channels[i].clockEnvelope()
	}
}

// channelOutput returns the digital output (0-15) of a channel, 0 when it
// is off or muted.
func (a *APU) channelOutput(i int) int32 {
	c := &a.channels[i]
	if !c.enabled || !c.dacEnabled || c.muted {
		return 0
	}

	switch i {
	case ch1, ch2:
		return int32(c.pulseOutput())
	case ch3:
		sample := a.waveRAM[c.wavePos/2]
		if c.wavePos&1 == 0 {
			sample >>= 4
		}
		return int32((sample & 0x0F) >> waveVolumeShift[c.outputLevel])
	default:
		return int32(c.noiseOutput())
	}
}

// mixChannels sums the channels routed to each side by NR51 and applies
// the NR50 master volume.
func (a *APU) mixChannels() (left, right int32) {
	for i := range a.channels {
		out := a.channelOutput(i)
		if a.channels[i].left {
			left += out
		}
		if a.channels[i].right {
			right += out
		}
	}
	left *= int32(a.volLeft+1) * amplitudeScale
	right *= int32(a.volRight+1) * amplitudeScale
	return left, right
}

// Read implements memory.Device for 0xFF10-0xFF3F.
func (a *APU) Read(address uint16) uint8 {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return 0xFF
	}

	if address >= addr.WaveRAMStart {
		return a.waveRAM[address-addr.WaveRAMStart]
	}

	if address == addr.NR52 {
		// NR52 returns power status and channel status bits
		status := uint8(0x70)
		if a.enabled {
			status |= 1 << powerBit
		}
		for i := range a.channels {
			if a.channels[i].enabled {
				status |= 1 << i
			}
		}
		return status
	}

	index := address - addr.AudioStart
	return a.registers[index] | readMasks[index]
}

// Write implements memory.Device for 0xFF10-0xFF3F. While powered off only
// NR52 and wave RAM accept writes.
func (a *APU) Write(address uint16, value uint8) {
	if address < addr.AudioStart || address > addr.AudioEnd {
		return
	}

	if address >= addr.WaveRAMStart {
		a.waveRAM[address-addr.WaveRAMStart] = value
		return
	}

	if address == addr.NR52 {
		a.setPower(bit.IsSet(powerBit, value))
		return
	}

	if !a.enabled {
		return
	}

	a.registers[address-addr.AudioStart] = value
	a.mapRegisterToState(address, value)
}

func (a *APU) setPower(on bool) {
	if on == a.enabled {
		return
	}
	a.enabled = on

	if on {
		a.frameStep = 0
		a.frameCycles = 0
		a.logger.Debug("apu power on")
		return
	}

	// Clear all registers FF10-FF25, wave RAM is kept
	for i := range a.registers {
		a.registers[i] = 0
	}
	for i := range a.channels {
		muted := a.channels[i].muted
		a.channels[i] = ChannelState{muted: muted}
	}
	a.sweepPeriod, a.sweepShift, a.sweepTimer = 0, 0, 0
	a.sweepNegate, a.sweepEnabled = false, false
	a.shadowPeriod = 0
	a.volLeft, a.volRight = 0, 0
	a.logger.Debug("apu power off")
}

// updatePeriodLow updates the low 8 bits of a period value
func updatePeriodLow(current uint16, lowByte uint8) uint16 {
	return (current & 0x700) | uint16(lowByte)
}

// updatePeriodHigh updates the high 3 bits of a period value
func updatePeriodHigh(current uint16, highBits uint8) uint16 {
	return (current & 0xFF) | (uint16(highBits&0x07) << 8)
}

// mapRegisterToState updates internal channel state based on register writes
func (a *APU) mapRegisterToState(address uint16, value uint8) {
	switch address {
	case addr.NR10:
		a.sweepPeriod = (value >> 4) & 0x07
		a.sweepNegate = bit.IsSet(sweepNegateBit, value)
		a.sweepShift = value & 0x07
	case addr.NR11, addr.NR21:
		c := a.pulse(address == addr.NR11)
		c.duty = value >> 6
		c.lengthCounter = pulseLength - int(value&0x3F)
	case addr.NR12, addr.NR22:
		a.pulse(address == addr.NR12).setEnvelope(value)
	case addr.NR13, addr.NR23:
		c := a.pulse(address == addr.NR13)
		c.period = updatePeriodLow(c.period, value)
	case addr.NR14, addr.NR24:
		c := a.pulse(address == addr.NR14)
		c.period = updatePeriodHigh(c.period, value)
		c.lengthEnabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			c.trigger(pulseLength)
			c.timer = c.pulsePeriod()
			if address == addr.NR14 {
				a.triggerSweep()
			}
		}

	case addr.NR30:
		c := &a.channels[ch3]
		c.dacEnabled = bit.IsSet(waveDACBit, value)
		if !c.dacEnabled {
			c.enabled = false
		}
	case addr.NR31:
		a.channels[ch3].lengthCounter = waveLength - int(value)
	case addr.NR32:
		a.channels[ch3].outputLevel = (value >> 5) & 0x03
	case addr.NR33:
		c := &a.channels[ch3]
		c.period = updatePeriodLow(c.period, value)
	case addr.NR34:
		c := &a.channels[ch3]
		c.period = updatePeriodHigh(c.period, value)
		c.lengthEnabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			c.trigger(waveLength)
			c.wavePos = 0
			c.timer = c.wavePeriod()
		}

	case addr.NR41:
		a.channels[ch4].lengthCounter = noiseLength - int(value&0x3F)
	case addr.NR42:
		a.channels[ch4].setEnvelope(value)
	case addr.NR43:
		c := &a.channels[ch4]
		c.clockShift = value >> 4
		c.narrowLFSR = bit.IsSet(noiseWidthBit, value)
		c.divisorCode = value & 0x07
	case addr.NR44:
		c := &a.channels[ch4]
		c.lengthEnabled = bit.IsSet(lengthEnableBit, value)
		if bit.IsSet(triggerBit, value) {
			c.trigger(noiseLength)
			c.lfsr = lfsrInitialValue
			c.timer = c.noisePeriod()
		}

	case addr.NR50:
		a.volLeft = (value >> 4) & 0x07
		a.volRight = value & 0x07
	case addr.NR51:
		for i := range a.channels {
			a.channels[i].right = bit.IsSet(uint8(i), value)
			a.channels[i].left = bit.IsSet(uint8(i+4), value)
		}
	}
}

func (a *APU) pulse(first bool) *ChannelState {
	if first {
		return &a.channels[ch1]
	}
	return &a.channels[ch2]
}

func (a *APU) triggerSweep() {
	a.shadowPeriod = a.channels[ch1].period
	a.reloadSweepTimer()
	a.sweepEnabled = a.sweepPeriod != 0 || a.sweepShift != 0
	if a.sweepShift != 0 {
		a.calculateSweep()
	}
}

// ReadSamples moves buffered audio into out as interleaved stereo int16
// and returns the number of values written.
func (a *APU) ReadSamples(out []int16) int {
	return a.mixer.Read(out)
}

// Reset powers the APU off and drops buffered samples. Debug mutes are kept.
func (a *APU) Reset() {
	a.setPower(false)
	a.waveRAM = [waveRAMSize]uint8{}
	a.mixer.Reset()
}

// Enabled reports NR52 bit 7.
func (a *APU) Enabled() bool { return a.enabled }

// FrameStep returns the next frame sequencer step.
func (a *APU) FrameStep() int { return a.frameStep }

// SampleRate returns the configured output rate.
func (a *APU) SampleRate() int { return a.mixer.SampleRate() }

// MuteChannel mutes or unmutes a specific audio channel for debugging
func (a *APU) MuteChannel(channel int, muted bool) {
	if channel >= 1 && channel <= 4 {
		a.channels[channel-1].muted = muted
	}
}

// ToggleChannel toggles muting for a specific channel
func (a *APU) ToggleChannel(channel int) {
	if channel >= 1 && channel <= 4 {
		a.channels[channel-1].muted = !a.channels[channel-1].muted
	}
}

// SoloChannel mutes all channels except the specified one
func (a *APU) SoloChannel(channel int) {
	for i := range a.channels {
		a.channels[i].muted = (i != channel-1)
	}
}

// UnmuteAll unmutes all channels
func (a *APU) UnmuteAll() {
	for i := range a.channels {
		a.channels[i].muted = false
	}
}

// GetChannelStatus reports, per channel, whether it is playing and not muted.
func (a *APU) GetChannelStatus() (ch1, ch2, ch3, ch4 bool) {
	return !a.channels[0].muted && a.channels[0].enabled,
		!a.channels[1].muted && a.channels[1].enabled,
		!a.channels[2].muted && a.channels[2].enabled,
		!a.channels[3].muted && a.channels[3].enabled
}

// GetChannelVolumes returns the actual current volumes for all channels
// This reflects the actual volume after envelope processing
func (a *APU) GetChannelVolumes() (ch1, ch2, ch3, ch4 uint8) {
	return a.channels[0].volume, a.channels[1].volume, a.channels[2].volume, a.channels[3].volume
}
