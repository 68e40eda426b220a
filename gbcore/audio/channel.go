package audio

// ChannelState holds per-channel state
type ChannelState struct {
	enabled    bool
	dacEnabled bool

	// 11-bit period from NRx3/NRx4, the timer reloads from it
	period uint16
	timer  int

	// Length counter
	lengthCounter int
	lengthEnabled bool

	// Envelope state (ch1, ch2, ch4)
	volume         uint8
	initialVolume  uint8
	envelopePeriod uint8
	envelopeUp     bool
	envelopeTimer  uint8

	// Pulse channels only (ch1, ch2)
	duty     uint8
	dutyStep uint8

	// Wave channel only (ch3)
	wavePos     uint8
	outputLevel uint8

	// Noise channel only (ch4)
	lfsr        uint16
	clockShift  uint8
	divisorCode uint8
	narrowLFSR  bool

	// NR51 routing
	left, right bool

	// Debug
	muted bool
}

// clockLength decrements the length counter, silencing the channel when it
// expires.
func (c *ChannelState) clockLength() {
	if c.lengthEnabled && c.lengthCounter > 0 {
		c.lengthCounter--
		if c.lengthCounter == 0 {
			c.enabled = false
		}
	}
}

func (c *ChannelState) clockEnvelope() {
	if c.envelopePeriod == 0 {
		return
	}
	if c.envelopeTimer > 0 {
		c.envelopeTimer--
	}
	if c.envelopeTimer != 0 {
		return
	}
	c.envelopeTimer = c.envelopePeriod
	if c.envelopeUp && c.volume < 15 {
		c.volume++
	} else if !c.envelopeUp && c.volume > 0 {
		c.volume--
	}
}

// setEnvelope decodes NRx2. Clearing bits 7-3 turns the DAC and the channel off.
func (c *ChannelState) setEnvelope(value uint8) {
	c.initialVolume = value >> 4
	c.envelopeUp = value&(1<<envelopeUpBit) != 0
	c.envelopePeriod = value & 0x07
	c.dacEnabled = value&0xF8 != 0
	if !c.dacEnabled {
		c.enabled = false
	}
}

func (c *ChannelState) trigger(maxLength int) {
	c.enabled = c.dacEnabled
	if c.lengthCounter == 0 {
		c.lengthCounter = maxLength
	}
	c.volume = c.initialVolume
	c.envelopeTimer = c.envelopePeriod
}

func (c *ChannelState) pulsePeriod() int { return (2048 - int(c.period)) * 4 }
func (c *ChannelState) wavePeriod() int  { return (2048 - int(c.period)) * 2 }
func (c *ChannelState) noisePeriod() int { return noiseDivisors[c.divisorCode] << c.clockShift }

// stepPulse advances the duty position for the given amount of cycles.
func (c *ChannelState) stepPulse(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.pulsePeriod()
		c.dutyStep = (c.dutyStep + 1) & 7
	}
}

func (c *ChannelState) stepWave(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.wavePeriod()
		c.wavePos = (c.wavePos + 1) & 31
	}
}

func (c *ChannelState) stepNoise(cycles int) {
	c.timer -= cycles
	for c.timer <= 0 {
		c.timer += c.noisePeriod()

		feedback := (c.lfsr ^ c.lfsr>>1) & 1
		c.lfsr = c.lfsr>>1 | feedback<<14
		if c.narrowLFSR {
			c.lfsr = c.lfsr&^(1<<6) | feedback<<6
		}
	}
}

// pulseOutput returns the digital output, 0-15.
func (c *ChannelState) pulseOutput() uint8 {
	if (dutyPatterns[c.duty]>>(7-c.dutyStep))&1 == 1 {
		return c.volume
	}
	return 0
}

func (c *ChannelState) noiseOutput() uint8 {
	if c.lfsr&1 == 0 {
		return c.volume
	}
	return 0
}
