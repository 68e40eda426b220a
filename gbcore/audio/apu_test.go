package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/gbcore/gbcore/addr"
)

func poweredAPU() *APU {
	apu := New()
	apu.Write(addr.NR52, 0x80)
	return apu
}

// tick advances the APU one machine cycle at a time, as the system does.
func tick(apu *APU, cycles int) {
	for range cycles / 4 {
		apu.Tick(4)
	}
}

func TestAPU_RegisterMapping(t *testing.T) {
	tests := []struct {
		name     string
		register uint16
		value    uint8
		testFunc func(t *testing.T, apu *APU)
	}{
		{
			name:     "NR52 power control",
			register: addr.NR52, value: 0x80,
			testFunc: func(t *testing.T, apu *APU) {
				assert.True(t, apu.enabled, "APU should be enabled when NR52 bit 7 is set")
			},
		},
		{
			name:     "NR51 panning",
			register: addr.NR51, value: 0xFF, // all channels to both sides
			testFunc: func(t *testing.T, apu *APU) {
				for i := range 4 {
					assert.True(t, apu.channels[i].left, "Channel %d should be panned left", i)
					assert.True(t, apu.channels[i].right, "Channel %d should be panned right", i)
				}
			},
		},
		{
			name:     "NR50 master volume",
			register: addr.NR50, value: 0x75,
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, uint8(7), apu.volLeft)
				assert.Equal(t, uint8(5), apu.volRight)
			},
		},
		{
			name:     "NR10 sweep",
			register: addr.NR10, value: 0x5E, // period=5, negate, shift=6
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, uint8(5), apu.sweepPeriod)
				assert.True(t, apu.sweepNegate)
				assert.Equal(t, uint8(6), apu.sweepShift)
			},
		},
		{
			name:     "NR11 duty and length timer",
			register: addr.NR11, value: 0xBF, // duty=2, length data=63
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, uint8(2), apu.channels[ch1].duty, "CH1 duty should be 2")
				assert.Equal(t, 1, apu.channels[ch1].lengthCounter)
			},
		},
		{
			name:     "NR12 volume and envelope",
			register: addr.NR12, value: 0xF7, // vol=15, up=0, pace=7
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, uint8(15), apu.channels[ch1].initialVolume, "CH1 volume should be 15")
				assert.False(t, apu.channels[ch1].envelopeUp, "CH1 envelope should be down")
				assert.Equal(t, uint8(7), apu.channels[ch1].envelopePeriod, "CH1 envelope pace should be 7")
				assert.True(t, apu.channels[ch1].dacEnabled, "CH1 DAC should be enabled (volume > 0)")
			},
		},
		{
			name:     "NR31 wave length",
			register: addr.NR31, value: 0xFF,
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, 1, apu.channels[ch3].lengthCounter)
			},
		},
		{
			name:     "NR43 noise",
			register: addr.NR43, value: 0x5B, // shift=5, 7-bit, divisor code 3
			testFunc: func(t *testing.T, apu *APU) {
				assert.Equal(t, uint8(5), apu.channels[ch4].clockShift)
				assert.True(t, apu.channels[ch4].narrowLFSR)
				assert.Equal(t, 48<<5, apu.channels[ch4].noisePeriod())
			},
		},
		{
			name:     "Wave RAM write/read",
			register: addr.WaveRAMStart, value: 0xAB,
			testFunc: func(t *testing.T, apu *APU) {
				read := apu.Read(addr.WaveRAMStart)
				assert.Equal(t, uint8(0xAB), read, "Wave RAM should store and return values")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apu := poweredAPU()
			apu.Write(tt.register, tt.value)
			tt.testFunc(t, apu)
		})
	}
}

func TestAPU_ReadMasks(t *testing.T) {
	apu := poweredAPU()

	// Write-only registers should return 0xFF
	for _, reg := range []uint16{addr.NR13, addr.NR23, addr.NR33, addr.NR41} {
		apu.Write(reg, 0x00)
		assert.Equal(t, uint8(0xFF), apu.Read(reg), "Register 0x%X should read as 0xFF (write-only)", reg)
	}

	apu.Write(addr.NR11, 0x80)
	assert.Equal(t, uint8(0xBF), apu.Read(addr.NR11), "only the duty is readable")

	apu.Write(addr.NR50, 0x77)
	assert.Equal(t, uint8(0x77), apu.Read(addr.NR50))

	assert.Equal(t, uint8(0xF0), apu.Read(addr.NR52))
	assert.Equal(t, uint8(0xFF), apu.Read(0xFF27), "unused")
}

func TestAPU_PowerOffLogic(t *testing.T) {
	apu := poweredAPU()

	apu.Write(addr.NR10, 0x5E) // CH1 sweep: period=5, down=1, step=6
	apu.Write(addr.NR11, 0xC3) // CH1: duty=3, length=3
	apu.Write(addr.NR12, 0xFB) // CH1: volume=15, up=1, pace=3
	apu.Write(addr.NR14, 0x80) // trigger
	apu.Write(addr.NR50, 0x77) // Master volume: 7/7
	apu.Write(addr.NR51, 0xFF) // All channels panned to both sides
	apu.Write(addr.WaveRAMStart, 0xAA)
	apu.Write(addr.WaveRAMStart+1, 0xBB)
	require.True(t, apu.channels[ch1].enabled)

	apu.Write(addr.NR52, 0x00)
	assert.False(t, apu.enabled, "APU should be disabled")
	assert.Equal(t, uint8(0x70), apu.Read(addr.NR52))

	assert.Equal(t, uint8(0), apu.sweepPeriod, "CH1 sweep period should be cleared")
	assert.False(t, apu.sweepNegate, "CH1 sweep down should be cleared")
	assert.Equal(t, uint8(0), apu.sweepShift, "CH1 sweep step should be cleared")
	assert.Equal(t, uint8(0), apu.channels[ch1].duty, "CH1 duty should be cleared")
	assert.Equal(t, uint8(0), apu.channels[ch1].volume, "CH1 volume should be cleared")
	assert.Equal(t, uint8(0), apu.volLeft, "Left volume should be cleared")
	assert.Equal(t, uint8(0), apu.volRight, "Right volume should be cleared")
	assert.False(t, apu.channels[ch1].left, "CH1 left panning should be cleared")
	for i := range 4 {
		assert.False(t, apu.channels[i].enabled, "Channel %d should be disabled", i)
		assert.False(t, apu.channels[i].dacEnabled, "Channel %d DAC should be disabled", i)
	}
	for reg := addr.NR10; reg <= addr.NR51; reg++ {
		assert.Equal(t, readMasks[reg-addr.AudioStart], apu.Read(reg), "register 0x%04X", reg)
	}

	assert.Equal(t, uint8(0xAA), apu.waveRAM[0], "Wave RAM[0] should be preserved")
	assert.Equal(t, uint8(0xBB), apu.waveRAM[1], "Wave RAM[1] should be preserved")

	// Ignore writes while powered off
	apu.Write(addr.NR10, 0x77)
	apu.Write(addr.NR50, 0x55)
	assert.Equal(t, uint8(0), apu.sweepPeriod, "CH1 sweep should remain 0 (write ignored)")
	assert.Equal(t, uint8(0), apu.volLeft, "Volume should remain 0 (write ignored)")

	// Wave RAM writes still allowed
	apu.Write(addr.WaveRAMStart+2, 0xCC)
	assert.Equal(t, uint8(0xCC), apu.waveRAM[2], "Wave RAM should be writable while powered off")

	apu.Write(addr.NR52, 0x80)
	assert.True(t, apu.enabled, "APU should be enabled again")
	apu.Write(addr.NR10, 0x34)
	apu.Write(addr.NR50, 0x66)
	assert.Equal(t, uint8(3), apu.sweepPeriod, "CH1 sweep period should be writable after power on")
	assert.Equal(t, uint8(6), apu.volLeft, "Volume should be writable after power on")
}

func TestAPU_FrameSequencer(t *testing.T) {
	t.Run("steps every 8192 cycles", func(t *testing.T) {
		apu := poweredAPU()
		tick(apu, cyclesPerStep-4)
		assert.Equal(t, 0, apu.FrameStep())
		tick(apu, 4)
		assert.Equal(t, 1, apu.FrameStep())
		tick(apu, 7*cyclesPerStep)
		assert.Equal(t, 0, apu.FrameStep())
	})

	t.Run("length expiry silences the channel", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR12, 0xF0)
		apu.Write(addr.NR11, 0x3E) // length 2
		apu.Write(addr.NR14, 0xC0) // trigger, length enabled
		require.Equal(t, uint8(0x01), apu.Read(addr.NR52)&0x0F)

		// step 0 clocks length, step 1 does not
		tick(apu, 2*cyclesPerStep)
		assert.True(t, apu.channels[ch1].enabled)
		assert.Equal(t, 1, apu.channels[ch1].lengthCounter)

		// step 2
		tick(apu, cyclesPerStep)
		assert.False(t, apu.channels[ch1].enabled)
		assert.Equal(t, uint8(0x00), apu.Read(addr.NR52)&0x0F)
	})

	t.Run("length disabled keeps playing", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR22, 0xF0)
		apu.Write(addr.NR21, 0x3F)
		apu.Write(addr.NR24, 0x80)

		tick(apu, 8*cyclesPerStep)
		assert.True(t, apu.channels[ch2].enabled)
	})

	t.Run("trigger with zero length loads the maximum", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR30, 0x80)
		apu.Write(addr.NR34, 0x80)
		assert.Equal(t, waveLength, apu.channels[ch3].lengthCounter)
	})

	t.Run("envelope on step 7", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR12, 0xF1) // volume 15, decrease, period 1
		apu.Write(addr.NR14, 0x80)

		tick(apu, 7*cyclesPerStep)
		assert.Equal(t, uint8(15), apu.channels[ch1].volume)
		tick(apu, cyclesPerStep)
		assert.Equal(t, uint8(14), apu.channels[ch1].volume)

		tick(apu, 20*8*cyclesPerStep)
		assert.Equal(t, uint8(0), apu.channels[ch1].volume, "stops at 0")
	})

	t.Run("envelope increase", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR42, 0xE9) // volume 14, increase, period 1
		apu.Write(addr.NR44, 0x80)

		tick(apu, 3*8*cyclesPerStep)
		assert.Equal(t, uint8(15), apu.channels[ch4].volume, "stops at 15")
	})
}

func TestAPU_Sweep(t *testing.T) {
	t.Run("period increases on steps 2 and 6", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR10, 0x11) // period 1, add, shift 1
		apu.Write(addr.NR12, 0xF0)
		apu.Write(addr.NR13, 0x00)
		apu.Write(addr.NR14, 0x81) // trigger, period 0x100

		tick(apu, 3*cyclesPerStep)
		assert.Equal(t, uint16(0x180), apu.channels[ch1].period)
		tick(apu, 4*cyclesPerStep)
		assert.Equal(t, uint16(0x240), apu.channels[ch1].period)
		assert.True(t, apu.channels[ch1].enabled)
	})

	t.Run("negate", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR10, 0x19) // period 1, subtract, shift 1
		apu.Write(addr.NR12, 0xF0)
		apu.Write(addr.NR14, 0x84) // period 0x400

		tick(apu, 3*cyclesPerStep)
		assert.Equal(t, uint16(0x200), apu.channels[ch1].period)
	})

	t.Run("overflow on trigger disables the channel", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR10, 0x11)
		apu.Write(addr.NR12, 0xF0)
		apu.Write(addr.NR14, 0x87) // period 0x700 + 0x380 > 2047

		assert.False(t, apu.channels[ch1].enabled)
	})
}

func TestAPU_TriggerBehavior(t *testing.T) {
	t.Run("DAC off blocks the trigger", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR22, 0x07)
		apu.Write(addr.NR24, 0x80)
		assert.False(t, apu.channels[ch2].enabled)
	})

	t.Run("DAC off disables a playing channel", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR30, 0x80)
		apu.Write(addr.NR34, 0x80)
		require.True(t, apu.channels[ch3].enabled)

		apu.Write(addr.NR30, 0x00)
		assert.False(t, apu.channels[ch3].enabled)
	})

	t.Run("noise LFSR", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR42, 0xF0)
		apu.Write(addr.NR43, 0x00) // divisor 8, shift 0
		apu.Write(addr.NR44, 0x80)
		require.Equal(t, uint16(0x7FFF), apu.channels[ch4].lfsr)

		tick(apu, 8)
		assert.Equal(t, uint16(0x3FFF), apu.channels[ch4].lfsr)

		apu.Write(addr.NR43, 0x08) // 7-bit mode
		apu.Write(addr.NR44, 0x80)
		tick(apu, 8)
		assert.Equal(t, uint16(0x3FBF), apu.channels[ch4].lfsr)
	})

	t.Run("wave output level", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.WaveRAMStart, 0xAB)
		apu.Write(addr.NR30, 0x80)
		apu.Write(addr.NR32, 0x40) // 50%
		apu.Write(addr.NR34, 0x80)

		assert.Equal(t, int32(0x0A>>1), apu.channelOutput(ch3))

		apu.Write(addr.NR32, 0x00)
		assert.Equal(t, int32(0), apu.channelOutput(ch3), "muted by output level")
	})

	t.Run("duty pattern", func(t *testing.T) {
		apu := poweredAPU()
		apu.Write(addr.NR21, 0x00) // 12.5%
		apu.Write(addr.NR22, 0xF0)
		apu.Write(addr.NR24, 0x80)

		high := 0
		for range 8 {
			tick(apu, apu.channels[ch2].pulsePeriod())
			if apu.channelOutput(ch2) != 0 {
				high++
			}
		}
		assert.Equal(t, 1, high)
	})
}

// squareWave sets channel 2 to a 512 Hz, 50% duty wave.
func squareWave(apu *APU, nr51 uint8) {
	apu.Write(addr.NR50, 0x77)
	apu.Write(addr.NR51, nr51)
	apu.Write(addr.NR21, 0x80)
	apu.Write(addr.NR22, 0xF0)
	apu.Write(addr.NR23, 0x00)
	apu.Write(addr.NR24, 0x87)
}

func splitStereo(samples []int16) (left, right []int16) {
	for i := 0; i+1 < len(samples); i += 2 {
		left = append(left, samples[i])
		right = append(right, samples[i+1])
	}
	return left, right
}

func nonZero(samples []int16) int {
	n := 0
	for _, s := range samples {
		if s != 0 {
			n++
		}
	}
	return n
}

func TestAPU_SampleGeneration(t *testing.T) {
	t.Run("one video frame of samples", func(t *testing.T) {
		apu := poweredAPU()
		squareWave(apu, 0x22)
		tick(apu, mixFrameCycles)

		out := make([]int16, 4096)
		n := apu.ReadSamples(out)
		assert.InDelta(t, 738, n/2, 2)
		assert.Zero(t, n%2)

		left, right := splitStereo(out[:n])
		assert.NotZero(t, nonZero(left))
		assert.Equal(t, left, right, "same routing on both sides")

		assert.Zero(t, apu.ReadSamples(out), "drained")
	})

	t.Run("NR51 routes to one side", func(t *testing.T) {
		apu := poweredAPU()
		squareWave(apu, 0x02) // channel 2 right only
		tick(apu, mixFrameCycles)

		out := make([]int16, 4096)
		n := apu.ReadSamples(out)
		left, right := splitStereo(out[:n])
		assert.Zero(t, nonZero(left))
		assert.NotZero(t, nonZero(right))
	})

	t.Run("muted channel is silent", func(t *testing.T) {
		apu := poweredAPU()
		squareWave(apu, 0x22)
		apu.MuteChannel(2, true)
		tick(apu, mixFrameCycles)

		out := make([]int16, 4096)
		n := apu.ReadSamples(out)
		assert.NotZero(t, n)
		assert.Zero(t, nonZero(out[:n]))

		ch1, ch2, _, _ := apu.GetChannelStatus()
		assert.False(t, ch1)
		assert.False(t, ch2)
	})

	t.Run("partial frame is readable", func(t *testing.T) {
		apu := poweredAPU()
		tick(apu, mixFrameCycles/2)
		out := make([]int16, 4096)
		assert.InDelta(t, 369, apu.ReadSamples(out)/2, 2)
	})

	t.Run("undrained output is bounded", func(t *testing.T) {
		apu := New(WithSampleRate(MinSampleRate))
		apu.Write(addr.NR52, 0x80)
		squareWave(apu, 0xFF)

		assert.NotPanics(t, func() { tick(apu, 200*mixFrameCycles) })
		assert.LessOrEqual(t, apu.mixer.Available(), MinSampleRate)
	})

	t.Run("out of range sample rate falls back", func(t *testing.T) {
		assert.Equal(t, DefaultSampleRate, New(WithSampleRate(1)).SampleRate())
		assert.Equal(t, 22050, New(WithSampleRate(22050)).SampleRate())
	})
}

func TestAPU_DebugControls(t *testing.T) {
	apu := poweredAPU()
	for _, reg := range []uint16{addr.NR12, addr.NR22, addr.NR42} {
		apu.Write(reg, 0xF0)
	}
	apu.Write(addr.NR30, 0x80)
	for _, reg := range []uint16{addr.NR14, addr.NR24, addr.NR34, addr.NR44} {
		apu.Write(reg, 0x80)
	}

	apu.SoloChannel(3)
	ch1, ch2, ch3, ch4 := apu.GetChannelStatus()
	assert.Equal(t, []bool{false, false, true, false}, []bool{ch1, ch2, ch3, ch4})

	apu.ToggleChannel(1)
	ch1, _, _, _ = apu.GetChannelStatus()
	assert.True(t, ch1)

	apu.UnmuteAll()
	ch1, ch2, ch3, ch4 = apu.GetChannelStatus()
	assert.Equal(t, []bool{true, true, true, true}, []bool{ch1, ch2, ch3, ch4})

	v1, _, _, v4 := apu.GetChannelVolumes()
	assert.Equal(t, uint8(15), v1)
	assert.Equal(t, uint8(15), v4)
}
