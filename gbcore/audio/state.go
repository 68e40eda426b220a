package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type channelState struct {
	Enabled, DACEnabled bool
	Period              uint16
	Timer               int32
	LengthCounter       int32
	LengthEnabled       bool
	Volume              uint8
	InitialVolume       uint8
	EnvelopePeriod      uint8
	EnvelopeUp          bool
	EnvelopeTimer       uint8
	Duty, DutyStep      uint8
	WavePos             uint8
	OutputLevel         uint8
	LFSR                uint16
	ClockShift          uint8
	DivisorCode         uint8
	NarrowLFSR          bool
	Left, Right         bool
}

type apuState struct {
	Enabled           bool
	Registers         [0x20]byte
	FrameStep         int32
	FrameCycles       int32
	Channels          [4]channelState
	SweepPeriod       uint8
	SweepShift        uint8
	SweepNegate       bool
	SweepTimer        uint8
	SweepEnabled      bool
	ShadowPeriod      uint16
	WaveRAM           [waveRAMSize]uint8
	VolLeft, VolRight uint8
}

// MarshalBinary encodes the registers, the frame sequencer and every
// channel. Samples already queued in the mixer and the per channel mute
// switches are not part of the state.
func (a *APU) MarshalBinary() ([]byte, error) {
	s := apuState{
		Enabled:      a.enabled,
		Registers:    a.registers,
		FrameStep:    int32(a.frameStep),
		FrameCycles:  int32(a.frameCycles),
		SweepPeriod:  a.sweepPeriod,
		SweepShift:   a.sweepShift,
		SweepNegate:  a.sweepNegate,
		SweepTimer:   a.sweepTimer,
		SweepEnabled: a.sweepEnabled,
		ShadowPeriod: a.shadowPeriod,
		WaveRAM:      a.waveRAM,
		VolLeft:      a.volLeft,
		VolRight:     a.volRight,
	}
	for i := range a.channels {
		c := &a.channels[i]
		s.Channels[i] = channelState{
			Enabled:        c.enabled,
			DACEnabled:     c.dacEnabled,
			Period:         c.period,
			Timer:          int32(c.timer),
			LengthCounter:  int32(c.lengthCounter),
			LengthEnabled:  c.lengthEnabled,
			Volume:         c.volume,
			InitialVolume:  c.initialVolume,
			EnvelopePeriod: c.envelopePeriod,
			EnvelopeUp:     c.envelopeUp,
			EnvelopeTimer:  c.envelopeTimer,
			Duty:           c.duty,
			DutyStep:       c.dutyStep,
			WavePos:        c.wavePos,
			OutputLevel:    c.outputLevel,
			LFSR:           c.lfsr,
			ClockShift:     c.clockShift,
			DivisorCode:    c.divisorCode,
			NarrowLFSR:     c.narrowLFSR,
			Left:           c.left,
			Right:          c.right,
		}
	}

	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, s)
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (a *APU) UnmarshalBinary(data []byte) error {
	var s apuState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("apu state: %w", err)
	}
	if s.FrameStep < 0 || s.FrameStep > 7 {
		return fmt.Errorf("apu state: frame step %d out of range", s.FrameStep)
	}

	a.enabled = s.Enabled
	a.registers = s.Registers
	a.frameStep = int(s.FrameStep)
	a.frameCycles = int(s.FrameCycles)
	a.sweepPeriod = s.SweepPeriod
	a.sweepShift = s.SweepShift
	a.sweepNegate = s.SweepNegate
	a.sweepTimer = s.SweepTimer
	a.sweepEnabled = s.SweepEnabled
	a.shadowPeriod = s.ShadowPeriod
	a.waveRAM = s.WaveRAM
	a.volLeft, a.volRight = s.VolLeft, s.VolRight

	for i, cs := range s.Channels {
		c := &a.channels[i]
		muted := c.muted
		*c = ChannelState{
			enabled:        cs.Enabled,
			dacEnabled:     cs.DACEnabled,
			period:         cs.Period & 0x7FF,
			timer:          int(cs.Timer),
			lengthCounter:  int(cs.LengthCounter),
			lengthEnabled:  cs.LengthEnabled,
			volume:         cs.Volume & 0x0F,
			initialVolume:  cs.InitialVolume & 0x0F,
			envelopePeriod: cs.EnvelopePeriod & 0x07,
			envelopeUp:     cs.EnvelopeUp,
			envelopeTimer:  cs.EnvelopeTimer,
			duty:           cs.Duty & 0x03,
			dutyStep:       cs.DutyStep & 0x07,
			wavePos:        cs.WavePos & 0x1F,
			outputLevel:    cs.OutputLevel & 0x03,
			lfsr:           cs.LFSR & 0x7FFF,
			clockShift:     cs.ClockShift & 0x0F,
			divisorCode:    cs.DivisorCode & 0x07,
			narrowLFSR:     cs.NarrowLFSR,
			left:           cs.Left,
			right:          cs.Right,
			muted:          muted,
		}
	}
	return nil
}
