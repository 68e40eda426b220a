package gbcore

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/cpu"
	"github.com/valerio/gbcore/gbcore/internal/testrom"
	"github.com/valerio/gbcore/gbcore/memory"
	"github.com/valerio/gbcore/gbcore/serial"
	"github.com/valerio/gbcore/gbcore/video"
)

// spin is JR -2, an endless loop on itself.
var spin = []byte{0x18, 0xFE}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLoaded(t *testing.T, rom []byte, opts ...Option) *GameBoy {
	t.Helper()
	gb := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, gb.LoadROM(rom))
	return gb
}

func program(code ...byte) []byte {
	return testrom.Program(append(code, spin...)...)
}

func TestEntryPointForEveryMapper(t *testing.T) {
	cartTypes := []uint8{0x00, 0x01, 0x02, 0x03, 0x05, 0x06, 0x0F, 0x10, 0x11, 0x12, 0x13, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E}

	for _, ct := range cartTypes {
		rom := testrom.Build(testrom.ROM{CartType: ct, ROMCode: 0x01, RAMCode: 0x02, Program: []byte{0x00, 0xC3, 0x50, 0x01}})
		gb := newLoaded(t, rom)

		assert.Equal(t, rom[0x0100], gb.MMU().Read(0x0100), "cart type 0x%02X", ct)
		assert.Equal(t, uint16(0x0100), gb.Registers().PC, "cart type 0x%02X", ct)
	}
}

func TestLoadROMErrors(t *testing.T) {
	t.Run("no cartridge", func(t *testing.T) {
		gb := New(WithLogger(quietLogger()))

		_, err := gb.Clock()
		assert.ErrorIs(t, err, ErrNoCartridge)
		_, err = gb.NextFrame()
		assert.ErrorIs(t, err, ErrNoCartridge)
		assert.ErrorIs(t, gb.Reset(), ErrNoCartridge)
		assert.ErrorIs(t, gb.LoadRAM(nil), ErrNoCartridge)
		assert.Nil(t, gb.Cartridge())
		assert.Nil(t, gb.SaveRAM())
	})

	t.Run("truncated image", func(t *testing.T) {
		gb := New(WithLogger(quietLogger()))
		err := gb.LoadROM(make([]byte, 0x80))

		var loadErr *memory.LoadError
		assert.True(t, errors.As(err, &loadErr))
	})

	t.Run("unsupported mapper", func(t *testing.T) {
		gb := New(WithLogger(quietLogger()))
		err := gb.LoadROM(testrom.Build(testrom.ROM{CartType: 0xFE}))

		var mapperErr *memory.UnsupportedMapperError
		require.True(t, errors.As(err, &mapperErr))
		assert.Equal(t, uint8(0xFE), mapperErr.CartType)
	})

	t.Run("failed load leaves the system unloaded", func(t *testing.T) {
		gb := newLoaded(t, program(0x3C))
		_, err := gb.ClockM(10)
		require.NoError(t, err)

		require.Error(t, gb.LoadROM(make([]byte, 0x10)))
		assert.Nil(t, gb.Cartridge())
		assert.Equal(t, uint8(0xFF), gb.MMU().Read(0x0100))
		assert.Zero(t, gb.Cycles())

		_, err = gb.Clock()
		assert.ErrorIs(t, err, ErrNoCartridge)

		require.NoError(t, gb.LoadROM(program(0x3C)))
		_, err = gb.Clock()
		assert.NoError(t, err)
	})
}

func TestClockAccounting(t *testing.T) {
	t.Run("ClockM covers at least 4n cycles", func(t *testing.T) {
		for _, n := range []int{1, 2, 3, 7, 100, 1234} {
			gb := newLoaded(t, program(0x00, 0x3C, 0x01, 0x34, 0x12, 0xCD, 0x50, 0x01))

			total, err := gb.ClockM(n)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, total, 4*n)
			assert.Equal(t, uint64(total), gb.Cycles(), "returned total is the sum of step costs")
		}
	})

	t.Run("sum of single steps matches", func(t *testing.T) {
		a := newLoaded(t, program(0x3E, 0x10, 0x06, 0x20, 0x80, 0x00))
		b := newLoaded(t, program(0x3E, 0x10, 0x06, 0x20, 0x80, 0x00))

		total, err := a.Clocks(500)
		require.NoError(t, err)

		sum := 0
		for sum < 500 {
			c, err := b.Clock()
			require.NoError(t, err)
			assert.Positive(t, c)
			assert.Zero(t, c%MachineCycle)
			sum += c
		}
		assert.Equal(t, total, sum)
		assert.Empty(t, cmp.Diff(a.Registers(), b.Registers()))
	})

	t.Run("invalid opcode aborts the step", func(t *testing.T) {
		gb := newLoaded(t, testrom.Program(0x00, 0xD3))

		_, err := gb.ClockM(10)
		var opErr *cpu.InvalidOpcodeError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, uint8(0xD3), opErr.Opcode)
		assert.Equal(t, uint16(0x0101), gb.Registers().PC)
	})
}

func TestNextFrame(t *testing.T) {
	t.Run("stops on VBlank entry", func(t *testing.T) {
		gb := newLoaded(t, program())

		_, err := gb.NextFrame()
		require.NoError(t, err)
		assert.Equal(t, uint8(144), gb.PPU().LY())

		cycles, err := gb.NextFrame()
		require.NoError(t, err)
		assert.InDelta(t, video.FrameCycles, cycles, 12)
		assert.Len(t, gb.FrameBuffer(), 160*144*3)
	})

	t.Run("bounded with the PPU disabled", func(t *testing.T) {
		gb := newLoaded(t, program())
		gb.SetPPUEnabled(false)
		before := append([]byte(nil), gb.FrameBuffer()...)

		cycles, err := gb.NextFrame()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cycles, video.FrameCycles)
		assert.Less(t, cycles, video.FrameCycles+24)

		assert.Equal(t, uint8(0), gb.MMU().Read(addr.IF)&uint8(addr.VBlankInterrupt|addr.LCDSTATInterrupt))
		assert.Equal(t, uint8(0), gb.PPU().LY())
		assert.Empty(t, cmp.Diff(before, gb.FrameBuffer()))
	})

	t.Run("register writes raise nothing with the PPU disabled", func(t *testing.T) {
		gb := newLoaded(t, program(
			0x3E, 0x78, // LD A,0x78
			0xE0, 0x41, // LDH (STAT),A
			0x3E, 0x00, // LD A,0
			0xE0, 0x45, // LDH (LYC),A
			0xE0, 0x40, // LDH (LCDC),A
			0x3E, 0x91, // LD A,0x91
			0xE0, 0x40, // LDH (LCDC),A
		), WithComponents(false, true, true, true, true))
		gb.MMU().Write(addr.IF, 0)

		_, err := gb.NextFrame()
		require.NoError(t, err)
		assert.Equal(t, uint8(0x78), gb.PPU().Read(addr.STAT)&0x78, "writes still land")
		assert.Equal(t, uint8(0), gb.MMU().Read(addr.IF)&uint8(addr.VBlankInterrupt|addr.LCDSTATInterrupt))

		t.Run("re-enabling resamples the STAT line", func(t *testing.T) {
			gb.SetPPUEnabled(true)
			assert.Equal(t, uint8(0), gb.MMU().Read(addr.IF)&uint8(addr.LCDSTATInterrupt))

			_, err := gb.NextFrame()
			require.NoError(t, err)
			assert.NotZero(t, gb.MMU().Read(addr.IF)&uint8(addr.LCDSTATInterrupt))
		})
	})

	t.Run("bounded with the LCD off", func(t *testing.T) {
		// LD A,0 ; LDH (LCDC),A
		gb := newLoaded(t, program(0x3E, 0x00, 0xE0, 0x40))

		cycles, err := gb.NextFrame()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cycles, video.FrameCycles)
		assert.False(t, gb.PPU().LCDEnabled())
	})
}

// drawProgram fills the first background tiles with a pattern and scrolls,
// so the frame has visible content.
func drawProgram() []byte {
	return program(
		0x21, 0x00, 0x80, // LD HL,0x8000
		0x3E, 0xAA, // LD A,0xAA
		0x06, 0x40, // LD B,0x40
		0x22,       // LD (HL+),A
		0x05,       // DEC B
		0x20, 0xFC, // JR NZ,-4
		0x3E, 0x03, // LD A,3
		0xE0, 0x43, // LDH (SCX),A
		0x3E, 0xE4, // LD A,0xE4
		0xE0, 0x47, // LDH (BGP),A
	)
}

func TestFrameDeterminism(t *testing.T) {
	run := func() ([]byte, error) {
		gb := New(WithLogger(quietLogger()))
		if err := gb.LoadROM(drawProgram()); err != nil {
			return nil, err
		}
		for range 3 {
			if _, err := gb.NextFrame(); err != nil {
				return nil, err
			}
		}
		return append([]byte(nil), gb.FrameBuffer()...), nil
	}

	frames := make([][]byte, 4)
	var g errgroup.Group
	for i := range frames {
		g.Go(func() error {
			fb, err := run()
			frames[i] = fb
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i := range frames {
		require.Len(t, frames[i], 160*144*3)
		assert.Empty(t, cmp.Diff(frames[0], frames[i]), "system %d diverged", i)
	}
}

func TestPaletteColors(t *testing.T) {
	gb := newLoaded(t, program())
	before := gb.PaletteColors()

	err := gb.SetPaletteColors(before[:3])
	var palErr *video.InvalidPaletteError
	require.True(t, errors.As(err, &palErr))
	assert.Equal(t, 3, palErr.Got)
	assert.Equal(t, video.PaletteSize, palErr.Want)
	assert.Empty(t, cmp.Diff(before, gb.PaletteColors()))

	green := []video.Color{{R: 0x9B, G: 0xBC, B: 0x0F}, {R: 0x8B, G: 0xAC, B: 0x0F}, {R: 0x30, G: 0x62, B: 0x30}, {R: 0x0F, G: 0x38, B: 0x0F}}
	require.NoError(t, gb.SetPaletteColors(green))
	assert.Equal(t, green, gb.PaletteColors())

	t.Run("survives a reset", func(t *testing.T) {
		require.NoError(t, gb.Reset())
		assert.Equal(t, green, gb.PaletteColors())
	})
}

func TestHaltBug(t *testing.T) {
	gb := newLoaded(t, testrom.Program(0xF3, 0x76, 0x3C, 0x00))
	gb.MMU().Write(addr.IE, 0x01)
	gb.MMU().Write(addr.IF, 0x01)
	a := gb.Registers().A

	type step struct {
		PC     uint16
		Cycles int
	}
	var trace []step
	for range 5 {
		pc := gb.Registers().PC
		c, err := gb.Clock()
		require.NoError(t, err)
		trace = append(trace, step{pc, c})
	}

	want := []step{
		{0x0100, 4}, // DI
		{0x0101, 4}, // HALT, does not halt
		{0x0102, 4}, // INC A, PC not advanced
		{0x0102, 4}, // INC A again
		{0x0103, 4}, // NOP
	}
	assert.Empty(t, cmp.Diff(want, trace))
	assert.Equal(t, a+2, gb.Registers().A)
}

func TestToggles(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		gb := New()
		assert.True(t, gb.PPUEnabled())
		assert.True(t, gb.APUEnabled())
		assert.True(t, gb.DMAEnabled())
		assert.True(t, gb.TimerEnabled())
		assert.True(t, gb.SerialEnabled())
	})

	t.Run("from options", func(t *testing.T) {
		gb := New(WithComponents(false, true, false, true, false))
		assert.False(t, gb.PPUEnabled())
		assert.True(t, gb.APUEnabled())
		assert.False(t, gb.DMAEnabled())
		assert.True(t, gb.TimerEnabled())
		assert.False(t, gb.SerialEnabled())
	})

	// LD A,5 ; LDH (TAC),A
	timerProgram := program(0x3E, 0x05, 0xE0, 0x07)

	t.Run("timer runs through the system", func(t *testing.T) {
		gb := newLoaded(t, timerProgram)
		_, err := gb.Clocks(16 * 100)
		require.NoError(t, err)
		assert.Greater(t, gb.MMU().Read(addr.TIMA), uint8(90))
	})

	t.Run("disabled timer does not count", func(t *testing.T) {
		gb := newLoaded(t, timerProgram)
		div := gb.MMU().Read(addr.DIV)
		gb.SetTimerEnabled(false)
		_, err := gb.Clocks(16 * 100)
		require.NoError(t, err)
		assert.Equal(t, uint8(0), gb.MMU().Read(addr.TIMA))
		assert.Equal(t, div, gb.MMU().Read(addr.DIV))
	})

	t.Run("disabled APU produces nothing", func(t *testing.T) {
		gb := newLoaded(t, program())
		gb.SetAPUEnabled(false)
		_, err := gb.NextFrame()
		require.NoError(t, err)
		assert.Zero(t, gb.AudioSamples(make([]int16, 4096)))
	})
}

func TestOAMDMA(t *testing.T) {
	// copy 0xC000-0xC09F into OAM, the CPU keeps running from ROM
	setup := func(t *testing.T) *GameBoy {
		gb := newLoaded(t, program())
		for i := uint16(0); i < 0xA0; i++ {
			gb.MMU().Write(0xC000+i, byte(i)+1)
		}
		gb.MMU().Write(addr.LCDC, 0x00)
		return gb
	}

	t.Run("full transfer", func(t *testing.T) {
		gb := setup(t)
		gb.MMU().Write(addr.DMA, 0xC0)
		_, err := gb.ClockM(170)
		require.NoError(t, err)

		assert.False(t, gb.DMA().Active())
		for i := 0; i < 40; i++ {
			b := byte(i * 4)
			assert.Equal(t, [4]byte{b + 1, b + 2, b + 3, b + 4}, gb.MMU().ReadOAMForScan(i))
		}
	})

	t.Run("disabled DMA leaves OAM untouched", func(t *testing.T) {
		gb := setup(t)
		gb.SetDMAEnabled(false)
		gb.MMU().Write(addr.DMA, 0xC0)
		_, err := gb.ClockM(170)
		require.NoError(t, err)

		assert.False(t, gb.DMA().Active())
		assert.Equal(t, [4]byte{}, gb.MMU().ReadOAMForScan(0))
	})
}

func TestSerialThroughSystem(t *testing.T) {
	dev := serial.NewLogDevice(serial.WithDeviceLogger(quietLogger()))
	// LD A,'A' ; LDH (SB),A ; LD A,0x81 ; LDH (SC),A
	gb := newLoaded(t, program(0x3E, 'A', 0xE0, 0x01, 0x3E, 0x81, 0xE0, 0x02), WithSerialDevice(dev))

	_, err := gb.ClockM(2000)
	require.NoError(t, err)
	assert.Equal(t, "A", dev.Output())
	assert.NotZero(t, gb.MMU().Read(addr.IF)&uint8(addr.SerialInterrupt))
}

func TestJoypadInterrupt(t *testing.T) {
	gb := newLoaded(t, program())
	gb.MMU().Write(addr.IF, 0x00)

	gb.Press(memory.JoypadStart)
	assert.NotZero(t, gb.MMU().Read(addr.IF)&uint8(addr.JoypadInterrupt))

	gb.MMU().Write(addr.P1, 0x10)
	assert.Equal(t, uint8(0xD7), gb.MMU().Read(addr.P1))

	gb.Release(memory.JoypadStart)
	assert.Equal(t, uint8(0xDF), gb.MMU().Read(addr.P1))
}

func TestBatteryRAM(t *testing.T) {
	rom := testrom.Build(testrom.ROM{Title: "SAVE", CartType: 0x03, ROMCode: 0x01, RAMCode: 0x02, Program: spin})
	gb := newLoaded(t, rom)

	gb.MMU().Write(0x0000, 0x0A)
	gb.MMU().Write(0xA000, 0x5A)

	saved := gb.SaveRAM()
	require.Len(t, saved, 8*1024)
	assert.Equal(t, uint8(0x5A), saved[0])

	t.Run("reset keeps RAM", func(t *testing.T) {
		require.NoError(t, gb.Reset())
		assert.Equal(t, uint16(0x0100), gb.Registers().PC)
		assert.Equal(t, uint8(0x5A), gb.SaveRAM()[0])
	})

	t.Run("restore into a new system", func(t *testing.T) {
		other := newLoaded(t, rom)
		require.NoError(t, other.LoadRAM(saved))
		other.MMU().Write(0x0000, 0x0A)
		assert.Equal(t, uint8(0x5A), other.MMU().Read(0xA000))
		assert.ErrorIs(t, other.LoadRAM([]byte{1, 2}), memory.ErrRAMSize)
	})

	t.Run("no battery", func(t *testing.T) {
		assert.Nil(t, newLoaded(t, program()).SaveRAM())
	})
}

func TestModes(t *testing.T) {
	tests := []struct {
		mode Mode
		a    uint8
	}{
		{DMG, 0x01},
		{CGB, 0x11},
		{SGB, 0x01},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			gb := newLoaded(t, program(), WithMode(tt.mode))
			assert.Equal(t, tt.mode, gb.Mode())
			assert.Equal(t, tt.a, gb.Registers().A)

			parsed, err := ParseMode(tt.mode.String())
			require.NoError(t, err)
			assert.Equal(t, tt.mode, parsed)
		})
	}

	_, err := ParseMode("gba")
	assert.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	gb := New()
	assert.Equal(t, Version, gb.Version())
	assert.Equal(t, 4194304, gb.ClockFreq())
	assert.Equal(t, "4.19 MHz", gb.ClockFreqString())
	assert.Equal(t, 44100, gb.SampleRate())
}

func TestAudioSamples(t *testing.T) {
	gb := newLoaded(t, program())
	_, err := gb.NextFrame()
	require.NoError(t, err)
	_, err = gb.NextFrame()
	require.NoError(t, err)

	buf := make([]int16, 8192)
	n := gb.AudioSamples(buf)
	assert.Greater(t, n, 0)
	assert.Zero(t, n%2, "stereo pairs")
}
