package gbcore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/cpu"
	"github.com/valerio/gbcore/gbcore/internal/testrom"
	"github.com/valerio/gbcore/gbcore/state"
)

type observed struct {
	Registers cpu.Registers
	Cycles    uint64
	LY, DIV   uint8
	STAT, IF  uint8
	Frame     []byte
}

func observe(gb *GameBoy) observed {
	return observed{
		Registers: gb.Registers(),
		Cycles:    gb.Cycles(),
		LY:        gb.MMU().Read(addr.LY),
		DIV:       gb.MMU().Read(addr.DIV),
		STAT:      gb.MMU().Read(addr.STAT),
		IF:        gb.MMU().Read(addr.IF),
		Frame:     append([]byte(nil), gb.FrameBuffer()...),
	}
}

func runFrames(t *testing.T, gb *GameBoy, frames int) {
	t.Helper()
	for range frames {
		_, err := gb.NextFrame()
		require.NoError(t, err)
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	// a reference system runs straight through, mid frame saves must not
	// change what comes after
	reference := newLoaded(t, drawProgram())
	runFrames(t, reference, 2)
	_, err := reference.Clocks(10_000)
	require.NoError(t, err)
	runFrames(t, reference, 3)
	want := observe(reference)

	gb := newLoaded(t, drawProgram())
	runFrames(t, gb, 2)
	_, err = gb.Clocks(10_000)
	require.NoError(t, err)
	atSave := observe(gb)
	saved, err := gb.SaveState()
	require.NoError(t, err)

	runFrames(t, gb, 3)
	assert.Empty(t, cmp.Diff(want, observe(gb)), "saving changed the run")

	t.Run("restore onto the same system", func(t *testing.T) {
		require.NoError(t, gb.LoadState(saved))
		assert.Empty(t, cmp.Diff(atSave, observe(gb)))

		runFrames(t, gb, 3)
		assert.Empty(t, cmp.Diff(want, observe(gb)))
	})

	t.Run("restore into a new system", func(t *testing.T) {
		other := newLoaded(t, drawProgram())
		require.NoError(t, other.LoadState(saved))

		runFrames(t, other, 3)
		assert.Empty(t, cmp.Diff(want, observe(other)))
	})
}

func TestSaveStateCartridge(t *testing.T) {
	rom := testrom.Build(testrom.ROM{Title: "STATE", CartType: 0x03, ROMCode: 0x02, RAMCode: 0x02, Program: spin, MarkBanks: true})
	gb := newLoaded(t, rom)
	bus := gb.MMU()

	bus.Write(0x0000, 0x0A)
	bus.Write(0x2000, 0x03)
	bus.Write(0xA000, 0x77)
	bus.Write(0xC123, 0x42)
	bus.Write(0x8010, 0x99)
	bus.Write(0xFF90, 0x24)
	saved, err := gb.SaveState()
	require.NoError(t, err)

	bus.Write(0x2000, 0x01)
	bus.Write(0xA000, 0x00)
	bus.Write(0xC123, 0x00)
	bus.Write(0x8010, 0x00)
	bus.Write(0xFF90, 0x00)
	bus.Write(0x0000, 0x00)

	require.NoError(t, gb.LoadState(saved))
	bus = gb.MMU()
	assert.Equal(t, 3, bus.Cartridge().ROMBank())
	assert.Equal(t, uint8(3), bus.Read(0x4000))
	assert.Equal(t, uint8(0x77), bus.Read(0xA000))
	assert.Equal(t, uint8(0x42), bus.Read(0xC123))
	assert.Equal(t, uint8(0x99), bus.ReadVRAM(0, 0x8010))
	assert.Equal(t, uint8(0x24), bus.Read(0xFF90))
}

func TestLoadStateCoreBlocksOnly(t *testing.T) {
	gb := newLoaded(t, drawProgram())
	runFrames(t, gb, 2)
	gb.MMU().Write(0xC000, 0x5A)
	gb.MMU().Write(addr.IE, 0x05)

	saved, err := gb.SaveState()
	require.NoError(t, err)

	// drop the exact component snapshots, as a state from another emulator
	// would not have them
	s, err := state.Decode(saved)
	require.NoError(t, err)
	s.Components = nil
	coreOnly, err := s.MarshalBinary()
	require.NoError(t, err)

	other := newLoaded(t, drawProgram())
	require.NoError(t, other.LoadState(coreOnly))

	assert.Equal(t, gb.Registers(), other.Registers())
	assert.Equal(t, uint8(0x5A), other.MMU().Read(0xC000))
	assert.Equal(t, uint8(0x05), other.MMU().Read(addr.IE))
	assert.Equal(t, gb.MMU().Read(addr.BGP), other.MMU().Read(addr.BGP))
	assert.Equal(t, gb.MMU().Read(addr.SCX), other.MMU().Read(addr.SCX))
	assert.Equal(t, gb.MMU().Read(addr.TAC), other.MMU().Read(addr.TAC))
	assert.Equal(t, uint64(0), other.Cycles())
}

func TestLoadStateErrors(t *testing.T) {
	gb := newLoaded(t, drawProgram())
	runFrames(t, gb, 1)
	saved, err := gb.SaveState()
	require.NoError(t, err)

	tests := []struct {
		name string
		gb   func() *GameBoy
		data []byte
		want error
	}{
		{
			name: "no cartridge",
			gb:   func() *GameBoy { return New(WithLogger(quietLogger())) },
			data: saved,
			want: ErrNoCartridge,
		},
		{
			name: "other cartridge",
			gb: func() *GameBoy {
				return newLoaded(t, testrom.Build(testrom.ROM{Title: "OTHER", Program: spin}))
			},
			data: saved,
			want: state.ErrTitleMismatch,
		},
		{
			name: "not a state",
			gb:   func() *GameBoy { return newLoaded(t, drawProgram()) },
			data: []byte("definitely not a save state"),
			want: state.ErrFormat,
		},
		{
			name: "truncated",
			gb:   func() *GameBoy { return newLoaded(t, drawProgram()) },
			data: saved[len(saved)/2:],
			want: state.ErrFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := tt.gb()
			before := target.Registers()

			assert.ErrorIs(t, target.LoadState(tt.data), tt.want)
			assert.Equal(t, before, target.Registers())
		})
	}

	t.Run("save without a cartridge", func(t *testing.T) {
		_, err := New(WithLogger(quietLogger())).SaveState()
		assert.ErrorIs(t, err, ErrNoCartridge)
	})

	t.Run("model mismatch", func(t *testing.T) {
		cgb := newLoaded(t, drawProgram(), WithMode(CGB))
		assert.Error(t, cgb.LoadState(saved))
	})
}
