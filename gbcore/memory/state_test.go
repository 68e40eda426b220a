package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/internal/testrom"
)

func TestCartridgeState(t *testing.T) {
	tests := []struct {
		name   string
		rom    testrom.ROM
		writes []BankRegister
		bank   int
	}{
		{"MBC1", testrom.ROM{CartType: 0x03, ROMCode: 0x05, RAMCode: 0x03}, []BankRegister{{0x0000, 0x0A}, {0x2000, 0x05}, {0x4000, 0x01}}, 0x25},
		{"MBC2", testrom.ROM{CartType: 0x06, ROMCode: 0x03}, []BankRegister{{0x0000, 0x0A}, {0x2100, 0x09}}, 9},
		{"MBC3", testrom.ROM{CartType: 0x13, ROMCode: 0x06, RAMCode: 0x03}, []BankRegister{{0x0000, 0x0A}, {0x2000, 0x42}, {0x4000, 0x02}}, 0x42},
		{"MBC5", testrom.ROM{CartType: 0x1B, ROMCode: 0x08, RAMCode: 0x04}, []BankRegister{{0x0000, 0x0A}, {0x2000, 0x23}, {0x3000, 0x01}, {0x4000, 0x05}}, 0x123},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := loadCart(t, tt.rom)
			for _, w := range tt.writes {
				cart.Write(w.Address, w.Value)
			}
			cart.Write(0xA010, 0x07)
			require.Equal(t, tt.bank, cart.ROMBank())

			data, err := cart.MarshalBinary()
			require.NoError(t, err)

			t.Run("exact state", func(t *testing.T) {
				other := loadCart(t, tt.rom)
				require.NoError(t, other.UnmarshalBinary(data))
				require.NoError(t, other.LoadRAM(cart.SaveRAM()))
				assert.Equal(t, tt.bank, other.ROMBank())
				assert.Equal(t, cart.Read(0x4000), other.Read(0x4000))
				assert.Equal(t, cart.Read(0xA010), other.Read(0xA010))
			})

			t.Run("bank register replay", func(t *testing.T) {
				other := loadCart(t, tt.rom)
				for _, w := range cart.BankRegisters() {
					other.Write(w.Address, w.Value)
				}
				require.NoError(t, other.LoadRAM(cart.SaveRAM()))
				assert.Equal(t, tt.bank, other.ROMBank())
				assert.Equal(t, cart.Read(0xA010), other.Read(0xA010))
			})
		})
	}

	t.Run("mapper mismatch", func(t *testing.T) {
		data, err := loadCart(t, testrom.ROM{CartType: 0x01}).MarshalBinary()
		require.NoError(t, err)
		assert.Error(t, loadCart(t, testrom.ROM{CartType: 0x19}).UnmarshalBinary(data))
	})

	t.Run("no registers without a mapper", func(t *testing.T) {
		assert.Empty(t, loadCart(t, testrom.ROM{}).BankRegisters())
	})
}

func TestRTCState(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rom := testrom.Build(testrom.ROM{CartType: 0x10, ROMCode: 0x01, RAMCode: 0x03})
	cart, err := LoadCartridge(rom, WithClock(clock))
	require.NoError(t, err)

	clock.now = clock.now.Add(2*time.Hour + 5*time.Second)
	cart.Write(0x6000, 0x00)
	cart.Write(0x6000, 0x01)
	data, err := cart.MarshalBinary()
	require.NoError(t, err)

	// restored a day later, the counter resumes from the saved value
	later := &fakeClock{now: clock.now.Add(24 * time.Hour)}
	other, err := LoadCartridge(rom, WithClock(later))
	require.NoError(t, err)
	require.NoError(t, other.UnmarshalBinary(data))

	other.Write(0x0000, 0x0A)
	other.Write(0x4000, rtcHours)
	assert.Equal(t, uint8(2), other.Read(0xA000), "latched registers survive")

	later.now = later.now.Add(10 * time.Second)
	other.Write(0x6000, 0x00)
	other.Write(0x6000, 0x01)
	other.Write(0x4000, rtcSeconds)
	assert.Equal(t, uint8(15), other.Read(0xA000))
	other.Write(0x4000, rtcDaysLow)
	assert.Equal(t, uint8(0), other.Read(0xA000))
}

func TestMemoryBlocks(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wram, vram int
	}{
		{"DMG", nil, 0x2000, 0x2000},
		{"CGB", []Option{WithCGB()}, 0x8000, 0x4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mmu := New(tt.opts...)
			mmu.Write(0xC001, 0x11)
			mmu.Write(0x8001, 0x22)
			mmu.Write(0xFF81, 0x33)

			wram, vram, hram := mmu.WRAM(), mmu.VRAM(), mmu.HRAM()
			require.Len(t, wram, tt.wram)
			require.Len(t, vram, tt.vram)
			require.Len(t, hram, 0x7F)
			assert.Equal(t, uint8(0x11), wram[1])
			assert.Equal(t, uint8(0x22), vram[1])
			assert.Equal(t, uint8(0x33), hram[1])

			other := New(tt.opts...)
			require.NoError(t, other.SetWRAM(wram))
			require.NoError(t, other.SetVRAM(vram))
			require.NoError(t, other.SetHRAM(hram))
			assert.Equal(t, uint8(0x11), other.Read(0xC001))
			assert.Equal(t, uint8(0x22), other.Read(0x8001))
			assert.Equal(t, uint8(0x33), other.Read(0xFF81))

			assert.ErrorIs(t, other.SetWRAM(wram[1:]), ErrStateSize)
			assert.ErrorIs(t, other.SetVRAM(nil), ErrStateSize)
			assert.ErrorIs(t, other.SetHRAM(make([]byte, 0x80)), ErrStateSize)
			assert.ErrorIs(t, other.SetOAM(make([]byte, 0x10)), ErrStateSize)
		})
	}
}

func TestMMUState(t *testing.T) {
	mmu := New(WithCGB())
	mmu.Write(addr.IE, 0x1F)
	mmu.RequestInterrupt(addr.TimerInterrupt)
	mmu.Write(addr.SVBK, 0x03)
	mmu.Write(addr.VBK, 0x01)
	mmu.HandleKeyPress(JoypadA)
	mmu.Write(addr.P1, 0x10)

	data, err := mmu.MarshalBinary()
	require.NoError(t, err)

	other := New(WithCGB())
	require.NoError(t, other.UnmarshalBinary(data))
	for _, a := range []uint16{addr.IE, addr.IF, addr.SVBK, addr.VBK, addr.P1} {
		assert.Equal(t, mmu.Read(a), other.Read(a), "0x%04X", a)
	}

	assert.Error(t, other.UnmarshalBinary(data[:2]))
}
