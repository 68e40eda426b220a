package video

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/gbcore/gbcore/addr"
)

func TestPPUState(t *testing.T) {
	p, mem := newTestPPU()
	for i := range 16 {
		mem.vram[i] = 0xFF
	}
	p.Write(addr.BGP, 0xE4)
	p.Write(addr.SCX, 0x03)
	p.Write(addr.STAT, 0x40)
	p.Write(addr.LYC, 0x20)
	p.Write(addr.LCDC, 0x91)
	p.Tick(FrameCycles + 30*scanlineCycles + 100)

	data, err := p.MarshalBinary()
	require.NoError(t, err)

	restored, rmem := newTestPPU()
	rmem.vram = mem.vram
	require.NoError(t, restored.UnmarshalBinary(data))

	assert.Equal(t, p.Mode(), restored.Mode())
	assert.Equal(t, p.LY(), restored.LY())
	assert.Equal(t, p.Dots(), restored.Dots())
	assert.Equal(t, p.Frames(), restored.Frames())
	for a := addr.LCDC; a <= addr.WX; a++ {
		assert.Equal(t, p.Read(a), restored.Read(a), "0x%04X", a)
	}

	p.Tick(FrameCycles)
	restored.Tick(FrameCycles)
	assert.Empty(t, cmp.Diff(p.FrameBuffer().ToSlice(), restored.FrameBuffer().ToSlice()))
	assert.Equal(t, mem.count(addr.LCDSTATInterrupt), 1+rmem.count(addr.LCDSTATInterrupt),
		"the restored unit raises the same STAT interrupts after the save point")

	t.Run("position out of range", func(t *testing.T) {
		other, _ := newTestPPU()
		other.ly = linesPerFrame
		bad, err := other.MarshalBinary()
		require.NoError(t, err)
		assert.Error(t, restored.UnmarshalBinary(bad))
		assert.Error(t, restored.UnmarshalBinary(bad[:10]))
	})
}
