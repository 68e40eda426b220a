package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/gbcore/gbcore/addr"
)

func TestCPUState(t *testing.T) {
	// EI; HALT; NOP with a handler at 0x40 doing INC B; RETI. Saving right
	// after EI keeps the delayed enable, after HALT the halt bug latch.
	program := []byte{0xFB, 0x76, 0x00}
	setup := func() (*CPU, *flatBus) {
		cpu, bus := newTestCPU(program...)
		bus.mem[0x40] = 0x04
		bus.mem[0x41] = 0xD9
		bus.mem[addr.IE] = 0x01
		bus.mem[addr.IF] = 0x01
		return cpu, bus
	}

	for saveAfter := 1; saveAfter <= 3; saveAfter++ {
		cpu, bus := setup()
		for range saveAfter {
			step(t, cpu)
		}
		data, err := cpu.MarshalBinary()
		require.NoError(t, err)

		rbus := &flatBus{}
		restored := New(rbus)
		rbus.mem = bus.mem
		require.NoError(t, restored.UnmarshalBinary(data))
		assert.Equal(t, cpu.Registers(), restored.Registers())
		assert.Equal(t, cpu.GetCycles(), restored.GetCycles())

		var want, got []uint16
		for range 4 {
			step(t, cpu)
			step(t, restored)
			want = append(want, cpu.GetPC())
			got = append(got, restored.GetPC())
		}
		assert.Empty(t, cmp.Diff(want, got), "saved after %d steps", saveAfter)
	}

	t.Run("short data", func(t *testing.T) {
		cpu, _ := newTestCPU()
		assert.Error(t, cpu.UnmarshalBinary([]byte{1, 2, 3}))
	})
}

func TestSetRegisters(t *testing.T) {
	cpu, _ := newTestCPU()
	r := Registers{A: 0x12, F: 0xFF, B: 1, C: 2, D: 3, E: 4, H: 5, L: 6, SP: 0xD000, PC: 0x0150, IME: true, Halted: true}
	cpu.SetRegisters(r)

	r.F = 0xF0
	assert.Equal(t, r, cpu.Registers())

	cpu.SetStopped()
	assert.True(t, cpu.Stopped())
	assert.True(t, cpu.Halted())
}
