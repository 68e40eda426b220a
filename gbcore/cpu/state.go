package cpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type cpuState struct {
	AF, BC, DE, HL uint16
	SP, PC         uint16
	IME            bool
	EIPending      bool
	Halted         bool
	Stopped        bool
	HaltBug        bool
	CurrentOpcode  uint16
	Cycles         uint64
}

// SetRegisters loads the register file, IME and the halted flag from r.
// The low nibble of F is dropped.
func (c *CPU) SetRegisters(r Registers) {
	c.a, c.f = r.A, r.F&0xF0
	c.b, c.c = r.B, r.C
	c.d, c.e = r.D, r.E
	c.h, c.l = r.H, r.L
	c.sp, c.pc = r.SP, r.PC
	c.interruptsEnabled = r.IME
	c.halted = r.Halted
	c.eiPending = false
	c.haltBug = false
}

// SetStopped puts the CPU in the STOP state, which waits like HALT.
func (c *CPU) SetStopped() {
	c.stopped = true
	c.halted = true
}

// MarshalBinary encodes the registers and the pending EI and HALT bug
// latches, which Registers does not expose.
func (c *CPU) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, cpuState{
		AF: c.getAF(), BC: c.getBC(), DE: c.getDE(), HL: c.getHL(),
		SP: c.sp, PC: c.pc,
		IME:           c.interruptsEnabled,
		EIPending:     c.eiPending,
		Halted:        c.halted,
		Stopped:       c.stopped,
		HaltBug:       c.haltBug,
		CurrentOpcode: c.currentOpcode,
		Cycles:        c.cycles,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (c *CPU) UnmarshalBinary(data []byte) error {
	var s cpuState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("cpu state: %w", err)
	}
	c.setAF(s.AF)
	c.setBC(s.BC)
	c.setDE(s.DE)
	c.setHL(s.HL)
	c.sp, c.pc = s.SP, s.PC
	c.interruptsEnabled = s.IME
	c.eiPending = s.EIPending
	c.halted = s.Halted
	c.stopped = s.Stopped
	c.haltBug = s.HaltBug
	c.currentOpcode = s.CurrentOpcode
	c.cycles = s.Cycles
	return nil
}
