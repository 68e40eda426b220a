package cpu

import "fmt"

// Registers is a snapshot of the CPU state, for diagnostics.
type Registers struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
}

// AF returns the combined AF pair.
func (r Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }

// BC returns the combined BC pair.
func (r Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }

// DE returns the combined DE pair.
func (r Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }

// HL returns the combined HL pair.
func (r Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r Registers) String() string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X SP=%04X PC=%04X IME=%t",
		r.AF(), r.BC(), r.DE(), r.HL(), r.SP, r.PC, r.IME)
}

// Registers returns a copy of the register file.
func (c *CPU) Registers() Registers {
	return Registers{
		A: c.a, F: c.f, B: c.b, C: c.c, D: c.d, E: c.e, H: c.h, L: c.l,
		SP:     c.sp,
		PC:     c.pc,
		IME:    c.interruptsEnabled,
		Halted: c.halted,
	}
}
