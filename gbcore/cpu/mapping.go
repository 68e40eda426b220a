package cpu

import (
	"fmt"

	"github.com/valerio/gbcore/gbcore/bit"
)

// Opcode represents a function that executes an opcode and returns its cycles
type Opcode func(*CPU) int

var opcodesCB [256]Opcode

var cbRotations = [8]struct {
	name  string
	apply func(*CPU, *uint8)
}{
	{"RLC", (*CPU).rlc},
	{"RRC", (*CPU).rrc},
	{"RL", (*CPU).rl},
	{"RR", (*CPU).rr},
	{"SLA", (*CPU).sla},
	{"SRA", (*CPU).sra},
	{"SWAP", (*CPU).swap},
	{"SRL", (*CPU).srl},
}

var registerNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// The 0xCB table is fully regular: bits 2-0 pick the operand, bits 5-3 the
// rotation or bit index, bits 7-6 the operation group.
func init() {
	for op := 0; op < 256; op++ {
		reg := uint8(op & 0x07)
		y := uint8(op>>3) & 0x07

		switch op >> 6 {
		case 0:
			opcodesCB[op] = cbModify(reg, cbRotations[y].apply)
			opcodeNamesCB[op] = fmt.Sprintf("%s %s", cbRotations[y].name, registerNames[reg])
		case 1:
			opcodesCB[op] = cbBit(reg, y)
			opcodeNamesCB[op] = fmt.Sprintf("BIT %d, %s", y, registerNames[reg])
		case 2:
			opcodesCB[op] = cbModify(reg, func(_ *CPU, r *uint8) { *r = bit.Clear(y, *r) })
			opcodeNamesCB[op] = fmt.Sprintf("RES %d, %s", y, registerNames[reg])
		case 3:
			opcodesCB[op] = cbModify(reg, func(_ *CPU, r *uint8) { *r = bit.Set(y, *r) })
			opcodeNamesCB[op] = fmt.Sprintf("SET %d, %s", y, registerNames[reg])
		}
	}
}

// register returns the 8 bit register encoded by index. Index 6 is (HL) and
// has no register behind it.
func (c *CPU) register(index uint8) *uint8 {
	switch index {
	case 0:
		return &c.b
	case 1:
		return &c.c
	case 2:
		return &c.d
	case 3:
		return &c.e
	case 4:
		return &c.h
	case 5:
		return &c.l
	case 7:
		return &c.a
	}
	panic(fmt.Sprintf("cpu: no register with index %d", index))
}

func cbModify(reg uint8, apply func(*CPU, *uint8)) Opcode {
	if reg == 6 {
		return func(c *CPU) int {
			hl := c.getHL()
			value := c.bus.Read(hl)
			apply(c, &value)
			c.bus.Write(hl, value)
			return 16
		}
	}
	return func(c *CPU) int {
		apply(c, c.register(reg))
		return 8
	}
}

func cbBit(reg, index uint8) Opcode {
	if reg == 6 {
		return func(c *CPU) int {
			c.bit(index, c.bus.Read(c.getHL()))
			return 12
		}
	}
	return func(c *CPU) int {
		c.bit(index, *c.register(reg))
		return 8
	}
}

// OpcodeName returns the mnemonic of op, from the 0xCB table when cb is set.
func OpcodeName(op uint8, cb bool) string {
	if cb {
		return opcodeNamesCB[op]
	}
	return opcodeNames[op]
}

// Disassemble returns the instruction at address with its raw operand bytes.
func Disassemble(bus Bus, address uint16) string {
	code := bus.Read(address)

	// 0xCB is only ever used as a prefix for the next byte.
	if code == 0xCB {
		code = bus.Read(address + 1)
		return fmt.Sprintf("%04X: CB %02X %s", address, code, opcodeNamesCB[code])
	}

	n := bus.Read(address + 1)
	nn := bit.Combine(bus.Read(address+2), n)
	return fmt.Sprintf("%04X: %02X %s n=0x%02X nn=0x%04X", address, code, opcodeNames[code], n, nn)
}

var opcodeNamesCB [256]string

var opcodeNames = [256]string{
	"NOP", "LD BC, nn", "LD (BC), A", "INC BC", "INC B", "DEC B", "LD B, n", "RLCA",
	"LD (nn), SP", "ADD HL, BC", "LD A, (BC)", "DEC BC", "INC C", "DEC C", "LD C, n", "RRCA",
	"STOP", "LD DE, nn", "LD (DE), A", "INC DE", "INC D", "DEC D", "LD D, n", "RLA",
	"JR n", "ADD HL, DE", "LD A, (DE)", "DEC DE", "INC E", "DEC E", "LD E, n", "RRA",
	"JR NZ, n", "LD HL, nn", "LDI (HL), A", "INC HL", "INC H", "DEC H", "LD H, n", "DAA",
	"JR Z, n", "ADD HL, HL", "LDI A, (HL)", "DEC HL", "INC L", "DEC L", "LD L, n", "CPL",
	"JR NC, n", "LD SP, nn", "LDD (HL), A", "INC SP", "INC (HL)", "DEC (HL)", "LD (HL), n", "SCF",
	"JR C, n", "ADD HL, SP", "LDD A, (HL)", "DEC SP", "INC A", "DEC A", "LD A, n", "CCF",
	"LD B, B", "LD B, C", "LD B, D", "LD B, E", "LD B, H", "LD B, L", "LD B, (HL)", "LD B, A",
	"LD C, B", "LD C, C", "LD C, D", "LD C, E", "LD C, H", "LD C, L", "LD C, (HL)", "LD C, A",
	"LD D, B", "LD D, C", "LD D, D", "LD D, E", "LD D, H", "LD D, L", "LD D, (HL)", "LD D, A",
	"LD E, B", "LD E, C", "LD E, D", "LD E, E", "LD E, H", "LD E, L", "LD E, (HL)", "LD E, A",
	"LD H, B", "LD H, C", "LD H, D", "LD H, E", "LD H, H", "LD H, L", "LD H, (HL)", "LD H, A",
	"LD L, B", "LD L, C", "LD L, D", "LD L, E", "LD L, H", "LD L, L", "LD L, (HL)", "LD L, A",
	"LD (HL), B", "LD (HL), C", "LD (HL), D", "LD (HL), E", "LD (HL), H", "LD (HL), L", "HALT", "LD (HL), A",
	"LD A, B", "LD A, C", "LD A, D", "LD A, E", "LD A, H", "LD A, L", "LD A, (HL)", "LD A, A",
	"ADD A, B", "ADD A, C", "ADD A, D", "ADD A, E", "ADD A, H", "ADD A, L", "ADD A, (HL)", "ADD A, A",
	"ADC A, B", "ADC A, C", "ADC A, D", "ADC A, E", "ADC A, H", "ADC A, L", "ADC A, (HL)", "ADC A, A",
	"SUB B", "SUB C", "SUB D", "SUB E", "SUB H", "SUB L", "SUB (HL)", "SUB A",
	"SBC A, B", "SBC A, C", "SBC A, D", "SBC A, E", "SBC A, H", "SBC A, L", "SBC A, (HL)", "SBC A, A",
	"AND B", "AND C", "AND D", "AND E", "AND H", "AND L", "AND (HL)", "AND A",
	"XOR B", "XOR C", "XOR D", "XOR E", "XOR H", "XOR L", "XOR (HL)", "XOR A",
	"OR B", "OR C", "OR D", "OR E", "OR H", "OR L", "OR (HL)", "OR A",
	"CP B", "CP C", "CP D", "CP E", "CP H", "CP L", "CP (HL)", "CP A",
	"RET NZ", "POP BC", "JP NZ, nn", "JP nn", "CALL NZ, nn", "PUSH BC", "ADD A, n", "RST 0x00",
	"RET Z", "RET", "JP Z, nn", "PREFIX CB", "CALL Z, nn", "CALL nn", "ADC A, n", "RST 0x08",
	"RET NC", "POP DE", "JP NC, nn", "-", "CALL NC, nn", "PUSH DE", "SUB n", "RST 0x10",
	"RET C", "RETI", "JP C, nn", "-", "CALL C, nn", "-", "SBC A, n", "RST 0x18",
	"LDH (n), A", "POP HL", "LD (C), A", "-", "-", "PUSH HL", "AND n", "RST 0x20",
	"ADD SP, n", "JP (HL)", "LD (nn), A", "-", "-", "-", "XOR n", "RST 0x28",
	"LDH A, (n)", "POP AF", "LD A, (C)", "DI", "-", "PUSH AF", "OR n", "RST 0x30",
	"LD HL, SP+n", "LD SP, HL", "LD A, (nn)", "EI", "-", "-", "CP n", "RST 0x38",
}
