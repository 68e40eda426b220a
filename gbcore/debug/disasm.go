package debug

import (
	"fmt"

	"github.com/valerio/gbcore/gbcore/bit"
	"github.com/valerio/gbcore/gbcore/cpu"
)

// Reader is the memory a disassembler walks.
type Reader interface {
	Read(address uint16) byte
}

// Line is a single disassembled instruction.
type Line struct {
	Address     uint16
	Instruction string
	Length      int
}

func (l Line) String() string {
	return fmt.Sprintf("0x%04X: %s", l.Address, l.Instruction)
}

const invalid = "INVALID"

var (
	registerNames = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	aluNames      = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
	cbShiftNames  = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SWAP", "SRL"}

	// templates use %02X for an 8 bit immediate and %04X for a 16 bit one,
	// lengths come from the CPU decode table
	templates = [256]string{
		0x00: "NOP", 0x01: "LD BC,$%04X", 0x02: "LD (BC),A", 0x03: "INC BC",
		0x04: "INC B", 0x05: "DEC B", 0x06: "LD B,$%02X", 0x07: "RLCA",
		0x08: "LD ($%04X),SP", 0x09: "ADD HL,BC", 0x0A: "LD A,(BC)", 0x0B: "DEC BC",
		0x0C: "INC C", 0x0D: "DEC C", 0x0E: "LD C,$%02X", 0x0F: "RRCA",

		0x10: "STOP $%02X", 0x11: "LD DE,$%04X", 0x12: "LD (DE),A", 0x13: "INC DE",
		0x14: "INC D", 0x15: "DEC D", 0x16: "LD D,$%02X", 0x17: "RLA",
		0x18: "JR $%04X", 0x19: "ADD HL,DE", 0x1A: "LD A,(DE)", 0x1B: "DEC DE",
		0x1C: "INC E", 0x1D: "DEC E", 0x1E: "LD E,$%02X", 0x1F: "RRA",

		0x20: "JR NZ,$%04X", 0x21: "LD HL,$%04X", 0x22: "LD (HL+),A", 0x23: "INC HL",
		0x24: "INC H", 0x25: "DEC H", 0x26: "LD H,$%02X", 0x27: "DAA",
		0x28: "JR Z,$%04X", 0x29: "ADD HL,HL", 0x2A: "LD A,(HL+)", 0x2B: "DEC HL",
		0x2C: "INC L", 0x2D: "DEC L", 0x2E: "LD L,$%02X", 0x2F: "CPL",

		0x30: "JR NC,$%04X", 0x31: "LD SP,$%04X", 0x32: "LD (HL-),A", 0x33: "INC SP",
		0x34: "INC (HL)", 0x35: "DEC (HL)", 0x36: "LD (HL),$%02X", 0x37: "SCF",
		0x38: "JR C,$%04X", 0x39: "ADD HL,SP", 0x3A: "LD A,(HL-)", 0x3B: "DEC SP",
		0x3C: "INC A", 0x3D: "DEC A", 0x3E: "LD A,$%02X", 0x3F: "CCF",

		0xC0: "RET NZ", 0xC1: "POP BC", 0xC2: "JP NZ,$%04X", 0xC3: "JP $%04X",
		0xC4: "CALL NZ,$%04X", 0xC5: "PUSH BC", 0xC6: "ADD A,$%02X", 0xC7: "RST $00",
		0xC8: "RET Z", 0xC9: "RET", 0xCA: "JP Z,$%04X", 0xCB: "PREFIX CB",
		0xCC: "CALL Z,$%04X", 0xCD: "CALL $%04X", 0xCE: "ADC A,$%02X", 0xCF: "RST $08",

		0xD0: "RET NC", 0xD1: "POP DE", 0xD2: "JP NC,$%04X", 0xD3: invalid,
		0xD4: "CALL NC,$%04X", 0xD5: "PUSH DE", 0xD6: "SUB $%02X", 0xD7: "RST $10",
		0xD8: "RET C", 0xD9: "RETI", 0xDA: "JP C,$%04X", 0xDB: invalid,
		0xDC: "CALL C,$%04X", 0xDD: invalid, 0xDE: "SBC A,$%02X", 0xDF: "RST $18",

		0xE0: "LDH ($FF%02X),A", 0xE1: "POP HL", 0xE2: "LD ($FF00+C),A", 0xE3: invalid,
		0xE4: invalid, 0xE5: "PUSH HL", 0xE6: "AND $%02X", 0xE7: "RST $20",
		0xE8: "ADD SP,$%02X", 0xE9: "JP HL", 0xEA: "LD ($%04X),A", 0xEB: invalid,
		0xEC: invalid, 0xED: invalid, 0xEE: "XOR $%02X", 0xEF: "RST $28",

		0xF0: "LDH A,($FF%02X)", 0xF1: "POP AF", 0xF2: "LD A,($FF00+C)", 0xF3: "DI",
		0xF4: invalid, 0xF5: "PUSH AF", 0xF6: "OR $%02X", 0xF7: "RST $30",
		0xF8: "LD HL,SP+$%02X", 0xF9: "LD SP,HL", 0xFA: "LD A,($%04X)", 0xFB: "EI",
		0xFC: invalid, 0xFD: invalid, 0xFE: "CP $%02X", 0xFF: "RST $38",
	}

	lengths [256]int
)

func init() {
	for op := 0x40; op < 0x80; op++ {
		templates[op] = "LD " + registerNames[(op>>3)&7] + "," + registerNames[op&7]
	}
	templates[0x76] = "HALT"
	for op := 0x80; op < 0xC0; op++ {
		templates[op] = aluNames[(op>>3)&7] + registerNames[op&7]
	}

	for op := range lengths {
		switch in := cpu.Lookup(uint8(op)); {
		case op == 0xCB:
			lengths[op] = 2
		case in.Valid():
			lengths[op] = in.Length()
		default:
			lengths[op] = 1
		}
	}
}

func isRelativeJump(op uint8) bool {
	return op == 0x18 || op == 0x20 || op == 0x28 || op == 0x30 || op == 0x38
}

func cbInstruction(op uint8) string {
	reg := registerNames[op&7]
	n := (op >> 3) & 7
	switch op >> 6 {
	case 0:
		return cbShiftNames[n] + " " + reg
	case 1:
		return fmt.Sprintf("BIT %d,%s", n, reg)
	case 2:
		return fmt.Sprintf("RES %d,%s", n, reg)
	}
	return fmt.Sprintf("SET %d,%s", n, reg)
}

// Disassemble decodes the instruction at pc. Relative jumps show their
// target address. Operands past 0xFFFF read as zero.
func Disassemble(mem Reader, pc uint16) Line {
	opcode := mem.Read(pc)
	length := lengths[opcode]

	operand := func(offset uint16) byte {
		if uint32(pc)+uint32(offset) > 0xFFFF {
			return 0
		}
		return mem.Read(pc + offset)
	}

	var text string
	switch {
	case opcode == 0xCB:
		text = cbInstruction(operand(1))
	case isRelativeJump(opcode):
		target := pc + 2 + uint16(int8(operand(1)))
		text = fmt.Sprintf(templates[opcode], target)
	case length == 2:
		text = fmt.Sprintf(templates[opcode], operand(1))
	case length == 3:
		text = fmt.Sprintf(templates[opcode], bit.Combine(operand(2), operand(1)))
	default:
		text = templates[opcode]
	}

	return Line{Address: pc, Instruction: text, Length: length}
}

// DisassembleRange decodes up to count instructions starting at pc, stopping
// at the end of the address space.
func DisassembleRange(mem Reader, pc uint16, count int) []Line {
	lines := make([]Line, 0, count)
	addr := uint32(pc)
	for i := 0; i < count && addr <= 0xFFFF; i++ {
		line := Disassemble(mem, uint16(addr))
		lines = append(lines, line)
		addr += uint32(line.Length)
	}
	return lines
}
