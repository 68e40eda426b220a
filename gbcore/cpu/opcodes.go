package cpu

import "github.com/valerio/gbcore/gbcore/bit"

// AddressingMode is how an instruction fetches its operand after the opcode.
type AddressingMode uint8

const (
	Implied     AddressingMode = iota // no operand bytes
	Immediate8                        // n
	Immediate16                       // nn, little endian
	Relative8                         // signed e, sign extended to 16 bits
)

// Length returns the instruction length in bytes, opcode included.
func (m AddressingMode) Length() int {
	switch m {
	case Immediate8, Relative8:
		return 2
	case Immediate16:
		return 3
	}
	return 1
}

// Condition gates a conditional branch on a flag.
type Condition uint8

const (
	Always Condition = iota
	NZ
	Z
	NC
	C
)

var branchConditions = [4]Condition{NZ, Z, NC, C}

func (c *CPU) check(cond Condition) bool {
	switch cond {
	case NZ:
		return !c.isSetFlag(zeroFlag)
	case Z:
		return c.isSetFlag(zeroFlag)
	case NC:
		return !c.isSetFlag(carryFlag)
	case C:
		return c.isSetFlag(carryFlag)
	}
	return true
}

// Instruction describes a primary opcode. Cycles is the whole cost of an
// unconditional instruction, or the not taken cost of a conditional one;
// Taken is added when the condition holds.
type Instruction struct {
	Name   string
	Mode   AddressingMode
	Cond   Condition
	Cycles int
	Taken  int

	exec func(c *CPU, operand uint16)
}

// Valid reports whether the opcode is defined.
func (i Instruction) Valid() bool { return i.exec != nil }

// Length returns the instruction length in bytes.
func (i Instruction) Length() int { return i.Mode.Length() }

var instructions [256]Instruction

// Lookup returns the descriptor of a primary opcode. 0xCB and the unused
// opcodes are not Valid.
func Lookup(op uint8) Instruction { return instructions[op] }

// execute fetches the operand, evaluates the condition and runs in.
func (c *CPU) execute(in *Instruction) int {
	var operand uint16
	switch in.Mode {
	case Immediate8:
		operand = uint16(c.readImmediate())
	case Immediate16:
		operand = c.readImmediateWord()
	case Relative8:
		operand = uint16(int16(c.readSignedImmediate()))
	}

	if !c.check(in.Cond) {
		return in.Cycles
	}
	in.exec(c, operand)
	return in.Cycles + in.Taken
}

func define(op uint8, mode AddressingMode, cycles int, exec func(*CPU, uint16)) {
	instructions[op] = Instruction{Mode: mode, Cycles: cycles, exec: exec}
}

func defineBranch(op uint8, mode AddressingMode, cond Condition, cycles, taken int, exec func(*CPU, uint16)) {
	instructions[op] = Instruction{Mode: mode, Cond: cond, Cycles: cycles, Taken: taken, exec: exec}
}

// registerPair is a 16 bit operand selected by bits 5-4 of the opcode.
type registerPair struct {
	get func(*CPU) uint16
	set func(*CPU, uint16)
}

var (
	bc = registerPair{(*CPU).getBC, (*CPU).setBC}
	de = registerPair{(*CPU).getDE, (*CPU).setDE}
	hl = registerPair{(*CPU).getHL, (*CPU).setHL}
	sp = registerPair{
		func(c *CPU) uint16 { return c.sp },
		func(c *CPU, v uint16) { c.sp = v },
	}
	af = registerPair{(*CPU).getAF, (*CPU).setAF}

	// pairs used by LD rr,nn, INC, DEC and ADD HL; the stack uses AF for SP
	dataPairs  = [4]registerPair{bc, de, hl, sp}
	stackPairs = [4]registerPair{bc, de, hl, af}
)

var aluOps = [8]func(*CPU, uint8){
	(*CPU).addToA, (*CPU).adc, (*CPU).sub, (*CPU).sbc,
	(*CPU).and, (*CPU).xor, (*CPU).or, (*CPU).cp,
}

// load8 and store8 read and write the 8 bit operand at index, going through
// memory at HL for index 6.
func (c *CPU) load8(index uint8) uint8 {
	if index == 6 {
		return c.bus.Read(c.getHL())
	}
	return *c.register(index)
}

func (c *CPU) store8(index uint8, value uint8) {
	if index == 6 {
		c.bus.Write(c.getHL(), value)
		return
	}
	*c.register(index) = value
}

// modify8 applies fn to the operand at index in place.
func (c *CPU) modify8(index uint8, fn func(*CPU, *uint8)) {
	value := c.load8(index)
	fn(c, &value)
	c.store8(index, value)
}

// memoryCost is the extra cost of an (HL) operand.
func memoryCost(index uint8, extra int) int {
	if index == 6 {
		return extra
	}
	return 0
}

func init() {
	defineRegularBlocks()
	defineIrregular()

	for op := range instructions {
		instructions[op].Name = opcodeNames[op]
	}
}

// defineRegularBlocks fills the opcode groups whose operands are encoded in
// the opcode bits: y is bits 5-3, z bits 2-0 and p bits 5-4.
func defineRegularBlocks() {
	for y := uint8(0); y < 8; y++ {
		// INC r, DEC r, LD r,n
		define(0x04|y<<3, Implied, 4+memoryCost(y, 8), func(c *CPU, _ uint16) { c.modify8(y, (*CPU).inc) })
		define(0x05|y<<3, Implied, 4+memoryCost(y, 8), func(c *CPU, _ uint16) { c.modify8(y, (*CPU).dec) })
		define(0x06|y<<3, Immediate8, 8+memoryCost(y, 4), func(c *CPU, n uint16) { c.store8(y, uint8(n)) })

		// LD r,r' (0x76 would be LD (HL),(HL) and is HALT instead)
		for z := uint8(0); z < 8; z++ {
			if y == 6 && z == 6 {
				continue
			}
			define(0x40|y<<3|z, Implied, 4+memoryCost(y, 4)+memoryCost(z, 4), func(c *CPU, _ uint16) {
				c.store8(y, c.load8(z))
			})
		}

		// ALU A,r and ALU A,n
		op := aluOps[y]
		for z := uint8(0); z < 8; z++ {
			define(0x80|y<<3|z, Implied, 4+memoryCost(z, 4), func(c *CPU, _ uint16) { op(c, c.load8(z)) })
		}
		define(0xC6|y<<3, Immediate8, 8, func(c *CPU, n uint16) { op(c, uint8(n)) })

		vector := uint16(y) * 8
		define(0xC7|y<<3, Implied, 16, func(c *CPU, _ uint16) {
			c.pushStack(c.pc)
			c.pc = vector
		})
	}

	for p := uint8(0); p < 4; p++ {
		rp, stack := dataPairs[p], stackPairs[p]

		define(0x01|p<<4, Immediate16, 12, func(c *CPU, nn uint16) { rp.set(c, nn) })
		define(0x03|p<<4, Implied, 8, func(c *CPU, _ uint16) { rp.set(c, rp.get(c)+1) })
		define(0x0B|p<<4, Implied, 8, func(c *CPU, _ uint16) { rp.set(c, rp.get(c)-1) })
		define(0x09|p<<4, Implied, 8, func(c *CPU, _ uint16) { c.addToHL(rp.get(c)) })

		define(0xC1|p<<4, Implied, 12, func(c *CPU, _ uint16) { stack.set(c, c.popStack()) })
		define(0xC5|p<<4, Implied, 16, func(c *CPU, _ uint16) { c.pushStack(stack.get(c)) })
	}

	// JR, RET, JP and CALL, unconditional first
	defineBranch(0x18, Relative8, Always, 12, 0, jumpRelative)
	defineBranch(0xC9, Implied, Always, 16, 0, ret)
	defineBranch(0xC3, Immediate16, Always, 16, 0, jump)
	defineBranch(0xCD, Immediate16, Always, 24, 0, call)
	for i, cond := range branchConditions {
		y := uint8(i) << 3
		defineBranch(0x20|y, Relative8, cond, 8, 4, jumpRelative)
		defineBranch(0xC0|y, Implied, cond, 8, 12, ret)
		defineBranch(0xC2|y, Immediate16, cond, 12, 4, jump)
		defineBranch(0xC4|y, Immediate16, cond, 12, 12, call)
	}
}

func jumpRelative(c *CPU, e uint16) { c.pc += e }
func jump(c *CPU, nn uint16)        { c.pc = nn }
func ret(c *CPU, _ uint16)          { c.pc = c.popStack() }

func call(c *CPU, nn uint16) {
	c.pushStack(c.pc)
	c.pc = nn
}

// defineIrregular fills the opcodes that do not fit a block.
func defineIrregular() {
	define(0x00, Implied, 4, func(*CPU, uint16) {})
	define(0x10, Immediate8, 4, func(c *CPU, _ uint16) { c.stop() })
	define(0x76, Implied, 4, func(c *CPU, _ uint16) { c.halt() })
	define(0xF3, Implied, 4, func(c *CPU, _ uint16) {
		c.interruptsEnabled = false
		c.eiPending = false
	})
	define(0xFB, Implied, 4, func(c *CPU, _ uint16) { c.eiPending = true })
	define(0xD9, Implied, 16, func(c *CPU, _ uint16) {
		c.pc = c.popStack()
		c.interruptsEnabled = true
	})

	// accumulator rotates always clear Z
	for i, rotate := range []func(*CPU, *uint8){(*CPU).rlc, (*CPU).rrc, (*CPU).rl, (*CPU).rr} {
		define(0x07|uint8(i)<<3, Implied, 4, func(c *CPU, _ uint16) {
			rotate(c, &c.a)
			c.resetFlag(zeroFlag)
		})
	}
	define(0x27, Implied, 4, func(c *CPU, _ uint16) { c.daa() })
	define(0x2F, Implied, 4, func(c *CPU, _ uint16) { c.cpl() })
	define(0x37, Implied, 4, func(c *CPU, _ uint16) { c.scf() })
	define(0x3F, Implied, 4, func(c *CPU, _ uint16) { c.ccf() })

	// indirect loads through BC, DE and HL with post increment or decrement
	indirect := [4]func(*CPU) uint16{
		(*CPU).getBC,
		(*CPU).getDE,
		func(c *CPU) uint16 { a := c.getHL(); c.setHL(a + 1); return a },
		func(c *CPU) uint16 { a := c.getHL(); c.setHL(a - 1); return a },
	}
	for p, address := range indirect {
		define(0x02|uint8(p)<<4, Implied, 8, func(c *CPU, _ uint16) { c.bus.Write(address(c), c.a) })
		define(0x0A|uint8(p)<<4, Implied, 8, func(c *CPU, _ uint16) { c.a = c.bus.Read(address(c)) })
	}

	define(0x08, Immediate16, 20, func(c *CPU, nn uint16) {
		c.bus.Write(nn, bit.Low(c.sp))
		c.bus.Write(nn+1, bit.High(c.sp))
	})

	// high page and absolute accesses to A
	define(0xE0, Immediate8, 12, func(c *CPU, n uint16) { c.bus.Write(0xFF00+n, c.a) })
	define(0xF0, Immediate8, 12, func(c *CPU, n uint16) { c.a = c.bus.Read(0xFF00 + n) })
	define(0xE2, Implied, 8, func(c *CPU, _ uint16) { c.bus.Write(0xFF00+uint16(c.c), c.a) })
	define(0xF2, Implied, 8, func(c *CPU, _ uint16) { c.a = c.bus.Read(0xFF00 + uint16(c.c)) })
	define(0xEA, Immediate16, 16, func(c *CPU, nn uint16) { c.bus.Write(nn, c.a) })
	define(0xFA, Immediate16, 16, func(c *CPU, nn uint16) { c.a = c.bus.Read(nn) })

	define(0xE8, Relative8, 16, func(c *CPU, e uint16) { c.sp = c.spPlusOffset(int8(e)) })
	define(0xF8, Relative8, 12, func(c *CPU, e uint16) { c.setHL(c.spPlusOffset(int8(e))) })
	define(0xF9, Implied, 8, func(c *CPU, _ uint16) { c.sp = c.getHL() })
	define(0xE9, Implied, 4, func(c *CPU, _ uint16) { c.pc = c.getHL() })
}
