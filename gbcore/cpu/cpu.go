package cpu

import (
	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
)

// Bus is the CPU's view of the address space.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// Flag is one of the 4 possible flags used in the flag register (high part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

const (
	baseInterruptAddress uint16 = 0x40

	// InterruptDispatchCycles is the cost of pushing PC and jumping to a vector.
	InterruptDispatchCycles = 20
	// HaltCycles is the cost of one idle step while halted.
	HaltCycles = 4
)

// BootState holds the register values left behind by a boot ROM.
type BootState struct {
	AF, BC, DE, HL uint16
}

var (
	DMGBootState = BootState{AF: 0x01B0, BC: 0x0013, DE: 0x00D8, HL: 0x014D}
	CGBBootState = BootState{AF: 0x1180, BC: 0x0000, DE: 0xFF56, HL: 0x000D}
	SGBBootState = BootState{AF: 0x0100, BC: 0x0014, DE: 0x0000, HL: 0xC060}
)

// CPU is the main struct holding LR35902 state
type CPU struct {
	// registers
	a  uint8
	f  uint8
	b  uint8
	c  uint8
	d  uint8
	e  uint8
	h  uint8
	l  uint8
	sp uint16
	pc uint16

	// metadata
	interruptsEnabled bool
	eiPending         bool // EI delay: interrupts enable after the next instruction
	currentOpcode     uint16
	cycles            uint64
	halted            bool
	stopped           bool

	// haltBug makes the next opcode fetch leave PC where it is, so the
	// byte after HALT is read twice.
	haltBug bool

	bus Bus
}

// Option configures a CPU.
type Option func(*CPU)

// WithBootState sets the registers as a specific boot ROM leaves them.
func WithBootState(s BootState) Option {
	return func(c *CPU) {
		c.setAF(s.AF)
		c.setBC(s.BC)
		c.setDE(s.DE)
		c.setHL(s.HL)
	}
}

// initializeMemory writes the I/O register values the DMG boot ROM leaves
// behind. NR52 goes first: the APU ignores its other registers while off.
func initializeMemory(bus Bus) {
	bus.Write(addr.NR52, 0xF1)

	bus.Write(addr.P1, 0xCF)
	bus.Write(addr.TIMA, 0x00)
	bus.Write(addr.TMA, 0x00)
	bus.Write(addr.TAC, 0x00)
	bus.Write(addr.LCDC, 0x91)
	bus.Write(addr.SCY, 0x00)
	bus.Write(addr.SCX, 0x00)
	bus.Write(addr.LYC, 0x00)
	bus.Write(addr.BGP, 0xFC)
	bus.Write(addr.OBP0, 0xFF)
	bus.Write(addr.OBP1, 0xFF)
	bus.Write(addr.WY, 0x00)
	bus.Write(addr.WX, 0x00)
	bus.Write(addr.IE, 0x00)

	bus.Write(addr.NR10, 0x80)
	bus.Write(addr.NR11, 0xBF)
	bus.Write(addr.NR12, 0xF3)
	bus.Write(addr.NR14, 0xBF)
	bus.Write(addr.NR21, 0x3F)
	bus.Write(addr.NR22, 0x00)
	bus.Write(addr.NR24, 0xBF)
	bus.Write(addr.NR30, 0x7F)
	bus.Write(addr.NR31, 0xFF)
	bus.Write(addr.NR32, 0x9F)
	bus.Write(addr.NR34, 0xBF)
	bus.Write(addr.NR41, 0xFF)
	bus.Write(addr.NR42, 0x00)
	bus.Write(addr.NR43, 0x00)
	bus.Write(addr.NR44, 0xBF)
	bus.Write(addr.NR50, 0x77)
	bus.Write(addr.NR51, 0xF3)
}

// New returns a CPU in the state the boot ROM hands over to a cartridge,
// with PC at the 0x0100 entry point. It writes the post-boot I/O register
// values through bus, so every device must already be mapped.
func New(bus Bus, opts ...Option) *CPU {
	initializeMemory(bus)

	cpu := &CPU{
		bus: bus,
	}

	cpu.setAF(DMGBootState.AF)
	cpu.setBC(DMGBootState.BC)
	cpu.setDE(DMGBootState.DE)
	cpu.setHL(DMGBootState.HL)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100

	for _, opt := range opts {
		opt(cpu)
	}

	return cpu
}

// Exec runs one CPU step: an interrupt dispatch, one idle machine cycle while
// halted, or a single instruction. It returns the master cycles the step took.
// An unused opcode leaves PC on the opcode and returns *InvalidOpcodeError.
func (c *CPU) Exec() (int, error) {
	pending := c.pendingInterrupts()

	if c.halted {
		if pending == 0 {
			c.cycles += HaltCycles
			return HaltCycles, nil
		}
		// waking never triggers the HALT bug, only executing HALT does
		c.halted = false
		c.stopped = false
	}

	if c.interruptsEnabled && pending != 0 {
		c.dispatchInterrupt(pending)
		c.cycles += InterruptDispatchCycles
		return InterruptDispatchCycles, nil
	}

	opcodePC := c.pc
	opcode := c.bus.Read(c.pc)
	if c.haltBug {
		c.haltBug = false
	} else {
		c.pc++
	}

	enableAfter := c.eiPending
	var cycles int
	if opcode == 0xCB {
		cb := c.readImmediate()
		c.currentOpcode = bit.Combine(0xCB, cb)
		cycles = opcodesCB[cb](c)
	} else {
		c.currentOpcode = uint16(opcode)
		in := &instructions[opcode]
		if !in.Valid() {
			c.pc = opcodePC
			return 0, &InvalidOpcodeError{Opcode: opcode, PC: opcodePC}
		}
		cycles = c.execute(in)
	}
	c.cycles += uint64(cycles)

	// EI sets eiPending; it only lands once the instruction after it is done,
	// unless that instruction was DI.
	if enableAfter && c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	return cycles, nil
}

func (c *CPU) pendingInterrupts() uint8 {
	return c.bus.Read(addr.IE) & c.bus.Read(addr.IF) & uint8(addr.InterruptMask)
}

// dispatchInterrupt serves the highest priority pending interrupt.
func (c *CPU) dispatchInterrupt(pending uint8) {
	// priority order follows bit order, VBlank (bit 0) first
	for i := uint8(0); i < 5; i++ {
		if !bit.IsSet(i, pending) {
			continue
		}

		// interrupt handlers are offset by 8
		// 0x40 - 0x48 - 0x50 - 0x58 - 0x60
		address := uint16(i)*8 + baseInterruptAddress

		flags := c.bus.Read(addr.IF)
		c.bus.Write(addr.IF, bit.Clear(i, flags))

		c.interruptsEnabled = false
		ret := c.pc
		if c.haltBug {
			// EI; HALT with an interrupt pending: the handler returns to
			// the HALT itself
			ret--
			c.haltBug = false
		}
		c.pushStack(ret)
		c.pc = address
		return
	}
}

// halt implements HALT. With IME clear and an interrupt already pending the
// CPU does not stop, and the next fetch repeats the following byte.
func (c *CPU) halt() {
	if !c.interruptsEnabled && c.pendingInterrupts() != 0 {
		c.haltBug = true
		return
	}
	c.halted = true
}

// stop implements STOP: DIV is reset and the CPU waits for an interrupt
// like HALT. The padding byte is fetched as the operand.
func (c *CPU) stop() {
	c.bus.Write(addr.DIV, 0)
	c.stopped = true
	c.halted = true
}

// peekImmediate returns the byte at the memory address pointed by the PC
// this value is known as immediate ('n' in mnemonics), some opcodes use it as a parameter
func (c *CPU) peekImmediate() uint8 {
	return c.bus.Read(c.pc)
}

// readImmediate acts similarly as its peek counterpart, but increments the PC once after reading
func (c *CPU) readImmediate() uint8 {
	n := c.peekImmediate()
	c.pc++
	return n
}

// readImmediateWord reads a little endian word at PC and advances PC past it.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// readSignedImmediate reads the byte at PC as a signed offset.
func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &= uint8(flag ^ 0xFF)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

// flagToBit will return 1 if the passed flag is set, 0 otherwise
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}

	return 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if !condition {
		c.resetFlag(flag)
		return
	}

	c.setFlag(flag)
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) getBC() uint16 {
	return bit.Combine(c.b, c.c)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) getDE() uint16 {
	return bit.Combine(c.d, c.e)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

func (c *CPU) getHL() uint16 {
	return bit.Combine(c.h, c.l)
}

func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	// F register lower 4 bits must be 0
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getAF() uint16 {
	return bit.Combine(c.a, c.f)
}

// Debug getter methods for register display
func (c *CPU) GetA() uint8       { return c.a }
func (c *CPU) GetF() uint8       { return c.f }
func (c *CPU) GetB() uint8       { return c.b }
func (c *CPU) GetC() uint8       { return c.c }
func (c *CPU) GetD() uint8       { return c.d }
func (c *CPU) GetE() uint8       { return c.e }
func (c *CPU) GetH() uint8       { return c.h }
func (c *CPU) GetL() uint8       { return c.l }
func (c *CPU) GetSP() uint16     { return c.sp }
func (c *CPU) GetPC() uint16     { return c.pc }
func (c *CPU) GetCycles() uint64 { return c.cycles }

// Interrupt state getters
func (c *CPU) IME() bool     { return c.interruptsEnabled }
func (c *CPU) Halted() bool  { return c.halted }
func (c *CPU) Stopped() bool { return c.stopped }

// CurrentOpcode returns the last fetched opcode, 0xCBxx for prefixed ones.
func (c *CPU) CurrentOpcode() uint16 { return c.currentOpcode }

// GetFlagString returns a human-readable representation of the flag register
func (c *CPU) GetFlagString() string {
	flags := []byte("----")
	for i, f := range []struct {
		flag Flag
		name byte
	}{{zeroFlag, 'Z'}, {subFlag, 'N'}, {halfCarryFlag, 'H'}, {carryFlag, 'C'}} {
		if c.isSetFlag(f.flag) {
			flags[i] = f.name
		}
	}
	return string(flags)
}
