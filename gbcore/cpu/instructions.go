package cpu

import "github.com/valerio/gbcore/gbcore/bit"

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	*r++
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, value&0xF == 0xF)
	c.setFlag(subFlag)
}

// shiftFlags sets the flags shared by every rotate and shift: Z from the
// result, N and H cleared, C from the bit shifted out.
func (c *CPU) shiftFlags(result uint8, carry bool) {
	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) rlc(r *uint8) {
	value := *r
	*r = value<<1 | value>>7
	c.shiftFlags(*r, value > 0x7F)
}

func (c *CPU) rl(r *uint8) {
	value := *r
	*r = value<<1 | c.flagToBit(carryFlag)
	c.shiftFlags(*r, value > 0x7F)
}

func (c *CPU) rrc(r *uint8) {
	value := *r
	*r = value>>1 | value<<7
	c.shiftFlags(*r, value&1 == 1)
}

func (c *CPU) rr(r *uint8) {
	value := *r
	*r = value>>1 | c.flagToBit(carryFlag)<<7
	c.shiftFlags(*r, value&1 == 1)
}

func (c *CPU) sla(r *uint8) {
	value := *r
	*r = value << 1
	c.shiftFlags(*r, value > 0x7F)
}

// sra keeps bit 7 in place.
func (c *CPU) sra(r *uint8) {
	value := *r
	*r = value>>1 | value&0x80
	c.shiftFlags(*r, value&1 == 1)
}

func (c *CPU) srl(r *uint8) {
	value := *r
	*r = value >> 1
	c.shiftFlags(*r, value&1 == 1)
}

func (c *CPU) swap(r *uint8) {
	*r = *r<<4 | *r>>4
	c.shiftFlags(*r, false)
}

// bit tests bit b of value, leaving C untouched.
func (c *CPU) bit(b uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(b, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// addToA sets the result of adding value to A, while setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	c.adcToA(value, 0)
}

// adc adds value and the carry flag to A.
func (c *CPU) adc(value uint8) {
	c.adcToA(value, c.flagToBit(carryFlag))
}

func (c *CPU) adcToA(value, carry uint8) {
	a := c.a
	sum := uint16(a) + uint16(value) + uint16(carry)
	c.a = uint8(sum)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, bit.HalfCarryAdd(a, value, carry))
	c.setFlagToCondition(carryFlag, sum > 0xFF)
}

// sub will subtract the value from register A and set all relevant flags.
func (c *CPU) sub(value uint8) {
	c.a = c.subtract(value, 0)
}

// sbc subtracts value and the carry flag from A.
func (c *CPU) sbc(value uint8) {
	c.a = c.subtract(value, c.flagToBit(carryFlag))
}

// cp compares A with value: a subtraction that only keeps the flags.
func (c *CPU) cp(value uint8) {
	c.subtract(value, 0)
}

func (c *CPU) subtract(value, carry uint8) uint8 {
	a := c.a
	diff := int(a) - int(value) - int(carry)
	result := uint8(diff)

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, bit.HalfBorrowSub(a, value, carry))
	c.setFlagToCondition(carryFlag, diff < 0)

	return result
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.f = 0
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.f = 0
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.f = 0
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

// addToHL sets the result of adding a 16 bit value to HL, Z is left untouched.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := uint32(hl) + uint32(value)

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, result > 0xFFFF)

	c.setHL(uint16(result))
}

// spPlusOffset computes SP+e for ADD SP,e and LD HL,SP+e. Carries come from
// the low byte as an unsigned addition.
func (c *CPU) spPlusOffset(e int8) uint16 {
	offset := uint8(e)
	c.f = 0
	c.setFlagToCondition(halfCarryFlag, bit.HalfCarryAdd(bit.Low(c.sp), offset, 0))
	c.setFlagToCondition(carryFlag, uint16(bit.Low(c.sp))+uint16(offset) > 0xFF)

	return c.sp + uint16(int16(e))
}

// daa adjusts A to a valid BCD value after an addition or subtraction.
func (c *CPU) daa() {
	a := c.a
	var correction uint8
	carry := c.isSetFlag(carryFlag)

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			correction |= 0x06
		}
		if carry {
			correction |= 0x60
		}
		a -= correction
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			correction |= 0x06
		}
		if carry || a > 0x99 {
			correction |= 0x60
			carry = true
		}
		a += correction
	}

	c.a = a
	c.setFlagToCondition(zeroFlag, a == 0)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, carry)
}

func (c *CPU) cpl() {
	c.a = ^c.a
	c.setFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) scf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlag(carryFlag)
}

func (c *CPU) ccf() {
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.setFlagToCondition(carryFlag, !c.isSetFlag(carryFlag))
}
