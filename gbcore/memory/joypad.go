package memory

import "github.com/valerio/gbcore/gbcore/bit"

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad holds the P1 selection bits and the state of both key groups.
// Note that 1 -> key released, 0 -> key pressed.
type Joypad struct {
	buttons uint8
	dpad    uint8
	selectB uint8
}

func newJoypad() Joypad {
	return Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
		selectB: 0x30,
	}
}

// Read returns the P1 register as seen by the CPU.
//
// Bits 4-5 select which group is mapped to the low bits (0 = selected):
//   - bit 4 clear: d-pad directions
//   - bit 5 clear: A, B, Select, Start
//   - both clear: AND of both groups
//   - none: 0x0F
//
// Bits 6-7 are unused and read as 1.
func (j *Joypad) Read() uint8 {
	result := uint8(0b11000000) | j.selectB

	selectDpad := !bit.IsSet(4, j.selectB)
	selectButtons := !bit.IsSet(5, j.selectB)

	low := uint8(0x0F)
	if selectDpad {
		low &= j.dpad
	}
	if selectButtons {
		low &= j.buttons
	}
	return result | low
}

// Write sets the selection bits, the only writable part of P1.
func (j *Joypad) Write(value uint8) {
	j.selectB = value & 0b00110000
}

// Press marks key as pressed. It returns true when the key was released
// before, which is when the joypad interrupt fires.
func (j *Joypad) Press(key JoypadKey) bool {
	group, index := j.group(key)
	wasReleased := bit.IsSet(index, *group)
	*group = bit.Clear(index, *group)
	return wasReleased
}

// Release marks key as released.
func (j *Joypad) Release(key JoypadKey) {
	group, index := j.group(key)
	*group = bit.Set(index, *group)
}

func (j *Joypad) group(key JoypadKey) (*uint8, uint8) {
	if key >= JoypadA {
		return &j.buttons, uint8(key - JoypadA)
	}
	return &j.dpad, uint8(key)
}
