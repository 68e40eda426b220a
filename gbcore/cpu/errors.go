package cpu

import "fmt"

// InvalidOpcodeError is returned when the CPU fetches one of the unused
// opcodes. PC is the address of the opcode.
type InvalidOpcodeError struct {
	Opcode uint8
	PC     uint16
}

func (e *InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode 0x%02X at 0x%04X", e.Opcode, e.PC)
}
