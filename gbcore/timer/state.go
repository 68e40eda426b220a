package timer

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type timerState struct {
	Counter    uint16
	LastSignal bool
	Overflow   int32
	TIMA       byte
	TMA        byte
	TAC        byte
}

// MarshalBinary encodes the divider, the registers and the overflow window.
func (t *Timer) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, timerState{
		Counter:    t.systemCounter,
		LastSignal: t.lastSignal,
		Overflow:   int32(t.overflow),
		TIMA:       t.tima,
		TMA:        t.tma,
		TAC:        t.tac,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (t *Timer) UnmarshalBinary(data []byte) error {
	var s timerState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("timer state: %w", err)
	}
	t.systemCounter = s.Counter
	t.lastSignal = s.LastSignal
	t.overflow = int(s.Overflow)
	t.tima, t.tma, t.tac = s.TIMA, s.TMA, s.TAC&0x07
	return nil
}
