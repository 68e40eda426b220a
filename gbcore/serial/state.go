package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type serialState struct {
	SB, SC       byte
	Transferring bool
	Countdown    int32
	BitCount     int32
	Incoming     byte
}

// MarshalBinary encodes the registers and the shift progress. The peer is
// not part of the state.
func (s *Serial) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, serialState{
		SB:           s.sb,
		SC:           s.sc,
		Transferring: s.transferring,
		Countdown:    int32(s.countdown),
		BitCount:     int32(s.bitCount),
		Incoming:     s.incoming,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (s *Serial) UnmarshalBinary(data []byte) error {
	var st serialState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &st); err != nil {
		return fmt.Errorf("serial state: %w", err)
	}
	if st.BitCount < 0 || st.BitCount > 7 {
		return fmt.Errorf("serial state: bit count %d", st.BitCount)
	}
	s.sb, s.sc = st.SB, st.SC&0x83
	s.transferring = st.Transferring
	s.countdown = int(st.Countdown)
	s.bitCount = int(st.BitCount)
	s.incoming = st.Incoming
	return nil
}
