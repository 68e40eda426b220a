package dma

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type dmaState struct {
	Active      bool
	Source      uint16
	Transferred int32
	Register    byte
}

// MarshalBinary encodes the register and the progress of a running transfer.
// The enable toggle belongs to the owner and is not part of the state.
func (d *DMA) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, dmaState{
		Active:      d.active,
		Source:      d.source,
		Transferred: int32(d.transferred),
		Register:    d.register,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary and sets the bus
// lock to match. A disabled unit drops a restored transfer.
func (d *DMA) UnmarshalBinary(data []byte) error {
	var s dmaState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("dma state: %w", err)
	}
	if s.Transferred < 0 || s.Transferred > TransferLength {
		return fmt.Errorf("dma state: %d bytes transferred", s.Transferred)
	}
	d.register = s.Register
	d.source = s.Source
	d.transferred = int(s.Transferred)
	d.active = s.Active && !d.disabled
	d.bus.SetDMAActive(d.active)
	return nil
}
