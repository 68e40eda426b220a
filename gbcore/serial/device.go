package serial

// SerialDevice is the peer on the other end of the link cable.
type SerialDevice interface {
	// Send returns the byte the peer shifts in during the next transfer.
	Send() byte
	// Receive is handed the byte the Game Boy shifts out.
	Receive(value byte)
	// AllowSlave reports whether the peer drives the clock, so that
	// transfers with the external clock selected can complete.
	AllowSlave() bool
	Description() string
}

// NullDevice is an unconnected port: it always answers 0xFF and never
// provides a clock.
type NullDevice struct{}

func (NullDevice) Send() byte          { return 0xFF }
func (NullDevice) Receive(byte)        {}
func (NullDevice) AllowSlave() bool    { return false }
func (NullDevice) Description() string { return "Null" }
