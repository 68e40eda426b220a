// Package serial implements the link port shift register and the peers that
// can sit on the other end of the cable.
package serial

import (
	"log/slog"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
)

// BitCycles is the number of master cycles taken to shift one bit with the
// internal 8192 Hz clock.
const BitCycles = 512

const (
	scInternalClock = 0
	scFastClock     = 1
	scStart         = 7

	// unused SC bits read back as 1
	scUnusedMask = 0x7C
)

// Serial is the SB/SC register pair and its shift logic. A transfer moves the
// byte in SB out to the peer one bit at a time, while shifting in the byte the
// peer sent, and raises the Serial interrupt after the eighth bit.
type Serial struct {
	sb, sc byte

	transferring bool
	countdown    int
	bitCount     int
	incoming     byte

	device     SerialDevice
	irqHandler func()
	logger     *slog.Logger
}

// Option configures a Serial unit.
type Option func(*Serial)

// WithDevice plugs a peer into the link port.
func WithDevice(d SerialDevice) Option {
	return func(s *Serial) {
		if d != nil {
			s.device = d
		}
	}
}

// WithLogger sets the logger used for transfer events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Serial) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a serial unit. irq is called when a transfer completes and
// should request the Serial interrupt. With no device option the port is
// left unconnected (NullDevice).
func New(irq func(), opts ...Option) *Serial {
	s := &Serial{
		irqHandler: irq,
		device:     NullDevice{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reset clears the registers and aborts any transfer.
func (s *Serial) Reset() {
	s.sb = 0
	s.sc = 0
	s.transferring = false
	s.countdown = 0
	s.bitCount = 0
	s.incoming = 0
}

// Device returns the connected peer.
func (s *Serial) Device() SerialDevice { return s.device }

// SetDevice replaces the connected peer. A nil device disconnects the port.
func (s *Serial) SetDevice(d SerialDevice) {
	if d == nil {
		d = NullDevice{}
	}
	s.device = d
}

// Transferring reports whether a byte is being shifted.
func (s *Serial) Transferring() bool { return s.transferring }

// Read implements memory.Device for SB and SC.
func (s *Serial) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb
	case addr.SC:
		return s.sc | scUnusedMask
	}
	return 0xFF
}

// Write implements memory.Device for SB and SC.
func (s *Serial) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb = value
	case addr.SC:
		s.sc = value & 0x83
		s.maybeStartTransfer()
	}
}

func (s *Serial) maybeStartTransfer() {
	if !bit.IsSet(scStart, s.sc) {
		s.transferring = false
		return
	}
	// without a master on the other side an external clock never ticks
	if !bit.IsSet(scInternalClock, s.sc) && !s.device.AllowSlave() {
		s.transferring = false
		return
	}

	s.transferring = true
	s.bitCount = 0
	s.countdown = BitCycles

	s.incoming = s.device.Send()
	s.device.Receive(s.sb)
	s.logger.Debug("serial transfer", "out", s.sb, "in", s.incoming, "peer", s.device.Description())
}

// Tick advances the shift clock by the given amount of master cycles.
func (s *Serial) Tick(cycles int) {
	if !s.transferring {
		return
	}

	s.countdown -= cycles
	for s.transferring && s.countdown <= 0 {
		in := (s.incoming >> (7 - s.bitCount)) & 0x01
		s.sb = s.sb<<1 | in
		s.bitCount++
		s.countdown += BitCycles

		if s.bitCount == 8 {
			s.completeTransfer()
		}
	}
}

func (s *Serial) completeTransfer() {
	s.transferring = false
	s.bitCount = 0
	s.countdown = 0
	s.sc = bit.Clear(scStart, s.sc)
	if s.irqHandler != nil {
		s.irqHandler()
	}
}
