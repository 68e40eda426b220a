package serial

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/gbcore/gbcore/addr"
)

type echoDevice struct {
	reply    byte
	received []byte
	slave    bool
}

func (e *echoDevice) Send() byte          { return e.reply }
func (e *echoDevice) Receive(b byte)      { e.received = append(e.received, b) }
func (e *echoDevice) AllowSlave() bool    { return e.slave }
func (e *echoDevice) Description() string { return "echo" }

func tickMachineCycles(s *Serial, n int) {
	for range n {
		s.Tick(4)
	}
}

func TestTransferTiming(t *testing.T) {
	irqs := 0
	dev := &echoDevice{reply: 0xA5}
	s := New(func() { irqs++ }, WithDevice(dev))

	s.Write(addr.SB, 0x3C)
	s.Write(addr.SC, 0x81)
	require.True(t, s.Transferring())
	assert.Equal(t, []byte{0x3C}, dev.received)

	t.Run("one bit per 512 cycles", func(t *testing.T) {
		tickMachineCycles(s, BitCycles/4-1)
		assert.Equal(t, uint8(0x3C), s.Read(addr.SB))

		s.Tick(4)
		assert.Equal(t, uint8(0x78|0x01), s.Read(addr.SB), "first bit of 0xA5 shifted in")
	})

	t.Run("completes after eight bits", func(t *testing.T) {
		tickMachineCycles(s, 7*BitCycles/4-1)
		assert.True(t, s.Transferring())
		assert.Equal(t, 0, irqs)

		s.Tick(4)
		assert.False(t, s.Transferring())
		assert.Equal(t, 1, irqs)
		assert.Equal(t, uint8(0xA5), s.Read(addr.SB))
		assert.Equal(t, uint8(0x7D), s.Read(addr.SC), "start bit cleared")
	})

	t.Run("idle port ignores ticks", func(t *testing.T) {
		tickMachineCycles(s, 1000)
		assert.Equal(t, 1, irqs)
	})
}

func TestExternalClock(t *testing.T) {
	t.Run("no master never completes", func(t *testing.T) {
		irqs := 0
		s := New(func() { irqs++ })
		s.Write(addr.SB, 0x11)
		s.Write(addr.SC, 0x80)

		tickMachineCycles(s, 8*BitCycles)
		assert.False(t, s.Transferring())
		assert.Equal(t, 0, irqs)
		assert.Equal(t, uint8(0x11), s.Read(addr.SB))
		assert.Equal(t, uint8(0xFC), s.Read(addr.SC))
	})

	t.Run("peer providing a clock", func(t *testing.T) {
		irqs := 0
		s := New(func() { irqs++ }, WithDevice(&echoDevice{reply: 0x42, slave: true}))
		s.Write(addr.SC, 0x80)
		require.True(t, s.Transferring())

		tickMachineCycles(s, 8*BitCycles/4)
		assert.Equal(t, 1, irqs)
		assert.Equal(t, uint8(0x42), s.Read(addr.SB))
	})
}

func TestNullDevice(t *testing.T) {
	s := New(nil)
	assert.Equal(t, "Null", s.Device().Description())

	s.Write(addr.SB, 0x00)
	s.Write(addr.SC, 0x81)
	tickMachineCycles(s, 8*BitCycles/4)
	assert.Equal(t, uint8(0xFF), s.Read(addr.SB))
}

func TestLogDevice(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dev := NewLogDevice(WithDeviceLogger(logger))
	s := New(nil, WithDevice(dev))

	for _, b := range []byte("Passed\n") {
		s.Write(addr.SB, b)
		s.Write(addr.SC, 0x81)
		tickMachineCycles(s, 8*BitCycles/4)
	}

	assert.Equal(t, "Passed\n", dev.Output())
	assert.Contains(t, buf.String(), "line=Passed")

	dev.Receive('x')
	dev.Flush()
	assert.Contains(t, buf.String(), "line=x")
}
