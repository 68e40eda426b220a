package serial

import (
	"bytes"
	"log/slog"
)

// LogDevice is a peer that logs outgoing bytes as text lines. Handy for
// test ROMs that report results over serial.
type LogDevice struct {
	logger *slog.Logger
	reply  byte

	line []byte
	all  bytes.Buffer
}

// LogDeviceOption configures a LogDevice.
type LogDeviceOption func(*LogDevice)

// WithDeviceLogger sets where completed lines are logged.
func WithDeviceLogger(l *slog.Logger) LogDeviceOption {
	return func(d *LogDevice) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithReply sets the byte answered to every transfer (0xFF by default).
func WithReply(b byte) LogDeviceOption { return func(d *LogDevice) { d.reply = b } }

// NewLogDevice creates a logging peer.
func NewLogDevice(opts ...LogDeviceOption) *LogDevice {
	d := &LogDevice{
		logger: slog.Default(),
		reply:  0xFF,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *LogDevice) Send() byte { return d.reply }

// Receive buffers b until a newline or NUL, then logs the line.
func (d *LogDevice) Receive(b byte) {
	d.all.WriteByte(b)

	if b == 0 || b == '\n' || b == '\r' {
		d.Flush()
		return
	}
	d.line = append(d.line, b)
}

// Flush logs any partially buffered line.
func (d *LogDevice) Flush() {
	if len(d.line) == 0 {
		return
	}
	d.logger.Info("serial", "line", string(d.line))
	d.line = d.line[:0]
}

// Output returns every byte received so far.
func (d *LogDevice) Output() string { return d.all.String() }

func (d *LogDevice) AllowSlave() bool    { return false }
func (d *LogDevice) Description() string { return "Log" }
