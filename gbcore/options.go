package gbcore

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/valerio/gbcore/gbcore/audio"
	"github.com/valerio/gbcore/gbcore/memory"
	"github.com/valerio/gbcore/gbcore/serial"
	"github.com/valerio/gbcore/gbcore/video"
)

// Mode selects the hardware variant the system boots as.
type Mode uint8

const (
	DMG Mode = iota + 1
	CGB
	SGB
)

func (m Mode) String() string {
	switch m {
	case DMG:
		return "dmg"
	case CGB:
		return "cgb"
	case SGB:
		return "sgb"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode accepts "dmg", "cgb" or "sgb", in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "dmg":
		return DMG, nil
	case "cgb":
		return CGB, nil
	case "sgb":
		return SGB, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// Options holds everything fixed at construction. Enable flags can also be
// changed at run time through the setters on GameBoy.
type Options struct {
	Mode Mode

	PPU    bool
	APU    bool
	DMA    bool
	Timer  bool
	Serial bool

	SampleRate   int
	SerialDevice serial.SerialDevice
	Palette      []video.Color
	// RTCClock drives MBC3 real time clocks, the wall clock when nil.
	RTCClock memory.Clock
	Logger   *slog.Logger
}

// DefaultOptions is a DMG with every component enabled.
func DefaultOptions() Options {
	return Options{
		Mode:       DMG,
		PPU:        true,
		APU:        true,
		DMA:        true,
		Timer:      true,
		Serial:     true,
		SampleRate: audio.DefaultSampleRate,
		Palette:    video.DefaultPalette[:],
	}
}

// Option customizes a GameBoy.
type Option func(*Options)

// WithOptions replaces every option at once, as built by config.Config.
func WithOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

func WithMode(m Mode) Option {
	return func(o *Options) { o.Mode = m }
}

func WithSampleRate(rate int) Option {
	return func(o *Options) { o.SampleRate = rate }
}

// WithSerialDevice plugs a peer into the link port.
func WithSerialDevice(d serial.SerialDevice) Option {
	return func(o *Options) { o.SerialDevice = d }
}

func WithPalette(colors []video.Color) Option {
	return func(o *Options) { o.Palette = colors }
}

func WithRTCClock(c memory.Clock) Option {
	return func(o *Options) { o.RTCClock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithComponents sets the five enable flags.
func WithComponents(ppu, apu, dma, timer, serial bool) Option {
	return func(o *Options) {
		o.PPU, o.APU, o.DMA, o.Timer, o.Serial = ppu, apu, dma, timer, serial
	}
}
