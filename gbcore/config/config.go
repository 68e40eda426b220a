// Package config loads and saves the emulator settings as TOML.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/valerio/gbcore/gbcore"
	"github.com/valerio/gbcore/gbcore/audio"
	"github.com/valerio/gbcore/gbcore/video"
)

const (
	appName     = "gbcore"
	cfgFilename = "config.toml"

	DefaultFileMode = os.FileMode(0644)
)

type Config struct {
	Mode       string        `toml:"mode"`
	SampleRate int           `toml:"sample_rate"`
	Enable     EnableConfig  `toml:"enable"`
	Palette    PaletteConfig `toml:"palette"`
}

// EnableConfig holds the per-component switches.
type EnableConfig struct {
	PPU    bool `toml:"ppu"`
	APU    bool `toml:"apu"`
	DMA    bool `toml:"dma"`
	Timer  bool `toml:"timer"`
	Serial bool `toml:"serial"`
}

// PaletteConfig holds the four DMG shades as "#rrggbb" strings, lightest
// first.
type PaletteConfig struct {
	Colors []string `toml:"colors"`
}

// Default returns a DMG configuration with every component on.
func Default() Config {
	colors := make([]string, 0, video.PaletteSize)
	for _, c := range video.DefaultPalette {
		colors = append(colors, FormatColor(c))
	}
	return Config{
		Mode:       gbcore.DMG.String(),
		SampleRate: audio.DefaultSampleRate,
		Enable: EnableConfig{
			PPU:    true,
			APU:    true,
			DMA:    true,
			Timer:  true,
			Serial: true,
		},
		Palette: PaletteConfig{Colors: colors},
	}
}

// DefaultPath is config.toml in the user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, cfgFilename), nil
}

// Load decodes the file at path on top of Default, so missing keys keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns Default when the file does not exist.
func LoadOrDefault(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, DefaultFileMode)
}

// Write encodes cfg as TOML to w.
func Write(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate checks the mode, the sample rate range and the palette.
func (c Config) Validate() error {
	if _, err := gbcore.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.SampleRate < audio.MinSampleRate || c.SampleRate > audio.MaxSampleRate {
		return fmt.Errorf("sample_rate %d out of range [%d, %d]", c.SampleRate, audio.MinSampleRate, audio.MaxSampleRate)
	}
	_, err := c.Colors()
	return err
}

// Colors parses the palette. A count other than four is reported as a
// *video.InvalidPaletteError.
func (c Config) Colors() ([]video.Color, error) {
	if len(c.Palette.Colors) != video.PaletteSize {
		return nil, &video.InvalidPaletteError{Got: len(c.Palette.Colors), Want: video.PaletteSize}
	}
	colors := make([]video.Color, len(c.Palette.Colors))
	for i, s := range c.Palette.Colors {
		col, err := ParseColor(s)
		if err != nil {
			return nil, err
		}
		colors[i] = col
	}
	return colors, nil
}

// Options converts the configuration to orchestrator options.
func (c Config) Options() ([]gbcore.Option, error) {
	mode, err := gbcore.ParseMode(c.Mode)
	if err != nil {
		return nil, err
	}
	colors, err := c.Colors()
	if err != nil {
		return nil, err
	}
	return []gbcore.Option{
		gbcore.WithMode(mode),
		gbcore.WithSampleRate(c.SampleRate),
		gbcore.WithPalette(colors),
		gbcore.WithComponents(c.Enable.PPU, c.Enable.APU, c.Enable.DMA, c.Enable.Timer, c.Enable.Serial),
	}, nil
}

// ParseColor parses "#rrggbb" or "rrggbb".
func ParseColor(s string) (video.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return video.Color{}, fmt.Errorf("invalid color %q: want #rrggbb", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return video.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return video.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// FormatColor is the inverse of ParseColor.
func FormatColor(c video.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
