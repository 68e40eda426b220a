package memory

import (
	"fmt"
)

// Cartridge is a loaded ROM image together with its mapper state.
type Cartridge struct {
	header *Header
	rom    []byte
	mapper mapper
}

// CartridgeOption customizes cartridge loading.
type CartridgeOption func(*cartridgeOptions)

type cartridgeOptions struct {
	clock Clock
}

// WithClock sets the time source for cartridges with a real time clock.
func WithClock(c Clock) CartridgeOption {
	return func(o *cartridgeOptions) { o.clock = c }
}

// LoadCartridge parses the header of data and builds the matching mapper.
// The image is copied, the caller may reuse data afterwards.
func LoadCartridge(data []byte, opts ...CartridgeOption) (*Cartridge, error) {
	var o cartridgeOptions
	for _, opt := range opts {
		opt(&o)
	}

	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	rom := make([]byte, len(data))
	copy(rom, data)

	return &Cartridge{
		header: h,
		rom:    rom,
		mapper: newMapper(h, rom, o.clock),
	}, nil
}

// ROM returns the cartridge image. Callers must not modify it.
func (c *Cartridge) ROM() []byte { return c.rom }

// Header returns the decoded cartridge header.
func (c *Cartridge) Header() *Header { return c.header }

// Kind returns the mapper variant of the cartridge.
func (c *Cartridge) Kind() MapperKind { return c.mapper.kind }

// Read reads ROM (0x0000-0x7FFF) or external RAM (0xA000-0xBFFF).
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mapper.read(address)
}

// Write forwards mapper control writes and external RAM writes.
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mapper.write(address, value)
}

// ROMBank returns the bank currently mapped at 0x4000-0x7FFF.
func (c *Cartridge) ROMBank() int {
	return c.mapper.upperROMBank() % c.mapper.romBanks
}

// Rumble reports the rumble motor state on MBC5 rumble carts.
func (c *Cartridge) Rumble() bool {
	return c.mapper.kind == KindMBC5 && c.mapper.mbc5.rumble
}

// HasBattery reports whether the external RAM should be persisted.
func (c *Cartridge) HasBattery() bool {
	return c.header.HasBattery && len(c.mapper.ram) > 0
}

// SaveRAM returns a copy of the external RAM.
func (c *Cartridge) SaveRAM() []byte {
	out := make([]byte, len(c.mapper.ram))
	copy(out, c.mapper.ram)
	return out
}

// LoadRAM restores external RAM previously returned by SaveRAM.
func (c *Cartridge) LoadRAM(data []byte) error {
	if len(data) != len(c.mapper.ram) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRAMSize, len(data), len(c.mapper.ram))
	}
	copy(c.mapper.ram, data)
	if c.mapper.kind == KindMBC2 {
		for i := range c.mapper.ram {
			c.mapper.ram[i] &= 0x0F
		}
	}
	return nil
}
