package memory

import (
	"fmt"
	"log/slog"

	"github.com/valerio/gbcore/gbcore/addr"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

const (
	vramBankSize = 0x2000
	wramBankSize = 0x1000
	hramSize     = 0x7F
	ioSize       = 0x80
)

// Device is a component owning a set of memory mapped I/O registers.
type Device interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// MMU allows access to all memory mapped I/O and data/registers.
// It owns every backing store of the address space, components reach
// it only through the methods below.
type MMU struct {
	cart      *Cartridge
	regionMap [256]memRegion

	vram     [2][vramBankSize]byte
	wram     [8][wramBankSize]byte
	oam      [addr.OAMSize]byte
	hram     [hramSize]byte
	ie       byte
	ifReg    byte
	vramBank uint8
	wramBank uint8
	cgb      bool

	devices [ioSize]Device
	joypad  Joypad

	// oamBusy reports whether the PPU currently scans or draws from OAM.
	oamBusy func() bool
	// dmaActive locks the general bus while an OAM DMA is running.
	dmaActive bool

	logger *slog.Logger
}

// Option configures an MMU.
type Option func(*MMU)

// WithCGB enables the CGB-only VRAM and WRAM banking registers.
func WithCGB() Option { return func(m *MMU) { m.cgb = true } }

// WithLogger sets the logger used for unusual accesses.
func WithLogger(l *slog.Logger) Option { return func(m *MMU) { m.logger = l } }

// New creates a new memory unit with no cartridge inserted.
func New(opts ...Option) *MMU {
	m := &MMU{
		wramBank: 1,
		joypad:   newJoypad(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	initRegionMap(m)
	return m
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, unusable: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM + IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// InsertCartridge maps cart into the ROM and external RAM areas.
func (m *MMU) InsertCartridge(cart *Cartridge) {
	m.cart = cart
	m.logger.Debug("cartridge inserted", "title", cart.header.Title, "mapper", cart.Kind().String())
}

// Cartridge returns the inserted cartridge, nil if none.
func (m *MMU) Cartridge() *Cartridge { return m.cart }

// MapDevice routes reads and writes of the I/O registers start..end (inclusive) to dev.
func (m *MMU) MapDevice(start, end uint16, dev Device) {
	if start < addr.IOStart || end >= addr.HRAMStart || start > end {
		panic(fmt.Sprintf("invalid device range 0x%04X-0x%04X", start, end))
	}
	for a := start; a <= end; a++ {
		m.devices[a-addr.IOStart] = dev
	}
}

// SetOAMGate installs the predicate telling whether the PPU owns OAM.
func (m *MMU) SetOAMGate(busy func() bool) {
	m.oamBusy = busy
}

// SetDMAActive locks (or unlocks) the general bus for an OAM DMA transfer.
func (m *MMU) SetDMAActive(active bool) {
	m.dmaActive = active
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.ifReg |= uint8(interrupt) & addr.InterruptMask
}

// PendingInterrupts returns the interrupts that are both requested and enabled.
func (m *MMU) PendingInterrupts() uint8 {
	return m.ie & m.ifReg & addr.InterruptMask
}

// Read is the CPU view of the address space.
func (m *MMU) Read(address uint16) byte {
	// during DMA only HRAM and the I/O block are reachable
	if m.dmaActive && address < addr.IOStart {
		return 0xFF
	}
	return m.read(address)
}

// Write is the CPU view of the address space.
func (m *MMU) Write(address uint16, value byte) {
	if m.dmaActive && address < addr.IOStart {
		return
	}
	m.write(address, value)
}

// ReadForDMA reads a DMA source byte, bypassing the bus lock.
// Sources at 0xE000 and above are mirrored to work RAM.
func (m *MMU) ReadForDMA(address uint16) byte {
	if address >= addr.EchoStart {
		address -= 0x2000
	}
	return m.read(address)
}

func (m *MMU) read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			return 0xFF
		}
		return m.cart.Read(address)
	case regionVRAM:
		return m.vram[m.vramBank][address-addr.VRAMStart]
	case regionWRAM:
		return m.readWRAM(address)
	case regionEcho:
		return m.readWRAM(address - 0x2000)
	case regionOAM:
		if address >= addr.UnusableStart {
			return 0x00
		}
		if m.oamLocked() {
			return 0xFF
		}
		return m.oam[address-addr.OAMStart]
	default:
		return m.readIO(address)
	}
}

func (m *MMU) write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		if m.cart == nil {
			m.logger.Debug("write with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.cart.Write(address, value)
	case regionVRAM:
		m.vram[m.vramBank][address-addr.VRAMStart] = value
	case regionWRAM:
		m.writeWRAM(address, value)
	case regionEcho:
		m.writeWRAM(address-0x2000, value)
	case regionOAM:
		if address >= addr.UnusableStart {
			return
		}
		m.WriteOAMIfPermitted(uint8(address-addr.OAMStart), value)
	default:
		m.writeIO(address, value)
	}
}

func (m *MMU) readWRAM(address uint16) byte {
	if address < addr.WRAMBankNStart {
		return m.wram[0][address-addr.WRAMStart]
	}
	return m.wram[m.wramBank][address-addr.WRAMBankNStart]
}

func (m *MMU) writeWRAM(address uint16, value byte) {
	if address < addr.WRAMBankNStart {
		m.wram[0][address-addr.WRAMStart] = value
		return
	}
	m.wram[m.wramBank][address-addr.WRAMBankNStart] = value
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.IE:
		return m.ie
	case address >= addr.HRAMStart:
		return m.hram[address-addr.HRAMStart]
	case address == addr.IF:
		// upper 3 bits are unused and always read as 1
		return m.ifReg | 0xE0
	case address == addr.P1:
		return m.joypad.Read()
	case address == addr.VBK && m.cgb:
		return m.vramBank | 0xFE
	case address == addr.SVBK && m.cgb:
		return m.wramBank | 0xF8
	}

	if dev := m.devices[address-addr.IOStart]; dev != nil {
		return dev.Read(address)
	}
	return 0xFF
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.IE:
		m.ie = value
		return
	case address >= addr.HRAMStart:
		m.hram[address-addr.HRAMStart] = value
		return
	case address == addr.IF:
		m.ifReg = value & addr.InterruptMask
		return
	case address == addr.P1:
		m.joypad.Write(value)
		return
	case address == addr.VBK && m.cgb:
		m.vramBank = value & 0x01
		return
	case address == addr.SVBK && m.cgb:
		m.wramBank = value & 0x07
		if m.wramBank == 0 {
			m.wramBank = 1
		}
		return
	}

	if dev := m.devices[address-addr.IOStart]; dev != nil {
		dev.Write(address, value)
	}
}

// HandleKeyPress updates the joypad and requests the joypad interrupt
// on a released to pressed transition.
func (m *MMU) HandleKeyPress(key JoypadKey) {
	if m.joypad.Press(key) {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}
}

// HandleKeyRelease updates the joypad state.
func (m *MMU) HandleKeyRelease(key JoypadKey) {
	m.joypad.Release(key)
}
