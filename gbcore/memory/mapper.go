package memory

import "fmt"

// MapperKind identifies the memory bank controller of a cartridge.
type MapperKind uint8

const (
	KindNoMBC MapperKind = iota
	KindMBC1
	KindMBC2
	KindMBC3
	KindMBC5
)

func (k MapperKind) String() string {
	switch k {
	case KindNoMBC:
		return "NoMBC"
	case KindMBC1:
		return "MBC1"
	case KindMBC2:
		return "MBC2"
	case KindMBC3:
		return "MBC3"
	case KindMBC5:
		return "MBC5"
	}
	return fmt.Sprintf("MapperKind(%d)", uint8(k))
}

// MBC1 is the first and most common MBC chip.
//   - up to 2MB ROM, 32KB RAM
//   - a 5 bit bank register (0x2000-0x3FFF) and a 2 bit register (0x4000-0x5FFF)
//     used either as upper ROM bank bits or as RAM bank
//   - mode 1 also applies the 2 bit register to the 0x0000-0x3FFF area
type mbc1State struct {
	bank1 uint8
	bank2 uint8
	mode  uint8
}

// MBC2 has 512x4 bits of built-in RAM. Bit 8 of the write address selects
// between RAM enable and ROM bank number.
type mbc2State struct {
	romBank uint8
}

// MBC3 adds a 7 bit ROM bank, 4 RAM banks and a real time clock
// whose registers are mapped in place of RAM banks 0x08-0x0C.
type mbc3State struct {
	romBank uint8
	ramBank uint8
	rtc     rtc
}

// MBC5 has a 9 bit ROM bank, 16 RAM banks and no banking quirks.
// On rumble carts bit 3 of the RAM bank register drives the motor.
type mbc5State struct {
	romBank uint16
	ramBank uint8
	rumble  bool
}

// mapper is a closed tagged variant over the supported controllers: kind
// selects which of the per-kind state structs is live. Read and write go
// through a single switch on kind.
type mapper struct {
	kind       MapperKind
	rom        []byte
	ram        []byte
	romBanks   int
	ramEnabled bool
	hasRTC     bool
	hasRumble  bool

	mbc1 mbc1State
	mbc2 mbc2State
	mbc3 mbc3State
	mbc5 mbc5State
}

func newMapper(h *Header, rom []byte, clock Clock) mapper {
	m := mapper{
		kind:      h.Kind,
		rom:       rom,
		ram:       make([]byte, h.RAMSize),
		romBanks:  max(len(rom)/romBankSize, 1),
		hasRTC:    h.HasRTC,
		hasRumble: h.HasRumble,
	}

	switch m.kind {
	case KindMBC1:
		m.mbc1 = mbc1State{bank1: 1}
	case KindMBC2:
		m.mbc2 = mbc2State{romBank: 1}
	case KindMBC3:
		m.mbc3 = mbc3State{romBank: 1}
		if m.hasRTC {
			m.mbc3.rtc = newRTC(clock)
		}
	case KindMBC5:
		m.mbc5 = mbc5State{romBank: 1}
	}
	return m
}

// read handles 0x0000-0x7FFF and 0xA000-0xBFFF.
func (m *mapper) read(address uint16) uint8 {
	if address < 0x8000 {
		bank := 0
		if address >= 0x4000 {
			bank = m.upperROMBank()
		} else if m.kind == KindMBC1 && m.mbc1.mode == 1 {
			bank = int(m.mbc1.bank2) << 5
		}
		return m.romByte(bank, address&0x3FFF)
	}

	switch m.kind {
	case KindNoMBC:
		return m.ramByte(0, address)
	case KindMBC1:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ramByte(m.mbc1RAMBank(), address)
	case KindMBC2:
		if !m.ramEnabled {
			return 0xFF
		}
		// only the lower nibble is stored, the upper one reads as 1s
		return m.ram[address&0x1FF] | 0xF0
	case KindMBC3:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.mbc3.ramBank >= rtcSeconds && m.mbc3.ramBank <= rtcControl {
			if !m.hasRTC {
				return 0xFF
			}
			return m.mbc3.rtc.read(m.mbc3.ramBank)
		}
		return m.ramByte(int(m.mbc3.ramBank&0x03), address)
	case KindMBC5:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ramByte(int(m.mbc5.ramBank), address)
	}
	return 0xFF
}

// write handles control writes to 0x0000-0x7FFF and RAM writes to 0xA000-0xBFFF.
func (m *mapper) write(address uint16, value uint8) {
	if address >= 0xA000 {
		m.writeRAM(address, value)
		return
	}

	switch m.kind {
	case KindNoMBC:
		// no registers
	case KindMBC1:
		switch {
		case address <= 0x1FFF:
			m.ramEnabled = value&0x0F == 0x0A
		case address <= 0x3FFF:
			m.mbc1.bank1 = value & 0x1F
			if m.mbc1.bank1 == 0 {
				m.mbc1.bank1 = 1
			}
		case address <= 0x5FFF:
			m.mbc1.bank2 = value & 0x03
		default:
			m.mbc1.mode = value & 0x01
		}
	case KindMBC2:
		if address > 0x3FFF {
			return
		}
		if address&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
			return
		}
		m.mbc2.romBank = value & 0x0F
		if m.mbc2.romBank == 0 {
			m.mbc2.romBank = 1
		}
	case KindMBC3:
		switch {
		case address <= 0x1FFF:
			m.ramEnabled = value&0x0F == 0x0A
		case address <= 0x3FFF:
			m.mbc3.romBank = value & 0x7F
			if m.mbc3.romBank == 0 {
				m.mbc3.romBank = 1
			}
		case address <= 0x5FFF:
			m.mbc3.ramBank = value & 0x0F
		default:
			if m.hasRTC {
				m.mbc3.rtc.writeLatch(value)
			}
		}
	case KindMBC5:
		switch {
		case address <= 0x1FFF:
			m.ramEnabled = value&0x0F == 0x0A
		case address <= 0x2FFF:
			m.mbc5.romBank = m.mbc5.romBank&0x100 | uint16(value)
		case address <= 0x3FFF:
			m.mbc5.romBank = m.mbc5.romBank&0xFF | uint16(value&0x01)<<8
		case address <= 0x5FFF:
			if m.hasRumble {
				m.mbc5.rumble = value&0x08 != 0
				value &= 0x07
			}
			m.mbc5.ramBank = value & 0x0F
		}
	}
}

func (m *mapper) writeRAM(address uint16, value uint8) {
	switch m.kind {
	case KindNoMBC:
		m.setRAMByte(0, address, value)
	case KindMBC1:
		if m.ramEnabled {
			m.setRAMByte(m.mbc1RAMBank(), address, value)
		}
	case KindMBC2:
		if m.ramEnabled {
			m.ram[address&0x1FF] = value & 0x0F
		}
	case KindMBC3:
		if !m.ramEnabled {
			return
		}
		if m.mbc3.ramBank >= rtcSeconds && m.mbc3.ramBank <= rtcControl {
			if m.hasRTC {
				m.mbc3.rtc.write(m.mbc3.ramBank, value)
			}
			return
		}
		m.setRAMByte(int(m.mbc3.ramBank&0x03), address, value)
	case KindMBC5:
		if m.ramEnabled {
			m.setRAMByte(int(m.mbc5.ramBank), address, value)
		}
	}
}

// upperROMBank returns the bank mapped at 0x4000-0x7FFF.
func (m *mapper) upperROMBank() int {
	switch m.kind {
	case KindMBC1:
		return int(m.mbc1.bank2)<<5 | int(m.mbc1.bank1)
	case KindMBC2:
		return int(m.mbc2.romBank)
	case KindMBC3:
		return int(m.mbc3.romBank)
	case KindMBC5:
		return int(m.mbc5.romBank)
	}
	return 1
}

func (m *mapper) mbc1RAMBank() int {
	if m.mbc1.mode == 1 {
		return int(m.mbc1.bank2)
	}
	return 0
}

// romByte reads from a bank, wrapping bank numbers larger than the image.
func (m *mapper) romByte(bank int, offset uint16) uint8 {
	bank %= m.romBanks
	i := bank*romBankSize + int(offset)
	if i >= len(m.rom) {
		return 0xFF
	}
	return m.rom[i]
}

func (m *mapper) ramByte(bank int, address uint16) uint8 {
	if len(m.ram) == 0 {
		return 0xFF
	}
	return m.ram[m.ramIndex(bank, address)]
}

func (m *mapper) setRAMByte(bank int, address uint16, value uint8) {
	if len(m.ram) == 0 {
		return
	}
	m.ram[m.ramIndex(bank, address)] = value
}

func (m *mapper) ramIndex(bank int, address uint16) int {
	return (bank*ramBankSize + int(address-0xA000)) % len(m.ram)
}
