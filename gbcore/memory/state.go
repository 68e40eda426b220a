package memory

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/valerio/gbcore/gbcore/addr"
)

// The DMG only has the first two work RAM banks and one VRAM bank, so the
// block sizes depend on the mode.

func (m *MMU) wramBanks() int {
	if m.cgb {
		return len(m.wram)
	}
	return 2
}

func (m *MMU) vramBanks() int {
	if m.cgb {
		return len(m.vram)
	}
	return 1
}

// WRAM returns a copy of work RAM, bank after bank.
func (m *MMU) WRAM() []byte {
	out := make([]byte, 0, m.wramBanks()*wramBankSize)
	for i := range m.wramBanks() {
		out = append(out, m.wram[i][:]...)
	}
	return out
}

// SetWRAM restores work RAM returned by WRAM.
func (m *MMU) SetWRAM(data []byte) error {
	if len(data) != m.wramBanks()*wramBankSize {
		return fmt.Errorf("wram: %w: got %d bytes", ErrStateSize, len(data))
	}
	for i := range m.wramBanks() {
		copy(m.wram[i][:], data[i*wramBankSize:])
	}
	return nil
}

// VRAM returns a copy of video RAM, bank after bank.
func (m *MMU) VRAM() []byte {
	out := make([]byte, 0, m.vramBanks()*vramBankSize)
	for i := range m.vramBanks() {
		out = append(out, m.vram[i][:]...)
	}
	return out
}

// SetVRAM restores video RAM returned by VRAM.
func (m *MMU) SetVRAM(data []byte) error {
	if len(data) != m.vramBanks()*vramBankSize {
		return fmt.Errorf("vram: %w: got %d bytes", ErrStateSize, len(data))
	}
	for i := range m.vramBanks() {
		copy(m.vram[i][:], data[i*vramBankSize:])
	}
	return nil
}

// SetOAM restores attribute memory, bypassing the access discipline.
func (m *MMU) SetOAM(data []byte) error {
	if len(data) != addr.OAMSize {
		return fmt.Errorf("oam: %w: got %d bytes", ErrStateSize, len(data))
	}
	copy(m.oam[:], data)
	return nil
}

// HRAM returns a copy of high RAM.
func (m *MMU) HRAM() []byte {
	out := make([]byte, hramSize)
	copy(out, m.hram[:])
	return out
}

// SetHRAM restores high RAM returned by HRAM.
func (m *MMU) SetHRAM(data []byte) error {
	if len(data) != hramSize {
		return fmt.Errorf("hram: %w: got %d bytes", ErrStateSize, len(data))
	}
	copy(m.hram[:], data)
	return nil
}

type mmuState struct {
	IE, IF    byte
	VRAMBank  uint8
	WRAMBank  uint8
	Buttons   uint8
	DPad      uint8
	Select    uint8
	DMAActive bool
}

// MarshalBinary encodes the interrupt registers, the bank selectors, the
// joypad and the DMA bus lock. Memory contents go through WRAM, VRAM, OAM
// and HRAM.
func (m *MMU) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, mmuState{
		IE:        m.ie,
		IF:        m.ifReg,
		VRAMBank:  m.vramBank,
		WRAMBank:  m.wramBank,
		Buttons:   m.joypad.buttons,
		DPad:      m.joypad.dpad,
		Select:    m.joypad.selectB,
		DMAActive: m.dmaActive,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (m *MMU) UnmarshalBinary(data []byte) error {
	var s mmuState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("mmu state: %w", err)
	}
	m.ie = s.IE
	m.ifReg = s.IF & addr.InterruptMask
	if m.cgb {
		m.vramBank = s.VRAMBank & 0x01
		m.wramBank = max(s.WRAMBank&0x07, 1)
	}
	m.joypad.buttons = s.Buttons & 0x0F
	m.joypad.dpad = s.DPad & 0x0F
	m.joypad.selectB = s.Select & 0x30
	m.dmaActive = s.DMAActive
	return nil
}

// BankRegister is one mapper control write.
type BankRegister struct {
	Address uint16
	Value   uint8
}

// BankRegisters returns the control writes that put a freshly loaded
// cartridge of the same kind into the current banking state.
func (c *Cartridge) BankRegisters() []BankRegister {
	m := &c.mapper
	enable := BankRegister{0x0000, 0x00}
	if m.ramEnabled {
		enable.Value = 0x0A
	}

	switch m.kind {
	case KindMBC1:
		return []BankRegister{enable, {0x2000, m.mbc1.bank1}, {0x4000, m.mbc1.bank2}, {0x6000, m.mbc1.mode}}
	case KindMBC2:
		return []BankRegister{enable, {0x2100, m.mbc2.romBank}}
	case KindMBC3:
		return []BankRegister{enable, {0x2000, m.mbc3.romBank}, {0x4000, m.mbc3.ramBank}}
	case KindMBC5:
		ramBank := m.mbc5.ramBank
		if m.mbc5.rumble {
			ramBank |= 0x08
		}
		return []BankRegister{
			enable,
			{0x2000, uint8(m.mbc5.romBank)},
			{0x3000, uint8(m.mbc5.romBank >> 8)},
			{0x4000, ramBank},
		}
	}
	return nil
}

type cartridgeState struct {
	Kind       MapperKind
	RAMEnabled bool
	MBC1Bank1  uint8
	MBC1Bank2  uint8
	MBC1Mode   uint8
	MBC2Bank   uint8
	MBC3ROM    uint8
	MBC3RAM    uint8
	MBC5ROM    uint16
	MBC5RAM    uint8
	Rumble     bool

	RTCElapsed    int64
	RTCHalted     bool
	RTCCarry      bool
	RTCLatched    [5]uint8
	RTCLatchArmed bool
}

// MarshalBinary encodes the mapper registers and the clock counter. The
// external RAM is not included, see SaveRAM.
func (c *Cartridge) MarshalBinary() ([]byte, error) {
	m := &c.mapper
	r := &m.mbc3.rtc
	s := cartridgeState{
		Kind:          m.kind,
		RAMEnabled:    m.ramEnabled,
		MBC1Bank1:     m.mbc1.bank1,
		MBC1Bank2:     m.mbc1.bank2,
		MBC1Mode:      m.mbc1.mode,
		MBC2Bank:      m.mbc2.romBank,
		MBC3ROM:       m.mbc3.romBank,
		MBC3RAM:       m.mbc3.ramBank,
		MBC5ROM:       m.mbc5.romBank,
		MBC5RAM:       m.mbc5.ramBank,
		Rumble:        m.mbc5.rumble,
		RTCElapsed:    r.elapsed,
		RTCHalted:     r.halted,
		RTCCarry:      r.carry,
		RTCLatched:    r.latched,
		RTCLatchArmed: r.latchArmed,
	}
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, s)
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary for a cartridge of
// the same mapper kind. The clock resumes from its restored counter, time
// spent between save and load is not counted.
func (c *Cartridge) UnmarshalBinary(data []byte) error {
	var s cartridgeState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("cartridge state: %w", err)
	}
	m := &c.mapper
	if s.Kind != m.kind {
		return fmt.Errorf("cartridge state: mapper %s does not match %s", s.Kind, m.kind)
	}

	m.ramEnabled = s.RAMEnabled
	m.mbc1 = mbc1State{bank1: max(s.MBC1Bank1&0x1F, 1), bank2: s.MBC1Bank2 & 0x03, mode: s.MBC1Mode & 0x01}
	m.mbc2.romBank = max(s.MBC2Bank&0x0F, 1)
	m.mbc3.romBank = max(s.MBC3ROM&0x7F, 1)
	m.mbc3.ramBank = s.MBC3RAM & 0x0F
	m.mbc5 = mbc5State{romBank: s.MBC5ROM & 0x1FF, ramBank: s.MBC5RAM & 0x0F, rumble: s.Rumble && m.hasRumble}

	if m.hasRTC {
		r := &m.mbc3.rtc
		r.elapsed = s.RTCElapsed % (rtcMaxDays * secondsPerDay)
		r.halted = s.RTCHalted
		r.carry = s.RTCCarry
		r.latched = s.RTCLatched
		r.latchArmed = s.RTCLatchArmed
		r.last = r.clock.Now()
	}
	return nil
}
