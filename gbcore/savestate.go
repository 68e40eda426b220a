package gbcore

import (
	"bytes"
	"encoding"
	"encoding/binary"
	"fmt"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
	"github.com/valerio/gbcore/gbcore/cpu"
	"github.com/valerio/gbcore/gbcore/state"
)

const (
	titleStart    = 0x134
	checksumStart = 0x14E

	systemComponent = "system"
)

type snapshotter interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

type namedSnapshotter struct {
	name string
	s    snapshotter
}

// components lists the exact state snapshots in restore order. The MMU goes
// before DMA, both set the bus lock.
func (gb *GameBoy) components() []namedSnapshotter {
	return []namedSnapshotter{
		{"cpu", gb.cpu},
		{"mmu", gb.mmu},
		{"cartridge", gb.mmu.Cartridge()},
		{"timer", gb.timer},
		{"serial", gb.serial},
		{"dma", gb.dma},
		{"ppu", gb.ppu},
		{"apu", gb.apu},
	}
}

func (gb *GameBoy) model() state.Model {
	switch gb.mode {
	case CGB:
		return state.ModelCGB
	case SGB:
		return state.ModelSGB
	}
	return state.ModelDMG
}

// SaveState encodes the whole system as a BESS file. Other emulators can
// read the standard blocks; the exact state of every component travels in
// an extra block they skip.
func (gb *GameBoy) SaveState() ([]byte, error) {
	if !gb.loaded {
		return nil, ErrNoCartridge
	}
	s, err := gb.snapshot()
	if err != nil {
		return nil, fmt.Errorf("save state: %w", err)
	}
	return s.MarshalBinary()
}

func (gb *GameBoy) snapshot() (*state.State, error) {
	cart := gb.mmu.Cartridge()
	rom := cart.ROM()
	r := gb.cpu.Registers()

	s := &state.State{
		Name: "gbcore v" + Version,
		Core: state.Core{
			Major: 1, Minor: 1,
			Model: gb.model(),
			PC:    r.PC, AF: r.AF(), BC: r.BC(), DE: r.DE(), HL: r.HL(), SP: r.SP,
			IME:    r.IME,
			IE:     gb.mmu.Read(addr.IE),
			RAM:    gb.mmu.WRAM(),
			VRAM:   gb.mmu.VRAM(),
			MBCRAM: cart.SaveRAM(),
			HRAM:   gb.mmu.HRAM(),
		},
	}
	copy(s.Title[:], rom[titleStart:])
	copy(s.Checksum[:], rom[checksumStart:])

	switch {
	case gb.cpu.Stopped():
		s.Core.Mode = state.Stopped
	case gb.cpu.Halted():
		s.Core.Mode = state.Halted
	}
	for i := range s.Core.IO {
		s.Core.IO[i] = gb.mmu.Read(addr.IOStart + uint16(i))
	}
	oam := gb.mmu.OAM()
	s.Core.OAM = oam[:]
	if gb.mode == CGB {
		// no color palette RAM is emulated
		s.Core.BGPalettes = make([]byte, state.PaletteSize)
		s.Core.OBJPalettes = make([]byte, state.PaletteSize)
	}

	for _, reg := range cart.BankRegisters() {
		s.MBC = append(s.MBC, state.Register{Address: reg.Address, Value: reg.Value})
	}

	for _, c := range gb.components() {
		data, err := c.s.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		s.Components = append(s.Components, state.Component{Name: c.name, Data: data})
	}
	s.Components = append(s.Components, state.Component{
		Name: systemComponent,
		Data: binary.LittleEndian.AppendUint64(nil, gb.cycles),
	})
	return s, nil
}

// LoadState restores a state written by SaveState, or the standard blocks
// of a BESS file from another emulator, onto the loaded cartridge. The
// title stored in the state must match the cartridge. On error the system
// is left as it was.
func (gb *GameBoy) LoadState(data []byte) error {
	if !gb.loaded {
		return ErrNoCartridge
	}
	s, err := state.Decode(data)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	cart := gb.mmu.Cartridge()
	if title := cart.ROM()[titleStart : titleStart+len(s.Title)]; !bytes.Equal(title, s.Title[:]) {
		return fmt.Errorf("load state: %w: state is for %q, cartridge is %q",
			state.ErrTitleMismatch, s.TitleString(), cart.Header().Title)
	}
	if s.Core.Model.IsCGB() != (gb.mode == CGB) {
		return fmt.Errorf("load state: model %q does not match %s mode", s.Core.Model, gb.mode)
	}

	backup, err := gb.snapshot()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := gb.restore(s); err != nil {
		if rerr := gb.restore(backup); rerr != nil {
			gb.logger.Error("state rollback failed", "error", rerr)
		}
		return fmt.Errorf("load state: %w", err)
	}

	gb.logger.Info("state loaded", "emulator", s.Name, "title", s.TitleString(), "exact", len(s.Components) > 0)
	return nil
}

func (gb *GameBoy) restore(s *state.State) error {
	cart := gb.mmu.Cartridge()
	gb.build(cart)

	if len(s.Components) > 0 {
		if err := gb.restoreComponents(s); err != nil {
			return err
		}
	} else {
		gb.restoreCore(s)
	}

	if err := cart.LoadRAM(s.Core.MBCRAM); err != nil {
		return err
	}
	if err := gb.mmu.SetWRAM(s.Core.RAM); err != nil {
		return err
	}
	if err := gb.mmu.SetVRAM(s.Core.VRAM); err != nil {
		return err
	}
	if err := gb.mmu.SetOAM(s.Core.OAM); err != nil {
		return err
	}
	return gb.mmu.SetHRAM(s.Core.HRAM)
}

func (gb *GameBoy) restoreComponents(s *state.State) error {
	for _, c := range gb.components() {
		data, ok := s.Component(c.name)
		if !ok {
			return fmt.Errorf("missing %s snapshot", c.name)
		}
		if err := c.s.UnmarshalBinary(data); err != nil {
			return err
		}
	}

	data, ok := s.Component(systemComponent)
	if !ok || len(data) != 8 {
		return fmt.Errorf("missing %s snapshot", systemComponent)
	}
	gb.cycles = binary.LittleEndian.Uint64(data)
	return nil
}

// restoreCore applies the standard blocks only. The IO page is replayed
// through the bus, which re-derives internal state from register values.
// Counters without a register (the DIV prescaler, the PPU dot) restart.
func (gb *GameBoy) restoreCore(s *state.State) {
	c := &s.Core
	for _, reg := range s.MBC {
		gb.mmu.Write(reg.Address, reg.Value)
	}

	// NR52 first, audio registers are read only while it is off
	gb.mmu.Write(addr.NR52, c.IO[addr.NR52-addr.IOStart])
	for i, v := range c.IO {
		switch a := addr.IOStart + uint16(i); a {
		case addr.DMA, addr.DIV, addr.LY, addr.IF, addr.NR52:
		default:
			gb.mmu.Write(a, v)
		}
	}
	gb.mmu.Write(addr.IF, c.IO[addr.IF-addr.IOStart])
	gb.mmu.Write(addr.IE, c.IE)

	gb.cpu.SetRegisters(cpu.Registers{
		A: bit.High(c.AF), F: bit.Low(c.AF),
		B: bit.High(c.BC), C: bit.Low(c.BC),
		D: bit.High(c.DE), E: bit.Low(c.DE),
		H: bit.High(c.HL), L: bit.Low(c.HL),
		SP: c.SP, PC: c.PC,
		IME:    c.IME,
		Halted: c.Mode == state.Halted,
	})
	if c.Mode == state.Stopped {
		gb.cpu.SetStopped()
	}
}
