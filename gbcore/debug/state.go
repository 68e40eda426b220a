package debug

import (
	"fmt"

	"github.com/go-faster/jx"

	"github.com/valerio/gbcore/gbcore"
	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/cpu"
	"github.com/valerio/gbcore/gbcore/memory"
)

const (
	// memory window dumped around PC
	snapshotBefore = 16
	snapshotSize   = 64

	disassemblyCount = 8
)

// MemorySnapshot is a window of the address space as the CPU sees it.
type MemorySnapshot struct {
	StartAddr uint16
	Bytes     []uint8
}

// PPUState is the externally visible PPU state.
type PPUState struct {
	LY     uint8
	Mode   string
	LCDOn  bool
	Frames uint64
}

// State is a point in time view of a system, for diagnostics.
type State struct {
	Version   string
	ClockFreq string
	Mode      string
	Cycles    uint64

	Cartridge *memory.Header
	CPU       cpu.Registers
	PPU       PPUState

	InterruptEnable uint8
	InterruptFlags  uint8

	Enabled     map[string]bool
	Memory      MemorySnapshot
	Disassembly []Line
}

// Capture reads the state of gb. Memory is read through the bus, with the
// same visibility rules as the CPU.
func Capture(gb *gbcore.GameBoy) State {
	regs := gb.Registers()
	mmu := gb.MMU()
	ppu := gb.PPU()

	return State{
		Version:   gb.Version(),
		ClockFreq: gb.ClockFreqString(),
		Mode:      gb.Mode().String(),
		Cycles:    gb.Cycles(),
		Cartridge: gb.Cartridge(),
		CPU:       regs,
		PPU: PPUState{
			LY:     ppu.LY(),
			Mode:   ppu.Mode().String(),
			LCDOn:  ppu.LCDEnabled(),
			Frames: ppu.Frames(),
		},
		InterruptEnable: mmu.Read(addr.IE),
		InterruptFlags:  mmu.Read(addr.IF),
		Enabled: map[string]bool{
			"ppu":    gb.PPUEnabled(),
			"apu":    gb.APUEnabled(),
			"dma":    gb.DMAEnabled(),
			"timer":  gb.TimerEnabled(),
			"serial": gb.SerialEnabled(),
		},
		Memory:      snapshotAround(mmu, regs.PC),
		Disassembly: DisassembleRange(mmu, regs.PC, disassemblyCount),
	}
}

// snapshotAround never wraps past 0xFFFF: near the end of the address space
// the window is truncated.
func snapshotAround(mmu *memory.MMU, pc uint16) MemorySnapshot {
	start := uint16(0)
	if pc > snapshotBefore {
		start = pc - snapshotBefore
	}

	size := snapshotSize
	if uint32(start)+uint32(size) > 0x10000 {
		size = int(0x10000 - uint32(start))
	}

	bytes := make([]uint8, size)
	for i := range bytes {
		bytes[i] = mmu.Read(start + uint16(i))
	}
	return MemorySnapshot{StartAddr: start, Bytes: bytes}
}

func hex8(v uint8) string   { return fmt.Sprintf("0x%02X", v) }
func hex16(v uint16) string { return fmt.Sprintf("0x%04X", v) }

// Encode writes s as a JSON object.
func (s State) Encode(e *jx.Encoder) {
	e.ObjStart()

	e.FieldStart("version")
	e.Str(s.Version)
	e.FieldStart("clock_freq")
	e.Str(s.ClockFreq)
	e.FieldStart("mode")
	e.Str(s.Mode)
	e.FieldStart("cycles")
	e.UInt64(s.Cycles)

	e.FieldStart("cartridge")
	if h := s.Cartridge; h != nil {
		e.ObjStart()
		e.FieldStart("title")
		e.Str(h.Title)
		e.FieldStart("type")
		e.Str(h.CartTypeName())
		e.FieldStart("mapper")
		e.Str(h.Kind.String())
		e.FieldStart("rom_size")
		e.Int(h.ROMSize)
		e.FieldStart("ram_size")
		e.Int(h.RAMSize)
		e.FieldStart("checksum_ok")
		e.Bool(h.ChecksumOK)
		e.FieldStart("cgb")
		e.Bool(h.SupportsCGB())
		e.FieldStart("sgb")
		e.Bool(h.SupportsSGB())
		e.ObjEnd()
	} else {
		e.Null()
	}

	e.FieldStart("cpu")
	e.ObjStart()
	for _, r := range []struct {
		name  string
		value uint16
	}{
		{"af", s.CPU.AF()}, {"bc", s.CPU.BC()}, {"de", s.CPU.DE()}, {"hl", s.CPU.HL()},
		{"sp", s.CPU.SP}, {"pc", s.CPU.PC},
	} {
		e.FieldStart(r.name)
		e.Str(hex16(r.value))
	}
	e.FieldStart("ime")
	e.Bool(s.CPU.IME)
	e.FieldStart("halted")
	e.Bool(s.CPU.Halted)
	e.ObjEnd()

	e.FieldStart("ppu")
	e.ObjStart()
	e.FieldStart("ly")
	e.Int(int(s.PPU.LY))
	e.FieldStart("mode")
	e.Str(s.PPU.Mode)
	e.FieldStart("lcd_on")
	e.Bool(s.PPU.LCDOn)
	e.FieldStart("frames")
	e.UInt64(s.PPU.Frames)
	e.ObjEnd()

	e.FieldStart("ie")
	e.Str(hex8(s.InterruptEnable))
	e.FieldStart("if")
	e.Str(hex8(s.InterruptFlags))

	e.FieldStart("enabled")
	e.ObjStart()
	for _, name := range []string{"ppu", "apu", "dma", "timer", "serial"} {
		e.FieldStart(name)
		e.Bool(s.Enabled[name])
	}
	e.ObjEnd()

	e.FieldStart("memory")
	e.ObjStart()
	e.FieldStart("start")
	e.Str(hex16(s.Memory.StartAddr))
	e.FieldStart("bytes")
	e.ArrStart()
	for _, b := range s.Memory.Bytes {
		e.Int(int(b))
	}
	e.ArrEnd()
	e.ObjEnd()

	e.FieldStart("disassembly")
	e.ArrStart()
	for _, line := range s.Disassembly {
		e.Str(line.String())
	}
	e.ArrEnd()

	e.ObjEnd()
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	var e jx.Encoder
	s.Encode(&e)
	return e.Bytes(), nil
}
