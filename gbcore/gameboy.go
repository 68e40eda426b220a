// Package gbcore ties the CPU, PPU, APU, timer, DMA, serial port and MMU
// into a cycle stepped system.
package gbcore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/audio"
	"github.com/valerio/gbcore/gbcore/cpu"
	"github.com/valerio/gbcore/gbcore/dma"
	"github.com/valerio/gbcore/gbcore/memory"
	"github.com/valerio/gbcore/gbcore/serial"
	"github.com/valerio/gbcore/gbcore/timer"
	"github.com/valerio/gbcore/gbcore/video"
)

const (
	// Version of the emulator core.
	Version = "0.1.0"

	// CPUFreq is the master clock in Hz.
	CPUFreq = 4194304

	// MachineCycle is the number of master cycles in one machine cycle.
	MachineCycle = 4
)

// ErrNoCartridge is returned when stepping before a ROM was loaded.
var ErrNoCartridge = errors.New("no cartridge loaded")

// GameBoy owns every component and steps them in lockstep. It is not safe
// for concurrent use, distinct values are independent.
type GameBoy struct {
	mode Mode

	cpu    *cpu.CPU
	mmu    *memory.MMU
	ppu    *video.PPU
	apu    *audio.APU
	timer  *timer.Timer
	dma    *dma.DMA
	serial *serial.Serial

	ppuEnabled    bool
	apuEnabled    bool
	dmaEnabled    bool
	timerEnabled  bool
	serialEnabled bool

	sampleRate   int
	serialDevice serial.SerialDevice
	palette      []video.Color
	rtcClock     memory.Clock
	logger       *slog.Logger

	loaded bool
	cycles uint64
}

// New creates a system with no cartridge. Stepping it returns
// ErrNoCartridge until LoadROM succeeds.
func New(opts ...Option) *GameBoy {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Mode < DMG || o.Mode > SGB {
		o.Mode = DMG
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if len(o.Palette) != video.PaletteSize {
		o.Palette = video.DefaultPalette[:]
	}

	gb := &GameBoy{
		mode:          o.Mode,
		ppuEnabled:    o.PPU,
		apuEnabled:    o.APU,
		dmaEnabled:    o.DMA,
		timerEnabled:  o.Timer,
		serialEnabled: o.Serial,
		sampleRate:    o.SampleRate,
		serialDevice:  o.SerialDevice,
		palette:       append([]video.Color(nil), o.Palette...),
		rtcClock:      o.RTCClock,
		logger:        o.Logger,
	}
	gb.build(nil)
	return gb
}

// build wires a fresh set of components around cart. The CPU comes last:
// it writes the post-boot register values through the mapped devices.
func (gb *GameBoy) build(cart *memory.Cartridge) {
	mmuOpts := []memory.Option{memory.WithLogger(gb.logger)}
	if gb.mode == CGB {
		mmuOpts = append(mmuOpts, memory.WithCGB())
	}
	gb.mmu = memory.New(mmuOpts...)

	gb.timer = timer.New(func() { gb.mmu.RequestInterrupt(addr.TimerInterrupt) })
	gb.timer.SetSeed(timer.DMGDivSeed)

	gb.serial = serial.New(
		func() { gb.mmu.RequestInterrupt(addr.SerialInterrupt) },
		serial.WithDevice(gb.serialDevice),
		serial.WithLogger(gb.logger),
	)

	gb.apu = audio.New(audio.WithSampleRate(gb.sampleRate), audio.WithLogger(gb.logger))

	gb.dma = dma.New(gb.mmu, gb.logger)
	gb.dma.SetEnabled(gb.dmaEnabled)

	gb.ppu = video.New(gb.mmu)
	gb.ppu.SetEnabled(gb.ppuEnabled)
	// palette length is checked by New and SetPaletteColors
	_ = gb.ppu.SetPaletteColors(gb.palette)

	gb.mmu.MapDevice(addr.DIV, addr.TAC, gb.timer)
	gb.mmu.MapDevice(addr.SB, addr.SC, gb.serial)
	gb.mmu.MapDevice(addr.AudioStart, addr.AudioEnd, gb.apu)
	gb.mmu.MapDevice(addr.DMA, addr.DMA, gb.dma)
	gb.mmu.MapDevice(addr.LCDC, addr.LYC, gb.ppu)
	gb.mmu.MapDevice(addr.BGP, addr.WX, gb.ppu)
	gb.mmu.SetOAMGate(gb.ppu.OAMBusy)

	if cart != nil {
		gb.mmu.InsertCartridge(cart)
	}

	gb.cpu = cpu.New(gb.mmu, cpu.WithBootState(bootState(gb.mode)))
	gb.cycles = 0
}

func bootState(m Mode) cpu.BootState {
	switch m {
	case CGB:
		return cpu.CGBBootState
	case SGB:
		return cpu.SGBBootState
	}
	return cpu.DMGBootState
}

// LoadROM parses data and resets the system around the new cartridge. On
// error the system is left unloaded, with no cartridge inserted; the error
// wraps a *memory.LoadError or a *memory.UnsupportedMapperError.
func (gb *GameBoy) LoadROM(data []byte) error {
	cart, err := memory.LoadCartridge(data, gb.cartridgeOptions()...)
	if err != nil {
		gb.build(nil)
		gb.loaded = false
		return fmt.Errorf("load rom: %w", err)
	}

	h := cart.Header()
	if !h.ChecksumOK {
		gb.logger.Warn("header checksum mismatch", "title", h.Title, "checksum", h.HeaderChecksum)
	}

	gb.build(cart)
	gb.loaded = true
	gb.logger.Info("cartridge loaded",
		"title", h.Title,
		"mapper", h.Kind.String(),
		"rom_size", h.ROMSize,
		"ram_size", h.RAMSize,
		"mode", gb.mode.String())
	return nil
}

// Reset restarts the loaded cartridge from the post-boot state. Battery RAM
// survives the reset.
func (gb *GameBoy) Reset() error {
	if !gb.loaded {
		return ErrNoCartridge
	}
	cart := gb.mmu.Cartridge()
	saved := cart.SaveRAM()

	reloaded, err := memory.LoadCartridge(cart.ROM(), gb.cartridgeOptions()...)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if len(saved) > 0 {
		if err := reloaded.LoadRAM(saved); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	gb.build(reloaded)
	return nil
}

func (gb *GameBoy) cartridgeOptions() []memory.CartridgeOption {
	if gb.rtcClock == nil {
		return nil
	}
	return []memory.CartridgeOption{memory.WithClock(gb.rtcClock)}
}

// Clock runs one CPU step (an instruction, an interrupt dispatch or one
// halted machine cycle) and the matching machine cycles of every enabled
// component. It returns the master cycles consumed.
func (gb *GameBoy) Clock() (int, error) {
	return gb.step()
}

// ClockM runs whole steps until at least count machine cycles elapsed and
// returns the master cycles actually consumed.
func (gb *GameBoy) ClockM(count int) (int, error) {
	return gb.Clocks(count * MachineCycle)
}

// Clocks runs whole steps until at least count master cycles elapsed and
// returns the exact total, which may exceed count by the tail of the last
// instruction.
func (gb *GameBoy) Clocks(count int) (int, error) {
	total := 0
	for total < count {
		cycles, err := gb.step()
		total += cycles
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NextFrame runs until the PPU enters VBlank. With the PPU disabled, or the
// LCD off, it stops after one frame worth of cycles instead.
func (gb *GameBoy) NextFrame() (int, error) {
	// drop a VBlank entered by a previous partial step call
	gb.ppu.TakeVBlank()

	total := 0
	for {
		cycles, err := gb.step()
		total += cycles
		if err != nil {
			return total, err
		}

		if gb.ppuEnabled && gb.ppu.TakeVBlank() {
			return total, nil
		}
		if (!gb.ppuEnabled || !gb.ppu.LCDEnabled()) && total >= video.FrameCycles {
			return total, nil
		}
	}
}

func (gb *GameBoy) step() (int, error) {
	if !gb.loaded {
		return 0, ErrNoCartridge
	}

	cycles, err := gb.cpu.Exec()
	if err != nil {
		return 0, err
	}

	for range cycles / MachineCycle {
		gb.tickMachineCycle()
	}
	gb.cycles += uint64(cycles)
	return cycles, nil
}

// tickMachineCycle advances every enabled component by one machine cycle,
// always in the same order.
func (gb *GameBoy) tickMachineCycle() {
	if gb.timerEnabled {
		gb.timer.Tick(MachineCycle)
	}
	if gb.dmaEnabled {
		gb.dma.Tick()
	}
	if gb.serialEnabled {
		gb.serial.Tick(MachineCycle)
	}
	if gb.apuEnabled {
		gb.apu.Tick(MachineCycle)
	}
	if gb.ppuEnabled {
		gb.ppu.Tick(MachineCycle)
	}
}

// FrameBuffer returns the 160x144 RGB framebuffer. The slice aliases the
// PPU buffer and changes with the next step.
func (gb *GameBoy) FrameBuffer() []byte {
	return gb.ppu.FrameBuffer().ToSlice()
}

// SetPaletteColors replaces the four DMG shades. Any other count returns a
// *video.InvalidPaletteError and keeps the current palette.
func (gb *GameBoy) SetPaletteColors(colors []video.Color) error {
	if err := gb.ppu.SetPaletteColors(colors); err != nil {
		return err
	}
	gb.palette = append(gb.palette[:0], colors...)
	return nil
}

// PaletteColors returns the four DMG shades in use.
func (gb *GameBoy) PaletteColors() []video.Color { return gb.ppu.PaletteColors() }

func (gb *GameBoy) PPUEnabled() bool    { return gb.ppuEnabled }
func (gb *GameBoy) APUEnabled() bool    { return gb.apuEnabled }
func (gb *GameBoy) DMAEnabled() bool    { return gb.dmaEnabled }
func (gb *GameBoy) TimerEnabled() bool  { return gb.timerEnabled }
func (gb *GameBoy) SerialEnabled() bool { return gb.serialEnabled }

// SetPPUEnabled toggles the PPU. While off it is neither ticked nor able
// to request VBlank or STAT interrupts, register writes still land.
func (gb *GameBoy) SetPPUEnabled(on bool) {
	gb.ppuEnabled = on
	gb.ppu.SetEnabled(on)
}

func (gb *GameBoy) SetAPUEnabled(on bool)    { gb.apuEnabled = on }
func (gb *GameBoy) SetTimerEnabled(on bool)  { gb.timerEnabled = on }
func (gb *GameBoy) SetSerialEnabled(on bool) { gb.serialEnabled = on }

// SetDMAEnabled toggles the DMA unit. Turning it off aborts a running
// transfer and unlocks the bus.
func (gb *GameBoy) SetDMAEnabled(on bool) {
	gb.dmaEnabled = on
	gb.dma.SetEnabled(on)
}

// Version returns the core version.
func (gb *GameBoy) Version() string { return Version }

// ClockFreq returns the master clock frequency in Hz.
func (gb *GameBoy) ClockFreq() int { return CPUFreq }

// ClockFreqString formats ClockFreq in MHz, e.g. "4.19 MHz".
func (gb *GameBoy) ClockFreqString() string {
	return fmt.Sprintf("%.2f MHz", float64(CPUFreq)/1e6)
}

func (gb *GameBoy) Mode() Mode { return gb.mode }

// Press and Release update the joypad state, a press may request the
// joypad interrupt.
func (gb *GameBoy) Press(key memory.JoypadKey)   { gb.mmu.HandleKeyPress(key) }
func (gb *GameBoy) Release(key memory.JoypadKey) { gb.mmu.HandleKeyRelease(key) }

// AudioSamples drains interleaved stereo samples into out and returns the
// number of int16 values written.
func (gb *GameBoy) AudioSamples(out []int16) int { return gb.apu.ReadSamples(out) }

// SampleRate returns the audio output rate in Hz.
func (gb *GameBoy) SampleRate() int { return gb.apu.SampleRate() }

// SaveRAM returns a copy of battery backed cartridge RAM, nil when the
// cartridge has none.
func (gb *GameBoy) SaveRAM() []byte {
	cart := gb.mmu.Cartridge()
	if cart == nil || !cart.HasBattery() {
		return nil
	}
	return cart.SaveRAM()
}

// LoadRAM restores cartridge RAM saved by SaveRAM.
func (gb *GameBoy) LoadRAM(data []byte) error {
	cart := gb.mmu.Cartridge()
	if cart == nil {
		return ErrNoCartridge
	}
	return cart.LoadRAM(data)
}

// Cartridge returns the header of the loaded cartridge, nil if none.
func (gb *GameBoy) Cartridge() *memory.Header {
	if cart := gb.mmu.Cartridge(); cart != nil {
		return cart.Header()
	}
	return nil
}

// Registers returns a snapshot of the CPU registers.
func (gb *GameBoy) Registers() cpu.Registers { return gb.cpu.Registers() }

// Cycles returns the master cycles run since the last load or reset.
func (gb *GameBoy) Cycles() uint64 { return gb.cycles }

// Component accessors for diagnostics.
func (gb *GameBoy) CPU() *cpu.CPU          { return gb.cpu }
func (gb *GameBoy) MMU() *memory.MMU       { return gb.mmu }
func (gb *GameBoy) PPU() *video.PPU        { return gb.ppu }
func (gb *GameBoy) APU() *audio.APU        { return gb.apu }
func (gb *GameBoy) Timer() *timer.Timer    { return gb.timer }
func (gb *GameBoy) DMA() *dma.DMA          { return gb.dma }
func (gb *GameBoy) Serial() *serial.Serial { return gb.serial }
