// Package video implements the pixel processing unit: the scanline state
// machine, its registers and the DMG renderer.
package video

import (
	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
)

// Mode is the PPU mode as reported in STAT bits 1-0.
type Mode uint8

const (
	HBlank Mode = iota
	VBlank
	OAMScan
	PixelTransfer
)

func (m Mode) String() string {
	switch m {
	case HBlank:
		return "HBlank"
	case VBlank:
		return "VBlank"
	case OAMScan:
		return "OAMScan"
	case PixelTransfer:
		return "PixelTransfer"
	}
	return "Unknown"
}

const (
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	hblankCycles       = 204
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	vblankStartLine = 144
	linesPerFrame   = 154

	// FrameCycles is the number of master cycles in one full frame.
	FrameCycles = scanlineCycles * linesPerFrame
)

// LCDC (LCD Control) register bits
const (
	lcdcBGEnable        = 0
	lcdcSpriteEnable    = 1
	lcdcSpriteSize      = 2
	lcdcBGTileMap       = 3
	lcdcTileDataSelect  = 4
	lcdcWindowEnable    = 5
	lcdcWindowTileMap   = 6
	lcdcDisplayEnable   = 7
	statHBlankIRQ       = 3
	statVBlankIRQ       = 4
	statOAMIRQ          = 5
	statLYCIRQ          = 6
	statCoincidenceFlag = 2
)

// Memory is what the PPU needs from the MMU: VRAM and OAM reads and the
// interrupt controller.
type Memory interface {
	ReadVRAM(bank uint8, address uint16) byte
	ReadOAMForScan(index int) [4]byte
	RequestInterrupt(interrupt addr.Interrupt)
}

// PPU owns LCDC, STAT, SCY, SCX, LY, LYC, BGP, OBP0, OBP1, WY and WX.
type PPU struct {
	memory      Memory
	framebuffer *FrameBuffer

	lcdc, stat byte
	scy, scx   byte
	ly, lyc    byte
	bgp        byte
	obp0, obp1 byte
	wy, wx     byte

	mode       Mode
	dots       int
	windowLine int
	statLine   bool
	disabled   bool

	frames        uint64
	enteredVBlank bool

	shades     [PaletteSize]Color
	bgColors   [PaletteSize]Color
	obj0Colors [PaletteSize]Color
	obj1Colors [PaletteSize]Color

	lineBG      [FramebufferWidth]uint8
	lineSprites []Sprite
	priority    SpritePriorityBuffer
}

// New creates a PPU with the LCD off and the default palette.
func New(memory Memory) *PPU {
	p := &PPU{
		memory:      memory,
		framebuffer: NewFrameBuffer(DefaultPalette[0]),
		shades:      DefaultPalette,
		lineSprites: make([]Sprite, 0, maxSpritesPerLine),
		mode:        HBlank,
	}
	p.updatePalettes()
	return p
}

// Tick advances the PPU by the given amount of master cycles (dots).
// With the LCD off nothing happens.
func (p *PPU) Tick(cycles int) {
	if p.disabled || !p.lcdEnabled() {
		return
	}

	for range cycles {
		p.dots++

		switch p.mode {
		case OAMScan:
			if p.dots == oamScanlineCycles {
				p.setMode(PixelTransfer)
			}
		case PixelTransfer:
			if p.dots == oamScanlineCycles+vramScanlineCycles {
				p.renderScanline()
				p.setMode(HBlank)
			}
		case HBlank, VBlank:
			if p.dots == scanlineCycles {
				p.nextLine()
			}
		}
	}
}

func (p *PPU) nextLine() {
	p.dots = 0
	p.ly++

	switch {
	case p.ly == vblankStartLine:
		p.mode = VBlank
		p.frames++
		p.enteredVBlank = true
		p.memory.RequestInterrupt(addr.VBlankInterrupt)
	case p.ly == linesPerFrame:
		p.ly = 0
		p.windowLine = 0
		p.mode = OAMScan
	case p.ly < vblankStartLine:
		p.mode = OAMScan
	}
	p.updateStatLine()
}

func (p *PPU) setMode(mode Mode) {
	p.mode = mode
	p.updateStatLine()
}

// updateStatLine recomputes the STAT interrupt line and requests the
// interrupt on its rising edge only. A disabled PPU requests nothing.
func (p *PPU) updateStatLine() {
	if p.disabled {
		return
	}
	line := p.statSignal()
	if line && !p.statLine {
		p.memory.RequestInterrupt(addr.LCDSTATInterrupt)
	}
	p.statLine = line
}

func (p *PPU) statSignal() bool {
	return p.lcdEnabled() && ((p.ly == p.lyc && bit.IsSet(statLYCIRQ, p.stat)) ||
		(p.mode == HBlank && bit.IsSet(statHBlankIRQ, p.stat)) ||
		(p.mode == VBlank && bit.IsSet(statVBlankIRQ, p.stat)) ||
		(p.mode == OAMScan && bit.IsSet(statOAMIRQ, p.stat)))
}

// SetEnabled switches the unit on or off. While off Tick is a no-op and no
// interrupt is requested, register writes are still stored. Switching back
// on resumes from the frozen position with the STAT line resampled, so a
// condition that held while off raises no interrupt.
func (p *PPU) SetEnabled(on bool) {
	if p.disabled == !on {
		return
	}
	p.disabled = !on
	if on {
		p.statLine = p.statSignal()
	}
}

// Enabled reports whether the unit is switched on.
func (p *PPU) Enabled() bool { return !p.disabled }

func (p *PPU) lcdEnabled() bool {
	return bit.IsSet(lcdcDisplayEnable, p.lcdc)
}

func (p *PPU) setLCDC(value byte) {
	wasOn := p.lcdEnabled()
	p.lcdc = value

	switch {
	case wasOn && !p.lcdEnabled():
		p.ly = 0
		p.dots = 0
		p.windowLine = 0
		p.mode = HBlank
		p.statLine = false
	case !wasOn && p.lcdEnabled():
		p.ly = 0
		p.dots = 0
		p.windowLine = 0
		p.mode = OAMScan
		p.updateStatLine()
	}
}

// Read implements memory.Device for the LCD registers.
func (p *PPU) Read(address uint16) byte {
	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		coincidence := byte(0)
		if p.ly == p.lyc {
			coincidence = 1 << statCoincidenceFlag
		}
		return 0x80 | p.stat&0x78 | coincidence | byte(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	}
	return 0xFF
}

// Write implements memory.Device for the LCD registers. LY is read only.
func (p *PPU) Write(address uint16, value byte) {
	switch address {
	case addr.LCDC:
		p.setLCDC(value)
	case addr.STAT:
		p.stat = value & 0x78
		p.updateStatLine()
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
		p.updateStatLine()
	case addr.BGP:
		p.bgp = value
		p.updatePalettes()
	case addr.OBP0:
		p.obp0 = value
		p.updatePalettes()
	case addr.OBP1:
		p.obp1 = value
		p.updatePalettes()
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	}
}

// OAMBusy reports whether the PPU is reading OAM (scan or pixel transfer).
// A disabled PPU never holds OAM.
func (p *PPU) OAMBusy() bool {
	return !p.disabled && p.lcdEnabled() && (p.mode == OAMScan || p.mode == PixelTransfer)
}

// TakeVBlank reports whether VBlank was entered since the last call.
func (p *PPU) TakeVBlank() bool {
	entered := p.enteredVBlank
	p.enteredVBlank = false
	return entered
}

// LCDEnabled reports LCDC bit 7.
func (p *PPU) LCDEnabled() bool { return p.lcdEnabled() }

func (p *PPU) Mode() Mode                { return p.mode }
func (p *PPU) LY() uint8                 { return p.ly }
func (p *PPU) Dots() int                 { return p.dots }
func (p *PPU) Frames() uint64            { return p.frames }
func (p *PPU) FrameBuffer() *FrameBuffer { return p.framebuffer }
