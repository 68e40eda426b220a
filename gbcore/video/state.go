package video

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type ppuState struct {
	LCDC, STAT    byte
	SCY, SCX      byte
	LY, LYC       byte
	BGP           byte
	OBP0, OBP1    byte
	WY, WX        byte
	Mode          Mode
	Dots          int32
	WindowLine    int32
	StatLine      bool
	Frames        uint64
	EnteredVBlank bool
	Framebuffer   [FramebufferSize]byte
}

// MarshalBinary encodes the registers, the scanline position and the last
// rendered frame. The palette shades are configuration and not included.
func (p *PPU) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.LittleEndian, ppuState{
		LCDC:          p.lcdc,
		STAT:          p.stat,
		SCY:           p.scy,
		SCX:           p.scx,
		LY:            p.ly,
		LYC:           p.lyc,
		BGP:           p.bgp,
		OBP0:          p.obp0,
		OBP1:          p.obp1,
		WY:            p.wy,
		WX:            p.wx,
		Mode:          p.mode,
		Dots:          int32(p.dots),
		WindowLine:    int32(p.windowLine),
		StatLine:      p.statLine,
		Frames:        p.frames,
		EnteredVBlank: p.enteredVBlank,
		Framebuffer:   p.framebuffer.buffer,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (p *PPU) UnmarshalBinary(data []byte) error {
	var s ppuState
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &s); err != nil {
		return fmt.Errorf("ppu state: %w", err)
	}
	if s.Mode > PixelTransfer || s.LY >= linesPerFrame || s.Dots < 0 || s.Dots >= scanlineCycles {
		return fmt.Errorf("ppu state: position out of range: mode %d line %d dot %d", s.Mode, s.LY, s.Dots)
	}

	p.lcdc, p.stat = s.LCDC, s.STAT&0x78
	p.scy, p.scx = s.SCY, s.SCX
	p.ly, p.lyc = s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.mode = s.Mode
	p.dots = int(s.Dots)
	p.windowLine = int(s.WindowLine)
	p.statLine = s.StatLine
	p.frames = s.Frames
	p.enteredVBlank = s.EnteredVBlank
	p.framebuffer.buffer = s.Framebuffer
	p.updatePalettes()
	return nil
}
