package video

import "github.com/valerio/gbcore/gbcore/bit"

// renderScanline draws line LY into the framebuffer: background, window,
// then sprites.
func (p *PPU) renderScanline() {
	line := int(p.ly)
	if line >= FramebufferHeight {
		return
	}

	p.drawBackground(line)
	if bit.IsSet(lcdcSpriteEnable, p.lcdc) {
		p.drawSprites(line)
	}
}

func (p *PPU) drawBackground(line int) {
	// on DMG, LCDC bit 0 blanks both background and window
	if !bit.IsSet(lcdcBGEnable, p.lcdc) {
		for x := range FramebufferWidth {
			p.lineBG[x] = 0
			p.framebuffer.SetPixel(x, line, p.bgColors[0])
		}
		return
	}

	windowX := int(p.wx) - 7
	windowVisible := bit.IsSet(lcdcWindowEnable, p.lcdc) && line >= int(p.wy) && windowX < FramebufferWidth

	bgMap := uint16(0x9800)
	if bit.IsSet(lcdcBGTileMap, p.lcdc) {
		bgMap = 0x9C00
	}
	windowMap := uint16(0x9800)
	if bit.IsSet(lcdcWindowTileMap, p.lcdc) {
		windowMap = 0x9C00
	}

	for x := range FramebufferWidth {
		var mapBase uint16
		var px, py int

		if windowVisible && x >= windowX {
			mapBase = windowMap
			px = x - windowX
			py = p.windowLine
		} else {
			mapBase = bgMap
			px = (x + int(p.scx)) & 0xFF
			py = (line + int(p.scy)) & 0xFF
		}

		tileNumber := p.memory.ReadVRAM(0, mapBase+uint16(py/8*32+px/8))
		row := p.fetchTileRow(p.bgTileAddress(tileNumber), py%8)
		color := row.GetPixel(px%8, false)

		p.lineBG[x] = color
		p.framebuffer.SetPixel(x, line, p.bgColors[color])
	}

	if windowVisible {
		p.windowLine++
	}
}

func (p *PPU) drawSprites(line int) {
	sprites := p.spritesForLine(line)
	if len(sprites) == 0 {
		return
	}

	height := p.spriteHeight()
	p.priority.Clear()

	for _, s := range sprites {
		row := line - s.Y
		if s.FlipY {
			row = height - 1 - row
		}

		tile := s.TileIndex
		if height == 16 {
			tile &= tallSpriteTileMask
		}
		data := p.fetchTileRow(0x8000+uint16(tile)*16, row)

		for px := range 8 {
			color := data.GetPixel(px, s.FlipX)
			if color == 0 {
				continue
			}
			p.priority.TryClaimPixel(s.X+px, s.OAMIndex, s.X, spritePixel{
				color:    color,
				obp1:     s.PaletteOBP1,
				behindBG: s.BehindBG,
			})
		}
	}

	for x := range FramebufferWidth {
		px, ok := p.priority.pixel(x)
		if !ok {
			continue
		}
		if px.behindBG && p.lineBG[x] != 0 {
			continue
		}

		colors := &p.obj0Colors
		if px.obp1 {
			colors = &p.obj1Colors
		}
		p.framebuffer.SetPixel(x, line, colors[px.color])
	}
}
