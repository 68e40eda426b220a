package video

import "github.com/valerio/gbcore/gbcore/bit"

const (
	spriteCount        = 40
	maxSpritesPerLine  = 10
	spriteYOffset      = 16
	spriteXOffset      = 8
	attrPaletteOBP1    = 4
	attrFlipX          = 5
	attrFlipY          = 6
	attrBehindBG       = 7
	tallSpriteTileMask = 0xFE
)

// Sprite is one decoded OAM entry.
type Sprite struct {
	Y         int // screen position, without the +16 offset
	X         int // screen position, without the +8 offset
	TileIndex uint8
	Flags     uint8
	OAMIndex  int

	PaletteOBP1 bool
	FlipX       bool
	FlipY       bool
	BehindBG    bool
}

func decodeSprite(index int, raw [4]byte) Sprite {
	return Sprite{
		Y:           int(raw[0]) - spriteYOffset,
		X:           int(raw[1]) - spriteXOffset,
		TileIndex:   raw[2],
		Flags:       raw[3],
		OAMIndex:    index,
		PaletteOBP1: bit.IsSet(attrPaletteOBP1, raw[3]),
		FlipX:       bit.IsSet(attrFlipX, raw[3]),
		FlipY:       bit.IsSet(attrFlipY, raw[3]),
		BehindBG:    bit.IsSet(attrBehindBG, raw[3]),
	}
}

// spriteHeight returns 8 or 16 depending on LCDC bit 2.
func (p *PPU) spriteHeight() int {
	if bit.IsSet(lcdcSpriteSize, p.lcdc) {
		return 16
	}
	return 8
}

// spritesForLine selects the sprites overlapping line, in OAM order, up to
// the hardware limit of 10. Sprites hidden off the sides still count.
func (p *PPU) spritesForLine(line int) []Sprite {
	sprites := p.lineSprites[:0]
	height := p.spriteHeight()

	for i := range spriteCount {
		raw := p.memory.ReadOAMForScan(i)
		y := int(raw[0]) - spriteYOffset
		if line < y || line >= y+height {
			continue
		}

		sprites = append(sprites, decodeSprite(i, raw))
		if len(sprites) == maxSpritesPerLine {
			break
		}
	}
	return sprites
}

// Sprites decodes all 40 OAM entries, for debug views.
func (p *PPU) Sprites() []Sprite {
	out := make([]Sprite, spriteCount)
	for i := range spriteCount {
		out[i] = decodeSprite(i, p.memory.ReadOAMForScan(i))
	}
	return out
}
