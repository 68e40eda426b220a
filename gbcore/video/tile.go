package video

import "github.com/valerio/gbcore/gbcore/bit"

// TileRow represents one row of a tile pattern (8 pixels).
//
// Game Boy tiles are 8x8 pixels, with 2 bits per pixel allowing 4 colors.
// Each tile row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a pixel color index (0-3) from the tile row.
// pixelX should be 0-7, where 0 is the leftmost pixel.
func (t TileRow) GetPixel(pixelX int, flipX bool) uint8 {
	bitIndex := uint8(7 - pixelX)
	if flipX {
		bitIndex = uint8(pixelX)
	}

	return bit.Value(bitIndex, t.Low) | bit.Value(bitIndex, t.High)<<1
}

// fetchTileRow reads row of the tile whose data starts at tileAddr.
func (p *PPU) fetchTileRow(tileAddr uint16, row int) TileRow {
	a := tileAddr + uint16(row*2)
	return TileRow{
		Low:  p.memory.ReadVRAM(0, a),
		High: p.memory.ReadVRAM(0, a+1),
	}
}

// bgTileAddress resolves a tile number from a background or window map
// according to the LCDC addressing mode: 0x8000 unsigned or 0x9000 signed.
func (p *PPU) bgTileAddress(tileNumber uint8) uint16 {
	if bit.IsSet(lcdcTileDataSelect, p.lcdc) {
		return 0x8000 + uint16(tileNumber)*16
	}
	return uint16(int32(0x9000) + int32(int8(tileNumber))*16)
}
