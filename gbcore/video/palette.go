package video

import "fmt"

// Color is an 8 bit per channel RGB color.
type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// PaletteSize is the number of shades a DMG palette maps onto.
const PaletteSize = 4

// DefaultPalette goes from the lightest shade (index 0) to the darkest.
var DefaultPalette = [PaletteSize]Color{
	{R: 255, G: 255, B: 255},
	{R: 192, G: 192, B: 192},
	{R: 96, G: 96, B: 96},
	{R: 0, G: 0, B: 0},
}

// InvalidPaletteError is returned when a palette does not have exactly
// PaletteSize colors.
type InvalidPaletteError struct {
	Got  int
	Want int
}

func (e *InvalidPaletteError) Error() string {
	return fmt.Sprintf("invalid palette: got %d colors, want %d", e.Got, e.Want)
}

// mapPalette resolves a BGP/OBP style register: bits 2i+1..2i select the
// shade for color index i.
func mapPalette(register uint8, shades [PaletteSize]Color) [PaletteSize]Color {
	var out [PaletteSize]Color
	for i := range PaletteSize {
		out[i] = shades[(register>>(2*i))&0x03]
	}
	return out
}

// SetPaletteColors replaces the four shades and recomputes the background
// and object palettes. On error the palette is left unchanged.
func (p *PPU) SetPaletteColors(colors []Color) error {
	if len(colors) != PaletteSize {
		return &InvalidPaletteError{Got: len(colors), Want: PaletteSize}
	}
	copy(p.shades[:], colors)
	p.updatePalettes()
	return nil
}

// PaletteColors returns the current four shades.
func (p *PPU) PaletteColors() []Color {
	out := make([]Color, PaletteSize)
	copy(out, p.shades[:])
	return out
}

func (p *PPU) updatePalettes() {
	p.bgColors = mapPalette(p.bgp, p.shades)
	p.obj0Colors = mapPalette(p.obp0, p.shades)
	p.obj1Colors = mapPalette(p.obp1, p.shades)
}
