package video

// spritePixel is an opaque sprite pixel waiting to be mixed with the
// background.
type spritePixel struct {
	color    uint8
	obp1     bool
	behindBG bool
}

// SpritePriorityBuffer resolves which sprite is drawn at each pixel of a
// scanline in DMG mode, see https://gbdev.io/pandocs/OAM.html#drawing-priority.
//
//   - sprites with lower X coordinates have priority
//   - when X coordinates match, lower OAM indices win.
//
// Only opaque pixels are claimed, so a transparent pixel of the winning
// sprite lets the next sprite underneath show through.
//
//	Pixels:     0  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15 16 17
//	Sprite 0:                  [-----A-----]                    (X=5, OAM=0)
//	Sprite 1:                           [-----B-----]           (X=10, OAM=1)
//	Result:                    [-----A-----]--B-----]
//
// Instead of sorting sprites by priority, each pixel keeps its current owner
// and a sprite claims a pixel only if it beats that owner.
type SpritePriorityBuffer struct {
	// -1 means no sprite owns this pixel
	ownerIndex [FramebufferWidth]int
	ownerX     [FramebufferWidth]int
	pixels     [FramebufferWidth]spritePixel
}

// Clear resets the buffer for a new scanline
func (s *SpritePriorityBuffer) Clear() {
	for i := range FramebufferWidth {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel attempts to claim ownership of a pixel for a sprite.
// Returns true if the sprite wins priority and claims the pixel.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int, px spritePixel) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	currentOwner := s.ownerIndex[pixelX]
	currentX := s.ownerX[pixelX]

	wins := currentOwner == -1 ||
		spriteX < currentX ||
		(spriteX == currentX && spriteIndex < currentOwner)
	if !wins {
		return false
	}

	s.ownerIndex[pixelX] = spriteIndex
	s.ownerX[pixelX] = spriteX
	s.pixels[pixelX] = px
	return true
}

// GetOwner returns the sprite index that owns a pixel, or -1 if none
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}

func (s *SpritePriorityBuffer) pixel(pixelX int) (spritePixel, bool) {
	if s.GetOwner(pixelX) == -1 {
		return spritePixel{}, false
	}
	return s.pixels[pixelX], true
}
