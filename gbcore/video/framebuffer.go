package video

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144

	// FramebufferSize is the length of the RGB byte buffer.
	FramebufferSize = FramebufferWidth * FramebufferHeight * 3
)

// FrameBuffer holds one frame as packed 8 bit RGB triplets, row major.
type FrameBuffer struct {
	buffer [FramebufferSize]byte
}

// NewFrameBuffer creates a frame buffer filled with color.
func NewFrameBuffer(color Color) *FrameBuffer {
	fb := &FrameBuffer{}
	fb.Fill(color)
	return fb
}

func (fb *FrameBuffer) GetPixel(x, y int) Color {
	i := (y*FramebufferWidth + x) * 3
	return Color{R: fb.buffer[i], G: fb.buffer[i+1], B: fb.buffer[i+2]}
}

func (fb *FrameBuffer) SetPixel(x, y int, color Color) {
	i := (y*FramebufferWidth + x) * 3
	fb.buffer[i] = color.R
	fb.buffer[i+1] = color.G
	fb.buffer[i+2] = color.B
}

// Fill sets every pixel to color.
func (fb *FrameBuffer) Fill(color Color) {
	for i := 0; i < FramebufferSize; i += 3 {
		fb.buffer[i] = color.R
		fb.buffer[i+1] = color.G
		fb.buffer[i+2] = color.B
	}
}

// ToSlice returns the underlying RGB bytes. The slice aliases the buffer.
func (fb *FrameBuffer) ToSlice() []byte {
	return fb.buffer[:]
}
