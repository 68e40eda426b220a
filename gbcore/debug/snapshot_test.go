package debug

import (
	"bytes"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/gbcore/gbcore/video"
)

func TestEncodePNG(t *testing.T) {
	frame := make([]byte, video.FramebufferSize)
	// pixel (3, 2)
	i := (2*video.FramebufferWidth + 3) * 3
	frame[i], frame[i+1], frame[i+2] = 0x9B, 0xBC, 0x0F

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, frame))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, video.FramebufferWidth, img.Bounds().Dx())
	assert.Equal(t, video.FramebufferHeight, img.Bounds().Dy())

	r, g, b, a := img.At(3, 2).RGBA()
	assert.Equal(t, []uint32{0x9B, 0xBC, 0x0F, 0xFF}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})

	r, _, _, _ = img.At(0, 0).RGBA()
	assert.Zero(t, r)
}

func TestEncodePNGRejectsBadSize(t *testing.T) {
	err := EncodePNG(&bytes.Buffer{}, make([]byte, 10))
	assert.Error(t, err)
}

func TestSaveFramePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, SaveFramePNG(path, make([]byte, video.FramebufferSize)))

	err := SaveFramePNG(filepath.Join(t.TempDir(), "missing", "frame.png"), make([]byte, video.FramebufferSize))
	assert.Error(t, err)
}
