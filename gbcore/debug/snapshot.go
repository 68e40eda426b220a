// Package debug holds diagnostics for a running system: PNG snapshots of
// the framebuffer and a JSON dump of the machine state.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/valerio/gbcore/gbcore/video"
)

const rgbaBytesPerPixel = 4

// EncodePNG writes an RGB framebuffer, as returned by GameBoy.FrameBuffer,
// as a 160x144 PNG.
func EncodePNG(w io.Writer, frame []byte) error {
	if len(frame) != video.FramebufferSize {
		return fmt.Errorf("framebuffer is %d bytes, want %d", len(frame), video.FramebufferSize)
	}

	img := image.NewRGBA(image.Rect(0, 0, video.FramebufferWidth, video.FramebufferHeight))
	for i := 0; i < video.FramebufferWidth*video.FramebufferHeight; i++ {
		idx := i * rgbaBytesPerPixel
		img.Pix[idx] = frame[i*3]
		img.Pix[idx+1] = frame[i*3+1]
		img.Pix[idx+2] = frame[i*3+2]
		img.Pix[idx+3] = 0xFF
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// SaveFramePNG writes frame as a PNG file at path.
func SaveFramePNG(path string, frame []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}

	if err := EncodePNG(file, frame); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	slog.Info("Snapshot saved", "path", path, "size", fmt.Sprintf("%dx%d", video.FramebufferWidth, video.FramebufferHeight))
	return nil
}
