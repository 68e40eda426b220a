// Package timing paces emulation to the speed of real hardware.
package timing

import (
	"time"

	"github.com/valerio/gbcore/gbcore"
	"github.com/valerio/gbcore/gbcore/video"
)

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return noOpLimiter{}
}

type noOpLimiter struct{}

func (noOpLimiter) WaitForNextFrame() {}
func (noOpLimiter) Reset()            {}

// TargetFPS is the exact frame rate of the LCD, about 59.73 Hz.
func TargetFPS() float64 {
	return float64(gbcore.CPUFreq) / float64(video.FrameCycles)
}

// FrameDuration returns the target duration of a single frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// ScaledFrameDuration is FrameDuration at the given speed multiplier.
// Non-positive speeds run at normal speed.
func ScaledFrameDuration(speed float64) time.Duration {
	if speed <= 0 {
		speed = 1
	}
	return time.Duration(float64(FrameDuration()) / speed)
}
