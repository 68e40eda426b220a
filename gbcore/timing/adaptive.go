package timing

import (
	"log/slog"
	"time"
)

// maxLag is how far behind schedule the limiter may fall before it stops
// trying to catch up.
const maxLag = 5 * time.Millisecond

// AdaptiveLimiter sleeps until the next frame deadline. Deadlines advance by
// a fixed step, so sleep overshoot on one frame is absorbed by the next.
type AdaptiveLimiter struct {
	frameTime     time.Duration
	nextFrameTime time.Time
	frameCounter  int64

	now   func() time.Time
	sleep func(time.Duration)
}

// NewAdaptiveLimiter returns a limiter running at speed times the hardware
// frame rate.
func NewAdaptiveLimiter(speed float64) *AdaptiveLimiter {
	a := &AdaptiveLimiter{
		frameTime: ScaledFrameDuration(speed),
		now:       time.Now,
		sleep:     time.Sleep,
	}
	a.Reset()
	return a
}

func (a *AdaptiveLimiter) WaitForNextFrame() {
	now := a.now()
	wait := a.nextFrameTime.Sub(now)

	switch {
	case wait > 0:
		a.sleep(wait)
	case wait < -maxLag:
		slog.Debug("frame limiter behind schedule, resyncing", "lag_ms", (-wait).Milliseconds())
		a.nextFrameTime = now
	}

	a.nextFrameTime = a.nextFrameTime.Add(a.frameTime)
	a.frameCounter++
}

func (a *AdaptiveLimiter) Reset() {
	a.nextFrameTime = a.now()
	a.frameCounter = 0
}

// Frames returns the number of frames waited for since the last reset.
func (a *AdaptiveLimiter) Frames() int64 { return a.frameCounter }
