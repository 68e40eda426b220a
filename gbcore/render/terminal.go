// Package render previews the framebuffer in a terminal.
package render

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/gbcore/gbcore"
	"github.com/valerio/gbcore/gbcore/memory"
	"github.com/valerio/gbcore/gbcore/timing"
	"github.com/valerio/gbcore/gbcore/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	// terminals have no key-up event, a key stays pressed for this many
	// frames after its last repeat
	keyHoldFrames = 6
)

// upper half block: foreground is the top pixel, background the bottom one
const halfBlock = '▀'

var keymap = map[tcell.Key]memory.JoypadKey{
	tcell.KeyEnter: memory.JoypadStart,
	tcell.KeyRight: memory.JoypadRight,
	tcell.KeyLeft:  memory.JoypadLeft,
	tcell.KeyUp:    memory.JoypadUp,
	tcell.KeyDown:  memory.JoypadDown,
}

var runemap = map[rune]memory.JoypadKey{
	'a': memory.JoypadA,
	's': memory.JoypadB,
	'q': memory.JoypadSelect,
}

// Terminal draws frames of a GameBoy with two pixels per character cell and
// forwards arrow keys, Enter, a, s and q to the joypad.
type Terminal struct {
	screen  tcell.Screen
	gb      *gbcore.GameBoy
	limiter timing.Limiter

	held   map[memory.JoypadKey]int
	events chan tcell.Event
}

// NewTerminal takes ownership of screen, which must not be initialized yet.
// A nil screen opens the controlling terminal.
func NewTerminal(gb *gbcore.GameBoy, screen tcell.Screen, limiter timing.Limiter) (*Terminal, error) {
	if screen == nil {
		var err error
		screen, err = tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize terminal: %w", err)
		}
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if limiter == nil {
		limiter = timing.NewNoOpLimiter()
	}

	return &Terminal{
		screen:  screen,
		gb:      gb,
		limiter: limiter,
		held:    make(map[memory.JoypadKey]int),
		events:  make(chan tcell.Event, 16),
	}, nil
}

// Run emulates and draws frames until ctx is done, Esc or Ctrl-C is
// pressed, maxFrames frames were drawn (0 means no limit) or a step fails.
func (t *Terminal) Run(ctx context.Context, maxFrames int) error {
	defer func() {
		slog.Info("Finishing terminal")
		t.screen.Fini()
	}()

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	quit := make(chan struct{})
	defer close(quit)
	go t.pollEvents(quit)

	t.limiter.Reset()
	for frame := 0; maxFrames == 0 || frame < maxFrames; frame++ {
		if stop := t.drainEvents(ctx); stop {
			return nil
		}

		if _, err := t.gb.NextFrame(); err != nil {
			return err
		}
		t.releaseKeys()
		t.Draw(t.gb.FrameBuffer())
		t.screen.Show()

		t.limiter.WaitForNextFrame()
	}
	return nil
}

func (t *Terminal) pollEvents(quit <-chan struct{}) {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case t.events <- ev:
		case <-quit:
			return
		}
	}
}

// drainEvents applies pending input without blocking. It reports whether
// the preview should stop.
func (t *Terminal) drainEvents(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case ev := <-t.events:
			if t.handleEvent(ev) {
				return true
			}
		default:
			return false
		}
	}
}

func (t *Terminal) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRune:
			if key, ok := runemap[ev.Rune()]; ok {
				t.press(key)
			}
		default:
			if key, ok := keymap[ev.Key()]; ok {
				t.press(key)
			}
		}
	case *tcell.EventResize:
		t.screen.Sync()
	}
	return false
}

func (t *Terminal) press(key memory.JoypadKey) {
	if _, down := t.held[key]; !down {
		t.gb.Press(key)
	}
	t.held[key] = keyHoldFrames
}

func (t *Terminal) releaseKeys() {
	for key, frames := range t.held {
		if frames <= 1 {
			t.gb.Release(key)
			delete(t.held, key)
			continue
		}
		t.held[key] = frames - 1
	}
}

// Draw renders an RGB framebuffer onto the screen, without showing it.
func (t *Terminal) Draw(frame []byte) {
	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			style := tcell.StyleDefault.
				Foreground(pixelColor(frame, x, y)).
				Background(pixelColor(frame, x, y+1))
			t.screen.SetContent(x, y/2, halfBlock, nil, style)
		}
	}
}

func pixelColor(frame []byte, x, y int) tcell.Color {
	i := (y*width + x) * 3
	return tcell.NewRGBColor(int32(frame[i]), int32(frame[i+1]), int32(frame[i+2]))
}
