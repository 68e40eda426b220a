package timer

import (
	"github.com/valerio/gbcore/gbcore/addr"
	"github.com/valerio/gbcore/gbcore/bit"
)

// tacLookup maps TAC input clock select (bits 1-0) to the bit position
// of the 16-bit internal divider used as the timer's clock source.
// The timer increments on falling edges of this bit ANDed with the
// enable bit (TAC bit 2).
//
//	00 -> bit 9  (4096 Hz)
//	01 -> bit 3  (262144 Hz)
//	10 -> bit 5  (65536 Hz)
//	11 -> bit 7  (16384 Hz)
var tacLookup = [4]uint8{9, 3, 5, 7}

// overflowCycles is how long TIMA reads 0x00 after overflowing,
// one machine cycle.
const overflowCycles = 4

// DMGDivSeed is the divider value right after the DMG boot ROM hands over.
const DMGDivSeed uint16 = 0xABCC

// Timer encapsulates the DIV/TIMA/TMA/TAC behavior.
type Timer struct {
	systemCounter uint16 // DIV is the upper 8 bits
	lastSignal    bool   // enable AND selected counter bit, for edge detection
	overflow      int    // cycles left before TIMA <- TMA

	tima byte
	tma  byte
	tac  byte

	requestInterrupt func()
}

// New returns a timer calling irq when TIMA is reloaded after an overflow.
func New(irq func()) *Timer {
	return &Timer{requestInterrupt: irq}
}

// SetSeed initializes the internal divider counter.
func (t *Timer) SetSeed(seed uint16) {
	t.systemCounter = seed
	t.lastSignal = t.signal()
	t.overflow = 0
}

// Tick advances the timer by the given amount of master cycles.
func (t *Timer) Tick(cycles int) {
	for range cycles {
		if t.overflow > 0 {
			t.overflow--
			if t.overflow == 0 {
				t.tima = t.tma
				if t.requestInterrupt != nil {
					t.requestInterrupt()
				}
			}
		}

		t.systemCounter++
		t.detectEdge()
	}
}

func (t *Timer) signal() bool {
	return bit.IsSet(2, t.tac) && bit.IsSet16(tacLookup[t.tac&0x03], t.systemCounter)
}

// detectEdge increments TIMA on a falling edge of the timer signal. It runs
// after every counter change, so DIV resets and TAC writes can tick TIMA too.
func (t *Timer) detectEdge() {
	current := t.signal()
	if t.lastSignal && !current {
		t.incrementTIMA()
	}
	t.lastSignal = current
}

func (t *Timer) incrementTIMA() {
	t.tima++
	if t.tima == 0 {
		t.overflow = overflowCycles
	}
}

// Read implements memory.Device for DIV, TIMA, TMA and TAC.
func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return bit.High(t.systemCounter)
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		// upper 5 bits are unused and read as 1
		return t.tac | 0xF8
	}
	return 0xFF
}

// Write implements memory.Device for DIV, TIMA, TMA and TAC.
func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		t.systemCounter = 0
		t.detectEdge()
	case addr.TIMA:
		// a write during the overflow window cancels the reload
		t.tima = value
		t.overflow = 0
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value & 0x07
		t.detectEdge()
	}
}

// Counter returns the full 16 bit internal divider.
func (t *Timer) Counter() uint16 { return t.systemCounter }

// Overflowing reports whether TIMA is in its post-overflow window.
func (t *Timer) Overflowing() bool { return t.overflow > 0 }
