package memory

import "time"

// Clock is the time source used by the MBC3 real time clock.
type Clock interface {
	Now() time.Time
}

type systemClockFunc func() time.Time

func (s systemClockFunc) Now() time.Time {
	return s()
}

// RTC register selectors, written to 0x4000-0x5FFF on MBC3.
const (
	rtcSeconds uint8 = 0x08
	rtcMinutes uint8 = 0x09
	rtcHours   uint8 = 0x0A
	rtcDaysLow uint8 = 0x0B
	rtcControl uint8 = 0x0C
)

const (
	rtcDayHighBit  = 0x01
	rtcHaltBit     = 0x40
	rtcDayCarryBit = 0x80
	secondsPerDay  = 24 * 60 * 60
	rtcMaxDays     = 512
)

// rtc keeps the running counter as elapsed seconds and derives the
// registers on latch. latched holds what the game reads.
type rtc struct {
	clock   Clock
	elapsed int64
	last    time.Time
	halted  bool
	carry   bool
	latched [5]uint8

	latchArmed bool
}

func newRTC(clock Clock) rtc {
	if clock == nil {
		clock = systemClockFunc(time.Now)
	}
	return rtc{clock: clock, last: clock.Now()}
}

// advance folds wall clock time into the counter.
func (r *rtc) advance() {
	now := r.clock.Now()
	if r.halted {
		r.last = now
		return
	}

	secs := int64(now.Sub(r.last) / time.Second)
	if secs <= 0 {
		return
	}
	r.last = r.last.Add(time.Duration(secs) * time.Second)
	r.elapsed += secs

	if r.elapsed >= rtcMaxDays*secondsPerDay {
		r.elapsed %= rtcMaxDays * secondsPerDay
		r.carry = true
	}
}

// writeLatch handles writes to 0x6000-0x7FFF: a 0x00 then 0x01 sequence
// copies the live counter into the latched registers.
func (r *rtc) writeLatch(value uint8) {
	if value == 0x00 {
		r.latchArmed = true
		return
	}
	if value == 0x01 && r.latchArmed {
		r.latch()
	}
	r.latchArmed = false
}

func (r *rtc) latch() {
	r.advance()

	days := r.elapsed / secondsPerDay
	r.latched[0] = uint8(r.elapsed % 60)
	r.latched[1] = uint8((r.elapsed / 60) % 60)
	r.latched[2] = uint8((r.elapsed / 3600) % 24)
	r.latched[3] = uint8(days)

	control := uint8(days>>8) & rtcDayHighBit
	if r.halted {
		control |= rtcHaltBit
	}
	if r.carry {
		control |= rtcDayCarryBit
	}
	r.latched[4] = control
}

func (r *rtc) read(reg uint8) uint8 {
	return r.latched[reg-rtcSeconds]
}

// write sets one field of the live counter, keeping the others.
func (r *rtc) write(reg, value uint8) {
	r.advance()

	secs := r.elapsed % 60
	mins := (r.elapsed / 60) % 60
	hours := (r.elapsed / 3600) % 24
	days := r.elapsed / secondsPerDay

	switch reg {
	case rtcSeconds:
		secs = int64(value % 60)
	case rtcMinutes:
		mins = int64(value % 60)
	case rtcHours:
		hours = int64(value % 24)
	case rtcDaysLow:
		days = days&0x100 | int64(value)
	case rtcControl:
		days = days&0xFF | int64(value&rtcDayHighBit)<<8
		r.halted = value&rtcHaltBit != 0
		r.carry = value&rtcDayCarryBit != 0
		r.last = r.clock.Now()
	}

	r.elapsed = days*secondsPerDay + hours*3600 + mins*60 + secs
	r.latched[reg-rtcSeconds] = value
}
