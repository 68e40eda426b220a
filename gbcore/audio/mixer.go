package audio

import "github.com/arl/blip"

// Mixer turns per-tick amplitude changes into band-limited samples, one
// blip buffer per stereo side.
type Mixer struct {
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevLeft  int32
	prevRight int32

	// clock time inside the current blip time frame
	time int

	sampleRate      int
	samplesPerFrame int
	size            int
	scratch         []int16
}

// NewMixer returns a mixer producing rate samples per second.
func NewMixer(rate int) *Mixer {
	if rate < MinSampleRate || rate > MaxSampleRate {
		rate = DefaultSampleRate
	}

	// one second of buffered audio per side
	size := rate
	m := &Mixer{
		bufleft:         blip.NewBuffer(size),
		bufright:        blip.NewBuffer(size),
		sampleRate:      rate,
		samplesPerFrame: mixFrameCycles*rate/ClockRate + 1,
		size:            size,
		scratch:         make([]int16, size),
	}
	m.bufleft.SetRates(ClockRate, float64(rate))
	m.bufright.SetRates(ClockRate, float64(rate))
	return m
}

// Add records the output level for the next cycles master cycles.
func (m *Mixer) Add(cycles int, left, right int32) {
	if left != m.prevLeft {
		m.bufleft.AddDelta(uint64(m.time), left-m.prevLeft)
		m.prevLeft = left
	}
	if right != m.prevRight {
		m.bufright.AddDelta(uint64(m.time), right-m.prevRight)
		m.prevRight = right
	}

	m.time += cycles
	if m.time >= mixFrameCycles {
		m.EndFrame()
	}
}

// EndFrame makes the samples of the current time frame readable. When
// nobody drains the buffers the oldest samples are dropped.
func (m *Mixer) EndFrame() {
	if m.time == 0 {
		return
	}
	m.bufleft.EndFrame(m.time)
	m.bufright.EndFrame(m.time)
	m.time = 0

	limit := m.size - 2*m.samplesPerFrame
	if excess := m.bufleft.SamplesAvailable() - limit; excess > 0 {
		m.bufleft.ReadSamples(m.scratch, excess, blip.Mono)
		m.bufright.ReadSamples(m.scratch, excess, blip.Mono)
	}
}

// Read closes the current time frame and copies up to len(out)/2 stereo
// samples into out, left first. It returns the number of int16 values
// written.
func (m *Mixer) Read(out []int16) int {
	m.EndFrame()

	count := min(len(out)/2, m.bufleft.SamplesAvailable())
	if count == 0 {
		return 0
	}
	m.bufleft.ReadSamples(out, count, blip.Stereo)
	m.bufright.ReadSamples(out[1:], count, blip.Stereo)
	return count * 2
}

// Available returns how many stereo samples are ready to read.
func (m *Mixer) Available() int { return m.bufleft.SamplesAvailable() }

func (m *Mixer) Reset() {
	m.bufleft.Clear()
	m.bufright.Clear()
	m.prevLeft, m.prevRight = 0, 0
	m.time = 0
}

func (m *Mixer) SampleRate() int { return m.sampleRate }
