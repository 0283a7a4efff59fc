package graph

import (
	"fmt"
	"math"
)

type (
	Waveform int

	// Oscillator is a periodic source. It is silent until its start time and
	// after its stop time.
	Oscillator struct {
		node
		schedule
		Frequency *Param
		waveform  Waveform
		phase     float64
		freqs     []float32
	}

	// schedule holds the start and stop times of a source.
	schedule struct {
		start, stop float64
		started     bool
	}
)

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

// NewOscillator returns an oscillator at 440 Hz. It must be started before it
// produces sound.
func (c *Context) NewOscillator(w Waveform) *Oscillator {
	o := &Oscillator{waveform: w}
	o.init(c, o)
	o.schedule.reset()
	o.Frequency = newParam(c, 440)
	return o
}

// Start schedules the source to begin at time t. Only the first call has an
// effect.
func (o *Oscillator) Start(t float64) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.schedule.startAt(t)
}

// Stop schedules the source to end at time t.
func (o *Oscillator) Stop(t float64) {
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	o.stop = t
}

// Ended reports whether the stop time has passed on the audio clock.
func (o *Oscillator) Ended() bool {
	now := o.ctx.CurrentTime()
	o.ctx.mu.Lock()
	defer o.ctx.mu.Unlock()
	return now >= o.stop
}

func (o *Oscillator) process(in, out []float32, frame int64) {
	setSliceLength(&o.freqs, len(out))
	o.Frequency.fill(o.freqs, frame)
	first, last := o.ctx.frameOf(o.start), o.ctx.frameOf(o.stop)
	sr := float64(o.ctx.sampleRate)
	for i := range out {
		f := frame + int64(i)
		if f < first || f >= last {
			out[i] = 0
			continue
		}
		out[i] = o.sample()
		o.phase += float64(o.freqs[i]) / sr
		o.phase -= math.Floor(o.phase)
	}
}

func (o *Oscillator) sample() float32 {
	switch o.waveform {
	case Square:
		if o.phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return float32(2*o.phase - 1)
	case Triangle:
		return float32(1 - 4*math.Abs(o.phase-0.5))
	default:
		return float32(math.Sin(2 * math.Pi * o.phase))
	}
}

func (s *schedule) reset() {
	s.start, s.stop = math.Inf(1), math.Inf(1)
}

func (s *schedule) startAt(t float64) {
	if s.started {
		return
	}
	s.started = true
	s.start = t
}
