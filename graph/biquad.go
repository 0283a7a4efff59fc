package graph

import (
	"fmt"
	"math"
)

type (
	FilterType int

	// Biquad is a second order filter with automatable cutoff frequency and
	// Q. Coefficients follow the RBJ audio EQ cookbook and are recomputed
	// every coeffInterval frames.
	Biquad struct {
		node
		Frequency *Param
		Q         *Param
		typ       FilterType
		state     biquadState
		freqs, qs []float32
	}

	biquadState struct {
		x1, x2, y1, y2 float32
	}

	biquadCoeff struct {
		b0, b1, b2, a1, a2 float32
	}
)

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

const coeffInterval = 16

func (f FilterType) String() string {
	switch f {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	}
	return fmt.Sprintf("FilterType(%d)", int(f))
}

// NewBiquad returns a filter with a cutoff of 350 Hz and Q of 1.
func (c *Context) NewBiquad(typ FilterType) *Biquad {
	b := &Biquad{typ: typ}
	b.init(c, b)
	b.Frequency = newParam(c, 350)
	b.Q = newParam(c, 1)
	return b
}

func (b *Biquad) process(in, out []float32, frame int64) {
	setSliceLength(&b.freqs, len(in))
	setSliceLength(&b.qs, len(in))
	b.Frequency.fill(b.freqs, frame)
	b.Q.fill(b.qs, frame)
	copy(out, in)
	for i := 0; i < len(out); i += coeffInterval {
		j := min(i+coeffInterval, len(out))
		b.state.Filter(out[i:j], b.coeff(float64(b.freqs[i]), float64(b.qs[i])))
	}
}

func (b *Biquad) coeff(freq, q float64) biquadCoeff {
	sr := float64(b.ctx.sampleRate)
	freq = min(max(freq, 1), 0.49*sr)
	q = max(q, 1e-4)
	w0 := 2 * math.Pi * freq / sr
	cos, alpha := math.Cos(w0), math.Sin(w0)/(2*q)
	var b0, b1, b2 float64
	switch b.typ {
	case Highpass:
		b0, b1, b2 = (1+cos)/2, -(1 + cos), (1+cos)/2
	case Bandpass:
		b0, b1, b2 = alpha, 0, -alpha
	default:
		b0, b1, b2 = (1-cos)/2, 1-cos, (1-cos)/2
	}
	a0 := 1 + alpha
	return biquadCoeff{
		b0: float32(b0 / a0),
		b1: float32(b1 / a0),
		b2: float32(b2 / a0),
		a1: float32(-2 * cos / a0),
		a2: float32((1 - alpha) / a0),
	}
}

func (state *biquadState) Filter(buffer []float32, coeff biquadCoeff) {
	s := *state
	for i := 0; i < len(buffer); i++ {
		x := buffer[i]
		y := coeff.b0*x + coeff.b1*s.x1 + coeff.b2*s.x2 - coeff.a1*s.y1 - coeff.a2*s.y2
		s.x2, s.x1 = s.x1, x
		s.y2, s.y1 = s.y1, y
		buffer[i] = y
	}
	*state = s
}
