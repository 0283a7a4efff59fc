package graph

import (
	"math"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

// peakMeter tracks the absolute peak of the rendered output: the peak of the
// last block and the highest peak since the last reset. The values are stored
// as float32 bits so they can be read without the graph lock.
type peakMeter struct {
	tmp        []float32
	last, hold atomic.Uint32
}

func (m *peakMeter) update(buf []float32) {
	if len(buf) == 0 {
		return
	}
	setSliceLength(&m.tmp, len(buf))
	p := vek32.Max(vek32.Abs_Into(m.tmp, buf))
	m.last.Store(math.Float32bits(p))
	if p > math.Float32frombits(m.hold.Load()) {
		m.hold.Store(math.Float32bits(p))
	}
}

// Peak returns the absolute peak of the most recently rendered block, in the
// range [0, 1].
func (c *Context) Peak() float32 {
	return math.Float32frombits(c.meter.last.Load())
}

// PeakHold returns the highest block peak since the context was created or
// ResetPeak was called.
func (c *Context) PeakHold() float32 {
	return math.Float32frombits(c.meter.hold.Load())
}

func (c *Context) ResetPeak() {
	c.meter.hold.Store(0)
}

// Decibels converts a linear level into dBFS.
func Decibels(level float32) float64 {
	return 20 * math.Log10(float64(level))
}
