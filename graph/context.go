// Package graph is a small software audio graph modelled after the Web Audio
// API: sources, gains and biquad filters are connected into a tree ending at
// the Destination, parameters are automated with time-stamped control points,
// and the whole graph is rendered block by block by pulling from the
// Destination. Time is measured by the number of frames rendered, so the clock
// advances exactly as fast as the output device consumes audio.
package graph

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/skyduel/beatsynth"
)

// Epsilon is the floor of both ends of every exponential ramp. An exponential
// ramp to or from zero is undefined, so all such targets are raised to it.
const Epsilon = 0.01

// ErrClosed is returned by Render after the context has been closed.
var ErrClosed = errors.New("graph: context is closed")

// Context owns the nodes of one graph and its sample-frame clock. All methods
// are safe for concurrent use: the output device renders on its own goroutine
// while the rest of the program builds and automates nodes.
type Context struct {
	mu         sync.Mutex
	sampleRate int
	frames     atomic.Int64
	block      int64
	dest       *Destination
	closed     bool
	seed       uint64
	meter      peakMeter
}

func NewContext(sampleRate int) *Context {
	c := &Context{sampleRate: sampleRate, seed: 0x2545f4914f6cdd1d}
	c.dest = &Destination{}
	c.dest.init(c, c.dest)
	return c
}

// SampleRate returns the number of frames per second.
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// CurrentTime returns the audio clock in seconds: the number of frames
// rendered so far divided by the sample rate.
func (c *Context) CurrentTime() float64 {
	return float64(c.frames.Load()) / float64(c.sampleRate)
}

// Frames returns the number of frames rendered so far.
func (c *Context) Frames() int64 {
	return c.frames.Load()
}

// Destination returns the final node of the graph. Only what is connected to
// it, directly or indirectly, is rendered.
func (c *Context) Destination() *Destination {
	return c.dest
}

// Render renders the next len(buf) frames into buf and advances the clock. It
// has the signature of a beatsynth.AudioSource, so it can be handed directly
// to an output device.
func (c *Context) Render(buf beatsynth.AudioBuffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.block++
	out := c.dest.pull(len(buf))
	for i, v := range out {
		buf[i] = [2]float32{v, v}
	}
	c.meter.update(out)
	c.frames.Add(int64(len(buf)))
	return nil
}

// Close stops rendering. Nodes may still be created and connected afterwards
// but nothing is heard.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Context) timeOf(frame int64) float64 {
	return float64(frame) / float64(c.sampleRate)
}

// frameOf returns the first frame at or after time t. Times a hair past a
// frame boundary, as produced by CurrentTime, round to that frame.
func (c *Context) frameOf(t float64) int64 {
	if math.IsInf(t, 1) {
		return math.MaxInt64
	}
	return int64(math.Ceil(t*float64(c.sampleRate) - 1e-6))
}

// lcg advances the context's noise seed and returns a sample in [-1,1].
func (c *Context) lcg() float32 {
	c.seed = c.seed*6364136223846793005 + 1442695040888963407
	return float32(int64(c.seed>>33)-int64(1<<30)) / float32(1<<30)
}
