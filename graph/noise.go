package graph

import "math"

// Noise plays a buffer of white noise once. It ends when the buffer is
// exhausted or at its stop time, whichever comes first.
type Noise struct {
	node
	schedule
	buffer []float32
}

// NewNoise returns a source holding the given number of seconds of white
// noise from the context's generator.
func (c *Context) NewNoise(seconds float64) *Noise {
	n := &Noise{}
	n.init(c, n)
	n.schedule.reset()
	c.mu.Lock()
	defer c.mu.Unlock()
	n.buffer = make([]float32, max(int(math.Round(seconds*float64(c.sampleRate))), 0))
	for i := range n.buffer {
		n.buffer[i] = c.lcg()
	}
	return n
}

func (n *Noise) Start(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.schedule.startAt(t)
}

func (n *Noise) Stop(t float64) {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	n.stop = t
}

// Ended reports whether the noise has played out or its stop time has passed.
func (n *Noise) Ended() bool {
	now := n.ctx.CurrentTime()
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	end := n.start + float64(len(n.buffer))/float64(n.ctx.sampleRate)
	return now >= min(n.stop, end)
}

// Duration returns the length of the noise buffer in seconds.
func (n *Noise) Duration() float64 {
	return float64(len(n.buffer)) / float64(n.ctx.sampleRate)
}

func (n *Noise) process(in, out []float32, frame int64) {
	first, last := n.ctx.frameOf(n.start), n.ctx.frameOf(n.stop)
	for i := range out {
		f := frame + int64(i)
		idx := f - first
		if f < first || f >= last || idx >= int64(len(n.buffer)) {
			out[i] = 0
			continue
		}
		out[i] = n.buffer[idx]
	}
}
