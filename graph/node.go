package graph

import (
	"slices"

	"github.com/viterin/vek/vek32"
)

type (
	// Node is anything that can be wired into the graph. Connecting a node to
	// a destination adds its output to the destination's input mix.
	Node interface {
		Connect(dst Node)
		Disconnect()
		base() *node
	}

	node struct {
		ctx     *Context
		proc    processor
		inputs  []*node
		outputs []*node
		out     []float32
		mix     []float32
		block   int64
		busy    bool
	}

	// processor renders one block. in is the mix of all inputs, frame the
	// index of the first frame of the block.
	processor interface {
		process(in, out []float32, frame int64)
	}

	// Gain multiplies its input by the automated Gain parameter.
	Gain struct {
		node
		Gain  *Param
		gains []float32
	}

	// Destination is the root of the graph. It saturates its input softly so
	// that summed voices never clip hard.
	Destination struct {
		node
	}
)

func (n *node) init(ctx *Context, proc processor) {
	n.ctx = ctx
	n.proc = proc
	n.block = -1
}

func (n *node) base() *node { return n }

// Connect routes the output of the node into dst. Connecting twice to the
// same destination has no further effect.
func (n *node) Connect(dst Node) {
	d := dst.base()
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	if slices.Contains(n.outputs, d) {
		return
	}
	n.outputs = append(n.outputs, d)
	d.inputs = append(d.inputs, n)
}

// Disconnect removes the node from the inputs of every node it is connected
// to. The node's own inputs stay connected.
func (n *node) Disconnect() {
	n.ctx.mu.Lock()
	defer n.ctx.mu.Unlock()
	for _, d := range n.outputs {
		d.inputs = slices.DeleteFunc(d.inputs, func(in *node) bool { return in == n })
	}
	n.outputs = nil
}

// pull returns the output of the node for the current block, rendering it
// first if needed. Feedback loops are broken by returning silence.
func (n *node) pull(length int) []float32 {
	if n.block == n.ctx.block && len(n.out) == length {
		return n.out
	}
	setSliceLength(&n.out, length)
	if n.busy {
		clear(n.out)
		return n.out
	}
	n.busy = true
	setSliceLength(&n.mix, length)
	clear(n.mix)
	for _, in := range n.inputs {
		vek32.Add_Inplace(n.mix, in.pull(length))
	}
	n.proc.process(n.mix, n.out, n.ctx.frames.Load())
	n.busy = false
	n.block = n.ctx.block
	return n.out
}

// NewGain returns a gain node with unity gain.
func (c *Context) NewGain() *Gain {
	g := &Gain{}
	g.init(c, g)
	g.Gain = newParam(c, 1)
	return g
}

func (g *Gain) process(in, out []float32, frame int64) {
	setSliceLength(&g.gains, len(in))
	g.Gain.fill(g.gains, frame)
	vek32.Mul_Into(out, in, g.gains)
}

func (d *Destination) process(in, out []float32, frame int64) {
	for i, x := range in {
		out[i] = softSat(x)
	}
}

// softSat is a cubic soft clipper: nearly linear for small signals, reaching
// exactly ±1 with zero slope at ±1.5.
func softSat(x float32) float32 {
	switch {
	case x > 1.5:
		return 1
	case x < -1.5:
		return -1
	}
	return x - 4*x*x*x/27
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
