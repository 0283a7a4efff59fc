package graph

import (
	"math"
	"sort"
)

type (
	// Param is an automatable node parameter. Its value follows a list of
	// time-stamped control points, interpolated the way Web Audio does: a
	// ramp event describes how the value moves from the previous event to
	// the ramp's own time and value.
	Param struct {
		ctx    *Context
		value  float64
		anchor float64
		events []automation
	}

	automation struct {
		kind  automationKind
		time  float64
		value float64
	}

	automationKind int
)

const (
	setValue automationKind = iota
	linearRamp
	exponentialRamp
)

func newParam(ctx *Context, value float64) *Param {
	return &Param{ctx: ctx, value: value}
}

// Value returns the value of the parameter at the current audio time.
func (p *Param) Value() float64 {
	t := p.ctx.CurrentTime()
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return p.valueAt(t)
}

// SetValue cancels all automation and sets the value immediately.
func (p *Param) SetValue(v float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	p.events = nil
	p.value = v
}

// SetValueAtTime jumps to v at time t.
func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(automation{kind: setValue, time: t, value: v})
}

// LinearRampToValueAtTime moves the value linearly from the previous event to
// v, reaching it at time t.
func (p *Param) LinearRampToValueAtTime(v, t float64) {
	p.insert(automation{kind: linearRamp, time: t, value: v})
}

// ExponentialRampToValueAtTime moves the value exponentially from the previous
// event to v, reaching it at time t. Both ends of the ramp are floored at
// Epsilon.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.insert(automation{kind: exponentialRamp, time: t, value: max(v, Epsilon)})
}

// CancelScheduledValues removes every event at or after time t.
func (p *Param) CancelScheduledValues(t float64) {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time >= t })
	p.events = p.events[:i]
}

// Events returns the number of pending automation events.
func (p *Param) Events() int {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	return len(p.events)
}

func (p *Param) insert(a automation) {
	now := p.ctx.CurrentTime()
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if len(p.events) == 0 {
		p.anchor = now
	}
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > a.time })
	p.events = append(p.events, automation{})
	copy(p.events[i+1:], p.events[i:])
	p.events[i] = a
}

// valueAt must be called with the context locked.
func (p *Param) valueAt(t float64) float64 {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	if i == len(p.events) {
		if i == 0 {
			return p.value
		}
		return p.events[i-1].value
	}
	t0, v0 := p.anchor, p.value
	if i > 0 {
		t0, v0 = p.events[i-1].time, p.events[i-1].value
	}
	next := p.events[i]
	if next.time <= t0 {
		return v0
	}
	x := (t - t0) / (next.time - t0)
	switch next.kind {
	case linearRamp:
		return v0 + (next.value-v0)*x
	case exponentialRamp:
		v0 = max(v0, Epsilon)
		return v0 * math.Pow(next.value/v0, x)
	default:
		return v0
	}
}

// fill writes the value of each frame of a block starting at frame into dst.
// Events that can no longer influence the value are dropped.
func (p *Param) fill(dst []float32, frame int64) {
	p.prune(p.ctx.timeOf(frame))
	if len(p.events) == 0 {
		v := float32(p.value)
		for i := range dst {
			dst[i] = v
		}
		return
	}
	for i := range dst {
		dst[i] = float32(p.valueAt(p.ctx.timeOf(frame + int64(i))))
	}
}

func (p *Param) prune(t float64) {
	i := sort.Search(len(p.events), func(i int) bool { return p.events[i].time > t })
	switch {
	case i == len(p.events) && i > 0:
		p.value = p.events[i-1].value
		p.anchor = p.events[i-1].time
		p.events = p.events[:0]
	case i >= 2:
		p.events = append(p.events[:0], p.events[i-1:]...)
	}
}
