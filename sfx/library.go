// Package sfx synthesizes one-shot sound effects. Every call builds a fresh
// chain of graph nodes, schedules its automation relative to the given audio
// time and returns the chain as a Voice. The Library keeps track of the voices
// it created and releases them once they have played out.
package sfx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skyduel/beatsynth/graph"
)

type (
	Effect int

	// Voice owns the nodes of one effect. Release stops its sources and
	// disconnects every node; it is safe to call more than once.
	Voice struct {
		effect   Effect
		ctx      *graph.Context
		sources  []source
		nodes    []graph.Node
		end      float64
		released bool
	}

	source interface {
		graph.Node
		Start(t float64)
		Stop(t float64)
		Ended() bool
	}

	// Library creates effect voices on a graph and tracks them until they
	// are reaped or released. It is not safe for concurrent use.
	Library struct {
		graph  *graph.Context
		voices []*Voice
	}
)

const (
	PercussiveLow Effect = iota
	PercussiveHigh
	BandNoise
	Projectile
	ImpactExplosion
	CatastrophicExplosion
	Siren
	NumEffects
)

var effectNames = [NumEffects]string{
	"percussive-low",
	"percussive-high",
	"band-noise",
	"projectile",
	"impact-explosion",
	"catastrophic-explosion",
	"siren",
}

var ErrUnknownEffect = errors.New("unknown effect")

func (e Effect) String() string {
	if e < 0 || e >= NumEffects {
		return fmt.Sprintf("Effect(%d)", int(e))
	}
	return effectNames[e]
}

// Percussive reports whether the effect is a drum sound. Drum sounds are
// routed through the percussion bus, everything else through master.
func (e Effect) Percussive() bool {
	return e == PercussiveLow || e == PercussiveHigh || e == BandNoise
}

// ParseEffect returns the effect with the given name, ignoring case.
func ParseEffect(name string) (Effect, error) {
	for i, n := range effectNames {
		if strings.EqualFold(n, name) {
			return Effect(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEffect, name)
}

// Effects returns every effect in catalog order.
func Effects() []Effect {
	ret := make([]Effect, NumEffects)
	for i := range ret {
		ret[i] = Effect(i)
	}
	return ret
}

func NewLibrary(g *graph.Context) *Library {
	return &Library{graph: g}
}

// Play builds the given effect into dst, starting at audio time at.
func (l *Library) Play(e Effect, dst graph.Node, at float64) (*Voice, error) {
	switch e {
	case PercussiveLow:
		return l.Kick(dst, at), nil
	case PercussiveHigh:
		return l.HiHat(dst, at), nil
	case BandNoise:
		return l.Clap(dst, at), nil
	case Projectile:
		return l.Projectile(dst, at), nil
	case ImpactExplosion:
		return l.Explosion(dst, at, ImpactProfile), nil
	case CatastrophicExplosion:
		return l.Explosion(dst, at, CatastrophicProfile), nil
	case Siren:
		return l.Siren(dst, at), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownEffect, e)
}

// Reap releases every voice whose end time has passed and returns how many
// were released.
func (l *Library) Reap(now float64) int {
	n := 0
	kept := l.voices[:0]
	for _, v := range l.voices {
		if v.released || v.Finished(now) {
			v.Release()
			n++
			continue
		}
		kept = append(kept, v)
	}
	clear(l.voices[len(kept):])
	l.voices = kept
	return n
}

// ReleaseAll silences and releases every tracked voice.
func (l *Library) ReleaseAll() {
	for _, v := range l.voices {
		v.Release()
	}
	clear(l.voices)
	l.voices = l.voices[:0]
}

// Active returns the number of voices not yet reaped.
func (l *Library) Active() int {
	return len(l.voices)
}

func (l *Library) newVoice(e Effect, end float64) *Voice {
	v := &Voice{effect: e, ctx: l.graph, end: end}
	l.voices = append(l.voices, v)
	return v
}

// own makes the voice responsible for releasing nodes.
func (v *Voice) own(nodes ...graph.Node) {
	for _, n := range nodes {
		if s, ok := n.(source); ok {
			v.sources = append(v.sources, s)
		}
		v.nodes = append(v.nodes, n)
	}
}

func (v *Voice) Effect() Effect { return v.effect }

// End returns the audio time at which the voice stops sounding.
func (v *Voice) End() float64 { return v.end }

// Finished reports whether the voice has played out at audio time now.
func (v *Voice) Finished(now float64) bool {
	return now >= v.end
}

func (v *Voice) Released() bool { return v.released }

func (v *Voice) Release() {
	if v.released {
		return
	}
	v.released = true
	now := v.ctx.CurrentTime()
	for _, s := range v.sources {
		s.Stop(now)
	}
	for _, n := range v.nodes {
		n.Disconnect()
	}
	v.sources, v.nodes = nil, nil
}
