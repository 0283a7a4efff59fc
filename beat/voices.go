package beat

import (
	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/graph"
	"github.com/skyduel/beatsynth/sfx"
)

type (
	// SynthPerformer plays events on a graph. Melody and bass each have one
	// persistent oscillator chain for the duration of playback, re-pitched and
	// re-enveloped by every note, so each of them is monophonic: of several
	// notes of the same voice on the same beat only the first one sounds. Drum
	// hits are one-shot effects on the percussion bus.
	SynthPerformer struct {
		graph      *graph.Context
		music      graph.Node
		percussion graph.Node
		drums      *sfx.Library
		melody     *toneChain
		bass       *toneChain
	}

	toneChain struct {
		osc      *graph.Oscillator
		filter   *graph.Biquad
		gain     *graph.Gain
		level    float64
		cutoff   Sweep
		released bool
		// beat and time of the last note played, to spot notes sharing it
		lastBeat int
		lastTime float64
	}

	// Sweep is the exponential filter glide over the length of a note.
	Sweep struct {
		From, To float64
	}
)

const noteAttack = 0.01

var (
	melodyLevel  = 0.2
	melodyCutoff = Sweep{2000, 1000}
	bassLevel    = 0.15
	bassCutoff   = Sweep{500, 200}
)

// NewSynthPerformer returns a performer routing melody and bass into music
// and drums into percussion.
func NewSynthPerformer(g *graph.Context, music, percussion graph.Node) *SynthPerformer {
	return &SynthPerformer{
		graph:      g,
		music:      music,
		percussion: percussion,
		drums:      sfx.NewLibrary(g),
	}
}

// Start builds the melody chain, and the bass chain if the track has a bass
// line, and starts their oscillators silent at time at.
func (p *SynthPerformer) Start(track beatsynth.Track, at float64) {
	p.releaseChains()
	p.melody = p.newChain(melodyLevel, melodyCutoff, at)
	if len(track.Voices.Bass) > 0 {
		p.bass = p.newChain(bassLevel, bassCutoff, at)
	}
}

func (p *SynthPerformer) Perform(ev Event) {
	switch ev.Voice {
	case Melody:
		p.melody.play(ev)
	case Bass:
		p.bass.play(ev)
	case Kick:
		p.drums.Kick(p.percussion, ev.Time)
	case HiHat:
		p.drums.HiHat(p.percussion, ev.Time)
	case Clap:
		p.drums.Clap(p.percussion, ev.Time)
	}
}

// Stop releases the tone chains and every drum hit still sounding.
func (p *SynthPerformer) Stop() {
	p.releaseChains()
	p.drums.ReleaseAll()
}

// Reap releases drum hits that have played out.
func (p *SynthPerformer) Reap(now float64) int {
	return p.drums.Reap(now)
}

// ActiveDrums returns the number of drum hits not yet reaped.
func (p *SynthPerformer) ActiveDrums() int {
	return p.drums.Active()
}

func (p *SynthPerformer) releaseChains() {
	p.melody.release(p.graph.CurrentTime())
	p.bass.release(p.graph.CurrentTime())
	p.melody, p.bass = nil, nil
}

func (p *SynthPerformer) newChain(level float64, cutoff Sweep, at float64) *toneChain {
	c := &toneChain{
		osc:      p.graph.NewOscillator(graph.Sine),
		filter:   p.graph.NewBiquad(graph.Lowpass),
		gain:     p.graph.NewGain(),
		level:    level,
		cutoff:   cutoff,
		lastBeat: -1,
	}
	c.filter.Frequency.SetValue(cutoff.From)
	c.filter.Q.SetValue(1)
	c.gain.Gain.SetValue(0)
	c.osc.Connect(c.filter)
	c.filter.Connect(c.gain)
	c.gain.Connect(p.music)
	c.osc.Start(at)
	return c
}

// play schedules one note: a short linear attack, a linear release ending
// with the note and a closing filter sweep. Automation left over from the
// previous note is cancelled first. A note fired together with the previous
// one, on the same beat, is ignored.
func (c *toneChain) play(ev Event) bool {
	if c == nil || c.released || (ev.Beat == c.lastBeat && ev.Time == c.lastTime) {
		return false
	}
	c.lastBeat, c.lastTime = ev.Beat, ev.Time
	t := ev.Time
	length := ev.Note.Duration * ev.SecondsPerBeat
	attack := min(noteAttack, length/2)
	c.gain.Gain.CancelScheduledValues(t)
	c.gain.Gain.SetValueAtTime(0, t)
	c.gain.Gain.LinearRampToValueAtTime(c.level, t+attack)
	c.gain.Gain.LinearRampToValueAtTime(0, t+length)
	c.osc.Frequency.CancelScheduledValues(t)
	c.osc.Frequency.SetValueAtTime(ev.Note.Frequency, t)
	c.filter.Frequency.CancelScheduledValues(t)
	c.filter.Frequency.SetValueAtTime(c.cutoff.From, t)
	c.filter.Frequency.ExponentialRampToValueAtTime(c.cutoff.To, t+length)
	return true
}

func (c *toneChain) release(now float64) {
	if c == nil || c.released {
		return
	}
	c.released = true
	c.osc.Stop(now)
	c.osc.Disconnect()
	c.filter.Disconnect()
	c.gain.Disconnect()
}
