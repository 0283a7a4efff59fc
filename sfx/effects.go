package sfx

import "github.com/skyduel/beatsynth/graph"

type (
	// Sweep is an exponential glide of a frequency over the whole effect.
	Sweep struct {
		From, To float64
	}

	// ExplosionProfile parameterizes the layered explosion: a band-passed
	// noise burst, two sub-bass rumbles and a low-passed falling tone.
	ExplosionProfile struct {
		Duration float64

		NoiseBand   Sweep
		NoiseLevel  float64
		NoiseAttack float64

		Rumble       Sweep
		RumbleLevel  float64
		Rumble2      Sweep
		Rumble2Level float64

		Body       Sweep
		BodyCutoff Sweep
		BodyLevel  float64
		BodyAttack float64
	}
)

var ImpactProfile = ExplosionProfile{
	Duration:     0.8,
	NoiseBand:    Sweep{400, 50},
	NoiseLevel:   0.4,
	NoiseAttack:  0.02,
	Rumble:       Sweep{20, 10},
	RumbleLevel:  0.3,
	Rumble2:      Sweep{25, 12},
	Rumble2Level: 0.15,
	Body:         Sweep{160, 40},
	BodyCutoff:   Sweep{800, 100},
	BodyLevel:    0.3,
	BodyAttack:   0.01,
}

var CatastrophicProfile = ExplosionProfile{
	Duration:     2.0,
	NoiseBand:    Sweep{200, 20},
	NoiseLevel:   0.8,
	NoiseAttack:  0.05,
	Rumble:       Sweep{30, 15},
	RumbleLevel:  0.8,
	Rumble2:      Sweep{30, 10},
	Rumble2Level: 0.6,
	Body:         Sweep{100, 20},
	BodyCutoff:   Sweep{500, 50},
	BodyLevel:    0.8,
	BodyAttack:   0.01,
}

// Kick is a sine thump falling from 150 Hz through a closing lowpass.
func (l *Library) Kick(dst graph.Node, at float64) *Voice {
	const length = 0.5
	osc := l.graph.NewOscillator(graph.Sine)
	osc.Frequency.SetValueAtTime(150, at)
	osc.Frequency.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	filter := l.graph.NewBiquad(graph.Lowpass)
	filter.Frequency.SetValueAtTime(200, at)
	filter.Frequency.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	gain := l.graph.NewGain()
	gain.Gain.SetValueAtTime(0.3, at)
	gain.Gain.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	return l.chain(PercussiveLow, dst, at, length, osc, filter, gain)
}

// HiHat is a short highpassed noise burst.
func (l *Library) HiHat(dst graph.Node, at float64) *Voice {
	const length = 0.1
	noise := l.graph.NewNoise(length)
	filter := l.graph.NewBiquad(graph.Highpass)
	filter.Frequency.SetValueAtTime(7000, at)
	filter.Frequency.ExponentialRampToValueAtTime(2000, at+length)
	gain := l.graph.NewGain()
	gain.Gain.SetValueAtTime(0.1, at)
	gain.Gain.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	return l.chain(PercussiveHigh, dst, at, length, noise, filter, gain)
}

// Clap is a bandpassed noise burst with a quick attack and a longer release.
func (l *Library) Clap(dst graph.Node, at float64) *Voice {
	const length = 0.2
	noise := l.graph.NewNoise(length)
	filter := l.graph.NewBiquad(graph.Bandpass)
	filter.Frequency.SetValueAtTime(2000, at)
	filter.Frequency.ExponentialRampToValueAtTime(1000, at+length)
	filter.Q.SetValueAtTime(2, at)
	gain := l.graph.NewGain()
	gain.Gain.SetValueAtTime(0, at)
	gain.Gain.LinearRampToValueAtTime(0.2, at+0.01)
	gain.Gain.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	return l.chain(BandNoise, dst, at, length, noise, filter, gain)
}

// Projectile is a descending sine blip from 880 to 440 Hz.
func (l *Library) Projectile(dst graph.Node, at float64) *Voice {
	const length = 0.1
	osc := l.graph.NewOscillator(graph.Sine)
	osc.Frequency.SetValueAtTime(880, at)
	osc.Frequency.ExponentialRampToValueAtTime(440, at+length)
	gain := l.graph.NewGain()
	gain.Gain.SetValueAtTime(0, at)
	gain.Gain.LinearRampToValueAtTime(0.3, at+0.01)
	gain.Gain.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	return l.chain(Projectile, dst, at, length, osc, gain)
}

// Siren sweeps a sine up an octave and back within half a second.
func (l *Library) Siren(dst graph.Node, at float64) *Voice {
	const length = 0.5
	osc := l.graph.NewOscillator(graph.Sine)
	osc.Frequency.SetValueAtTime(440, at)
	osc.Frequency.ExponentialRampToValueAtTime(880, at+length/2)
	osc.Frequency.ExponentialRampToValueAtTime(440, at+length)
	filter := l.graph.NewBiquad(graph.Bandpass)
	filter.Frequency.SetValueAtTime(1000, at)
	filter.Frequency.ExponentialRampToValueAtTime(2000, at+length)
	filter.Q.SetValueAtTime(2, at)
	gain := l.graph.NewGain()
	gain.Gain.SetValueAtTime(0, at)
	gain.Gain.LinearRampToValueAtTime(0.3, at+0.01)
	gain.Gain.ExponentialRampToValueAtTime(graph.Epsilon, at+length)
	return l.chain(Siren, dst, at, length, osc, filter, gain)
}

// Explosion layers four chains into dst, shaped by the profile.
func (l *Library) Explosion(dst graph.Node, at float64, p ExplosionProfile) *Voice {
	effect := ImpactExplosion
	if p == CatastrophicProfile {
		effect = CatastrophicExplosion
	}
	end := at + p.Duration
	v := l.newVoice(effect, end)

	noise := l.graph.NewNoise(p.Duration)
	band := l.graph.NewBiquad(graph.Bandpass)
	sweep(band.Frequency, p.NoiseBand, at, end)
	band.Q.SetValueAtTime(1, at)
	noiseGain := attackDecay(l.graph.NewGain(), p.NoiseLevel, p.NoiseAttack, at, end)
	v.connect(dst, at, end, noise, band, noiseGain)

	rumble := l.graph.NewOscillator(graph.Sine)
	sweep(rumble.Frequency, p.Rumble, at, end)
	rumbleGain := decay(l.graph.NewGain(), p.RumbleLevel, at, end)
	v.connect(dst, at, end, rumble, rumbleGain)

	rumble2 := l.graph.NewOscillator(graph.Sine)
	sweep(rumble2.Frequency, p.Rumble2, at, end)
	rumble2Gain := decay(l.graph.NewGain(), p.Rumble2Level, at, end)
	v.connect(dst, at, end, rumble2, rumble2Gain)

	body := l.graph.NewOscillator(graph.Sine)
	sweep(body.Frequency, p.Body, at, end)
	cutoff := l.graph.NewBiquad(graph.Lowpass)
	sweep(cutoff.Frequency, p.BodyCutoff, at, end)
	bodyGain := attackDecay(l.graph.NewGain(), p.BodyLevel, p.BodyAttack, at, end)
	v.connect(dst, at, end, body, cutoff, bodyGain)
	return v
}

// chain wires nodes in series into dst as a new tracked voice.
func (l *Library) chain(e Effect, dst graph.Node, at, length float64, nodes ...graph.Node) *Voice {
	v := l.newVoice(e, at+length)
	v.connect(dst, at, at+length, nodes...)
	return v
}

// connect wires nodes in series into dst, starts the sources at at and stops
// them at end.
func (v *Voice) connect(dst graph.Node, at, end float64, nodes ...graph.Node) {
	v.own(nodes...)
	for i := 1; i < len(nodes); i++ {
		nodes[i-1].Connect(nodes[i])
	}
	nodes[len(nodes)-1].Connect(dst)
	for _, n := range nodes {
		if s, ok := n.(source); ok {
			s.Start(at)
			s.Stop(end)
		}
	}
}

func sweep(p *graph.Param, s Sweep, at, end float64) {
	p.SetValueAtTime(s.From, at)
	p.ExponentialRampToValueAtTime(s.To, end)
}

func decay(g *graph.Gain, level, at, end float64) *graph.Gain {
	g.Gain.SetValueAtTime(level, at)
	g.Gain.ExponentialRampToValueAtTime(graph.Epsilon, end)
	return g
}

func attackDecay(g *graph.Gain, level, attack, at, end float64) *graph.Gain {
	g.Gain.SetValueAtTime(0, at)
	g.Gain.LinearRampToValueAtTime(level, at+attack)
	g.Gain.ExponentialRampToValueAtTime(graph.Epsilon, end)
	return g
}
