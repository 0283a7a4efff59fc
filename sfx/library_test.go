package sfx_test

import (
	"errors"
	"math"
	"testing"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/graph"
	"github.com/skyduel/beatsynth/sfx"
)

const sampleRate = 22050

func renderSeconds(t *testing.T, g *graph.Context, seconds float64) {
	t.Helper()
	buf := make(beatsynth.AudioBuffer, int(seconds*sampleRate))
	if err := g.Render(buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i, v := range buf {
		if math.IsNaN(float64(v[0])) || math.IsInf(float64(v[0]), 0) {
			t.Fatalf("frame %v: invalid sample %v", i, v[0])
		}
	}
}

func TestEffectsPlayOutAndAreReaped(t *testing.T) {
	wantLength := map[sfx.Effect]float64{
		sfx.PercussiveLow:         0.5,
		sfx.PercussiveHigh:        0.1,
		sfx.BandNoise:             0.2,
		sfx.Projectile:            0.1,
		sfx.ImpactExplosion:       0.8,
		sfx.CatastrophicExplosion: 2.0,
		sfx.Siren:                 0.5,
	}
	for _, e := range sfx.Effects() {
		g := graph.NewContext(sampleRate)
		lib := sfx.NewLibrary(g)
		v, err := lib.Play(e, g.Destination(), 0)
		if err != nil {
			t.Fatalf("%v: Play failed: %v", e, err)
		}
		if v.Effect() != e {
			t.Errorf("%v: voice reports effect %v", e, v.Effect())
		}
		if got := v.End(); math.Abs(got-wantLength[e]) > 1e-9 {
			t.Errorf("%v: End = %v, want %v", e, got, wantLength[e])
		}
		if n := lib.Reap(g.CurrentTime()); n != 0 || lib.Active() != 1 {
			t.Fatalf("%v: voice reaped before it played", e)
		}
		renderSeconds(t, g, v.End()+0.05)
		if g.PeakHold() == 0 {
			t.Errorf("%v: produced no sound", e)
		}
		if !v.Finished(g.CurrentTime()) {
			t.Errorf("%v: should be finished", e)
		}
		if n := lib.Reap(g.CurrentTime()); n != 1 || lib.Active() != 0 {
			t.Errorf("%v: Reap released %v voices, %v left", e, n, lib.Active())
		}
		if !v.Released() {
			t.Errorf("%v: reaped voice not released", e)
		}
		g.ResetPeak()
		renderSeconds(t, g, 0.05)
		if g.PeakHold() != 0 {
			t.Errorf("%v: released voice still sounds", e)
		}
	}
}

func TestReleaseSilencesImmediately(t *testing.T) {
	g := graph.NewContext(sampleRate)
	lib := sfx.NewLibrary(g)
	v := lib.Explosion(g.Destination(), 0, sfx.CatastrophicProfile)
	if v.Effect() != sfx.CatastrophicExplosion {
		t.Errorf("catastrophic profile reports %v", v.Effect())
	}
	renderSeconds(t, g, 0.1)
	if g.Peak() == 0 {
		t.Fatal("explosion should be sounding")
	}
	v.Release()
	v.Release()
	renderSeconds(t, g, 0.01)
	if g.Peak() != 0 {
		t.Errorf("released voice still sounds: peak %v", g.Peak())
	}
	if n := lib.Reap(g.CurrentTime()); n != 1 {
		t.Errorf("a released voice should be dropped by Reap, got %v", n)
	}
}

func TestReleaseAll(t *testing.T) {
	g := graph.NewContext(sampleRate)
	lib := sfx.NewLibrary(g)
	voices := []*sfx.Voice{
		lib.Kick(g.Destination(), 0),
		lib.Siren(g.Destination(), 0),
		lib.Explosion(g.Destination(), 0.05, sfx.ImpactProfile),
	}
	if lib.Active() != 3 {
		t.Fatalf("Active = %v, want 3", lib.Active())
	}
	renderSeconds(t, g, 0.1)
	lib.ReleaseAll()
	if lib.Active() != 0 {
		t.Errorf("Active after ReleaseAll = %v", lib.Active())
	}
	for _, v := range voices {
		if !v.Released() {
			t.Errorf("%v not released", v.Effect())
		}
	}
	renderSeconds(t, g, 0.01)
	if g.Peak() != 0 {
		t.Errorf("peak after ReleaseAll = %v", g.Peak())
	}
}

func TestScheduledInTheFuture(t *testing.T) {
	g := graph.NewContext(sampleRate)
	lib := sfx.NewLibrary(g)
	lib.HiHat(g.Destination(), 0.2)
	renderSeconds(t, g, 0.1)
	if g.PeakHold() != 0 {
		t.Errorf("hihat scheduled at 0.2 s sounded early")
	}
	renderSeconds(t, g, 0.15)
	if g.PeakHold() == 0 {
		t.Errorf("hihat did not sound")
	}
}

func TestParseEffect(t *testing.T) {
	for _, e := range sfx.Effects() {
		got, err := sfx.ParseEffect(e.String())
		if err != nil || got != e {
			t.Errorf("ParseEffect(%q) = %v, %v", e.String(), got, err)
		}
	}
	if e, err := sfx.ParseEffect("SIREN"); err != nil || e != sfx.Siren {
		t.Errorf("ParseEffect should ignore case, got %v, %v", e, err)
	}
	if _, err := sfx.ParseEffect("kazoo"); !errors.Is(err, sfx.ErrUnknownEffect) {
		t.Errorf("got %v, want ErrUnknownEffect", err)
	}
	if _, err := sfx.NewLibrary(graph.NewContext(sampleRate)).Play(sfx.NumEffects, nil, 0); !errors.Is(err, sfx.ErrUnknownEffect) {
		t.Errorf("Play of an unknown effect: got %v", err)
	}
	for _, e := range sfx.Effects() {
		want := e == sfx.PercussiveLow || e == sfx.PercussiveHigh || e == sfx.BandNoise
		if e.Percussive() != want {
			t.Errorf("%v: Percussive = %v", e, e.Percussive())
		}
	}
}
