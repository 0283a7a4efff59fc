package beat_test

import (
	"testing"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/beat"
	"github.com/skyduel/beatsynth/graph"
)

const sampleRate = 22050

func TestSynthPerformerPlaysAndStops(t *testing.T) {
	g := graph.NewContext(sampleRate)
	music, percussion := g.NewGain(), g.NewGain()
	music.Connect(g.Destination())
	percussion.Connect(g.Destination())
	p := beat.NewSynthPerformer(g, music, percussion)
	s := beat.NewScheduler(g, p)
	track := beatsynth.Track{
		BPM: 240,
		Voices: beatsynth.Voices{
			Melody: []beatsynth.Note{{Beat: 0, Frequency: 440, Duration: 1}, {Beat: 2, Frequency: 660, Duration: 0.5}},
			Bass:   []beatsynth.Note{{Beat: 1, Frequency: 110, Duration: 2}},
			Drums:  beatsynth.Drums{Kick: []int{0}, HiHat: []int{1, 3}, Clap: []int{2}},
		},
	}
	if err := s.Load(track); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	s.Play()
	if p.ActiveDrums() != 1 {
		t.Fatalf("kick on beat 0 should be sounding, active drums %v", p.ActiveDrums())
	}
	buf := make(beatsynth.AudioBuffer, sampleRate/100)
	for range 60 { // just under 0.6 s, into the third beat
		if err := g.Render(buf); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		s.Update()
		p.Reap(g.CurrentTime())
	}
	if g.PeakHold() == 0 {
		t.Fatal("performer produced no sound")
	}
	if s.CurrentBeat() != 2 {
		t.Errorf("CurrentBeat = %v, want 2", s.CurrentBeat())
	}
	if p.ActiveDrums() == 0 {
		t.Error("the clap of beat 2 should still be sounding")
	}
	s.Stop()
	if p.ActiveDrums() != 0 {
		t.Errorf("Stop should release drum hits, %v left", p.ActiveDrums())
	}
	if err := g.Render(buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if g.Peak() != 0 {
		t.Errorf("sound after Stop: peak %v", g.Peak())
	}
}

func TestSynthPerformerSilentBeforeFirstNote(t *testing.T) {
	g := graph.NewContext(sampleRate)
	p := beat.NewSynthPerformer(g, g.Destination(), g.Destination())
	s := beat.NewScheduler(g, p)
	s.Load(beatsynth.Track{
		BPM: 60,
		Voices: beatsynth.Voices{
			Melody: []beatsynth.Note{{Beat: 3, Frequency: 440, Duration: 1}},
		},
	})
	s.Play()
	buf := make(beatsynth.AudioBuffer, sampleRate/10)
	for range 10 {
		g.Render(buf)
		s.Update()
	}
	if g.PeakHold() != 0 {
		t.Errorf("tone chain audible before its first note: peak %v", g.PeakHold())
	}
}
