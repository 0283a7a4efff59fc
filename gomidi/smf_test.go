package gomidi_test

import (
	"bytes"
	"math"
	"slices"
	"testing"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/gomidi"
)

func TestKeyForFrequency(t *testing.T) {
	for _, tc := range []struct {
		freq float64
		key  uint8
	}{
		{440, 69},
		{220, 57},
		{261.63, 60},
		{450, 69},
		{0, 0},
		{-5, 0},
		{1e9, 127},
	} {
		if got := gomidi.KeyForFrequency(tc.freq); got != tc.key {
			t.Errorf("KeyForFrequency(%v) = %v, want %v", tc.freq, got, tc.key)
		}
	}
	if f := gomidi.FrequencyForKey(81); math.Abs(f-880) > 1e-9 {
		t.Errorf("FrequencyForKey(81) = %v, want 880", f)
	}
}

func TestSMFRoundTrip(t *testing.T) {
	track := beatsynth.Track{
		Title: "round trip",
		BPM:   96,
		Voices: beatsynth.Voices{
			Melody: []beatsynth.Note{
				{Beat: 0, Frequency: 440, Duration: 1},
				{Beat: 1, Frequency: 440, Duration: 0.5},
				{Beat: 3, Frequency: 880, Duration: 2},
			},
			Bass: []beatsynth.Note{{Beat: 0, Frequency: 110, Duration: 4}},
			Drums: beatsynth.Drums{
				Kick:  []int{0, 4},
				HiHat: []int{0, 2, 4, 6},
				Clap:  []int{2, 6},
			},
		},
	}
	var buf bytes.Buffer
	if err := gomidi.WriteSMF(&buf, track); err != nil {
		t.Fatalf("WriteSMF failed: %v", err)
	}
	got, err := gomidi.ReadSMF(&buf, "round trip")
	if err != nil {
		t.Fatalf("ReadSMF failed: %v", err)
	}
	if math.Abs(got.BPM-track.BPM) > 1e-3 {
		t.Errorf("BPM = %v, want %v", got.BPM, track.BPM)
	}
	if got.Title != track.Title {
		t.Errorf("Title = %q, want %q", got.Title, track.Title)
	}
	compareNotes(t, "melody", got.Voices.Melody, track.Voices.Melody)
	compareNotes(t, "bass", got.Voices.Bass, track.Voices.Bass)
	for _, d := range []struct {
		name      string
		got, want []int
	}{
		{"kick", got.Voices.Drums.Kick, track.Voices.Drums.Kick},
		{"hihat", got.Voices.Drums.HiHat, track.Voices.Drums.HiHat},
		{"clap", got.Voices.Drums.Clap, track.Voices.Drums.Clap},
	} {
		if !slices.Equal(d.got, d.want) {
			t.Errorf("%s = %v, want %v", d.name, d.got, d.want)
		}
	}
	if got.LoopLength() != track.LoopLength() {
		t.Errorf("LoopLength = %v, want %v", got.LoopLength(), track.LoopLength())
	}
}

func compareNotes(t *testing.T, voice string, got, want []beatsynth.Note) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %v notes, want %v", voice, len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Beat != w.Beat || math.Abs(g.Frequency-w.Frequency) > 1e-6 || math.Abs(g.Duration-w.Duration) > 1e-6 {
			t.Errorf("%s note %v = %+v, want %+v", voice, i, g, w)
		}
	}
}

func TestReadSMFRejectsGarbage(t *testing.T) {
	if _, err := gomidi.ReadSMF(bytes.NewReader([]byte("not a midi file")), "x"); err == nil {
		t.Error("ReadSMF should fail on garbage input")
	}
}
