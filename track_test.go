package beatsynth_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/skyduel/beatsynth"
)

const testTrackJSON = `{
  "title": "Test Loop",
  "bpm": 100,
  "tracks": {
    "melody": [
      {"beat": 0, "frequency": 440, "duration": 1},
      {"beat": 3, "frequency": 523.25, "duration": 0.5}
    ],
    "bass": [{"beat": 0, "frequency": 110, "duration": 2}],
    "drums": {"kick": [0, 4], "hihat": [0, 2, 4, 6]}
  }
}`

func TestParseTrackJSON(t *testing.T) {
	track, err := beatsynth.ParseTrack([]byte(testTrackJSON))
	if err != nil {
		t.Fatalf("ParseTrack failed: %v", err)
	}
	if track.Title != "Test Loop" || track.BPM != 100 {
		t.Fatalf("unexpected header: %q %v", track.Title, track.BPM)
	}
	if len(track.Voices.Melody) != 2 || track.Voices.Melody[1].Frequency != 523.25 {
		t.Fatalf("unexpected melody: %v", track.Voices.Melody)
	}
	if track.Voices.Drums.Clap != nil {
		t.Errorf("clap should be absent, got %v", track.Voices.Drums.Clap)
	}
	if got := track.LoopLength(); got != 7 {
		t.Errorf("LoopLength = %v, want 7", got)
	}
	if got := track.SecondsPerBeat(); got != 0.6 {
		t.Errorf("SecondsPerBeat = %v, want 0.6", got)
	}
}

func TestParseTrackYAML(t *testing.T) {
	const data = `title: yaml loop
bpm: 120
tracks:
  melody: [{beat: 0, frequency: 330, duration: 1}]
  drums:
    kick: [0, 7]
    hihat: [1]
    clap: [3]
`
	track, err := beatsynth.ParseTrack([]byte(data))
	if err != nil {
		t.Fatalf("ParseTrack failed: %v", err)
	}
	if got := track.LoopLength(); got != 8 {
		t.Errorf("LoopLength = %v, want 8", got)
	}
	if len(track.Voices.Drums.Clap) != 1 {
		t.Errorf("clap = %v, want [3]", track.Voices.Drums.Clap)
	}
}

func TestParseTrackInvalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"garbage", "{not: [valid"},
		{"zero bpm", `{"bpm": 0, "tracks": {"melody": [], "drums": {"kick": [], "hihat": []}}}`},
		{"negative beat", `{"bpm": 90, "tracks": {"melody": [{"beat": -1, "frequency": 1, "duration": 1}], "drums": {"kick": [], "hihat": []}}}`},
		{"zero frequency", `{"bpm": 90, "tracks": {"melody": [{"beat": 1, "frequency": 0, "duration": 1}], "drums": {"kick": [], "hihat": []}}}`},
		{"zero duration", `{"bpm": 90, "tracks": {"bass": [{"beat": 1, "frequency": 50, "duration": 0}], "drums": {"kick": [], "hihat": []}}}`},
		{"negative drum", `{"bpm": 90, "tracks": {"drums": {"kick": [-4], "hihat": []}}}`},
	}
	for _, c := range cases {
		if _, err := beatsynth.ParseTrack([]byte(c.data)); err == nil {
			t.Errorf("%s: expected an error", c.name)
		}
	}
}

func TestEmptyTrackLoopLength(t *testing.T) {
	track := beatsynth.Track{BPM: 60}
	if got := track.LoopLength(); got != 1 {
		t.Errorf("LoopLength of an empty track = %v, want 1", got)
	}
}

func TestTrackRoundTrip(t *testing.T) {
	orig, err := beatsynth.ParseTrack([]byte(testTrackJSON))
	if err != nil {
		t.Fatalf("ParseTrack failed: %v", err)
	}
	encoders := map[string]func(beatsynth.Track) ([]byte, error){
		"json": beatsynth.Track.JSON,
		"yaml": beatsynth.Track.YAML,
	}
	for name, encode := range encoders {
		data, err := encode(orig)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", name, err)
		}
		got, err := beatsynth.ParseTrack(data)
		if err != nil {
			t.Fatalf("%s: reparse failed: %v\n%s", name, err, data)
		}
		if !sameNotes(got.Voices.Melody, orig.Voices.Melody) || !sameNotes(got.Voices.Bass, orig.Voices.Bass) {
			t.Errorf("%s: notes changed in round trip", name)
		}
		if !sameBeats(got.Voices.Drums.Kick, orig.Voices.Drums.Kick) || !sameBeats(got.Voices.Drums.HiHat, orig.Voices.Drums.HiHat) {
			t.Errorf("%s: drums changed in round trip", name)
		}
		if got.BPM != orig.BPM || got.Title != orig.Title {
			t.Errorf("%s: header changed in round trip", name)
		}
	}
}

func TestTrackCopyIsDeep(t *testing.T) {
	orig, err := beatsynth.ParseTrack([]byte(testTrackJSON))
	if err != nil {
		t.Fatalf("ParseTrack failed: %v", err)
	}
	c := orig.Copy()
	c.Voices.Melody[0].Frequency = 1
	c.Voices.Drums.Kick[0] = 5
	if orig.Voices.Melody[0].Frequency != 440 || orig.Voices.Drums.Kick[0] != 0 {
		t.Fatal("modifying the copy changed the original")
	}
}

func TestTrackYAMLUsesResourceKeys(t *testing.T) {
	orig, err := beatsynth.ParseTrack([]byte(testTrackJSON))
	if err != nil {
		t.Fatalf("ParseTrack failed: %v", err)
	}
	data, err := orig.YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}
	for _, key := range []string{"tracks:", "hihat:", "melody:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("yaml output lacks %q:\n%s", key, data)
		}
	}
}

func sameNotes(a, b []beatsynth.Note) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameBeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBundledTracksParse(t *testing.T) {
	fetcher := beatsynth.FSFetcher{FS: os.DirFS("assets/music")}
	for _, name := range []string{"skirmish.json", "patrol.yml"} {
		data, err := fetcher.Fetch(context.Background(), name)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", name, err)
		}
		track, err := beatsynth.ParseTrack(data)
		if err != nil {
			t.Errorf("%v: %v", name, err)
			continue
		}
		if track.LoopLength() != 8 {
			t.Errorf("%v: LoopLength = %v, want 8", name, track.LoopLength())
		}
	}
}
