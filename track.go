package beatsynth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// Track describes one looping piece of music: a tempo and the events of
	// each voice. A Track is a pure value; once loaded nothing mutates it, and
	// the loop length is derived from the events rather than stored.
	Track struct {
		Title  string  `json:"title" yaml:"title"`
		BPM    float64 `json:"bpm" yaml:"bpm"`
		Voices Voices  `json:"tracks" yaml:"tracks"`
	}

	// Voices holds the per-voice event lists of a Track. Bass is optional.
	Voices struct {
		Melody []Note `json:"melody" yaml:"melody,flow"`
		Bass   []Note `json:"bass,omitempty" yaml:"bass,flow,omitempty"`
		Drums  Drums  `json:"drums" yaml:"drums"`
	}

	// Note is a pitched event starting at Beat, lasting Duration beats.
	Note struct {
		Beat      int     `json:"beat" yaml:"beat"`
		Frequency float64 `json:"frequency" yaml:"frequency"`
		Duration  float64 `json:"duration" yaml:"duration"`
	}

	// Drums lists the beat indices on which each drum of the kit is hit. Clap
	// is optional.
	Drums struct {
		Kick  []int `json:"kick" yaml:"kick,flow"`
		HiHat []int `json:"hihat" yaml:"hihat,flow"`
		Clap  []int `json:"clap,omitempty" yaml:"clap,flow,omitempty"`
	}
)

// ParseTrack decodes a track definition. The data is tried as JSON first and
// as YAML if that fails. The decoded track is validated before returning.
func ParseTrack(data []byte) (Track, error) {
	var track Track
	if errJSON := json.Unmarshal(data, &track); errJSON != nil {
		track = Track{}
		if errYaml := yaml.Unmarshal(data, &track); errYaml != nil {
			return Track{}, fmt.Errorf("the track could not be parsed as .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	if err := track.Validate(); err != nil {
		return Track{}, err
	}
	return track, nil
}

// Validate checks that the tempo is positive and that every event has a
// non-negative beat index, and notes a positive frequency and duration.
func (t Track) Validate() error {
	if !(t.BPM > 0) {
		return fmt.Errorf("track %q: bpm should be > 0, got %v", t.Title, t.BPM)
	}
	check := func(voice string, notes []Note) error {
		for i, n := range notes {
			if n.Beat < 0 {
				return fmt.Errorf("track %q: %s note %d: beat should be >= 0, got %d", t.Title, voice, i, n.Beat)
			}
			if !(n.Frequency > 0) {
				return fmt.Errorf("track %q: %s note %d: frequency should be > 0, got %v", t.Title, voice, i, n.Frequency)
			}
			if !(n.Duration > 0) {
				return fmt.Errorf("track %q: %s note %d: duration should be > 0, got %v", t.Title, voice, i, n.Duration)
			}
		}
		return nil
	}
	if err := check("melody", t.Voices.Melody); err != nil {
		return err
	}
	if err := check("bass", t.Voices.Bass); err != nil {
		return err
	}
	for name, beats := range map[string][]int{"kick": t.Voices.Drums.Kick, "hihat": t.Voices.Drums.HiHat, "clap": t.Voices.Drums.Clap} {
		for _, b := range beats {
			if b < 0 {
				return fmt.Errorf("track %q: %s: beat should be >= 0, got %d", t.Title, name, b)
			}
		}
	}
	return nil
}

// LoopLength returns the number of beats before the track repeats: one more
// than the largest beat index of any voice. An empty track loops every beat.
func (t Track) LoopLength() int {
	last := 0
	for _, n := range t.Voices.Melody {
		last = max(last, n.Beat)
	}
	for _, n := range t.Voices.Bass {
		last = max(last, n.Beat)
	}
	for _, beats := range [][]int{t.Voices.Drums.Kick, t.Voices.Drums.HiHat, t.Voices.Drums.Clap} {
		for _, b := range beats {
			last = max(last, b)
		}
	}
	return last + 1
}

// SecondsPerBeat returns the length of one beat at the track's nominal tempo.
func (t Track) SecondsPerBeat() float64 {
	return 60 / t.BPM
}

// Copy returns a deep copy of the track, so that the copy shares no slices
// with the original.
func (t Track) Copy() Track {
	copyNotes := func(notes []Note) []Note {
		if notes == nil {
			return nil
		}
		return append(make([]Note, 0, len(notes)), notes...)
	}
	copyBeats := func(beats []int) []int {
		if beats == nil {
			return nil
		}
		return append(make([]int, 0, len(beats)), beats...)
	}
	return Track{
		Title: t.Title,
		BPM:   t.BPM,
		Voices: Voices{
			Melody: copyNotes(t.Voices.Melody),
			Bass:   copyNotes(t.Voices.Bass),
			Drums: Drums{
				Kick:  copyBeats(t.Voices.Drums.Kick),
				HiHat: copyBeats(t.Voices.Drums.HiHat),
				Clap:  copyBeats(t.Voices.Drums.Clap),
			},
		},
	}
}

// JSON encodes the track in the resource format.
func (t Track) JSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("could not encode track %q as json: %w", t.Title, err)
	}
	return buf.Bytes(), nil
}

// YAML encodes the track as YAML.
func (t Track) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, fmt.Errorf("could not encode track %q as yaml: %w", t.Title, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not encode track %q as yaml: %w", t.Title, err)
	}
	return buf.Bytes(), nil
}

// ErrNotFound is returned by a Fetcher when the requested resource does not
// exist.
var ErrNotFound = errors.New("resource not found")
