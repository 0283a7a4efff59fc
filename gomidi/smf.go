// Package gomidi converts tracks to and from Standard MIDI Files.
//
// A written file has a conductor track carrying the title and tempo, followed
// by one track per voice: melody on channel 1, bass on channel 2 and drums on
// the General MIDI percussion channel 10. Reading accepts any file and maps
// channels the same way; other channels are merged into the melody.
package gomidi

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/skyduel/beatsynth"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// TicksPerBeat is the resolution of written files.
const TicksPerBeat = 960

const (
	melodyChannel = 0
	bassChannel   = 1
	drumChannel   = 9

	kickKey  = 36
	hihatKey = 42
	clapKey  = 39

	velocity      = 100
	drumHitLength = 0.25 // beats
)

type timedMessage struct {
	tick uint32
	off  bool
	msg  midi.Message
}

// WriteSMF encodes the track as a Standard MIDI File.
func WriteSMF(w io.Writer, track beatsynth.Track) error {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerBeat)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName(track.Title))
	conductor.Add(0, smf.MetaTempo(track.BPM))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("could not add conductor track: %w", err)
	}

	voices := []struct {
		name string
		msgs []timedMessage
	}{
		{"melody", noteMessages(melodyChannel, track.Voices.Melody)},
		{"bass", noteMessages(bassChannel, track.Voices.Bass)},
		{"drums", slices.Concat(
			drumMessages(kickKey, track.Voices.Drums.Kick),
			drumMessages(hihatKey, track.Voices.Drums.HiHat),
			drumMessages(clapKey, track.Voices.Drums.Clap),
		)},
	}
	for _, v := range voices {
		if len(v.msgs) == 0 {
			continue
		}
		if err := s.Add(encodeTrack(v.name, v.msgs)); err != nil {
			return fmt.Errorf("could not add %s track: %w", v.name, err)
		}
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write smf: %w", err)
	}
	return nil
}

func noteMessages(channel uint8, notes []beatsynth.Note) []timedMessage {
	ret := make([]timedMessage, 0, 2*len(notes))
	for _, n := range notes {
		key := KeyForFrequency(n.Frequency)
		start := beatsToTicks(float64(n.Beat))
		end := max(beatsToTicks(float64(n.Beat)+n.Duration), start+1)
		ret = append(ret,
			timedMessage{tick: start, msg: midi.NoteOn(channel, key, velocity)},
			timedMessage{tick: end, off: true, msg: midi.NoteOff(channel, key)},
		)
	}
	return ret
}

func drumMessages(key uint8, beats []int) []timedMessage {
	ret := make([]timedMessage, 0, 2*len(beats))
	for _, b := range beats {
		start := beatsToTicks(float64(b))
		ret = append(ret,
			timedMessage{tick: start, msg: midi.NoteOn(drumChannel, key, velocity)},
			timedMessage{tick: start + beatsToTicks(drumHitLength), off: true, msg: midi.NoteOff(drumChannel, key)},
		)
	}
	return ret
}

// encodeTrack sorts the messages by time, note offs first so that a note
// repeated back to back is not cut short, and converts them to delta times.
func encodeTrack(name string, msgs []timedMessage) smf.Track {
	slices.SortStableFunc(msgs, func(a, b timedMessage) int {
		if a.tick != b.tick {
			return int(a.tick) - int(b.tick)
		}
		switch {
		case a.off && !b.off:
			return -1
		case !a.off && b.off:
			return 1
		}
		return 0
	})
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))
	var last uint32
	for _, m := range msgs {
		tr.Add(m.tick-last, m.msg)
		last = m.tick
	}
	tr.Close(0)
	return tr
}

// ReadSMF decodes a Standard MIDI File into a track with the given title.
// Only files with metric time are supported. Note starts are rounded to the
// nearest beat.
func ReadSMF(r io.Reader, title string) (beatsynth.Track, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return beatsynth.Track{}, fmt.Errorf("could not read smf: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return beatsynth.Track{}, fmt.Errorf("unsupported smf time format %v", s.TimeFormat)
	}
	resolution := float64(uint32(mt))
	track := beatsynth.Track{Title: title}
	type noteKey struct{ channel, key uint8 }
	for _, tr := range s.Tracks {
		var tick uint32
		started := map[noteKey]uint32{}
		for _, ev := range tr {
			tick += ev.Delta
			var bpm float64
			if track.BPM == 0 && ev.Message.GetMetaTempo(&bpm) {
				track.BPM = bpm
				continue
			}
			msg := midi.Message(ev.Message)
			var channel, key, vel uint8
			switch {
			case msg.GetNoteStart(&channel, &key, &vel):
				started[noteKey{channel, key}] = tick
			case msg.GetNoteEnd(&channel, &key):
				start, ok := started[noteKey{channel, key}]
				if !ok {
					continue
				}
				delete(started, noteKey{channel, key})
				addNote(&track, channel, key, float64(start)/resolution, float64(tick-start)/resolution)
			}
		}
	}
	if track.BPM == 0 {
		track.BPM = 120
	}
	slices.SortStableFunc(track.Voices.Melody, byBeat)
	slices.SortStableFunc(track.Voices.Bass, byBeat)
	slices.Sort(track.Voices.Drums.Kick)
	slices.Sort(track.Voices.Drums.HiHat)
	slices.Sort(track.Voices.Drums.Clap)
	if err := track.Validate(); err != nil {
		return beatsynth.Track{}, err
	}
	return track, nil
}

func addNote(track *beatsynth.Track, channel, key uint8, start, length float64) {
	beat := int(math.Round(start))
	if channel == drumChannel {
		d := &track.Voices.Drums
		switch key {
		case 35, kickKey:
			d.Kick = append(d.Kick, beat)
		case hihatKey, 44, 46:
			d.HiHat = append(d.HiHat, beat)
		case 38, clapKey, 40:
			d.Clap = append(d.Clap, beat)
		}
		return
	}
	if length <= 0 {
		length = drumHitLength
	}
	n := beatsynth.Note{Beat: beat, Frequency: FrequencyForKey(key), Duration: length}
	if channel == bassChannel {
		track.Voices.Bass = append(track.Voices.Bass, n)
		return
	}
	track.Voices.Melody = append(track.Voices.Melody, n)
}

func byBeat(a, b beatsynth.Note) int {
	return a.Beat - b.Beat
}

// KeyForFrequency returns the MIDI key closest to the frequency, A4 = 440 Hz
// being key 69.
func KeyForFrequency(f float64) uint8 {
	if !(f > 0) {
		return 0
	}
	k := math.Round(69 + 12*math.Log2(f/440))
	return uint8(min(max(k, 0), 127))
}

// FrequencyForKey returns the equal-tempered frequency of a MIDI key.
func FrequencyForKey(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func beatsToTicks(beats float64) uint32 {
	return uint32(math.Round(beats * TicksPerBeat))
}
