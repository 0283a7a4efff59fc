// Package beat turns the audio clock into musical beats. The Scheduler is
// polled by the host once per frame: it derives the beat index from the time
// elapsed since the start of the current loop pass, fires every event of a
// newly reached beat exactly once and wraps around at the end of the track.
//
// Because the beat is recomputed from the clock on every tick, tempo changes
// take effect immediately and the loop never drifts. The flip side is that a
// host stalling for longer than a beat skips the beats in between; they are
// not replayed.
package beat

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/skyduel/beatsynth"
)

type (
	// Clock is the audio clock, in seconds. It must never go backwards.
	Clock interface {
		CurrentTime() float64
	}

	// Performer makes the fired events audible.
	Performer interface {
		// Start is called when playback of track begins at audio time at.
		Start(track beatsynth.Track, at float64)
		// Perform is called for every fired event, in firing order.
		Perform(ev Event)
		// Stop silences everything the performer has started.
		Stop()
	}

	Voice int

	// Event is one thing that happens on a beat: a melody or bass note or
	// a drum hit. Time and SecondsPerBeat are filled in when the event
	// fires; SecondsPerBeat includes the speed multiplier.
	Event struct {
		Voice          Voice
		Beat           int
		Note           beatsynth.Note
		Time           float64
		SecondsPerBeat float64
	}

	State int

	session struct {
		playing   bool
		loopStart float64
		highWater int
		speed     float64
	}

	// Scheduler is driven from a single goroutine. Only CurrentBeat may be
	// called from elsewhere.
	Scheduler struct {
		clock      Clock
		performer  Performer
		track      beatsynth.Track
		loaded     bool
		events     map[int][]Event // by beat; tracks may be sparse
		loopLength int
		speed      float64
		session    session
		loops      int
		current    atomic.Int64
	}
)

// Events of the same beat fire in this order.
const (
	Melody Voice = iota
	Bass
	Kick
	HiHat
	Clap
)

const (
	Idle State = iota
	Armed
	Playing
)

var ErrInvalidSpeed = errors.New("speed must be a finite number > 0")

func (v Voice) String() string {
	switch v {
	case Melody:
		return "melody"
	case Bass:
		return "bass"
	case Kick:
		return "kick"
	case HiHat:
		return "hihat"
	case Clap:
		return "clap"
	}
	return fmt.Sprintf("Voice(%d)", int(v))
}

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func NewScheduler(clock Clock, performer Performer) *Scheduler {
	s := &Scheduler{clock: clock, performer: performer, speed: 1}
	s.session = s.newSession(false, 0)
	return s
}

// SetPerformer replaces the performer. It does nothing while playing.
func (s *Scheduler) SetPerformer(p Performer) {
	if s.session.playing {
		return
	}
	s.performer = p
}

// Load replaces the track, stopping playback first if needed. The track is
// copied, so the caller may reuse its slices.
func (s *Scheduler) Load(track beatsynth.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("could not load track: %w", err)
	}
	s.Stop()
	s.track = track.Copy()
	s.loaded = true
	s.loopLength = track.LoopLength()
	s.events = make(map[int][]Event)
	add := func(v Voice, beat int, n beatsynth.Note) {
		s.events[beat] = append(s.events[beat], Event{Voice: v, Beat: beat, Note: n})
	}
	for _, n := range s.track.Voices.Melody {
		add(Melody, n.Beat, n)
	}
	for _, n := range s.track.Voices.Bass {
		add(Bass, n.Beat, n)
	}
	for _, b := range s.track.Voices.Drums.Kick {
		add(Kick, b, beatsynth.Note{})
	}
	for _, b := range s.track.Voices.Drums.HiHat {
		add(HiHat, b, beatsynth.Note{})
	}
	for _, b := range s.track.Voices.Drums.Clap {
		add(Clap, b, beatsynth.Note{})
	}
	return nil
}

// Play starts a fresh session with beat 0 at the current audio time and fires
// beat 0 right away. It does nothing without a track or while playing.
func (s *Scheduler) Play() {
	if !s.loaded || s.session.playing {
		return
	}
	now := s.clock.CurrentTime()
	s.session = s.newSession(true, now)
	s.loops = 0
	s.current.Store(0)
	if s.performer != nil {
		s.performer.Start(s.track, now)
	}
	s.Update()
}

// Stop silences the performer and returns to the armed state. The next Play
// starts over from beat 0.
func (s *Scheduler) Stop() {
	if !s.session.playing {
		return
	}
	s.session = s.newSession(false, 0)
	s.current.Store(0)
	if s.performer != nil {
		s.performer.Stop()
	}
}

// Update is the per-tick driver. It fires the events of the current beat if
// that beat has not fired yet in this loop pass.
func (s *Scheduler) Update() {
	if !s.session.playing {
		return
	}
	now := s.clock.CurrentTime()
	beat := s.beatAt(now)
	if beat >= s.loopLength {
		s.session.loopStart = now
		s.session.highWater = -1
		s.loops++
		beat = 0
	}
	s.current.Store(int64(beat))
	if beat <= s.session.highWater {
		return
	}
	spb := s.secondsPerBeat()
	for _, ev := range s.events[beat] {
		ev.Time = now
		ev.SecondsPerBeat = spb
		if s.performer != nil {
			s.performer.Perform(ev)
		}
	}
	s.session.highWater = beat
}

// SetSpeed sets the tempo multiplier. While playing, the loop start is moved
// so that the position within the loop is kept and only the rate at which it
// advances changes from now on.
func (s *Scheduler) SetSpeed(m float64) error {
	if !(m > 0) || math.IsInf(m, 1) {
		return fmt.Errorf("%w, got %v", ErrInvalidSpeed, m)
	}
	if s.session.playing {
		now := s.clock.CurrentTime()
		pos := s.position(now)
		s.session.speed = m
		s.session.loopStart = now - pos/s.beatsPerSecond()
	}
	s.speed = m
	s.session.speed = m
	return nil
}

// CurrentBeat returns the beat of the current loop pass as of the last tick,
// or 0 when not playing. It has no side effects and may be called from any
// goroutine.
func (s *Scheduler) CurrentBeat() int {
	return int(s.current.Load())
}

func (s *Scheduler) State() State {
	switch {
	case s.session.playing:
		return Playing
	case s.loaded:
		return Armed
	}
	return Idle
}

// Track returns the loaded track.
func (s *Scheduler) Track() (beatsynth.Track, bool) {
	return s.track, s.loaded
}

func (s *Scheduler) Speed() float64     { return s.speed }
func (s *Scheduler) LoopLength() int    { return s.loopLength }
func (s *Scheduler) LoopStart() float64 { return s.session.loopStart }

// HighWater returns the last beat fired in the current loop pass, -1 if none.
func (s *Scheduler) HighWater() int { return s.session.highWater }

// Loops returns the number of completed loop passes since Play.
func (s *Scheduler) Loops() int { return s.loops }

func (s *Scheduler) newSession(playing bool, at float64) session {
	return session{playing: playing, loopStart: at, highWater: -1, speed: s.speed}
}

// position returns the fractional beat position within the loop pass.
func (s *Scheduler) position(now float64) float64 {
	return (now - s.session.loopStart) * s.beatsPerSecond()
}

func (s *Scheduler) beatAt(now float64) int {
	return max(int(math.Floor(s.position(now))), 0)
}

func (s *Scheduler) beatsPerSecond() float64 {
	return s.track.BPM / 60 * s.session.speed
}

func (s *Scheduler) secondsPerBeat() float64 {
	return 1 / s.beatsPerSecond()
}
