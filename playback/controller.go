// Package playback is the façade hosts talk to: it loads tracks in the
// background, starts and stops the music once audio is allowed to play and
// fires one-shot effects. Playback is best effort. Nothing here returns an
// error for a sound that could not be made; failures are logged and the call
// becomes a no-op.
package playback

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/beat"
	"github.com/skyduel/beatsynth/engine"
	"github.com/skyduel/beatsynth/gomidi"
	"github.com/skyduel/beatsynth/graph"
	"github.com/skyduel/beatsynth/sfx"
)

// Controller must be driven from a single goroutine, apart from LoadTrack,
// whose result is handed over on the next Play or Update, and CurrentBeat,
// which may be read from anywhere.
type Controller struct {
	engine  *engine.Engine
	fetcher beatsynth.Fetcher
	logger  *log.Logger

	scheduler *beat.Scheduler
	performer *beat.SynthPerformer
	effects   *sfx.Library
	deferred  bool

	mu      sync.Mutex
	pending *beatsynth.Track
	cleaned atomic.Bool
}

func New(eng *engine.Engine, fetcher beatsynth.Fetcher, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		engine:    eng,
		fetcher:   fetcher,
		logger:    logger,
		scheduler: beat.NewScheduler(eng, nil),
	}
}

// LoadTrack fetches and parses the track at p on a new goroutine. The
// returned channel is closed when the attempt is over, successful or not. A
// failed load is logged and leaves the controller unchanged. Paths ending in
// .mid or .midi are read as Standard MIDI Files.
func (c *Controller) LoadTrack(ctx context.Context, p string) <-chan struct{} {
	done := make(chan struct{})
	if c.cleaned.Load() {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		track, err := c.fetchTrack(ctx, p)
		if err != nil {
			c.logger.Printf("loadTrack %q: %v", p, err)
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cleaned.Load() {
			return
		}
		c.pending = &track
	}()
	return done
}

func (c *Controller) fetchTrack(ctx context.Context, p string) (beatsynth.Track, error) {
	if c.fetcher == nil {
		return beatsynth.Track{}, fmt.Errorf("no fetcher: %w", beatsynth.ErrNotFound)
	}
	data, err := c.fetcher.Fetch(ctx, p)
	if err != nil {
		return beatsynth.Track{}, err
	}
	ext := path.Ext(p)
	title := strings.TrimSuffix(path.Base(p), ext)
	switch strings.ToLower(ext) {
	case ".mid", ".midi":
		return gomidi.ReadSMF(bytes.NewReader(data), title)
	}
	track, err := beatsynth.ParseTrack(data)
	if err != nil {
		return beatsynth.Track{}, err
	}
	if track.Title == "" {
		track.Title = title
	}
	return track, nil
}

// adopt hands a freshly loaded track to the scheduler. A track arriving
// while the music plays takes over from beat 0.
func (c *Controller) adopt() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	if pending == nil {
		return
	}
	playing := c.scheduler.State() == beat.Playing
	if err := c.scheduler.Load(*pending); err != nil {
		c.logger.Printf("loadTrack: %v", err)
		return
	}
	if playing {
		c.scheduler.Play()
	}
}

// Play starts the loaded track from beat 0. Without a track, while playing
// or after Cleanup it does nothing. If audio has not been activated yet, the
// call is remembered and repeated once the engine becomes ready.
func (c *Controller) Play() {
	if c.cleaned.Load() {
		return
	}
	c.adopt()
	if c.scheduler.State() != beat.Armed || !c.engine.Available() {
		return
	}
	if !c.engine.IsReady() {
		c.deferred = true
		c.engine.RegisterReadyCallback(func() {
			c.deferred = false
			c.Play()
		})
		return
	}
	if !c.ensureAudio() {
		return
	}
	c.scheduler.Play()
}

// ensureAudio binds the synth performer and the effect library to the graph
// once it exists.
func (c *Controller) ensureAudio() bool {
	g := c.engine.Graph()
	if g == nil {
		return false
	}
	if c.performer == nil {
		c.performer = beat.NewSynthPerformer(g, c.engine.MusicBus(), c.engine.PercussionBus())
		c.scheduler.SetPerformer(c.performer)
	}
	if c.effects == nil {
		c.effects = sfx.NewLibrary(g)
	}
	return true
}

// Stop silences the music and cancels a deferred Play.
func (c *Controller) Stop() {
	c.cancelDeferred()
	c.scheduler.Stop()
}

func (c *Controller) cancelDeferred() {
	if c.deferred {
		c.engine.ClearReadyCallback()
		c.deferred = false
	}
}

// SetSpeed sets the tempo multiplier. Invalid values are logged and ignored.
func (c *Controller) SetSpeed(m float64) {
	if err := c.scheduler.SetSpeed(m); err != nil {
		c.logger.Printf("setSpeed: %v", err)
	}
}

// CurrentBeat returns the beat of the current loop pass, 0 when stopped.
func (c *Controller) CurrentBeat() int {
	return c.scheduler.CurrentBeat()
}

// Update is the host tick. It adopts a loaded track, advances the scheduler
// and releases effects that have played out. Once the engine has been
// disposed it stops the music.
func (c *Controller) Update() {
	if c.cleaned.Load() {
		return
	}
	c.adopt()
	if !c.engine.Available() {
		c.Stop()
		return
	}
	c.scheduler.Update()
	now := c.engine.CurrentTime()
	if c.performer != nil {
		c.performer.Reap(now)
	}
	if c.effects != nil {
		c.effects.Reap(now)
	}
}

// Cleanup stops everything and detaches the controller for good.
func (c *Controller) Cleanup() {
	if c.cleaned.Swap(true) {
		return
	}
	c.Stop()
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	if c.effects != nil {
		c.effects.ReleaseAll()
	}
}

// Track returns the track handed over to the scheduler, if any.
func (c *Controller) Track() (beatsynth.Track, bool) {
	return c.scheduler.Track()
}

func (c *Controller) Playing() bool {
	return c.scheduler.State() == beat.Playing
}

// ActiveEffects returns the number of one-shots not yet reaped.
func (c *Controller) ActiveEffects() int {
	if c.effects == nil {
		return 0
	}
	return c.effects.Active()
}

func (c *Controller) PlayPercussiveLow()         { c.PlayEffect(sfx.PercussiveLow) }
func (c *Controller) PlayPercussiveHigh()        { c.PlayEffect(sfx.PercussiveHigh) }
func (c *Controller) PlayBandNoiseTransient()    { c.PlayEffect(sfx.BandNoise) }
func (c *Controller) PlayProjectile()            { c.PlayEffect(sfx.Projectile) }
func (c *Controller) PlayImpactExplosion()       { c.PlayEffect(sfx.ImpactExplosion) }
func (c *Controller) PlayCatastrophicExplosion() { c.PlayEffect(sfx.CatastrophicExplosion) }
func (c *Controller) PlaySiren()                 { c.PlayEffect(sfx.Siren) }

// PlayEffect fires a one-shot at the current audio time. Drum sounds go to
// the percussion bus, the rest to master. It does nothing until the engine is
// ready.
func (c *Controller) PlayEffect(e sfx.Effect) {
	if c.cleaned.Load() || !c.engine.IsReady() || !c.ensureAudio() {
		return
	}
	var dst graph.Node = c.engine.MasterBus()
	if e.Percussive() {
		dst = c.engine.PercussionBus()
	}
	if _, err := c.effects.Play(e, dst, c.engine.CurrentTime()); err != nil {
		c.logger.Printf("playEffect: %v", err)
	}
}
