// Package engine owns the audio output: the graph context, the output device
// and the master, music and percussion buses. Sound is gated behind Activate,
// which stands for the end-user gesture most platforms require before audio
// may start.
package engine

import (
	"errors"
	"fmt"
	"log"

	"github.com/skyduel/beatsynth"
	"github.com/skyduel/beatsynth/graph"
)

type (
	Config struct {
		SampleRate       int     `yaml:"samplerate"`
		MasterVolume     float64 `yaml:"mastervolume"`
		MusicVolume      float64 `yaml:"musicvolume"`
		PercussionVolume float64 `yaml:"percussionvolume"`
	}

	// Opener opens the output device for the given sample rate. A nil Opener
	// runs the engine headless: the graph is built but nothing pulls it.
	Opener func(sampleRate int) (beatsynth.AudioContext, error)

	// Engine is not safe for concurrent use, apart from the graph it owns.
	// Once initialization fails or Dispose is called, the engine is
	// permanently unavailable and every method is a no-op.
	Engine struct {
		config Config
		open   Opener
		logger *log.Logger

		initialized bool
		failed      bool
		disposed    bool
		ready       bool

		graph      *graph.Context
		output     beatsynth.AudioContext
		playback   beatsynth.CloserWaiter
		master     *graph.Gain
		music      *graph.Gain
		percussion *graph.Gain
		onReady    func()
	}
)

// ErrUnavailable is returned by Initialize when the engine failed before or
// has been disposed.
var ErrUnavailable = errors.New("engine: audio is unavailable")

func DefaultConfig() Config {
	return Config{SampleRate: 44100, MasterVolume: 1, MusicVolume: 1, PercussionVolume: 1}
}

// New returns an engine that has not been initialized yet. A nil logger logs
// to log.Default().
func New(config Config, open Opener, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultConfig().SampleRate
	}
	return &Engine{config: config, open: open, logger: logger}
}

// Initialize builds the graph and the bus hierarchy and opens the output
// device. Calling it again after success does nothing. A failure leaves the
// engine permanently unavailable.
func (e *Engine) Initialize() error {
	if e.failed || e.disposed {
		return ErrUnavailable
	}
	if e.initialized {
		return nil
	}
	if e.open != nil {
		output, err := e.open(e.config.SampleRate)
		if err != nil {
			e.failed = true
			e.logger.Printf("audio initialization failed, audio disabled: %v", err)
			return fmt.Errorf("could not open audio output: %w", err)
		}
		e.output = output
	}
	e.graph = graph.NewContext(e.config.SampleRate)
	e.master = e.graph.NewGain()
	e.music = e.graph.NewGain()
	e.percussion = e.graph.NewGain()
	e.music.Connect(e.master)
	e.percussion.Connect(e.master)
	e.master.Connect(e.graph.Destination())
	e.master.Gain.SetValue(clampVolume(e.config.MasterVolume))
	e.music.Gain.SetValue(clampVolume(e.config.MusicVolume))
	e.percussion.Gain.SetValue(clampVolume(e.config.PercussionVolume))
	e.initialized = true
	return nil
}

// Activate grants the permission to produce sound. The output device starts
// pulling the graph and the registered ready callback, if any, is invoked
// once and cleared. The engine is initialized first if needed.
func (e *Engine) Activate() {
	if e.ready || e.Initialize() != nil {
		return
	}
	if e.output != nil {
		e.playback = e.output.Play(e.graph.Render)
	}
	e.ready = true
	cb := e.onReady
	e.onReady = nil
	if cb != nil {
		cb()
	}
}

// RegisterReadyCallback sets the function invoked when the engine becomes
// ready. There is a single slot: a later registration replaces an earlier
// one. If the engine is already ready, cb is invoked immediately.
func (e *Engine) RegisterReadyCallback(cb func()) {
	if !e.Available() || cb == nil {
		return
	}
	if e.ready {
		cb()
		return
	}
	e.onReady = cb
}

func (e *Engine) ClearReadyCallback() {
	e.onReady = nil
}

// HasReadyCallback reports whether a callback is waiting for activation.
func (e *Engine) HasReadyCallback() bool {
	return e.onReady != nil
}

func (e *Engine) IsReady() bool {
	return e.ready && e.Available()
}

// Available reports whether the engine can still produce sound: it has not
// failed to initialize and has not been disposed.
func (e *Engine) Available() bool {
	return !e.failed && !e.disposed
}

// CurrentTime returns the audio clock in seconds, or 0 before initialization.
func (e *Engine) CurrentTime() float64 {
	if e.graph == nil {
		return 0
	}
	return e.graph.CurrentTime()
}

// Graph returns the graph context, or nil if the engine is not initialized or
// not available.
func (e *Engine) Graph() *graph.Context {
	if !e.initialized || !e.Available() {
		return nil
	}
	return e.graph
}

func (e *Engine) MasterBus() *graph.Gain     { return e.bus(e.master) }
func (e *Engine) MusicBus() *graph.Gain      { return e.bus(e.music) }
func (e *Engine) PercussionBus() *graph.Gain { return e.bus(e.percussion) }

func (e *Engine) bus(g *graph.Gain) *graph.Gain {
	if !e.initialized || !e.Available() {
		return nil
	}
	return g
}

// SetMasterVolume sets the gain of the master bus, clamped to [0, 1].
func (e *Engine) SetMasterVolume(level float64) {
	if b := e.MasterBus(); b != nil {
		b.Gain.SetValue(clampVolume(level))
	}
}

func (e *Engine) SetMusicVolume(level float64) {
	if b := e.MusicBus(); b != nil {
		b.Gain.SetValue(clampVolume(level))
	}
}

func (e *Engine) SetPercussionVolume(level float64) {
	if b := e.PercussionBus(); b != nil {
		b.Gain.SetValue(clampVolume(level))
	}
}

// Dispose stops the output, closes the device and tears down the buses. The
// engine cannot be used afterwards.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.ready = false
	e.onReady = nil
	if e.playback != nil {
		e.playback.Close()
		e.playback = nil
	}
	if e.output != nil {
		if err := e.output.Close(); err != nil {
			e.logger.Printf("closing audio output: %v", err)
		}
		e.output = nil
	}
	if e.graph != nil {
		e.music.Disconnect()
		e.percussion.Disconnect()
		e.master.Disconnect()
		e.graph.Close()
	}
}

func clampVolume(level float64) float64 {
	if level != level { // NaN
		return 0
	}
	return min(max(level, 0), 1)
}
