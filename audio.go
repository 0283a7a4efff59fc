package beatsynth

import (
	"errors"
	"sync"
)

type (
	// AudioBuffer is a buffer of stereo frames, left and right channel
	// interleaved per frame.
	AudioBuffer [][2]float32

	// AudioSource fills the buffer completely with the next frames of audio.
	// Returning an error ends the playback the source is attached to.
	AudioSource func(buf AudioBuffer) error

	// AudioContext is an output device. Play starts pulling frames from the
	// source on a goroutine owned by the device and returns a handle to stop
	// it.
	AudioContext interface {
		Play(src AudioSource) CloserWaiter
		Close() error
	}

	// CloserWaiter stops a playback with Close and waits for its source to end
	// with Wait.
	CloserWaiter interface {
		Close() error
		Wait()
	}

	// PullContext is a headless AudioContext. Nothing is pulled on its own;
	// the owner calls Pull to advance the attached source, e.g. when rendering
	// offline or in tests.
	PullContext struct {
		mu   sync.Mutex
		src  AudioSource
		done chan struct{}
	}
)

// ErrNoSource is returned by PullContext.Pull when nothing is playing.
var ErrNoSource = errors.New("no audio source is playing")

// Play attaches the source, replacing any previous one.
func (c *PullContext) Play(src AudioSource) CloserWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil && c.src != nil {
		close(c.done)
	}
	c.src = src
	c.done = make(chan struct{})
	return &pullPlayback{context: c, done: c.done}
}

// Pull renders the next len(buf) frames of the attached source.
func (c *PullContext) Pull(buf AudioBuffer) error {
	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	if src == nil {
		return ErrNoSource
	}
	if err := src(buf); err != nil {
		c.detach()
		return err
	}
	return nil
}

// Playing reports whether a source is attached.
func (c *PullContext) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil
}

func (c *PullContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src != nil {
		close(c.done)
		c.src = nil
	}
	return nil
}

func (c *PullContext) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src == nil {
		return
	}
	c.src = nil
	close(c.done)
}

type pullPlayback struct {
	context *PullContext
	done    chan struct{}
}

func (p *pullPlayback) Close() error {
	p.context.mu.Lock()
	defer p.context.mu.Unlock()
	if p.context.done == p.done && p.context.src != nil {
		p.context.src = nil
		close(p.done)
	}
	return nil
}

func (p *pullPlayback) Wait() {
	<-p.done
}
