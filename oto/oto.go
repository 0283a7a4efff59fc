// Package oto plays audio sources on the system output device.
package oto

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/skyduel/beatsynth"
)

type (
	Options struct {
		SampleRate int
		// BufferSize is the device latency; zero picks the driver default.
		BufferSize time.Duration
		// PCM16 sends 16-bit integer samples instead of 32-bit floats.
		PCM16 bool
	}

	// OtoContext is a beatsynth.AudioContext on top of an oto context. Only
	// one oto context may exist per process.
	OtoContext struct {
		context *oto.Context
		options Options
	}

	// OtoOutput pulls frames from a source whenever the device asks for
	// more. It is the io.Reader behind the oto player.
	OtoOutput struct {
		src       beatsynth.AudioSource
		pcm16     bool
		buffer    beatsynth.AudioBuffer
		player    *oto.Player
		mu        sync.Mutex
		ended     bool
		done      chan struct{}
		closeOnce sync.Once
	}
)

const (
	frameSizeFloat = 8
	frameSize16    = 4
)

// NewContext opens the output device and waits until it is ready.
func NewContext(options Options) (*OtoContext, error) {
	format := oto.FormatFloat32LE
	if options.PCM16 {
		format = oto.FormatSignedInt16LE
	}
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   options.SampleRate,
		ChannelCount: 2,
		Format:       format,
		BufferSize:   options.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, options: options}, nil
}

// Play starts pulling from the source. The returned handle stops the player
// on Close; Wait returns once the source has failed or the player was closed.
func (c *OtoContext) Play(src beatsynth.AudioSource) beatsynth.CloserWaiter {
	o := newOutput(src, c.options.PCM16)
	o.player = c.context.NewPlayer(o)
	o.player.Play()
	return o
}

// Close suspends the device. oto contexts cannot be destroyed, so this is as
// close as it gets.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func newOutput(src beatsynth.AudioSource, pcm16 bool) *OtoOutput {
	return &OtoOutput{src: src, pcm16: pcm16, done: make(chan struct{})}
}

// Read fills p with as many whole frames as fit. Once the source fails, or
// the output was closed, Read returns io.EOF.
func (o *OtoOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ended {
		return 0, io.EOF
	}
	size := frameSizeFloat
	if o.pcm16 {
		size = frameSize16
	}
	frames := len(p) / size
	if frames == 0 {
		return 0, nil
	}
	o.buffer = setLength(o.buffer, frames)
	if err := o.src(o.buffer); err != nil {
		o.end()
		return 0, io.EOF
	}
	var out []byte
	if o.pcm16 {
		out = Append16BitLE(p[:0], o.buffer)
	} else {
		out = AppendFloat32LE(p[:0], o.buffer)
	}
	return len(out), nil
}

// Close stops the player and releases it.
func (o *OtoOutput) Close() error {
	o.mu.Lock()
	o.end()
	o.mu.Unlock()
	if o.player == nil {
		return nil
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

func (o *OtoOutput) Wait() {
	<-o.done
}

func (o *OtoOutput) end() {
	o.ended = true
	o.closeOnce.Do(func() { close(o.done) })
}

func setLength(buf beatsynth.AudioBuffer, n int) beatsynth.AudioBuffer {
	if cap(buf) < n {
		return make(beatsynth.AudioBuffer, n)
	}
	return buf[:n]
}
