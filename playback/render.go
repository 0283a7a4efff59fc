package playback

import (
	"errors"
	"fmt"
	"math"

	"github.com/skyduel/beatsynth"
)

const defaultBlockFrames = 256

// Render drives the controller offline: it alternates a host tick with a pull
// of blockFrames frames from the headless context until seconds of audio have
// been rendered. The engine of c must be playing into pull.
func Render(c *Controller, pull *beatsynth.PullContext, seconds float64, blockFrames int) (beatsynth.AudioBuffer, error) {
	g := c.engine.Graph()
	if g == nil {
		return nil, errors.New("render: audio engine is not initialized")
	}
	if blockFrames <= 0 {
		blockFrames = defaultBlockFrames
	}
	total := int(math.Round(seconds * float64(g.SampleRate())))
	out := make(beatsynth.AudioBuffer, 0, max(total, 0))
	block := make(beatsynth.AudioBuffer, blockFrames)
	for len(out) < total {
		n := min(blockFrames, total-len(out))
		c.Update()
		if err := pull.Pull(block[:n]); err != nil {
			return out, fmt.Errorf("render: %w", err)
		}
		out = append(out, block[:n]...)
	}
	return out, nil
}
