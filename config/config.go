// Package config loads the player settings. Defaults are embedded in the
// binary; a config.yml in the user config directory and BEATSYNTH_*
// environment variables override them, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/skyduel/beatsynth/engine"
)

type Config struct {
	SampleRate       int     `yaml:"samplerate"`
	BufferMS         int     `yaml:"bufferms"`
	MasterVolume     float64 `yaml:"mastervolume"`
	MusicVolume      float64 `yaml:"musicvolume"`
	PercussionVolume float64 `yaml:"percussionvolume"`
	MusicDir         string  `yaml:"musicdir"`
	Speed            float64 `yaml:"speed"`
	TickMS           int     `yaml:"tickms"`
}

//go:embed config.yml
var defaultConfigYaml []byte

const envPrefix = "BEATSYNTH_"

func Default() Config {
	var c Config
	if err := yaml.UnmarshalStrict(defaultConfigYaml, &c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Load returns the defaults overridden by the file at path and then by the
// environment. An empty path means config.yml in the user config directory,
// which may be missing; an explicit path must exist.
func Load(path string) (Config, error) {
	c := Default()
	explicit := path != ""
	if !explicit {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "beatsynth", "config.yml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.UnmarshalStrict(data, &c); err != nil {
				return Config{}, fmt.Errorf("could not parse %v: %w", path, err)
			}
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return Config{}, fmt.Errorf("could not read %v: %w", path, err)
		}
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"SAMPLE_RATE": &c.SampleRate,
		"BUFFER_MS":   &c.BufferMS,
		"TICK_MS":     &c.TickMS,
	}
	floats := map[string]*float64{
		"MASTER_VOLUME":     &c.MasterVolume,
		"MUSIC_VOLUME":      &c.MusicVolume,
		"PERCUSSION_VOLUME": &c.PercussionVolume,
		"SPEED":             &c.Speed,
	}
	for name, target := range ints {
		if v, ok := lookup(envPrefix + name); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*target = i
		}
	}
	for name, target := range floats {
		if v, ok := lookup(envPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*target = f
		}
	}
	if v, ok := lookup(envPrefix + "MUSIC_DIR"); ok {
		c.MusicDir = v
	}
	return nil
}

func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("samplerate %v out of range [8000, 192000]", c.SampleRate)
	}
	if c.BufferMS < 0 {
		return fmt.Errorf("bufferms must be >= 0, got %v", c.BufferMS)
	}
	if c.TickMS <= 0 {
		return fmt.Errorf("tickms must be > 0, got %v", c.TickMS)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"mastervolume", c.MasterVolume},
		{"musicvolume", c.MusicVolume},
		{"percussionvolume", c.PercussionVolume},
	} {
		if !(v.value >= 0 && v.value <= 1) {
			return fmt.Errorf("%s must be within [0, 1], got %v", v.name, v.value)
		}
	}
	if !(c.Speed > 0) || math.IsInf(c.Speed, 1) {
		return fmt.Errorf("speed must be a finite number > 0, got %v", c.Speed)
	}
	return nil
}

func (c Config) Engine() engine.Config {
	return engine.Config{
		SampleRate:       c.SampleRate,
		MasterVolume:     c.MasterVolume,
		MusicVolume:      c.MusicVolume,
		PercussionVolume: c.PercussionVolume,
	}
}

func (c Config) BufferSize() time.Duration {
	return time.Duration(c.BufferMS) * time.Millisecond
}

// TickInterval is how often the host drives the scheduler.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}
