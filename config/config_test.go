package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.SampleRate != 44100 || c.Speed != 1 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if c.TickInterval() != 16*time.Millisecond || c.BufferSize() != 50*time.Millisecond {
		t.Errorf("TickInterval = %v, BufferSize = %v", c.TickInterval(), c.BufferSize())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("samplerate: 48000\nmusicvolume: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.SampleRate != 48000 || c.MusicVolume != 0.5 {
		t.Errorf("file values not applied: %+v", c)
	}
	if c.MasterVolume != 1 || c.TickMS != 16 {
		t.Errorf("defaults lost: %+v", c)
	}
	e := c.Engine()
	if e.SampleRate != 48000 || e.MusicVolume != 0.5 || e.PercussionVolume != c.PercussionVolume {
		t.Errorf("Engine() = %+v", e)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte("samplerat: 48000\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Error("Load should reject a misspelled key")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("Load should fail for a missing explicit path")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BEATSYNTH_SAMPLE_RATE", "22050")
	t.Setenv("BEATSYNTH_SPEED", "1.5")
	t.Setenv("BEATSYNTH_MUSIC_DIR", "/tmp/tracks")
	path := filepath.Join(t.TempDir(), "config.yml")
	os.WriteFile(path, []byte("samplerate: 48000\n"), 0644)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.SampleRate != 22050 || c.Speed != 1.5 || c.MusicDir != "/tmp/tracks" {
		t.Errorf("environment not applied: %+v", c)
	}
}

func TestEnvironmentErrors(t *testing.T) {
	c := Default()
	err := c.applyEnv(func(name string) (string, bool) {
		if name == "BEATSYNTH_TICK_MS" {
			return "soon", true
		}
		return "", false
	})
	if err == nil || !strings.Contains(err.Error(), "BEATSYNTH_TICK_MS") {
		t.Errorf("got %v, want an error naming BEATSYNTH_TICK_MS", err)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(*Config)
	}{
		{"low sample rate", func(c *Config) { c.SampleRate = 100 }},
		{"negative buffer", func(c *Config) { c.BufferMS = -1 }},
		{"zero tick", func(c *Config) { c.TickMS = 0 }},
		{"loud master", func(c *Config) { c.MasterVolume = 2 }},
		{"negative music", func(c *Config) { c.MusicVolume = -0.1 }},
		{"zero speed", func(c *Config) { c.Speed = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(&c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
