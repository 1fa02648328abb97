package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-sonify/sonic/fxchain"
)

// Config is the scene description loaded from YAML: engine settings
// plus the layers drawn over the image.
type Config struct {
	Engine struct {
		// SampleRate of the rendered audio in Hz.
		SampleRate int `yaml:"sampleRate"`

		// FPS is the frame-loop rate driving scan heads.
		FPS int `yaml:"fps"`

		// DurationSeconds of audio to render.
		DurationSeconds float64 `yaml:"durationSeconds"`

		// MaxImageDim downscales larger images before analysis.
		MaxImageDim int `yaml:"maxImageDim"`

		// RandomSeed makes grain scheduling reproducible.
		RandomSeed int64 `yaml:"randomSeed"`

		// RootOffsetSemitones transposes the whole scene.
		RootOffsetSemitones float64 `yaml:"rootOffsetSemitones"`

		// ScaleOverride replaces the analyzed scale by name; empty
		// keeps the analysis result.
		ScaleOverride string `yaml:"scaleOverride"`
	} `yaml:"engine"`

	Layers []LayerConfig `yaml:"layers"`
}

// LayerConfig describes one scanned region. Region coordinates are
// normalized to the image (0-1) so one scene fits any image size.
type LayerConfig struct {
	// X, Y, W, H are the region rectangle, normalized to [0, 1].
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`

	// Direction is horizontal, vertical, diagonal_down or diagonal_up.
	Direction string `yaml:"direction"`

	// ScanSpeed in pixels per second.
	ScanSpeed float64 `yaml:"scanSpeed"`

	// Mode is an index into the profile's generated modes.
	Mode int `yaml:"mode"`

	Volume float64 `yaml:"volume"`
	Muted  bool    `yaml:"muted"`

	PitchSemitones float64 `yaml:"pitchSemitones"`

	// Overrides adjusts individual mode parameters by name, e.g.
	// grainDensity or release.
	Overrides map[string]float64 `yaml:"overrides"`

	Effects EffectsConfig `yaml:"effects"`
}

// EffectsConfig toggles the per-layer effect chain. Zero values for
// the numeric fields keep the chain defaults.
type EffectsConfig struct {
	Distortion      bool    `yaml:"distortion"`
	DistortionDrive float64 `yaml:"distortionDrive"`

	EQ       bool    `yaml:"eq"`
	EQLowDB  float64 `yaml:"eqLowDB"`
	EQMidDB  float64 `yaml:"eqMidDB"`
	EQHighDB float64 `yaml:"eqHighDB"`

	Flanger bool `yaml:"flanger"`
	Chorus  bool `yaml:"chorus"`

	Delay         bool    `yaml:"delay"`
	DelayTime     float64 `yaml:"delayTime"`
	DelayFeedback float64 `yaml:"delayFeedback"`

	Reverb      bool    `yaml:"reverb"`
	ReverbDecay float64 `yaml:"reverbDecay"`
	ReverbWet   float64 `yaml:"reverbWet"`
}

// DefaultConfig returns a one-layer scene with practical defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Engine.SampleRate = 48000
	cfg.Engine.FPS = 60
	cfg.Engine.DurationSeconds = 10
	cfg.Engine.MaxImageDim = 512
	cfg.Engine.RandomSeed = 1

	cfg.Layers = []LayerConfig{{
		X: 0.1, Y: 0.1, W: 0.8, H: 0.8,
		Direction: "horizontal",
		ScanSpeed: 60,
		Volume:    1,
	}}

	return cfg
}

// LoadConfig loads a scene from a YAML file; a missing path returns
// the default scene.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, cfg.validate()
}

// effectsSettings maps the YAML effect toggles onto chain settings,
// keeping chain defaults for parameters the scene leaves at zero.
func effectsSettings(e EffectsConfig) fxchain.Settings {
	s := fxchain.DefaultSettings()

	s.DistortionEnabled = e.Distortion
	if e.DistortionDrive > 0 {
		s.DistortionDrive = e.DistortionDrive
	}

	s.EQEnabled = e.EQ
	s.EQLowGainDB = e.EQLowDB
	s.EQMidGainDB = e.EQMidDB
	s.EQHighGainDB = e.EQHighDB

	s.FlangerEnabled = e.Flanger
	s.ChorusEnabled = e.Chorus

	s.DelayEnabled = e.Delay
	if e.DelayTime > 0 {
		s.DelayTime = e.DelayTime
	}
	if e.DelayFeedback > 0 {
		s.DelayFeedback = e.DelayFeedback
	}

	s.ReverbEnabled = e.Reverb
	if e.ReverbDecay > 0 {
		s.ReverbDecay = e.ReverbDecay
	}
	if e.ReverbWet > 0 {
		s.ReverbWet = e.ReverbWet
	}

	return s
}

func (c *Config) validate() error {
	if c.Engine.SampleRate <= 0 {
		return fmt.Errorf("engine.sampleRate must be > 0, got %d", c.Engine.SampleRate)
	}

	if c.Engine.FPS <= 0 {
		return fmt.Errorf("engine.fps must be > 0, got %d", c.Engine.FPS)
	}

	if c.Engine.DurationSeconds <= 0 {
		return fmt.Errorf("engine.durationSeconds must be > 0, got %f", c.Engine.DurationSeconds)
	}

	if len(c.Layers) == 0 {
		return fmt.Errorf("at least one layer is required")
	}

	for i, l := range c.Layers {
		if l.W <= 0 || l.H <= 0 {
			return fmt.Errorf("layer %d: w and h must be > 0", i)
		}

		if l.Mode < 0 {
			return fmt.Errorf("layer %d: mode index must be >= 0", i)
		}
	}

	return nil
}
