package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}

	if cfg.Engine.SampleRate != 48000 || cfg.Engine.FPS != 60 {
		t.Fatalf("defaults = %d Hz, %d fps, want 48000, 60",
			cfg.Engine.SampleRate, cfg.Engine.FPS)
	}

	if len(cfg.Layers) != 1 {
		t.Fatalf("default layer count = %d, want 1", len(cfg.Layers))
	}
}

func TestLoadConfigParsesScene(t *testing.T) {
	yaml := `
engine:
  sampleRate: 44100
  fps: 30
  durationSeconds: 5
layers:
  - x: 0.2
    y: 0.2
    w: 0.5
    h: 0.5
    direction: vertical
    scanSpeed: 120
    mode: 1
    overrides:
      grainDensity: 20
    effects:
      reverb: true
      reverbDecay: 2.5
`

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error = %v", err)
	}

	if cfg.Engine.SampleRate != 44100 || cfg.Engine.FPS != 30 {
		t.Fatalf("engine = %d Hz, %d fps, want 44100, 30",
			cfg.Engine.SampleRate, cfg.Engine.FPS)
	}

	l := cfg.Layers[0]

	if l.Direction != "vertical" || l.ScanSpeed != 120 || l.Mode != 1 {
		t.Fatalf("layer = %+v, want vertical at 120 px/s, mode 1", l)
	}

	if l.Overrides["grainDensity"] != 20 {
		t.Fatalf("grainDensity override = %f, want 20", l.Overrides["grainDensity"])
	}

	s := effectsSettings(l.Effects)

	if !s.ReverbEnabled || s.ReverbDecay != 2.5 {
		t.Fatalf("reverb settings = %+v, want enabled with decay 2.5", s)
	}

	// Untouched parameters keep chain defaults.
	if s.DelayTime != 0.3 {
		t.Fatalf("DelayTime = %f, want default 0.3", s.DelayTime)
	}
}

func TestLoadConfigRejectsBadScene(t *testing.T) {
	cases := map[string]string{
		"zero fps": `
engine:
  sampleRate: 48000
  fps: 0
  durationSeconds: 5
layers:
  - {x: 0, y: 0, w: 0.5, h: 0.5}
`,
		"no layers": `
engine:
  sampleRate: 48000
  fps: 60
  durationSeconds: 5
layers: []
`,
		"zero-area layer": `
engine:
  sampleRate: 48000
  fps: 60
  durationSeconds: 5
layers:
  - {x: 0, y: 0, w: 0, h: 0.5}
`,
	}

	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scene.yaml")
			if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
