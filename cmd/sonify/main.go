// Command sonify renders a still image into an evolving soundscape.
//
// It analyzes the image into a sonic profile, scans one or more
// rectangular layers across it, and renders the resulting audio to a
// WAV file and/or the default output device.
//
//	sonify -image photo.png -out photo.wav
//	sonify -image photo.jpg -config scene.yaml -play
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/cwbudde/algo-sonify/sonic/engine"
	sonicprofile "github.com/cwbudde/algo-sonify/sonic/profile"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

func main() {
	var (
		imagePath  = flag.String("image", "", "image to sonify (PNG or JPEG)")
		configPath = flag.String("config", "", "scene config YAML (optional)")
		outPath    = flag.String("out", "", "output WAV path")
		play       = flag.Bool("play", false, "play through the default audio device")
		duration   = flag.Float64("duration", 0, "override render duration in seconds")
		seed       = flag.Int64("seed", 0, "override the grain scheduling seed")
	)

	flag.Parse()

	logger := log.New(os.Stderr, "", 0)

	if *imagePath == "" {
		logger.Fatal("usage: sonify -image <path> [-config scene.yaml] [-out out.wav] [-play]")
	}

	if *outPath == "" && !*play {
		*outPath = "out.wav"
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if *duration > 0 {
		cfg.Engine.DurationSeconds = *duration
	}

	if *seed != 0 {
		cfg.Engine.RandomSeed = *seed
	}

	if err := run(cfg, *imagePath, *outPath, *play, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(cfg *Config, imagePath, outPath string, play bool, logger *log.Logger) error {
	pix, width, height, err := loadImage(imagePath, cfg.Engine.MaxImageDim)
	if err != nil {
		return fmt.Errorf("loading image: %w", err)
	}

	sched, err := engine.NewScheduler(float64(cfg.Engine.SampleRate),
		engine.WithRandomSeed(cfg.Engine.RandomSeed))
	if err != nil {
		return err
	}
	defer sched.Close()

	if err := sched.SetImage(pix, width, height); err != nil {
		return fmt.Errorf("analyzing image: %w", err)
	}

	sched.SetRootOffset(cfg.Engine.RootOffsetSemitones)
	sched.SetScaleOverride(cfg.Engine.ScaleOverride)

	profile := sched.Profile()
	logger.Printf("image %dx%d: root %.1f Hz, scale %s, warmth %.2f, contrast %.2f",
		width, height, profile.RootHz, profile.Scale.Name, profile.Warmth, profile.Contrast)

	for i, m := range profile.Modes {
		logger.Printf("  mode %d: %s (%s, score %.2f) - %s", i, m.Name, m.Archetype, m.Score, m.Description)
	}

	layers, err := buildLayers(cfg, profile, width, height)
	if err != nil {
		return err
	}

	left, right := renderScene(cfg, sched, layers)

	if outPath != "" {
		if err := writeWAV(outPath, left, right, cfg.Engine.SampleRate); err != nil {
			return err
		}

		logger.Printf("wrote %s (%.1f s)", outPath, cfg.Engine.DurationSeconds)
	}

	if play {
		logger.Print("playing...")

		if err := playStereo(left, right, cfg.Engine.SampleRate); err != nil {
			return fmt.Errorf("playback: %w", err)
		}
	}

	return nil
}

// renderScene runs the frame loop: advance scan heads, apply the scan
// patches back, render one frame's worth of audio.
func renderScene(cfg *Config, sched *engine.Scheduler, layers []engine.Layer) (left, right []float64) {
	dt := 1 / float64(cfg.Engine.FPS)
	frameSamples := cfg.Engine.SampleRate / cfg.Engine.FPS
	frames := int(cfg.Engine.DurationSeconds * float64(cfg.Engine.FPS))

	total := frames * frameSamples
	left = make([]float64, 0, total)
	right = make([]float64, 0, total)

	blockL := make([]float64, frameSamples)
	blockR := make([]float64, frameSamples)

	for f := 0; f < frames; f++ {
		patches := sched.Advance(layers, dt)

		for _, p := range patches {
			for i := range layers {
				p.Apply(&layers[i])
			}
		}

		sched.Render(blockL, blockR)

		left = append(left, blockL...)
		right = append(right, blockR...)
	}

	return left, right
}

// buildLayers converts normalized config rectangles to image-space
// layers bound to generated modes.
func buildLayers(cfg *Config, p *sonicprofile.ImageProfile, width, height int) ([]engine.Layer, error) {
	layers := make([]engine.Layer, 0, len(cfg.Layers))

	for i, lc := range cfg.Layers {
		if lc.Mode >= len(p.Modes) {
			return nil, fmt.Errorf("layer %d: mode index %d out of range (image has %d modes)",
				i, lc.Mode, len(p.Modes))
		}

		region := scan.Region{
			X: lc.X * float64(width),
			Y: lc.Y * float64(height),
			W: lc.W * float64(width),
			H: lc.H * float64(height),
		}

		l := engine.NewLayer(region, scan.ParseDirection(lc.Direction))

		if lc.ScanSpeed > 0 {
			l.ScanSpeed = lc.ScanSpeed
		}

		if lc.Volume > 0 {
			l.Volume = lc.Volume
		}

		l.Muted = lc.Muted
		l.PitchSemitones = lc.PitchSemitones
		l.Overrides = lc.Overrides
		l.Effects = effectsSettings(lc.Effects)
		l.ModeID = p.Modes[lc.Mode].ID

		layers = append(layers, l)
	}

	return layers, nil
}

// loadImage decodes a PNG or JPEG, downscales it to maxDim on the
// longer side, and returns raw RGBA bytes.
func loadImage(path string, maxDim int) (pix []byte, width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, err
	}

	b := src.Bounds()
	width, height = b.Dx(), b.Dy()

	if maxDim > 0 && (width > maxDim || height > maxDim) {
		scale := float64(maxDim) / float64(width)
		if height > width {
			scale = float64(maxDim) / float64(height)
		}

		width = int(float64(width) * scale)
		height = int(float64(height) * scale)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)

	return dst.Pix, width, height, nil
}
