package engine

import (
	"github.com/google/uuid"

	"github.com/cwbudde/algo-sonify/sonic/fxchain"
	"github.com/cwbudde/algo-sonify/sonic/scan"
)

// Layer is one scanned region of the image. The record is owned by the
// surrounding application; the scheduler reads a snapshot each frame
// and returns scan-field patches, never writing the record itself.
type Layer struct {
	ID string

	Region    scan.Region
	Direction scan.Direction

	// ScanSpeed is in pixels per second. ScanPos is the normalized
	// head position in [0, 1); ScanX is the legacy pixel offset used
	// by horizontal scans.
	ScanSpeed float64
	ScanPos   float64
	ScanX     float64

	Volume float64
	Muted  bool

	// ModeID selects a generated mode from the image profile; empty or
	// unresolvable ids play silence.
	ModeID string

	// Overrides adjusts individual mode parameters by name.
	Overrides map[string]float64

	PitchSemitones float64

	Effects fxchain.Settings
}

// NewLayer creates a layer over the given region with a fresh id and
// practical defaults.
func NewLayer(region scan.Region, dir scan.Direction) Layer {
	return Layer{
		ID:        uuid.NewString(),
		Region:    region,
		Direction: dir,
		ScanSpeed: 60,
		Volume:    1,
		Effects:   fxchain.DefaultSettings(),
	}
}

// ScanPatch is the scheduler's sparse write-back: only scan fields,
// applied by the layer's owner. Other fields are never touched so
// concurrent edits survive the frame.
type ScanPatch struct {
	ID      string
	ScanPos float64
	ScanX   float64
}

// Apply copies the patch into the layer it addresses.
func (p ScanPatch) Apply(l *Layer) {
	if l == nil || l.ID != p.ID {
		return
	}

	l.ScanPos = p.ScanPos
	l.ScanX = p.ScanX
}

// Readout is the per-layer visualization snapshot: the scan head's
// absolute image coordinates and the sample read there this frame.
type Readout struct {
	ID           string
	HeadX, HeadY float64
	Sample       scan.PixelSample
}
