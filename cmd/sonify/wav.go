package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// writeWAV writes a 16-bit stereo PCM file. Samples outside [-1, 1]
// are hard-clipped.
func writeWAV(path string, left, right []float64, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("wav: channel lengths differ: %d vs %d", len(left), len(right))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	const (
		channels      = 2
		bitsPerSample = 16
	)

	dataLen := len(left) * channels * bitsPerSample / 8
	byteRate := sampleRate * channels * bitsPerSample / 8

	// RIFF header.
	w.WriteString("RIFF")
	binary.Write(w, binary.LittleEndian, uint32(36+dataLen))
	w.WriteString("WAVE")

	// Format chunk.
	w.WriteString("fmt ")
	binary.Write(w, binary.LittleEndian, uint32(16))
	binary.Write(w, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(w, binary.LittleEndian, uint16(channels))
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))
	binary.Write(w, binary.LittleEndian, uint32(byteRate))
	binary.Write(w, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(w, binary.LittleEndian, uint16(bitsPerSample))

	// Data chunk.
	w.WriteString("data")
	binary.Write(w, binary.LittleEndian, uint32(dataLen))

	for i := range left {
		binary.Write(w, binary.LittleEndian, pcm16(left[i]))
		binary.Write(w, binary.LittleEndian, pcm16(right[i]))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	return nil
}

func pcm16(v float64) int16 {
	if math.IsNaN(v) {
		return 0
	}

	if v > 1 {
		v = 1
	}

	if v < -1 {
		v = -1
	}

	return int16(v * 32767)
}
