package main

import (
	"io"
	"math"
	"time"

	"github.com/hajimehoshi/oto/v2"
)

// bitDepth 0 selects oto's 32-bit float little-endian format.
const bitDepth = 0

// playStereo blocks until the rendered soundscape has played through
// the default output device.
func playStereo(left, right []float64, sampleRate int) error {
	ctx, ready, err := oto.NewContext(sampleRate, 2, bitDepth)
	if err != nil {
		return err
	}
	<-ready

	data := make([]byte, len(left)*8)
	for i := range left {
		putStereoF32(data, i, left[i], right[i])
	}

	player := ctx.NewPlayer(&soundReader{data: data})
	player.Play()

	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}

	return player.Close()
}

type soundReader struct {
	data []byte
	pos  int
}

func (r *soundReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}

	n := copy(p, r.data[r.pos:])
	r.pos += n

	return n, nil
}

// putStereoF32 writes one stereo frame as float32 LE at frame i.
func putStereoF32(buf []byte, i int, left, right float64) {
	lv := math.Float32bits(float32(left))
	rv := math.Float32bits(float32(right))

	buf[i*8] = byte(lv)
	buf[i*8+1] = byte(lv >> 8)
	buf[i*8+2] = byte(lv >> 16)
	buf[i*8+3] = byte(lv >> 24)
	buf[i*8+4] = byte(rv)
	buf[i*8+5] = byte(rv >> 8)
	buf[i*8+6] = byte(rv >> 16)
	buf[i*8+7] = byte(rv >> 24)
}
