package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/gogpu/glvis"
)

// pcm is a decoded track as interleaved signed 16-bit samples.
type pcm struct {
	rate     int
	channels int
	samples  []int16
}

// loadWAV decodes a WAV file. Tracks with more than two channels are cut
// down to their first two.
func loadWAV(path string) (*pcm, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: missing format chunk", path)
	}
	depth := int(d.BitDepth)
	if depth == 0 {
		return nil, fmt.Errorf("%s: unknown bit depth", path)
	}
	logger.Debug("glvis: decoded wav",
		"path", path,
		"rate", buf.Format.SampleRate,
		"channels", buf.Format.NumChannels,
		"bit_depth", depth,
		"samples", len(buf.Data))
	return toPCM(buf, depth), nil
}

// toPCM converts an integer buffer of the given bit depth to 16-bit,
// keeping at most two channels.
func toPCM(buf *audio.IntBuffer, depth int) *pcm {
	in := buf.Format.NumChannels
	out := min(in, 2)
	frames := len(buf.Data) / in
	p := &pcm{
		rate:     buf.Format.SampleRate,
		channels: out,
		samples:  make([]int16, frames*out),
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < out; c++ {
			p.samples[i*out+c] = to16(buf.Data[i*in+c], depth)
		}
	}
	return p
}

func to16(v, depth int) int16 {
	switch {
	case depth == 8:
		// 8-bit WAV is unsigned.
		return int16((v - 128) << 8)
	case depth > 16:
		return int16(v >> (depth - 16))
	default:
		return int16(v)
	}
}

// frames returns the number of video frames covering the track at fpsNum/fpsDen.
func (p *pcm) frames(fpsNum, fpsDen int) int {
	total := int64(len(p.samples) / p.channels)
	per := int64(p.rate) * int64(fpsDen)
	return int((total*int64(fpsNum) + per - 1) / per)
}

// buffer returns the audio for video frame n. The returned samples alias p.
func (p *pcm) buffer(n, fpsNum, fpsDen int) glvis.AudioBuffer {
	first := p.sampleAt(n, fpsNum, fpsDen)
	last := p.sampleAt(n+1, fpsNum, fpsDen)
	total := len(p.samples) / p.channels
	first, last = min(first, total), min(last, total)
	return glvis.AudioBuffer{
		PTS:     time.Duration(first) * time.Second / time.Duration(p.rate),
		Samples: p.samples[first*p.channels : last*p.channels],
	}
}

func (p *pcm) sampleAt(n, fpsNum, fpsDen int) int {
	return int(int64(n) * int64(p.rate) * int64(fpsDen) / int64(fpsNum))
}
