package glvis

import (
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/internal/offscreen"
)

// NoPTS marks a buffer without a timestamp.
const NoPTS time.Duration = -1

// VideoFormat is the pixel layout of output frames.
type VideoFormat int

const (
	// VideoFormatUnknown is the zero value and is never accepted.
	VideoFormatUnknown VideoFormat = iota
	// VideoFormatRGBA stores R, G, B, A bytes in memory order.
	VideoFormatRGBA
	// VideoFormatABGR stores A, B, G, R bytes in memory order.
	VideoFormatABGR
	// VideoFormatBGRA stores B, G, R, A bytes in memory order.
	VideoFormatBGRA
)

// String returns the lower-case format name.
func (f VideoFormat) String() string {
	switch f {
	case VideoFormatRGBA:
		return "rgba"
	case VideoFormatABGR:
		return "abgr"
	case VideoFormatBGRA:
		return "bgra"
	default:
		return "unknown"
	}
}

// ParseVideoFormat parses a format name as returned by String.
func ParseVideoFormat(s string) (VideoFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rgba":
		return VideoFormatRGBA, nil
	case "abgr":
		return VideoFormatABGR, nil
	case "bgra":
		return VideoFormatBGRA, nil
	}
	return VideoFormatUnknown, fmt.Errorf("%w: video format %q", ErrUnsupportedFormat, s)
}

// readFormat maps f to the glReadPixels format/type pair producing it.
func (f VideoFormat) readFormat() (offscreen.PixelFormat, bool) {
	switch f {
	case VideoFormatRGBA:
		return offscreen.PixelFormat{Format: glapi.RGBA, Type: glapi.UnsignedByte}, true
	case VideoFormatABGR:
		// Packed 8_8_8_8 stores R in the most significant byte, which lands
		// last in memory on little-endian hosts.
		return offscreen.PixelFormat{Format: glapi.RGBA, Type: glapi.UnsignedInt8888}, true
	case VideoFormatBGRA:
		return offscreen.PixelFormat{Format: glapi.BGRA, Type: glapi.UnsignedByte}, true
	default:
		return offscreen.PixelFormat{}, false
	}
}

// VideoInfo describes the negotiated output video stream.
type VideoInfo struct {
	Width  int
	Height int
	Format VideoFormat
	// FPSNum/FPSDen is the frame rate. A zero denominator means 1.
	FPSNum int
	FPSDen int
}

// Stride returns the tightly packed row size in bytes.
func (v VideoInfo) Stride() int { return v.Width * 4 }

// FrameRate returns the frame rate in frames per second, or 0 if unknown.
func (v VideoInfo) FrameRate() float64 {
	den := v.FPSDen
	if den == 0 {
		den = 1
	}
	if v.FPSNum <= 0 || den < 0 {
		return 0
	}
	return float64(v.FPSNum) / float64(den)
}

// AudioInfo describes the negotiated input audio stream. Samples are
// interleaved signed 16-bit.
type AudioInfo struct {
	Rate     int
	Channels int
}

// AudioBuffer is one buffer of interleaved 16-bit PCM.
type AudioBuffer struct {
	// PTS is the presentation timestamp, or NoPTS.
	PTS     time.Duration
	Samples []int16
}

// VideoFrame is a caller-owned output frame. Render fills Data and does not
// keep a reference to it.
type VideoFrame struct {
	PTS    time.Duration
	Width  int
	Height int
	// Stride is the distance between rows in bytes. It may exceed Width*4.
	Stride int
	Data   []byte
}

// NewVideoFrame allocates a tightly packed frame for info.
func NewVideoFrame(info VideoInfo) *VideoFrame {
	return &VideoFrame{
		PTS:    NoPTS,
		Width:  info.Width,
		Height: info.Height,
		Stride: info.Stride(),
		Data:   make([]byte, info.Stride()*info.Height),
	}
}

// holds reports whether f can store a width x height picture.
func (f *VideoFrame) holds(width, height int) bool {
	if f == nil || f.Width < width || f.Height < height || f.Stride < width*4 {
		return false
	}
	return len(f.Data) >= f.Stride*(height-1)+width*4
}
