package main

import (
	"bufio"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/gogpu/glvis"
)

// rawWriter writes tightly packed frames, suitable for ffmpeg -f rawvideo.
type rawWriter struct {
	w      *bufio.Writer
	c      io.Closer
	flip   bool
	frames int
	closed bool
}

func newRawWriter(path string, flip bool) (*rawWriter, error) {
	if path == "-" {
		return &rawWriter{w: bufio.NewWriterSize(os.Stdout, 1<<20), flip: flip}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &rawWriter{w: bufio.NewWriterSize(f, 1<<20), c: f, flip: flip}, nil
}

func (r *rawWriter) write(f *glvis.VideoFrame) error {
	rowBytes := f.Width * 4
	for y := 0; y < f.Height; y++ {
		row := y
		if r.flip {
			row = f.Height - 1 - y
		}
		if _, err := r.w.Write(f.Data[row*f.Stride : row*f.Stride+rowBytes]); err != nil {
			return err
		}
	}
	r.frames++
	return nil
}

func (r *rawWriter) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.w.Flush()
	if r.c != nil {
		if cerr := r.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// snapshotter saves every n-th frame as a scaled PNG.
type snapshotter struct {
	dir    string
	every  int
	width  int
	format glvis.VideoFormat
	flip   bool
}

func (s *snapshotter) enabled() bool { return s.dir != "" && s.every > 0 }

func (s *snapshotter) maybe(n int, f *glvis.VideoFrame) error {
	if !s.enabled() || n%s.every != 0 {
		return nil
	}
	src := frameImage(f, s.format, s.flip)
	dst := src
	if s.width > 0 && s.width < f.Width {
		h := max(1, f.Height*s.width/f.Width)
		scaled := image.NewRGBA(image.Rect(0, 0, s.width, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		dst = scaled
	}

	path := filepath.Join(s.dir, fmt.Sprintf("frame-%06d.png", n))
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, dst); err != nil {
		out.Close()
		return err
	}
	logger.Debug("glvis: snapshot written", "path", path)
	return out.Close()
}

// frameImage copies f into an RGBA image, reordering ABGR and BGRA pixels.
func frameImage(f *glvis.VideoFrame, format glvis.VideoFormat, flip bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	rowBytes := f.Width * 4
	for y := 0; y < f.Height; y++ {
		sy := y
		if flip {
			sy = f.Height - 1 - y
		}
		src := f.Data[sy*f.Stride : sy*f.Stride+rowBytes]
		dst := img.Pix[y*img.Stride : y*img.Stride+rowBytes]
		switch format {
		case glvis.VideoFormatABGR:
			for x := 0; x < rowBytes; x += 4 {
				dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+3], src[x+2], src[x+1], src[x]
			}
		case glvis.VideoFormatBGRA:
			for x := 0; x < rowBytes; x += 4 {
				dst[x], dst[x+1], dst[x+2], dst[x+3] = src[x+2], src[x+1], src[x], src[x+3]
			}
		default:
			copy(dst, src)
		}
	}
	return img
}
