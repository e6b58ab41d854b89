package offscreen

import (
	"fmt"

	"github.com/gogpu/glvis/glapi"
)

// RingSize is the number of pixel-pack buffers in a ReadbackRing.
const RingSize = 3

const bytesPerPixel = 4

// PixelFormat is the format/type pair handed to glReadPixels.
type PixelFormat struct {
	Format glapi.Enum
	Type   glapi.Enum
}

// Readback pipelines GPU-to-CPU pixel transfers through a ring of
// pixel-pack buffers.
//
// Each Download issues an asynchronous read of the current read framebuffer
// into the next slot and consumes the slot written by the previous call. The
// GPU gets a full frame interval to finish a transfer before the CPU maps
// it, at the cost of one frame of latency.
type Readback struct {
	gl     glapi.Funcs
	format PixelFormat

	buffers    [RingSize]uint32
	bufferSize int
	width      int
	height     int
	writeIndex int
	hasReady   bool
	allocated  bool
}

// NewReadback returns an unallocated ring that reads pixels in format.
func NewReadback(gl glapi.Funcs, format PixelFormat) *Readback {
	return &Readback{gl: gl, format: format}
}

// Supported reports whether the context has the entry points the ring needs.
func (r *Readback) Supported() bool {
	return r.gl.Supports(glapi.CapPixelBufferObject) && r.gl.Supports(glapi.CapMapBufferRange)
}

// Ensure (re)allocates the ring for width x height frames. Rotation state is
// reset whenever the buffers are reallocated.
func (r *Readback) Ensure(width, height int) error {
	if !ValidSize(width, height) {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if r.allocated && r.width == width && r.height == height {
		return nil
	}
	if !r.Supported() {
		return fmt.Errorf("readback ring: %w", glapi.ErrUnsupported)
	}
	r.Release()

	size := width * height * bytesPerPixel
	for i := range r.buffers {
		r.buffers[i] = r.gl.GenBuffer()
		r.gl.BindBuffer(glapi.PixelPackBuffer, r.buffers[i])
		r.gl.BufferData(glapi.PixelPackBuffer, size, glapi.StreamRead)
	}
	r.gl.BindBuffer(glapi.PixelPackBuffer, 0)

	r.bufferSize = size
	r.width, r.height = width, height
	r.allocated = true
	slogger().Debug("offscreen: readback ring allocated",
		"buffers", RingSize, "width", width, "height", height, "bytes", size)
	return nil
}

// Download issues a read of the bound read framebuffer into the next ring
// slot and copies the previous slot into dst, whose rows are dstStride bytes
// apart.
//
// It returns false when nothing was copied: on the first call after Ensure
// (no slot has completed a rotation yet), when the size does not match the
// allocation, or when mapping fails. The caller must then read the frame
// synchronously.
func (r *Readback) Download(width, height int, dst []byte, dstStride int) bool {
	if !r.allocated || width != r.width || height != r.height {
		return false
	}
	gl := r.gl
	w, h := int32(width), int32(height) //nolint:gosec // bounded by MaxSize

	slot := r.writeIndex
	prev := (slot + RingSize - 1) % RingSize

	gl.PixelStorei(glapi.PackAlignment, bytesPerPixel)
	gl.BindBuffer(glapi.PixelPackBuffer, r.buffers[slot])
	gl.ReadPixelsToBuffer(0, 0, w, h, r.format.Format, r.format.Type, 0)
	r.writeIndex = (slot + 1) % RingSize

	if !r.hasReady {
		r.hasReady = true
		gl.BindBuffer(glapi.PixelPackBuffer, 0)
		return false
	}

	gl.BindBuffer(glapi.PixelPackBuffer, r.buffers[prev])
	src := gl.MapBufferRange(glapi.PixelPackBuffer, 0, r.bufferSize, glapi.MapReadBit)
	if src == nil {
		gl.BindBuffer(glapi.PixelPackBuffer, 0)
		slogger().Warn("offscreen: failed to map readback buffer", "slot", prev)
		return false
	}
	copyRows(dst, dstStride, src, width*bytesPerPixel, height)
	gl.UnmapBuffer(glapi.PixelPackBuffer)
	gl.BindBuffer(glapi.PixelPackBuffer, 0)
	return true
}

// Release deletes the ring buffers and resets rotation state.
func (r *Readback) Release() {
	if r.allocated {
		for i, id := range r.buffers {
			if id != 0 {
				r.gl.DeleteBuffer(id)
			}
			r.buffers[i] = 0
		}
	}
	r.bufferSize = 0
	r.width, r.height = 0, 0
	r.writeIndex = 0
	r.hasReady = false
	r.allocated = false
}

// ReadSync reads width x height pixels from the bound read framebuffer
// straight into dst. It blocks until the GPU has finished rendering.
func ReadSync(gl glapi.Funcs, format PixelFormat, width, height int, dst []byte, dstStride int) {
	w, h := int32(width), int32(height) //nolint:gosec // bounded by MaxSize
	gl.PixelStorei(glapi.PackAlignment, bytesPerPixel)
	rowBytes := width * bytesPerPixel
	if dstStride == rowBytes {
		gl.ReadPixels(0, 0, w, h, format.Format, format.Type, dst[:rowBytes*height])
		return
	}
	tmp := make([]byte, rowBytes*height)
	gl.ReadPixels(0, 0, w, h, format.Format, format.Type, tmp)
	copyRows(dst, dstStride, tmp, rowBytes, height)
}

// copyRows copies height rows from a tightly packed src into dst. When the
// strides agree the copy is a single block.
func copyRows(dst []byte, dstStride int, src []byte, srcStride, height int) {
	if dstStride == srcStride {
		n := min(len(dst), len(src), srcStride*height)
		copy(dst[:n], src[:n])
		return
	}
	rowBytes := min(dstStride, srcStride)
	for y := 0; y < height; y++ {
		d := y * dstStride
		s := y * srcStride
		if d+rowBytes > len(dst) || s+rowBytes > len(src) {
			return
		}
		copy(dst[d:d+rowBytes], src[s:s+rowBytes])
	}
}
