//go:build !nogl

// Package gogl implements glapi.Funcs on top of github.com/go-gl/gl.
//
// The caller must make a GL context current on the calling OS thread before
// calling New, and must keep every later call on that thread.
package gogl

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/gogpu/glvis/glapi"
)

var (
	initOnce sync.Once
	initErr  error
)

// Funcs is a glapi.Funcs backed by the process-wide go-gl function pointers.
type Funcs struct {
	es           bool
	major, minor int
	version      string
}

var _ glapi.Funcs = (*Funcs)(nil)

// New loads the GL entry points (once per process) and probes the context
// version.
func New() (*Funcs, error) {
	initOnce.Do(func() {
		initErr = gl.Init()
	})
	if initErr != nil {
		return nil, fmt.Errorf("gogl: init: %w", initErr)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	es, major, minor, err := parseVersion(version)
	if err != nil {
		return nil, fmt.Errorf("gogl: %w", err)
	}
	return &Funcs{es: es, major: major, minor: minor, version: version}, nil
}

// parseVersion understands both desktop ("4.6.0 NVIDIA 535.54") and ES
// ("OpenGL ES 3.2 Mesa 23.1") version strings.
func parseVersion(s string) (es bool, major, minor int, err error) {
	v := strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(v, "OpenGL ES "); ok {
		es = true
		v = rest
	}
	if _, err = fmt.Sscanf(v, "%d.%d", &major, &minor); err != nil {
		return false, 0, 0, fmt.Errorf("parse GL version %q: %w", s, err)
	}
	return es, major, minor, nil
}

// Version returns the GL_VERSION string of the context.
func (f *Funcs) Version() string { return f.version }

func (f *Funcs) atLeast(major, minor int) bool {
	return f.major > major || (f.major == major && f.minor >= minor)
}

// Supports implements glapi.Funcs.
func (f *Funcs) Supports(c glapi.Capability) bool {
	if f.es {
		switch c {
		case glapi.CapFramebufferObject:
			return f.atLeast(2, 0)
		default:
			return f.atLeast(3, 0)
		}
	}
	switch c {
	case glapi.CapPixelBufferObject:
		return f.atLeast(2, 1)
	default:
		return f.atLeast(3, 0)
	}
}

func (f *Funcs) GenFramebuffer() uint32 {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return id
}

func (f *Funcs) DeleteFramebuffer(id uint32) { gl.DeleteFramebuffers(1, &id) }

func (f *Funcs) BindFramebuffer(target glapi.Enum, id uint32) {
	gl.BindFramebuffer(uint32(target), id)
}

func (f *Funcs) CheckFramebufferStatus(target glapi.Enum) glapi.Enum {
	return glapi.Enum(gl.CheckFramebufferStatus(uint32(target)))
}

func (f *Funcs) FramebufferTexture2D(target, attachment, texTarget glapi.Enum, texture uint32, level int32) {
	gl.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(texTarget), texture, level)
}

func (f *Funcs) FramebufferRenderbuffer(target, attachment, rbTarget glapi.Enum, renderbuffer uint32) {
	gl.FramebufferRenderbuffer(uint32(target), uint32(attachment), uint32(rbTarget), renderbuffer)
}

func (f *Funcs) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask uint32, filter glapi.Enum) {
	gl.BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1, mask, uint32(filter))
}

func (f *Funcs) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (f *Funcs) DeleteTexture(id uint32) { gl.DeleteTextures(1, &id) }

func (f *Funcs) BindTexture(target glapi.Enum, id uint32) { gl.BindTexture(uint32(target), id) }

func (f *Funcs) TexImage2D(target glapi.Enum, level int32, internalFormat glapi.Enum, width, height int32, format, xtype glapi.Enum, pixels []byte) {
	gl.TexImage2D(uint32(target), level, int32(internalFormat), width, height, 0, uint32(format), uint32(xtype), bytesPtr(pixels))
}

func (f *Funcs) TexSubImage2D(target glapi.Enum, level, x, y, width, height int32, format, xtype glapi.Enum, pixels []byte) {
	gl.TexSubImage2D(uint32(target), level, x, y, width, height, uint32(format), uint32(xtype), bytesPtr(pixels))
}

func (f *Funcs) TexParameteri(target, pname glapi.Enum, param int32) {
	gl.TexParameteri(uint32(target), uint32(pname), param)
}

func (f *Funcs) GenRenderbuffer() uint32 {
	var id uint32
	gl.GenRenderbuffers(1, &id)
	return id
}

func (f *Funcs) DeleteRenderbuffer(id uint32) { gl.DeleteRenderbuffers(1, &id) }

func (f *Funcs) BindRenderbuffer(target glapi.Enum, id uint32) {
	gl.BindRenderbuffer(uint32(target), id)
}

func (f *Funcs) RenderbufferStorage(target, internalFormat glapi.Enum, width, height int32) {
	gl.RenderbufferStorage(uint32(target), uint32(internalFormat), width, height)
}

func (f *Funcs) GenBuffer() uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	return id
}

func (f *Funcs) DeleteBuffer(id uint32) { gl.DeleteBuffers(1, &id) }

func (f *Funcs) BindBuffer(target glapi.Enum, id uint32) { gl.BindBuffer(uint32(target), id) }

func (f *Funcs) BufferData(target glapi.Enum, size int, usage glapi.Enum) {
	gl.BufferData(uint32(target), size, nil, uint32(usage))
}

func (f *Funcs) MapBufferRange(target glapi.Enum, offset, length int, access glapi.Enum) []byte {
	ptr := gl.MapBufferRange(uint32(target), offset, length, uint32(access))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), length)
}

func (f *Funcs) UnmapBuffer(target glapi.Enum) bool { return gl.UnmapBuffer(uint32(target)) }

func (f *Funcs) PixelStorei(pname glapi.Enum, param int32) { gl.PixelStorei(uint32(pname), param) }

func (f *Funcs) ReadPixels(x, y, width, height int32, format, xtype glapi.Enum, dst []byte) {
	gl.ReadPixels(x, y, width, height, uint32(format), uint32(xtype), bytesPtr(dst))
}

func (f *Funcs) ReadPixelsToBuffer(x, y, width, height int32, format, xtype glapi.Enum, offset int) {
	gl.ReadPixels(x, y, width, height, uint32(format), uint32(xtype), gl.PtrOffset(offset))
}

func (f *Funcs) GetError() glapi.Enum { return glapi.Enum(gl.GetError()) }

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return gl.Ptr(b)
}
