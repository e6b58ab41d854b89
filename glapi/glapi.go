// Package glapi describes the subset of the OpenGL function table that glvis
// drives: framebuffer objects, textures, renderbuffers and pixel-pack
// buffers.
//
// The host owns the GL context and makes it current on the streaming thread;
// glvis only ever calls through a Funcs value on that same thread. Handles
// are plain GL object names, with 0 meaning "none" (or, for framebuffers,
// the default framebuffer).
//
// A cgo implementation backed by go-gl lives in glapi/gogl.
package glapi

import (
	"errors"
	"fmt"
)

// Enum is a GL enumerant.
type Enum uint32

// GL enumerants used by glvis. Values match the Khronos registry.
const (
	NoError                     Enum = 0
	InvalidEnum                 Enum = 0x0500
	InvalidValue                Enum = 0x0501
	InvalidOperation            Enum = 0x0502
	OutOfMemory                 Enum = 0x0505
	InvalidFramebufferOperation Enum = 0x0506

	Framebuffer         Enum = 0x8D40
	ReadFramebuffer     Enum = 0x8CA8
	DrawFramebuffer     Enum = 0x8CA9
	FramebufferComplete Enum = 0x8CD5
	// FramebufferUndefined is reported for the default framebuffer when the
	// context has no window surface.
	FramebufferUndefined         Enum = 0x8219
	FramebufferIncompleteAttach  Enum = 0x8CD6
	FramebufferIncompleteMissing Enum = 0x8CD7
	FramebufferUnsupported       Enum = 0x8CDD

	ColorAttachment0       Enum = 0x8CE0
	DepthStencilAttachment Enum = 0x821A
	Renderbuffer           Enum = 0x8D41
	Depth24Stencil8        Enum = 0x88F0

	Texture2D        Enum = 0x0DE1
	TextureMinFilter Enum = 0x2801
	TextureMagFilter Enum = 0x2800
	TextureWrapS     Enum = 0x2802
	TextureWrapT     Enum = 0x2803
	Linear           Enum = 0x2601
	Nearest          Enum = 0x2600
	ClampToEdge      Enum = 0x812F

	RGBA            Enum = 0x1908
	BGRA            Enum = 0x80E1
	RGBA8           Enum = 0x8058
	UnsignedByte    Enum = 0x1401
	UnsignedInt8888 Enum = 0x8035
	PackAlignment   Enum = 0x0D05
	UnpackAlignment Enum = 0x0CF5
	PixelPackBuffer Enum = 0x88EB
	StreamRead      Enum = 0x88E1
	MapReadBit      Enum = 0x0001
)

// ColorBufferBit is the blit mask for color attachments.
const ColorBufferBit uint32 = 0x00004000

// Capability names a group of GL entry points that may be missing on old or
// restricted contexts.
type Capability int

const (
	// CapFramebufferObject covers framebuffer, renderbuffer and completeness
	// queries (GL 3.0, GLES 2.0, ARB_framebuffer_object).
	CapFramebufferObject Capability = iota
	// CapPixelBufferObject covers PIXEL_PACK_BUFFER bindings (GL 2.1, GLES 3.0).
	CapPixelBufferObject
	// CapMapBufferRange covers glMapBufferRange/glUnmapBuffer (GL 3.0, GLES 3.0).
	CapMapBufferRange
	// CapBlitFramebuffer covers glBlitFramebuffer (GL 3.0, GLES 3.0).
	CapBlitFramebuffer
)

// String returns the capability name.
func (c Capability) String() string {
	switch c {
	case CapFramebufferObject:
		return "framebuffer-object"
	case CapPixelBufferObject:
		return "pixel-buffer-object"
	case CapMapBufferRange:
		return "map-buffer-range"
	case CapBlitFramebuffer:
		return "blit-framebuffer"
	default:
		return "unknown"
	}
}

// ErrUnsupported is returned when a required capability is missing from the
// current context.
var ErrUnsupported = errors.New("glapi: capability not supported by context")

// Funcs is the GL function table. Every method must be called on the thread
// where the context is current.
type Funcs interface {
	// Supports reports whether the entry points of c are available.
	Supports(c Capability) bool

	GenFramebuffer() uint32
	DeleteFramebuffer(id uint32)
	BindFramebuffer(target Enum, id uint32)
	CheckFramebufferStatus(target Enum) Enum
	FramebufferTexture2D(target, attachment, texTarget Enum, texture uint32, level int32)
	FramebufferRenderbuffer(target, attachment, rbTarget Enum, renderbuffer uint32)
	BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask uint32, filter Enum)

	GenTexture() uint32
	DeleteTexture(id uint32)
	BindTexture(target Enum, id uint32)
	TexImage2D(target Enum, level int32, internalFormat Enum, width, height int32, format, xtype Enum, pixels []byte)
	TexSubImage2D(target Enum, level, x, y, width, height int32, format, xtype Enum, pixels []byte)
	TexParameteri(target, pname Enum, param int32)

	GenRenderbuffer() uint32
	DeleteRenderbuffer(id uint32)
	BindRenderbuffer(target Enum, id uint32)
	RenderbufferStorage(target, internalFormat Enum, width, height int32)

	GenBuffer() uint32
	DeleteBuffer(id uint32)
	BindBuffer(target Enum, id uint32)
	// BufferData allocates size bytes of uninitialized storage.
	BufferData(target Enum, size int, usage Enum)
	// MapBufferRange returns the mapped bytes, or nil when mapping fails.
	// The slice is only valid until UnmapBuffer.
	MapBufferRange(target Enum, offset, length int, access Enum) []byte
	UnmapBuffer(target Enum) bool

	PixelStorei(pname Enum, param int32)
	// ReadPixels reads into client memory.
	ReadPixels(x, y, width, height int32, format, xtype Enum, dst []byte)
	// ReadPixelsToBuffer reads into the bound PIXEL_PACK_BUFFER at offset.
	ReadPixelsToBuffer(x, y, width, height int32, format, xtype Enum, offset int)

	GetError() Enum
}

// StatusString names a framebuffer status for log output.
func StatusString(status Enum) string {
	switch status {
	case FramebufferComplete:
		return "complete"
	case FramebufferUndefined:
		return "undefined"
	case FramebufferIncompleteAttach:
		return "incomplete-attachment"
	case FramebufferIncompleteMissing:
		return "missing-attachment"
	case FramebufferUnsupported:
		return "unsupported"
	case NoError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorString names a glGetError code for log output.
func ErrorString(code Enum) string {
	switch code {
	case NoError:
		return "no-error"
	case InvalidEnum:
		return "invalid-enum"
	case InvalidValue:
		return "invalid-value"
	case InvalidOperation:
		return "invalid-operation"
	case OutOfMemory:
		return "out-of-memory"
	case InvalidFramebufferOperation:
		return "invalid-framebuffer-operation"
	default:
		return fmt.Sprintf("0x%04X", uint32(code))
	}
}
