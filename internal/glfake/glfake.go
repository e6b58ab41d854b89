// Package glfake is an in-memory glapi.Funcs for tests.
//
// It tracks object lifetimes and bindings, stores texture and buffer
// contents as RGBA bytes (formats and types are ignored, every pixel is four
// bytes), and records an event log so tests can assert on call ordering.
package glfake

import (
	"fmt"

	"github.com/gogpu/glvis/glapi"
)

type framebuffer struct {
	color        uint32
	depthStencil uint32
}

type texture struct {
	width, height int
	data          []byte
}

type renderbuffer struct {
	width, height int
}

type buffer struct {
	data   []byte
	mapped bool
}

// GL is a fake GL context. The zero value is not usable; call New.
type GL struct {
	// Missing lists capabilities reported as unsupported.
	Missing map[glapi.Capability]bool
	// DefaultComplete is the status of framebuffer 0. False models a
	// surfaceless (headless) context.
	DefaultComplete bool
	// FailNextChecks makes the next n completeness checks of non-default
	// framebuffers report FramebufferIncompleteAttach.
	FailNextChecks int
	// FailMap makes MapBufferRange return nil.
	FailMap bool
	// PendingErrors are returned by GetError in order, then NoError.
	PendingErrors []glapi.Enum

	// Events is the ordered call log ("gen-fbo 3", "check 3 complete", ...).
	Events []string
	// Calls counts calls per entry point name.
	Calls map[string]int
	// InvalidBindings counts moments where a headless context was left with
	// the default framebuffer bound.
	InvalidBindings int
	// FailedChecks counts completeness checks that did not report complete.
	FailedChecks int

	next          uint32
	framebuffers  map[uint32]*framebuffer
	textures      map[uint32]*texture
	renderbuffers map[uint32]*renderbuffer
	buffers       map[uint32]*buffer

	drawFB, readFB uint32
	texture2D      uint32
	renderbuffer   uint32
	packBuffer     uint32

	defaultW, defaultH int
	defaultPixels      []byte
}

var _ glapi.Funcs = (*GL)(nil)

// New returns a fake context whose default framebuffer is complete.
func New() *GL {
	return &GL{
		Missing:         map[glapi.Capability]bool{},
		DefaultComplete: true,
		Calls:           map[string]int{},
		next:            1,
		framebuffers:    map[uint32]*framebuffer{},
		textures:        map[uint32]*texture{},
		renderbuffers:   map[uint32]*renderbuffer{},
		buffers:         map[uint32]*buffer{},
	}
}

// NewHeadless returns a fake context without a usable default framebuffer.
func NewHeadless() *GL {
	g := New()
	g.DefaultComplete = false
	return g
}

func (g *GL) logf(format string, args ...any) {
	g.Events = append(g.Events, fmt.Sprintf(format, args...))
}

func (g *GL) call(name string) { g.Calls[name]++ }

func (g *GL) alloc() uint32 {
	id := g.next
	g.next++
	return id
}

// SetDefaultSize sizes the default framebuffer's color storage.
func (g *GL) SetDefaultSize(width, height int) {
	g.defaultW, g.defaultH = width, height
	g.defaultPixels = make([]byte, width*height*4)
}

// Live returns the number of live framebuffers, textures, renderbuffers and
// buffers.
func (g *GL) Live() (fbos, textures, renderbuffers, buffers int) {
	return len(g.framebuffers), len(g.textures), len(g.renderbuffers), len(g.buffers)
}

// BoundFramebuffer returns the framebuffer bound for drawing.
func (g *GL) BoundFramebuffer() uint32 { return g.drawFB }

// BoundPackBuffer returns the buffer bound to PIXEL_PACK_BUFFER.
func (g *GL) BoundPackBuffer() uint32 { return g.packBuffer }

// Fill paints every pixel of the framebuffer bound for drawing with v.
// Tests use it as a stand-in for a render pass.
func (g *GL) Fill(v byte) {
	pix, _, _ := g.colorStorage(g.drawFB)
	for i := range pix {
		pix[i] = v
	}
}

// Pixels returns the color storage of framebuffer id.
func (g *GL) Pixels(id uint32) []byte {
	pix, _, _ := g.colorStorage(id)
	return pix
}

func (g *GL) colorStorage(id uint32) ([]byte, int, int) {
	if id == 0 {
		return g.defaultPixels, g.defaultW, g.defaultH
	}
	fb, ok := g.framebuffers[id]
	if !ok {
		return nil, 0, 0
	}
	tex, ok := g.textures[fb.color]
	if !ok {
		return nil, 0, 0
	}
	return tex.data, tex.width, tex.height
}

func (g *GL) noteBinding() {
	if g.drawFB == 0 && !g.DefaultComplete {
		g.InvalidBindings++
	}
}

func (g *GL) Supports(c glapi.Capability) bool { return !g.Missing[c] }

func (g *GL) GenFramebuffer() uint32 {
	g.call("GenFramebuffer")
	id := g.alloc()
	g.framebuffers[id] = &framebuffer{}
	g.logf("gen-fbo %d", id)
	return id
}

func (g *GL) DeleteFramebuffer(id uint32) {
	g.call("DeleteFramebuffer")
	if _, ok := g.framebuffers[id]; !ok {
		return
	}
	delete(g.framebuffers, id)
	g.logf("delete-fbo %d", id)
	if g.readFB == id {
		g.readFB = 0
	}
	if g.drawFB == id {
		g.drawFB = 0
		g.noteBinding()
	}
}

func (g *GL) BindFramebuffer(target glapi.Enum, id uint32) {
	g.call("BindFramebuffer")
	switch target {
	case glapi.ReadFramebuffer:
		g.readFB = id
	case glapi.DrawFramebuffer:
		g.drawFB = id
		g.noteBinding()
	default:
		g.readFB, g.drawFB = id, id
		g.noteBinding()
	}
	g.logf("bind-fbo %d", id)
}

// bound returns the framebuffer bound to target.
func (g *GL) bound(target glapi.Enum) uint32 {
	if target == glapi.ReadFramebuffer {
		return g.readFB
	}
	return g.drawFB
}

func (g *GL) CheckFramebufferStatus(target glapi.Enum) glapi.Enum {
	g.call("CheckFramebufferStatus")
	id := g.bound(target)
	status := g.status(id)
	if status != glapi.FramebufferComplete {
		g.FailedChecks++
	}
	g.logf("check %d %s", id, glapi.StatusString(status))
	return status
}

func (g *GL) status(id uint32) glapi.Enum {
	if id == 0 {
		if g.DefaultComplete {
			return glapi.FramebufferComplete
		}
		return glapi.FramebufferUndefined
	}
	if g.FailNextChecks > 0 {
		g.FailNextChecks--
		return glapi.FramebufferIncompleteAttach
	}
	fb, ok := g.framebuffers[id]
	if !ok {
		return glapi.NoError
	}
	if _, ok := g.textures[fb.color]; !ok {
		return glapi.FramebufferIncompleteMissing
	}
	return glapi.FramebufferComplete
}

func (g *GL) FramebufferTexture2D(target, attachment, texTarget glapi.Enum, texture uint32, level int32) {
	g.call("FramebufferTexture2D")
	if fb, ok := g.framebuffers[g.bound(target)]; ok && attachment == glapi.ColorAttachment0 {
		fb.color = texture
	}
}

func (g *GL) FramebufferRenderbuffer(target, attachment, rbTarget glapi.Enum, renderbuffer uint32) {
	g.call("FramebufferRenderbuffer")
	if fb, ok := g.framebuffers[g.bound(target)]; ok && attachment == glapi.DepthStencilAttachment {
		fb.depthStencil = renderbuffer
	}
}

func (g *GL) BlitFramebuffer(srcX0, srcY0, srcX1, srcY1, dstX0, dstY0, dstX1, dstY1 int32, mask uint32, filter glapi.Enum) {
	g.call("BlitFramebuffer")
	src, sw, sh := g.colorStorage(g.readFB)
	dst, dw, dh := g.colorStorage(g.drawFB)
	w := min(int(srcX1-srcX0), int(dstX1-dstX0), sw, dw)
	h := min(int(srcY1-srcY0), int(dstY1-dstY0), sh, dh)
	if w <= 0 || h <= 0 {
		return
	}
	for y := 0; y < h; y++ {
		copy(dst[y*dw*4:y*dw*4+w*4], src[y*sw*4:y*sw*4+w*4])
	}
	g.logf("blit %d->%d", g.readFB, g.drawFB)
}

func (g *GL) GenTexture() uint32 {
	g.call("GenTexture")
	id := g.alloc()
	g.textures[id] = &texture{}
	g.logf("gen-texture %d", id)
	return id
}

func (g *GL) DeleteTexture(id uint32) {
	g.call("DeleteTexture")
	if _, ok := g.textures[id]; ok {
		delete(g.textures, id)
		g.logf("delete-texture %d", id)
	}
}

func (g *GL) BindTexture(target glapi.Enum, id uint32) {
	g.call("BindTexture")
	g.texture2D = id
}

func (g *GL) TexImage2D(target glapi.Enum, level int32, internalFormat glapi.Enum, width, height int32, format, xtype glapi.Enum, pixels []byte) {
	g.call("TexImage2D")
	tex, ok := g.textures[g.texture2D]
	if !ok {
		return
	}
	tex.width, tex.height = int(width), int(height)
	tex.data = make([]byte, int(width)*int(height)*4)
	copy(tex.data, pixels)
}

func (g *GL) TexSubImage2D(target glapi.Enum, level, x, y, width, height int32, format, xtype glapi.Enum, pixels []byte) {
	g.call("TexSubImage2D")
	tex, ok := g.textures[g.texture2D]
	if !ok {
		return
	}
	rowBytes := int(width) * 4
	for row := 0; row < int(height); row++ {
		dstOff := ((int(y)+row)*tex.width + int(x)) * 4
		srcOff := row * rowBytes
		if dstOff+rowBytes > len(tex.data) || srcOff+rowBytes > len(pixels) {
			return
		}
		copy(tex.data[dstOff:dstOff+rowBytes], pixels[srcOff:srcOff+rowBytes])
	}
}

func (g *GL) TexParameteri(target, pname glapi.Enum, param int32) { g.call("TexParameteri") }

func (g *GL) GenRenderbuffer() uint32 {
	g.call("GenRenderbuffer")
	id := g.alloc()
	g.renderbuffers[id] = &renderbuffer{}
	g.logf("gen-renderbuffer %d", id)
	return id
}

func (g *GL) DeleteRenderbuffer(id uint32) {
	g.call("DeleteRenderbuffer")
	if _, ok := g.renderbuffers[id]; ok {
		delete(g.renderbuffers, id)
		g.logf("delete-renderbuffer %d", id)
	}
}

func (g *GL) BindRenderbuffer(target glapi.Enum, id uint32) {
	g.call("BindRenderbuffer")
	g.renderbuffer = id
}

func (g *GL) RenderbufferStorage(target, internalFormat glapi.Enum, width, height int32) {
	g.call("RenderbufferStorage")
	if rb, ok := g.renderbuffers[g.renderbuffer]; ok {
		rb.width, rb.height = int(width), int(height)
	}
}

func (g *GL) GenBuffer() uint32 {
	g.call("GenBuffer")
	id := g.alloc()
	g.buffers[id] = &buffer{}
	g.logf("gen-buffer %d", id)
	return id
}

func (g *GL) DeleteBuffer(id uint32) {
	g.call("DeleteBuffer")
	if _, ok := g.buffers[id]; ok {
		delete(g.buffers, id)
		g.logf("delete-buffer %d", id)
	}
	if g.packBuffer == id {
		g.packBuffer = 0
	}
}

func (g *GL) BindBuffer(target glapi.Enum, id uint32) {
	g.call("BindBuffer")
	if target == glapi.PixelPackBuffer {
		g.packBuffer = id
	}
}

func (g *GL) BufferData(target glapi.Enum, size int, usage glapi.Enum) {
	g.call("BufferData")
	if b, ok := g.buffers[g.packBuffer]; ok {
		b.data = make([]byte, size)
	}
}

func (g *GL) MapBufferRange(target glapi.Enum, offset, length int, access glapi.Enum) []byte {
	g.call("MapBufferRange")
	b, ok := g.buffers[g.packBuffer]
	if !ok || g.FailMap || b.mapped || offset+length > len(b.data) {
		return nil
	}
	b.mapped = true
	g.logf("map %d", g.packBuffer)
	return b.data[offset : offset+length]
}

func (g *GL) UnmapBuffer(target glapi.Enum) bool {
	g.call("UnmapBuffer")
	b, ok := g.buffers[g.packBuffer]
	if !ok || !b.mapped {
		return false
	}
	b.mapped = false
	return true
}

func (g *GL) PixelStorei(pname glapi.Enum, param int32) { g.call("PixelStorei") }

func (g *GL) ReadPixels(x, y, width, height int32, format, xtype glapi.Enum, dst []byte) {
	g.call("ReadPixels")
	g.readInto(int(x), int(y), int(width), int(height), dst)
	g.logf("read-pixels %d", g.readFB)
}

func (g *GL) ReadPixelsToBuffer(x, y, width, height int32, format, xtype glapi.Enum, offset int) {
	g.call("ReadPixelsToBuffer")
	b, ok := g.buffers[g.packBuffer]
	if !ok || offset > len(b.data) {
		return
	}
	g.readInto(int(x), int(y), int(width), int(height), b.data[offset:])
	g.logf("read-to-buffer %d from %d", g.packBuffer, g.readFB)
}

func (g *GL) readInto(x, y, width, height int, dst []byte) {
	src, sw, sh := g.colorStorage(g.readFB)
	rowBytes := width * 4
	for row := 0; row < height && y+row < sh; row++ {
		n := min(width, sw-x) * 4
		if n <= 0 || (row+1)*rowBytes > len(dst) {
			return
		}
		srcOff := ((y+row)*sw + x) * 4
		copy(dst[row*rowBytes:row*rowBytes+n], src[srcOff:srcOff+n])
	}
}

func (g *GL) GetError() glapi.Enum {
	g.call("GetError")
	if len(g.PendingErrors) == 0 {
		return glapi.NoError
	}
	code := g.PendingErrors[0]
	g.PendingErrors = g.PendingErrors[1:]
	return code
}
