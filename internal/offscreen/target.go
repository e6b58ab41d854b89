package offscreen

import (
	"errors"
	"fmt"

	"github.com/gogpu/glvis/glapi"
)

// ErrInvalidSize is returned for non-positive target dimensions or
// dimensions above MaxSize.
var ErrInvalidSize = errors.New("offscreen: invalid target size")

// MaxSize is the largest accepted width or height, the GL_MAX_TEXTURE_SIZE
// of current desktop GPUs.
const MaxSize = 16384

// ValidSize reports whether width x height is a usable target size.
func ValidSize(width, height int) bool {
	return width > 0 && height > 0 && width <= MaxSize && height <= MaxSize
}

// ErrIncomplete is returned when a freshly built framebuffer fails its
// completeness check.
var ErrIncomplete = errors.New("offscreen: framebuffer incomplete")

// Target is an offscreen framebuffer with a color texture and a combined
// depth/stencil renderbuffer.
type Target struct {
	Framebuffer  uint32
	Color        uint32
	DepthStencil uint32
	Width        int
	Height       int
}

// Targets owns at most one offscreen Target and recreates it when the
// requested size changes.
//
// A replacement target is fully built and validated before the previous one
// is deleted, so a surfaceless context always has a complete framebuffer
// bound once the first target exists.
type Targets struct {
	gl          glapi.Funcs
	cur         Target
	initialized bool
}

// NewTargets returns an empty manager. No GL calls are made until Ensure.
func NewTargets(gl glapi.Funcs) *Targets {
	return &Targets{gl: gl}
}

// Current returns the live target, if any.
func (m *Targets) Current() (Target, bool) {
	return m.cur, m.initialized
}

// Ensure returns a bound target of the requested size, creating or
// replacing it as needed. Calling Ensure again with the same size makes no
// allocations and only re-binds the framebuffer, in case the engine or the
// host changed the binding in between.
func (m *Targets) Ensure(width, height int) (Target, error) {
	if !ValidSize(width, height) {
		return Target{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if m.initialized && m.cur.Width == width && m.cur.Height == height {
		m.gl.BindFramebuffer(glapi.Framebuffer, m.cur.Framebuffer)
		return m.cur, nil
	}
	if !m.gl.Supports(glapi.CapFramebufferObject) {
		return Target{}, fmt.Errorf("offscreen target: %w: %s", glapi.ErrUnsupported, glapi.CapFramebufferObject)
	}

	next, err := m.build(width, height)
	if err != nil {
		return Target{}, err
	}

	old, hadOld := m.cur, m.initialized
	m.cur = next
	m.initialized = true
	if hadOld {
		m.destroy(old)
		slogger().Debug("offscreen: target resized",
			"from", fmt.Sprintf("%dx%d", old.Width, old.Height),
			"to", fmt.Sprintf("%dx%d", width, height))
	} else {
		slogger().Debug("offscreen: target created", "width", width, "height", height, "fbo", next.Framebuffer)
	}
	return next, nil
}

// build creates and validates a new target and leaves it bound. On failure
// the previous target (or the default framebuffer) is bound again before the
// partial objects are deleted.
func (m *Targets) build(width, height int) (Target, error) {
	gl := m.gl
	w, h := int32(width), int32(height) //nolint:gosec // bounded by MaxSize

	color := gl.GenTexture()
	gl.BindTexture(glapi.Texture2D, color)
	gl.TexImage2D(glapi.Texture2D, 0, glapi.RGBA8, w, h, glapi.RGBA, glapi.UnsignedByte, nil)
	gl.TexParameteri(glapi.Texture2D, glapi.TextureMinFilter, int32(glapi.Linear))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureMagFilter, int32(glapi.Linear))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureWrapS, int32(glapi.ClampToEdge))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureWrapT, int32(glapi.ClampToEdge))
	gl.BindTexture(glapi.Texture2D, 0)

	depth := gl.GenRenderbuffer()
	gl.BindRenderbuffer(glapi.Renderbuffer, depth)
	gl.RenderbufferStorage(glapi.Renderbuffer, glapi.Depth24Stencil8, w, h)
	gl.BindRenderbuffer(glapi.Renderbuffer, 0)

	fbo := gl.GenFramebuffer()
	gl.BindFramebuffer(glapi.Framebuffer, fbo)
	gl.FramebufferTexture2D(glapi.Framebuffer, glapi.ColorAttachment0, glapi.Texture2D, color, 0)
	gl.FramebufferRenderbuffer(glapi.Framebuffer, glapi.DepthStencilAttachment, glapi.Renderbuffer, depth)

	t := Target{Framebuffer: fbo, Color: color, DepthStencil: depth, Width: width, Height: height}
	if status := gl.CheckFramebufferStatus(glapi.Framebuffer); status != glapi.FramebufferComplete {
		gl.BindFramebuffer(glapi.Framebuffer, m.cur.Framebuffer)
		m.destroy(t)
		return Target{}, fmt.Errorf("%w: %s (%dx%d)", ErrIncomplete, glapi.StatusString(status), width, height)
	}
	return t, nil
}

func (m *Targets) destroy(t Target) {
	if t.Framebuffer != 0 {
		m.gl.DeleteFramebuffer(t.Framebuffer)
	}
	if t.Color != 0 {
		m.gl.DeleteTexture(t.Color)
	}
	if t.DepthStencil != 0 {
		m.gl.DeleteRenderbuffer(t.DepthStencil)
	}
}

// Release deletes the owned GPU objects. It is a no-op on an empty manager.
func (m *Targets) Release() {
	if !m.initialized {
		return
	}
	m.destroy(m.cur)
	m.cur = Target{}
	m.initialized = false
}
