// Package offscreen manages the GPU side of frame production: detecting
// surfaceless contexts, owning the offscreen render target, and pipelining
// pixel readback through a ring of pixel-pack buffers.
package offscreen

import "github.com/gogpu/glvis/glapi"

// Mode selects how headless detection reaches its verdict.
type Mode int

const (
	// ModeAuto probes the default framebuffer.
	ModeAuto Mode = iota
	// ModeForceHeadless treats the context as surfaceless without probing.
	ModeForceHeadless
	// ModeForceWindowed treats the default framebuffer as usable without probing.
	ModeForceWindowed
)

// String returns the mode name used in configuration files.
func (m Mode) String() string {
	switch m {
	case ModeForceHeadless:
		return "on"
	case ModeForceWindowed:
		return "off"
	default:
		return "auto"
	}
}

// Detector decides once per render session whether the context lacks a
// usable default framebuffer.
type Detector struct {
	mode     Mode
	probed   bool
	headless bool
}

// NewDetector returns a detector for the given mode.
func NewDetector(mode Mode) *Detector {
	return &Detector{mode: mode}
}

// IsHeadless returns the cached verdict, probing gl on first use.
//
// In auto mode the default framebuffer is bound and its completeness is
// queried; anything but complete (typically GL_FRAMEBUFFER_UNDEFINED) means
// there is no window surface to render into. A context without framebuffer
// object support cannot be surfaceless in a way glvis could work around, so
// it is reported as windowed.
func (d *Detector) IsHeadless(gl glapi.Funcs) bool {
	if d.probed {
		return d.headless
	}
	d.probed = true

	switch d.mode {
	case ModeForceHeadless:
		d.headless = true
		slogger().Info("offscreen: headless mode forced by configuration")
		return true
	case ModeForceWindowed:
		d.headless = false
		slogger().Info("offscreen: windowed mode forced by configuration")
		return false
	}

	if !gl.Supports(glapi.CapFramebufferObject) {
		slogger().Warn("offscreen: framebuffer objects unavailable, assuming default framebuffer")
		d.headless = false
		return false
	}

	gl.BindFramebuffer(glapi.Framebuffer, 0)
	status := gl.CheckFramebufferStatus(glapi.Framebuffer)
	d.headless = status != glapi.FramebufferComplete
	slogger().Info("offscreen: default framebuffer probed",
		"status", glapi.StatusString(status),
		"headless", d.headless)
	return d.headless
}

// Reset forgets the cached verdict. Called when a render session stops.
func (d *Detector) Reset() {
	d.probed = false
	d.headless = false
}
