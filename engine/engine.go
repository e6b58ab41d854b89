// Package engine defines the rendering engine glvis drives and a registry
// of engine implementations.
//
// An engine owns the visualization: it consumes PCM audio, renders a frame
// into the GL context it was created on, and switches presets on request.
// glvis treats it as a black box and only decides when to feed it, where it
// renders, and which preset it shows.
//
// # Engine Registration
//
// Engines register a Factory from an init function and are selected by name:
//
//	import _ "github.com/gogpu/glvis/engine/scope"
//
//	factory, err := engine.Lookup("scope")
//	e, err := factory(gl, params)
//
// # Available Engines
//
//   - "scope": oscilloscope and spectrum bars drawn with gogpu/gg (always built)
//   - "projectm": libprojectM 4 (build with -tags projectm)
package engine

import (
	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/timeline"
)

// ChannelLayout describes how PCM samples are interleaved.
type ChannelLayout int

const (
	// Mono is one sample per frame.
	Mono ChannelLayout = 1
	// Stereo is interleaved left/right samples.
	Stereo ChannelLayout = 2
)

// Channels returns the number of interleaved channels.
func (l ChannelLayout) Channels() int {
	if l == Stereo {
		return 2
	}
	return 1
}

// Params configures an engine at creation. Values are passed through to the
// engine verbatim.
type Params struct {
	Width  int
	Height int
	FPS    int

	PresetDir  string
	TextureDir string

	BeatSensitivity    float64
	HardCutDuration    float64
	HardCutEnabled     bool
	HardCutSensitivity float64
	SoftCutDuration    float64
	// PresetDuration is the engine's own rotation interval in seconds.
	// Zero or less means hold the current preset.
	PresetDuration float64

	MeshWidth        int
	MeshHeight       int
	AspectCorrection bool
	EasterEgg        float64

	PresetLocked   bool
	EnablePlaylist bool
	ShufflePresets bool
}

// Engine is a rendering engine bound to one GL context. All methods must be
// called on the thread that owns the context.
type Engine interface {
	timeline.Switcher

	// SetFrameTime sets the engine clock in seconds since the session start.
	SetFrameTime(seconds float64)
	// AddPCM appends interleaved 16-bit samples to the engine's audio buffer.
	AddPCM(samples []int16, layout ChannelLayout)
	// Render draws a frame into the currently bound framebuffer.
	Render()
	// RenderToTarget draws a frame into framebuffer fbo.
	RenderToTarget(fbo uint32)
	// WindowSize reports the size the engine renders at.
	WindowSize() (width, height int)
	// Destroy releases the engine's GL resources.
	Destroy()
}

// Factory creates an engine on gl.
type Factory func(gl glapi.Funcs, p Params) (Engine, error)
