// Package glvis turns an audio stream into a video stream of music
// visualizations rendered on the GPU.
//
// # Overview
//
// A Visualizer is driven once per video frame by its host. Each call takes
// one buffer of interleaved 16-bit PCM and one empty video frame, advances
// the session clock from the audio timestamp, switches presets along an
// optional timeline, feeds the samples to a rendering engine, renders into
// an offscreen target and copies the pixels into the frame.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/glvis"
//	    "github.com/gogpu/glvis/engine"
//	    _ "github.com/gogpu/glvis/engine/scope"
//	)
//
//	factory, _ := engine.Lookup(engine.DefaultName())
//	v, err := glvis.New(glvis.DefaultConfig(), factory)
//	...
//	v.Setup(glvis.VideoInfo{Width: 1280, Height: 720, Format: glvis.VideoFormatRGBA, FPSNum: 30},
//	    glvis.AudioInfo{Rate: 44100, Channels: 2})
//	v.Start(gl) // gl is a glapi.Funcs for the context current on this thread
//	defer v.Stop()
//	for ... {
//	    v.Render(audio, frame)
//	}
//
// # Threading
//
// All methods must be called from the thread the GL context is current on.
// Nothing in glvis spawns goroutines or takes locks; the only overlap of CPU
// and GPU work is the pixel-pack buffer ring, which hands back each frame
// one call later.
//
// # Headless contexts
//
// A context without a window surface has no usable default framebuffer. The
// Visualizer detects this at Start (or obeys Config.Headless) and then
// requires an offscreen target; without one, Start and Render fail with
// ErrOffscreenRequired. With a usable default framebuffer every GPU
// resource failure degrades to a slower path instead.
//
// # Timelines
//
// Config.TimelinePath names a file of segments, each assigning a preset to
// a time window (see package timeline). While a timeline is active the
// engine's own preset rotation is locked.
package glvis
