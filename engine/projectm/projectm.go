//go:build projectm && cgo

package projectm

/*
#cgo pkg-config: projectM-4 projectM-4-playlist
#include <stdlib.h>
#include <projectM-4/projectM.h>
#include <projectM-4/playlist.h>
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/gogpu/glvis"
	"github.com/gogpu/glvis/engine"
	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/timeline"
)

// ErrCreate is returned when libprojectM cannot create an instance,
// typically because no GL context is current.
var ErrCreate = errors.New("projectm: failed to create instance")

func init() {
	engine.Register(engine.NameProjectM, New)
}

// Engine implements engine.Engine on a projectM instance.
type Engine struct {
	handle   C.projectm_handle
	playlist C.projectm_playlist_handle
}

var _ engine.Engine = (*Engine)(nil)

// New creates a projectM instance and applies p.
func New(_ glapi.Funcs, p engine.Params) (engine.Engine, error) {
	h := C.projectm_create()
	if h == nil {
		return nil, ErrCreate
	}
	e := &Engine{handle: h}

	C.projectm_set_window_size(h, C.size_t(p.Width), C.size_t(p.Height))
	if p.FPS > 0 {
		C.projectm_set_fps(h, C.int32_t(p.FPS))
	}
	C.projectm_set_beat_sensitivity(h, C.float(p.BeatSensitivity))
	C.projectm_set_hard_cut_enabled(h, C.bool(p.HardCutEnabled))
	C.projectm_set_hard_cut_duration(h, C.double(p.HardCutDuration))
	C.projectm_set_hard_cut_sensitivity(h, C.float(p.HardCutSensitivity))
	C.projectm_set_soft_cut_duration(h, C.double(p.SoftCutDuration))
	if p.MeshWidth > 0 && p.MeshHeight > 0 {
		C.projectm_set_mesh_size(h, C.size_t(p.MeshWidth), C.size_t(p.MeshHeight))
	}
	C.projectm_set_aspect_correction(h, C.bool(p.AspectCorrection))
	C.projectm_set_easter_egg(h, C.float(p.EasterEgg))
	C.projectm_set_preset_locked(h, C.bool(p.PresetLocked))
	if p.PresetDuration > 0 {
		C.projectm_set_preset_duration(h, C.double(p.PresetDuration))
	} else {
		C.projectm_set_preset_duration(h, C.double(timeline.HoldDuration))
	}
	if p.TextureDir != "" {
		e.setTextureSearchPaths([]string{p.TextureDir})
	}
	if dir, shuffle, ok := playlistSource(p); ok {
		e.connectPlaylist(dir, shuffle)
	}

	w, ht := e.WindowSize()
	glvis.Logger().Info("projectm: instance created",
		"width", w,
		"height", ht,
		"mesh", [2]int{p.MeshWidth, p.MeshHeight},
		"locked", p.PresetLocked,
		"playlist", e.playlist != nil)
	return e, nil
}

// connectPlaylist attaches a playlist filled from dir, so projectM rotates
// presets on its own whenever no timeline locks it, and starts on the first
// playlist entry.
func (e *Engine) connectPlaylist(dir string, shuffle bool) {
	pl := C.projectm_playlist_create(e.handle)
	if pl == nil {
		glvis.Logger().Warn("projectm: cannot create playlist", "dir", dir)
		return
	}
	cdir := C.CString(dir)
	defer C.free(unsafe.Pointer(cdir))

	added := C.projectm_playlist_add_path(pl, cdir, C.bool(true), C.bool(false))
	C.projectm_playlist_set_shuffle(pl, C.bool(shuffle))
	e.playlist = pl
	if added == 0 {
		glvis.Logger().Warn("projectm: no presets found", "dir", dir)
		return
	}
	C.projectm_playlist_play_next(pl, C.bool(true))
	glvis.Logger().Debug("projectm: playlist ready", "dir", dir, "presets", uint32(added), "shuffle", shuffle)
}

func (e *Engine) setTextureSearchPaths(paths []string) {
	cpaths := make([]*C.char, len(paths))
	for i, p := range paths {
		cpaths[i] = C.CString(p)
	}
	defer func() {
		for _, cp := range cpaths {
			C.free(unsafe.Pointer(cp))
		}
	}()
	C.projectm_set_texture_search_paths(e.handle, &cpaths[0], C.size_t(len(cpaths)))
}

// SetFrameTime implements engine.Engine.
func (e *Engine) SetFrameTime(seconds float64) {
	C.projectm_set_frame_time(e.handle, C.double(seconds))
}

// AddPCM implements engine.Engine.
func (e *Engine) AddPCM(samples []int16, layout engine.ChannelLayout) {
	ch := layout.Channels()
	frames := len(samples) / ch
	if frames == 0 {
		return
	}
	channels := C.PROJECTM_MONO
	if layout == engine.Stereo {
		channels = C.PROJECTM_STEREO
	}
	C.projectm_pcm_add_int16(e.handle, (*C.int16_t)(unsafe.Pointer(&samples[0])),
		C.uint(frames), C.projectm_channels(channels))
}

// Render implements engine.Engine.
func (e *Engine) Render() {
	C.projectm_opengl_render_frame(e.handle)
}

// RenderToTarget implements engine.Engine.
func (e *Engine) RenderToTarget(fbo uint32) {
	C.projectm_opengl_render_frame_fbo(e.handle, C.uint32_t(fbo))
}

// WindowSize implements engine.Engine.
func (e *Engine) WindowSize() (width, height int) {
	var w, h C.size_t
	C.projectm_get_window_size(e.handle, &w, &h)
	return int(w), int(h)
}

// LoadPreset implements engine.Engine.
func (e *Engine) LoadPreset(path string, smooth bool) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	C.projectm_load_preset_file(e.handle, cpath, C.bool(smooth))
}

// SetPresetLocked implements engine.Engine.
func (e *Engine) SetPresetLocked(locked bool) {
	C.projectm_set_preset_locked(e.handle, C.bool(locked))
}

// SetPresetDuration implements engine.Engine.
func (e *Engine) SetPresetDuration(seconds float64) {
	C.projectm_set_preset_duration(e.handle, C.double(seconds))
}

// Destroy implements engine.Engine.
func (e *Engine) Destroy() {
	if e.playlist != nil {
		C.projectm_playlist_destroy(e.playlist)
		e.playlist = nil
	}
	if e.handle != nil {
		C.projectm_destroy(e.handle)
		e.handle = nil
	}
}
