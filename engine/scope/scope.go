// Package scope is a self-contained rendering engine that draws an
// oscilloscope ring and level bars from the incoming audio.
//
// Frames are drawn on the CPU with gogpu/gg, uploaded into a texture and
// blitted into the framebuffer glvis asks for. Every preset name maps to a
// stable color palette, so timeline switches are visible without any preset
// files. When the preset is not locked, the engine rotates through the
// *.milk files of its preset directory on its own.
//
// The engine registers itself as "scope" on import:
//
//	import _ "github.com/gogpu/glvis/engine/scope"
package scope

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/glvis"
	"github.com/gogpu/glvis/engine"
	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/internal/offscreen"
	"github.com/gogpu/glvis/timeline"
)

// IdlePreset is shown until the first preset is loaded.
const IdlePreset = "idle://glvis"

// historyLen is the number of mono samples kept for drawing.
const historyLen = 2048

// beatFloor is the RMS level below which no beat is detected.
const beatFloor = 0.02

func init() {
	engine.Register(engine.NameScope, New)
}

// Engine implements engine.Engine.
type Engine struct {
	gl glapi.Funcs
	p  engine.Params

	dc   *gg.Context
	pm   *gg.Pixmap
	font *text.FontSource
	face text.Face

	texture uint32
	fbo     uint32

	history   []float64
	head      int
	level     float64
	frameTime float64

	preset    string
	from, to  palette
	fadeStart float64
	fadeLen   float64

	locked      bool
	duration    float64
	lastSwitch  float64
	lastHardCut float64
	list        *playlist
}

var _ engine.Engine = (*Engine)(nil)

// New creates a scope engine rendering at p.Width x p.Height. The context
// must support framebuffer objects and blits.
func New(gl glapi.Funcs, p engine.Params) (engine.Engine, error) {
	if !offscreen.ValidSize(p.Width, p.Height) {
		return nil, fmt.Errorf("scope: %w: %dx%d", offscreen.ErrInvalidSize, p.Width, p.Height)
	}
	for _, c := range []glapi.Capability{glapi.CapFramebufferObject, glapi.CapBlitFramebuffer} {
		if !gl.Supports(c) {
			return nil, fmt.Errorf("scope: %w: %s", glapi.ErrUnsupported, c)
		}
	}

	e := &Engine{
		gl:       gl,
		p:        p,
		pm:       gg.NewPixmap(p.Width, p.Height),
		history:  make([]float64, historyLen),
		locked:   p.PresetLocked,
		duration: p.PresetDuration,
	}
	e.dc = gg.NewContext(p.Width, p.Height, gg.WithPixmap(e.pm))

	if err := e.createTarget(); err != nil {
		_ = e.dc.Close()
		return nil, err
	}

	if src, err := text.NewFontSource(goregular.TTF); err != nil {
		glvis.Logger().Warn("scope: font unavailable, titles disabled", "err", err)
	} else {
		e.font = src
		e.face = src.Face(math.Max(12, float64(p.Height)/28))
	}

	presets, err := scanPresets(p.PresetDir)
	if err != nil {
		glvis.Logger().Warn("scope: cannot scan preset directory", "dir", p.PresetDir, "err", err)
	}
	e.list = newPlaylist(presets, p.ShufflePresets, time.Now().UnixNano())
	if p.TextureDir != "" {
		glvis.Logger().Debug("scope: texture directory not used by this engine", "dir", p.TextureDir)
	}

	first := IdlePreset
	if p.EnablePlaylist && !p.PresetLocked {
		if next, ok := e.list.next(); ok {
			first = next
		}
	}
	e.switchTo(first, false)

	glvis.Logger().Info("scope: engine created",
		"width", p.Width,
		"height", p.Height,
		"presets", len(presets),
		"locked", p.PresetLocked)
	return e, nil
}

func (e *Engine) createTarget() error {
	gl := e.gl
	w, h := int32(e.p.Width), int32(e.p.Height) //nolint:gosec // bounded by offscreen.MaxSize

	e.texture = gl.GenTexture()
	gl.BindTexture(glapi.Texture2D, e.texture)
	gl.TexImage2D(glapi.Texture2D, 0, glapi.RGBA8, w, h, glapi.RGBA, glapi.UnsignedByte, nil)
	gl.TexParameteri(glapi.Texture2D, glapi.TextureMinFilter, int32(glapi.Nearest))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureMagFilter, int32(glapi.Nearest))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureWrapS, int32(glapi.ClampToEdge))
	gl.TexParameteri(glapi.Texture2D, glapi.TextureWrapT, int32(glapi.ClampToEdge))
	gl.BindTexture(glapi.Texture2D, 0)

	e.fbo = gl.GenFramebuffer()
	gl.BindFramebuffer(glapi.ReadFramebuffer, e.fbo)
	gl.FramebufferTexture2D(glapi.ReadFramebuffer, glapi.ColorAttachment0, glapi.Texture2D, e.texture, 0)
	status := gl.CheckFramebufferStatus(glapi.ReadFramebuffer)
	gl.BindFramebuffer(glapi.ReadFramebuffer, 0)
	if status != glapi.FramebufferComplete {
		e.releaseTarget()
		return fmt.Errorf("scope: staging framebuffer %s", glapi.StatusString(status))
	}
	return nil
}

func (e *Engine) releaseTarget() {
	if e.fbo != 0 {
		e.gl.DeleteFramebuffer(e.fbo)
		e.fbo = 0
	}
	if e.texture != 0 {
		e.gl.DeleteTexture(e.texture)
		e.texture = 0
	}
}

// Preset returns the preset currently shown.
func (e *Engine) Preset() string { return e.preset }

// SetFrameTime implements engine.Engine.
func (e *Engine) SetFrameTime(seconds float64) {
	e.frameTime = seconds
	if e.locked || !e.p.EnablePlaylist {
		return
	}
	if e.duration > 0 && e.duration < timeline.HoldDuration && e.frameTime-e.lastSwitch >= e.duration {
		if next, ok := e.list.next(); ok {
			e.switchTo(next, true)
		}
	}
}

// AddPCM implements engine.Engine. Channels are mixed down to mono.
func (e *Engine) AddPCM(samples []int16, layout engine.ChannelLayout) {
	ch := layout.Channels()
	var sum float64
	n := 0
	for i := 0; i+ch <= len(samples); i += ch {
		var v float64
		for c := 0; c < ch; c++ {
			v += float64(samples[i+c])
		}
		v /= float64(ch) * 32768
		e.history[e.head] = v
		e.head = (e.head + 1) % historyLen
		sum += v * v
		n++
	}
	if n == 0 {
		return
	}

	energy := math.Sqrt(sum / float64(n))
	beat := e.level > 0 && energy > beatFloor && energy > e.level*(1+e.p.HardCutSensitivity)
	e.level = 0.9*e.level + 0.1*energy

	if beat && e.p.HardCutEnabled && !e.locked && e.p.EnablePlaylist &&
		e.frameTime-e.lastHardCut >= e.p.HardCutDuration {
		if next, ok := e.list.next(); ok {
			glvis.Logger().Debug("scope: hard cut on beat", "energy", energy, "preset", next)
			e.switchTo(next, false)
			e.lastHardCut = e.frameTime
		}
	}
}

// LoadPreset implements engine.Engine.
func (e *Engine) LoadPreset(path string, smooth bool) {
	glvis.Logger().Debug("scope: load preset", "preset", path, "smooth", smooth)
	e.switchTo(path, smooth)
}

// SetPresetLocked implements engine.Engine.
func (e *Engine) SetPresetLocked(locked bool) { e.locked = locked }

// SetPresetDuration implements engine.Engine.
func (e *Engine) SetPresetDuration(seconds float64) {
	e.duration = seconds
	e.lastSwitch = e.frameTime
}

func (e *Engine) switchTo(preset string, smooth bool) {
	e.from = e.palette()
	e.to = paletteFor(preset, e.p.EasterEgg*60)
	e.fadeStart = e.frameTime
	e.fadeLen = 0
	if smooth && e.preset != "" {
		e.fadeLen = e.p.SoftCutDuration
	}
	e.preset = preset
	e.lastSwitch = e.frameTime
}

// palette returns the colors for the current frame time, blending during a
// soft cut.
func (e *Engine) palette() palette {
	if e.fadeLen <= 0 {
		return e.to
	}
	t := (e.frameTime - e.fadeStart) / e.fadeLen
	if t >= 1 {
		return e.to
	}
	return e.from.lerp(e.to, math.Max(t, 0))
}

// Render implements engine.Engine. The frame is blitted into the framebuffer
// bound for drawing; the read binding is left on the engine's staging
// framebuffer.
func (e *Engine) Render() {
	e.draw()
	e.upload()
	e.gl.BindFramebuffer(glapi.ReadFramebuffer, e.fbo)
	e.blit()
}

// RenderToTarget implements engine.Engine. fbo is left bound on return.
func (e *Engine) RenderToTarget(fbo uint32) {
	e.draw()
	e.upload()
	e.gl.BindFramebuffer(glapi.ReadFramebuffer, e.fbo)
	e.gl.BindFramebuffer(glapi.DrawFramebuffer, fbo)
	e.blit()
	e.gl.BindFramebuffer(glapi.Framebuffer, fbo)
}

// WindowSize implements engine.Engine.
func (e *Engine) WindowSize() (width, height int) { return e.p.Width, e.p.Height }

// Destroy implements engine.Engine.
func (e *Engine) Destroy() {
	e.releaseTarget()
	if e.font != nil {
		_ = e.font.Close()
		e.font = nil
		e.face = nil
	}
	_ = e.dc.Close()
}

func (e *Engine) upload() {
	gl := e.gl
	w, h := int32(e.p.Width), int32(e.p.Height) //nolint:gosec // bounded by offscreen.MaxSize
	gl.BindTexture(glapi.Texture2D, e.texture)
	gl.PixelStorei(glapi.UnpackAlignment, 4)
	gl.TexSubImage2D(glapi.Texture2D, 0, 0, 0, w, h, glapi.RGBA, glapi.UnsignedByte, e.pm.Data())
	gl.BindTexture(glapi.Texture2D, 0)
}

func (e *Engine) blit() {
	w, h := int32(e.p.Width), int32(e.p.Height) //nolint:gosec // bounded by offscreen.MaxSize
	e.gl.BlitFramebuffer(0, 0, w, h, 0, 0, w, h, glapi.ColorBufferBit, glapi.Nearest)
}

func (e *Engine) draw() {
	dc := e.dc
	w, h := float64(e.p.Width), float64(e.p.Height)
	pal := e.palette()

	dc.ClearWithColor(pal.background)
	e.drawBars(pal, w, h)
	e.drawRing(pal, w, h)

	if e.face != nil && e.preset != IdlePreset {
		dc.SetFont(e.face)
		dc.SetRGBA(pal.wave.R, pal.wave.G, pal.wave.B, 0.8)
		dc.DrawString(presetTitle(e.preset), 12, h-12)
	}
	if err := dc.FlushGPU(); err != nil {
		glvis.Logger().Warn("scope: flush failed", "err", err)
	}
}

// sample returns the history value i samples after the oldest one.
func (e *Engine) sample(i int) float64 {
	return e.history[(e.head+i)%historyLen]
}

func (e *Engine) drawBars(pal palette, w, h float64) {
	n := min(max(e.p.MeshWidth, 8), 256)
	per := historyLen / n
	bw := w / float64(n)
	for b := 0; b < n; b++ {
		var sum float64
		for i := b * per; i < (b+1)*per; i++ {
			v := e.sample(i)
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(per))
		bh := math.Min(1, rms*e.p.BeatSensitivity*2.5) * h * 0.45
		if bh < 1 {
			continue
		}
		c := pal.barLow.Lerp(pal.barHigh, float64(b)/float64(n-1))
		e.dc.SetRGBA(c.R, c.G, c.B, 0.85)
		e.dc.DrawRectangle(float64(b)*bw, h-bh, math.Max(bw-1, 1), bh)
		_ = e.dc.Fill()
	}
}

func (e *Engine) drawRing(pal palette, w, h float64) {
	points := min(max(e.p.MeshHeight*8, 64), historyLen)
	step := historyLen / points
	cx, cy := w/2, h/2
	rx, ry := w*0.28, h*0.28
	if e.p.AspectCorrection {
		r := math.Min(w, h) * 0.28
		rx, ry = r, r
	}

	dc := e.dc
	dc.ClearPath()
	for i := 0; i < points; i++ {
		a := 2 * math.Pi * float64(i) / float64(points)
		k := 1 + 0.35*e.sample(i*step)*e.p.BeatSensitivity
		x, y := cx+rx*k*math.Cos(a), cy+ry*k*math.Sin(a)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
	dc.SetRGBA(pal.wave.R, pal.wave.G, pal.wave.B, 1)
	dc.SetLineWidth(math.Max(2, h/240))
	_ = dc.Stroke()
}
