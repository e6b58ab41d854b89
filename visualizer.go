package glvis

import (
	"fmt"
	"math"

	"github.com/gogpu/glvis/engine"
	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/internal/clock"
	"github.com/gogpu/glvis/internal/offscreen"
	"github.com/gogpu/glvis/timeline"
)

// Visualizer renders one video frame per audio buffer.
//
// The lifecycle is New, Setup, then any number of Start/Render.../Stop
// sessions. A Visualizer is not safe for concurrent use and must be driven
// from the thread that owns the GL context.
type Visualizer struct {
	cfg     Config
	factory engine.Factory
	opts    options

	// negotiated formats
	configured      bool
	video           VideoInfo
	audio           AudioInfo
	readFormat      offscreen.PixelFormat
	layout          engine.ChannelLayout
	samplesPerFrame int

	sched    *timeline.Scheduler
	detector *offscreen.Detector

	// render session
	started    bool
	gl         glapi.Funcs
	eng        engine.Engine
	targets    *offscreen.Targets
	ring       *offscreen.Readback
	audioClock clock.Clock
	videoClock clock.Clock
	stats      Stats
}

// New returns a Visualizer that creates its engine with factory.
func New(cfg Config, factory engine.Factory, opts ...Option) (*Visualizer, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil engine factory", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	v := &Visualizer{
		cfg:      cfg,
		factory:  factory,
		sched:    timeline.NewScheduler(cfg.schedulerOptions()...),
		detector: offscreen.NewDetector(cfg.Headless.detectorMode()),
	}
	for _, opt := range opts {
		opt(&v.opts)
	}
	return v, nil
}

// Config returns the configuration, including the current timeline path.
func (v *Visualizer) Config() Config { return v.cfg }

// Setup records the negotiated stream formats. It must be called before
// Start and cannot be called during a session.
func (v *Visualizer) Setup(video VideoInfo, audio AudioInfo) error {
	if v.started {
		return ErrAlreadyStarted
	}
	if !offscreen.ValidSize(video.Width, video.Height) {
		return fmt.Errorf("%w: video %dx%d", ErrInvalidSize, video.Width, video.Height)
	}
	rf, ok := video.Format.readFormat()
	if !ok {
		return fmt.Errorf("%w: video format %s", ErrUnsupportedFormat, video.Format)
	}
	var layout engine.ChannelLayout
	switch audio.Channels {
	case 1:
		layout = engine.Mono
	case 2:
		layout = engine.Stereo
	default:
		return fmt.Errorf("%w: %d audio channels", ErrUnsupportedFormat, audio.Channels)
	}
	if audio.Rate <= 0 {
		return fmt.Errorf("%w: audio rate %d", ErrUnsupportedFormat, audio.Rate)
	}

	v.video = video
	v.audio = audio
	v.readFormat = rf
	v.layout = layout
	v.samplesPerFrame = 0
	if fps := video.FrameRate(); fps > 0 {
		v.samplesPerFrame = int(float64(audio.Rate) / fps)
	}
	v.configured = true

	Logger().Info("glvis: formats negotiated",
		"width", video.Width,
		"height", video.Height,
		"format", video.Format,
		"fps", video.FrameRate(),
		"rate", audio.Rate,
		"channels", audio.Channels,
		"samples_per_frame", v.samplesPerFrame)
	return nil
}

// SamplesPerFrame returns the audio frames (samples per channel) that span
// one video frame, or 0 when the frame rate is unknown.
func (v *Visualizer) SamplesPerFrame() int { return v.samplesPerFrame }

// Start begins a render session on gl, which must be current on the calling
// thread. It creates the engine, decides whether an offscreen target is
// required, and activates the configured timeline.
func (v *Visualizer) Start(gl glapi.Funcs) error {
	if v.started {
		return ErrAlreadyStarted
	}
	if !v.configured {
		return ErrNotConfigured
	}

	fps := int(math.Round(v.video.FrameRate()))
	eng, err := v.factory(gl, v.cfg.engineParams(v.video.Width, v.video.Height, fps))
	if err != nil {
		return fmt.Errorf("glvis: create engine: %w", err)
	}

	headless := v.detector.IsHeadless(gl)

	var targets *offscreen.Targets
	mode := RenderModeDefault
	if !v.opts.noTarget {
		targets = offscreen.NewTargets(gl)
		if _, err := targets.Ensure(eng.WindowSize()); err != nil {
			targets.Release()
			targets = nil
			if headless {
				v.detector.Reset()
				eng.Destroy()
				Logger().Error("glvis: cannot render on a headless context", "err", err)
				return fmt.Errorf("%w: %w", ErrOffscreenRequired, err)
			}
			Logger().Warn("glvis: offscreen target unavailable, rendering to the default framebuffer", "err", err)
		} else {
			mode = RenderModeOffscreen
		}
	} else if headless {
		v.detector.Reset()
		eng.Destroy()
		Logger().Error("glvis: offscreen target disabled on a headless context")
		return ErrOffscreenRequired
	}

	var ring *offscreen.Readback
	if !v.opts.syncReadback {
		ring = offscreen.NewReadback(gl, v.readFormat)
		if !ring.Supported() {
			Logger().Info("glvis: pixel-pack buffers unavailable, using synchronous readback")
			ring = nil
		}
	}

	v.gl = gl
	v.eng = eng
	v.targets = targets
	v.ring = ring
	v.audioClock.Reset()
	v.videoClock.Reset()
	v.stats = Stats{Mode: mode, Headless: headless}
	v.started = true

	if err := v.sched.Load(v.cfg.TimelinePath); err != nil {
		Logger().Warn("glvis: timeline disabled", "path", v.cfg.TimelinePath, "err", err)
	}
	v.sched.Activate(eng)

	w, h := eng.WindowSize()
	Logger().Info("glvis: render session started",
		"mode", mode,
		"headless", headless,
		"engine_width", w,
		"engine_height", h,
		"ring", ring != nil,
		"timeline", v.sched.Active())
	return nil
}

// Render produces one video frame. audio is forwarded to the engine and its
// timestamp drives the session clock; frame receives the rendered pixels.
// Neither buffer is retained.
//
// With the pixel-pack ring enabled, frames after the first carry the image
// rendered by the previous call.
func (v *Visualizer) Render(audio AudioBuffer, frame *VideoFrame) error {
	if !v.started {
		return ErrNotStarted
	}
	width, height := v.video.Width, v.video.Height
	if !frame.holds(width, height) {
		return fmt.Errorf("%w: need %dx%d", ErrFrameTooSmall, width, height)
	}

	elapsed := v.audioClock.Elapsed(audio.PTS)
	videoElapsed := v.videoClock.Elapsed(frame.PTS)
	drift := videoElapsed - elapsed
	Logger().Debug("glvis: frame clocks",
		"frame", v.stats.Frames,
		"audio", elapsed,
		"video", videoElapsed,
		"drift", drift)

	v.eng.SetFrameTime(elapsed)
	v.sched.Update(v.eng, elapsed)
	if len(audio.Samples) > 0 {
		v.eng.AddPCM(audio.Samples, v.layout)
	}

	if err := v.draw(); err != nil {
		return err
	}
	v.readback(frame, width, height)
	v.checkErrors()

	v.stats.Frames++
	v.stats.Elapsed = elapsed
	v.stats.Drift = drift
	return nil
}

// draw runs the engine's render pass and binds the framebuffer it drew into
// for reading.
func (v *Visualizer) draw() error {
	if v.targets != nil {
		tgt, err := v.targets.Ensure(v.eng.WindowSize())
		if err == nil {
			v.eng.RenderToTarget(tgt.Framebuffer)
			v.gl.BindFramebuffer(glapi.ReadFramebuffer, tgt.Framebuffer)
			return nil
		}
		if v.stats.Headless {
			return fmt.Errorf("%w: %w", ErrOffscreenRequired, err)
		}
		Logger().Warn("glvis: offscreen target lost, rendering to the default framebuffer", "err", err)
		v.targets.Release()
		v.targets = nil
		v.stats.Mode = RenderModeDefault
	}
	v.eng.Render()
	v.gl.BindFramebuffer(glapi.ReadFramebuffer, 0)
	return nil
}

// readback fills frame from the bound read framebuffer, through the ring
// when possible.
func (v *Visualizer) readback(frame *VideoFrame, width, height int) {
	if v.ring != nil {
		if err := v.ring.Ensure(width, height); err != nil {
			Logger().Warn("glvis: readback ring disabled", "err", err)
			v.ring.Release()
			v.ring = nil
		} else if v.ring.Download(width, height, frame.Data, frame.Stride) {
			v.stats.RingCopies++
			return
		}
	}
	offscreen.ReadSync(v.gl, v.readFormat, width, height, frame.Data, frame.Stride)
	v.stats.SyncReads++
}

// maxErrorDrain bounds the glGetError loop; a lost context may keep
// reporting an error forever.
const maxErrorDrain = 16

// checkErrors drains the GL error queue after a frame and logs each code.
func (v *Visualizer) checkErrors() {
	for range maxErrorDrain {
		code := v.gl.GetError()
		if code == glapi.NoError {
			return
		}
		v.stats.GLErrors++
		Logger().Warn("glvis: GL error",
			"frame", v.stats.Frames,
			"code", glapi.ErrorString(code))
	}
}

// Stop ends the render session and releases every GPU object it owns. It is
// a no-op outside a session.
func (v *Visualizer) Stop() {
	if !v.started {
		return
	}
	if v.ring != nil {
		v.ring.Release()
		v.ring = nil
	}
	if v.targets != nil {
		v.targets.Release()
		v.targets = nil
	}
	v.sched.Reset(nil)
	v.detector.Reset()
	v.eng.Destroy()
	v.eng = nil
	v.gl = nil
	v.audioClock.Reset()
	v.videoClock.Reset()
	v.started = false
	Logger().Info("glvis: render session stopped", "frames", v.stats.Frames)
}

// Started reports whether a render session is running.
func (v *Visualizer) Started() bool { return v.started }

// Stats returns the counters of the current or last session.
func (v *Visualizer) Stats() Stats { return v.stats }

// TimelineActive reports whether a timeline drives preset switching.
func (v *Visualizer) TimelineActive() bool { return v.sched.Active() }

// SetTimelinePath replaces the timeline. During a session the new timeline
// is activated immediately. When the file is empty, missing or malformed the
// problem is logged and the engine's own rotation is restored; use
// TimelineActive to tell whether the timeline took effect.
func (v *Visualizer) SetTimelinePath(path string) {
	v.cfg.TimelinePath = path
	var sw timeline.Switcher
	if v.started {
		sw = v.eng
	}

	err := v.sched.Load(path)
	switch {
	case err != nil:
		Logger().Warn("glvis: timeline disabled", "path", path, "err", err)
		v.sched.Reset(sw)
	case !v.sched.Active():
		v.sched.Reset(sw)
	case sw != nil:
		v.sched.Activate(sw)
		v.sched.Update(sw, v.audioClock.Last())
	}
}
