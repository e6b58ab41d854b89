package glvis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/gogpu/glvis/engine"
	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/internal/glfake"
	"github.com/gogpu/glvis/internal/offscreen"
)

// fakeEngine paints each frame a uniform shade that increments per render,
// so tests can tell which render a read-back frame came from.
type fakeEngine struct {
	gl        *glfake.GL
	w, h      int
	calls     []string
	frameTime float64
	pcm       int
	shade     byte
	destroyed bool
}

func (e *fakeEngine) LoadPreset(path string, smooth bool) {
	e.calls = append(e.calls, fmt.Sprintf("load %s smooth=%v", path, smooth))
}
func (e *fakeEngine) SetPresetLocked(locked bool) {
	e.calls = append(e.calls, fmt.Sprintf("lock %v", locked))
}
func (e *fakeEngine) SetPresetDuration(seconds float64) {
	e.calls = append(e.calls, fmt.Sprintf("duration %g", seconds))
}
func (e *fakeEngine) SetFrameTime(seconds float64) { e.frameTime = seconds }
func (e *fakeEngine) AddPCM(samples []int16, layout engine.ChannelLayout) {
	e.pcm += len(samples) / layout.Channels()
}
func (e *fakeEngine) Render() {
	e.shade++
	e.gl.Fill(e.shade)
}
func (e *fakeEngine) RenderToTarget(fbo uint32) {
	e.gl.BindFramebuffer(glapi.Framebuffer, fbo)
	e.Render()
}
func (e *fakeEngine) WindowSize() (width, height int) { return e.w, e.h }
func (e *fakeEngine) Destroy()                        { e.destroyed = true }

var (
	testVideo = VideoInfo{Width: 8, Height: 4, Format: VideoFormatRGBA, FPSNum: 30, FPSDen: 1}
	testAudio = AudioInfo{Rate: 44100, Channels: 2}
)

// newVisualizer returns a configured Visualizer whose engines are recorded
// in *engines as they are created.
func newVisualizer(t *testing.T, gl *glfake.GL, cfg Config, engines *[]*fakeEngine, opts ...Option) *Visualizer {
	t.Helper()
	factory := func(_ glapi.Funcs, p engine.Params) (engine.Engine, error) {
		e := &fakeEngine{gl: gl, w: p.Width, h: p.Height}
		*engines = append(*engines, e)
		return e, nil
	}
	v, err := New(cfg, factory, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := v.Setup(testVideo, testAudio); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return v
}

func startVisualizer(t *testing.T, gl *glfake.GL, cfg Config, opts ...Option) (*Visualizer, *fakeEngine) {
	t.Helper()
	var engines []*fakeEngine
	v := newVisualizer(t, gl, cfg, &engines, opts...)
	if err := v.Start(gl); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(v.Stop)
	return v, engines[0]
}

func audioAt(seconds float64) AudioBuffer {
	return AudioBuffer{
		PTS:     time.Duration(seconds * float64(time.Second)),
		Samples: make([]int16, 1470*2),
	}
}

func render(t *testing.T, v *Visualizer, seconds float64) *VideoFrame {
	t.Helper()
	frame := NewVideoFrame(testVideo)
	if err := v.Render(audioAt(seconds), frame); err != nil {
		t.Fatalf("Render(%g) error = %v", seconds, err)
	}
	return frame
}

func uniform(data []byte) (byte, bool) {
	for _, b := range data {
		if b != data[0] {
			return 0, false
		}
	}
	return data[0], true
}

func TestNewValidates(t *testing.T) {
	if _, err := New(DefaultConfig(), nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(nil factory) error = %v, want ErrInvalidConfig", err)
	}
	cfg := DefaultConfig()
	cfg.MeshSize = MeshSize{}
	factory := func(glapi.Funcs, engine.Params) (engine.Engine, error) { return nil, nil }
	if _, err := New(cfg, factory); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New(zero mesh) error = %v, want ErrInvalidConfig", err)
	}
}

func TestSetup(t *testing.T) {
	var engines []*fakeEngine
	v := newVisualizer(t, glfake.New(), DefaultConfig(), &engines)
	if got := v.SamplesPerFrame(); got != 1470 {
		t.Errorf("SamplesPerFrame() = %d, want 1470", got)
	}

	tests := []struct {
		name  string
		video VideoInfo
		audio AudioInfo
		want  error
	}{
		{"too wide", VideoInfo{Width: offscreen.MaxSize + 1, Height: 4, Format: VideoFormatRGBA}, testAudio, ErrInvalidSize},
		{"too tall", VideoInfo{Width: 8, Height: offscreen.MaxSize + 1, Format: VideoFormatRGBA}, testAudio, ErrInvalidSize},
		{"unknown format", VideoInfo{Width: 8, Height: 4}, testAudio, ErrUnsupportedFormat},
		{"zero width", VideoInfo{Height: 4, Format: VideoFormatRGBA}, testAudio, ErrInvalidSize},
		{"surround", testVideo, AudioInfo{Rate: 48000, Channels: 6}, ErrUnsupportedFormat},
		{"no rate", testVideo, AudioInfo{Channels: 2}, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.Setup(tt.video, tt.audio); !errors.Is(err, tt.want) {
				t.Errorf("Setup() error = %v, want %v", err, tt.want)
			}
		})
	}

	abgr := testVideo
	abgr.Format = VideoFormatABGR
	if err := v.Setup(abgr, AudioInfo{Rate: 48000, Channels: 1}); err != nil {
		t.Fatalf("Setup(abgr, mono) error = %v", err)
	}
	if v.readFormat.Type != glapi.UnsignedInt8888 || v.layout != engine.Mono {
		t.Errorf("Setup(abgr, mono) mapped to %+v, layout %d", v.readFormat, v.layout)
	}
	if got := v.SamplesPerFrame(); got != 1600 {
		t.Errorf("SamplesPerFrame() = %d, want 1600", got)
	}

	bgra := testVideo
	bgra.Format = VideoFormatBGRA
	if err := v.Setup(bgra, testAudio); err != nil {
		t.Fatalf("Setup(bgra) error = %v", err)
	}
	if v.readFormat.Format != glapi.BGRA || v.readFormat.Type != glapi.UnsignedByte {
		t.Errorf("Setup(bgra) mapped to %+v", v.readFormat)
	}
}

func TestLifecycleErrors(t *testing.T) {
	factory := func(glapi.Funcs, engine.Params) (engine.Engine, error) {
		return nil, errors.New("no device")
	}
	v, err := New(DefaultConfig(), factory)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Start(glfake.New()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Start() before Setup error = %v, want ErrNotConfigured", err)
	}
	if err := v.Render(AudioBuffer{}, NewVideoFrame(testVideo)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Render() before Start error = %v, want ErrNotStarted", err)
	}
	if err := v.Setup(testVideo, testAudio); err != nil {
		t.Fatal(err)
	}
	if err := v.Start(glfake.New()); err == nil || v.Started() {
		t.Errorf("Start() with failing engine error = %v, started = %v", err, v.Started())
	}

	gl := glfake.New()
	s, _ := startVisualizer(t, gl, DefaultConfig())
	if err := s.Start(gl); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() error = %v, want ErrAlreadyStarted", err)
	}
	if err := s.Setup(testVideo, testAudio); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Setup() during session error = %v, want ErrAlreadyStarted", err)
	}
}

func TestRenderPipelinesReadback(t *testing.T) {
	gl := glfake.New()
	v, eng := startVisualizer(t, gl, DefaultConfig())
	if st := v.Stats(); st.Mode != RenderModeOffscreen || st.Headless {
		t.Fatalf("Stats() = %+v, want offscreen windowed session", st)
	}

	// The first frame is read synchronously; afterwards every frame carries
	// the previous render.
	want := []byte{1, 1, 2, 3}
	for i, w := range want {
		frame := render(t, v, float64(i)/30)
		got, ok := uniform(frame.Data)
		if !ok || got != w {
			t.Errorf("frame %d: shade = %d (uniform %v), want %d", i, got, ok, w)
		}
	}
	if eng.shade != 4 {
		t.Errorf("engine rendered %d frames, want 4", eng.shade)
	}
	st := v.Stats()
	if st.Frames != 4 || st.SyncReads != 1 || st.RingCopies != 3 {
		t.Errorf("Stats() = %+v, want 4 frames, 1 sync read, 3 ring copies", st)
	}
	if eng.pcm != 4*1470 {
		t.Errorf("engine received %d sample frames, want %d", eng.pcm, 4*1470)
	}
}

func TestRenderSynchronousReadback(t *testing.T) {
	gl := glfake.New()
	v, _ := startVisualizer(t, gl, DefaultConfig(), WithSynchronousReadback())
	for i := 1; i <= 3; i++ {
		frame := render(t, v, float64(i)/30)
		if got, ok := uniform(frame.Data); !ok || got != byte(i) {
			t.Errorf("frame %d: shade = %d, want current render", i, got)
		}
	}
	if _, _, _, buffers := gl.Live(); buffers != 0 {
		t.Errorf("synchronous readback allocated %d buffers", buffers)
	}
	if st := v.Stats(); st.RingCopies != 0 || st.SyncReads != 3 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestRenderPaddedFrame(t *testing.T) {
	gl := glfake.New()
	v, _ := startVisualizer(t, gl, DefaultConfig(), WithSynchronousReadback())

	stride := testVideo.Stride() + 8
	frame := &VideoFrame{
		Width:  testVideo.Width,
		Height: testVideo.Height,
		Stride: stride,
		Data:   make([]byte, stride*testVideo.Height),
	}
	for i := range frame.Data {
		frame.Data[i] = 0xEE
	}
	if err := v.Render(audioAt(0), frame); err != nil {
		t.Fatal(err)
	}
	for y := 0; y < testVideo.Height; y++ {
		row := frame.Data[y*stride : (y+1)*stride]
		if got, ok := uniform(row[:testVideo.Stride()]); !ok || got != 1 {
			t.Errorf("row %d pixels = %v", y, row[:testVideo.Stride()])
		}
		if got, ok := uniform(row[testVideo.Stride():]); !ok || got != 0xEE {
			t.Errorf("row %d padding overwritten: %v", y, row[testVideo.Stride():])
		}
	}
}

func TestRenderFrameTooSmall(t *testing.T) {
	v, _ := startVisualizer(t, glfake.New(), DefaultConfig())
	small := []*VideoFrame{
		nil,
		{Width: 4, Height: 4, Stride: 16, Data: make([]byte, 64)},
		{Width: 8, Height: 4, Stride: 32, Data: make([]byte, 64)},
		{Width: 8, Height: 4, Stride: 16, Data: make([]byte, 128)},
	}
	for i, f := range small {
		if err := v.Render(audioAt(0), f); !errors.Is(err, ErrFrameTooSmall) {
			t.Errorf("frame %d: Render() error = %v, want ErrFrameTooSmall", i, err)
		}
	}
	if v.Stats().Frames != 0 {
		t.Errorf("rejected frames were counted")
	}
}

func TestHeadlessSessionKeepsTargetBound(t *testing.T) {
	gl := glfake.NewHeadless()
	v, _ := startVisualizer(t, gl, DefaultConfig())
	if st := v.Stats(); !st.Headless || st.Mode != RenderModeOffscreen {
		t.Fatalf("Stats() = %+v, want headless offscreen session", st)
	}
	before := gl.InvalidBindings
	for i := 0; i < 5; i++ {
		render(t, v, float64(i)/30)
	}
	if gl.InvalidBindings != before {
		t.Errorf("default framebuffer bound %d times while rendering headless", gl.InvalidBindings-before)
	}
	if gl.FailedChecks != 1 {
		t.Errorf("FailedChecks = %d, want only the detection probe", gl.FailedChecks)
	}
}

func TestHeadlessRequiresOffscreenTarget(t *testing.T) {
	tests := []struct {
		name  string
		gl    func() *glfake.GL
		mode  HeadlessMode
		opts  []Option
		fails bool
	}{
		{
			name: "forced without framebuffer objects",
			gl: func() *glfake.GL {
				gl := glfake.New()
				gl.Missing[glapi.CapFramebufferObject] = true
				return gl
			},
			mode:  HeadlessOn,
			fails: true,
		},
		{
			name:  "detected with target disabled",
			gl:    glfake.NewHeadless,
			opts:  []Option{WithoutOffscreenTarget()},
			fails: true,
		},
		{
			name: "incomplete target",
			gl: func() *glfake.GL {
				gl := glfake.NewHeadless()
				gl.FailNextChecks = 1
				return gl
			},
			fails: true,
		},
		{
			name:  "forced windowed with target disabled",
			gl:    glfake.NewHeadless,
			mode:  HeadlessOff,
			opts:  []Option{WithoutOffscreenTarget()},
			fails: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gl := tt.gl()
			cfg := DefaultConfig()
			cfg.Headless = tt.mode
			var engines []*fakeEngine
			v := newVisualizer(t, gl, cfg, &engines, tt.opts...)
			err := v.Start(gl)
			if !tt.fails {
				if err != nil {
					t.Fatalf("Start() error = %v", err)
				}
				v.Stop()
				return
			}
			if !errors.Is(err, ErrOffscreenRequired) {
				t.Fatalf("Start() error = %v, want ErrOffscreenRequired", err)
			}
			if v.Started() || !engines[0].destroyed {
				t.Error("failed Start() left a session or engine behind")
			}
			if fbos, textures, rbs, _ := gl.Live(); fbos+textures+rbs != 0 {
				t.Errorf("failed Start() leaked %d fbos, %d textures, %d renderbuffers", fbos, textures, rbs)
			}
		})
	}
}

func TestWindowedFallbacks(t *testing.T) {
	gl := glfake.New()
	gl.SetDefaultSize(testVideo.Width, testVideo.Height)
	gl.Missing[glapi.CapFramebufferObject] = true
	gl.Missing[glapi.CapPixelBufferObject] = true

	v, eng := startVisualizer(t, gl, DefaultConfig())
	if st := v.Stats(); st.Mode != RenderModeDefault || st.Headless {
		t.Fatalf("Stats() = %+v, want default framebuffer", st)
	}
	for i := 1; i <= 2; i++ {
		frame := render(t, v, float64(i)/30)
		if got, ok := uniform(frame.Data); !ok || got != byte(i) {
			t.Errorf("frame %d: shade = %d, want %d", i, got, i)
		}
	}
	if eng.shade != 2 || v.Stats().SyncReads != 2 {
		t.Errorf("shade = %d, stats = %+v", eng.shade, v.Stats())
	}
}

func TestRenderUsesAudioClock(t *testing.T) {
	v, eng := startVisualizer(t, glfake.New(), DefaultConfig())

	frame := NewVideoFrame(testVideo)
	frame.PTS = 100 * time.Second
	if err := v.Render(audioAt(2), frame); err != nil {
		t.Fatal(err)
	}
	if eng.frameTime != 0 {
		t.Errorf("first frame time = %g, want 0", eng.frameTime)
	}

	frame.PTS = 101600 * time.Millisecond
	if err := v.Render(audioAt(3.5), frame); err != nil {
		t.Fatal(err)
	}
	if eng.frameTime != 1.5 {
		t.Errorf("frame time = %g, want 1.5", eng.frameTime)
	}
	st := v.Stats()
	if st.Elapsed != 1.5 {
		t.Errorf("Stats().Elapsed = %g, want 1.5", st.Elapsed)
	}
	if d := st.Drift - 0.1; d > 1e-9 || d < -1e-9 {
		t.Errorf("Stats().Drift = %g, want 0.1", st.Drift)
	}

	// A buffer without a timestamp keeps the last time.
	if err := v.Render(AudioBuffer{PTS: NoPTS}, frame); err != nil {
		t.Fatal(err)
	}
	if eng.frameTime != 1.5 {
		t.Errorf("frame time without PTS = %g, want 1.5", eng.frameTime)
	}
}

const sessionTimeline = `[intro]
start=0
duration=10
preset=/p/A.milk

[drop]
start=10
duration=10
preset=/p/B.milk
complexity=high
`

func writeTimeline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "show.timeline")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTimelineDrivesEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimelinePath = writeTimeline(t, sessionTimeline)
	v, eng := startVisualizer(t, glfake.New(), cfg)

	if !v.TimelineActive() {
		t.Fatal("timeline not active after Start")
	}
	want := []string{"lock true", "duration 999999", "load /p/A.milk smooth=true"}
	if !slices.Equal(eng.calls, want) {
		t.Fatalf("activation calls = %q, want %q", eng.calls, want)
	}

	eng.calls = nil
	for _, s := range []float64{0, 5, 9.99, 10, 15, 40} {
		render(t, v, s)
	}
	want = []string{"load /p/B.milk smooth=false"}
	if !slices.Equal(eng.calls, want) {
		t.Errorf("calls while rendering = %q, want %q", eng.calls, want)
	}
}

func TestSetTimelinePath(t *testing.T) {
	v, eng := startVisualizer(t, glfake.New(), DefaultConfig())
	if v.TimelineActive() || len(eng.calls) != 0 {
		t.Fatalf("session without timeline: active = %v, calls = %q", v.TimelineActive(), eng.calls)
	}
	render(t, v, 0)
	render(t, v, 12)

	path := writeTimeline(t, sessionTimeline)
	v.SetTimelinePath(path)
	if !v.TimelineActive() {
		t.Fatal("timeline not active after SetTimelinePath")
	}
	want := []string{
		"lock true",
		"duration 999999",
		"load /p/A.milk smooth=true",
		"load /p/B.milk smooth=false",
	}
	if !slices.Equal(eng.calls, want) {
		t.Errorf("calls = %q, want %q", eng.calls, want)
	}
	if v.Config().TimelinePath != path {
		t.Errorf("Config().TimelinePath = %q", v.Config().TimelinePath)
	}

	eng.calls = nil
	v.SetTimelinePath("")
	want = []string{"lock false", "duration 999999"}
	if v.TimelineActive() || !slices.Equal(eng.calls, want) {
		t.Errorf("after clearing: active = %v, calls = %q, want %q", v.TimelineActive(), eng.calls, want)
	}

	eng.calls = nil
	v.SetTimelinePath(path)
	eng.calls = nil
	v.SetTimelinePath(writeTimeline(t, "[unclosed"))
	if v.TimelineActive() || !slices.Equal(eng.calls, want) {
		t.Errorf("after malformed: active = %v, calls = %q, want %q", v.TimelineActive(), eng.calls, want)
	}
	render(t, v, 13)
	if !slices.Equal(eng.calls, want) {
		t.Errorf("malformed timeline still switches presets: calls = %q", eng.calls)
	}
}

func TestTimelineBeforeStart(t *testing.T) {
	var engines []*fakeEngine
	gl := glfake.New()
	v := newVisualizer(t, gl, DefaultConfig(), &engines)
	v.SetTimelinePath(writeTimeline(t, sessionTimeline))
	if err := v.Start(gl); err != nil {
		t.Fatal(err)
	}
	defer v.Stop()
	if got := engines[0].calls; len(got) != 3 || got[2] != "load /p/A.milk smooth=true" {
		t.Errorf("activation calls = %q", got)
	}
}

func TestStopReleasesSession(t *testing.T) {
	gl := glfake.NewHeadless()
	cfg := DefaultConfig()
	cfg.TimelinePath = writeTimeline(t, sessionTimeline)
	var engines []*fakeEngine
	v := newVisualizer(t, gl, cfg, &engines)

	for session := 0; session < 2; session++ {
		if err := v.Start(gl); err != nil {
			t.Fatalf("session %d: Start() error = %v", session, err)
		}
		render(t, v, 0)
		render(t, v, 1)
		v.Stop()
		v.Stop()

		if fbos, textures, rbs, buffers := gl.Live(); fbos+textures+rbs+buffers != 0 {
			t.Errorf("session %d leaked %d fbos, %d textures, %d renderbuffers, %d buffers",
				session, fbos, textures, rbs, buffers)
		}
		if !engines[session].destroyed {
			t.Errorf("session %d engine not destroyed", session)
		}
		if v.TimelineActive() {
			t.Errorf("session %d: timeline still active after Stop", session)
		}
		if err := v.Render(audioAt(2), NewVideoFrame(testVideo)); !errors.Is(err, ErrNotStarted) {
			t.Errorf("Render() after Stop error = %v", err)
		}
	}
	if engines[1].frameTime != 1 {
		t.Errorf("second session clock = %g, want restart from 0", engines[1].frameTime)
	}
}

func TestRenderDrainsGLErrors(t *testing.T) {
	gl := glfake.New()
	v, _ := startVisualizer(t, gl, DefaultConfig())

	gl.PendingErrors = []glapi.Enum{glapi.InvalidOperation, glapi.OutOfMemory}
	render(t, v, 0)
	if got := v.Stats().GLErrors; got != 2 {
		t.Errorf("GLErrors = %d, want 2", got)
	}
	if len(gl.PendingErrors) != 0 {
		t.Errorf("%d errors left in the queue", len(gl.PendingErrors))
	}

	// A context that never clears its error flag does not hang the frame.
	stuck := make([]glapi.Enum, 100)
	for i := range stuck {
		stuck[i] = glapi.InvalidFramebufferOperation
	}
	gl.PendingErrors = stuck
	render(t, v, 1)
	if got := v.Stats().GLErrors; got != 2+maxErrorDrain {
		t.Errorf("GLErrors = %d, want %d", got, 2+maxErrorDrain)
	}
}

func TestHeadlessVerdictPerSession(t *testing.T) {
	var engines []*fakeEngine
	headless := glfake.NewHeadless()
	v := newVisualizer(t, headless, DefaultConfig(), &engines)

	if err := v.Start(headless); err != nil {
		t.Fatalf("Start(headless) error = %v", err)
	}
	if !v.Stats().Headless {
		t.Error("first session not detected as headless")
	}
	v.Stop()

	windowed := glfake.New()
	if err := v.Start(windowed); err != nil {
		t.Fatalf("Start(windowed) error = %v", err)
	}
	defer v.Stop()
	if v.Stats().Headless {
		t.Error("second session reused the headless verdict of the first")
	}
}
