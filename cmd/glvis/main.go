// Command glvis renders a music visualization of a WAV file.
//
// Frames are written as raw video, ready for ffmpeg:
//
//	glvis -audio song.wav -out - | ffmpeg -f rawvideo -pix_fmt rgba -s 1280x720 -r 30 -i - -i song.wav out.mp4
//
// Settings come from flags and, optionally, a YAML file given with -config;
// flags set on the command line win over the file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/gogpu/glvis"
	"github.com/gogpu/glvis/engine"
	_ "github.com/gogpu/glvis/engine/projectm"
	_ "github.com/gogpu/glvis/engine/scope"
	"github.com/gogpu/glvis/glapi/gogl"
)

// GL calls must stay on the main thread.
func init() { runtime.LockOSThread() }

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// configFlags binds every Config field to a flag on fs.
func configFlags(fs *flag.FlagSet, c *glvis.Config) {
	fs.StringVar(&c.PresetDir, "preset-dir", c.PresetDir, "base `directory` for presets")
	fs.StringVar(&c.TextureDir, "texture-dir", c.TextureDir, "`directory` searched for preset textures")
	fs.StringVar(&c.TimelinePath, "timeline", c.TimelinePath, "timeline `file` (key-file or .yaml)")
	fs.Float64Var(&c.BeatSensitivity, "beat-sensitivity", c.BeatSensitivity, "beat detection sensitivity")
	fs.Float64Var(&c.HardCutDuration, "hard-cut-duration", c.HardCutDuration, "minimum `seconds` between hard cuts")
	fs.BoolVar(&c.HardCutEnabled, "hard-cut", c.HardCutEnabled, "switch presets on loud beats")
	fs.Float64Var(&c.HardCutSensitivity, "hard-cut-sensitivity", c.HardCutSensitivity, "beat strength needed for a hard cut")
	fs.Float64Var(&c.SoftCutDuration, "soft-cut-duration", c.SoftCutDuration, "cross-fade `seconds`")
	fs.Float64Var(&c.PresetDuration, "preset-duration", c.PresetDuration, "`seconds` per preset without a timeline (0 holds)")
	fs.Var(&c.MeshSize, "mesh-size", "warp mesh resolution `W,H`")
	fs.BoolVar(&c.AspectCorrection, "aspect-correction", c.AspectCorrection, "correct preset shapes for the aspect ratio")
	fs.Float64Var(&c.EasterEgg, "easter-egg", c.EasterEgg, "preset duration randomization")
	fs.BoolVar(&c.PresetLocked, "preset-locked", c.PresetLocked, "keep the current preset without a timeline")
	fs.BoolVar(&c.EnablePlaylist, "playlist", c.EnablePlaylist, "rotate through the preset directory")
	fs.BoolVar(&c.ShufflePresets, "shuffle", c.ShufflePresets, "rotate in random order")
	fs.Var(&c.Headless, "headless", "offscreen rendering: `auto`, on or off (default from $"+glvis.HeadlessEnv+")")
	fs.BoolVar(&c.PreloadFirstPreset, "preload-first-preset", c.PreloadFirstPreset, "load the first timeline preset before it starts")
	fs.BoolVar(&c.VerifyPresetFiles, "verify-presets", c.VerifyPresetFiles, "skip timeline presets that do not exist")
}

type options struct {
	config  string
	audio   string
	out     string
	width   int
	height  int
	fps     int
	format  string
	engine  string
	flip    bool
	sync    bool
	verbose bool
	snap    snapshotter
}

func main() {
	cfg := glvis.DefaultConfig()
	var o options
	configFlags(flag.CommandLine, &cfg)
	flag.StringVar(&o.config, "config", "", "YAML configuration `file`")
	flag.StringVar(&o.audio, "audio", "", "input WAV `file` (required)")
	flag.StringVar(&o.out, "out", "", "raw video output `file`, - for stdout")
	flag.IntVar(&o.width, "width", 1280, "frame width")
	flag.IntVar(&o.height, "height", 720, "frame height")
	flag.IntVar(&o.fps, "fps", 30, "frames per second")
	flag.StringVar(&o.format, "format", "rgba", "output pixel format: rgba, abgr or bgra")
	flag.StringVar(&o.engine, "engine", engine.DefaultName(), "rendering engine: "+strings.Join(engine.Available(), ", "))
	flag.BoolVar(&o.flip, "flip", false, "flip frames vertically")
	flag.BoolVar(&o.sync, "sync-readback", false, "read every frame synchronously")
	flag.StringVar(&o.snap.dir, "snapshot-dir", "", "write PNG thumbnails to `directory`")
	flag.IntVar(&o.snap.every, "snapshot-every", 30, "thumbnail interval in frames")
	flag.IntVar(&o.snap.width, "snapshot-width", 320, "thumbnail width")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	glvis.SetLogger(logger)

	if err := run(cfg, o); err != nil {
		logger.Error("glvis: failed", "err", err)
		os.Exit(1)
	}
}

// resolveConfig layers the config file, the environment and the flags set on
// the command line.
func resolveConfig(flagCfg glvis.Config, path string) (glvis.Config, error) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := flagCfg
	if path != "" {
		fileCfg, err := glvis.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = fileCfg
		fs := flag.NewFlagSet("overrides", flag.ContinueOnError)
		configFlags(fs, &cfg)
		for name := range set {
			if f := fs.Lookup(name); f != nil {
				if err := fs.Set(name, flag.Lookup(name).Value.String()); err != nil {
					return cfg, err
				}
			}
		}
	}
	if !set["headless"] && cfg.Headless == glvis.HeadlessAuto {
		if m, ok := glvis.HeadlessModeFromEnv(); ok {
			cfg.Headless = m
		}
	}
	return cfg, cfg.Validate()
}

func run(flagCfg glvis.Config, o options) error {
	if o.audio == "" {
		return errors.New("-audio is required")
	}
	if o.out == "" && !o.snap.enabled() {
		return errors.New("nothing to do: set -out or -snapshot-dir")
	}
	cfg, err := resolveConfig(flagCfg, o.config)
	if err != nil {
		return err
	}
	format, err := glvis.ParseVideoFormat(o.format)
	if err != nil {
		return err
	}
	factory, err := engine.Lookup(o.engine)
	if err != nil {
		return err
	}

	track, err := loadWAV(o.audio)
	if err != nil {
		return err
	}

	video := glvis.VideoInfo{Width: o.width, Height: o.height, Format: format, FPSNum: o.fps, FPSDen: 1}
	audio := glvis.AudioInfo{Rate: track.rate, Channels: track.channels}
	var vopts []glvis.Option
	if o.sync {
		vopts = append(vopts, glvis.WithSynchronousReadback())
	}
	v, err := glvis.New(cfg, factory, vopts...)
	if err != nil {
		return err
	}
	if err := v.Setup(video, audio); err != nil {
		return err
	}

	win, err := newContext(o.width, o.height)
	if err != nil {
		return err
	}
	defer win.Close()
	gl, err := gogl.New()
	if err != nil {
		return err
	}
	logger.Info("glvis: context ready", "version", gl.Version(), "engine", o.engine)

	if err := v.Start(gl); err != nil {
		return err
	}
	defer v.Stop()

	var out *rawWriter
	if o.out != "" {
		if out, err = newRawWriter(o.out, o.flip); err != nil {
			return err
		}
		defer out.Close()
	}
	if o.snap.enabled() {
		if err := os.MkdirAll(o.snap.dir, 0o755); err != nil {
			return err
		}
		o.snap.format = format
		o.snap.flip = o.flip
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	total := track.frames(video.FPSNum, video.FPSDen)
	frame := glvis.NewVideoFrame(video)
	for n := 0; n < total; n++ {
		if ctx.Err() != nil {
			logger.Warn("glvis: interrupted", "frame", n, "of", total)
			break
		}
		buf := track.buffer(n, video.FPSNum, video.FPSDen)
		frame.PTS = buf.PTS
		if err := v.Render(buf, frame); err != nil {
			return fmt.Errorf("frame %d: %w", n, err)
		}
		if out != nil {
			if err := out.write(frame); err != nil {
				return fmt.Errorf("write frame %d: %w", n, err)
			}
		}
		if err := o.snap.maybe(n, frame); err != nil {
			return fmt.Errorf("snapshot %d: %w", n, err)
		}
	}

	st := v.Stats()
	logger.Info("glvis: done",
		"frames", st.Frames,
		"ring_copies", st.RingCopies,
		"sync_reads", st.SyncReads,
		"mode", st.Mode,
		"headless", st.Headless)
	if out != nil {
		return out.Close()
	}
	return nil
}
