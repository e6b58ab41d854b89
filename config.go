package glvis

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/glvis/engine"
	"github.com/gogpu/glvis/internal/offscreen"
	"github.com/gogpu/glvis/timeline"
)

// HeadlessEnv is the environment variable read by HeadlessModeFromEnv.
const HeadlessEnv = "GLVIS_HEADLESS"

// HeadlessMode overrides headless detection.
type HeadlessMode int

const (
	// HeadlessAuto probes the default framebuffer at session start.
	HeadlessAuto HeadlessMode = iota
	// HeadlessOn always renders into an offscreen target.
	HeadlessOn
	// HeadlessOff trusts the default framebuffer.
	HeadlessOff
)

// String returns "auto", "on" or "off".
func (m HeadlessMode) String() string {
	return m.detectorMode().String()
}

func (m HeadlessMode) detectorMode() offscreen.Mode {
	switch m {
	case HeadlessOn:
		return offscreen.ModeForceHeadless
	case HeadlessOff:
		return offscreen.ModeForceWindowed
	default:
		return offscreen.ModeAuto
	}
}

// ParseHeadlessMode accepts auto and the usual boolean spellings
// (1/true/yes/on, 0/false/no/off), case-insensitively.
func ParseHeadlessMode(s string) (HeadlessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return HeadlessAuto, nil
	case "1", "true", "yes", "on":
		return HeadlessOn, nil
	case "0", "false", "no", "off":
		return HeadlessOff, nil
	}
	return HeadlessAuto, fmt.Errorf("%w: headless mode %q", ErrInvalidConfig, s)
}

// Set implements flag.Value.
func (m *HeadlessMode) Set(s string) error {
	v, err := ParseHeadlessMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *HeadlessMode) UnmarshalText(text []byte) error { return m.Set(string(text)) }

// MarshalText implements encoding.TextMarshaler.
func (m HeadlessMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalYAML accepts the raw scalar so that YAML booleans such as "on"
// keep their spelling.
func (m *HeadlessMode) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: headless must be a scalar (line %d)", ErrInvalidConfig, node.Line)
	}
	return m.Set(node.Value)
}

// HeadlessModeFromEnv reads GLVIS_HEADLESS. An unset or unparseable value
// yields HeadlessAuto; the second result reports whether the variable was
// set to a recognized value.
func HeadlessModeFromEnv() (HeadlessMode, bool) {
	s, ok := os.LookupEnv(HeadlessEnv)
	if !ok {
		return HeadlessAuto, false
	}
	m, err := ParseHeadlessMode(s)
	if err != nil {
		Logger().Warn("glvis: ignoring environment override", "var", HeadlessEnv, "value", s)
		return HeadlessAuto, false
	}
	return m, true
}

// MeshSize is the engine's per-pixel warp mesh resolution. Its text form is
// "W,H".
type MeshSize struct {
	Width  int
	Height int
}

// String returns "W,H".
func (s MeshSize) String() string { return fmt.Sprintf("%d,%d", s.Width, s.Height) }

// Set implements flag.Value.
func (s *MeshSize) Set(v string) error {
	w, h, ok := strings.Cut(v, ",")
	if !ok {
		w, h, ok = strings.Cut(v, "x")
	}
	if !ok {
		return fmt.Errorf("%w: mesh size %q, want W,H", ErrInvalidConfig, v)
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(w))
	height, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err := errors.Join(err1, err2); err != nil {
		return fmt.Errorf("%w: mesh size %q: %w", ErrInvalidConfig, v, err)
	}
	s.Width, s.Height = width, height
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *MeshSize) UnmarshalText(text []byte) error { return s.Set(string(text)) }

// MarshalText implements encoding.TextMarshaler.
func (s MeshSize) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalYAML accepts either "W,H" or a two-element sequence.
func (s *MeshSize) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return s.Set(node.Value)
	case yaml.SequenceNode:
		var wh []int
		if err := node.Decode(&wh); err != nil {
			return err
		}
		if len(wh) != 2 {
			return fmt.Errorf("%w: mesh size needs 2 values, got %d (line %d)", ErrInvalidConfig, len(wh), node.Line)
		}
		s.Width, s.Height = wh[0], wh[1]
		return nil
	}
	return fmt.Errorf("%w: mesh size (line %d)", ErrInvalidConfig, node.Line)
}

// Config holds the visualizer settings. Engine values are passed through
// verbatim.
type Config struct {
	// PresetDir is the base for relative timeline presets and the engine's
	// own playlist.
	PresetDir  string `yaml:"preset_dir"`
	TextureDir string `yaml:"texture_dir"`
	// TimelinePath names a timeline file. Empty disables timeline mode.
	TimelinePath string `yaml:"timeline"`

	BeatSensitivity    float64 `yaml:"beat_sensitivity"`
	HardCutDuration    float64 `yaml:"hard_cut_duration"`
	HardCutEnabled     bool    `yaml:"hard_cut_enabled"`
	HardCutSensitivity float64 `yaml:"hard_cut_sensitivity"`
	SoftCutDuration    float64 `yaml:"soft_cut_duration"`
	// PresetDuration is used only without a timeline. 0 holds the preset.
	PresetDuration float64 `yaml:"preset_duration"`

	MeshSize         MeshSize `yaml:"mesh_size"`
	AspectCorrection bool     `yaml:"aspect_correction"`
	EasterEgg        float64  `yaml:"easter_egg"`
	PresetLocked     bool     `yaml:"preset_locked"`
	EnablePlaylist   bool     `yaml:"enable_playlist"`
	ShufflePresets   bool     `yaml:"shuffle_presets"`

	Headless HeadlessMode `yaml:"headless"`
	// PreloadFirstPreset loads the first segment as a hard cut on
	// activation, before its start time.
	PreloadFirstPreset bool `yaml:"preload_first_preset"`
	// VerifyPresetFiles skips segments whose resolved preset does not exist.
	VerifyPresetFiles bool `yaml:"verify_preset_files"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		BeatSensitivity:    1.0,
		HardCutDuration:    3.0,
		HardCutSensitivity: 1.0,
		SoftCutDuration:    3.0,
		MeshSize:           MeshSize{Width: 48, Height: 32},
		AspectCorrection:   true,
		EnablePlaylist:     true,
		ShufflePresets:     true,
	}
}

// LoadConfig reads a YAML configuration file over DefaultConfig. Unknown
// keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("glvis: read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"beat_sensitivity", c.BeatSensitivity},
		{"hard_cut_duration", c.HardCutDuration},
		{"hard_cut_sensitivity", c.HardCutSensitivity},
		{"soft_cut_duration", c.SoftCutDuration},
		{"preset_duration", c.PresetDuration},
	}
	for _, f := range nonNegative {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s = %g", ErrInvalidConfig, f.name, f.v)
		}
	}
	if c.MeshSize.Width <= 0 || c.MeshSize.Height <= 0 {
		return fmt.Errorf("%w: mesh_size = %s", ErrInvalidConfig, c.MeshSize)
	}
	if c.Headless < HeadlessAuto || c.Headless > HeadlessOff {
		return fmt.Errorf("%w: headless = %d", ErrInvalidConfig, int(c.Headless))
	}
	return nil
}

// engineParams builds the engine parameters for a width x height session.
func (c Config) engineParams(width, height, fps int) engine.Params {
	return engine.Params{
		Width:              width,
		Height:             height,
		FPS:                fps,
		PresetDir:          c.PresetDir,
		TextureDir:         c.TextureDir,
		BeatSensitivity:    c.BeatSensitivity,
		HardCutDuration:    c.HardCutDuration,
		HardCutEnabled:     c.HardCutEnabled,
		HardCutSensitivity: c.HardCutSensitivity,
		SoftCutDuration:    c.SoftCutDuration,
		PresetDuration:     c.PresetDuration,
		MeshWidth:          c.MeshSize.Width,
		MeshHeight:         c.MeshSize.Height,
		AspectCorrection:   c.AspectCorrection,
		EasterEgg:          c.EasterEgg,
		PresetLocked:       c.PresetLocked,
		EnablePlaylist:     c.EnablePlaylist,
		ShufflePresets:     c.ShufflePresets,
	}
}

// schedulerOptions maps the timeline-related settings.
func (c Config) schedulerOptions() []timeline.Option {
	return []timeline.Option{
		timeline.WithPresetDir(c.PresetDir),
		timeline.WithFallback(c.PresetLocked, c.PresetDuration),
		timeline.WithPreload(c.PreloadFirstPreset),
		timeline.WithFileCheck(c.VerifyPresetFiles),
	}
}
