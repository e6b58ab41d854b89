package timeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// HoldDuration is the preset duration, in seconds, that keeps an engine on
// its current preset. Engines treat it as "never switch on your own".
const HoldDuration = 999999.0

// ErrUnresolvable is returned when a segment's preset cannot be turned into
// a loadable path.
var ErrUnresolvable = errors.New("timeline: preset path unresolvable")

// Switcher is the part of a rendering engine the scheduler drives.
type Switcher interface {
	// LoadPreset switches to the preset at path, blending when smooth is
	// true and cutting otherwise.
	LoadPreset(path string, smooth bool)
	// SetPresetLocked enables or disables the engine's own rotation.
	SetPresetLocked(locked bool)
	// SetPresetDuration sets the engine's own rotation interval.
	SetPresetDuration(seconds float64)
}

// State is the lifecycle position of a Scheduler.
type State int

const (
	// StateEmpty means no timeline is loaded.
	StateEmpty State = iota
	// StateLoaded means a timeline is loaded but no session is driving it.
	StateLoaded
	// StateActivated means the engine has been locked and is being driven.
	StateActivated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateActivated:
		return "activated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type options struct {
	presetDir        string
	fallbackLocked   bool
	fallbackDuration float64
	preload          bool
	verifyFiles      bool
}

// Option configures a Scheduler.
type Option func(*options)

// WithPresetDir sets the directory relative preset paths are resolved
// against. Without it, a timeline that uses relative paths is discarded on
// activation.
func WithPresetDir(dir string) Option {
	return func(o *options) { o.presetDir = dir }
}

// WithFallback sets the engine lock flag and preset duration restored when
// the timeline is cleared. A duration of 0 or less restores HoldDuration.
func WithFallback(locked bool, duration float64) Option {
	return func(o *options) {
		o.fallbackLocked = locked
		o.fallbackDuration = duration
	}
}

// WithPreload makes Activate load the first segment's preset immediately as
// a hard cut, even when the segment starts later.
func WithPreload(enabled bool) Option {
	return func(o *options) { o.preload = enabled }
}

// WithFileCheck makes preset resolution fail for files that do not exist.
func WithFileCheck(enabled bool) Option {
	return func(o *options) { o.verifyFiles = enabled }
}

// Scheduler switches an engine's presets as audio time crosses segment
// boundaries. It is not safe for concurrent use; all calls are expected on
// the render thread.
type Scheduler struct {
	opts     options
	schedule *Schedule
	state    State
	current  int
}

// NewScheduler returns an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{current: -1}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// State returns the lifecycle state.
func (s *Scheduler) State() State { return s.state }

// Active reports whether a timeline is loaded.
func (s *Scheduler) Active() bool { return s.state != StateEmpty }

// Schedule returns the loaded schedule, or nil.
func (s *Scheduler) Schedule() *Schedule { return s.schedule }

// Current returns the index of the segment last sent to the engine.
func (s *Scheduler) Current() (int, bool) {
	return s.current, s.current >= 0
}

// Load clears the scheduler and loads the timeline at path. See Load for
// which conditions leave the scheduler empty without an error.
func (s *Scheduler) Load(path string) error {
	s.clear()
	sched, err := Load(path)
	if err != nil {
		return err
	}
	s.Replace(sched)
	return nil
}

// Replace installs sched as the loaded timeline. A nil or empty schedule
// leaves the scheduler empty.
func (s *Scheduler) Replace(sched *Schedule) {
	s.clear()
	if sched.Len() == 0 {
		return
	}
	s.schedule = sched
	s.state = StateLoaded
}

// Reset clears the timeline and, when sw is not nil, hands preset rotation
// back to the engine with the fallback lock and duration.
func (s *Scheduler) Reset(sw Switcher) {
	s.clear()
	if sw == nil {
		return
	}
	sw.SetPresetLocked(s.opts.fallbackLocked)
	if s.opts.fallbackDuration > 0 {
		sw.SetPresetDuration(s.opts.fallbackDuration)
	} else {
		sw.SetPresetDuration(HoldDuration)
	}
}

func (s *Scheduler) clear() {
	s.schedule = nil
	s.state = StateEmpty
	s.current = -1
}

// Activate starts driving sw from the loaded timeline: the engine's own
// rotation is locked and the segment at time 0 is loaded. A timeline that
// names relative presets without a preset directory is discarded with a
// warning.
func (s *Scheduler) Activate(sw Switcher) {
	if s.state == StateEmpty {
		return
	}
	if s.opts.presetDir == "" {
		for _, e := range s.schedule.entries {
			if !isAbsolutePreset(e.Preset) {
				slogger().Warn("timeline: relative preset path without a preset directory, disabling timeline",
					"segment", e.Name, "preset", e.Preset)
				s.Reset(sw)
				return
			}
		}
	}

	sw.SetPresetLocked(true)
	sw.SetPresetDuration(HoldDuration)
	s.current = -1
	s.state = StateActivated
	slogger().Info("timeline: activated", "segments", s.schedule.Len())

	if s.opts.preload {
		first := s.schedule.entries[0]
		if path, err := s.resolve(first.Preset); err != nil {
			slogger().Warn("timeline: cannot preload first preset", "segment", first.Name, "err", err)
		} else {
			sw.LoadPreset(path, false)
			s.current = 0
			slogger().Debug("timeline: preloaded first preset", "preset", path)
		}
	}
	s.Update(sw, 0)
}

// Update switches sw to the segment governing elapsed seconds if it differs
// from the current one. An unresolvable preset is logged and the segment
// still becomes current, so a broken entry is reported once.
func (s *Scheduler) Update(sw Switcher, elapsed float64) {
	if s.state != StateActivated {
		return
	}
	idx, ok := s.schedule.Find(elapsed, s.current)
	if !ok || idx == s.current {
		return
	}

	e := s.schedule.entries[idx]
	s.current = idx
	path, err := s.resolve(e.Preset)
	if err != nil {
		slogger().Warn("timeline: skipping segment preset", "segment", e.Name, "index", idx, "err", err)
		return
	}
	smooth := e.Smooth()
	sw.LoadPreset(path, smooth)
	slogger().Info("timeline: preset switch",
		"segment", e.Name,
		"index", idx,
		"preset", path,
		"start", e.Start,
		"duration", e.Duration,
		"smooth", smooth,
		"elapsed", elapsed)
}

// resolve maps a segment's preset to the path handed to the engine.
func (s *Scheduler) resolve(preset string) (string, error) {
	if preset == "" {
		return "", fmt.Errorf("%w: empty preset", ErrUnresolvable)
	}
	path := preset
	if !isAbsolutePreset(preset) {
		if s.opts.presetDir == "" {
			return "", fmt.Errorf("%w: %q is relative and no preset directory is set", ErrUnresolvable, preset)
		}
		path = filepath.Join(s.opts.presetDir, preset)
	}
	if s.opts.verifyFiles && !strings.Contains(path, "://") {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnresolvable, err)
		}
	}
	return path, nil
}

// isAbsolutePreset reports whether preset needs no directory to resolve:
// an absolute file path or a URI such as idle:// or file://.
func isAbsolutePreset(preset string) bool {
	return filepath.IsAbs(preset) || strings.Contains(preset, "://")
}
