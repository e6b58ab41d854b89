package timeline

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by Parse for an unrecognized Format.
var ErrUnknownFormat = errors.New("timeline: unknown format")

// Format identifies a timeline file syntax.
type Format int

const (
	// FormatKeyFile is the group/key syntax: one [group] per segment with
	// start, duration, preset and optional complexity keys.
	FormatKeyFile Format = iota
	// FormatYAML is a document with a top-level "segments" list of maps
	// carrying the same keys plus an optional name.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatKeyFile:
		return "keyfile"
	case FormatYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks the format from the file extension. Anything that
// is not .yaml or .yml is read as a key file.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatKeyFile
	}
}

// Load reads and parses the timeline at path.
//
// A nil schedule with a nil error means "no timeline": the path is empty,
// does not exist, cannot be read, is empty, or none of its segments are
// valid. Invalid segments are logged and skipped. An error is returned only
// when the document itself is malformed.
func Load(path string) (*Schedule, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slogger().Info("timeline: file not found, using engine preset rotation", "path", path)
		} else {
			slogger().Warn("timeline: cannot read file", "path", path, "err", err)
		}
		return nil, nil
	}
	s, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("timeline: %s: %w", path, err)
	}
	if s == nil {
		slogger().Warn("timeline: no valid segments", "path", path)
		return nil, nil
	}
	slogger().Info("timeline: loaded", "path", path, "segments", s.Len())
	return s, nil
}

// Parse decodes a timeline document. It returns a nil schedule when the
// document holds no valid segment.
func Parse(data []byte, format Format) (*Schedule, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raws []rawSegment
	var err error
	switch format {
	case FormatKeyFile:
		raws, err = parseKeyFile(data)
	case FormatYAML:
		raws, err = parseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		e, err := raw.entry()
		if err != nil {
			slogger().Warn("timeline: skipping segment", "segment", raw.Name, "err", err)
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return NewSchedule(entries)
}

// rawSegment holds a segment's fields as text so that every format reports
// unparseable numbers the same way.
type rawSegment struct {
	Name       string `yaml:"name"`
	Start      string `yaml:"start"`
	Duration   string `yaml:"duration"`
	Preset     string `yaml:"preset"`
	Complexity string `yaml:"complexity"`
}

func (r rawSegment) entry() (Entry, error) {
	start, err := strconv.ParseFloat(strings.TrimSpace(r.Start), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: missing or invalid start %q", ErrInvalidSegment, r.Start)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(r.Duration), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: missing or invalid duration %q", ErrInvalidSegment, r.Duration)
	}
	e := Entry{
		Name:       r.Name,
		Start:      start,
		Duration:   duration,
		Preset:     strings.TrimSpace(r.Preset),
		Complexity: strings.TrimSpace(r.Complexity),
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func parseKeyFile(data []byte) ([]rawSegment, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return nil, fmt.Errorf("key file: %w", err)
	}

	var raws []rawSegment
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		raws = append(raws, rawSegment{
			Name:       sec.Name(),
			Start:      sec.Key("start").String(),
			Duration:   sec.Key("duration").String(),
			Preset:     sec.Key("preset").String(),
			Complexity: sec.Key("complexity").String(),
		})
	}
	return raws, nil
}

func parseYAML(data []byte) ([]rawSegment, error) {
	var doc struct {
		Segments []yaml.Node `yaml:"segments"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raws := make([]rawSegment, 0, len(doc.Segments))
	for i := range doc.Segments {
		name := fmt.Sprintf("segment%d", i)
		var raw rawSegment
		if err := doc.Segments[i].Decode(&raw); err != nil {
			slogger().Warn("timeline: skipping segment", "segment", name, "line", doc.Segments[i].Line, "err", err)
			continue
		}
		if raw.Name == "" {
			raw.Name = name
		}
		raws = append(raws, raw)
	}
	return raws, nil
}
