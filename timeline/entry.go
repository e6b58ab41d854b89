package timeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
)

// ErrInvalidSegment is returned for a segment that cannot be scheduled.
var ErrInvalidSegment = errors.New("timeline: invalid segment")

// Entry is one segment of a timeline: a preset shown from Start for
// Duration seconds.
type Entry struct {
	// Name is the group name the segment was declared under. Informational.
	Name string
	// Start is the segment start in seconds of audio time.
	Start float64
	// Duration is the segment length in seconds. Always positive.
	Duration float64
	// Preset is a preset file path, absolute or relative to the preset
	// directory.
	Preset string
	// Complexity is an optional transition hint: "high" and "intense"
	// request a hard cut, anything else a smooth blend.
	Complexity string
}

// End returns the time at which the segment expires.
func (e Entry) End() float64 { return e.Start + e.Duration }

// Smooth reports whether switching to this segment should cross-fade.
func (e Entry) Smooth() bool {
	switch cases.Fold().String(strings.TrimSpace(e.Complexity)) {
	case "high", "intense":
		return false
	default:
		return true
	}
}

// Validate checks that the entry can be placed on a timeline.
func (e Entry) Validate() error {
	switch {
	case math.IsNaN(e.Start) || math.IsInf(e.Start, 0) || e.Start < 0:
		return fmt.Errorf("%w: start %v", ErrInvalidSegment, e.Start)
	case math.IsNaN(e.Duration) || math.IsInf(e.Duration, 0) || e.Duration <= 0:
		return fmt.Errorf("%w: non-positive duration %v", ErrInvalidSegment, e.Duration)
	case strings.TrimSpace(e.Preset) == "":
		return fmt.Errorf("%w: empty preset", ErrInvalidSegment)
	}
	return nil
}

func (e Entry) String() string {
	return fmt.Sprintf("%s [%g, %g) %s", e.Name, e.Start, e.End(), e.Preset)
}
