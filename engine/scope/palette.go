package scope

import (
	"hash/fnv"
	"path/filepath"
	"strings"

	"github.com/gogpu/gg"
)

// palette is the set of colors a preset renders with.
type palette struct {
	background gg.RGBA
	wave       gg.RGBA
	barLow     gg.RGBA
	barHigh    gg.RGBA
}

// paletteFor derives a stable palette from a preset path. The same preset
// name always produces the same colors; hueShift rotates all hues.
func paletteFor(preset string, hueShift float64) palette {
	name := strings.TrimSuffix(filepath.Base(preset), filepath.Ext(preset))
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()

	hue := float64(sum%360) + hueShift
	spread := 40 + float64((sum>>9)%100)
	return palette{
		background: gg.HSL(hue+180, 0.35, 0.06),
		wave:       gg.HSL(hue, 0.9, 0.65),
		barLow:     gg.HSL(hue+spread, 0.8, 0.45),
		barHigh:    gg.HSL(hue-spread, 0.95, 0.6),
	}
}

func (p palette) lerp(to palette, t float64) palette {
	return palette{
		background: p.background.Lerp(to.background, t),
		wave:       p.wave.Lerp(to.wave, t),
		barLow:     p.barLow.Lerp(to.barLow, t),
		barHigh:    p.barHigh.Lerp(to.barHigh, t),
	}
}

// presetTitle is the label drawn for a preset.
func presetTitle(preset string) string {
	return strings.TrimSuffix(filepath.Base(preset), filepath.Ext(preset))
}
