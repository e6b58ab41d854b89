package scope

import (
	"io/fs"
	"math/rand"
	"path/filepath"
	"sort"
	"strings"
)

// playlist is the engine's own preset rotation, used while the preset is
// not locked by a timeline.
type playlist struct {
	presets []string
	shuffle bool
	pos     int
	rng     *rand.Rand
}

// scanPresets lists the *.milk files under dir, sorted.
func scanPresets(dir string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".milk") {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

func newPlaylist(presets []string, shuffle bool, seed int64) *playlist {
	return &playlist{
		presets: presets,
		shuffle: shuffle,
		pos:     -1,
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // preset order, not security
	}
}

// next returns the next preset, avoiding an immediate repeat when shuffling.
func (p *playlist) next() (string, bool) {
	n := len(p.presets)
	if n == 0 {
		return "", false
	}
	switch {
	case p.shuffle && p.pos < 0:
		p.pos = p.rng.Intn(n)
	case p.shuffle && n > 1:
		i := p.rng.Intn(n - 1)
		if i >= p.pos {
			i++
		}
		p.pos = i
	default:
		p.pos = (p.pos + 1) % n
	}
	return p.presets[p.pos], true
}
