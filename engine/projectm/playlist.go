package projectm

import "github.com/gogpu/glvis/engine"

// playlistSource reports the preset directory projectM's own playlist is
// filled from, and whether it plays shuffled. ok is false when the engine
// should run without a playlist.
func playlistSource(p engine.Params) (dir string, shuffle, ok bool) {
	if !p.EnablePlaylist || p.PresetDir == "" {
		return "", false, false
	}
	return p.PresetDir, p.ShufflePresets, true
}
