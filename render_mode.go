package glvis

// RenderMode reports where the engine draws each frame.
type RenderMode int

const (
	// RenderModeOffscreen renders into an offscreen framebuffer owned by the
	// Visualizer and reads pixels back from it. This is the only mode
	// available on headless contexts.
	RenderModeOffscreen RenderMode = iota

	// RenderModeDefault renders into the framebuffer bound by the host
	// (normally the window's default framebuffer) and reads back from 0.
	// Used when offscreen targets are disabled or could not be created.
	RenderModeDefault
)

// String returns the render mode name.
func (m RenderMode) String() string {
	switch m {
	case RenderModeOffscreen:
		return "Offscreen"
	case RenderModeDefault:
		return "Default"
	default:
		return "Unknown"
	}
}

// Stats holds counters for the current render session.
type Stats struct {
	Frames     uint64 // Frames rendered
	RingCopies uint64 // Frames filled from the pixel-pack buffer ring
	SyncReads  uint64 // Frames filled by a blocking read
	GLErrors   uint64 // Error codes reported by glGetError after a frame
	Mode       RenderMode
	Headless   bool    // Verdict of headless detection
	Elapsed    float64 // Session time of the last frame in seconds
	Drift      float64 // Video clock minus audio clock at the last frame
}
