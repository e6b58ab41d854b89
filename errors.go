package glvis

import (
	"errors"

	"github.com/gogpu/glvis/internal/offscreen"
)

// Sentinel errors returned by Visualizer. Wrapped errors carry detail; test
// them with errors.Is.
var (
	// ErrOffscreenRequired is returned when the context has no usable default
	// framebuffer and no offscreen target could be created.
	ErrOffscreenRequired = errors.New("glvis: headless context requires an offscreen target")

	// ErrNotConfigured is returned by Start before Setup succeeded.
	ErrNotConfigured = errors.New("glvis: stream formats not configured")

	// ErrNotStarted is returned by Render outside a render session.
	ErrNotStarted = errors.New("glvis: render session not started")

	// ErrAlreadyStarted is returned by Start and Setup during a session.
	ErrAlreadyStarted = errors.New("glvis: render session already started")

	// ErrUnsupportedFormat is returned by Setup for video or audio formats
	// glvis cannot produce or consume.
	ErrUnsupportedFormat = errors.New("glvis: unsupported format")

	// ErrFrameTooSmall is returned by Render when the video frame cannot hold
	// the negotiated picture.
	ErrFrameTooSmall = errors.New("glvis: video frame too small")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("glvis: invalid configuration")

	// ErrInvalidSize is returned for zero, negative or oversized dimensions.
	ErrInvalidSize = offscreen.ErrInvalidSize
)
