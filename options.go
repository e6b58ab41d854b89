package glvis

// Option configures a Visualizer during creation.
//
// Example:
//
//	// Always read frames back synchronously (no pixel-pack buffers)
//	v, err := glvis.New(cfg, factory, glvis.WithSynchronousReadback())
type Option func(*options)

// options holds optional configuration for Visualizer creation.
type options struct {
	syncReadback bool
	noTarget     bool
}

// WithSynchronousReadback disables the pixel-pack buffer ring. Every frame
// is read with a blocking glReadPixels and is returned without latency.
func WithSynchronousReadback() Option {
	return func(o *options) {
		o.syncReadback = true
	}
}

// WithoutOffscreenTarget makes the engine render into whatever framebuffer
// the host has bound. Start fails with ErrOffscreenRequired on a headless
// context.
func WithoutOffscreenTarget() Option {
	return func(o *options) {
		o.noTarget = true
	}
}
