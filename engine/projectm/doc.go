// Package projectm drives libprojectM 4 as a glvis rendering engine.
//
// Build with -tags projectm; the libraries are located with pkg-config
// (projectM-4 and projectM-4-playlist). The engine registers itself as
// "projectm" on import:
//
//	import _ "github.com/gogpu/glvis/engine/projectm"
//
// projectM renders with the GL context that is current on the calling
// thread, so New and every method must run on the render thread.
package projectm
