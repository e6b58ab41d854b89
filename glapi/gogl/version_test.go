//go:build !nogl

package gogl

import (
	"testing"

	"github.com/gogpu/glvis/glapi"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in           string
		es           bool
		major, minor int
		wantErr      bool
	}{
		{"4.6.0 NVIDIA 535.54.03", false, 4, 6, false},
		{"3.3 (Core Profile) Mesa 23.1.4", false, 3, 3, false},
		{"OpenGL ES 3.2 Mesa 23.1.4", true, 3, 2, false},
		{"OpenGL ES 2.0", true, 2, 0, false},
		{"", false, 0, 0, true},
		{"garbage", false, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			es, major, minor, err := parseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVersion(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if es != tt.es || major != tt.major || minor != tt.minor {
				t.Errorf("parseVersion(%q) = (%v, %d, %d), want (%v, %d, %d)",
					tt.in, es, major, minor, tt.es, tt.major, tt.minor)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	legacy := &Funcs{major: 2, minor: 1}
	if !legacy.Supports(glapi.CapPixelBufferObject) {
		t.Error("GL 2.1 should support pixel buffer objects")
	}
	if legacy.Supports(glapi.CapFramebufferObject) {
		t.Error("GL 2.1 core should not report framebuffer objects")
	}
	es2 := &Funcs{es: true, major: 2}
	if !es2.Supports(glapi.CapFramebufferObject) {
		t.Error("GLES 2.0 should support framebuffer objects")
	}
	if es2.Supports(glapi.CapMapBufferRange) {
		t.Error("GLES 2.0 should not support map buffer range")
	}
}
