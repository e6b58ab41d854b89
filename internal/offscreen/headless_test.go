package offscreen

import (
	"testing"

	"github.com/gogpu/glvis/glapi"
	"github.com/gogpu/glvis/internal/glfake"
)

func TestDetectorAuto(t *testing.T) {
	tests := []struct {
		name string
		gl   *glfake.GL
		want bool
	}{
		{"windowed", glfake.New(), false},
		{"surfaceless", glfake.NewHeadless(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(ModeAuto)
			if got := d.IsHeadless(tt.gl); got != tt.want {
				t.Errorf("IsHeadless() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorCachesVerdict(t *testing.T) {
	gl := glfake.NewHeadless()
	d := NewDetector(ModeAuto)

	if !d.IsHeadless(gl) {
		t.Fatal("first probe should report headless")
	}
	checks := gl.Calls["CheckFramebufferStatus"]

	// A later change in the context must not flip the cached answer.
	gl.DefaultComplete = true
	for range 3 {
		if !d.IsHeadless(gl) {
			t.Fatal("cached verdict changed")
		}
	}
	if got := gl.Calls["CheckFramebufferStatus"]; got != checks {
		t.Errorf("IsHeadless re-probed: %d checks, want %d", got, checks)
	}

	d.Reset()
	if d.IsHeadless(gl) {
		t.Error("after Reset the new probe should see a complete default framebuffer")
	}
}

func TestDetectorForcedModes(t *testing.T) {
	gl := glfake.New()
	if !NewDetector(ModeForceHeadless).IsHeadless(gl) {
		t.Error("ModeForceHeadless: IsHeadless() = false")
	}

	headless := glfake.NewHeadless()
	if NewDetector(ModeForceWindowed).IsHeadless(headless) {
		t.Error("ModeForceWindowed: IsHeadless() = true")
	}
	if n := gl.Calls["CheckFramebufferStatus"] + headless.Calls["CheckFramebufferStatus"]; n != 0 {
		t.Errorf("forced modes probed the context %d time(s)", n)
	}
}

func TestDetectorWithoutFramebufferObjects(t *testing.T) {
	gl := glfake.NewHeadless()
	gl.Missing[glapi.CapFramebufferObject] = true

	if NewDetector(ModeAuto).IsHeadless(gl) {
		t.Error("IsHeadless() = true without framebuffer object support")
	}
	if gl.Calls["CheckFramebufferStatus"] != 0 {
		t.Error("status queried on a context without framebuffer objects")
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeAuto, "auto"},
		{ModeForceHeadless, "on"},
		{ModeForceWindowed, "off"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
