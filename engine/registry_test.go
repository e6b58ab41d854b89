package engine

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/glvis/glapi"
)

type nopEngine struct{ p Params }

func (nopEngine) LoadPreset(string, bool)           {}
func (nopEngine) SetPresetLocked(bool)              {}
func (nopEngine) SetPresetDuration(float64)         {}
func (nopEngine) SetFrameTime(float64)              {}
func (nopEngine) AddPCM([]int16, ChannelLayout)     {}
func (nopEngine) Render()                           {}
func (nopEngine) RenderToTarget(uint32)             {}
func (e nopEngine) WindowSize() (width, height int) { return e.p.Width, e.p.Height }
func (nopEngine) Destroy()                          {}

func nopFactory(_ glapi.Funcs, p Params) (Engine, error) { return nopEngine{p: p}, nil }

func TestRegistry(t *testing.T) {
	const name = "test-nop"
	Register(name, nopFactory)
	defer Unregister(name)

	if !IsRegistered(name) {
		t.Fatalf("IsRegistered(%q) = false", name)
	}
	if !slices.Contains(Available(), name) {
		t.Errorf("Available() = %v, missing %q", Available(), name)
	}

	factory, err := Lookup(name)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	e, err := factory(nil, Params{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	if w, h := e.WindowSize(); w != 64 || h != 32 {
		t.Errorf("WindowSize() = %dx%d, want 64x32", w, h)
	}

	Unregister(name)
	if IsRegistered(name) {
		t.Error("still registered after Unregister")
	}
	if _, err := Lookup(name); !errors.Is(err, ErrUnknownEngine) {
		t.Errorf("Lookup(unregistered) error = %v, want ErrUnknownEngine", err)
	}
}

func TestDefaultNamePriority(t *testing.T) {
	// Run against a private registry so engines linked into the test
	// binary do not interfere.
	registryMu.Lock()
	saved := factories
	factories = make(map[string]Factory)
	registryMu.Unlock()
	defer func() {
		registryMu.Lock()
		factories = saved
		registryMu.Unlock()
	}()

	if got := DefaultName(); got != "" {
		t.Errorf("DefaultName() on empty registry = %q", got)
	}
	Register("zzz", nopFactory)
	if got := DefaultName(); got != "zzz" {
		t.Errorf("DefaultName() = %q, want zzz", got)
	}
	Register(NameScope, nopFactory)
	if got := DefaultName(); got != NameScope {
		t.Errorf("DefaultName() = %q, want %q", got, NameScope)
	}
	Register(NameProjectM, nopFactory)
	if got := DefaultName(); got != NameProjectM {
		t.Errorf("DefaultName() = %q, want %q", got, NameProjectM)
	}
}

func TestChannelLayout(t *testing.T) {
	if Mono.Channels() != 1 || Stereo.Channels() != 2 {
		t.Errorf("Channels() = %d/%d, want 1/2", Mono.Channels(), Stereo.Channels())
	}
}
