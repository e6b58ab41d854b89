package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// glContext is a GL context made current on the calling thread through a
// hidden GLFW window.
type glContext struct {
	win *glfw.Window
}

// newContext creates a hidden window of the given size with a GL 4.1 core
// context and makes it current. The caller must be locked to its OS thread.
func newContext(width, height int) (*glContext, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(width, height, "glvis", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw: create window: %w", err)
	}
	win.MakeContextCurrent()
	return &glContext{win: win}, nil
}

func (c *glContext) Close() {
	c.win.Destroy()
	glfw.Terminate()
}
