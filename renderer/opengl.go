package renderer

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer"
)

const (
	// Coefficients for converting delta cursor movements to yaw/pitch
	// camera angles.
	mouseSensitivity float32 = 0.005

	// Camera movement per key event.
	cameraMoveSpeed float32 = 0.1

	// Exposure change per key event.
	exposureStep float32 = 1.1
)

func init() {
	// glfw event handling must run on the main thread.
	runtime.LockOSThread()
}

// interactiveGLRenderer drives the tracer from a glfw event loop and
// blits each accumulated frame to the window. Camera movement resets
// accumulation via the tracer's own matrix comparison; right clicks
// pick the focal distance under the cursor.
type interactiveGLRenderer struct {
	logger  log.Logger
	tracer  tracer.Tracer
	sc      *scene.Scene
	options Options

	window *glfw.Window
	texFbo uint32

	accum []float32
	pix   []uint8

	lastCursorX float32
	lastCursorY float32
	rotating    bool
	pickX       uint32
	pickY       uint32

	stats FrameStats
}

// NewInteractive returns the glfw/OpenGL viewer.
func NewInteractive(sc *scene.Scene, tr tracer.Tracer, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if tr == nil {
		return nil, ErrNoTracer
	}
	if err := tr.Setup(opts.FrameW, opts.FrameH, sc); err != nil {
		return nil, err
	}

	r := &interactiveGLRenderer{
		logger:  log.New("renderer"),
		tracer:  tr,
		sc:      sc,
		options: opts,
		accum:   make([]float32, int(opts.FrameW)*int(opts.FrameH)*4),
		pix:     make([]uint8, int(opts.FrameW)*int(opts.FrameH)*4),
	}
	if err := r.initGL(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *interactiveGLRenderer) initGL() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("renderer: init glfw: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var err error
	r.window, err = glfw.CreateWindow(int(r.options.FrameW), int(r.options.FrameH), "vk-rays", nil, nil)
	if err != nil {
		return fmt.Errorf("renderer: create window: %w", err)
	}
	r.window.MakeContextCurrent()

	if err = gl.Init(); err != nil {
		return fmt.Errorf("renderer: init opengl: %w", err)
	}

	// Frame texture attached to a read FBO; each frame is blitted to
	// the default framebuffer.
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(r.options.FrameW), int32(r.options.FrameH),
		0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	gl.GenFramebuffers(1, &r.texFbo)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)

	r.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	r.window.SetKeyCallback(r.onKeyEvent)
	r.window.SetMouseButtonCallback(r.onMouseEvent)
	r.window.SetCursorPosCallback(r.onCursorPosEvent)
	return nil
}

func (r *interactiveGLRenderer) Render() error {
	start := time.Now()
	w, h := int32(r.options.FrameW), int32(r.options.FrameH)

	for !r.window.ShouldClose() {
		glfw.PollEvents()

		// Stop tracing once the sample target is met and the
		// camera holds still; events keep flowing.
		if r.options.Samples != 0 && r.stats.Samples >= r.options.Samples {
			glfw.WaitEventsTimeout(0.05)
			continue
		}

		req := tracer.FrameRequest{PickX: r.pickX, PickY: r.pickY}
		r.pickX, r.pickY = 0, 0

		stats, err := r.tracer.RenderFrame(req)
		if err != nil {
			return err
		}
		r.stats.Frames = stats.FrameNumber
		r.stats.Samples = stats.Samples
		r.stats.TraceTime += stats.TraceTime
		if stats.Reset {
			r.stats.Resets++
		}

		if err = r.tracer.ReadFrame(r.accum); err != nil {
			return err
		}
		img := Tonemap(r.accum, int(w), int(h), r.sc.Camera.Exposure)
		copy(r.pix, img.Pix)

		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(r.pix))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, r.texFbo)
		// flip vertically: accumulation row 0 is the top of frame
		gl.BlitFramebuffer(0, 0, w, h, 0, h, w, 0, gl.COLOR_BUFFER_BIT, gl.NEAREST)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		r.window.SwapBuffers()
	}

	r.stats.RenderTime = time.Since(start)
	return nil
}

func (r *interactiveGLRenderer) Close() {
	if r.window != nil {
		r.window.SetShouldClose(true)
	}
	r.tracer.Close()
	glfw.Terminate()
}

func (r *interactiveGLRenderer) Stats() FrameStats {
	return r.stats
}

func (r *interactiveGLRenderer) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}

	speed := cameraMoveSpeed
	if mods&glfw.ModShift == glfw.ModShift {
		speed *= 2
	}

	cam := r.sc.Camera
	switch key {
	case glfw.KeyEscape:
		r.window.SetShouldClose(true)
	case glfw.KeyW, glfw.KeyUp:
		cam.Move(scene.Forward, speed)
	case glfw.KeyS, glfw.KeyDown:
		cam.Move(scene.Backward, speed)
	case glfw.KeyA, glfw.KeyLeft:
		cam.Move(scene.Left, speed)
	case glfw.KeyD, glfw.KeyRight:
		cam.Move(scene.Right, speed)
	case glfw.KeyE:
		cam.Move(scene.Up, speed)
	case glfw.KeyQ:
		cam.Move(scene.Down, speed)
	case glfw.KeyRightBracket:
		cam.Exposure *= exposureStep
	case glfw.KeyLeftBracket:
		cam.Exposure /= exposureStep
	}
}

func (r *interactiveGLRenderer) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	switch button {
	case glfw.MouseButtonLeft:
		r.rotating = action == glfw.Press
		if r.rotating {
			x, y := w.GetCursorPos()
			r.lastCursorX, r.lastCursorY = float32(x), float32(y)
		}
	case glfw.MouseButtonRight:
		if action == glfw.Press {
			x, y := w.GetCursorPos()
			// (0, 0) means no pick, so the very corner pixel
			// cannot be picked.
			r.pickX, r.pickY = uint32(x), uint32(y)
		}
	}
}

func (r *interactiveGLRenderer) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	if !r.rotating {
		return
	}
	dx := r.lastCursorX - float32(xPos)
	dy := r.lastCursorY - float32(yPos)
	r.lastCursorX, r.lastCursorY = float32(xPos), float32(yPos)
	r.sc.Camera.Rotate(dx*mouseSensitivity, dy*mouseSensitivity)
}
