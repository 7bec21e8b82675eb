package tracer

import (
	"time"

	"github.com/HugoPeters1024/vk-rays/scene"
)

// FrameRequest describes one progressive frame.
type FrameRequest struct {
	// PickX, PickY select the pixel whose hit distance should be
	// written back as the camera focal distance. (0, 0) disables
	// the pick for this frame.
	PickX uint32
	PickY uint32
}

// Stats describes what a rendered frame contributed.
type Stats struct {
	// FrameNumber counts dispatches since Setup.
	FrameNumber uint32

	// Samples is the per-pixel sample weight accumulated so far,
	// including this frame.
	Samples uint32

	// Reset reports that this frame restarted accumulation.
	Reset bool

	// TraceTime is the wall time spent in the trace dispatch.
	TraceTime time.Duration
}

// Tracer renders progressive frames of a scene. Implementations own
// every device resource the scene needs and keep them synchronized
// with scene edits between frames.
type Tracer interface {
	// Id identifies the tracer and its device for log output.
	Id() string

	// Setup binds the tracer to a scene and an output resolution,
	// building all device resources.
	Setup(frameW, frameH uint32, sc *scene.Scene) error

	// RenderFrame synchronizes pending scene changes and traces one
	// frame, accumulating into the device frame buffer.
	RenderFrame(req FrameRequest) (*Stats, error)

	// ReadFrame copies the accumulation buffer to the host as RGBA
	// float32, alpha holding the sample weight. Len must be
	// frameW*frameH*4.
	ReadFrame(dst []float32) error

	// Close waits for in-flight work and releases all resources.
	Close()
}
