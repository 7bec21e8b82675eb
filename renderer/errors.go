package renderer

import "errors"

var (
	ErrNoTracer        = errors.New("renderer: no tracer attached")
	ErrSceneNotDefined = errors.New("renderer: no scene defined")
	ErrNoSampleTarget  = errors.New("renderer: sample target required for still frames")
	ErrInterrupted     = errors.New("renderer: interrupted while rendering")
)
