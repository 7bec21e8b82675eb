package renderer

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Target accumulated samples per pixel. Zero means keep going
	// until interrupted (interactive mode only).
	Samples uint32

	// Max path length per sample.
	Bounces uint32
}
