package renderer

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"time"

	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/log"
	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer"
)

type Renderer interface {
	// Render frames until done or interrupted.
	Render() error

	// Shutdown renderer and the attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

// stillRenderer accumulates frames until the sample target is met,
// then tonemaps and writes a PNG.
type stillRenderer struct {
	logger  log.Logger
	tracer  tracer.Tracer
	sc      *scene.Scene
	options Options
	outPath string

	stats FrameStats
}

// NewStill returns a renderer producing a single converged PNG frame.
func NewStill(sc *scene.Scene, tr tracer.Tracer, opts Options, outPath string) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if tr == nil {
		return nil, ErrNoTracer
	}
	if opts.Samples == 0 {
		return nil, ErrNoSampleTarget
	}
	if err := tr.Setup(opts.FrameW, opts.FrameH, sc); err != nil {
		return nil, err
	}
	return &stillRenderer{
		logger:  log.New("renderer"),
		tracer:  tr,
		sc:      sc,
		options: opts,
		outPath: outPath,
	}, nil
}

func (r *stillRenderer) Render() error {
	start := time.Now()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	for r.stats.Samples < r.options.Samples {
		select {
		case <-sigChan:
			return ErrInterrupted
		default:
		}

		stats, err := r.tracer.RenderFrame(tracer.FrameRequest{})
		if err != nil {
			return err
		}
		r.stats.Frames = stats.FrameNumber
		r.stats.Samples = stats.Samples
		r.stats.TraceTime += stats.TraceTime
		if stats.Reset {
			r.stats.Resets++
		}
	}

	accum := make([]float32, int(r.options.FrameW)*int(r.options.FrameH)*4)
	if err := r.tracer.ReadFrame(accum); err != nil {
		return err
	}
	img := Tonemap(accum, int(r.options.FrameW), int(r.options.FrameH), r.sc.Camera.Exposure)

	f, err := os.Create(r.outPath)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	defer f.Close()
	if err = png.Encode(f, img); err != nil {
		return fmt.Errorf("renderer: encode %s: %w", r.outPath, err)
	}

	r.stats.RenderTime = time.Since(start)
	r.logger.Infof("wrote %s: %d samples/pixel in %d frames", r.outPath, r.stats.Samples, r.stats.Frames)
	return nil
}

func (r *stillRenderer) Close() {
	r.tracer.Close()
}

func (r *stillRenderer) Stats() FrameStats {
	return r.stats
}

// Tonemap divides the accumulation buffer by its weight channel,
// applies exposure-scaled Reinhard and encodes sRGB-ish gamma into an
// 8-bit image.
func Tonemap(accum []float32, w, h int, exposure float32) *image.RGBA {
	if exposure <= 0 {
		exposure = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		weight := accum[i*4+3]
		var r, g, b float32
		if weight > 0 {
			r = accum[i*4] / weight
			g = accum[i*4+1] / weight
			b = accum[i*4+2] / weight
		}
		img.Pix[i*4] = encodeChannel(r, exposure)
		img.Pix[i*4+1] = encodeChannel(g, exposure)
		img.Pix[i*4+2] = encodeChannel(b, exposure)
		img.Pix[i*4+3] = 255
	}
	return img
}

func encodeChannel(v, exposure float32) uint8 {
	v *= exposure
	if math32.IsNaN(v) || v < 0 {
		v = 0
	}
	v = v / (1 + v)
	v = math32.Pow(v, 1/2.2)
	if v > 1 {
		v = 1
	}
	return uint8(v * 255)
}
