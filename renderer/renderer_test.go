package renderer

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestTonemap(t *testing.T) {
	// 2x1 frame: one mid-grey pixel at 4 samples, one never sampled
	accum := []float32{
		2, 2, 2, 4,
		0.3, 0.3, 0.3, 0,
	}

	img := Tonemap(accum, 2, 1, 1)

	// 0.5 through Reinhard and gamma: (0.5/1.5)^(1/2.2) * 255
	want := uint8(math32.Pow(1.0/3.0, 1/2.2) * 255)
	if img.Pix[0] != want || img.Pix[1] != want || img.Pix[2] != want {
		t.Fatalf("expected grey value %d; got (%d, %d, %d)", want, img.Pix[0], img.Pix[1], img.Pix[2])
	}
	if img.Pix[3] != 255 {
		t.Fatalf("expected opaque alpha; got %d", img.Pix[3])
	}

	// zero weight renders black instead of dividing by zero
	if img.Pix[4] != 0 || img.Pix[5] != 0 || img.Pix[6] != 0 {
		t.Fatalf("expected unsampled pixel to be black; got (%d, %d, %d)", img.Pix[4], img.Pix[5], img.Pix[6])
	}
}

func TestTonemapGuardsBadSamples(t *testing.T) {
	nan := math32.NaN()
	accum := []float32{nan, -1, 1e30, 1}

	img := Tonemap(accum, 1, 1, 2)
	if img.Pix[0] != 0 {
		t.Fatalf("expected NaN channel to clamp to black; got %d", img.Pix[0])
	}
	if img.Pix[1] != 0 {
		t.Fatalf("expected negative channel to clamp to black; got %d", img.Pix[1])
	}
	if img.Pix[2] != 255 {
		t.Fatalf("expected huge channel to saturate; got %d", img.Pix[2])
	}
}

func TestStillRendererValidation(t *testing.T) {
	if _, err := NewStill(nil, nil, Options{FrameW: 8, FrameH: 8, Samples: 1}, "out.png"); err != ErrSceneNotDefined {
		t.Fatalf("expected %v; got %v", ErrSceneNotDefined, err)
	}
}
