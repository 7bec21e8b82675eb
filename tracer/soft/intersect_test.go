package soft

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/HugoPeters1024/vk-rays/types"
)

func TestTriTest(t *testing.T) {
	tr := &tri{
		v0: types.XYZ(-1, -1, 0),
		v1: types.XYZ(1, -1, 0),
		v2: types.XYZ(0, 1, 0),
	}

	specs := []struct {
		desc   string
		origin types.Vec3
		dir    types.Vec3
		wantT  float32
		hit    bool
	}{
		{"straight on", types.XYZ(0, 0, -5), types.XYZ(0, 0, 1), 5, true},
		{"backface", types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), 5, true},
		{"misses to the side", types.XYZ(4, 0, -5), types.XYZ(0, 0, 1), 0, false},
		{"parallel", types.XYZ(0, 0, -5), types.XYZ(1, 0, 0), 0, false},
		{"behind origin", types.XYZ(0, 0, 5), types.XYZ(0, 0, 1), 0, false},
	}

	for idx, spec := range specs {
		gotT, _, _, ok := triTest(tr, spec.origin, spec.dir, 1e-4, math32.MaxFloat32)
		if ok != spec.hit {
			t.Fatalf("[spec %d: %s] expected hit=%t; got %t", idx, spec.desc, spec.hit, ok)
		}
		if ok && math32.Abs(gotT-spec.wantT) > 1e-4 {
			t.Fatalf("[spec %d: %s] expected t=%f; got %f", idx, spec.desc, spec.wantT, gotT)
		}
	}
}

func TestSphereTest(t *testing.T) {
	center := types.XYZ(0, 0, 0)

	gotT, ok := sphereTest(center, 1, types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), 1e-4, math32.MaxFloat32)
	if !ok || math32.Abs(gotT-4) > 1e-4 {
		t.Fatalf("expected hit at t=4; got t=%f hit=%t", gotT, ok)
	}

	// origin inside the sphere hits the far wall
	gotT, ok = sphereTest(center, 1, types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), 1e-4, math32.MaxFloat32)
	if !ok || math32.Abs(gotT-1) > 1e-4 {
		t.Fatalf("expected inside hit at t=1; got t=%f hit=%t", gotT, ok)
	}

	if _, ok = sphereTest(center, 1, types.XYZ(0, 5, 5), types.XYZ(0, 0, -1), 1e-4, math32.MaxFloat32); ok {
		t.Fatalf("expected grazing ray to miss")
	}
}

func TestSlabTest(t *testing.T) {
	b := types.AABB{Min: types.XYZ(-1, -1, -1), Max: types.XYZ(1, 1, 1)}

	if !slabTest(b, types.XYZ(0, 0, -5), types.XYZ(0, 0, 1), 1e-4, math32.MaxFloat32) {
		t.Fatalf("expected axis-aligned ray to hit the box")
	}
	if slabTest(b, types.XYZ(0, 5, -5), types.XYZ(0, 0, 1), 1e-4, math32.MaxFloat32) {
		t.Fatalf("expected offset ray to miss the box")
	}
	if slabTest(b, types.XYZ(0, 0, -5), types.XYZ(0, 0, 1), 1e-4, 2) {
		t.Fatalf("expected hit beyond tMax to be rejected")
	}
}

func TestSamplerThreadsState(t *testing.T) {
	seed := pixelSeed(3, 7, 0, 0xCAFE)
	v1, s1 := rand01(seed)
	v2, s2 := rand01(s1)

	if s1 == seed || s2 == s1 {
		t.Fatalf("expected state to advance on every draw")
	}
	if v1 < 0 || v1 >= 1 || v2 < 0 || v2 >= 1 {
		t.Fatalf("expected draws in [0, 1); got %f and %f", v1, v2)
	}

	// same inputs, same outputs: the state is the only state
	again, _ := rand01(seed)
	if again != v1 {
		t.Fatalf("expected deterministic draw for equal state; got %f and %f", v1, again)
	}
}

func TestCosineSampleStaysInHemisphere(t *testing.T) {
	n := types.XYZ(0, 1, 0)
	seed := uint32(12345)
	for i := 0; i < 64; i++ {
		var dir types.Vec3
		dir, seed = cosineSample(n, seed)
		if dir.Dot(n) < 0 {
			t.Fatalf("expected sample %d in upper hemisphere; got %v", i, dir)
		}
		if math32.Abs(dir.Len()-1) > 1e-4 {
			t.Fatalf("expected unit length sample; got %f", dir.Len())
		}
	}
}
