package types

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestTransformMat4Roundtrip(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.7)).Mul4(mgl32.Scale3D(2, 2, 2))

	tf := TransformFromMat4(m)
	back := tf.Mat4()

	for i := 0; i < 16; i++ {
		// the last row is dropped by the 3x4 form
		if i%4 == 3 && i != 15 {
			continue
		}
		if diff := back[i] - m[i]; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("expected element %d to be %f; got %f", i, m[i], back[i])
		}
	}
}

func TestTransformApply(t *testing.T) {
	tf := TransformFromMat4(mgl32.Translate3D(10, 0, 0))

	got := tf.Apply(XYZ(1, 2, 3))
	want := XYZ(11, 2, 3)
	if got != want {
		t.Fatalf("expected point %v; got %v", want, got)
	}

	gotDir := tf.ApplyDir(XYZ(1, 2, 3))
	wantDir := XYZ(1, 2, 3)
	if gotDir != wantDir {
		t.Fatalf("expected direction %v; got %v", wantDir, gotDir)
	}
}

func TestAABBExtendUnion(t *testing.T) {
	box := NewAABB()
	box.Extend(XYZ(1, 1, 1))
	box.Extend(XYZ(-1, 0, 2))

	if box.Min != XYZ(-1, 0, 1) {
		t.Fatalf("expected min (-1, 0, 1); got %v", box.Min)
	}
	if box.Max != XYZ(1, 1, 2) {
		t.Fatalf("expected max (1, 1, 2); got %v", box.Max)
	}

	box.Union(AABB{Min: XYZ(-5, 0, 0), Max: XYZ(0, 0.5, 1)})
	if box.Min != XYZ(-5, 0, 0) || box.Max != XYZ(1, 1, 2) {
		t.Fatalf("unexpected union %v", box)
	}
}

func TestAABBTransform(t *testing.T) {
	box := AABB{Min: XYZ(-1, -1, -1), Max: XYZ(1, 1, 1)}
	tf := TransformFromMat4(mgl32.Translate3D(5, 0, 0))

	got := box.Transform(tf)
	if got.Min != XYZ(4, -1, -1) || got.Max != XYZ(6, 1, 1) {
		t.Fatalf("expected translated box; got %v", got)
	}
}
