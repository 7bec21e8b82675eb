package scene

import (
	"bytes"
	"strings"
	"testing"

	"github.com/HugoPeters1024/vk-rays/types"
)

func TestMeshValidation(t *testing.T) {
	specs := []struct {
		desc string
		mesh *Mesh
		err  error
	}{
		{
			desc: "indices not a multiple of 3",
			mesh: &Mesh{
				Vertices: []Vertex{{}, {}},
				Indices:  []uint32{0, 1},
			},
			err: ErrMeshIndicesNotTriangles,
		},
		{
			desc: "block exceeds index buffer",
			mesh: &Mesh{
				Vertices: []Vertex{{}, {}, {}},
				Indices:  []uint32{0, 1, 2},
				Blocks:   []GeometryBlock{{FirstIndex: 3, IndexCount: 3}},
			},
			err: ErrMeshBlockOutOfRange,
		},
		{
			desc: "index references missing vertex",
			mesh: &Mesh{
				Vertices: []Vertex{{}, {}},
				Indices:  []uint32{0, 1, 2},
				Blocks:   []GeometryBlock{{FirstIndex: 0, IndexCount: 3}},
			},
			err: ErrMeshIndexOutOfRange,
		},
	}

	for idx, spec := range specs {
		if err := spec.mesh.Validate(); err != spec.err {
			t.Fatalf("[spec %d: %s] expected error %v; got %v", idx, spec.desc, spec.err, err)
		}
	}
}

func TestSceneChangeTracking(t *testing.T) {
	sc := NewScene()

	if _, err := sc.AddMesh(QuadMesh("quad", 0)); err != nil {
		t.Fatalf("expected quad mesh to be accepted; got %v", err)
	}
	instIdx, err := sc.AddInstance(NewInstance(0))
	if err != nil {
		t.Fatalf("expected instance to be accepted; got %v", err)
	}

	changes := sc.TakeChanges()
	if !changes.Topology {
		t.Fatalf("expected topology change after mesh and instance adds")
	}
	if changes = sc.TakeChanges(); changes.Any() {
		t.Fatalf("expected changes to be cleared after take; got %+v", changes)
	}

	sc.SetInstanceTransform(instIdx, types.IdentityTransform())
	changes = sc.TakeChanges()
	if changes.Topology || !changes.Transforms {
		t.Fatalf("expected transform-only change; got %+v", changes)
	}

	sc.SetInstanceTint(instIdx, types.XYZ(1, 0, 0))
	changes = sc.TakeChanges()
	if changes.Topology || changes.Transforms || !changes.Attributes {
		t.Fatalf("expected attribute-only change; got %+v", changes)
	}
}

func TestSceneValidatesReferences(t *testing.T) {
	sc := NewScene()

	if _, err := sc.AddInstance(NewInstance(3)); err != ErrUnknownMesh {
		t.Fatalf("expected %v; got %v", ErrUnknownMesh, err)
	}
	if _, err := sc.AddMesh(QuadMesh("quad", 99)); err != ErrUnknownMaterial {
		t.Fatalf("expected %v; got %v", ErrUnknownMaterial, err)
	}
	if _, err := sc.AddSphere(Sphere{Radius: -1}); err != ErrSphereRadius {
		t.Fatalf("expected %v; got %v", ErrSphereRadius, err)
	}
}

func TestCameraMatrixEquality(t *testing.T) {
	cam := NewCamera()
	before := cam.InvViewMat()

	// exposure and aperture never touch the matrices
	cam.Exposure = 3
	cam.Aperture = 0.25
	if cam.InvViewMat() != before {
		t.Fatalf("expected exposure/aperture change to keep view matrix intact")
	}

	cam.Move(Forward, 0.5)
	if cam.InvViewMat() == before {
		t.Fatalf("expected movement to change the view matrix")
	}
}

func TestCameraLookAt(t *testing.T) {
	cam := NewCamera()
	cam.Position = types.XYZ(0, 0, 5)
	cam.LookAt(types.XYZ(0, 0, 0))

	dir := cam.LookDir()
	if dir.Z() > -0.99 {
		t.Fatalf("expected look direction along -Z; got %v", dir)
	}
}

func TestDemoSceneStats(t *testing.T) {
	sc, err := BuildDemoScene()
	if err != nil {
		t.Fatalf("expected demo scene to build; got %v", err)
	}
	if len(sc.Instances) == 0 || len(sc.Spheres) == 0 {
		t.Fatalf("expected demo scene to carry instances and spheres")
	}

	var buf bytes.Buffer
	sc.WriteStats(&buf)
	if !strings.Contains(buf.String(), "triangles") {
		t.Fatalf("expected stats table to mention triangles; got\n%s", buf.String())
	}
}
