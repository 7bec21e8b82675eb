package rt_test

import (
	"testing"

	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer/rt"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/tracer/soft"
	"github.com/HugoPeters1024/vk-rays/types"
)

func buildTestBLAS(t *testing.T, dev device.Device, arena *rt.Arena) *rt.MeshBLAS {
	t.Helper()
	mats := []scene.Material{scene.DefaultMaterial()}
	blas, err := rt.BuildMeshBLAS(dev, arena, scene.QuadMesh("quad", 0), mats)
	if err != nil {
		t.Fatalf("expected mesh BLAS to build; got %v", err)
	}
	return blas
}

func TestCompileSBTLayout(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)
	defer arena.Release()

	blas := buildTestBLAS(t, dev, arena)

	p, groups, err := rt.BuildPipeline(dev, false, true, 8)
	if err != nil {
		t.Fatalf("expected pipeline to build; got %v", err)
	}
	defer p.Destroy()

	sbt, err := rt.CompileSBT(arena, dev.Limits(), p, rt.TableLayout{
		RayGen: groups.RayGen,
		Miss:   []int{groups.Miss},
		Hits: []rt.HitRecordSpec{
			{
				Group:     groups.TriHit,
				Vertices:  blas.Vertices.Address(),
				Indices:   blas.Indices.Address(),
				Offsets:   blas.Offsets.Address(),
				Materials: blas.Materials.Address(),
			},
			{
				Group:     groups.SphereHit,
				Spheres:   blas.Vertices.Address(), // any valid address
				Materials: blas.Materials.Address(),
			},
		},
	})
	if err != nil {
		t.Fatalf("expected table to compile; got %v", err)
	}

	limits := dev.Limits()
	regions := []struct {
		name   string
		region device.StridedRegion
	}{
		{"raygen", sbt.Table.RayGen},
		{"miss", sbt.Table.Miss},
		{"hit", sbt.Table.Hit},
	}
	for _, r := range regions {
		if r.region.Stride%limits.ShaderGroupHandleAlignment != 0 {
			t.Fatalf("expected %s stride to honor handle alignment %d; got %d",
				r.name, limits.ShaderGroupHandleAlignment, r.region.Stride)
		}
		base := r.region.Buffer.Address() + r.region.Offset
		if base%uint64(limits.ShaderGroupBaseAlignment) != 0 {
			t.Fatalf("expected %s base to honor base alignment %d; got %#x",
				r.name, limits.ShaderGroupBaseAlignment, base)
		}
		if r.region.Size%uint64(r.region.Stride) != 0 {
			t.Fatalf("expected %s region to hold whole records; size %d stride %d",
				r.name, r.region.Size, r.region.Stride)
		}
	}

	if sbt.Table.RayGen.Records() != 1 {
		t.Fatalf("expected exactly one raygen record; got %d", sbt.Table.RayGen.Records())
	}
	if got := sbt.Table.Hit.Records(); got != 2 || sbt.HitRecords != 2 {
		t.Fatalf("expected 2 hit records; got %d (table %d)", sbt.HitRecords, got)
	}
	if sbt.Table.Hit.Stride < limits.ShaderGroupHandleSize+32 {
		t.Fatalf("expected hit stride to cover handle plus payload; got %d", sbt.Table.Hit.Stride)
	}
}

func TestCompileSBTRejectsIncompleteLayouts(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)
	defer arena.Release()

	p, groups, err := rt.BuildPipeline(dev, false, false, 8)
	if err != nil {
		t.Fatalf("expected pipeline to build; got %v", err)
	}
	defer p.Destroy()

	hit := rt.HitRecordSpec{Group: groups.TriHit}
	specs := []struct {
		desc   string
		layout rt.TableLayout
	}{
		{"no raygen", rt.TableLayout{RayGen: -1, Miss: []int{groups.Miss}, Hits: []rt.HitRecordSpec{hit}}},
		{"no miss", rt.TableLayout{RayGen: groups.RayGen, Hits: []rt.HitRecordSpec{hit}}},
		{"no hits", rt.TableLayout{RayGen: groups.RayGen, Miss: []int{groups.Miss}}},
	}
	for idx, spec := range specs {
		if _, err := rt.CompileSBT(arena, dev.Limits(), p, spec.layout); err != rt.ErrTableLayout {
			t.Fatalf("[spec %d: %s] expected %v; got %v", idx, spec.desc, rt.ErrTableLayout, err)
		}
	}
}

func TestBuildMeshBLASOffsetTable(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)
	defer arena.Release()

	mats := []scene.Material{scene.DefaultMaterial()}

	// out-of-order blocks break the monotonic offset invariant
	mesh := scene.QuadMesh("quad", 0)
	mesh.Blocks = []scene.GeometryBlock{
		{FirstIndex: 3, IndexCount: 3},
		{FirstIndex: 0, IndexCount: 3},
	}
	if _, err := rt.BuildMeshBLAS(dev, arena, mesh, mats); err != rt.ErrOffsetTable {
		t.Fatalf("expected %v; got %v", rt.ErrOffsetTable, err)
	}

	// empty blocks are rejected too
	mesh.Blocks = []scene.GeometryBlock{{FirstIndex: 0, IndexCount: 0}}
	if _, err := rt.BuildMeshBLAS(dev, arena, mesh, mats); err != rt.ErrOffsetTable {
		t.Fatalf("expected %v; got %v", rt.ErrOffsetTable, err)
	}

	// a two-block mesh yields one hit-table row per geometry
	mesh.Blocks = []scene.GeometryBlock{
		{FirstIndex: 0, IndexCount: 3},
		{FirstIndex: 3, IndexCount: 3},
	}
	blas, err := rt.BuildMeshBLAS(dev, arena, mesh, mats)
	if err != nil {
		t.Fatalf("expected two-block mesh to build; got %v", err)
	}
	if blas.GeometryCount != 2 {
		t.Fatalf("expected 2 geometries; got %d", blas.GeometryCount)
	}
	if blas.Offsets.Size() != 8 {
		t.Fatalf("expected offset table with one entry per geometry (8 bytes); got %d", blas.Offsets.Size())
	}

	if arena.Allocated() == 0 {
		t.Fatalf("expected arena to track live bytes")
	}
}

func TestTLASSync(t *testing.T) {
	dev := soft.New(1)
	defer dev.Close()
	arena := rt.NewArena(dev)
	defer arena.Release()

	blas := buildTestBLAS(t, dev, arena)
	builder := rt.NewTLASBuilder(dev)
	defer builder.Release()

	inst := device.InstanceDesc{
		Transform: types.IdentityTransform(),
		Mask:      0xFF,
		BLAS:      blas.AS,
	}

	live, retired, err := builder.Sync([]device.InstanceDesc{inst}, 1)
	if err != nil {
		t.Fatalf("expected first sync to build; got %v", err)
	}
	if retired != nil {
		t.Fatalf("expected no retired structure on first build")
	}

	// transform-only change refits in place on this device
	moved := inst
	moved.Transform = types.TransformFromMat4(types.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		5, 0, 0, 1,
	})
	live2, retired, err := builder.Sync([]device.InstanceDesc{moved}, 1)
	if err != nil {
		t.Fatalf("expected refit sync to succeed; got %v", err)
	}
	if retired != nil {
		t.Fatalf("expected refit to retire nothing")
	}
	if live2 != live {
		t.Fatalf("expected refit to keep the same structure")
	}

	// instance count change forces a rebuild
	live3, retired, err := builder.Sync([]device.InstanceDesc{inst, moved}, 1)
	if err != nil {
		t.Fatalf("expected rebuild sync to succeed; got %v", err)
	}
	if retired != live {
		t.Fatalf("expected rebuild to retire the previous structure")
	}
	if live3 == live {
		t.Fatalf("expected rebuild to produce a new structure")
	}

	// validation failures
	if _, _, err = builder.Sync(nil, 1); err != rt.ErrNoGeometry {
		t.Fatalf("expected %v for empty instance list; got %v", rt.ErrNoGeometry, err)
	}
	bad := inst
	bad.HitGroupOffset = 7
	if _, _, err = builder.Sync([]device.InstanceDesc{bad}, 1); err == nil {
		t.Fatalf("expected hit group offset past the hit region to be rejected")
	}
	overflow := inst
	overflow.CustomIndex = device.MaxCustomIndex + 1
	if _, _, err = builder.Sync([]device.InstanceDesc{overflow}, 1); err == nil {
		t.Fatalf("expected 25-bit custom index to be rejected")
	}
}
