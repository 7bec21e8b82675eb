package soft

import (
	"encoding/binary"
	"testing"

	"github.com/HugoPeters1024/vk-rays/tracer/rt"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
	"github.com/HugoPeters1024/vk-rays/types"
)

func TestBufferAddressing(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	buf, err := dev.CreateBuffer(64, 16, device.UsageStorage|device.UsageHostVisible)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	if buf.Address()%16 != 0 {
		t.Fatalf("expected 16-byte aligned address; got %#x", buf.Address())
	}

	payload := []byte{1, 2, 3, 4}
	if err = buf.Write(8, payload); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}

	view, err := dev.resolve(buf.Address()+8, 4)
	if err != nil {
		t.Fatalf("expected resolve to succeed; got %v", err)
	}
	for i, b := range payload {
		if view[i] != b {
			t.Fatalf("expected byte %d to be %d; got %d", i, b, view[i])
		}
	}

	if err = buf.Write(62, payload); err != device.ErrOutOfRange {
		t.Fatalf("expected %v; got %v", device.ErrOutOfRange, err)
	}
	if _, err = dev.resolve(buf.Address()+62, 4); err == nil {
		t.Fatalf("expected out of range resolve to fail")
	}

	buf.Free()
	if _, err = dev.resolve(buf.Address(), 4); err == nil {
		t.Fatalf("expected resolve of freed buffer to fail")
	}
}

func TestBufferHostVisibility(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	buf, err := dev.CreateBuffer(16, 8, device.UsageStorage)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}

	var out [4]byte
	if err = buf.Read(0, out[:]); err != device.ErrNotHostVisible {
		t.Fatalf("expected %v; got %v", device.ErrNotHostVisible, err)
	}
}

func TestCreatePipelineValidation(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	specs := []struct {
		desc   string
		groups []device.ShaderGroup
	}{
		{
			desc:   "no raygen group",
			groups: []device.ShaderGroup{{Kind: device.GroupMiss, Entry: "miss"}},
		},
		{
			desc: "two raygen groups",
			groups: []device.ShaderGroup{
				{Kind: device.GroupRayGen, Entry: "raygen"},
				{Kind: device.GroupRayGen, Entry: "raygen"},
			},
		},
		{
			desc: "empty entry point",
			groups: []device.ShaderGroup{
				{Kind: device.GroupRayGen, Entry: ""},
			},
		},
		{
			desc: "procedural group without intersection program",
			groups: []device.ShaderGroup{
				{Kind: device.GroupRayGen, Entry: "raygen"},
				{Kind: device.GroupProceduralHit, Entry: "hit"},
			},
		},
		{
			desc: "triangle group with intersection program",
			groups: []device.ShaderGroup{
				{Kind: device.GroupRayGen, Entry: "raygen"},
				{Kind: device.GroupTriangleHit, Entry: "hit", Intersection: "isect"},
			},
		},
	}

	for idx, spec := range specs {
		_, err := dev.CreatePipeline(device.PipelineSpec{Groups: spec.groups})
		if err != device.ErrInvalidPipeline {
			t.Fatalf("[spec %d: %s] expected %v; got %v", idx, spec.desc, device.ErrInvalidPipeline, err)
		}
	}
}

func TestGroupHandlesAreStableAndDistinct(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	p, err := dev.CreatePipeline(device.PipelineSpec{
		Groups: []device.ShaderGroup{
			{Kind: device.GroupRayGen, Entry: "raygen"},
			{Kind: device.GroupMiss, Entry: "miss"},
		},
	})
	if err != nil {
		t.Fatalf("expected pipeline to compile; got %v", err)
	}

	h0, err := p.GroupHandle(0)
	if err != nil {
		t.Fatalf("expected handle 0; got error %v", err)
	}
	h1, err := p.GroupHandle(1)
	if err != nil {
		t.Fatalf("expected handle 1; got error %v", err)
	}
	if len(h0) != handleSize || len(h1) != handleSize {
		t.Fatalf("expected %d byte handles; got %d and %d", handleSize, len(h0), len(h1))
	}

	same := true
	for i := range h0 {
		if h0[i] != h1[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected distinct handles for distinct groups")
	}

	again, _ := p.GroupHandle(0)
	for i := range h0 {
		if h0[i] != again[i] {
			t.Fatalf("expected handle bytes to be stable across calls")
		}
	}
}

func TestBuildBLASValidation(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	if _, err := dev.BuildBLAS(device.BLASSpec{}); err != device.ErrInvalidGeometry {
		t.Fatalf("expected %v for empty spec; got %v", device.ErrInvalidGeometry, err)
	}

	boxes, err := dev.CreateBuffer(24, 8, device.UsageAccelInput)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	verts, _ := dev.CreateBuffer(96, 8, device.UsageAccelInput)
	idx, _ := dev.CreateBuffer(12, 8, device.UsageAccelInput)

	mixed := device.BLASSpec{
		Triangles: []device.TriangleGeometry{{
			VertexBuffer: verts, VertexStride: 32, VertexCount: 3,
			IndexBuffer: idx, IndexCount: 3,
		}},
		AABBs: []device.AABBGeometry{{Buffer: boxes, Count: 1}},
	}
	if _, err = dev.BuildBLAS(mixed); err != device.ErrInvalidGeometry {
		t.Fatalf("expected %v for mixed geometry classes; got %v", device.ErrInvalidGeometry, err)
	}
}

func TestRefitRejectsTopologyChanges(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	boxes, err := dev.CreateBuffer(24, 8, device.UsageAccelInput)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	if err = boxes.Write(0, aabbBytes(-1, -1, -1, 1, 1, 1)); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}
	blas, err := dev.BuildBLAS(device.BLASSpec{
		AABBs: []device.AABBGeometry{{Buffer: boxes, Count: 1, Opaque: true}},
	})
	if err != nil {
		t.Fatalf("expected BLAS build to succeed; got %v", err)
	}

	insts := []device.InstanceDesc{{
		Transform: types.IdentityTransform(),
		Mask:      0xFF,
		BLAS:      blas,
	}}
	as, err := dev.BuildTLAS(insts)
	if err != nil {
		t.Fatalf("expected TLAS build to succeed; got %v", err)
	}

	if err = dev.RefitTLAS(as, insts); err != nil {
		t.Fatalf("expected refit with identical topology to succeed; got %v", err)
	}

	extra := append(insts, insts[0])
	if err = dev.RefitTLAS(as, extra); err != device.ErrInvalidInstance {
		t.Fatalf("expected %v for instance count change; got %v", device.ErrInvalidInstance, err)
	}
}

func TestDispatchValidatesMissRecord(t *testing.T) {
	dev := New(1)
	defer dev.Close()

	p, err := dev.CreatePipeline(device.PipelineSpec{
		Groups: []device.ShaderGroup{
			{Kind: device.GroupRayGen, Entry: "raygen"},
			{Kind: device.GroupMiss, Entry: "miss"},
			{Kind: device.GroupProceduralHit, Entry: "sphereHit", Intersection: "sphereIsect"},
		},
		MaxBounces:       1,
		PushConstantSize: rt.PushSize,
	})
	if err != nil {
		t.Fatalf("expected pipeline to compile; got %v", err)
	}

	// one sphere at (0, 0, 3) with a diffuse material
	spheres, err := dev.CreateBuffer(24, 8, device.UsageStorage)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	sphereRec := make([]byte, 24)
	putf32(sphereRec[8:], 3)
	putf32(sphereRec[12:], 1)
	if err = spheres.Write(0, sphereRec); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}

	mats, _ := dev.CreateBuffer(48, 8, device.UsageStorage)
	matRec := make([]byte, 48)
	for i := 0; i < 4; i++ {
		putf32(matRec[i*4:], 0.8)
	}
	if err = mats.Write(0, matRec); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}

	boxes, _ := dev.CreateBuffer(24, 8, device.UsageAccelInput)
	if err = boxes.Write(0, aabbBytes(-1, -1, 2, 1, 1, 4)); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}
	blas, err := dev.BuildBLAS(device.BLASSpec{
		AABBs: []device.AABBGeometry{{Buffer: boxes, Count: 1, Opaque: true}},
	})
	if err != nil {
		t.Fatalf("expected BLAS build to succeed; got %v", err)
	}
	as, err := dev.BuildTLAS([]device.InstanceDesc{{
		Transform: types.IdentityTransform(),
		Mask:      0xFF,
		BLAS:      blas,
	}})
	if err != nil {
		t.Fatalf("expected TLAS build to succeed; got %v", err)
	}

	// hand-packed binding table: raygen at 0, miss at 64, one hit
	// record with the sphere and material payload at 128
	sbt, err := dev.CreateBuffer(256, baseAlign, device.UsageBindingTable)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	for i, off := range []uint64{0, 64, 128} {
		h, err := p.GroupHandle(i)
		if err != nil {
			t.Fatalf("expected handle %d; got error %v", i, err)
		}
		if err = sbt.Write(off, h); err != nil {
			t.Fatalf("expected write to succeed; got %v", err)
		}
	}
	payload := make([]byte, 32)
	binary.LittleEndian.PutUint64(payload[payloadVertices:], spheres.Address())
	binary.LittleEndian.PutUint64(payload[payloadMaterials:], mats.Address())
	if err = sbt.Write(128+handleSize, payload); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}

	table := device.BindingTable{
		RayGen: device.StridedRegion{Buffer: sbt, Offset: 0, Stride: 32, Size: 32},
		Miss:   device.StridedRegion{Buffer: sbt, Offset: 64, Stride: 32, Size: 32},
		Hit:    device.StridedRegion{Buffer: sbt, Offset: 128, Stride: 64, Size: 64},
	}

	accum, err := dev.CreateBuffer(4*4*16, 8, device.UsageStorage|device.UsageHostVisible)
	if err != nil {
		t.Fatalf("expected allocation to succeed; got %v", err)
	}
	ident := types.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	push := rt.PushConstants{
		InvView:   ident,
		InvProj:   ident,
		Clear:     true,
		Exposure:  1,
		Samples:   1,
		Bounces:   1,
		AccumAddr: accum.Address(),
		TLASAddr:  as.Address(),
	}

	if err = dev.DispatchRays(p, table, 4, 4, push.Encode()); err != nil {
		t.Fatalf("expected dispatch with a valid miss record to succeed; got %v", err)
	}

	// a corrupt miss handle must fail the dispatch, not trace anyway
	garbage := make([]byte, handleSize)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	if err = sbt.Write(64, garbage); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}
	if err = dev.DispatchRays(p, table, 4, 4, push.Encode()); err == nil {
		t.Fatalf("expected dispatch with a corrupt miss record to fail")
	}

	// so must a valid handle of the wrong group kind
	h2, _ := p.GroupHandle(2)
	if err = sbt.Write(64, h2); err != nil {
		t.Fatalf("expected write to succeed; got %v", err)
	}
	if err = dev.DispatchRays(p, table, 4, 4, push.Encode()); err == nil {
		t.Fatalf("expected dispatch with a non-miss handle in the miss region to fail")
	}
}

func aabbBytes(minX, minY, minZ, maxX, maxY, maxZ float32) []byte {
	out := make([]byte, 24)
	for i, v := range []float32{minX, minY, minZ, maxX, maxY, maxZ} {
		putf32(out[i*4:], v)
	}
	return out
}
