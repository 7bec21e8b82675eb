package rt

import (
	"encoding/binary"
	"fmt"

	"github.com/HugoPeters1024/vk-rays/scene"
	"github.com/HugoPeters1024/vk-rays/tracer/rt/device"
)

// MeshBLAS bundles a bottom level acceleration structure with the
// buffers its hit records reference. Everything is freed together when
// the mesh leaves the scene.
type MeshBLAS struct {
	AS device.AccelStruct

	// Vertices and Indices are the mesh buffers shared by every
	// geometry in the structure.
	Vertices device.Buffer
	Indices  device.Buffer

	// Offsets maps geometry index to first index: one uint32 per
	// geometry, monotonically non-decreasing. Hit programs use it to
	// recover the global triangle index of a hit.
	Offsets device.Buffer

	// Materials holds one resolved material record per geometry.
	Materials device.Buffer

	GeometryCount uint32

	// AlphaTested records which geometries need any-hit shading, by
	// geometry index.
	AlphaTested []bool
}

// SphereBLAS bundles the procedural sphere structure with the sphere
// record buffer its intersection program reads.
type SphereBLAS struct {
	AS device.AccelStruct

	// Spheres holds one record per primitive: center, radius and
	// material index.
	Spheres device.Buffer

	// Boxes is the AABB build input, one 24-byte box per sphere. It
	// must outlive the structure on devices that refit.
	Boxes device.Buffer

	// Materials holds one resolved material record per sphere.
	Materials device.Buffer

	Count uint32
}

// Free releases the structure and every buffer it owns.
func (b *MeshBLAS) Free(arena *Arena) {
	if b.AS != nil {
		b.AS.Destroy()
	}
	arena.Free(b.Vertices)
	arena.Free(b.Indices)
	arena.Free(b.Offsets)
	arena.Free(b.Materials)
}

// Free releases the structure and every buffer it owns.
func (b *SphereBLAS) Free(arena *Arena) {
	if b.AS != nil {
		b.AS.Destroy()
	}
	arena.Free(b.Spheres)
	arena.Free(b.Boxes)
	arena.Free(b.Materials)
}

// BuildMeshBLAS uploads the mesh buffers and builds a bottom level
// structure with one geometry per material block. Geometry over an
// alpha-tested material is built non-opaque so its any-hit program
// runs; everything else is opaque.
//
// On any failure the partially allocated buffers are freed and no
// structure is left behind.
func BuildMeshBLAS(dev device.Device, arena *Arena, mesh *scene.Mesh, materials []scene.Material) (*MeshBLAS, error) {
	if len(mesh.Blocks) == 0 || len(mesh.Indices) == 0 {
		return nil, ErrNoGeometry
	}

	offsets, err := geometryOffsets(mesh)
	if err != nil {
		return nil, err
	}
	alphaTested := make([]bool, len(mesh.Blocks))
	for i, blk := range mesh.Blocks {
		if blk.MaterialIndex < uint32(len(materials)) {
			alphaTested[i] = materials[blk.MaterialIndex].AlphaTested()
		}
	}

	out := &MeshBLAS{
		GeometryCount: uint32(len(mesh.Blocks)),
		AlphaTested:   alphaTested,
	}
	fail := func(err error) (*MeshBLAS, error) {
		out.Free(arena)
		return nil, err
	}

	usage := device.UsageStorage | device.UsageAccelInput
	if out.Vertices, err = arena.Upload(mesh.Vertices, recordAlign, usage); err != nil {
		return fail(fmt.Errorf("blas (%s): vertices: %w", mesh.Name, err))
	}
	if out.Indices, err = arena.Upload(mesh.Indices, recordAlign, usage); err != nil {
		return fail(fmt.Errorf("blas (%s): indices: %w", mesh.Name, err))
	}
	if out.Offsets, err = arena.Upload(offsets, recordAlign, device.UsageStorage); err != nil {
		return fail(fmt.Errorf("blas (%s): offset table: %w", mesh.Name, err))
	}

	matRecords, err := resolveMaterials(mesh, materials)
	if err != nil {
		return fail(fmt.Errorf("blas (%s): %w", mesh.Name, err))
	}
	if out.Materials, err = arena.Upload(matRecords, recordAlign, device.UsageStorage); err != nil {
		return fail(fmt.Errorf("blas (%s): material table: %w", mesh.Name, err))
	}

	spec := device.BLASSpec{}
	for i, blk := range mesh.Blocks {
		spec.Triangles = append(spec.Triangles, device.TriangleGeometry{
			VertexBuffer: out.Vertices,
			VertexStride: scene.VertexSize,
			VertexCount:  uint32(len(mesh.Vertices)),
			IndexBuffer:  out.Indices,
			FirstIndex:   blk.FirstIndex,
			IndexCount:   blk.IndexCount,
			Opaque:       !alphaTested[i],
		})
	}

	if out.AS, err = dev.BuildBLAS(spec); err != nil {
		return fail(fmt.Errorf("blas (%s): build: %w", mesh.Name, err))
	}
	return out, nil
}

// BuildSphereBLAS uploads the sphere records plus their bounding boxes
// and builds an AABB bottom level structure over them.
func BuildSphereBLAS(dev device.Device, arena *Arena, spheres []scene.Sphere, materials []scene.Material) (*SphereBLAS, error) {
	if len(spheres) == 0 {
		return nil, ErrNoGeometry
	}

	out := &SphereBLAS{Count: uint32(len(spheres))}
	fail := func(err error) (*SphereBLAS, error) {
		out.Free(arena)
		return nil, err
	}

	records := make([]byte, len(spheres)*scene.SphereSize)
	boxes := make([]float32, 0, len(spheres)*6)
	matRecords := make([]byte, len(spheres)*scene.MaterialSize)
	for i, sp := range spheres {
		if sp.MaterialIndex >= uint32(len(materials)) {
			return fail(scene.ErrUnknownMaterial)
		}
		rec := records[i*scene.SphereSize:]
		putF32(rec[0:], sp.Center.X())
		putF32(rec[4:], sp.Center.Y())
		putF32(rec[8:], sp.Center.Z())
		putF32(rec[12:], sp.Radius)
		// row in the per-structure material table, resolved below
		binary.LittleEndian.PutUint32(rec[16:], uint32(i))

		box := sp.Bounds()
		boxes = append(boxes,
			box.Min.X(), box.Min.Y(), box.Min.Z(),
			box.Max.X(), box.Max.Y(), box.Max.Z())

		encodeMaterial(matRecords[i*scene.MaterialSize:], &materials[sp.MaterialIndex])
	}

	var err error
	if out.Spheres, err = arena.Upload(records, recordAlign, device.UsageStorage); err != nil {
		return fail(fmt.Errorf("blas (spheres): records: %w", err))
	}
	if out.Boxes, err = arena.Upload(boxes, recordAlign, device.UsageAccelInput); err != nil {
		return fail(fmt.Errorf("blas (spheres): boxes: %w", err))
	}
	if out.Materials, err = arena.Upload(matRecords, recordAlign, device.UsageStorage); err != nil {
		return fail(fmt.Errorf("blas (spheres): material table: %w", err))
	}

	spec := device.BLASSpec{
		AABBs: []device.AABBGeometry{{
			Buffer: out.Boxes,
			Count:  out.Count,
			Opaque: true,
		}},
	}
	if out.AS, err = dev.BuildBLAS(spec); err != nil {
		return fail(fmt.Errorf("blas (spheres): build: %w", err))
	}
	return out, nil
}

// geometryOffsets derives the geometry index to first-index table,
// validating the table invariants: one entry per geometry,
// monotonically non-decreasing.
func geometryOffsets(mesh *scene.Mesh) ([]uint32, error) {
	offsets := make([]uint32, 0, len(mesh.Blocks))
	var prev uint32
	for _, blk := range mesh.Blocks {
		if blk.IndexCount == 0 {
			return nil, ErrOffsetTable
		}
		if blk.FirstIndex < prev {
			return nil, ErrOffsetTable
		}
		prev = blk.FirstIndex
		offsets = append(offsets, blk.FirstIndex)
	}
	return offsets, nil
}

// resolveMaterials builds the per-geometry material table.
func resolveMaterials(mesh *scene.Mesh, materials []scene.Material) ([]byte, error) {
	records := make([]byte, len(mesh.Blocks)*scene.MaterialSize)
	for i, blk := range mesh.Blocks {
		if blk.MaterialIndex >= uint32(len(materials)) {
			return nil, scene.ErrUnknownMaterial
		}
		encodeMaterial(records[i*scene.MaterialSize:], &materials[blk.MaterialIndex])
	}
	return records, nil
}

// encodeMaterial writes one 48-byte device material record.
func encodeMaterial(dst []byte, m *scene.Material) {
	putF32(dst[0:], m.BaseColor.X())
	putF32(dst[4:], m.BaseColor.Y())
	putF32(dst[8:], m.BaseColor.Z())
	putF32(dst[12:], m.BaseColor.W())
	putF32(dst[16:], m.Emission.X())
	putF32(dst[20:], m.Emission.Y())
	putF32(dst[24:], m.Emission.Z())
	putF32(dst[28:], m.Metallic)
	putF32(dst[32:], m.Roughness)
	putF32(dst[36:], m.Transmission)
	binary.LittleEndian.PutUint32(dst[40:], m.TextureIndex)
	binary.LittleEndian.PutUint32(dst[44:], m.Flags)
}
