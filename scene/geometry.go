package scene

import (
	"github.com/HugoPeters1024/vk-rays/types"
)

// Vertex is laid out exactly as the device-side hit programs expect it:
// 8 contiguous float32 values, 32 bytes per vertex, no padding.
type Vertex struct {
	Position types.Vec3
	Normal   types.Vec3
	UV       types.Vec2
}

// VertexSize is the byte size of a single Vertex on the device.
const VertexSize = 32

// GeometryBlock describes a contiguous run of triangles inside a mesh
// that shares a single material. A mesh with N blocks becomes a bottom
// level acceleration structure with N geometry records.
type GeometryBlock struct {
	// FirstIndex is the offset into the mesh index buffer where this
	// block's triangle indices begin. Always a multiple of 3.
	FirstIndex uint32

	// IndexCount is the number of indices in this block. Always a
	// multiple of 3.
	IndexCount uint32

	// MaterialIndex selects the material for every triangle in the
	// block. It indexes the owning Scene's material list.
	MaterialIndex uint32
}

// Mesh is a triangle soup partitioned into per-material geometry blocks.
// All blocks share the mesh vertex and index buffers.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Blocks   []GeometryBlock
}

// TriangleCount returns the total triangle count across all blocks.
func (m *Mesh) TriangleCount() uint32 {
	var total uint32
	for _, blk := range m.Blocks {
		total += blk.IndexCount / 3
	}
	return total
}

// Bounds returns the object-space bounding box of the mesh vertices.
func (m *Mesh) Bounds() types.AABB {
	box := types.NewAABB()
	for _, v := range m.Vertices {
		box.Extend(v.Position)
	}
	return box
}

// Validate checks that every block references valid slices of the mesh
// buffers and that triangle counts line up.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return ErrMeshIndicesNotTriangles
	}
	for _, blk := range m.Blocks {
		if blk.IndexCount%3 != 0 {
			return ErrMeshIndicesNotTriangles
		}
		if uint64(blk.FirstIndex)+uint64(blk.IndexCount) > uint64(len(m.Indices)) {
			return ErrMeshBlockOutOfRange
		}
	}
	for _, idx := range m.Indices {
		if idx >= uint32(len(m.Vertices)) {
			return ErrMeshIndexOutOfRange
		}
	}
	return nil
}
